// Package widget implements the chat widget as a Bubble Tea program driven
// by a session controller.
package widget

import "chatwidget/internal/domain"

// EventMsg carries a bus event into the update loop. Every event triggers a
// re-derivation of the presentation.
type EventMsg struct {
	Event domain.Event
}

// OpenedMsg reports the result of the Open issued from Init.
type OpenedMsg struct {
	OK bool
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}
