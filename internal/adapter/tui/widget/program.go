package widget

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"chatwidget/internal/domain"
	"chatwidget/internal/infra/logger"
)

// Program runs the widget model as a Bubble Tea program and forwards bus
// events into it.
type Program struct {
	deps   ModelDeps
	bus    domain.EventBus // optional
	logger *slog.Logger

	mu      sync.Mutex
	program *tea.Program
}

// NewProgram creates a widget program. bus may be nil, in which case the
// widget only redraws on input.
func NewProgram(deps ModelDeps, bus domain.EventBus) *Program {
	deps.Logger = logger.Component(deps.Logger, "tui")
	return &Program{deps: deps, bus: bus, logger: deps.Logger}
}

// Run creates the Bubble Tea program and blocks until it exits. Cancelling
// ctx quits the program and shuts the session down. With no options the
// program takes the alternate screen and mouse motion.
func (p *Program) Run(ctx context.Context, opts ...tea.ProgramOption) error {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	}
	program := tea.NewProgram(NewModel(ctx, p.deps), opts...)
	p.mu.Lock()
	p.program = program
	p.mu.Unlock()

	if p.bus != nil {
		unsub := p.bus.SubscribeAll(func(_ context.Context, event domain.Event) {
			program.Send(EventMsg{Event: event})
		})
		defer unsub()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			program.Send(QuitMsg{})
		case <-done:
		}
	}()

	p.logger.Debug("widget started")
	_, err := program.Run()
	// The session ends with the program.
	p.deps.Controller.Shutdown()
	p.logger.Debug("widget stopped", "error", err)
	return err
}

// Stop asks a running program to quit.
func (p *Program) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.program != nil {
		p.program.Send(QuitMsg{})
	}
}
