// Command chatwidget runs the terminal chat widget and its mock backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatwidget: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "chatwidget",
		Short: "Embeddable chat widget with a streaming websocket channel",
		Long: `chatwidget connects to a conversational backend over a websocket,
renders streamed answers in the terminal and collects feedback on them.

Config file: ./config.yaml (or CHATWIDGET_CONFIG)
Environment: CHATWIDGET_* variables override config`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "config file path")

	root.AddCommand(
		newRunCmd(&cfgPath),
		newMockBackendCmd(&cfgPath),
		newDemoCmd(&cfgPath),
		newVersionCmd(),
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CHATWIDGET_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatwidget %s\n", version)
		},
	}
}
