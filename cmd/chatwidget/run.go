package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the chat widget against the configured endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx, *cfgPath, true)
			if err != nil {
				return err
			}
			defer rt.close()

			return rt.runWidget(ctx, rt.cfg.Endpoint.Domain(), open)
		},
	}
	cmd.Flags().BoolVar(&open, "open", true, "open the widget on start")
	return cmd
}
