package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newMockBackendCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Serve the mock conversational backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx, *cfgPath, false)
			if err != nil {
				return err
			}
			defer rt.close()
			if addr != "" {
				rt.cfg.Backend.Addr = addr
			}

			srv, sink, err := rt.newBackend()
			if err != nil {
				return err
			}
			defer sink.Close()

			go func() {
				select {
				case <-srv.Ready():
					fmt.Fprintf(cmd.OutOrStdout(), "mock backend listening on ws://%s%s\n", srv.BoundAddr(), rt.cfg.Backend.Path)
				case <-ctx.Done():
				}
			}()
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides backend.addr)")
	return cmd
}
