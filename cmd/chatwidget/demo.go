package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDemoCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the mock backend and the widget in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx, *cfgPath, true)
			if err != nil {
				return err
			}
			defer rt.close()
			// Any free port; the widget is pointed at whatever was bound.
			rt.cfg.Backend.Addr = "127.0.0.1:0"

			srv, sink, err := rt.newBackend()
			if err != nil {
				return err
			}
			defer sink.Close()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error { return srv.Start(gctx) })
			g.Go(func() error {
				select {
				case <-srv.Ready():
				case <-gctx.Done():
					return nil
				}
				// The backend stops when the widget exits.
				defer cancel()

				endpoint := rt.cfg.Endpoint.Domain()
				endpoint.URL = "ws://" + srv.BoundAddr()
				endpoint.Path = rt.cfg.Backend.Path
				return rt.runWidget(gctx, endpoint, true)
			})
			return g.Wait()
		},
	}
}
