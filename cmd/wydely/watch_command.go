package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/wydely-client/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Hold the session open until it expires or is logged out",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			ended := make(chan struct{}, 1)
			listener := session.WithStateListener(func(s session.State) {
				if s == session.StateUnauthenticated {
					select {
					case ended <- struct{}{}:
					default:
					}
				}
			})
			if err := a.startSession(ctx, session.RouteHome, listener); err != nil {
				return err
			}
			if err := a.requireSession(); err != nil {
				return err
			}

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error().Err(err).Msg("metrics server failed")
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			a.printf("Watching session for %s, press Ctrl+C to stop\n", a.manager.Email())
			select {
			case <-ended:
				a.printf("Session ended, redirected to %s\n", a.nav.CurrentRoute())
			case <-ctx.Done():
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve session metrics on this address")
	return cmd
}
