package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/wydely-client/mockbackend"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newMockServerCommand() *cobra.Command {
	var seedEmail, seedPassword string

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run the in-process mock of the Wydely auth API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			cfg := a.cfg

			secret := []byte(cfg.GetMockSecret())
			if len(secret) == 0 {
				secret = make([]byte, 32)
				if _, err := rand.Read(secret); err != nil {
					return err
				}
			}

			backend, err := mockbackend.New(secret,
				mockbackend.WithLogger(a.logger),
				mockbackend.WithOTP(cfg.GetMockOTP()),
				mockbackend.WithAccessTTL(cfg.GetMockAccessTTL()),
				mockbackend.WithAllowedOrigins(cfg.GetMockAllowedOrigins()...),
				mockbackend.WithRegistry(prometheus.NewRegistry()),
			)
			if err != nil {
				return err
			}
			if seedEmail != "" {
				if _, err := backend.CreateUser("Demo", seedEmail, passwordFrom(seedPassword), "Demo Business", true); err != nil {
					return err
				}
			}

			displayAppname(a, cfg.GetAppName())
			server := &http.Server{
				Addr:              cfg.GetMockListenAddr(),
				Handler:           backend.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- listenAndServe(a, server)
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			return shutdown(server)
		},
	}

	cmd.Flags().StringVar(&seedEmail, "seed-email", "", "Create a verified user with this email at startup")
	cmd.Flags().StringVar(&seedPassword, "seed-password", "", "Password of the seeded user (or WYDELY_PASSWORD)")
	return cmd
}

func listenAndServe(a *app, server *http.Server) error {
	a.logger.Info().Str("addr", server.Addr).Msg("mock backend listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(a *app, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	a.printf("%s\n", myFigure.String())
}
