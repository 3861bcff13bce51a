package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/wydely-client/apiclient"
	"github.com/jrsteele09/wydely-client/authstore"
	"github.com/jrsteele09/wydely-client/internal/config"
	"github.com/jrsteele09/wydely-client/kvstore"
	"github.com/jrsteele09/wydely-client/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app wires the session stack for one command invocation.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	out      io.Writer
	registry *prometheus.Registry
	kv       kvstore.Store
	store    *authstore.Store
	nav      *session.RouteTracker
	manager  *session.Manager
	client   *apiclient.Client
}

type appKey struct{}

func withApp(cmd *cobra.Command, a *app) {
	cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func newApp(cfg config.Config, logger zerolog.Logger, out io.Writer) *app {
	return &app{cfg: cfg, logger: logger, out: out, registry: prometheus.NewRegistry()}
}

// openStore opens the persistent key value store, sealed when a key is configured.
func (a *app) openStore() (kvstore.Store, error) {
	if a.kv != nil {
		return a.kv, nil
	}
	fs, err := kvstore.NewFileStore(a.cfg.GetDataFolder())
	if err != nil {
		return nil, err
	}
	a.kv = fs
	if hexKey := a.cfg.GetEncryptionKey(); hexKey != "" {
		key, err := kvstore.ParseKey(hexKey)
		if err != nil {
			return nil, err
		}
		sealed, err := kvstore.NewSealedStore(fs, key)
		if err != nil {
			return nil, err
		}
		a.kv = sealed
	}
	return a.kv, nil
}

// startSession restores the stored session with the navigator on route. The
// navigator is ready immediately: a CLI has no mount phase.
func (a *app) startSession(ctx context.Context, route string, options ...session.Option) error {
	kv, err := a.openStore()
	if err != nil {
		return err
	}
	a.store, err = authstore.New(kv, authstore.WithLogger(a.logger))
	if err != nil {
		return err
	}

	a.nav = session.NewRouteTracker(route, a.logger)
	a.nav.MarkReady()

	options = append([]session.Option{
		session.WithLogger(a.logger),
		session.WithMetrics(session.NewMetrics(a.registry)),
		session.WithSweepInterval(a.cfg.GetSweepInterval()),
	}, options...)
	a.manager, err = session.New(a.store, a.nav, options...)
	if err != nil {
		return err
	}
	a.manager.Start(ctx)

	device, err := apiclient.DetectDevice(ctx, kv, a.cfg.GetAppVersion())
	if err != nil {
		return err
	}
	a.client, err = apiclient.New(a.cfg.GetAPIBaseURL(), a.manager, device,
		apiclient.WithLogger(a.logger),
		apiclient.WithTimeout(a.cfg.GetRequestTimeout()),
	)
	return err
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}
}

// requireSession fails when startup sent the user back to login.
func (a *app) requireSession() error {
	if !a.manager.IsAuthenticated() {
		return fmt.Errorf("not logged in, run `wydely login` first")
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func passwordFrom(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return config.GetEnv("WYDELY_PASSWORD", "")
}
