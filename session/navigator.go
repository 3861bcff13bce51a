package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// Route names the manager knows about.
const (
	RouteLogin          = "Login"
	RouteSignup         = "Signup"
	RouteVerifyOTP      = "VerifyOTP"
	RouteForgotPassword = "ForgotPassword"
	RouteHome           = "Home"
)

// DefaultPublicRoutes are the screens a signed out user may stay on.
var DefaultPublicRoutes = []string{RouteLogin, RouteSignup, RouteVerifyOTP, RouteForgotPassword}

// Navigator is the navigation layer the manager redirects through.
type Navigator interface {
	// Ready is closed once the navigation layer can accept navigation
	Ready() <-chan struct{}

	// CurrentRoute returns the name of the visible screen
	CurrentRoute() string

	// ResetTo replaces the navigation stack with route
	ResetTo(route string) error
}

var _ Navigator = (*RouteTracker)(nil)

// RouteTracker is an in-process Navigator. It is what the CLI drives and what
// tests assert redirects against.
type RouteTracker struct {
	mu        sync.Mutex
	current   string
	history   []string
	ready     chan struct{}
	readyOnce sync.Once
	logger    zerolog.Logger
}

func NewRouteTracker(initial string, logger zerolog.Logger) *RouteTracker {
	return &RouteTracker{
		current: initial,
		ready:   make(chan struct{}),
		logger:  logger,
	}
}

func (rt *RouteTracker) Ready() <-chan struct{} {
	return rt.ready
}

// MarkReady signals readiness. Later calls are no-ops.
func (rt *RouteTracker) MarkReady() {
	rt.readyOnce.Do(func() {
		close(rt.ready)
	})
}

func (rt *RouteTracker) CurrentRoute() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.current
}

// Navigate moves to route without recording a reset.
func (rt *RouteTracker) Navigate(route string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.current = route
}

func (rt *RouteTracker) ResetTo(route string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.logger.Debug().Str("from", rt.current).Str("to", route).Msg("navigation reset")
	rt.current = route
	rt.history = append(rt.history, route)
	return nil
}

// Resets returns every route ResetTo was called with, oldest first.
func (rt *RouteTracker) Resets() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.history...)
}
