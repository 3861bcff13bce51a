// Package session holds the process-wide authenticated session of a client.
//
// A Manager is the only component that mutates the stored AuthRecord. Screens
// call SetAuthData, Logout and ClearAuthDataFromStorage; the API client reads
// the token and business id through AccessToken, BusinessID or Token.
//
// While authenticated a background sweep re-checks the token expiry and ends
// the session when it passes. Expiry never surfaces as an error: the session
// is cleared and the navigator is reset to the login route.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/wydely-client/authstore"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// DefaultSweepInterval is how often the expiry sweep runs.
const DefaultSweepInterval = 30 * time.Second

var (
	ErrNoSession = apperrors.ErrNoSession
)

// Manager owns the in-memory session and writes it through to storage.
type Manager struct {
	store         *authstore.Store
	nav           Navigator
	logger        zerolog.Logger
	metrics       *Metrics
	sweepInterval time.Duration
	loginRoute    string
	publicRoutes  map[string]struct{}
	listeners     []func(State)

	// mutate serializes writers across their storage I/O
	mutate sync.Mutex

	mu        sync.RWMutex
	state     State
	record    *authstore.AuthRecord
	stopSweep context.CancelFunc

	lifecycle context.Context // cancelled by Close
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithSweepInterval sets how often the expiry sweep runs
func WithSweepInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.sweepInterval = interval
		}
	}
}

// WithPublicRoutes replaces DefaultPublicRoutes.
func WithPublicRoutes(routes ...string) Option {
	return func(m *Manager) {
		m.publicRoutes = make(map[string]struct{}, len(routes))
		for _, r := range routes {
			m.publicRoutes[r] = struct{}{}
		}
	}
}

func WithLoginRoute(route string) Option {
	return func(m *Manager) {
		m.loginRoute = route
	}
}

// WithStateListener registers fn to be called after every state change.
// Listeners run on the goroutine that caused the change and must not block
// or call back into SetAuthData, Logout or ClearAuthDataFromStorage.
func WithStateListener(fn func(State)) Option {
	return func(m *Manager) {
		m.listeners = append(m.listeners, fn)
	}
}

// New creates a Manager in StateLoading. Call Start to restore a stored session.
func New(store *authstore.Store, nav Navigator, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[session.New] store is required")
	}
	if nav == nil {
		return nil, errors.New("[session.New] navigator is required")
	}

	m := &Manager{
		store:         store,
		nav:           nav,
		logger:        zerolog.Nop(),
		sweepInterval: DefaultSweepInterval,
		loginRoute:    RouteLogin,
		state:         StateLoading,
	}
	WithPublicRoutes(DefaultPublicRoutes...)(m)

	for _, opt := range options {
		opt(m)
	}
	m.lifecycle, m.cancel = context.WithCancel(context.Background())
	return m, nil
}

// Start restores a valid stored session. Without one the manager becomes
// unauthenticated and, unless the current route is public, redirects to login
// once the navigator is ready. Start only acts while the manager is loading.
func (m *Manager) Start(ctx context.Context) {
	m.mutate.Lock()
	if m.State() != StateLoading {
		m.mutate.Unlock()
		return
	}
	record, ok := m.store.GetValid(ctx)

	m.mu.Lock()
	if ok {
		m.record = &record
		m.state = StateAuthenticated
		m.startSweepLocked()
	} else {
		m.state = StateUnauthenticated
	}
	state := m.state
	m.mu.Unlock()

	m.logger.Debug().Str("state", state.String()).Msg("session restored")
	m.changed(state)
	m.mutate.Unlock()

	if state == StateUnauthenticated && !m.isPublic(m.nav.CurrentRoute()) {
		m.redirectToLogin()
	}
}

// SetAuthData stores record and makes it the current session. The storage
// write completes before the in-memory state changes.
func (m *Manager) SetAuthData(ctx context.Context, record authstore.AuthRecord) error {
	m.mutate.Lock()
	defer m.mutate.Unlock()

	saved, err := m.store.Save(ctx, record)
	if err != nil {
		return errors.Wrap(err, "[Manager.SetAuthData] save")
	}

	m.mu.Lock()
	m.record = &saved
	m.state = StateAuthenticated
	m.startSweepLocked()
	m.mu.Unlock()

	m.logger.Info().Str("email", saved.Email).Str("business_id", saved.TenantID).Msg("session established")
	m.changed(StateAuthenticated)
	return nil
}

// Logout ends the session and resets navigation to the login route.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.end(ctx, ReasonUser); err != nil {
		return errors.Wrap(err, "[Manager.Logout]")
	}
	m.redirectToLogin()
	return nil
}

// ClearAuthDataFromStorage ends the session without navigating. Login and
// signup screens call it to discard a stale session before a new attempt.
func (m *Manager) ClearAuthDataFromStorage(ctx context.Context) error {
	if err := m.end(ctx, ReasonDiscard); err != nil {
		return errors.Wrap(err, "[Manager.ClearAuthDataFromStorage]")
	}
	return nil
}

// AccessToken returns the current access token. An expired session is ended
// on the spot and reported as absent.
func (m *Manager) AccessToken() (string, bool) {
	record, ok := m.validRecord(ReasonAccessCheck)
	if !ok {
		return "", false
	}
	return record.AccessToken, true
}

// BusinessID returns the tenant of the current session.
func (m *Manager) BusinessID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil {
		return "", false
	}
	return m.record.TenantID, true
}

// Email returns the principal of the current session or "".
func (m *Manager) Email() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil {
		return ""
	}
	return m.record.Email
}

// Record returns a copy of the current session record.
func (m *Manager) Record() (authstore.AuthRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil {
		return authstore.AuthRecord{}, false
	}
	return *m.record, true
}

// Token implements oauth2.TokenSource over the current session.
func (m *Manager) Token() (*oauth2.Token, error) {
	record, ok := m.validRecord(ReasonAccessCheck)
	if !ok {
		return nil, ErrNoSession
	}
	expiry, err := authstore.ParseExpiry(record.AccessTokenExpiresAt)
	if err != nil {
		m.logger.Warn().Err(err).Str("expires_at", record.AccessTokenExpiresAt).Msg("session expiry unreadable")
		expiry = time.Time{}
	}
	return &oauth2.Token{
		AccessToken:  record.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: record.RefreshToken,
		Expiry:       expiry,
	}, nil
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

func (m *Manager) IsLoading() bool {
	return m.State() == StateLoading
}

// Close stops the expiry sweep and any pending redirect and waits for them.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) end(ctx context.Context, reason string) error {
	m.mutate.Lock()
	defer m.mutate.Unlock()
	return m.endLocked(ctx, reason)
}

// endLocked clears storage first; on failure the in-memory session is left
// intact. The caller holds mutate.
func (m *Manager) endLocked(ctx context.Context, reason string) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.record = nil
	m.state = StateUnauthenticated
	stop := m.stopSweep
	m.stopSweep = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	m.metrics.logout(reason)
	m.logger.Info().Str("reason", reason).Msg("session ended")
	m.changed(StateUnauthenticated)
	return nil
}

// validRecord returns the in-memory record, ending the session if it expired.
func (m *Manager) validRecord(reason string) (authstore.AuthRecord, bool) {
	record, ok := m.Record()
	if !ok {
		return authstore.AuthRecord{}, false
	}
	if !m.store.IsExpired(record) {
		return record, true
	}
	m.expire(record, reason)
	return authstore.AuthRecord{}, false
}

// expire ends the session if record is still the current one. Failures are
// logged, never returned: expiry is an expected lifecycle event.
func (m *Manager) expire(record authstore.AuthRecord, reason string) {
	m.mutate.Lock()
	if !m.isCurrent(record) {
		m.mutate.Unlock()
		return
	}

	m.logger.Info().
		Str("email", record.Email).
		Str("expires_at", record.AccessTokenExpiresAt).
		Str("reason", reason).
		Msg("session expired")
	err := m.endLocked(context.Background(), reason)
	m.mutate.Unlock()
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to clear expired session")
		return
	}
	m.redirectToLogin()
}

func (m *Manager) isCurrent(record authstore.AuthRecord) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record != nil && m.record.SessionID == record.SessionID && m.record.AccessToken == record.AccessToken
}

func (m *Manager) startSweepLocked() {
	if m.stopSweep != nil {
		return
	}
	ctx, cancel := context.WithCancel(m.lifecycle)
	m.stopSweep = cancel
	m.wg.Add(1)
	go m.sweep(ctx)
}

func (m *Manager) sweep(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			record, ok := m.Record()
			if ok && m.store.IsExpired(record) {
				m.expire(record, ReasonSweep)
			}
		}
	}
}

// redirectToLogin resets navigation once the navigator is ready. A teardown
// before readiness drops the redirect.
func (m *Manager) redirectToLogin() {
	select {
	case <-m.nav.Ready():
		m.resetToLogin()
		return
	default:
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-m.nav.Ready():
			m.resetToLogin()
		case <-m.lifecycle.Done():
		}
	}()
}

func (m *Manager) resetToLogin() {
	if err := m.nav.ResetTo(m.loginRoute); err != nil {
		m.logger.Warn().Err(err).Str("route", m.loginRoute).Msg("redirect to login failed")
	}
}

func (m *Manager) isPublic(route string) bool {
	_, ok := m.publicRoutes[route]
	return ok
}

func (m *Manager) changed(state State) {
	m.metrics.transition(state)
	for _, fn := range m.listeners {
		fn(state)
	}
}
