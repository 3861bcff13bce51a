// Package mockbackend is an in-process stand-in for the Wydely auth API. It
// backs the client tests and the CLI's mock-server command.
//
// Users sign up, confirm a one-time code and receive HS256 access tokens.
// Expiries are rendered without a zone designator, like the real backend.
package mockbackend

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	DefaultOTP        = "123456"
	DefaultAccessTTL  = 15 * time.Minute
	DefaultOTPTTL     = 5 * time.Minute
	defaultIssuer     = "wydely-mock"
	otpAttemptsPerMin = 5
)

// Backend holds the mock API state.
type Backend struct {
	users   UserRepo
	tokens  *tokenIssuer
	logger  zerolog.Logger
	metrics *metrics
	gather  prometheus.Gatherer
	otpCode string
	otpTTL  time.Duration
	origins []string
	nowTime func() time.Time

	lock     sync.Mutex
	otps     map[string]pendingOTP // email to outstanding code
	sessions map[string]bool       // session id to active
}

type pendingOTP struct {
	code      string
	expiresAt time.Time
}

// Option defines a function type to modify the Backend instance.
type Option func(*Backend)

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithNowFunc sets the clock used for token and OTP expiry.
func WithNowFunc(now func() time.Time) Option {
	return func(b *Backend) {
		b.nowTime = now
	}
}

func WithAccessTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.tokens.accessTTL = ttl
	}
}

// WithOTP sets the code every OTP challenge expects.
func WithOTP(code string) Option {
	return func(b *Backend) {
		b.otpCode = code
	}
}

// WithRegistry registers the backend's metrics with reg and serves them on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(b *Backend) {
		b.metrics = newMetrics(reg)
		b.gather = reg
	}
}

// WithAllowedOrigins enables CORS for browser front ends.
func WithAllowedOrigins(origins ...string) Option {
	return func(b *Backend) {
		b.origins = origins
	}
}

// New creates a Backend signing tokens with secret.
func New(secret []byte, options ...Option) (*Backend, error) {
	if len(secret) < 32 {
		return nil, errors.New("[mockbackend.New] secret must be at least 32 bytes")
	}

	b := &Backend{
		users:    newMemoryUserRepo(),
		logger:   zerolog.Nop(),
		otpCode:  DefaultOTP,
		otpTTL:   DefaultOTPTTL,
		nowTime:  time.Now,
		otps:     make(map[string]pendingOTP),
		sessions: make(map[string]bool),
		tokens: &tokenIssuer{
			secret:    secret,
			issuer:    defaultIssuer,
			accessTTL: DefaultAccessTTL,
		},
	}
	for _, opt := range options {
		opt(b)
	}
	if b.metrics == nil {
		WithRegistry(prometheus.NewRegistry())(b)
	}
	b.tokens.nowTime = b.nowTime
	return b, nil
}

// Handler returns the routed API.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(b.requestLogger)

	if len(b.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: b.origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept", "Authorization", "Content-Type", headerBusinessID,
				"device-id", "device-os", "device-type", "device-os-version",
				"device-app-version", "device-user-agent", "device-model",
			},
			MaxAge: int((10 * time.Minute).Seconds()),
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(b.gather, promhttp.HandlerOpts{}))

	r.Route("/auth", func(r chi.Router) {
		r.Use(b.requireDevice)
		r.Post("/signup", b.handleSignup)
		r.Post("/login", b.handleLogin)
		r.With(httprate.LimitByIP(otpAttemptsPerMin, time.Minute)).Post("/verify-otp", b.handleVerifyOTP)

		r.Group(func(r chi.Router) {
			r.Use(b.requireAuth)
			r.Get("/me", b.handleMe)
			r.Post("/logout", b.handleLogout)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		renderError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// CreateUser seeds an account directly, bypassing signup.
func (b *Backend) CreateUser(name, email, password, businessName string, verified bool) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Backend.CreateUser] hash password")
	}
	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		BusinessName: businessName,
		Verified:     verified,
		DateJoined:   b.nowTime(),
	}
	if err := b.users.Create(user); err != nil {
		return nil, errors.Wrap(err, "[Backend.CreateUser]")
	}
	return user, nil
}

func (b *Backend) startSession(user *User) (issuedSession, error) {
	issued, err := b.tokens.issue(user)
	if err != nil {
		return issuedSession{}, err
	}
	b.lock.Lock()
	b.sessions[issued.SessionID] = true
	b.lock.Unlock()
	return issued, nil
}

func (b *Backend) endSession(sessionID string) {
	b.lock.Lock()
	delete(b.sessions, sessionID)
	b.lock.Unlock()
}

func (b *Backend) sessionActive(sessionID string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.sessions[sessionID]
}

func (b *Backend) sendOTP(email string) time.Duration {
	b.lock.Lock()
	b.otps[normalizeEmail(email)] = pendingOTP{code: b.otpCode, expiresAt: b.nowTime().Add(b.otpTTL)}
	b.lock.Unlock()
	b.metrics.otpSent.Inc()
	b.logger.Info().Str("email", email).Str("otp", b.otpCode).Msg("one-time code issued")
	return b.otpTTL
}

// consumeOTP checks code against the outstanding challenge and removes it on success.
func (b *Backend) consumeOTP(email, code string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	key := normalizeEmail(email)
	pending, ok := b.otps[key]
	if !ok || !b.nowTime().Before(pending.expiresAt) || pending.code != code {
		return false
	}
	delete(b.otps, key)
	return true
}
