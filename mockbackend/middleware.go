package mockbackend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the verified access token claims
	ContextKeyClaims ContextKey = "claims"

	headerBusinessID = "X-Wydely-Business-Id"
	headerDeviceID   = "device-id"
)

// ClaimsFromContext returns the claims RequireAuth attached to ctx.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*AccessClaims)
	return claims, ok
}

// requestLogger logs and counts every request once the route is known.
func (b *Backend) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		b.metrics.request(route, ww.Status())
		b.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Str("device_id", r.Header.Get(headerDeviceID)).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requireDevice rejects requests without device identification.
func (b *Backend) requireDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerDeviceID) == "" {
			renderError(w, http.StatusBadRequest, "Missing device identification")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the bearer token, the live session behind it and
// that the business header matches the token.
func (b *Backend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			renderError(w, http.StatusUnauthorized, "Please log in to continue")
			return
		}

		claims, err := b.tokens.parse(parts[1])
		if err != nil {
			msg := "Invalid session, please log in again"
			if apperrors.Is(err, apperrors.ErrTokenExpired) {
				msg = "Your session has expired, please log in again"
			}
			b.logger.Debug().Err(err).Msg("rejected access token")
			renderError(w, http.StatusUnauthorized, msg)
			return
		}
		if !b.sessionActive(claims.SessionID) {
			renderError(w, http.StatusUnauthorized, "Your session has ended, please log in again")
			return
		}
		if r.Header.Get(headerBusinessID) != claims.BusinessID {
			renderError(w, http.StatusForbidden, apperrors.ErrTenantMismatch.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
