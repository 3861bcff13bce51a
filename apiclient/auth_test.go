package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/wydely-client/apiclient"
	"github.com/jrsteele09/wydely-client/authstore"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
	"github.com/jrsteele09/wydely-client/kvstore"
	"github.com/jrsteele09/wydely-client/mockbackend"
	"github.com/jrsteele09/wydely-client/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	backend *mockbackend.Backend
	manager *session.Manager
	nav     *session.RouteTracker
	store   *authstore.Store
	client  *apiclient.Client
}

func setupAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	backend, err := mockbackend.New([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	store, err := authstore.New(kvstore.NewMemoryStore())
	require.NoError(t, err)
	nav := session.NewRouteTracker(session.RouteLogin, zerolog.Nop())
	nav.MarkReady()
	manager, err := session.New(store, nav)
	require.NoError(t, err)
	t.Cleanup(manager.Close)
	manager.Start(context.Background())

	client, err := apiclient.New(server.URL, manager, testDevice)
	require.NoError(t, err)

	return &authFixture{backend: backend, manager: manager, nav: nav, store: store, client: client}
}

func TestSignupVerifyAndLogout(t *testing.T) {
	f := setupAuthFixture(t)
	ctx := context.Background()

	challenge, err := f.client.Signup(ctx, apiclient.SignupRequest{
		Name:         "Ada",
		Email:        "ada@example.com",
		Password:     "Secret123",
		BusinessName: "Ada Ltd",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", challenge.Email)
	assert.Positive(t, challenge.ExpiresIn)

	record, err := f.client.VerifyOTP(ctx, apiclient.VerifyOTPRequest{Email: "ada@example.com", OTP: mockbackend.DefaultOTP})
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(record.AccessTokenExpiresAt, "Z"), "backend expiry is bare until stored")

	require.NoError(t, f.manager.SetAuthData(ctx, record))
	stored, ok := f.store.Get(ctx)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(stored.AccessTokenExpiresAt, "Z"))

	profile, err := f.client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada Ltd", profile.BusinessName)
	assert.Equal(t, record.TenantID, profile.BusinessID)

	require.NoError(t, f.client.Logout(ctx))
	require.NoError(t, f.manager.Logout(ctx))
	assert.False(t, f.manager.IsAuthenticated())

	_, err = f.client.Me(ctx)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLoginVerifiedUser(t *testing.T) {
	f := setupAuthFixture(t)
	ctx := context.Background()
	_, err := f.backend.CreateUser("Ada", "ada@example.com", "Secret123", "Ada Ltd", true)
	require.NoError(t, err)

	result, err := f.client.Login(ctx, apiclient.LoginRequest{Email: "ada@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.False(t, result.RequiresOTP)

	record, err := apiclient.RecordFromPayload(result.AuthPayload)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", record.Email)
	assert.NotEmpty(t, record.SessionID)
	assert.NotEmpty(t, record.RefreshToken)
}

func TestLoginUnverifiedUserRequiresOTP(t *testing.T) {
	f := setupAuthFixture(t)
	ctx := context.Background()
	_, err := f.backend.CreateUser("Bob", "bob@example.com", "Secret123", "Bob Co", false)
	require.NoError(t, err)

	result, err := f.client.Login(ctx, apiclient.LoginRequest{Email: "bob@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.True(t, result.RequiresOTP)
	assert.Empty(t, result.AccessToken)
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupAuthFixture(t)
	_, err := f.backend.CreateUser("Ada", "ada@example.com", "Secret123", "Ada Ltd", true)
	require.NoError(t, err)

	_, err = f.client.Login(context.Background(), apiclient.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid email or password", apiErr.DisplayError)
}

func TestRequestValidation(t *testing.T) {
	f := setupAuthFixture(t)
	ctx := context.Background()

	_, err := f.client.Signup(ctx, apiclient.SignupRequest{Email: "not-an-email", Password: "short"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "password is too short")

	_, err = f.client.VerifyOTP(ctx, apiclient.VerifyOTPRequest{Email: "ada@example.com", OTP: "12ab"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.client.Login(ctx, apiclient.LoginRequest{})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestRecordFromPayload(t *testing.T) {
	exp := time.Date(2031, 2, 3, 4, 5, 6, 0, time.UTC)
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		ExpiresAt: jwtlib.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	t.Run("expiry taken from token", func(t *testing.T) {
		record, err := apiclient.RecordFromPayload(apiclient.AuthPayload{AccessToken: token, BusinessID: "biz1"})
		require.NoError(t, err)
		assert.Equal(t, "2031-02-03T04:05:06.000Z", record.AccessTokenExpiresAt)
		assert.Equal(t, "biz1", record.TenantID)
	})

	t.Run("explicit expiry kept", func(t *testing.T) {
		record, err := apiclient.RecordFromPayload(apiclient.AuthPayload{AccessToken: token, AccessTokenExpiresAt: "2099-01-01T00:00:00"})
		require.NoError(t, err)
		assert.Equal(t, "2099-01-01T00:00:00", record.AccessTokenExpiresAt)
	})

	t.Run("opaque token without expiry", func(t *testing.T) {
		_, err := apiclient.RecordFromPayload(apiclient.AuthPayload{AccessToken: "opaque"})
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("no token", func(t *testing.T) {
		_, err := apiclient.RecordFromPayload(apiclient.AuthPayload{})
		assert.Error(t, err)
	})
}
