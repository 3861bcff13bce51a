package apiclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/wydely-client/apiclient"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticCreds struct {
	token      string
	businessID string
	err        error
}

func (c staticCreds) Token() (*oauth2.Token, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}, nil
}

func (c staticCreds) BusinessID() (string, bool) {
	return c.businessID, c.businessID != ""
}

var testDevice = apiclient.DeviceInfo{
	ID:         "dev-1",
	OS:         "linux",
	Type:       "desktop",
	OSVersion:  "12",
	AppVersion: "1.0.0",
	UserAgent:  "wydely-cli/1.0.0",
	Model:      "amd64",
}

// recorder answers every request with body and keeps the last request headers.
type recorder struct {
	mu     sync.Mutex
	header http.Header
	status int
	body   string
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec.mu.Lock()
	rec.header = r.Header.Clone()
	status, body := rec.status, rec.body
	rec.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (rec *recorder) lastHeader() http.Header {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.header
}

func newTestClient(t *testing.T, rec *recorder, creds apiclient.Credentials) *apiclient.Client {
	t.Helper()
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)
	client, err := apiclient.New(server.URL, creds, testDevice)
	require.NoError(t, err)
	return client
}

func TestHeaders(t *testing.T) {
	tests := []struct {
		name       string
		creds      apiclient.Credentials
		wantBearer string
		wantBiz    string
	}{
		{
			name:       "token and business id",
			creds:      staticCreds{token: "tok", businessID: "biz1"},
			wantBearer: "Bearer tok",
			wantBiz:    "biz1",
		},
		{
			name:  "no session",
			creds: staticCreds{err: apperrors.ErrNoSession},
		},
		{
			name:  "token without business id",
			creds: staticCreds{token: "tok"},
		},
		{
			name:  "nil credentials",
			creds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{body: `{"success":true}`}
			client := newTestClient(t, rec, tt.creds)

			_, err := apiclient.Get[struct{}](context.Background(), client, "/ping")
			require.NoError(t, err)

			h := rec.lastHeader()
			assert.Equal(t, tt.wantBearer, h.Get("Authorization"))
			assert.Equal(t, tt.wantBiz, h.Get(apiclient.HeaderBusinessID))
			assert.Equal(t, "dev-1", h.Get("device-id"))
			assert.Equal(t, "linux", h.Get("device-os"))
			assert.Equal(t, "desktop", h.Get("device-type"))
			assert.Equal(t, "12", h.Get("device-os-version"))
			assert.Equal(t, "1.0.0", h.Get("device-app-version"))
			assert.Equal(t, "wydely-cli/1.0.0", h.Get("device-user-agent"))
			assert.Equal(t, "amd64", h.Get("device-model"))
		})
	}
}

func TestResponseNormalization(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name        string
		status      int
		body        string
		wantSuccess bool
		wantData    item
		wantError   string
		wantErr     error
	}{
		{
			name:        "success with data",
			body:        `{"success":true,"data":{"name":"a"}}`,
			wantSuccess: true,
			wantData:    item{Name: "a"},
		},
		{
			name:      "error object",
			status:    http.StatusBadRequest,
			body:      `{"success":false,"error":{"displayError":"Email is taken"}}`,
			wantError: "Email is taken",
		},
		{
			name:      "error string",
			status:    http.StatusConflict,
			body:      `{"success":false,"error":"Already exists"}`,
			wantError: "Already exists",
		},
		{
			name:      "success false on 200",
			body:      `{"success":false,"error":{"displayError":"Nope"}}`,
			wantError: "Nope",
		},
		{
			name:      "non envelope failure",
			status:    http.StatusBadGateway,
			body:      `<html>bad gateway</html>`,
			wantError: "Bad Gateway",
		},
		{
			name:      "envelope failure without message",
			status:    http.StatusInternalServerError,
			body:      `{"success":false}`,
			wantError: "Internal Server Error",
		},
		{
			name:    "non envelope success",
			body:    `[1,2,3]`,
			wantErr: apperrors.ErrUnexpectedResponse,
		},
		{
			name:    "data of the wrong shape",
			body:    `{"success":true,"data":"text"}`,
			wantErr: apperrors.ErrUnexpectedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: tt.status, body: tt.body}
			client := newTestClient(t, rec, nil)

			resp, err := apiclient.Get[item](context.Background(), client, "/items/1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, resp.Success)
			assert.Equal(t, tt.wantData, resp.Data)
			assert.Equal(t, tt.wantError, resp.Error)
			if tt.wantSuccess {
				assert.NoError(t, resp.Err())
			} else {
				assert.Error(t, resp.Err())
			}
		})
	}
}

func TestAPIErrorUnauthorized(t *testing.T) {
	rec := &recorder{status: http.StatusUnauthorized, body: `{"success":false,"error":{"displayError":"Please log in"}}`}
	client := newTestClient(t, rec, nil)

	resp, err := apiclient.Get[struct{}](context.Background(), client, "/auth/me")
	require.NoError(t, err)

	apiErr := resp.Err()
	require.ErrorIs(t, apiErr, apperrors.ErrUnauthorized)
	var typed *apiclient.APIError
	require.True(t, errors.As(apiErr, &typed))
	assert.Equal(t, http.StatusUnauthorized, typed.StatusCode)
	assert.Equal(t, "Please log in", typed.DisplayError)
}

func TestPostSendsJSON(t *testing.T) {
	var (
		mu          sync.Mutex
		contentType string
		body        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		mu.Lock()
		contentType = r.Header.Get("Content-Type")
		body = payload
		mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(server.Close)

	client, err := apiclient.New(server.URL+"/api/", nil, testDevice)
	require.NoError(t, err)

	resp, err := apiclient.Post[struct{}](context.Background(), client, "/things", map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"a":"b"}`, string(body))
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := apiclient.New("/just/a/path", nil, testDevice)
	assert.Error(t, err)
}
