package apiclient

import (
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// HeaderBusinessID scopes a request to the session's business.
const HeaderBusinessID = "X-Wydely-Business-Id"

// Credentials supplies the session a request is made under.
type Credentials interface {
	oauth2.TokenSource
	BusinessID() (string, bool)
}

var _ http.RoundTripper = (*authTransport)(nil)

// authTransport stamps device headers on every request and the bearer token and
// business id when the session has both.
type authTransport struct {
	base   http.RoundTripper
	creds  Credentials
	device DeviceInfo
	logger zerolog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	t.device.apply(req.Header)

	if t.creds != nil {
		token, err := t.creds.Token()
		businessID, ok := t.creds.BusinessID()
		if err == nil && ok && token.AccessToken != "" && businessID != "" {
			token.SetAuthHeader(req)
			req.Header.Set(HeaderBusinessID, businessID)
		} else {
			t.logger.Debug().Str("path", req.URL.Path).Msg("sending request without session")
		}
	}
	return t.base.RoundTrip(req)
}
