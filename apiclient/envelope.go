package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
)

const maxBodyBytes = 1 << 20

// Response is the normalized form of every backend reply.
type Response[T any] struct {
	Success    bool
	Data       T
	Error      string // user displayable message when !Success
	StatusCode int
}

// Err returns an *APIError for unsuccessful responses.
func (r Response[T]) Err() error {
	if r.Success {
		return nil
	}
	return &APIError{StatusCode: r.StatusCode, DisplayError: r.Error}
}

// APIError is a backend reported failure.
type APIError struct {
	StatusCode   int
	DisplayError string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.DisplayError)
}

// Unwrap maps auth failures to ErrUnauthorized so callers can errors.Is them.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// envelope is the wire shape: {success, data?, error?}.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   envelopeError   `json:"error"`
}

// envelopeError accepts both {"displayError": "..."} and a bare string.
type envelopeError struct {
	DisplayError string
}

func (e *envelopeError) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &e.DisplayError)
	}
	var obj struct {
		DisplayError string `json:"displayError"`
		Message      string `json:"message"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	e.DisplayError = obj.DisplayError
	if e.DisplayError == "" {
		e.DisplayError = obj.Message
	}
	return nil
}

// decodeResponse normalizes resp into a Response. Only a successful reply whose
// body can't be read as an envelope is an error; failures become !Success.
func decodeResponse[T any](resp *http.Response) (Response[T], error) {
	out := Response[T]{StatusCode: resp.StatusCode}
	ok2xx := resp.StatusCode >= 200 && resp.StatusCode < 300

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return out, fmt.Errorf("[decodeResponse] read body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Success == nil {
		if ok2xx {
			return out, apperrors.Wrapf(apperrors.ErrUnexpectedResponse, "[decodeResponse] status %d", resp.StatusCode)
		}
		out.Error = statusMessage(resp.StatusCode)
		return out, nil
	}

	out.Success = *env.Success && ok2xx
	if !out.Success {
		out.Error = env.Error.DisplayError
		if out.Error == "" {
			out.Error = statusMessage(resp.StatusCode)
		}
		return out, nil
	}

	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &out.Data); err != nil {
			return out, apperrors.Wrapf(apperrors.ErrUnexpectedResponse, "[decodeResponse] data: %v", err)
		}
	}
	return out, nil
}

func statusMessage(code int) string {
	if text := http.StatusText(code); text != "" && code >= 400 {
		return text
	}
	return "Something went wrong, please try again"
}
