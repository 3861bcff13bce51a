package apiclient

import (
	"context"

	"github.com/jrsteele09/wydely-client/authstore"
	"github.com/pkg/errors"
)

const (
	PathSignup    = "/auth/signup"
	PathLogin     = "/auth/login"
	PathVerifyOTP = "/auth/verify-otp"
	PathMe        = "/auth/me"
	PathLogout    = "/auth/logout"
)

type SignupRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	BusinessName string `json:"businessName" validate:"required"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// OTPChallenge is returned when the backend has sent a one-time code.
type OTPChallenge struct {
	Email     string `json:"email"`
	Message   string `json:"message,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"` // seconds
}

// AuthPayload is the session material issued on login or OTP verification.
type AuthPayload struct {
	AccessToken          string `json:"accessToken"`
	RefreshToken         string `json:"refreshToken"`
	SessionID            string `json:"sessionId"`
	BusinessID           string `json:"wydelyBusinessId"`
	AccessTokenExpiresAt string `json:"accessTokenExpiresAt,omitempty"`
	Email                string `json:"email"`
}

// LoginResult either carries a session or asks for OTP verification.
type LoginResult struct {
	RequiresOTP bool   `json:"requiresOtp"`
	Message     string `json:"message,omitempty"`
	AuthPayload
}

type Profile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	BusinessID   string `json:"wydelyBusinessId"`
	BusinessName string `json:"businessName"`
}

// RecordFromPayload builds the record to hand to the session manager. A
// payload without an expiry takes it from the access token's exp claim.
func RecordFromPayload(p AuthPayload) (authstore.AuthRecord, error) {
	if p.AccessToken == "" {
		return authstore.AuthRecord{}, errors.New("[RecordFromPayload] payload has no access token")
	}
	expiresAt := p.AccessTokenExpiresAt
	if expiresAt == "" {
		exp, err := authstore.ExpiryFromJWT(p.AccessToken)
		if err != nil {
			return authstore.AuthRecord{}, errors.Wrap(err, "[RecordFromPayload] expiry")
		}
		expiresAt = exp
	}
	return authstore.AuthRecord{
		AccessToken:          p.AccessToken,
		RefreshToken:         p.RefreshToken,
		SessionID:            p.SessionID,
		TenantID:             p.BusinessID,
		AccessTokenExpiresAt: expiresAt,
		Email:                p.Email,
	}, nil
}

// Signup registers a user and business; the backend answers with an OTP challenge.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (OTPChallenge, error) {
	if err := Validate(req); err != nil {
		return OTPChallenge{}, errors.Wrap(err, "[Client.Signup]")
	}
	resp, err := Post[OTPChallenge](ctx, c, PathSignup, req)
	if err != nil {
		return OTPChallenge{}, errors.Wrap(err, "[Client.Signup]")
	}
	if err := resp.Err(); err != nil {
		return OTPChallenge{}, err
	}
	return resp.Data, nil
}

// Login checks credentials. When the result does not require OTP, its
// AuthPayload holds the new session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if err := Validate(req); err != nil {
		return LoginResult{}, errors.Wrap(err, "[Client.Login]")
	}
	resp, err := Post[LoginResult](ctx, c, PathLogin, req)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "[Client.Login]")
	}
	if err := resp.Err(); err != nil {
		return LoginResult{}, err
	}
	return resp.Data, nil
}

// VerifyOTP exchanges a one-time code for a session record.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (authstore.AuthRecord, error) {
	if err := Validate(req); err != nil {
		return authstore.AuthRecord{}, errors.Wrap(err, "[Client.VerifyOTP]")
	}
	resp, err := Post[AuthPayload](ctx, c, PathVerifyOTP, req)
	if err != nil {
		return authstore.AuthRecord{}, errors.Wrap(err, "[Client.VerifyOTP]")
	}
	if err := resp.Err(); err != nil {
		return authstore.AuthRecord{}, err
	}
	return RecordFromPayload(resp.Data)
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	resp, err := Get[Profile](ctx, c, PathMe)
	if err != nil {
		return Profile{}, errors.Wrap(err, "[Client.Me]")
	}
	if err := resp.Err(); err != nil {
		return Profile{}, err
	}
	return resp.Data, nil
}

// Logout ends the session on the backend. Local state is the session
// manager's concern.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := Post[struct{}](ctx, c, PathLogout, nil)
	if err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return resp.Err()
}
