package mockbackend

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
)

// ExpiryLayout renders expiries the way the production backend does, without
// a zone designator.
const ExpiryLayout = "2006-01-02T15:04:05.000"

// AccessClaims are carried by mock access tokens.
type AccessClaims struct {
	Email      string `json:"email"`
	BusinessID string `json:"biz"`
	SessionID  string `json:"sid"`
	jwtlib.RegisteredClaims
}

// issuedSession is the material handed to the client after login or OTP.
type issuedSession struct {
	AccessToken          string `json:"accessToken"`
	RefreshToken         string `json:"refreshToken"`
	SessionID            string `json:"sessionId"`
	BusinessID           string `json:"wydelyBusinessId"`
	AccessTokenExpiresAt string `json:"accessTokenExpiresAt"`
	Email                string `json:"email"`
}

// tokenIssuer signs and verifies HS256 access tokens.
type tokenIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	nowTime   func() time.Time
}

func (ti *tokenIssuer) issue(user *User) (issuedSession, error) {
	now := ti.nowTime()
	expiresAt := now.Add(ti.accessTTL)
	sessionID := uuid.New().String()

	claims := AccessClaims{
		Email:      user.Email,
		BusinessID: user.BusinessID,
		SessionID:  sessionID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return issuedSession{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return issuedSession{
		AccessToken:          signed,
		RefreshToken:         uuid.New().String(),
		SessionID:            sessionID,
		BusinessID:           user.BusinessID,
		AccessTokenExpiresAt: expiresAt.UTC().Format(ExpiryLayout),
		Email:                user.Email,
	}, nil
}

func (ti *tokenIssuer) parse(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims,
		func(t *jwtlib.Token) (any, error) {
			return ti.secret, nil
		},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(ti.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(ti.nowTime),
	)
	if err != nil {
		if apperrors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, apperrors.Mark(err, apperrors.ErrTokenExpired)
		}
		return nil, apperrors.Mark(err, apperrors.ErrInvalidToken)
	}
	return claims, nil
}
