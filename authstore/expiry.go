package authstore

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
)

// ExpirySkew is subtracted from every expiry before it is compared with now.
// It absorbs clock drift and the latency of requests already in flight.
const ExpirySkew = 30 * time.Second

// utcLayout matches what JavaScript's Date.toISOString produces.
const utcLayout = "2006-01-02T15:04:05.000Z"

var (
	offsetSuffix = regexp.MustCompile(`[+-]\d{2}:\d{2}$`)

	expiryLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02Z07:00",
	}
)

// withZone appends "Z" to timestamps that carry no zone designator. Bare
// timestamps from the backend are UTC.
func withZone(raw string) string {
	if strings.HasSuffix(raw, "Z") || offsetSuffix.MatchString(raw) {
		return raw
	}
	return raw + "Z"
}

// ParseExpiry parses an expiry timestamp using the storage boundary rule.
func ParseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty expiry: %w", ErrInvalidExpiry)
	}
	zoned := withZone(raw)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, zoned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable expiry %q: %w", raw, ErrInvalidExpiry)
}

// NormalizeExpiry returns the form an expiry is stored in: bare timestamps get a
// "Z" suffix, offset timestamps are converted to UTC.
func NormalizeExpiry(raw string) (string, error) {
	t, err := ParseExpiry(raw)
	if err != nil {
		return "", err
	}
	// a full Z timestamp is kept as written; anything shorter is re-rendered
	zoned := withZone(strings.TrimSpace(raw))
	if strings.HasSuffix(zoned, "Z") {
		if _, err := time.Parse(time.RFC3339Nano, zoned); err == nil {
			return zoned, nil
		}
	}
	return t.UTC().Format(utcLayout), nil
}

// IsTokenExpired reports whether expiresAt is within ExpirySkew of now or past it.
// Unparseable values count as expired.
func IsTokenExpired(expiresAt string) bool {
	return IsTokenExpiredAt(expiresAt, time.Now())
}

// IsTokenExpiredAt is IsTokenExpired against an explicit clock.
func IsTokenExpiredAt(expiresAt string, now time.Time) bool {
	t, err := ParseExpiry(expiresAt)
	if err != nil {
		return true
	}
	return !now.Before(t.Add(-ExpirySkew))
}

// ExpiryFromJWT reads the exp claim of an access token without verifying its
// signature. The client can't verify it and only needs to know when to stop
// sending it.
func ExpiryFromJWT(accessToken string) (string, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return "", apperrors.Wrapf(apperrors.ErrInvalidToken, "[ExpiryFromJWT] %v", err)
	}
	if claims.ExpiresAt == nil {
		return "", fmt.Errorf("[ExpiryFromJWT] no exp claim: %w", ErrInvalidExpiry)
	}
	return claims.ExpiresAt.UTC().Format(utcLayout), nil
}
