package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Wydely client
var (
	// Storage errors
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCorruptValue       = errors.New("corrupt stored value")

	// Session errors
	ErrInvalidExpiry = errors.New("invalid access token expiry")
	ErrNoSession     = errors.New("no active session")

	// Token errors
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTenantMismatch = errors.New("business id does not match token")

	// API errors
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUserExists         = errors.New("user already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Mark attaches a sentinel kind to err while keeping err in the chain.
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
