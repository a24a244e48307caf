package errors

import (
	"errors"
	"fmt"
)

// Common error types for the HR admin client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbiddenRole      = errors.New("role is not allowed to use the admin dashboard")
	ErrUnauthorized       = errors.New("unauthorized")

	// Session errors
	ErrNoSession        = errors.New("no session")
	ErrIncompleteRecord = errors.New("auth record requires both user and session")
	ErrCorruptRecord    = errors.New("corrupt auth record")
	ErrSessionEnded     = errors.New("session ended during token refresh")
	ErrWatchUnsupported = errors.New("storage does not support change watching")

	// Token errors
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrRefreshFailed  = errors.New("token refresh failed")

	// API errors
	ErrUnsuccessful    = errors.New("api reported failure")
	ErrInvalidResponse = errors.New("invalid api response")
	ErrInvalidRequest  = errors.New("invalid request")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
