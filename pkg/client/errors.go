package client

import (
	"errors"
	"fmt"
)

// AuthError is a failed login, registration, or session check.
// The caller treats it as "not authenticated", never as fatal.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// RequestError is any other non-2xx response from the API.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsAuthError returns true if err (or any wrapped error) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsStatus returns true if err (or any wrapped error) carries the given
// HTTP status code.
func IsStatus(err error, code int) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode == code
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == code
	}
	return false
}
