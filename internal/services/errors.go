package services

import (
	"errors"
	"fmt"
)

// Expected failure outcomes surfaced to the transport layer. Authentication
// and not-found failures are deliberately undifferentiated so that response
// shape leaks nothing about which factor failed or whether a resource exists.
var (
	// ErrDuplicateEmail signals a registration attempt with an email that is
	// already taken.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrAuthenticationFailed covers unknown email and wrong password alike.
	ErrAuthenticationFailed = errors.New("invalid email or password")

	// ErrNotFound covers both a missing resource and one owned by another
	// user.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a caller-correctable problem with a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}
