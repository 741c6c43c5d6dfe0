// Package service implements the application use cases.  Each exported
// method is one action invoked by an HTTP handler or a CLI command; it
// validates input, checks ownership, runs repository calls (inside a
// transaction when more than one row changes) and emits notifications.
package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCredentials is returned by Login for an unknown email, a
// wrong password or an inactive account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when a refresh token is unknown, expired or
// revoked.
var ErrInvalidToken = errors.New("invalid or expired refresh token")

// ValidationError carries one message per invalid input field.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// validator accumulates field messages.
type validator struct{ msgs []string }

func (v *validator) check(ok bool, format string, args ...any) {
	if !ok {
		v.msgs = append(v.msgs, fmt.Sprintf(format, args...))
	}
}

// err returns nil or a *ValidationError with every collected message.
func (v *validator) err() error {
	if len(v.msgs) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.msgs}
}

// trimmed returns the trimmed value of an optional string, mapping blank
// strings to nil.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
