package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Event errors
	ErrEventNotFound = errors.New("event not found")

	// Certificate errors
	ErrCertificateRequestNotFound = errors.New("certificate request not found")

	// File errors
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFileType = errors.New("file type not allowed")
	ErrFileTooLarge    = errors.New("file too large")

	// Wizard errors
	ErrSessionNotFound = errors.New("wizard session not found")

	// General errors
	ErrUnauthenticated = errors.New("authentication required")

	// ErrStateConflict is returned by stores when a conditional update found
	// the row in another state than expected.
	ErrStateConflict = errors.New("record state changed concurrently")
)

// FieldError names one failed rule and the message shown to the user.
type FieldError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError is returned when input is missing or out of range. No state
// has been changed when it is returned.
type ValidationError struct {
	Failures []FieldError `json:"failures"`
}

func NewValidationError(rule, message string) *ValidationError {
	return &ValidationError{Failures: []FieldError{{Rule: rule, Message: message}}}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether the named rule is among the failures.
func (e *ValidationError) Has(rule string) bool {
	for _, f := range e.Failures {
		if f.Rule == rule {
			return true
		}
	}
	return false
}

type AuthorizationError struct {
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("access denied: %s: %s", e.Action, e.Reason)
}

// StatePreconditionError is returned when a record is not in the state an
// action requires.
type StatePreconditionError struct {
	Entity  string
	ID      string
	Current string
	Action  string
}

func (e *StatePreconditionError) Error() string {
	return fmt.Sprintf("%s %s: action %q not allowed in state %q", e.Entity, e.ID, e.Action, e.Current)
}

// CollaboratorError wraps a failure of an external dependency (store, blob
// store, notifier).
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
