// Package domain holds the quote model and its errors.
// Errors here describe what went wrong for the user, never which device or
// file caused it; the app layer turns them into spoken responses.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("unavailable")

	// ErrEmptyStore is returned when a random quote is requested from an empty store.
	ErrEmptyStore = errors.New("quote store is empty")

	// ErrNoQuoteSpokenYet is returned by LastSaid before any quote has been
	// spoken in this process.
	ErrNoQuoteSpokenYet = errors.New("no quote spoken yet")

	// ErrAborted is returned when the user says the abort phrase during a
	// confirmation dialog.
	ErrAborted = errors.New("aborted by user")

	// ErrDialogExhausted is returned when a confirmation dialog hits its round limit.
	ErrDialogExhausted = errors.New("confirmation rounds exhausted")
)

// NotFoundError names the missing entity. Unwraps to ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports inconsistent state, e.g. a saved snapshot holding
// the same id twice. Unwraps to ErrConflict.
type ConflictError struct {
	Entity  string
	Reason  string
	Details string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}

	return msg
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError creates a ConflictError. details may be empty.
func NewConflictError(entity, reason, details string) error {
	return &ConflictError{Entity: entity, Reason: reason, Details: details}
}

// ValidationError rejects a single field. Unwraps to ErrValidation.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a ValidationError that keeps the
// rejected value, e.g. the transcript that failed to parse as an id.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError reports a collaborator that cannot serve right now: the
// microphone, a speech engine, the storage directory. Unwraps to ErrUnavailable.
type UnavailableError struct {
	Component string
	Reason    string
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return e.Component + " unavailable"
	}

	return fmt.Sprintf("%s unavailable: %s", e.Component, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// NewUnavailableError creates an UnavailableError.
func NewUnavailableError(component, reason string) error {
	return &UnavailableError{Component: component, Reason: reason}
}

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsAborted reports whether the user cancelled a dialog.
func IsAborted(err error) bool { return errors.Is(err, ErrAborted) }
