package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found or expired")
	ErrForbidden          = errors.New("forbidden")
	ErrFull               = errors.New("session is full")
	ErrAlreadyMember      = errors.New("participant already joined")
	ErrNotMember          = errors.New("participant is not a member")
	ErrOwnerCannotLeave   = errors.New("owner cannot leave, close the session instead")
	ErrClosed             = errors.New("session is closed")
	ErrConflict           = errors.New("session id already in use")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

type notFoundError struct {
	EntityType string
	ID         string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.EntityType, e.ID)
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NewNotFoundError(entityType string, id string) error {
	return &notFoundError{
		EntityType: entityType,
		ID:         id,
	}
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidationError reports malformed or missing input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// CoolingDownError is returned when a scope is still gated by its cooldown.
type CoolingDownError struct {
	ScopeID   string
	Remaining time.Duration
}

func (e *CoolingDownError) Error() string {
	return fmt.Sprintf("scope %s is cooling down for %s", e.ScopeID, e.Remaining.Round(time.Second))
}

type backendError struct {
	Op  string
	Err error
}

func (e *backendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrBackendUnavailable.Error(), e.Err)
}

func (e *backendError) Unwrap() []error {
	return []error{ErrBackendUnavailable, e.Err}
}

// NewBackendError marks err as a storage or network fault, safe to retry.
func NewBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return &backendError{Op: op, Err: err}
}

func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
