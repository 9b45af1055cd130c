// Package apperr centralizes the error kinds shared by the ledger, the
// conversation engine and the transport. Specific errors wrap a kind so that
// callers can branch with errors.Is on either.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrValidation covers bad user input. The dialog stays where it is.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an unknown split or expense id.
	ErrNotFound = errors.New("not found")

	// ErrStorage indicates the backing store failed or returned a malformed row.
	ErrStorage = errors.New("storage failure")

	// ErrTransport indicates the messaging transport failed to deliver.
	ErrTransport = errors.New("transport failure")

	// ErrAlreadyRegistered is informational: the username is already known.
	ErrAlreadyRegistered = errors.New("already registered")
)

// Validation errors.
var (
	ErrEmptyUsername      = fmt.Errorf("%w: username is empty", ErrValidation)
	ErrEmptySelection     = fmt.Errorf("%w: no participants selected", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	ErrUnknownParticipant = fmt.Errorf("%w: participant is not selectable", ErrValidation)
	ErrWrongState         = fmt.Errorf("%w: action not allowed in current step", ErrValidation)
)

// Storage wraps err as a storage failure with context.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Transport wraps err as a transport failure with context.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// NotFound builds a not-found error for the given entity and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStorage reports whether err is a storage failure.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }
