package rentledger

import (
	"errors"
	"fmt"

	"github.com/nhatro/rentledger/lock"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("rentledger: not found")
	ErrAlreadyExists = errors.New("rentledger: already exists")
	ErrInvalidInput  = errors.New("rentledger: invalid input")
	ErrForbidden     = errors.New("rentledger: forbidden")

	// Room errors
	ErrRoomNotFound = errors.New("rentledger: room not found")
	ErrRoomVacant   = errors.New("rentledger: room is vacant")
	ErrRoomOccupied = errors.New("rentledger: room is occupied")

	// Ledger errors
	ErrRecordNotFound = errors.New("rentledger: usage record not found")
	ErrTenantNotFound = errors.New("rentledger: tenant not found")

	// User errors
	ErrUserNotFound       = errors.New("rentledger: user not found")
	ErrInvalidCredentials = errors.New("rentledger: invalid credentials")

	// Store errors
	ErrStoreClosed = errors.New("rentledger: store is closed")

	// ErrLockNotObtained is returned when a room's mutation lock could not be
	// acquired in time.
	ErrLockNotObtained = lock.ErrNotObtained
)

// ValidationError reports malformed or out-of-order input. The operation
// that returned it left all state untouched.
type ValidationError struct {
	Field   string
	Message string

	// Err optionally names a more specific sentinel (e.g. ErrRoomVacant).
	Err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rentledger: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput and the optional cause.
func (e ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a reference to an entity that does not exist, such
// as a stale record ID after a deletion.
type NotFoundError struct {
	Resource string // "room", "record", "tenant", "user"
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("rentledger: %s %s not found", e.Resource, e.ID)
}

// Unwrap lets errors.Is match ErrNotFound and the resource-specific sentinel.
func (e NotFoundError) Unwrap() []error {
	switch e.Resource {
	case "room":
		return []error{ErrNotFound, ErrRoomNotFound}
	case "record":
		return []error{ErrNotFound, ErrRecordNotFound}
	case "tenant":
		return []error{ErrNotFound, ErrTenantNotFound}
	case "user":
		return []error{ErrNotFound, ErrUserNotFound}
	}
	return []error{ErrNotFound}
}

func notFound(resource string, id fmt.Stringer) error {
	return NotFoundError{Resource: resource, ID: id.String()}
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "rentledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("rentledger: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrorOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsValidation returns true if the error is a validation failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput)
}
