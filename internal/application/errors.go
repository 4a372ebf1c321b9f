package application

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a requested window has start >= end.
	ErrInvalidRange = errors.New("application: start must be before end")
	// ErrPastWindow is returned when a requested window starts in the past.
	ErrPastWindow = errors.New("application: cannot book a time slot in the past")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the acting user does not own the resource.
	ErrForbidden = errors.New("application: forbidden")
	// ErrConflict is returned when a requested window collides with an
	// existing booking or calendar event.
	ErrConflict = errors.New("application: booking conflict")
	// ErrProviderUnavailable is returned when Google Calendar cannot be
	// reached or answers with a transient failure. Availability checks fail
	// closed with this error rather than treating an outage as free time.
	ErrProviderUnavailable = errors.New("application: calendar provider unavailable")
	// ErrPreconditionFailed is returned when an operation needs a stored
	// Google refresh token and none exists for the user.
	ErrPreconditionFailed = errors.New("application: google refresh token not stored")
)

// ConflictSource identifies which conflict source rejected a booking.
type ConflictSource string

const (
	// ConflictSourceLocal means an existing local booking collides.
	ConflictSourceLocal ConflictSource = "local"
	// ConflictSourceCalendar means a Google Calendar event collides.
	ConflictSourceCalendar ConflictSource = "calendar"
)

// ConflictError reports the first colliding entry found during booking
// creation. It unwraps to ErrConflict so callers can match with errors.Is.
type ConflictError struct {
	Source ConflictSource
	Title  string
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ErrConflict.Error()
	}
	switch c.Source {
	case ConflictSourceCalendar:
		return fmt.Sprintf("booking conflicts with Google Calendar event: %q", c.Title)
	default:
		return fmt.Sprintf("booking conflicts with existing reservation: %q", c.Title)
	}
}

// Unwrap lets errors.Is(err, ErrConflict) match.
func (c *ConflictError) Unwrap() error {
	return ErrConflict
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
