package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/booking-sync/internal/booking"
)

// CalendarProvider exposes the Google Calendar operations needed by the
// availability and booking services. Calls authenticate with the caller's
// explicit credentials.
type CalendarProvider interface {
	CheckConflicts(ctx context.Context, creds Credentials, start, end time.Time) ([]CalendarConflict, error)
	CreateEvent(ctx context.Context, creds Credentials, title string, start, end time.Time, description string) (string, error)
	DeleteEvent(ctx context.Context, creds Credentials, eventID string) error
}

// AvailabilityService answers whether a time slot is free across the local
// store and the user's Google Calendar.
type AvailabilityService struct {
	bookings BookingRepository
	calendar CalendarProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewAvailabilityService wires dependencies for availability checks.
func NewAvailabilityService(bookings BookingRepository, calendar CalendarProvider, logger *slog.Logger, now func() time.Time) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		bookings: bookings,
		calendar: calendar,
		logger:   defaultLogger(logger),
		now:      now,
	}
}

// CheckAvailability queries local bookings and the Google Calendar
// concurrently and reports every conflicting entry. A provider failure is
// never treated as free time.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, params CheckAvailabilityParams) (AvailabilityResult, error) {
	if s == nil {
		return AvailabilityResult{}, fmt.Errorf("AvailabilityService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "availability", "check_availability", "user_id", params.Principal.UserID)

	if err := validateWindow(params.Start, params.End, s.now()); err != nil {
		logger.Warn("availability check rejected", "error", err, "error_kind", ErrorKind(err))
		return AvailabilityResult{}, err
	}

	local, remote, err := queryConflicts(ctx, s.bookings, s.calendar, params.Principal.UserID, params.Credentials, params.Start, params.End, "")
	if err != nil {
		logger.Error("availability check failed", "error", err, "error_kind", ErrorKind(err))
		return AvailabilityResult{}, err
	}

	result := AvailabilityResult{
		Available:         len(local) == 0 && len(remote) == 0,
		BookingConflicts:  local,
		CalendarConflicts: remote,
	}

	logger.Info("availability check completed",
		"available", result.Available,
		"booking_conflicts", len(local),
		"calendar_conflicts", len(remote))

	return result, nil
}

// queryConflicts runs the local overlap query and the provider conflict query
// in parallel and waits for both before deciding.
func queryConflicts(ctx context.Context, bookings BookingRepository, calendar CalendarProvider, userID string, creds Credentials, start, end time.Time, excludeID string) ([]Booking, []CalendarConflict, error) {
	type localResult struct {
		bookings []Booking
		err      error
	}
	type remoteResult struct {
		conflicts []CalendarConflict
		err       error
	}

	localCh := make(chan localResult, 1)
	remoteCh := make(chan remoteResult, 1)

	go func() {
		overlapping, err := bookings.FindOverlapping(ctx, userID, start, end, excludeID)
		localCh <- localResult{bookings: overlapping, err: err}
	}()
	go func() {
		conflicts, err := calendar.CheckConflicts(ctx, creds, start, end)
		remoteCh <- remoteResult{conflicts: conflicts, err: err}
	}()

	local := <-localCh
	remote := <-remoteCh

	if local.err != nil {
		return nil, nil, mapBookingRepoError(local.err)
	}
	if remote.err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, remote.err)
	}

	return local.bookings, remote.conflicts, nil
}

func validateWindow(start, end, now time.Time) error {
	window := booking.Window{Start: start, End: end}
	if start.IsZero() || end.IsZero() || !window.Valid() {
		return ErrInvalidRange
	}
	if start.Before(now) {
		return ErrPastWindow
	}
	return nil
}
