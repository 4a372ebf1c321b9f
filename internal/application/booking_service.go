package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/booking-sync/internal/persistence"
)

// BookingRepository captures the persistence interactions needed by the
// booking and availability services.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	FindOverlapping(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]Booking, error)
	SetCalendarEventID(ctx context.Context, id, eventID string) error
	UpdateBookingWindow(ctx context.Context, id string, start, end time.Time) error
	DeleteBooking(ctx context.Context, id string) error
}

// BookingService orchestrates the create and cancel sagas that keep the local
// store and Google Calendar in step.
type BookingService struct {
	bookings    BookingRepository
	calendar    CalendarProvider
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingRepository, calendar CalendarProvider, logger *slog.Logger, idGenerator func() string, now func() time.Time) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		calendar:    calendar,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreateBooking re-checks both conflict sources at commit time, persists the
// booking, then mirrors it to Google Calendar. If the calendar write fails the
// local record is deleted again so the two stores never diverge.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "booking", "create_booking", "user_id", params.Principal.UserID)

	title := strings.TrimSpace(params.Title)
	if title == "" {
		vErr := &ValidationError{}
		vErr.add("title", "title is required")
		return Booking{}, vErr
	}
	if err := validateWindow(params.Start, params.End, s.now()); err != nil {
		logger.Warn("booking rejected", "error", err, "error_kind", ErrorKind(err))
		return Booking{}, err
	}

	local, remote, err := queryConflicts(ctx, s.bookings, s.calendar, params.Principal.UserID, params.Credentials, params.Start, params.End, "")
	if err != nil {
		logger.Error("conflict check failed", "error", err, "error_kind", ErrorKind(err))
		return Booking{}, err
	}
	if len(local) > 0 {
		cErr := &ConflictError{Source: ConflictSourceLocal, Title: local[0].Title}
		logger.Warn("booking rejected", "error", cErr, "error_kind", ErrorKind(cErr))
		return Booking{}, cErr
	}
	if len(remote) > 0 {
		cErr := &ConflictError{Source: ConflictSourceCalendar, Title: remote[0].Title}
		logger.Warn("booking rejected", "error", cErr, "error_kind", ErrorKind(cErr))
		return Booking{}, cErr
	}

	booking := Booking{
		ID:        s.idGenerator(),
		Title:     title,
		Start:     params.Start,
		End:       params.End,
		UserID:    params.Principal.UserID,
		CreatedAt: s.now(),
	}

	persisted, err := s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		mapped := mapBookingRepoError(err)
		logger.Error("booking persistence failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return Booking{}, mapped
	}

	description := fmt.Sprintf("Booking created via Booking System (ID: %s)", persisted.ID)
	eventID, err := s.calendar.CreateEvent(ctx, params.Credentials, persisted.Title, persisted.Start, persisted.End, description)
	if err != nil {
		logger.Error("calendar event creation failed, rolling back booking", "booking_id", persisted.ID, "error", err)
		if delErr := s.bookings.DeleteBooking(ctx, persisted.ID); delErr != nil {
			logger.Error("rollback of booking failed", "booking_id", persisted.ID, "error", delErr)
		}
		return Booking{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if err := s.bookings.SetCalendarEventID(ctx, persisted.ID, eventID); err != nil {
		mapped := mapBookingRepoError(err)
		logger.Error("storing calendar event link failed", "booking_id", persisted.ID, "event_id", eventID, "error", mapped)
		return Booking{}, mapped
	}
	persisted.CalendarEventID = &eventID

	logger.Info("booking created", "booking_id", persisted.ID, "event_id", eventID)
	return persisted, nil
}

// CancelBooking removes a booking after an ownership check. The mirrored
// calendar event is deleted best effort; a provider failure never blocks the
// local cancellation.
func (s *BookingService) CancelBooking(ctx context.Context, params CancelBookingParams) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "booking", "cancel_booking",
		"user_id", params.Principal.UserID,
		"booking_id", params.BookingID)

	booking, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		mapped := mapBookingRepoError(err)
		logger.Warn("booking lookup failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return mapped
	}

	if booking.UserID != params.Principal.UserID {
		logger.Warn("cancellation forbidden", "owner_id", booking.UserID)
		return ErrForbidden
	}

	if booking.CalendarEventID != nil && *booking.CalendarEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, params.Credentials, *booking.CalendarEventID); err != nil {
			logger.Warn("calendar event deletion failed, removing local booking anyway",
				"event_id", *booking.CalendarEventID, "error", err)
		}
	}

	if err := s.bookings.DeleteBooking(ctx, params.BookingID); err != nil {
		mapped := mapBookingRepoError(err)
		logger.Error("booking deletion failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return mapped
	}

	logger.Info("booking cancelled")
	return nil
}

// GetUserBookings lists the principal's bookings ordered by start time.
func (s *BookingService) GetUserBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}

	bookings, err := s.bookings.ListBookingsByUser(ctx, params.Principal.UserID)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return bookings, nil
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidRange
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
