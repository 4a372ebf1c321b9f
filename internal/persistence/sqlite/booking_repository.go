package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/booking-sync/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateBooking inserts a new booking.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !booking.Start.Before(booking.End) {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO bookings (id, title, start_time, end_time, user_id, calendar_event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var eventID sql.NullString
	if booking.CalendarEventID != nil {
		eventID.String = *booking.CalendarEventID
		eventID.Valid = true
	}

	_, err := r.helper.Exec(ctx, query,
		booking.ID,
		booking.Title,
		formatTime(booking.Start),
		formatTime(booking.End),
		booking.UserID,
		eventID,
		formatTime(booking.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, title, start_time, end_time, user_id, calendar_event_id, created_at
		FROM bookings
		WHERE id = ?
	`

	booking, err := scanBooking(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListBookingsByUser returns all of a user's bookings ordered by start time.
func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	query := `
		SELECT id, title, start_time, end_time, user_id, calendar_event_id, created_at
		FROM bookings
		WHERE user_id = ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectBookings(rows, r.mapper)
}

// FindOverlapping returns the user's bookings whose half-open window
// intersects [filter.Start, filter.End), ordered by start time. The query is
// read-then-decide at call time; the saga relies on this running at the
// moment of commit.
func (r *BookingRepository) FindOverlapping(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := `
		SELECT id, title, start_time, end_time, user_id, calendar_event_id, created_at
		FROM bookings
		WHERE user_id = ?
		  AND start_time < ?
		  AND end_time > ?
	`
	args := []interface{}{filter.UserID, formatTime(filter.End), formatTime(filter.Start)}

	if filter.ExcludeID != "" {
		query += " AND id != ?"
		args = append(args, filter.ExcludeID)
	}

	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectBookings(rows, r.mapper)
}

// SetCalendarEventID attaches the external event identity to a booking.
func (r *BookingRepository) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	result, err := r.helper.Exec(ctx, "UPDATE bookings SET calendar_event_id = ? WHERE id = ?", eventID, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// UpdateBookingWindow replaces a booking's time window. Used by reconciliation
// when the external event moved.
func (r *BookingRepository) UpdateBookingWindow(ctx context.Context, id string, start, end time.Time) error {
	if !start.Before(end) {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx,
		"UPDATE bookings SET start_time = ?, end_time = ? WHERE id = ?",
		formatTime(start), formatTime(end), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// DeleteBooking removes a booking by ID. It doubles as the saga's
// compensating action after a failed external write.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var startStr, endStr, createdAtStr string
	var eventID sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.Title,
		&startStr,
		&endStr,
		&booking.UserID,
		&eventID,
		&createdAtStr,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	if eventID.Valid {
		booking.CalendarEventID = &eventID.String
	}

	if booking.Start, err = parseTime(startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if booking.End, err = parseTime(endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if booking.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return booking, nil
}

func collectBookings(rows *sql.Rows, mapper *ErrorMapper) ([]persistence.Booking, error) {
	var bookings []persistence.Booking

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}

	return bookings, nil
}

func requireRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
