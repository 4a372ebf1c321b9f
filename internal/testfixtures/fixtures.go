// Package testfixtures provides deterministic clocks, identifier generators,
// and record builders shared across test suites.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/booking-sync/internal/persistence"
)

var (
	userCounter    uint64
	bookingCounter uint64
	watchCounter   uint64
)

var referenceTime = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user record.
type UserOption func(*persistence.User)

// NewUser returns a deterministic user record with optional overrides.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	refreshToken := fmt.Sprintf("refresh-%03d", idx)
	user := persistence.User{
		ID:                 id,
		Email:              fmt.Sprintf("%s@example.com", id),
		GoogleID:           fmt.Sprintf("google-%03d", idx),
		GoogleRefreshToken: &refreshToken,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) {
		u.ID = id
	}
}

// WithoutRefreshToken clears the stored Google refresh token.
func WithoutRefreshToken() UserOption {
	return func(u *persistence.User) {
		u.GoogleRefreshToken = nil
	}
}

// BookingOption configures a generated booking record.
type BookingOption func(*persistence.Booking)

// NewBooking returns a deterministic booking record with optional overrides.
// Consecutive fixtures occupy consecutive non-overlapping hour slots.
func NewBooking(opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	booking := persistence.Booking{
		ID:        fmt.Sprintf("booking-%03d", idx),
		Title:     fmt.Sprintf("Booking %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		UserID:    "user-001",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&booking)
	}
	return booking
}

// WithBookingUser assigns the booking to the given user.
func WithBookingUser(userID string) BookingOption {
	return func(b *persistence.Booking) {
		b.UserID = userID
	}
}

// WithBookingWindow overrides the booking's time window.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(b *persistence.Booking) {
		b.Start = start
		b.End = end
	}
}

// WithCalendarEventID links the booking to a calendar event.
func WithCalendarEventID(eventID string) BookingOption {
	return func(b *persistence.Booking) {
		b.CalendarEventID = &eventID
	}
}

// WatchOption configures a generated calendar watch record.
type WatchOption func(*persistence.CalendarWatch)

// NewWatch returns a deterministic calendar watch record with optional
// overrides.
func NewWatch(opts ...WatchOption) persistence.CalendarWatch {
	idx := atomic.AddUint64(&watchCounter, 1)
	watch := persistence.CalendarWatch{
		ID:           fmt.Sprintf("watch-%03d", idx),
		UserID:       "user-001",
		ChannelID:    fmt.Sprintf("channel-%03d", idx),
		ResourceID:   fmt.Sprintf("resource-%03d", idx),
		ChannelToken: fmt.Sprintf("token-%03d", idx),
		Expiration:   referenceTime.Add(7 * 24 * time.Hour),
		CreatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&watch)
	}
	return watch
}

// WithWatchUser assigns the watch to the given user.
func WithWatchUser(userID string) WatchOption {
	return func(w *persistence.CalendarWatch) {
		w.UserID = userID
	}
}

// WithWatchExpiration overrides the watch expiration.
func WithWatchExpiration(expiration time.Time) WatchOption {
	return func(w *persistence.CalendarWatch) {
		w.Expiration = expiration
	}
}
