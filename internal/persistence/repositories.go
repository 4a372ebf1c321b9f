package persistence

import (
	"context"
	"time"
)

// BookingFilter narrows overlap queries. ExcludeID, when set, removes a
// booking from its own conflict set so updates do not collide with themselves.
type BookingFilter struct {
	UserID    string
	Start     time.Time
	End       time.Time
	ExcludeID string
}

// BookingRepository stores reserved time slots.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	FindOverlapping(ctx context.Context, filter BookingFilter) ([]Booking, error)
	SetCalendarEventID(ctx context.Context, id, eventID string) error
	UpdateBookingWindow(ctx context.Context, id string, start, end time.Time) error
	DeleteBooking(ctx context.Context, id string) error
}

// WatchRepository stores calendar watch channels, at most one per user.
type WatchRepository interface {
	GetWatchByUser(ctx context.Context, userID string) (CalendarWatch, error)
	GetWatchByChannelID(ctx context.Context, channelID string) (CalendarWatch, error)
	FindWatchesExpiringWithin(ctx context.Context, reference time.Time, horizon time.Duration) ([]CalendarWatch, error)
	UpsertWatch(ctx context.Context, watch CalendarWatch) (CalendarWatch, error)
	DeleteWatchByUser(ctx context.Context, userID string) error
}

// UserRepository stores accounts and their long-lived Google credential.
// GetUserByGoogleID and UpsertUser form the write surface for the OAuth
// login flow, which runs outside this service; the booking core itself only
// reads users and stores refresh tokens.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (User, error)
	UpsertUser(ctx context.Context, user User) (User, error)
	SetGoogleRefreshToken(ctx context.Context, userID, refreshToken string) error
}
