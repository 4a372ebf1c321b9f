package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// Credentials carries the Google OAuth tokens supplied by the caller for
// calendar-facing operations.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Booking represents a persisted reservation.
type Booking struct {
	ID              string
	Title           string
	Start           time.Time
	End             time.Time
	UserID          string
	CalendarEventID *string
	CreatedAt       time.Time
}

// CalendarWatch represents a registered push-notification channel for a user's
// Google Calendar.
type CalendarWatch struct {
	ID           string
	UserID       string
	ChannelID    string
	ResourceID   string
	ChannelToken string
	Expiration   time.Time
	CreatedAt    time.Time
}

// User represents an account linked to a Google identity.
type User struct {
	ID                 string
	Email              string
	GoogleID           string
	Name               *string
	PictureURL         *string
	GoogleRefreshToken *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CalendarConflict describes a Google Calendar event overlapping a requested
// window.
type CalendarConflict struct {
	EventID string
	Title   string
	Start   time.Time
	End     time.Time
}

// ProviderEvent is the calendar provider's view of a single event, fetched
// during reconciliation.
type ProviderEvent struct {
	ID    string
	Start time.Time
	End   time.Time
}

// CheckAvailabilityParams wraps the data required to check a time slot.
type CheckAvailabilityParams struct {
	Principal   Principal
	Start       time.Time
	End         time.Time
	Credentials Credentials
}

// AvailabilityResult reports whether a slot is free and which entries block it.
type AvailabilityResult struct {
	Available         bool
	BookingConflicts  []Booking
	CalendarConflicts []CalendarConflict
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal   Principal
	Title       string
	Start       time.Time
	End         time.Time
	Credentials Credentials
}

// CancelBookingParams wraps the data required to cancel a booking.
type CancelBookingParams struct {
	Principal   Principal
	BookingID   string
	Credentials Credentials
}

// ListBookingsParams wraps the data required to list a user's bookings.
type ListBookingsParams struct {
	Principal Principal
}

// CreateWatchParams wraps the data required to register a push channel.
type CreateWatchParams struct {
	Principal Principal
}

// StoreRefreshTokenParams wraps the data required to persist a refresh token.
type StoreRefreshTokenParams struct {
	Principal    Principal
	RefreshToken string
}

// Notification carries the Google push headers delivered to the webhook
// endpoint.
type Notification struct {
	ChannelID     string
	ChannelToken  string
	ResourceState string
}
