package persistence

import "time"

// User represents an account in the booking domain. The Google refresh token
// is the long-lived credential that lets background work (watch registration,
// reconciliation) act without an active session.
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

// Booking represents a reserved time slot stored in persistence. Start/End
// form a half-open interval; CalendarEventID links the booking to its mirror
// event in Google Calendar once the external write has succeeded.
type Booking struct {
	ID              string
	Title           string
	Start           time.Time
	End             time.Time
	UserID          string
	CalendarEventID *string
	CreatedAt       time.Time
}

// CalendarWatch represents a push-notification channel registered with Google
// Calendar. At most one watch exists per user; ChannelToken is the shared
// secret used to authenticate inbound notifications.
type CalendarWatch struct {
	ID           string
	UserID       string
	ChannelID    string
	ResourceID   string
	ChannelToken string
	Expiration   time.Time
	CreatedAt    time.Time
}
