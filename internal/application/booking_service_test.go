package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/booking-sync/internal/persistence"
	"github.com/example/booking-sync/internal/testfixtures"
)

type bookingRepoStub struct {
	booking     Booking
	getErr      error
	created     []Booking
	createErr   error
	overlapping []Booking
	overlapErr  error
	list        []Booking
	listErr     error
	linkedID    string
	linkedEvent string
	linkErr      error
	updatedID    string
	updatedStart time.Time
	updatedEnd   time.Time
	updateErr    error
	deleted      []string
	deleteErr    error
}

func (b *bookingRepoStub) CreateBooking(ctx context.Context, booking Booking) (Booking, error) {
	if b.createErr != nil {
		return Booking{}, b.createErr
	}
	b.created = append(b.created, booking)
	return booking, nil
}

func (b *bookingRepoStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	if b.getErr != nil {
		return Booking{}, b.getErr
	}
	if b.booking.ID != id {
		return Booking{}, persistence.ErrNotFound
	}
	return b.booking, nil
}

func (b *bookingRepoStub) ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]Booking, len(b.list))
	copy(out, b.list)
	return out, nil
}

func (b *bookingRepoStub) FindOverlapping(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]Booking, error) {
	if b.overlapErr != nil {
		return nil, b.overlapErr
	}
	out := make([]Booking, len(b.overlapping))
	copy(out, b.overlapping)
	return out, nil
}

func (b *bookingRepoStub) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	if b.linkErr != nil {
		return b.linkErr
	}
	b.linkedID = id
	b.linkedEvent = eventID
	return nil
}

func (b *bookingRepoStub) UpdateBookingWindow(ctx context.Context, id string, start, end time.Time) error {
	if b.updateErr != nil {
		return b.updateErr
	}
	b.updatedID = id
	b.updatedStart = start
	b.updatedEnd = end
	return nil
}

func (b *bookingRepoStub) DeleteBooking(ctx context.Context, id string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.deleted = append(b.deleted, id)
	return nil
}

type createdEvent struct {
	title       string
	start       time.Time
	end         time.Time
	description string
}

type calendarProviderStub struct {
	conflicts []CalendarConflict
	checkErr  error
	eventID   string
	createErr error
	events    []createdEvent
	deleteErr error
	deletedID string
}

func (c *calendarProviderStub) CheckConflicts(ctx context.Context, creds Credentials, start, end time.Time) ([]CalendarConflict, error) {
	if c.checkErr != nil {
		return nil, c.checkErr
	}
	out := make([]CalendarConflict, len(c.conflicts))
	copy(out, c.conflicts)
	return out, nil
}

func (c *calendarProviderStub) CreateEvent(ctx context.Context, creds Credentials, title string, start, end time.Time, description string) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	c.events = append(c.events, createdEvent{title: title, start: start, end: end, description: description})
	return c.eventID, nil
}

func (c *calendarProviderStub) DeleteEvent(ctx context.Context, creds Credentials, eventID string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deletedID = eventID
	return nil
}

func baseTime(t *testing.T) time.Time {
	t.Helper()
	return testfixtures.ReferenceTime()
}

func TestBookingService_CreateBooking_RequiresTitle(t *testing.T) {
	t.Parallel()

	now := baseTime(t)
	svc := NewBookingService(&bookingRepoStub{}, &calendarProviderStub{}, nil, nil, func() time.Time { return now })

	_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Title:     "   ",
		Start:     now.Add(time.Hour),
		End:       now.Add(2 * time.Hour),
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["title"]; !ok {
		t.Fatalf("expected title validation error, got %v", vErr.FieldErrors)
	}
}

func TestBookingService_CreateBooking_RejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	now := baseTime(t)
	svc := NewBookingService(&bookingRepoStub{}, &calendarProviderStub{}, nil, nil, func() time.Time { return now })

	_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Title:     "Dentist",
		Start:     now.Add(2 * time.Hour),
		End:       now.Add(time.Hour),
	})

	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestBookingService_CreateBooking_RejectsPastWindow(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	svc := NewBookingService(&bookingRepoStub{}, &calendarProviderStub{}, nil, nil, clock.NowFunc())

	start := clock.Now().Add(time.Hour)
	clock.Advance(2 * time.Hour)

	_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Title:     "Dentist",
		Start:     start,
		End:       start.Add(time.Hour),
	})

	if !errors.Is(err, ErrPastWindow) {
		t.Fatalf("expected ErrPastWindow, got %v", err)
	}
}

func TestBookingService_CreateBooking_RejectsLocalConflict(t *testing.T) {
	t.Parallel()

	now := baseTime(t)
	repo := &bookingRepoStub{overlapping: []Booking{
		{ID: "booking-0", Title: "Standup"},
		{ID: "booking-2", Title: "Retro"},
	}}
	svc := NewBookingService(repo, &calendarProviderStub{}, nil, func() string { return "booking-1" }, func() time.Time { return now })

	_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Title:     "Dentist",
		Start:     now.Add(time.Hour),
		End:       now.Add(2 * time.Hour),
	})

	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected error to match ErrConflict, got %v", err)
	}
	if cErr.Source != ConflictSourceLocal || cErr.Title != "Standup" {
		t.Fatalf("expected first local conflict reported, got %+v", cErr)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no booking persisted, got %d", len(repo.created))
	}
}

func TestBookingService_CreateBooking_RejectsCalendarConflict(t *testing.T) {
	t.Parallel()

	now := baseTime(t)
	provider := &calendarProviderStub{conflicts: []CalendarConflict{{EventID: "ev-1", Title: "Flight"}}}
	svc := NewBookingService(&bookingRepoStub{}, provider, nil, func() string { return "booking-1" }, func() time.Time { return now })

	_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Title:     "Dentist",
		Start:     now.Add(time.Hour),
		End:       now.Add(2 * time.Hour),
	})

	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cErr.Source != ConflictSourceCalendar || cErr.Title != "Flight" {
		t.Fatalf("expected calendar conflict reported, got %+v", cErr)
	}
}

func TestBookingService_CreateBooking_PersistsAndLinksCalendarEvent(t *testing.T) {
	t.Parallel()

	now := baseTime(t)
	repo := &bookingRepoStub{}
	provider := &calendarProviderStub{eventID: "ev-42"}
	svc := NewBookingService(repo, provider, nil, func() string { return "booking-1" }, func() time.Time { return now })

	booking, err := svc.CreateBooking(context.Background(), CreateBookingParams{
		Principal:   Principal{UserID: "user-1"},
		Title:       "  Dentist  ",
		Start:       now.Add(time.Hour),
		End:         now.Add(2 * time.Hour),
		Credentials: Credentials{AccessToken: "at", RefreshToken: "rt"},
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	if len(repo.created) != 1 || repo.created[0].ID != "booking-1" || repo.created[0].Title != "Dentist" {
		t.Fatalf("unexpected persisted booking: %+v", repo.created)
	}
	if len(provider.events) != 1 {
		t.Fatalf("expected one calendar event, got %d", len(provider.events))
	}
	wantDescription := fmt.Sprintf("Booking created via Booking System (ID: %s)", "booking-1")
	if provider.events[0].description != wantDescription {
		t.Fatalf("unexpected event description: %q", provider.events[0].description)
	}
	if repo.linkedID != "booking-1" || repo.linkedEvent != "ev-42" {
		t.Fatalf("expected event link persisted, got id=%q event=%q", repo.linkedID, repo.linkedEvent)
	}
	if booking.CalendarEventID == nil || *booking.CalendarEventID != "ev-42" {
		t.Fatalf("expected returned booking to carry event id, got %+v", booking.CalendarEventID)
	}
}

func TestBookingService_CreateBooking_RollsBackOnProviderFailure(t *testing.T) {
	t.Parallel()

	now := baseTime(t)
	repo := &bookingRepoStub{}
	provider := &calendarProviderStub{createErr: errors.New("google: 503")}
	svc := NewBookingService(repo, provider, nil, func() string { return "booking-1" }, func() time.Time { return now })

	_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Title:     "Dentist",
		Start:     now.Add(time.Hour),
		End:       now.Add(2 * time.Hour),
	})

	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "booking-1" {
		t.Fatalf("expected local booking rolled back, got %v", repo.deleted)
	}
}

func TestBookingService_CancelBooking_UnknownBooking(t *testing.T) {
	t.Parallel()

	svc := NewBookingService(&bookingRepoStub{}, &calendarProviderStub{}, nil, nil, nil)

	err := svc.CancelBooking(context.Background(), CancelBookingParams{
		Principal: Principal{UserID: "user-1"},
		BookingID: "missing",
	})

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingService_CancelBooking_RejectsForeignBooking(t *testing.T) {
	t.Parallel()

	repo := &bookingRepoStub{booking: Booking{ID: "booking-1", UserID: "user-2"}}
	svc := NewBookingService(repo, &calendarProviderStub{}, nil, nil, nil)

	err := svc.CancelBooking(context.Background(), CancelBookingParams{
		Principal: Principal{UserID: "user-1"},
		BookingID: "booking-1",
	})

	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("expected no deletion, got %v", repo.deleted)
	}
}

func TestBookingService_CancelBooking_DeletesLinkedEvent(t *testing.T) {
	t.Parallel()

	eventID := "ev-42"
	repo := &bookingRepoStub{booking: Booking{ID: "booking-1", UserID: "user-1", CalendarEventID: &eventID}}
	provider := &calendarProviderStub{}
	svc := NewBookingService(repo, provider, nil, nil, nil)

	err := svc.CancelBooking(context.Background(), CancelBookingParams{
		Principal: Principal{UserID: "user-1"},
		BookingID: "booking-1",
	})
	if err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}

	if provider.deletedID != "ev-42" {
		t.Fatalf("expected calendar event deleted, got %q", provider.deletedID)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "booking-1" {
		t.Fatalf("expected booking deleted, got %v", repo.deleted)
	}
}

func TestBookingService_CancelBooking_ProviderFailureDoesNotBlockCancellation(t *testing.T) {
	t.Parallel()

	eventID := "ev-42"
	repo := &bookingRepoStub{booking: Booking{ID: "booking-1", UserID: "user-1", CalendarEventID: &eventID}}
	provider := &calendarProviderStub{deleteErr: errors.New("google: 503")}
	svc := NewBookingService(repo, provider, nil, nil, nil)

	err := svc.CancelBooking(context.Background(), CancelBookingParams{
		Principal: Principal{UserID: "user-1"},
		BookingID: "booking-1",
	})
	if err != nil {
		t.Fatalf("expected cancellation to succeed despite provider failure, got %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected booking deleted, got %v", repo.deleted)
	}
}

func TestBookingService_GetUserBookings_PassesThrough(t *testing.T) {
	t.Parallel()

	repo := &bookingRepoStub{list: []Booking{{ID: "booking-1"}, {ID: "booking-2"}}}
	svc := NewBookingService(repo, &calendarProviderStub{}, nil, nil, nil)

	bookings, err := svc.GetUserBookings(context.Background(), ListBookingsParams{
		Principal: Principal{UserID: "user-1"},
	})
	if err != nil {
		t.Fatalf("GetUserBookings failed: %v", err)
	}
	if len(bookings) != 2 || bookings[0].ID != "booking-1" {
		t.Fatalf("unexpected bookings: %+v", bookings)
	}
}
