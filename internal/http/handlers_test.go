package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/booking-sync/internal/application"
)

type bookingServiceStub struct {
	booking   application.Booking
	createErr error
	cancelErr error
	list      []application.Booking
	listErr   error

	createParams application.CreateBookingParams
	cancelParams application.CancelBookingParams
}

func (s *bookingServiceStub) CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
	s.createParams = params
	if s.createErr != nil {
		return application.Booking{}, s.createErr
	}
	return s.booking, nil
}

func (s *bookingServiceStub) CancelBooking(ctx context.Context, params application.CancelBookingParams) error {
	s.cancelParams = params
	return s.cancelErr
}

func (s *bookingServiceStub) GetUserBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list, nil
}

type availabilityServiceStub struct {
	result application.AvailabilityResult
	err    error
}

func (s *availabilityServiceStub) CheckAvailability(ctx context.Context, params application.CheckAvailabilityParams) (application.AvailabilityResult, error) {
	if s.err != nil {
		return application.AvailabilityResult{}, s.err
	}
	return s.result, nil
}

type watchServiceStub struct {
	watch     application.CalendarWatch
	createErr error
	storeErr  error

	storedToken string
}

func (s *watchServiceStub) CreateWatch(ctx context.Context, params application.CreateWatchParams) (application.CalendarWatch, error) {
	if s.createErr != nil {
		return application.CalendarWatch{}, s.createErr
	}
	return s.watch, nil
}

func (s *watchServiceStub) StoreRefreshToken(ctx context.Context, params application.StoreRefreshTokenParams) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.storedToken = params.RefreshToken
	return nil
}

type webhookServiceStub struct {
	outcome      application.Outcome
	notification application.Notification
}

func (s *webhookServiceStub) HandleNotification(ctx context.Context, notification application.Notification) application.Outcome {
	s.notification = notification
	return s.outcome
}

func newTestRouter(bookings *bookingServiceStub, availability *availabilityServiceStub, watches *watchServiceStub, webhooks *webhookServiceStub) http.Handler {
	cfg := RouterConfig{
		Middleware: []func(http.Handler) http.Handler{PrincipalFromHeader()},
	}
	if bookings != nil {
		cfg.Bookings = NewBookingHandler(bookings, nil)
	}
	if availability != nil {
		cfg.Availability = NewAvailabilityHandler(availability, nil)
	}
	if watches != nil {
		cfg.Watches = NewWatchHandler(watches, nil)
	}
	if webhooks != nil {
		cfg.Webhooks = NewWebhookHandler(webhooks, nil)
	}
	return NewRouter(cfg)
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(PrincipalHeader, "user-1")
	return req
}

func TestBookingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create returns the persisted booking", func(t *testing.T) {
		t.Parallel()

		eventID := "ev-42"
		svc := &bookingServiceStub{booking: application.Booking{
			ID:              "booking-1",
			Title:           "Dentist",
			Start:           time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			End:             time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC),
			UserID:          "user-1",
			CalendarEventID: &eventID,
		}}
		router := newTestRouter(svc, nil, nil, nil)

		body := `{"title":"Dentist","start":"2025-06-02T10:00:00Z","end":"2025-06-02T11:00:00Z","access_token":"at","refresh_token":"rt"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/bookings", body))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var dto bookingDTO
		if err := json.Unmarshal(recorder.Body.Bytes(), &dto); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dto.ID != "booking-1" || dto.CalendarEventID == nil || *dto.CalendarEventID != "ev-42" {
			t.Fatalf("unexpected body: %+v", dto)
		}

		if svc.createParams.Principal.UserID != "user-1" {
			t.Fatalf("expected principal forwarded, got %+v", svc.createParams.Principal)
		}
		if svc.createParams.Credentials.AccessToken != "at" || svc.createParams.Credentials.RefreshToken != "rt" {
			t.Fatalf("expected credentials forwarded, got %+v", svc.createParams.Credentials)
		}
	})

	t.Run("create without principal returns 401", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&bookingServiceStub{}, nil, nil, nil)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"title":"x"}`))
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
	})

	t.Run("conflict maps to 409 with the colliding title", func(t *testing.T) {
		t.Parallel()

		svc := &bookingServiceStub{createErr: &application.ConflictError{
			Source: application.ConflictSourceCalendar,
			Title:  "Flight",
		}}
		router := newTestRouter(svc, nil, nil, nil)

		body := `{"title":"Dentist","start":"2025-06-02T10:00:00Z","end":"2025-06-02T11:00:00Z"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/bookings", body))

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", recorder.Code)
		}
		if !strings.Contains(recorder.Body.String(), "Flight") {
			t.Fatalf("expected colliding title in body, got %s", recorder.Body.String())
		}
	})

	t.Run("provider outage maps to 503", func(t *testing.T) {
		t.Parallel()

		svc := &bookingServiceStub{createErr: application.ErrProviderUnavailable}
		router := newTestRouter(svc, nil, nil, nil)

		body := `{"title":"Dentist","start":"2025-06-02T10:00:00Z","end":"2025-06-02T11:00:00Z"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/bookings", body))

		if recorder.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", recorder.Code)
		}
	})

	t.Run("cancel forwards the path id and returns 204", func(t *testing.T) {
		t.Parallel()

		svc := &bookingServiceStub{}
		router := newTestRouter(svc, nil, nil, nil)

		recorder := httptest.NewRecorder()
		req := authedRequest(http.MethodDelete, "/bookings/booking-1", "")
		req.Header.Set("X-Google-Access-Token", "at")
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if svc.cancelParams.BookingID != "booking-1" {
			t.Fatalf("expected booking id forwarded, got %q", svc.cancelParams.BookingID)
		}
		if svc.cancelParams.Credentials.AccessToken != "at" {
			t.Fatalf("expected header credentials forwarded, got %+v", svc.cancelParams.Credentials)
		}
	})

	t.Run("cancel maps ownership failures to 403", func(t *testing.T) {
		t.Parallel()

		svc := &bookingServiceStub{cancelErr: application.ErrForbidden}
		router := newTestRouter(svc, nil, nil, nil)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodDelete, "/bookings/booking-1", ""))

		if recorder.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", recorder.Code)
		}
	})

	t.Run("list returns the caller's bookings", func(t *testing.T) {
		t.Parallel()

		svc := &bookingServiceStub{list: []application.Booking{{ID: "booking-1", UserID: "user-1"}}}
		router := newTestRouter(svc, nil, nil, nil)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/bookings", ""))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}

		var response listBookingsResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Bookings) != 1 || response.Bookings[0].ID != "booking-1" {
			t.Fatalf("unexpected bookings: %+v", response.Bookings)
		}
	})

	t.Run("unsupported methods return 405", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&bookingServiceStub{}, nil, nil, nil)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPut, "/bookings", ""))

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", recorder.Code)
		}
	})
}

func TestAvailabilityHandler(t *testing.T) {
	t.Parallel()

	t.Run("reports conflicts from both sources", func(t *testing.T) {
		t.Parallel()

		svc := &availabilityServiceStub{result: application.AvailabilityResult{
			Available:        false,
			BookingConflicts: []application.Booking{{ID: "booking-1", Title: "Standup"}},
			CalendarConflicts: []application.CalendarConflict{{
				EventID: "ev-1",
				Title:   "Flight",
				Start:   time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				End:     time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
			}},
		}}
		router := newTestRouter(nil, svc, nil, nil)

		body := `{"start":"2025-06-02T10:00:00Z","end":"2025-06-02T11:00:00Z"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/availability", body))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var response availabilityResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Available || len(response.BookingConflicts) != 1 || len(response.CalendarConflicts) != 1 {
			t.Fatalf("unexpected response: %+v", response)
		}
	})

	t.Run("invalid ranges map to 400", func(t *testing.T) {
		t.Parallel()

		svc := &availabilityServiceStub{err: application.ErrInvalidRange}
		router := newTestRouter(nil, svc, nil, nil)

		body := `{"start":"2025-06-02T11:00:00Z","end":"2025-06-02T10:00:00Z"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/availability", body))

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})
}

func TestWatchHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create returns the registered watch without its secrets", func(t *testing.T) {
		t.Parallel()

		svc := &watchServiceStub{watch: application.CalendarWatch{
			ID:           "watch-1",
			ChannelID:    "chan-1",
			ChannelToken: "secret",
			ResourceID:   "res-1",
			Expiration:   time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		}}
		router := newTestRouter(nil, nil, svc, nil)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/calendar/watch", ""))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", recorder.Code)
		}
		if strings.Contains(recorder.Body.String(), "secret") || strings.Contains(recorder.Body.String(), "res-1") {
			t.Fatalf("expected secrets withheld, got %s", recorder.Body.String())
		}
	})

	t.Run("missing refresh token maps to 412", func(t *testing.T) {
		t.Parallel()

		svc := &watchServiceStub{createErr: application.ErrPreconditionFailed}
		router := newTestRouter(nil, nil, svc, nil)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/calendar/watch", ""))

		if recorder.Code != http.StatusPreconditionFailed {
			t.Fatalf("expected 412, got %d", recorder.Code)
		}
	})

	t.Run("refresh token storage returns 204", func(t *testing.T) {
		t.Parallel()

		svc := &watchServiceStub{}
		router := newTestRouter(nil, nil, svc, nil)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/calendar/watch/refresh-token", `{"refresh_token":"refresh-1"}`))

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if svc.storedToken != "refresh-1" {
			t.Fatalf("expected token forwarded, got %q", svc.storedToken)
		}
	})
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	t.Run("forwards the Google push headers", func(t *testing.T) {
		t.Parallel()

		svc := &webhookServiceStub{outcome: application.Outcome{Action: application.OutcomeReconciled}}
		router := newTestRouter(nil, nil, nil, svc)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/google-calendar", nil)
		req.Header.Set(HeaderChannelID, "chan-1")
		req.Header.Set(HeaderChannelToken, "token-1")
		req.Header.Set(HeaderResourceState, "exists")

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if svc.notification.ChannelID != "chan-1" || svc.notification.ChannelToken != "token-1" || svc.notification.ResourceState != "exists" {
			t.Fatalf("unexpected notification: %+v", svc.notification)
		}
	})

	t.Run("answers 200 even when the notification is ignored", func(t *testing.T) {
		t.Parallel()

		svc := &webhookServiceStub{outcome: application.Outcome{Action: application.OutcomeIgnoredUnknownChannel}}
		router := newTestRouter(nil, nil, nil, svc)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/webhooks/google-calendar", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
	})

	t.Run("does not require a principal", func(t *testing.T) {
		t.Parallel()

		svc := &webhookServiceStub{outcome: application.Outcome{Action: application.OutcomeIgnoredSync}}
		router := newTestRouter(nil, nil, nil, svc)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/google-calendar", nil)
		req.Header.Set(HeaderResourceState, "sync")

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200 without auth header, got %d", recorder.Code)
		}
	})
}
