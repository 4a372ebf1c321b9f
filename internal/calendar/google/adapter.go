package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/example/booking-sync/internal/application"
	"github.com/example/booking-sync/internal/booking"
)

const (
	defaultCalendarID = "primary"
	defaultTimeout    = 10 * time.Second

	eventStatusCancelled = "cancelled"
	channelTypeWebhook   = "web_hook"
)

// Config carries the OAuth client and tuning knobs for the adapter.
type Config struct {
	ClientID     string
	ClientSecret string
	// CalendarID selects the calendar acted on; defaults to "primary".
	CalendarID string
	// Timeout bounds each outbound API call.
	Timeout   time.Duration
	RateLimit RateLimitConfig
}

// Adapter talks to the Google Calendar v3 API. It implements both the event
// operations used by the booking services and the push-channel operations
// used by the watch services.
type Adapter struct {
	oauth      *oauth2.Config
	limiter    *RateLimiter
	logger     *slog.Logger
	calendarID string
	timeout    time.Duration
}

// NewAdapter creates a Calendar API adapter.
func NewAdapter(cfg Config, logger *slog.Logger) *Adapter {
	if cfg.CalendarID == "" {
		cfg.CalendarID = defaultCalendarID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     googleauth.Endpoint,
		},
		limiter:    NewRateLimiter(cfg.RateLimit),
		logger:     logger,
		calendarID: cfg.CalendarID,
		timeout:    cfg.Timeout,
	}
}

// CheckConflicts lists the user's events overlapping [start, end) and returns
// the non-cancelled ones. Overlap is re-checked client-side because all-day
// events resolve to midnight UTC bounds that may only touch the window.
func (a *Adapter) CheckConflicts(ctx context.Context, creds application.Credentials, start, end time.Time) ([]application.CalendarConflict, error) {
	window := booking.Window{Start: start, End: end}
	var entries []booking.Entry

	err := a.withUserAuth(ctx, creds, func(ctx context.Context, svc *calendar.Service) error {
		list, err := svc.Events.List(a.calendarID).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		entries = entries[:0]
		for _, event := range list.Items {
			if event.Status == eventStatusCancelled {
				continue
			}
			eventStart, eventEnd, ok := eventWindow(event)
			if !ok {
				continue
			}
			entries = append(entries, booking.Entry{
				ID:    event.Id,
				Title: event.Summary,
				Start: eventStart,
				End:   eventEnd,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	overlapping := booking.FindConflicts(entries, window, "")
	if len(overlapping) == 0 {
		return nil, nil
	}
	conflicts := make([]application.CalendarConflict, 0, len(overlapping))
	for _, entry := range overlapping {
		conflicts = append(conflicts, application.CalendarConflict{
			EventID: entry.ID,
			Title:   entry.Title,
			Start:   entry.Start,
			End:     entry.End,
		})
	}
	return conflicts, nil
}

// CreateEvent inserts an event mirroring a booking and returns its ID.
func (a *Adapter) CreateEvent(ctx context.Context, creds application.Credentials, title string, start, end time.Time, description string) (string, error) {
	var eventID string

	err := a.withUserAuth(ctx, creds, func(ctx context.Context, svc *calendar.Service) error {
		created, err := svc.Events.Insert(a.calendarID, &calendar.Event{
			Summary:     title,
			Description: description,
			Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
			End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		eventID = created.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	return eventID, nil
}

// DeleteEvent removes an event. An event already deleted upstream is treated
// as success.
func (a *Adapter) DeleteEvent(ctx context.Context, creds application.Credentials, eventID string) error {
	err := a.withUserAuth(ctx, creds, func(ctx context.Context, svc *calendar.Service) error {
		return svc.Events.Delete(a.calendarID, eventID).Context(ctx).Do()
	})
	if IsNotFound(err) {
		return nil
	}
	return err
}

// Register establishes a push channel delivering change notifications for the
// user's calendar to address.
func (a *Adapter) Register(ctx context.Context, refreshToken, channelID, channelToken, address string) (string, time.Time, error) {
	var (
		resourceID string
		expiration time.Time
	)

	err := a.withRefreshAuth(ctx, refreshToken, func(ctx context.Context, svc *calendar.Service) error {
		channel, err := svc.Events.Watch(a.calendarID, &calendar.Channel{
			Id:      channelID,
			Type:    channelTypeWebhook,
			Address: address,
			Token:   channelToken,
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		resourceID = channel.ResourceId
		expiration = time.UnixMilli(channel.Expiration).UTC()
		return nil
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return resourceID, expiration, nil
}

// Stop tears down a push channel.
func (a *Adapter) Stop(ctx context.Context, refreshToken, channelID, resourceID string) error {
	return a.withRefreshAuth(ctx, refreshToken, func(ctx context.Context, svc *calendar.Service) error {
		return svc.Channels.Stop(&calendar.Channel{
			Id:         channelID,
			ResourceId: resourceID,
		}).Context(ctx).Do()
	})
}

// GetEvent fetches a single event. Events that are hard-deleted or cancelled
// on the provider side are reported as not found.
func (a *Adapter) GetEvent(ctx context.Context, refreshToken, eventID string) (application.ProviderEvent, bool, error) {
	var (
		result application.ProviderEvent
		found  bool
	)

	err := a.withRefreshAuth(ctx, refreshToken, func(ctx context.Context, svc *calendar.Service) error {
		event, err := svc.Events.Get(a.calendarID, eventID).Context(ctx).Do()
		if err != nil {
			return err
		}
		if event.Status == eventStatusCancelled {
			return nil
		}
		start, end, ok := eventWindow(event)
		if !ok {
			return nil
		}
		result = application.ProviderEvent{ID: event.Id, Start: start, End: end}
		found = true
		return nil
	})
	if IsNotFound(err) {
		return application.ProviderEvent{}, false, nil
	}
	if err != nil {
		return application.ProviderEvent{}, false, err
	}
	return result, found, nil
}

// withUserAuth runs fn with a service built from the caller's access token.
// On an auth failure it refreshes the access token once via the caller's
// refresh token and retries once.
func (a *Adapter) withUserAuth(ctx context.Context, creds application.Credentials, fn func(context.Context, *calendar.Service) error) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := authRetry(ctx, creds.AccessToken, creds.RefreshToken, a.refreshAccessToken, func(ctx context.Context, accessToken string) error {
		svc, err := a.newService(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
		if err != nil {
			return err
		}
		return fn(ctx, svc)
	})
	a.recordRateLimit(err)
	return WrapError(err)
}

// withRefreshAuth runs fn with a service whose token source mints access
// tokens from the stored refresh token on demand.
func (a *Adapter) withRefreshAuth(ctx context.Context, refreshToken string, fn func(context.Context, *calendar.Service) error) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ts := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	svc, err := a.newService(ctx, ts)
	if err != nil {
		return WrapError(err)
	}
	err = fn(ctx, svc)
	a.recordRateLimit(err)
	return WrapError(err)
}

func (a *Adapter) newService(ctx context.Context, ts oauth2.TokenSource) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return svc, nil
}

func (a *Adapter) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	token, err := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", err
	}
	a.logger.Debug("access token refreshed")
	return token.AccessToken, nil
}

func (a *Adapter) recordRateLimit(err error) {
	if err == nil {
		return
	}
	if errors.Is(WrapError(err), ErrRateLimited) {
		a.limiter.RecordRateLimitError(0)
	}
}

// eventWindow extracts the start and end of an event. All-day events carry a
// date instead of a timestamp and resolve to midnight UTC bounds.
func eventWindow(event *calendar.Event) (time.Time, time.Time, bool) {
	if event.Start == nil || event.End == nil {
		return time.Time{}, time.Time{}, false
	}
	start, err := parseEventTime(event.Start)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := parseEventTime(event.End)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, error) {
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	return time.Parse("2006-01-02", edt.Date)
}
