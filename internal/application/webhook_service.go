package application

import (
	"context"
	"log/slog"
)

// OutcomeAction labels how a push notification was handled.
type OutcomeAction string

const (
	// OutcomeIgnoredUnknownChannel means no registered watch matched the channel ID.
	OutcomeIgnoredUnknownChannel OutcomeAction = "ignored_unknown_channel"
	// OutcomeIgnoredTokenMismatch means the delivered token did not match the watch.
	OutcomeIgnoredTokenMismatch OutcomeAction = "ignored_token_mismatch"
	// OutcomeIgnoredSync means the notification was Google's initial sync marker.
	OutcomeIgnoredSync OutcomeAction = "ignored_sync"
	// OutcomeReconciled means the owning user's bookings were reconciled.
	OutcomeReconciled OutcomeAction = "reconciled"
	// OutcomeFailed means reconciliation could not start.
	OutcomeFailed OutcomeAction = "failed"
)

// Outcome summarizes the handling of one push notification.
type Outcome struct {
	Action  OutcomeAction
	Deleted int
	Updated int
	Skipped int
}

// resourceStateSync is the resource state Google sends when a channel is
// first established. It carries no change information.
const resourceStateSync = "sync"

// WebhookService verifies Google push notifications and reconciles the owning
// user's bookings against their calendar.
type WebhookService struct {
	watches  WatchRepository
	users    UserDirectory
	bookings BookingRepository
	provider WatchProvider
	logger   *slog.Logger
}

// NewWebhookService wires dependencies for notification handling.
func NewWebhookService(watches WatchRepository, users UserDirectory, bookings BookingRepository, provider WatchProvider, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		watches:  watches,
		users:    users,
		bookings: bookings,
		provider: provider,
		logger:   defaultLogger(logger),
	}
}

// HandleNotification processes one push notification. It never returns an
// error: the webhook endpoint must acknowledge every delivery, so problems
// are logged and folded into the returned Outcome instead.
func (s *WebhookService) HandleNotification(ctx context.Context, notification Notification) Outcome {
	if s == nil {
		return Outcome{Action: OutcomeFailed}
	}

	logger := serviceLogger(ctx, s.logger, "webhook", "handle_notification",
		"channel_id", notification.ChannelID,
		"resource_state", notification.ResourceState)

	watch, err := s.watches.GetWatchByChannelID(ctx, notification.ChannelID)
	if err != nil {
		logger.Warn("notification for unknown channel ignored", "error", err)
		return Outcome{Action: OutcomeIgnoredUnknownChannel}
	}

	if watch.ChannelToken != notification.ChannelToken {
		logger.Warn("notification with mismatched token ignored", "user_id", watch.UserID)
		return Outcome{Action: OutcomeIgnoredTokenMismatch}
	}

	if notification.ResourceState == resourceStateSync {
		logger.Info("sync notification ignored", "user_id", watch.UserID)
		return Outcome{Action: OutcomeIgnoredSync}
	}

	outcome := s.reconcileUser(ctx, logger, watch.UserID)
	logger.Info("notification handled",
		"user_id", watch.UserID,
		"action", string(outcome.Action),
		"deleted", outcome.Deleted,
		"updated", outcome.Updated,
		"skipped", outcome.Skipped)
	return outcome
}

// reconcileUser walks the user's calendar-linked bookings and folds the
// provider's current state back into the local store. Each booking is
// handled independently so one bad event never blocks the rest.
func (s *WebhookService) reconcileUser(ctx context.Context, logger *slog.Logger, userID string) Outcome {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		logger.Error("reconciliation aborted, user lookup failed", "user_id", userID, "error", err)
		return Outcome{Action: OutcomeFailed}
	}
	if user.GoogleRefreshToken == nil || *user.GoogleRefreshToken == "" {
		logger.Error("reconciliation aborted, no refresh token stored", "user_id", userID)
		return Outcome{Action: OutcomeFailed}
	}
	refreshToken := *user.GoogleRefreshToken

	bookings, err := s.bookings.ListBookingsByUser(ctx, userID)
	if err != nil {
		logger.Error("reconciliation aborted, booking listing failed", "user_id", userID, "error", err)
		return Outcome{Action: OutcomeFailed}
	}

	outcome := Outcome{Action: OutcomeReconciled}
	for _, booking := range bookings {
		if booking.CalendarEventID == nil || *booking.CalendarEventID == "" {
			continue
		}
		eventID := *booking.CalendarEventID

		event, found, err := s.provider.GetEvent(ctx, refreshToken, eventID)
		if err != nil {
			logger.Warn("event fetch failed, booking skipped", "booking_id", booking.ID, "event_id", eventID, "error", err)
			outcome.Skipped++
			continue
		}

		if !found {
			if err := s.bookings.DeleteBooking(ctx, booking.ID); err != nil {
				logger.Warn("deleting booking for removed event failed", "booking_id", booking.ID, "error", err)
				outcome.Skipped++
				continue
			}
			logger.Info("booking deleted, event removed upstream", "booking_id", booking.ID, "event_id", eventID)
			outcome.Deleted++
			continue
		}

		if event.Start.Equal(booking.Start) && event.End.Equal(booking.End) {
			continue
		}

		if err := s.bookings.UpdateBookingWindow(ctx, booking.ID, event.Start, event.End); err != nil {
			logger.Warn("updating booking window failed", "booking_id", booking.ID, "error", err)
			outcome.Skipped++
			continue
		}
		logger.Info("booking window updated from calendar", "booking_id", booking.ID, "event_id", eventID)
		outcome.Updated++
	}

	return outcome
}
