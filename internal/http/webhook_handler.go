package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/booking-sync/internal/application"
)

// Google push notification headers.
const (
	HeaderChannelID     = "X-Goog-Channel-Id"
	HeaderChannelToken  = "X-Goog-Channel-Token"
	HeaderResourceState = "X-Goog-Resource-State"
)

type webhookService interface {
	HandleNotification(ctx context.Context, notification application.Notification) application.Outcome
}

// WebhookHandler receives Google Calendar push notifications. It answers 200
// for every delivery so Google never retries or tears down the channel over a
// local processing problem.
type WebhookHandler struct {
	service webhookService
	logger  *slog.Logger
}

func NewWebhookHandler(service webhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: defaultLogger(logger)}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	notification := application.Notification{
		ChannelID:     r.Header.Get(HeaderChannelID),
		ChannelToken:  r.Header.Get(HeaderChannelToken),
		ResourceState: r.Header.Get(HeaderResourceState),
	}

	outcome := h.service.HandleNotification(r.Context(), notification)

	logger := handlerLogger(r.Context(), h.logger, "webhook", "receive")
	logger.InfoContext(r.Context(), "notification acknowledged",
		"action", string(outcome.Action),
		"deleted", outcome.Deleted,
		"updated", outcome.Updated,
		"skipped", outcome.Skipped)

	w.WriteHeader(http.StatusOK)
}
