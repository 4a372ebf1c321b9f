package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/booking-sync/internal/application"
)

type watchService interface {
	CreateWatch(ctx context.Context, params application.CreateWatchParams) (application.CalendarWatch, error)
	StoreRefreshToken(ctx context.Context, params application.StoreRefreshTokenParams) error
}

// WatchHandler serves push-channel registration and refresh token storage.
type WatchHandler struct {
	service   watchService
	responder responder
}

func NewWatchHandler(service watchService, logger *slog.Logger) *WatchHandler {
	return &WatchHandler{service: service, responder: newResponder(logger)}
}

func (h *WatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}

	watch, err := h.service.CreateWatch(r.Context(), application.CreateWatchParams{Principal: principal})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toWatchDTO(watch))
}

func (h *WatchHandler) StoreRefreshToken(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}

	var req refreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.service.StoreRefreshToken(r.Context(), application.StoreRefreshTokenParams{
		Principal:    principal,
		RefreshToken: req.RefreshToken,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type watchDTO struct {
	ID         string `json:"id"`
	ChannelID  string `json:"channel_id"`
	Expiration string `json:"expiration"`
}

// toWatchDTO intentionally omits the channel token and resource ID; they are
// shared secrets between this service and Google.
func toWatchDTO(watch application.CalendarWatch) watchDTO {
	return watchDTO{
		ID:         watch.ID,
		ChannelID:  watch.ChannelID,
		Expiration: watch.Expiration.UTC().Format(time.RFC3339),
	}
}
