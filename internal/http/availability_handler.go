package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/booking-sync/internal/application"
)

type availabilityService interface {
	CheckAvailability(ctx context.Context, params application.CheckAvailabilityParams) (application.AvailabilityResult, error)
}

// AvailabilityHandler serves time-slot availability checks.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, responder: newResponder(logger)}
}

func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingPrincipal)
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), application.CheckAvailabilityParams{
		Principal:   principal,
		Start:       parseTimestamp(req.Start),
		End:         parseTimestamp(req.End),
		Credentials: req.credentials(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityResponse(result))
}

type availabilityRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (r availabilityRequest) credentials() application.Credentials {
	return application.Credentials{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

type availabilityResponse struct {
	Available         bool                  `json:"available"`
	BookingConflicts  []bookingDTO          `json:"booking_conflicts"`
	CalendarConflicts []calendarConflictDTO `json:"calendar_conflicts"`
}

type calendarConflictDTO struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func toAvailabilityResponse(result application.AvailabilityResult) availabilityResponse {
	response := availabilityResponse{
		Available:        result.Available,
		BookingConflicts: toBookingDTOs(result.BookingConflicts),
	}
	for _, conflict := range result.CalendarConflicts {
		response.CalendarConflicts = append(response.CalendarConflicts, calendarConflictDTO{
			EventID: conflict.EventID,
			Title:   conflict.Title,
			Start:   conflict.Start.UTC().Format(time.RFC3339),
			End:     conflict.End.UTC().Format(time.RFC3339),
		})
	}
	return response
}
