// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service and checkout layers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/service"
	"github.com/Shivanand-hulikatti/event-checkout/internal/sweeper"
)

// EventHandler holds the admin and reporting handlers.
type EventHandler struct {
	svc     *service.EventService
	unsub   *service.UnsubscribeService
	sweeper *sweeper.Sweeper
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, unsub *service.UnsubscribeService, sw *sweeper.Sweeper) *EventHandler {
	return &EventHandler{svc: svc, unsub: unsub, sweeper: sw}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the error's status. Server-side failures are
// logged and their detail is kept from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	resp := model.ErrorResponse{
		Error:   apperrors.UserMessage(err),
		Request: chimiddleware.GetReqID(r.Context()),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
		)
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// CreateCalendar handles POST /calendars
func (h *EventHandler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCalendarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cal, err := h.svc.CreateCalendar(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cal)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Empty array rather than null.
	if events == nil {
		events = []model.EventConfig{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{eventID}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Availability handles GET /events/{eventID}/availability
func (h *EventHandler) Availability(w http.ResponseWriter, r *http.Request) {
	av, err := h.svc.Availability(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

// ListRegistrations handles GET /events/{eventID}/registrations
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Unsubscribe handles POST /registrations/{uuid}/unsubscribe
func (h *EventHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	reg, err := h.unsub.Unsubscribe(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// Sweep handles POST /admin/sweep
func (h *EventHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sweeper.RunExpirySweep(r.Context()))
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
