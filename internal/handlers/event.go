package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/campusevents/apiserver/internal/services"
	"github.com/campusevents/apiserver/internal/store"
	"github.com/campusevents/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const maxPosterBytes = 16 << 20

// EventHandler provides HTTP handlers for events and their lifecycle.
type EventHandler struct {
	eventService *services.EventService
	userService  *services.UserService
}

func NewEventHandler(eventService *services.EventService, userService *services.UserService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		userService:  userService,
	}
}

// EventRouter registers event routes on the given router.
func EventRouter(
	r chi.Router,
	eventService *services.EventService,
	userService *services.UserService,
	registrationHandler *RegistrationHandler,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewEventHandler(eventService, userService)
	staffOnly := RequireRole(userService, types.RoleAdmin, types.RoleFaculty, types.RoleTrainer)
	adminOnly := RequireRole(userService, types.RoleAdmin)

	r.Get("/", handler.ListEvents)
	r.With(authMiddleware, staffOnly).Post("/", handler.CreateEvent)
	r.Route("/{eventID}", func(r chi.Router) {
		r.Get("/", handler.GetEvent)
		r.Get("/poster", handler.GetPoster)
		r.With(authMiddleware, staffOnly).Put("/", handler.UpdateEvent)
		r.With(authMiddleware, staffOnly).Delete("/", handler.DeleteEvent)
		r.With(authMiddleware, staffOnly).Post("/poster", handler.UploadPoster)

		r.With(authMiddleware, staffOnly).Post("/submit", handler.transition(types.EventPending))
		r.With(authMiddleware, adminOnly).Post("/approve", handler.transition(types.EventApproved))
		r.With(authMiddleware, adminOnly).Post("/reject", handler.transition(types.EventRejected))
		r.With(authMiddleware, staffOnly).Post("/start", handler.transition(types.EventOngoing))
		r.With(authMiddleware, staffOnly).Post("/complete", handler.transition(types.EventCompleted))
		r.With(authMiddleware, staffOnly).Post("/cancel", handler.transition(types.EventCancelled))

		r.With(authMiddleware).Post("/register", registrationHandler.Register)
		r.With(authMiddleware).Delete("/register", registrationHandler.CancelRegistration)
		r.With(authMiddleware, staffOnly).Get("/registrations", registrationHandler.ListForEvent)
		r.With(authMiddleware, staffOnly).Get("/registrations/export", registrationHandler.ExportCSV)
		r.With(authMiddleware, staffOnly).Post("/attendance", registrationHandler.MarkAttendance)
	})
}

// EventRequest is the payload for creating or updating an event.
type EventRequest struct {
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Location     string                   `json:"location"`
	Category     string                   `json:"category"`
	Eligibility  types.EligibilityRules   `json:"eligibility"`
	Registration types.RegistrationWindow `json:"registration"`
	StartsAt     time.Time                `json:"starts_at"`
	EndsAt       time.Time                `json:"ends_at"`
}

// EventListResponse is a page of events.
type EventListResponse struct {
	Items []types.Event `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := types.EventStatus(r.URL.Query().Get("status"))
	items, total, err := h.eventService.List(r.Context(), status, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, EventListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.eventService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	organizerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	event, err := h.eventService.Create(r.Context(), types.Event{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		Category:     req.Category,
		OrganizerID:  organizerID,
		Eligibility:  req.Eligibility,
		Registration: req.Registration,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.eventService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch event")
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	current.Title = req.Title
	current.Description = req.Description
	current.Location = req.Location
	current.Category = req.Category
	current.Eligibility = req.Eligibility
	current.Registration.Required = req.Registration.Required
	current.Registration.StartDate = req.Registration.StartDate
	current.Registration.EndDate = req.Registration.EndDate
	current.Registration.MaxParticipants = req.Registration.MaxParticipants
	current.Registration.IsOpen = req.Registration.IsOpen
	current.StartsAt = req.StartsAt
	current.EndsAt = req.EndsAt

	event, err := h.eventService.Update(r.Context(), current)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.eventService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition returns a handler moving the event to the target lifecycle
// stage.
func (h *EventHandler) transition(to types.EventStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt(r, "eventID")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		event, err := h.eventService.Transition(r.Context(), id, to)
		if err != nil {
			var invalid services.ErrInvalidTransition
			switch {
			case errors.Is(err, store.ErrNotFound):
				writeError(w, http.StatusNotFound, "event not found")
			case errors.As(err, &invalid):
				writeError(w, http.StatusConflict, invalid.Error())
			default:
				writeError(w, http.StatusInternalServerError, "failed to update event status")
			}
			return
		}
		writeJSON(w, http.StatusOK, event)
	}
}

func (h *EventHandler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxPosterBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("poster")
	if err != nil {
		writeError(w, http.StatusBadRequest, "poster file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	event, err := h.eventService.UploadPoster(r.Context(), id, header.Filename, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store poster")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) GetPoster(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, err := h.eventService.Poster(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusNotFound, "poster not found")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, reader)
}
