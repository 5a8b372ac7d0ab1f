package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/campusevents/apiserver/internal/services"
	"github.com/campusevents/apiserver/internal/store"
	"github.com/campusevents/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// RegistrationHandler exposes the admission engine and registration
// management over HTTP.
type RegistrationHandler struct {
	admissionService    *services.AdmissionService
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(
	admissionService *services.AdmissionService,
	registrationService *services.RegistrationService,
) *RegistrationHandler {
	return &RegistrationHandler{
		admissionService:    admissionService,
		registrationService: registrationService,
	}
}

// RegistrationRouter registers the registration routes that live outside
// the /events subtree.
func RegistrationRouter(
	r chi.Router,
	handler *RegistrationHandler,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	staffOnly := RequireRole(userService, types.RoleAdmin, types.RoleFaculty, types.RoleTrainer)

	r.With(authMiddleware).Get("/registrations/me", handler.ListMine)
	r.With(authMiddleware, staffOnly).Get("/analytics/participation", handler.Participation)
}

// Register runs the admission engine for the authenticated user against the
// event in the URL. Business rejections come back with 409 and a stable
// reason code; admission returns 201 with the registration.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.admissionService.Admit(r.Context(), userID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user or event not found")
		case errors.Is(err, services.ErrAdmissionContention):
			writeError(w, http.StatusServiceUnavailable, "registration is contended, try again")
		default:
			writeError(w, http.StatusInternalServerError, "failed to process registration")
		}
		return
	}

	switch result.Outcome {
	case types.OutcomeAdmitted:
		writeJSON(w, http.StatusCreated, result)
	case types.OutcomeRejected:
		writeJSON(w, http.StatusConflict, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// CancelRegistration withdraws the authenticated user's registration.
func (h *RegistrationHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registrationService.Cancel(r.Context(), userID, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no active registration")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to cancel registration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListForEvent returns all active registrations for an event.
func (h *RegistrationHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	regs, err := h.registrationService.ListByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}
	if regs == nil {
		regs = []types.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListMine returns the authenticated user's registrations.
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	regs, err := h.registrationService.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}
	if regs == nil {
		regs = []types.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// AttendanceRequest identifies whose attendance to mark.
type AttendanceRequest struct {
	UserID int `json:"user_id"`
}

// MarkAttendance records a registered user as present at the event.
func (h *RegistrationHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	reg, err := h.registrationService.MarkAttendance(r.Context(), req.UserID, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no active registration")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to mark attendance")
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ExportCSV streams the event's registrations as CSV. When object storage
// is configured the archived copy's key is exposed in a response header.
func (h *RegistrationHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, key, err := h.registrationService.ExportCSV(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export registrations")
		return
	}

	if key != "" {
		w.Header().Set("X-Export-Key", key)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=event-%d-registrations.csv", eventID))
	_, _ = w.Write(data)
}

// Participation returns confirmed and attended counts per event and
// department.
func (h *RegistrationHandler) Participation(w http.ResponseWriter, r *http.Request) {
	report, err := h.registrationService.Participation(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	if report == nil {
		report = []store.ParticipationRow{}
	}
	writeJSON(w, http.StatusOK, report)
}
