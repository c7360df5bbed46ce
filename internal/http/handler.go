// Package httpapp exposes the coordination layer as a JSON API.
package httpapp

import (
	"encoding/json"
	"net/http"

	"radiocat/internal/app"
	"radiocat/internal/domain"
	"radiocat/internal/logger"
	"radiocat/internal/store"
)

type Handler struct {
	Shows    *app.ShowService
	Tasks    *app.TaskService
	Intake   *app.IntakeService
	Settings *store.SettingsRepo
	Logger   *logger.Logger
}

func NewHandler(shows *app.ShowService, tasks *app.TaskService, intake *app.IntakeService, settings *store.SettingsRepo, log *logger.Logger) *Handler {
	return &Handler{
		Shows:    shows,
		Tasks:    tasks,
		Intake:   intake,
		Settings: settings,
		Logger:   log.WithComponent("http"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Store failures are
// reported as unavailable without leaking internals.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case domain.IsConflict(err), domain.IsInvalidTransition(err):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case domain.IsValidation(err):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case domain.IsStoreError(err):
		h.Logger.Error("Store failure", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
	default:
		h.Logger.Error("Unhandled error", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
