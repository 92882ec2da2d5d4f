package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Dan9191/commission-scheduler/internal/config"
	"github.com/Dan9191/commission-scheduler/internal/middleware"
)

// NewRouter wires the public and operator-only routes
func NewRouter(h *Handler, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Protected routes
	api := r.PathPrefix("/").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg))
	api.HandleFunc("/candidates", h.ListCandidates).Methods(http.MethodGet)
	api.HandleFunc("/candidates/all", h.ListAllCandidates).Methods(http.MethodGet)
	api.HandleFunc("/schedules", h.ListSchedules).Methods(http.MethodGet)
	api.HandleFunc("/schedules", h.CreateSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}", h.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/schedules/{id}", h.EditSchedule).Methods(http.MethodPatch)
	api.HandleFunc("/schedules/{id}", h.DeleteSchedule).Methods(http.MethodDelete)
	api.HandleFunc("/schedules/{id}/process", h.ProcessSchedule).Methods(http.MethodPost)
	api.HandleFunc("/reminders", h.Reminders).Methods(http.MethodGet)
	api.HandleFunc("/reminders/summary", h.ReminderSummary).Methods(http.MethodGet)
	return r
}
