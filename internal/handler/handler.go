package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/middleware"
	"github.com/Dan9191/commission-scheduler/internal/models"
	"github.com/Dan9191/commission-scheduler/internal/service"
)

// Handler serves the operator API for schedules and reminders
type Handler struct {
	svc  *service.Service
	auth *service.Authenticator
	log  *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(svc *service.Service, auth *service.Authenticator, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, auth: auth, log: log}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type candidateSetResponse struct {
	Entities map[models.EntityType][]models.Entity `json:"entities"`
	Warnings map[models.EntityType]string          `json:"warnings,omitempty"`
}

// Login exchanges operator credentials for a token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ListCandidates handles GET /candidates?entity_type=
func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	entityType := models.EntityType(r.URL.Query().Get("entity_type"))
	entities, err := h.svc.ListCandidates(r.Context(), entityType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entities)
}

// ListAllCandidates handles GET /candidates/all; failed sources become warnings
func (h *Handler) ListAllCandidates(w http.ResponseWriter, r *http.Request) {
	set := h.svc.ListAllCandidates(r.Context())
	resp := candidateSetResponse{Entities: set.Entities}
	if len(set.Errors) > 0 {
		resp.Warnings = make(map[models.EntityType]string, len(set.Errors))
		for entityType, err := range set.Errors {
			resp.Warnings[entityType] = err.Error()
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListSchedules handles GET /schedules?entity_type=
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter := models.ScheduleFilter{EntityType: models.EntityType(r.URL.Query().Get("entity_type"))}
	schedules, err := h.svc.ListSchedules(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, schedules)
}

// CreateSchedule handles POST /schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req service.CreateScheduleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	schedule, err := h.svc.CreateSchedule(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.operatorLog(r).Infof("Schedule %s created", schedule.ID)
	h.writeJSON(w, http.StatusCreated, schedule)
}

// GetSchedule handles GET /schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.svc.GetSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, schedule)
}

// EditSchedule handles PATCH /schedules/{id}
func (h *Handler) EditSchedule(w http.ResponseWriter, r *http.Request) {
	var req service.EditScheduleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	schedule, err := h.svc.EditSchedule(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.operatorLog(r).Infof("Schedule %s edited", schedule.ID)
	h.writeJSON(w, http.StatusOK, schedule)
}

// ProcessSchedule handles POST /schedules/{id}/process (collect or pay)
func (h *Handler) ProcessSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.svc.ProcessSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.operatorLog(r).Infof("Schedule %s processed", schedule.ID)
	h.writeJSON(w, http.StatusOK, schedule)
}

// DeleteSchedule handles DELETE /schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.svc.DeleteSchedule(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.operatorLog(r).Infof("Schedule %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// Reminders handles GET /reminders
func (h *Handler) Reminders(w http.ResponseWriter, r *http.Request) {
	feed, err := h.svc.Reminders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, feed)
}

// ReminderSummary handles GET /reminders/summary
func (h *Handler) ReminderSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.ReminderSummary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// operatorLog tags entries with the operator from the request token
func (h *Handler) operatorLog(r *http.Request) *logrus.Entry {
	operator, _ := middleware.Operator(r.Context())
	return h.log.WithField("operator", operator)
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperror.Invalid("malformed request body: %v", err)
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("Request failed: %v", err)
	}
	h.writeJSON(w, status, errorResponse{Code: apperror.Code(err), Message: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}
