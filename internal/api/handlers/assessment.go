package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engine"
	"github.com/wonny/carewatch/internal/monitoring"
	"github.com/wonny/carewatch/pkg/logger"
)

// AssessmentHandler serves single-patient assessments
type AssessmentHandler struct {
	engine  *engine.Engine
	service *monitoring.Service
	logger  *logger.Logger
}

// NewAssessmentHandler creates a new assessment handler.
// service may be nil when no log store is configured.
func NewAssessmentHandler(eng *engine.Engine, service *monitoring.Service, log *logger.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		engine:  eng,
		service: service,
		logger:  log,
	}
}

// Compute assesses the window supplied in the body
// POST /api/assessments
func (h *AssessmentHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req contracts.PatientWindow
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := h.engine.ComputeAssessment(req.PatientID, req.Entries, req.Adherence)
	if err != nil {
		if respondEngineError(w, err) {
			return
		}
		h.logger.WithError(err).WithPatient(req.PatientID).Error("Failed to compute assessment")
		respondError(w, http.StatusInternalServerError, "Failed to compute assessment")
		return
	}

	respondJSON(w, http.StatusOK, assessment)
}

// GetPatient assesses a stored patient
// GET /api/patients/{id}/assessment?refresh=true
func (h *AssessmentHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Log store is not configured")
		return
	}

	patientID := mux.Vars(r)["id"]
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	assessment, err := h.service.AssessPatient(r.Context(), patientID, refresh)
	if err != nil {
		if respondEngineError(w, err) {
			return
		}
		h.logger.WithError(err).WithPatient(patientID).Error("Failed to assess patient")
		respondError(w, http.StatusInternalServerError, "Failed to assess patient")
		return
	}

	respondJSON(w, http.StatusOK, assessment)
}
