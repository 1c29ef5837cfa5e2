package handlers

import (
	"fmt"
	"net/http"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engine"
	"github.com/wonny/carewatch/internal/monitoring"
	"github.com/wonny/carewatch/pkg/logger"
)

// CohortHandler serves cohort rankings
type CohortHandler struct {
	engine  *engine.Engine
	service *monitoring.Service
	logger  *logger.Logger
}

// NewCohortHandler creates a new cohort handler. service may be nil.
func NewCohortHandler(eng *engine.Engine, service *monitoring.Service, log *logger.Logger) *CohortHandler {
	return &CohortHandler{
		engine:  eng,
		service: service,
		logger:  log,
	}
}

// RankRequest carries finalized assessments to order
type RankRequest struct {
	Members []contracts.CohortMember `json:"members"`
}

// RankResponse is the ordered cohort
type RankResponse struct {
	Ranking    []contracts.RankedPatient `json:"ranking"`
	PatientIDs []string                  `json:"patient_ids"`
}

// Rank orders the members in the body
// POST /api/cohort/rank
func (h *CohortHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	for i, m := range req.Members {
		if m.Assessment == nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("members[%d]: assessment is required", i))
			return
		}
	}

	ranking, err := h.engine.RankCohortDetailed(req.Members)
	if err != nil {
		if respondEngineError(w, err) {
			return
		}
		h.logger.WithError(err).Error("Failed to rank cohort")
		respondError(w, http.StatusInternalServerError, "Failed to rank cohort")
		return
	}

	ids := make([]string, 0, len(ranking))
	for _, p := range ranking {
		ids = append(ids, p.PatientID)
	}

	respondJSON(w, http.StatusOK, RankResponse{Ranking: ranking, PatientIDs: ids})
}

// GetRanking returns the latest published cohort snapshot
// GET /api/cohort/ranking
func (h *CohortHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Log store is not configured")
		return
	}

	snapshot, err := h.service.LatestRanking(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cohort ranking")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve cohort ranking")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// GetAttention returns concerning and critical patients in ranking order
// GET /api/cohort/attention
func (h *CohortHandler) GetAttention(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Log store is not configured")
		return
	}

	patients, err := h.service.Attention(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get attention list")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve attention list")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(patients),
		"patients": patients,
	})
}
