package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engine"
)

const maxBodyBytes = 4 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// insufficientDataResponse is the 422 body
type insufficientDataResponse struct {
	Error     string                          `json:"error"`
	PatientID string                          `json:"patient_id"`
	ValidDays int                             `json:"valid_days"`
	Required  int                             `json:"required"`
	Rejected  []contracts.MalformedEntryError `json:"rejected,omitempty"`
}

// respondEngineError maps engine errors to status codes.
// It reports false for errors it does not recognise.
func respondEngineError(w http.ResponseWriter, err error) bool {
	var insufficient *contracts.InsufficientDataError
	var empty contracts.EmptyCohortError

	switch {
	case errors.As(err, &insufficient):
		respondJSON(w, http.StatusUnprocessableEntity, insufficientDataResponse{
			Error:     err.Error(),
			PatientID: insufficient.PatientID,
			ValidDays: insufficient.ValidDays,
			Required:  insufficient.Required,
			Rejected:  insufficient.Rejected,
		})
	case errors.As(err, &empty), errors.Is(err, engine.ErrMissingPatientID):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		return false
	}
	return true
}

// decodeBody reads a single JSON document, rejecting unknown fields
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
