package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wonny/carewatch/internal/api/handlers"
	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engine"
	"github.com/wonny/carewatch/internal/engineconfig"
	"github.com/wonny/carewatch/internal/monitoring"
	"github.com/wonny/carewatch/pkg/logger"
)

var now = time.Date(2025, 5, 7, 9, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return contracts.Day(now).AddDate(0, 0, offset)
}

// fixedStore serves the same history for every patient
type fixedStore struct {
	entries []contracts.HealthLogEntry
}

func (s fixedStore) ListPatients(ctx context.Context) ([]string, error) {
	return []string{"p-1"}, nil
}

func (s fixedStore) ListEntries(ctx context.Context, patientID string, from, to time.Time) ([]contracts.HealthLogEntry, error) {
	return s.entries, nil
}

func (s fixedStore) ListAdherence(ctx context.Context, patientID string, from, to time.Time) ([]contracts.AdherenceRecord, error) {
	return nil, nil
}

func twoDays() []contracts.HealthLogEntry {
	return []contracts.HealthLogEntry{
		{Date: day(-1), PainLevel: 4, Mood: contracts.MoodFair},
		{Date: day(0), PainLevel: 3, Mood: contracts.MoodGood, Symptoms: []contracts.Symptom{{Name: "bleeding", Severity: 9}}},
	}
}

func newTestRouter(t *testing.T, withService bool, limiter *rate.Limiter) http.Handler {
	t.Helper()
	log := logger.Nop()

	eng, err := engine.New(engineconfig.Default(), log)
	require.NoError(t, err)

	var svc *monitoring.Service
	if withService {
		store := fixedStore{entries: twoDays()}
		svc = monitoring.NewService(eng, store, store, nil, monitoring.Options{
			Now: func() time.Time { return now },
		}, log)
	}

	return NewRouter(Handlers{
		Health:      handlers.NewHealthHandler(nil, eng.ConfigHash()),
		Assessments: handlers.NewAssessmentHandler(eng, svc, log),
		Cohort:      handlers.NewCohortHandler(eng, svc, log),
	}, limiter, log)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t, false, nil), "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "not configured", body["database"])
	assert.NotEmpty(t, body["config_hash"])
}

func TestComputeAssessment(t *testing.T) {
	router := newTestRouter(t, false, nil)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{
			name:     "valid window",
			body:     contracts.PatientWindow{PatientID: "p-1", Entries: twoDays()},
			wantCode: http.StatusOK,
		},
		{
			name:     "single day",
			body:     contracts.PatientWindow{PatientID: "p-1", Entries: twoDays()[:1]},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing patient",
			body:     contracts.PatientWindow{Entries: twoDays()},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not json",
			body:     "{",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown field",
			body:     `{"patient_id":"p-1","entries":[],"extra":1}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, "POST", "/api/assessments", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestComputeAssessment_Body(t *testing.T) {
	rec := do(t, newTestRouter(t, false, nil), "POST", "/api/assessments",
		contracts.PatientWindow{PatientID: "p-1", Entries: twoDays()})
	require.Equal(t, http.StatusOK, rec.Code)

	var a contracts.RecoveryAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "p-1", a.PatientID)
	assert.Equal(t, contracts.StatusCritical, a.Status)
	assert.NotEmpty(t, a.Alerts)
}

func TestComputeAssessment_InsufficientBody(t *testing.T) {
	rec := do(t, newTestRouter(t, false, nil), "POST", "/api/assessments",
		contracts.PatientWindow{PatientID: "p-1", Entries: twoDays()[:1]})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["valid_days"])
	assert.Equal(t, float64(2), body["required"])
}

func TestGetPatientAssessment(t *testing.T) {
	rec := do(t, newTestRouter(t, true, nil), "GET", "/api/patients/p-1/assessment?refresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var a contracts.RecoveryAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "p-1", a.PatientID)
	assert.Equal(t, day(0), a.AsOf)
}

func TestServiceEndpoints_WithoutLogStore(t *testing.T) {
	router := newTestRouter(t, false, nil)

	for _, path := range []string{"/api/patients/p-1/assessment", "/api/cohort/ranking", "/api/cohort/attention"} {
		rec := do(t, router, "GET", path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestRankCohort(t *testing.T) {
	router := newTestRouter(t, false, nil)

	members := []contracts.CohortMember{
		{PatientID: "steady", Assessment: &contracts.RecoveryAssessment{PatientID: "steady", Score: 80, Status: contracts.StatusImproving}},
		{PatientID: "slipping", Assessment: &contracts.RecoveryAssessment{PatientID: "slipping", Score: 40, Status: contracts.StatusConcerning}},
	}

	rec := do(t, router, "POST", "/api/cohort/rank", handlers.RankRequest{Members: members})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.RankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"slipping", "steady"}, resp.PatientIDs)
	assert.Equal(t, 1, resp.Ranking[0].Rank)

	rec = do(t, router, "POST", "/api/cohort/rank", handlers.RankRequest{Members: []contracts.CohortMember{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, "POST", "/api/cohort/rank", handlers.RankRequest{Members: []contracts.CohortMember{{PatientID: "x"}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCohortRankingAndAttention(t *testing.T) {
	router := newTestRouter(t, true, nil)

	rec := do(t, router, "GET", "/api/cohort/ranking", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot monitoring.CohortSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	require.Len(t, snapshot.Ranking, 1)
	assert.Equal(t, "p-1", snapshot.Ranking[0].PatientID)

	rec = do(t, router, "GET", "/api/cohort/attention", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var attention struct {
		Count    int                       `json:"count"`
		Patients []contracts.RankedPatient `json:"patients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attention))
	assert.Equal(t, 1, attention.Count)
	assert.Equal(t, contracts.StatusCritical, attention.Patients[0].Status)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, false, rate.NewLimiter(rate.Limit(0.001), 1))

	body := contracts.PatientWindow{PatientID: "p-1", Entries: twoDays()}
	assert.Equal(t, http.StatusOK, do(t, router, "POST", "/api/assessments", body).Code)

	rec := do(t, router, "POST", "/api/assessments", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health is outside the limited subrouter
	assert.Equal(t, http.StatusOK, do(t, router, "GET", "/health", nil).Code)
}
