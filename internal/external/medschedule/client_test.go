package medschedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/pkg/httputil"
	"github.com/wonny/carewatch/pkg/logger"
)

func day(d, hour int) time.Time {
	return time.Date(2025, 5, d, hour, 0, 0, 0, time.UTC)
}

func newClient(baseURL string) *Client {
	log := logger.Nop()
	return NewClient(baseURL+"/", httputil.New(log, 2*time.Second).WithRetry(2, time.Millisecond), log)
}

func TestListAdherence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patients/p 1/doses", r.URL.Path)
		assert.Equal(t, "2025-05-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-05-07", r.URL.Query().Get("to"))

		json.NewEncoder(w).Encode(DosesResponse{
			PatientID: "p 1",
			Doses: []contracts.DoseEvent{
				{MedicationID: "m1", ScheduledAt: day(6, 8), Status: contracts.DoseTaken},
				{MedicationID: "m2", ScheduledAt: day(6, 20), Status: contracts.DoseMissed},
				{MedicationID: "m1", ScheduledAt: day(7, 8), Status: contracts.DoseTaken},
				{MedicationID: "m2", ScheduledAt: day(7, 20), Status: contracts.DoseScheduled},
			},
		})
	}))
	defer server.Close()

	records, err := newClient(server.URL).ListAdherence(context.Background(), "p 1", day(1, 0), day(7, 0))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, day(6, 0), records[0].Date)
	assert.Equal(t, 50.0, records[0].Percent)
	assert.Equal(t, 1, records[0].MissedDoses)
	assert.Equal(t, 100.0, records[1].Percent, "pending doses are not counted")
}

func TestListAdherence_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(DosesResponse{})
	}))
	defer server.Close()

	records, err := newClient(server.URL).ListAdherence(context.Background(), "p-1", day(1, 0), day(7, 0))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListAdherence_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown patient", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newClient(server.URL).ListAdherence(context.Background(), "ghost", day(1, 0), day(7, 0))
	require.Error(t, err)

	var statusErr *httputil.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
