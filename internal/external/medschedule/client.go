package medschedule

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/pkg/httputil"
	"github.com/wonny/carewatch/pkg/logger"
)

var _ contracts.AdherenceSource = (*Client)(nil)

// Client reads dose events from the medication-schedule service and turns
// them into daily adherence
type Client struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a new medication-schedule client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithField("module", "medschedule"),
	}
}

// DosesResponse is the payload of GET /patients/{id}/doses
type DosesResponse struct {
	PatientID string                `json:"patient_id"`
	Doses     []contracts.DoseEvent `json:"doses"`
}

// FetchDoses returns every scheduled dose of the patient between from and to (dates inclusive)
func (c *Client) FetchDoses(ctx context.Context, patientID string, from, to time.Time) ([]contracts.DoseEvent, error) {
	q := url.Values{}
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	endpoint := fmt.Sprintf("%s/patients/%s/doses?%s", c.baseURL, url.PathEscape(patientID), q.Encode())

	var resp DosesResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch doses for %s: %w", patientID, err)
	}

	return resp.Doses, nil
}

// ListAdherence implements contracts.AdherenceSource
func (c *Client) ListAdherence(ctx context.Context, patientID string, from, to time.Time) ([]contracts.AdherenceRecord, error) {
	doses, err := c.FetchDoses(ctx, patientID, from, to)
	if err != nil {
		return nil, err
	}

	records := contracts.AggregateDoses(doses)

	c.logger.WithFields(map[string]interface{}{
		"patient_id": patientID,
		"doses":      len(doses),
		"days":       len(records),
	}).Debug("Adherence aggregated")

	return records, nil
}
