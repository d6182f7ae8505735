// Package billai calls the external bill-analysis text-generation
// service. The service receives normalized usage features and replies
// with JSON-encoded anomalies, recommendations and patterns. Its output
// is never trusted blindly: anything that is not a 2xx response with
// the expected shape collapses into ErrAnalysisUnavailable.
package billai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrAnalysisUnavailable is the only error surfaced to callers. The
// wrapped cause stays in the log; handlers render zeroed insights.
var ErrAnalysisUnavailable = errors.New("billai: analysis unavailable")

// Features is the normalized input forwarded to the service.
type Features struct {
	TotalKwh        float64   `json:"total_kwh"`
	PeakShare       float64   `json:"peak_share"`
	TotalCost       float64   `json:"total_cost"`
	AnomalyCount    int       `json:"anomaly_count"`
	HourlyAverages  []float64 `json:"hourly_averages"`
	WeekdayAverages []float64 `json:"weekday_averages"`
}

type Insight struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// BillInsights is the validated service output.
type BillInsights struct {
	Summary         string    `json:"summary"`
	Anomalies       []Insight `json:"anomalies"`
	Recommendations []Insight `json:"recommendations"`
	Patterns        []Insight `json:"patterns"`
}

type Client struct {
	url  string
	http *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Analyze forwards the features and returns validated insights. Any
// transport failure, non-2xx status or schema violation yields a zeroed
// BillInsights and ErrAnalysisUnavailable.
func (c *Client) Analyze(ctx context.Context, features Features) (BillInsights, error) {
	if c.url == "" {
		return BillInsights{}, fmt.Errorf("%w: no endpoint configured", ErrAnalysisUnavailable)
	}

	body, err := json.Marshal(features)
	if err != nil {
		return BillInsights{}, fmt.Errorf("%w: encode features: %v", ErrAnalysisUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return BillInsights{}, fmt.Errorf("%w: build request: %v", ErrAnalysisUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("bill insight service unreachable")
		return BillInsights{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return BillInsights{}, fmt.Errorf("%w: status %d", ErrAnalysisUnavailable, resp.StatusCode)
	}

	var insights BillInsights
	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&insights); err != nil {
		return BillInsights{}, fmt.Errorf("%w: decode response: %v", ErrAnalysisUnavailable, err)
	}
	if err := validate(insights); err != nil {
		return BillInsights{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	return insights, nil
}

// validate rejects structurally valid JSON that violates the contract.
func validate(in BillInsights) error {
	for _, group := range [][]Insight{in.Anomalies, in.Recommendations, in.Patterns} {
		for _, i := range group {
			if i.Title == "" {
				return errors.New("insight missing title")
			}
			if i.Confidence < 0 || i.Confidence > 1 {
				return fmt.Errorf("insight confidence %v out of range", i.Confidence)
			}
		}
	}
	return nil
}
