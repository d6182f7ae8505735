package billai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(`{
			"summary": "typical commercial profile",
			"anomalies": [{"title": "midnight spike", "description": "", "confidence": 0.8}],
			"recommendations": [],
			"patterns": []
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	got, err := c.Analyze(context.Background(), Features{TotalKwh: 400})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "typical commercial profile" {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(got.Anomalies) != 1 {
		t.Errorf("anomalies = %d, want 1", len(got.Anomalies))
	}
}

func TestAnalyzeFailsClosed(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "unexpected shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"summary": "ok", "surprise_field": true}`))
			},
		},
		{
			name: "confidence out of range",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"summary":"","anomalies":[{"title":"x","description":"","confidence":7}],"recommendations":[],"patterns":[]}`))
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>oops</html>`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := New(srv.URL, time.Second)
			got, err := c.Analyze(context.Background(), Features{})
			if !errors.Is(err, ErrAnalysisUnavailable) {
				t.Fatalf("error = %v, want ErrAnalysisUnavailable", err)
			}
			if got.Summary != "" || len(got.Anomalies) != 0 {
				t.Errorf("insights not zeroed on failure: %+v", got)
			}
		})
	}
}

func TestAnalyzeNoEndpoint(t *testing.T) {
	c := New("", time.Second)
	if _, err := c.Analyze(context.Background(), Features{}); !errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("error = %v, want ErrAnalysisUnavailable", err)
	}
}
