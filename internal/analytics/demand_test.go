package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/smartutility/energy-insights/internal/domain"
)

func newTestDemandAnalyzer() *DemandAnalyzer {
	a := NewDemandAnalyzer(DefaultPowerFactor)
	a.now = fixedNow
	return a
}

// batchAt builds minute-spaced readings ending shortly before fixedNow.
func batchAt(values []float64) []domain.Reading {
	base := fixedNow().Add(-time.Duration(len(values)) * time.Minute)
	out := make([]domain.Reading, len(values))
	for i, v := range values {
		out[i] = domain.Reading{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Value:     v,
		}
	}
	return out
}

func TestAnalyzeTrendIncreasing(t *testing.T) {
	a := newTestDemandAnalyzer()
	profile := a.Analyze(batchAt([]float64{40, 42, 45, 48, 52}))
	if profile.DemandTrend != TrendIncreasing {
		t.Errorf("demandTrend = %s, want increasing", profile.DemandTrend)
	}
}

func TestAnalyzeTrendStable(t *testing.T) {
	a := newTestDemandAnalyzer()
	profile := a.Analyze(batchAt([]float64{40, 40.5, 40.2, 40.8, 40.3}))
	if profile.DemandTrend != TrendStable {
		t.Errorf("demandTrend = %s, want stable", profile.DemandTrend)
	}
}

func TestAnalyzeTrendDecreasing(t *testing.T) {
	a := newTestDemandAnalyzer()
	profile := a.Analyze(batchAt([]float64{52, 48, 45, 42, 38}))
	if profile.DemandTrend != TrendDecreasing {
		t.Errorf("demandTrend = %s, want decreasing", profile.DemandTrend)
	}
}

func TestCurrentAndPeakDemand(t *testing.T) {
	a := newTestDemandAnalyzer()

	profile := a.Analyze(batchAt([]float64{40, 42, 45}))
	if profile.CurrentDemand != 45 {
		t.Errorf("currentDemand = %v, want 45", profile.CurrentDemand)
	}
	if profile.PeakDemand != 45 {
		t.Errorf("peakDemand = %v, want 45", profile.PeakDemand)
	}

	// Peak demand is scoped to the whole retained buffer, current to
	// the latest batch only.
	profile = a.Analyze(batchAt([]float64{30, 31, 32}))
	if profile.CurrentDemand != 32 {
		t.Errorf("currentDemand = %v, want 32", profile.CurrentDemand)
	}
	if profile.PeakDemand != 45 {
		t.Errorf("peakDemand = %v, want 45 from history", profile.PeakDemand)
	}
}

func TestAnalyzeEmptyBatch(t *testing.T) {
	a := newTestDemandAnalyzer()
	profile := a.Analyze(nil)
	if profile.CurrentDemand != 0 || profile.PeakDemand != 0 {
		t.Errorf("empty profile demand = %v/%v, want 0/0", profile.CurrentDemand, profile.PeakDemand)
	}
	if profile.DemandTrend != TrendStable {
		t.Errorf("demandTrend = %s, want stable", profile.DemandTrend)
	}
	if profile.PredictedPeak.Confidence != 0 {
		t.Errorf("prediction confidence = %v, want 0", profile.PredictedPeak.Confidence)
	}
}

func TestHistoryWindowInvariant(t *testing.T) {
	a := newTestDemandAnalyzer()
	now := fixedNow()

	old := []domain.Reading{
		{Timestamp: now.Add(-40 * 24 * time.Hour), Value: 90},
		{Timestamp: now.Add(-31 * 24 * time.Hour), Value: 85},
	}
	recent := []domain.Reading{
		{Timestamp: now.Add(-10 * 24 * time.Hour), Value: 50},
		{Timestamp: now.Add(-time.Hour), Value: 55},
	}

	a.Analyze(append(old, recent...))
	a.Analyze(batchAt([]float64{44, 46}))

	cutoff := now.Add(-30 * 24 * time.Hour)
	history := a.HistorySnapshot()
	for i, r := range history {
		if r.Timestamp.Before(cutoff) {
			t.Errorf("history[%d] at %v predates the 30-day cutoff", i, r.Timestamp)
		}
		if i > 0 && history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Errorf("history not sorted at index %d", i)
		}
	}

	// The stale 90 kW spike must not survive as peak demand.
	profile := a.Analyze(nil)
	if profile.PeakDemand != 55 {
		t.Errorf("peakDemand = %v, want 55 after trim", profile.PeakDemand)
	}
}

func TestReplaceHistory(t *testing.T) {
	a := newTestDemandAnalyzer()
	a.Analyze(batchAt([]float64{40, 50, 60}))

	a.ReplaceHistory(nil)
	if got := a.HistorySnapshot(); len(got) != 0 {
		t.Errorf("history after replace = %d readings, want 0", len(got))
	}
}

func TestPredictNextPeakPlaceholder(t *testing.T) {
	a := newTestDemandAnalyzer()
	profile := a.Analyze(batchAt([]float64{40, 42, 45, 48, 52}))
	if profile.PredictedPeak.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for short batch", profile.PredictedPeak.Confidence)
	}
	if profile.TimeToNextPeak != 0 {
		t.Errorf("timeToNextPeak = %v, want 0", profile.TimeToNextPeak)
	}
}

func TestPredictNextPeak(t *testing.T) {
	a := newTestDemandAnalyzer()
	now := fixedNow() // 12:00 UTC

	// One reading per hour of the previous day; hour 18 is the busiest.
	batch := make([]domain.Reading, 24)
	day := now.Add(-24 * time.Hour).Truncate(24 * time.Hour)
	for h := 0; h < 24; h++ {
		value := 40.0
		if h == 18 {
			value = 80
		}
		batch[h] = domain.Reading{Timestamp: day.Add(time.Duration(h) * time.Hour), Value: value}
	}

	profile := a.Analyze(batch)
	pred := profile.PredictedPeak

	if pred.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", pred.Confidence)
	}
	wantTime := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, time.UTC)
	if !pred.Time.Equal(wantTime) {
		t.Errorf("predicted time = %v, want %v", pred.Time, wantTime)
	}
	wantDemand := 80 * 1.45 // baseline plus additive adjustments
	if math.Abs(pred.PredictedDemand-wantDemand) > 1e-9 {
		t.Errorf("predictedDemand = %v, want %v", pred.PredictedDemand, wantDemand)
	}
	if math.Abs(pred.UncertaintyRange.Lower-wantDemand*0.9) > 1e-9 ||
		math.Abs(pred.UncertaintyRange.Upper-wantDemand*1.1) > 1e-9 {
		t.Errorf("uncertainty = %+v, want ±10%%", pred.UncertaintyRange)
	}
	if profile.TimeToNextPeak != 360 {
		t.Errorf("timeToNextPeak = %v minutes, want 360", profile.TimeToNextPeak)
	}
}

func TestRecommendationTiers(t *testing.T) {
	a := newTestDemandAnalyzer()

	// Ramp up close to the running peak: the last value crowds the max.
	profile := a.Analyze(batchAt([]float64{50, 60, 70, 80, 95, 100, 99}))

	var immediate, strategic *DemandRecommendation
	for i := range profile.Recommendations {
		r := &profile.Recommendations[i]
		switch r.Type {
		case RecommendationImmediate:
			immediate = r
		case RecommendationStrategic:
			strategic = r
		}
	}

	if immediate == nil {
		t.Fatal("expected an immediate recommendation near peak demand")
	}
	// impact = current - peak*0.7 = 99 - 70, rounded to one decimal.
	if immediate.Impact != 29 {
		t.Errorf("immediate impact = %v, want 29", immediate.Impact)
	}
	if immediate.Priority != PriorityHigh {
		t.Errorf("immediate priority = %s, want high", immediate.Priority)
	}

	if strategic == nil {
		t.Fatal("expected the always-on strategic recommendation")
	}
	if strategic.Priority != PriorityLow {
		t.Errorf("strategic priority = %s, want low", strategic.Priority)
	}
}

func TestStrategicAlwaysEmitted(t *testing.T) {
	a := newTestDemandAnalyzer()
	profile := a.Analyze(nil)
	if len(profile.Recommendations) != 1 {
		t.Fatalf("recommendations = %d, want only the strategic one", len(profile.Recommendations))
	}
	if profile.Recommendations[0].Type != RecommendationStrategic {
		t.Errorf("type = %s, want strategic", profile.Recommendations[0].Type)
	}
}

func TestRealTimeMetrics(t *testing.T) {
	a := newTestDemandAnalyzer()

	// Spiky batch: average well under the final reading.
	profile := a.Analyze(batchAt([]float64{10, 10, 10, 10, 100}))
	m := profile.RealTimeMetrics

	if math.Abs(m.AverageDemand-28) > 1e-9 {
		t.Errorf("averageDemand = %v, want 28", m.AverageDemand)
	}
	if math.Abs(m.LoadFactor-0.28) > 1e-9 {
		t.Errorf("loadFactor = %v, want 0.28", m.LoadFactor)
	}

	foundWarning := false
	for _, alert := range m.Alerts {
		if alert.Level == SeverityMedium {
			foundWarning = true
		}
		if alert.Level == SeverityHigh {
			t.Errorf("unexpected critical alert with power factor %v", m.PowerFactor)
		}
	}
	if !foundWarning {
		t.Error("expected a low load factor warning")
	}
}

func TestPowerFactorAlert(t *testing.T) {
	a := NewDemandAnalyzer(0.85)
	a.now = fixedNow

	profile := a.Analyze(batchAt([]float64{40, 40, 40}))
	foundCritical := false
	for _, alert := range profile.RealTimeMetrics.Alerts {
		if alert.Level == SeverityHigh {
			foundCritical = true
		}
	}
	if !foundCritical {
		t.Error("expected a critical power factor alert at 0.85")
	}
}

func TestDemandPatternsAndPredictions(t *testing.T) {
	a := newTestDemandAnalyzer()
	profile := a.Analyze(batchAt([]float64{40, 42, 44}))

	if len(profile.Patterns.HourlyProfile) != 24 {
		t.Errorf("hourly profile = %d entries, want 24", len(profile.Patterns.HourlyProfile))
	}
	if len(profile.Patterns.WeekdayProfile) != 7 {
		t.Errorf("weekday profile = %d entries, want 7", len(profile.Patterns.WeekdayProfile))
	}
	if len(profile.Predictions) != 24 {
		t.Errorf("predictions = %d entries, want 24", len(profile.Predictions))
	}
}
