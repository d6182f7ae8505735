package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/smartutility/energy-insights/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
}

func newTestCostAnalyzer() *CostAnalyzer {
	a := NewCostAnalyzer(DefaultTariff())
	a.now = fixedNow
	return a
}

// readingsAt builds one reading per (hour, value) pair on 2024-03-01.
func readingsAt(hours []int, values []float64) []domain.Reading {
	out := make([]domain.Reading, len(hours))
	for i := range hours {
		out[i] = domain.Reading{
			Timestamp: time.Date(2024, 3, 1, hours[i], 0, 0, 0, time.UTC),
			Value:     values[i],
		}
	}
	return out
}

func TestCalculateBreakdownScenarioA(t *testing.T) {
	a := newTestCostAnalyzer()
	readings := readingsAt([]int{10, 14, 6, 20, 23}, []float64{100, 150, 50, 75, 25})

	b := a.CalculateBreakdown(readings)

	if math.Abs(b.PeakCost-37.5) > 1e-9 {
		t.Errorf("peak_cost = %v, want 37.5", b.PeakCost)
	}
	if math.Abs(b.OffPeakCost-12.0) > 1e-9 {
		t.Errorf("off_peak_cost = %v, want 12.0", b.OffPeakCost)
	}
	if math.Abs(b.DemandCharges-1500) > 1e-9 {
		t.Errorf("demand_charges = %v, want 1500", b.DemandCharges)
	}
	if b.FixedCharges != 50 {
		t.Errorf("fixed_charges = %v, want 50", b.FixedCharges)
	}
	wantTaxes := 0.08 * (37.5 + 12.0 + 1500 + 50)
	if math.Abs(b.Taxes-wantTaxes) > 1e-9 {
		t.Errorf("taxes = %v, want %v", b.Taxes, wantTaxes)
	}
}

func TestCalculateBreakdownAllOffPeak(t *testing.T) {
	a := newTestCostAnalyzer()
	readings := readingsAt([]int{0, 3, 20, 23}, []float64{10, 20, 30, 40})

	b := a.CalculateBreakdown(readings)
	if b.PeakCost != 0 {
		t.Errorf("peak_cost = %v, want 0 for all off-peak readings", b.PeakCost)
	}
	if b.OffPeakCost <= 0 {
		t.Errorf("off_peak_cost = %v, want > 0", b.OffPeakCost)
	}
}

func TestAnalyzeCostsEmptyInput(t *testing.T) {
	a := newTestCostAnalyzer()
	report := a.AnalyzeCosts(nil, nil)

	if report.Breakdown.PeakCost != 0 {
		t.Errorf("breakdown.peak_cost = %v, want 0", report.Breakdown.PeakCost)
	}
	if report.Breakdown.FixedCharges != 0 {
		t.Errorf("breakdown.fixed_charges = %v, want 0 for empty input", report.Breakdown.FixedCharges)
	}
	if report.Metrics.AverageCostPerKwh != 0 {
		t.Errorf("metrics.averageCostPerKwh = %v, want 0", report.Metrics.AverageCostPerKwh)
	}
	if len(report.Anomalies) != 0 {
		t.Errorf("anomalies = %d, want 0", len(report.Anomalies))
	}
	if len(report.SavingOpportunities) != 0 {
		t.Errorf("savingOpportunities = %d, want 0", len(report.SavingOpportunities))
	}
	if len(report.HourlyForecast) != 24 {
		t.Errorf("hourly forecast = %d entries, want 24", len(report.HourlyForecast))
	}
	if len(report.TimeOfUse) != 168 {
		t.Errorf("time of use = %d entries, want 168", len(report.TimeOfUse))
	}
}

func TestForecastCardinality(t *testing.T) {
	a := newTestCostAnalyzer()
	readings := readingsAt([]int{10, 14}, []float64{100, 150})

	if got := len(a.GenerateHourlyForecast(readings)); got != 24 {
		t.Errorf("hourly forecast = %d entries, want 24", got)
	}
	if got := len(a.GenerateDailyForecast(readings)); got != 30 {
		t.Errorf("daily forecast = %d entries, want 30", got)
	}
	if got := len(a.GenerateTimeOfUseCosts(readings)); got != 168 {
		t.Errorf("time of use = %d entries, want 168", got)
	}

	// Cardinality holds for empty input too.
	if got := len(a.GenerateHourlyForecast(nil)); got != 24 {
		t.Errorf("empty hourly forecast = %d entries, want 24", got)
	}
	if got := len(a.GenerateDailyForecast(nil)); got != 30 {
		t.Errorf("empty daily forecast = %d entries, want 30", got)
	}
	if got := len(a.GenerateTimeOfUseCosts(nil)); got != 168 {
		t.Errorf("empty time of use = %d entries, want 168", got)
	}
}

func TestHourlyForecastBand(t *testing.T) {
	a := newTestCostAnalyzer()
	readings := readingsAt([]int{10, 10}, []float64{100, 200})

	forecast := a.GenerateHourlyForecast(readings)
	want := 150 * 0.15 // average usage at hour 10 times the peak rate
	got := forecast[10]
	if math.Abs(got.PredictedCost-want) > 1e-9 {
		t.Errorf("hour 10 predicted = %v, want %v", got.PredictedCost, want)
	}
	if math.Abs(got.ConfidenceInterval.Lower-want*0.8) > 1e-9 ||
		math.Abs(got.ConfidenceInterval.Upper-want*1.2) > 1e-9 {
		t.Errorf("band = %+v, want ±20%% around %v", got.ConfidenceInterval, want)
	}

	// Hours with no samples carry a zero cost and zero band.
	if forecast[3].PredictedCost != 0 || forecast[3].ConfidenceInterval.Upper != 0 {
		t.Errorf("hour 3 = %+v, want zeroed", forecast[3])
	}
}

func TestCalculateMetricsGuards(t *testing.T) {
	a := newTestCostAnalyzer()

	m := a.CalculateMetrics(CostBreakdown{}, 0, 0, 0)
	if m.AverageCostPerKwh != 0 || m.PeakCostPerKwh != 0 || m.OffPeakCostPerKwh != 0 || m.DemandCostPerKw != 0 {
		t.Errorf("zero-usage metrics = %+v, want all zero", m)
	}

	// Zero peak usage must not produce NaN from the peak ratio.
	b := CostBreakdown{OffPeakCost: 8}
	m = a.CalculateMetrics(b, 100, 0, 50)
	if m.PeakCostPerKwh != 0 {
		t.Errorf("peakCostPerKwh = %v, want 0", m.PeakCostPerKwh)
	}
	if math.IsNaN(m.OffPeakCostPerKwh) || m.OffPeakCostPerKwh <= 0 {
		t.Errorf("offPeakCostPerKwh = %v, want positive", m.OffPeakCostPerKwh)
	}
}

func TestCalculatePercentageChange(t *testing.T) {
	if got := CalculatePercentageChange(50, 50); got != 0 {
		t.Errorf("change(x, x) = %v, want 0", got)
	}
	if got := CalculatePercentageChange(50, 0); got != 0 {
		t.Errorf("change(x, 0) = %v, want 0", got)
	}
	if got := CalculatePercentageChange(150, 100); math.Abs(got-50) > 1e-9 {
		t.Errorf("change = %v, want 50", got)
	}
}

func TestCalculateComparisonNoPrevious(t *testing.T) {
	a := newTestCostAnalyzer()
	readings := readingsAt([]int{10, 14, 20}, []float64{100, 150, 50})

	cmp := a.CalculateComparison(readings, nil)
	if cmp.TotalChange != 0 || cmp.AverageChange != 0 || cmp.PeakChange != 0 || cmp.OffPeakChange != 0 {
		t.Errorf("self comparison changes = %+v, want all zero", cmp)
	}
}

func TestDetectAnomaliesSeverity(t *testing.T) {
	a := newTestCostAnalyzer()

	// A flat baseline with one spike: the spike is the sole anomaly.
	hours := []int{0, 1, 2, 3, 4, 20, 23}
	values := []float64{10, 10, 10, 10, 10, 10, 200}
	anomalies := a.DetectAnomalies(readingsAt(hours, values))

	if len(anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(anomalies))
	}
	spike := anomalies[0]
	if spike.Severity != SeverityHigh {
		t.Errorf("severity = %s, want high", spike.Severity)
	}
	if spike.Confidence < 0.7 {
		t.Errorf("confidence = %v, want >= 0.7", spike.Confidence)
	}
	if spike.RootCause != "nighttime consumption" {
		t.Errorf("rootCause = %q, want nighttime consumption", spike.RootCause)
	}
}

func TestSeverityMonotonic(t *testing.T) {
	rank := map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2}
	deviations := []float64{1.1, 1.5, 1.9, 2.0, 2.1, 3.5}
	for i := 1; i < len(deviations); i++ {
		lo := severityForDeviation(deviations[i-1])
		hi := severityForDeviation(deviations[i])
		if rank[lo] > rank[hi] {
			t.Errorf("severity(%v)=%s > severity(%v)=%s", deviations[i-1], lo, deviations[i], hi)
		}
	}
}

func TestDetectAnomaliesZeroVariance(t *testing.T) {
	a := newTestCostAnalyzer()
	readings := readingsAt([]int{1, 2, 3, 4}, []float64{10, 10, 10, 10})
	if got := a.DetectAnomalies(readings); len(got) != 0 {
		t.Errorf("anomalies on flat costs = %d, want 0", len(got))
	}
}

func TestGenerateSavingOpportunities(t *testing.T) {
	a := newTestCostAnalyzer()

	// Peak cost well above 1.5x off-peak and dominant demand charges.
	b := CostBreakdown{
		PeakCost:      300,
		OffPeakCost:   100,
		DemandCharges: 400,
		FixedCharges:  50,
		Taxes:         68,
	}
	opps := a.GenerateSavingOpportunities(b, a.GenerateTimeOfUseCosts(nil))

	categories := map[OpportunityCategory]bool{}
	for _, o := range opps {
		categories[o.Category] = true
		if o.PotentialSavings <= 0 {
			t.Errorf("%s opportunity has savings %v, want > 0", o.Category, o.PotentialSavings)
		}
	}
	if !categories[CategoryPeakReduction] {
		t.Error("expected a peak-reduction opportunity")
	}
	if !categories[CategoryDemandResponse] {
		t.Error("expected a demand-response opportunity")
	}

	// Balanced breakdown yields nothing.
	balanced := CostBreakdown{PeakCost: 100, OffPeakCost: 100, FixedCharges: 50}
	if got := a.GenerateSavingOpportunities(balanced, a.GenerateTimeOfUseCosts(nil)); len(got) != 0 {
		t.Errorf("balanced opportunities = %d, want 0", len(got))
	}
}

func TestAnalyzeCostsIdempotent(t *testing.T) {
	a := newTestCostAnalyzer()
	readings := readingsAt([]int{10, 14, 6, 20, 23}, []float64{100, 150, 50, 75, 25})

	r1 := a.AnalyzeCosts(readings, nil)
	r2 := a.AnalyzeCosts(readings, nil)

	// IDs and creation stamps are identity fields; everything derived
	// from the readings must match exactly.
	if r1.Breakdown.PeakCost != r2.Breakdown.PeakCost ||
		r1.Breakdown.Taxes != r2.Breakdown.Taxes {
		t.Error("breakdown differs between identical runs")
	}
	if r1.Metrics != r2.Metrics {
		t.Errorf("metrics differ: %+v vs %+v", r1.Metrics, r2.Metrics)
	}
	if len(r1.Anomalies) != len(r2.Anomalies) {
		t.Error("anomaly counts differ between identical runs")
	}
	for i := range r1.TimeOfUse {
		if r1.TimeOfUse[i] != r2.TimeOfUse[i] {
			t.Fatalf("time-of-use cell %d differs", i)
		}
	}
	for i := range r1.HourlyForecast {
		if r1.HourlyForecast[i] != r2.HourlyForecast[i] {
			t.Fatalf("forecast entry %d differs", i)
		}
	}
}

func TestAggregatePatternsConfidence(t *testing.T) {
	a := newTestCostAnalyzer()

	// Four readings in the same hour bucket: hourly confidence 4/30,
	// weekly confidence 4/4 = 1 (all land on the same weekday).
	readings := make([]domain.Reading, 4)
	for i := range readings {
		readings[i] = domain.Reading{
			Timestamp: time.Date(2024, 3, 1, 10, i * 10, 0, 0, time.UTC),
			Value:     50,
		}
	}

	p := a.aggregatePatterns(readings)
	if math.Abs(p.Hourly[10].Confidence-4.0/30.0) > 1e-9 {
		t.Errorf("hourly confidence = %v, want %v", p.Hourly[10].Confidence, 4.0/30.0)
	}
	if p.Weekly[5].Confidence != 1 { // 2024-03-01 is a Friday
		t.Errorf("weekly confidence = %v, want 1", p.Weekly[5].Confidence)
	}
	if p.Monthly[2].Samples != 4 {
		t.Errorf("march samples = %d, want 4", p.Monthly[2].Samples)
	}
}

func TestUnsortedInputHandled(t *testing.T) {
	a := newTestCostAnalyzer()

	// Same readings in shuffled order produce the same breakdown.
	ordered := readingsAt([]int{6, 10, 14, 20, 23}, []float64{50, 100, 150, 75, 25})
	shuffled := readingsAt([]int{23, 6, 14, 10, 20}, []float64{25, 50, 150, 100, 75})

	b1 := a.CalculateBreakdown(ordered)
	b2 := a.CalculateBreakdown(shuffled)
	if b1.PeakCost != b2.PeakCost || b1.OffPeakCost != b2.OffPeakCost {
		t.Errorf("order-dependent breakdown: %+v vs %+v", b1, b2)
	}
}
