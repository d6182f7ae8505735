package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/smartutility/energy-insights/internal/domain"
	"github.com/smartutility/energy-insights/internal/stats"
)

// Tariff carries the billing constants the cost engine works with.
// Defaults mirror a typical commercial time-of-use tariff.
type Tariff struct {
	PeakRate     float64 // $/kWh during peak hours
	OffPeakRate  float64 // $/kWh otherwise
	DemandCharge float64 // $/kW on the highest reading
	FixedCharge  float64 // $/month
	TaxRate      float64 // fraction of the subtotal
	PeakStart    int     // first peak hour, inclusive (UTC)
	PeakEnd      int     // last peak hour, inclusive (UTC)
}

// DefaultTariff returns the standard rate card.
func DefaultTariff() Tariff {
	return Tariff{
		PeakRate:     0.15,
		OffPeakRate:  0.08,
		DemandCharge: 10.0,
		FixedCharge:  50.0,
		TaxRate:      0.08,
		PeakStart:    9,
		PeakEnd:      17,
	}
}

// Pattern-confidence denominators: a bucket reaches full confidence at
// 30 hourly, 4 weekly and 30 monthly samples respectively.
const (
	hourlyConfidenceSamples  = 30
	weeklyConfidenceSamples  = 4
	monthlyConfidenceSamples = 30
)

// CostAnalyzer computes billing breakdowns, anomalies, forecasts and
// saving opportunities from raw readings. It is stateless and safe for
// concurrent use.
type CostAnalyzer struct {
	tariff Tariff
	now    func() time.Time
}

func NewCostAnalyzer(tariff Tariff) *CostAnalyzer {
	return &CostAnalyzer{tariff: tariff, now: time.Now}
}

// IsPeakHour reports whether the UTC hour falls in the peak window.
func (a *CostAnalyzer) IsPeakHour(t time.Time) bool {
	h := stats.HourOf(t)
	return h >= a.tariff.PeakStart && h <= a.tariff.PeakEnd
}

// rateFor returns the $/kWh rate applicable at the reading's hour.
func (a *CostAnalyzer) rateFor(t time.Time) float64 {
	if a.IsPeakHour(t) {
		return a.tariff.PeakRate
	}
	return a.tariff.OffPeakRate
}

// CalculateBreakdown partitions readings into peak and off-peak cost,
// adds the demand charge on the highest single reading, the monthly
// fixed charge and taxes. An empty input yields an all-zero breakdown.
func (a *CostAnalyzer) CalculateBreakdown(readings []domain.Reading) CostBreakdown {
	b := CostBreakdown{
		ID:        uuid.NewString(),
		CreatedAt: a.now().UTC(),
	}
	if len(readings) == 0 {
		return b
	}

	maxDemand := 0.0
	for _, r := range readings {
		if a.IsPeakHour(r.Timestamp) {
			b.PeakCost += r.Value * a.tariff.PeakRate
		} else {
			b.OffPeakCost += r.Value * a.tariff.OffPeakRate
		}
		if r.Value > maxDemand {
			maxDemand = r.Value
		}
	}

	b.DemandCharges = maxDemand * a.tariff.DemandCharge
	b.FixedCharges = a.tariff.FixedCharge
	b.Taxes = a.tariff.TaxRate * (b.PeakCost + b.OffPeakCost + b.DemandCharges + b.FixedCharges)
	return b
}

// CalculateMetrics derives the per-unit cost ratios. Every denominator
// is guarded so zero usage yields zero ratios, never NaN.
func (a *CostAnalyzer) CalculateMetrics(b CostBreakdown, totalKwh, peakKwh, peakDemandKw float64) CostMetrics {
	return CostMetrics{
		AverageCostPerKwh: stats.SafeDiv(b.Total(), totalKwh),
		PeakCostPerKwh:    stats.SafeDiv(b.PeakCost, peakKwh),
		OffPeakCostPerKwh: stats.SafeDiv(b.OffPeakCost, totalKwh-peakKwh),
		DemandCostPerKw:   stats.SafeDiv(b.DemandCharges, peakDemandKw),
	}
}

// CalculatePercentageChange returns (current-previous)/previous*100,
// or 0 when previous is 0.
func CalculatePercentageChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// CalculateComparison compares the current period against the previous
// one. With no previous readings the current set is compared against
// itself, yielding zero changes.
func (a *CostAnalyzer) CalculateComparison(current, previous []domain.Reading) CostComparison {
	if len(previous) == 0 {
		previous = current
	}
	cur := a.CalculateBreakdown(current)
	prev := a.CalculateBreakdown(previous)

	curAvg := stats.SafeDiv(cur.Total(), float64(len(current)))
	prevAvg := stats.SafeDiv(prev.Total(), float64(len(previous)))

	return CostComparison{
		Current:       cur,
		Previous:      prev,
		TotalChange:   CalculatePercentageChange(cur.Total(), prev.Total()),
		AverageChange: CalculatePercentageChange(curAvg, prevAvg),
		PeakChange:    CalculatePercentageChange(cur.PeakCost, prev.PeakCost),
		OffPeakChange: CalculatePercentageChange(cur.OffPeakCost, prev.OffPeakCost),
	}
}

// DetectAnomalies flags readings whose per-reading cost deviates more
// than one standard deviation from the batch mean. Severity grows with
// the deviation; root cause comes from a fixed decision table.
func (a *CostAnalyzer) DetectAnomalies(readings []domain.Reading) []CostAnomaly {
	anomalies := []CostAnomaly{}
	if len(readings) < 2 {
		return anomalies
	}

	costs := make([]float64, len(readings))
	for i, r := range readings {
		costs[i] = r.Value * a.rateFor(r.Timestamp)
	}

	mean := stats.Mean(costs)
	std := stats.StdDev(costs)
	if std == 0 {
		return anomalies
	}

	for i, r := range readings {
		deviation := math.Abs(costs[i]-mean) / std
		if deviation <= 1 {
			continue
		}

		severity := severityForDeviation(deviation)
		confidence := math.Max(0.7, 1-deviation/4)

		anomalies = append(anomalies, CostAnomaly{
			Date:         r.Timestamp,
			ActualCost:   costs[i],
			ExpectedCost: mean,
			Deviation:    deviation,
			Severity:     severity,
			Confidence:   confidence,
			Impact:       math.Abs(costs[i] - mean),
			Context:      fmt.Sprintf("hour %d, weekday %d", stats.HourOf(r.Timestamp), stats.WeekdayOf(r.Timestamp)),
			RootCause:    a.rootCause(r.Timestamp, deviation),
		})
	}
	return anomalies
}

func severityForDeviation(deviation float64) Severity {
	switch {
	case deviation > 2:
		return SeverityHigh
	case deviation > 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (a *CostAnalyzer) rootCause(t time.Time, deviation float64) string {
	hour := stats.HourOf(t)
	weekday := stats.WeekdayOf(t)
	switch {
	case a.IsPeakHour(t) && deviation > 2:
		return "peak hour usage spike"
	case weekday == 0 || weekday == 6:
		return "weekend anomaly"
	case hour >= 22 || hour <= 5:
		return "nighttime consumption"
	default:
		return "normal operational variation"
	}
}

// GenerateHourlyForecast projects the average cost of each hour of day
// onto the next 24 hours with a static ±20% confidence band. All 24
// hours are present even when some have no samples.
func (a *CostAnalyzer) GenerateHourlyForecast(readings []domain.Reading) []CostForecast {
	sums := make([]float64, 24)
	counts := make([]int, 24)
	for _, r := range readings {
		h := stats.HourOf(r.Timestamp)
		sums[h] += r.Value * a.rateFor(r.Timestamp)
		counts[h]++
	}

	base := a.now().UTC().Truncate(24 * time.Hour)
	out := make([]CostForecast, 24)
	for h := 0; h < 24; h++ {
		cost := 0.0
		if counts[h] > 0 {
			cost = sums[h] / float64(counts[h])
		}
		out[h] = CostForecast{
			Date:          base.Add(time.Duration(h) * time.Hour),
			PredictedCost: cost,
			ConfidenceInterval: ConfidenceInterval{
				Lower: cost * 0.8,
				Upper: cost * 1.2,
			},
		}
	}
	return out
}

// GenerateDailyForecast projects daily cost for the next 30 days using
// the average historical cost of each weekday, falling back to the
// overall daily average for weekdays with no samples.
func (a *CostAnalyzer) GenerateDailyForecast(readings []domain.Reading) []CostForecast {
	daySums := map[string]float64{}
	dayWeekday := map[string]int{}
	for _, r := range readings {
		day := r.Timestamp.UTC().Format("2006-01-02")
		daySums[day] += r.Value * a.rateFor(r.Timestamp)
		dayWeekday[day] = stats.WeekdayOf(r.Timestamp)
	}

	weekdaySums := make([]float64, 7)
	weekdayCounts := make([]int, 7)
	overall := 0.0
	for day, sum := range daySums {
		wd := dayWeekday[day]
		weekdaySums[wd] += sum
		weekdayCounts[wd]++
		overall += sum
	}
	overallAvg := stats.SafeDiv(overall, float64(len(daySums)))

	start := a.now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	out := make([]CostForecast, 30)
	for i := 0; i < 30; i++ {
		date := start.Add(time.Duration(i) * 24 * time.Hour)
		wd := stats.WeekdayOf(date)
		cost := overallAvg
		if weekdayCounts[wd] > 0 {
			cost = weekdaySums[wd] / float64(weekdayCounts[wd])
		}
		out[i] = CostForecast{
			Date:          date,
			PredictedCost: cost,
			ConfidenceInterval: ConfidenceInterval{
				Lower: cost * 0.8,
				Upper: cost * 1.2,
			},
		}
	}
	return out
}

// GenerateTimeOfUseCosts builds the 24x7 cost grid: average usage per
// (weekday, hour) cell times the applicable rate. Cells with no samples
// cost 0. Exactly 168 entries are returned for any input.
func (a *CostAnalyzer) GenerateTimeOfUseCosts(readings []domain.Reading) []TimeOfUseCost {
	var sums [7][24]float64
	var counts [7][24]int
	for _, r := range readings {
		wd := stats.WeekdayOf(r.Timestamp)
		h := stats.HourOf(r.Timestamp)
		sums[wd][h] += r.Value
		counts[wd][h]++
	}

	rates := [24]float64{}
	for h := 0; h < 24; h++ {
		if h >= a.tariff.PeakStart && h <= a.tariff.PeakEnd {
			rates[h] = a.tariff.PeakRate
		} else {
			rates[h] = a.tariff.OffPeakRate
		}
	}

	out := make([]TimeOfUseCost, 0, 168)
	for wd := 0; wd < 7; wd++ {
		for h := 0; h < 24; h++ {
			cost := 0.0
			if counts[wd][h] > 0 {
				cost = sums[wd][h] / float64(counts[wd][h]) * rates[h]
			}
			out = append(out, TimeOfUseCost{Hour: h, Weekday: wd, Cost: cost})
		}
	}
	return out
}

// GenerateSavingOpportunities emits rule-driven opportunities from the
// breakdown and the time-of-use grid. The implementation cost and
// payback figures per category are business templates, not computed.
func (a *CostAnalyzer) GenerateSavingOpportunities(b CostBreakdown, tou []TimeOfUseCost) []CostSavingOpportunity {
	opportunities := []CostSavingOpportunity{}
	total := b.Total()

	if b.PeakCost > b.OffPeakCost*1.5 {
		savings := b.PeakCost * 0.15
		const implCost = 5000.0
		opportunities = append(opportunities, CostSavingOpportunity{
			ID:                 uuid.NewString(),
			Description:        "Shift discretionary load out of the 9:00-17:00 peak window",
			PotentialSavings:   savings,
			ImplementationCost: implCost,
			PaybackPeriod:      stats.SafeDiv(implCost, savings),
			Category:           CategoryPeakReduction,
			Priority:           PriorityHigh,
			Confidence:         0.8,
			ImplementationSteps: []string{
				"Identify loads that can run overnight",
				"Configure schedules on controllable equipment",
				"Review the peak/off-peak split after one billing cycle",
			},
			ROI: stats.SafeDiv(savings*12, implCost),
		})
	}

	var peakCellSum float64
	var peakCells int
	for _, cell := range tou {
		if cell.Hour >= a.tariff.PeakStart && cell.Hour <= a.tariff.PeakEnd && cell.Cost > 0 {
			peakCellSum += cell.Cost
			peakCells++
		}
	}
	avgPeakCellCost := stats.SafeDiv(peakCellSum, float64(peakCells))
	if avgPeakCellCost > a.tariff.PeakRate*1.2 {
		savings := b.PeakCost * 0.10
		opportunities = append(opportunities, CostSavingOpportunity{
			ID:               uuid.NewString(),
			Description:      "Average peak-hour cost exceeds the tariff rate; a time-of-use plan review is warranted",
			PotentialSavings: savings,
			Category:         CategoryRateOptimization,
			Priority:         PriorityMedium,
			Confidence:       0.7,
			ImplementationSteps: []string{
				"Request alternative rate schedules from the utility",
				"Model last quarter's usage against each schedule",
			},
			ROI: savings * 12,
		})
	}

	if total > 0 && b.DemandCharges > 0.3*total {
		savings := b.DemandCharges * 0.2
		const implCost = 8000.0
		opportunities = append(opportunities, CostSavingOpportunity{
			ID:                 uuid.NewString(),
			Description:        "Demand charges dominate the bill; enroll in a demand-response program",
			PotentialSavings:   savings,
			ImplementationCost: implCost,
			PaybackPeriod:      stats.SafeDiv(implCost, savings),
			Category:           CategoryDemandResponse,
			Priority:           PriorityMedium,
			Confidence:         0.75,
			ImplementationSteps: []string{
				"Register with the regional demand-response aggregator",
				"Install curtailment controls on the largest loads",
				"Test a curtailment event before the next peak season",
			},
			ROI: stats.SafeDiv(savings*12, implCost),
		})
	}

	return opportunities
}

// AnalyzeCosts runs the full cost pipeline over the current readings,
// comparing against the previous period when supplied. It never errors:
// empty input degrades to a zeroed report.
func (a *CostAnalyzer) AnalyzeCosts(current, previous []domain.Reading) CostAnalysisReport {
	sorted := sortedByTime(current)

	breakdown := a.CalculateBreakdown(sorted)

	var totalKwh, peakKwh, maxDemand float64
	for _, r := range sorted {
		totalKwh += r.Value
		if a.IsPeakHour(r.Timestamp) {
			peakKwh += r.Value
		}
		if r.Value > maxDemand {
			maxDemand = r.Value
		}
	}

	tou := a.GenerateTimeOfUseCosts(sorted)

	return CostAnalysisReport{
		Breakdown:           breakdown,
		Metrics:             a.CalculateMetrics(breakdown, totalKwh, peakKwh, maxDemand),
		Comparison:          a.CalculateComparison(sorted, previous),
		Anomalies:           a.DetectAnomalies(sorted),
		HourlyForecast:      a.GenerateHourlyForecast(sorted),
		DailyForecast:       a.GenerateDailyForecast(sorted),
		TimeOfUse:           tou,
		SavingOpportunities: a.GenerateSavingOpportunities(breakdown, tou),
		Patterns:            a.aggregatePatterns(sorted),
	}
}

// aggregatePatterns computes hourly/weekly/monthly average-cost buckets
// with confidence = min(1, samples/N). These are plain descriptive
// statistics surfaced alongside the report.
func (a *CostAnalyzer) aggregatePatterns(readings []domain.Reading) CostPatterns {
	hourly := newBuckets(24)
	weekly := newBuckets(7)
	monthly := newBuckets(12)

	for _, r := range readings {
		cost := r.Value * a.rateFor(r.Timestamp)
		addSample(hourly, stats.HourOf(r.Timestamp), cost)
		addSample(weekly, stats.WeekdayOf(r.Timestamp), cost)
		addSample(monthly, stats.MonthOf(r.Timestamp), cost)
	}

	finishBuckets(hourly, hourlyConfidenceSamples)
	finishBuckets(weekly, weeklyConfidenceSamples)
	finishBuckets(monthly, monthlyConfidenceSamples)

	return CostPatterns{Hourly: hourly, Weekly: weekly, Monthly: monthly}
}

func newBuckets(n int) []PatternBucket {
	return make([]PatternBucket, n)
}

func addSample(buckets []PatternBucket, idx int, value float64) {
	buckets[idx].Average += value
	buckets[idx].Samples++
}

func finishBuckets(buckets []PatternBucket, fullSamples float64) {
	for i := range buckets {
		if buckets[i].Samples > 0 {
			buckets[i].Average /= float64(buckets[i].Samples)
		}
		buckets[i].Confidence = math.Min(1, float64(buckets[i].Samples)/fullSamples)
	}
}

func sortedByTime(readings []domain.Reading) []domain.Reading {
	out := make([]domain.Reading, len(readings))
	copy(out, readings)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
