// Package stats provides the shared statistical helpers used by the
// analytics engines. All functions are pure and total: degenerate input
// (empty slices, zero variance, zero denominators) resolves to 0 rather
// than NaN or Inf, because every caller feeds the results straight into
// JSON reports.
//
// All calendar bucketing (hour, weekday, month) is done in UTC. Meter
// timestamps arrive RFC3339-formatted in UTC and mixing in the host's
// local zone would shift readings across the peak-hour boundary.
package stats

import (
	"math"
	"sort"
	"time"
)

// MaxACFLag bounds autocorrelation lags to one week of hourly readings.
const MaxACFLag = 168

// Trend is an ordinary least squares fit over sample index 0..N-1.
type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Direction string  `json:"direction"`
	Strength  float64 `json:"strength"`
}

// SafeDiv returns num/den, or 0 when den is 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation (divide by N, not N-1).
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	varianceSum := 0.0
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(values)))
}

// Percentiles returns the requested percentiles (0..1) of values, using
// the floor(p*N) index into the ascending-sorted sample.
func Percentiles(values []float64, ps []float64) []float64 {
	out := make([]float64, len(ps))
	if len(values) == 0 {
		return out
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	for i, p := range ps {
		idx := int(math.Floor(p * float64(len(sorted))))
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[i] = sorted[idx]
	}
	return out
}

// LinearTrend fits y = slope*i + intercept over sample index i.
func LinearTrend(values []float64) Trend {
	n := float64(len(values))
	if n < 2 {
		return Trend{Direction: "decreasing"}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	den := n*sumXX - sumX*sumX
	slope := SafeDiv(n*sumXY-sumX*sumY, den)
	intercept := SafeDiv(sumY-slope*sumX, n)

	direction := "decreasing"
	if slope > 0 {
		direction = "increasing"
	}

	return Trend{
		Slope:     slope,
		Intercept: intercept,
		Direction: direction,
		Strength:  math.Abs(slope),
	}
}

// Autocorrelation computes the classic ACF up to maxLag, capped at
// min(len-1, MaxACFLag). Index 0 of the result is lag 1.
func Autocorrelation(values []float64, maxLag int) []float64 {
	if maxLag > len(values)-1 {
		maxLag = len(values) - 1
	}
	if maxLag > MaxACFLag {
		maxLag = MaxACFLag
	}
	if maxLag < 1 {
		return nil
	}

	mean := Mean(values)
	var denom float64
	for _, v := range values {
		diff := v - mean
		denom += diff * diff
	}

	out := make([]float64, maxLag)
	if denom == 0 {
		return out
	}
	for lag := 1; lag <= maxLag; lag++ {
		var num float64
		for i := 0; i < len(values)-lag; i++ {
			num += (values[i] - mean) * (values[i+lag] - mean)
		}
		out[lag-1] = num / denom
	}
	return out
}

// HourOf returns the UTC hour of day (0-23).
func HourOf(t time.Time) int { return t.UTC().Hour() }

// WeekdayOf returns the UTC weekday (0 = Sunday, matching time.Weekday).
func WeekdayOf(t time.Time) int { return int(t.UTC().Weekday()) }

// MonthOf returns the UTC month (0 = January).
func MonthOf(t time.Time) int { return int(t.UTC().Month()) - 1 }
