package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyinsights_analyses_total",
			Help: "Total number of analysis runs per engine",
		},
		[]string{"engine"},
	)

	AnalysisDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energyinsights_analysis_duration_seconds",
			Help:    "Analysis duration in seconds per engine",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	ReadingsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "energyinsights_readings_ingested_total",
			Help: "Total number of readings accepted from the broker",
		},
	)

	ReadingsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyinsights_readings_dropped_total",
			Help: "Total number of readings discarded per reason",
		},
		[]string{"reason"},
	)

	BillInsightsFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "energyinsights_bill_insights_failures_total",
			Help: "Total number of failed bill insight service calls",
		},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyinsights_cache_total",
			Help: "Analysis cache lookups per outcome",
		},
		[]string{"outcome"},
	)

	ReportJobLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "energyinsights_report_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed report export",
		},
	)

	ReportJobFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "energyinsights_report_job_failures_total",
			Help: "Total number of failed report exports",
		},
	)
)

// ObserveAnalysis records one engine run.
func ObserveAnalysis(engine string, startedAt time.Time) {
	AnalysesTotal.WithLabelValues(engine).Inc()
	AnalysisDurationSeconds.WithLabelValues(engine).Observe(time.Since(startedAt).Seconds())
}

// ObserveReportJob records one scheduled export run.
func ObserveReportJob(startedAt time.Time, err error) {
	ReportJobLastRun.Set(float64(time.Now().Unix()))
	if err != nil {
		ReportJobFailuresTotal.Inc()
	}
}
