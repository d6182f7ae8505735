package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/smartutility/energy-insights/internal/analytics"
	"github.com/smartutility/energy-insights/internal/billai"
	"github.com/smartutility/energy-insights/internal/cache"
	"github.com/smartutility/energy-insights/internal/cloud"
	"github.com/smartutility/energy-insights/internal/domain"
	"github.com/smartutility/energy-insights/internal/metrics"
	"github.com/smartutility/energy-insights/internal/repository"
)

// Deps carries the optional collaborators of the service layer. Nil
// fields disable the corresponding feature.
type Deps struct {
	Cache   *cache.TTL
	BillAI  *billai.Client
	SNS     *cloud.SNSClient
	Tariff  analytics.Tariff
	SustCfg analytics.SustainabilityConfig

	// PowerFactor substitutes for metered power quality input.
	PowerFactor float64
}

type Services struct {
	Repos     *repository.Repos
	Readings  *ReadingService
	Analytics *AnalyticsService
}

func New(db *sqlx.DB, deps Deps) *Services {
	if deps.Tariff == (analytics.Tariff{}) {
		deps.Tariff = analytics.DefaultTariff()
	}
	if deps.SustCfg == (analytics.SustainabilityConfig{}) {
		deps.SustCfg = analytics.DefaultSustainabilityConfig()
	}
	repos := repository.New(db)
	return &Services{
		Repos:    repos,
		Readings: &ReadingService{repos: repos},
		Analytics: &AnalyticsService{
			repos:       repos,
			cost:        analytics.NewCostAnalyzer(deps.Tariff),
			sust:        analytics.NewSustainabilityAnalyzer(deps.SustCfg),
			demand:      make(map[int64]*analytics.DemandAnalyzer),
			powerFactor: deps.PowerFactor,
			cache:       deps.Cache,
			bill:        deps.BillAI,
			sns:         deps.SNS,
		},
	}
}

type ReadingService struct {
	repos *repository.Repos
}

// FromMQTT ingests one broker message. Timestamps are RFC3339; a record
// with an unparseable timestamp is dropped and counted rather than
// failing the batch.
func (s *ReadingService) FromMQTT(topic string, payload []byte) error {
	var r struct {
		MeterID   int64   `json:"meter_id"`
		Timestamp string  `json:"timestamp"`
		Value     float64 `json:"value"`
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		metrics.ReadingsDroppedTotal.WithLabelValues("bad_payload").Inc()
		return fmt.Errorf("decode reading: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		metrics.ReadingsDroppedTotal.WithLabelValues("bad_timestamp").Inc()
		log.Warn().Str("timestamp", r.Timestamp).Int64("meter_id", r.MeterID).Msg("dropping reading with malformed timestamp")
		return nil
	}

	rd := &domain.Reading{
		MeterID:   r.MeterID,
		Timestamp: ts.UTC(),
		Value:     r.Value,
	}
	if err := s.repos.InsertReading(rd); err != nil {
		return err
	}
	metrics.ReadingsIngestedTotal.Inc()
	return nil
}

// AnalyticsService runs the engines over stored readings. Cost and
// sustainability analyzers are shared freely; each meter gets its own
// demand analyzer because the rolling history is per-meter state.
type AnalyticsService struct {
	repos *repository.Repos
	cost  *analytics.CostAnalyzer
	sust  *analytics.SustainabilityAnalyzer

	demandMu    sync.Mutex
	demand      map[int64]*analytics.DemandAnalyzer
	powerFactor float64

	cache *cache.TTL
	bill  *billai.Client
	sns   *cloud.SNSClient
}

func (s *AnalyticsService) demandFor(meterID int64) *analytics.DemandAnalyzer {
	s.demandMu.Lock()
	defer s.demandMu.Unlock()
	a, ok := s.demand[meterID]
	if !ok {
		a = analytics.NewDemandAnalyzer(s.powerFactor)
		s.demand[meterID] = a
	}
	return a
}

// CostReport analyzes the [from, to) window, comparing against the
// preceding window of equal length. Results are cached per window.
func (s *AnalyticsService) CostReport(ctx context.Context, meterID int64, from, to time.Time) (analytics.CostAnalysisReport, error) {
	key := fmt.Sprintf("costs:%d:%d:%d", meterID, from.Unix(), to.Unix())
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
			return v.(analytics.CostAnalysisReport), nil
		}
		metrics.CacheHitsTotal.WithLabelValues("miss").Inc()
	}

	current, err := s.repos.ReadingsInRange(meterID, from, to)
	if err != nil {
		return analytics.CostAnalysisReport{}, fmt.Errorf("load current readings: %w", err)
	}
	previous, err := s.repos.ReadingsInRange(meterID, from.Add(-to.Sub(from)), from)
	if err != nil {
		return analytics.CostAnalysisReport{}, fmt.Errorf("load previous readings: %w", err)
	}

	started := time.Now()
	report := s.cost.AnalyzeCosts(current, previous)
	metrics.ObserveAnalysis("cost", started)

	s.alertOnAnomalies(ctx, meterID, report.Anomalies)

	if s.cache != nil {
		s.cache.Set(key, report)
	}
	return report, nil
}

// DemandProfile feeds the meter's last 24 hours into its rolling demand
// analyzer. Not cached: every call advances the history buffer.
func (s *AnalyticsService) DemandProfile(ctx context.Context, meterID int64) (analytics.DemandProfile, error) {
	now := time.Now().UTC()
	batch, err := s.repos.ReadingsInRange(meterID, now.Add(-24*time.Hour), now)
	if err != nil {
		return analytics.DemandProfile{}, fmt.Errorf("load recent readings: %w", err)
	}

	started := time.Now()
	profile := s.demandFor(meterID).Analyze(batch)
	metrics.ObserveAnalysis("demand", started)

	if s.sns != nil {
		for _, alert := range profile.RealTimeMetrics.Alerts {
			if alert.Level == analytics.SeverityHigh {
				if err := s.sns.SendDemandAlert(ctx, meterID, profile.CurrentDemand, profile.PeakDemand, alert.Message); err != nil {
					log.Error().Err(err).Int64("meter_id", meterID).Msg("demand alert failed")
				}
			}
		}
	}

	return profile, nil
}

// Sustainability analyzes the [from, to) window. Results are cached.
func (s *AnalyticsService) Sustainability(ctx context.Context, meterID int64, from, to time.Time) (analytics.SustainabilityMetrics, error) {
	key := fmt.Sprintf("sustainability:%d:%d:%d", meterID, from.Unix(), to.Unix())
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
			return v.(analytics.SustainabilityMetrics), nil
		}
		metrics.CacheHitsTotal.WithLabelValues("miss").Inc()
	}

	readings, err := s.repos.ReadingsInRange(meterID, from, to)
	if err != nil {
		return analytics.SustainabilityMetrics{}, fmt.Errorf("load readings: %w", err)
	}

	started := time.Now()
	m := s.sust.Analyze(readings)
	metrics.ObserveAnalysis("sustainability", started)

	if s.cache != nil {
		s.cache.Set(key, m)
	}
	return m, nil
}

// BillInsights forwards normalized cost features to the external
// text-generation service. Failures surface as ErrAnalysisUnavailable
// with zeroed insights; the raw cause never leaves this layer.
func (s *AnalyticsService) BillInsights(ctx context.Context, meterID int64, from, to time.Time) (billai.BillInsights, error) {
	if s.bill == nil {
		return billai.BillInsights{}, billai.ErrAnalysisUnavailable
	}

	report, err := s.CostReport(ctx, meterID, from, to)
	if err != nil {
		return billai.BillInsights{}, fmt.Errorf("%w: %v", billai.ErrAnalysisUnavailable, err)
	}

	readings, err := s.repos.ReadingsInRange(meterID, from, to)
	if err != nil {
		return billai.BillInsights{}, fmt.Errorf("%w: %v", billai.ErrAnalysisUnavailable, err)
	}
	var totalKwh, peakKwh float64
	for _, r := range readings {
		totalKwh += r.Value
		if s.cost.IsPeakHour(r.Timestamp) {
			peakKwh += r.Value
		}
	}

	features := billai.Features{
		TotalKwh:        totalKwh,
		PeakShare:       safeShare(peakKwh, totalKwh),
		TotalCost:       report.Breakdown.Total(),
		AnomalyCount:    len(report.Anomalies),
		HourlyAverages:  bucketAverages(report.Patterns.Hourly),
		WeekdayAverages: bucketAverages(report.Patterns.Weekly),
	}

	insights, err := s.bill.Analyze(ctx, features)
	if err != nil {
		metrics.BillInsightsFailuresTotal.Inc()
		return billai.BillInsights{}, err
	}
	return insights, nil
}

func (s *AnalyticsService) alertOnAnomalies(ctx context.Context, meterID int64, anomalies []analytics.CostAnomaly) {
	if s.sns == nil {
		return
	}
	for _, a := range anomalies {
		if a.Severity != analytics.SeverityHigh {
			continue
		}
		if err := s.sns.SendCostAnomalyAlert(ctx, meterID, a.ActualCost, a.ExpectedCost, a.Deviation, a.RootCause); err != nil {
			log.Error().Err(err).Int64("meter_id", meterID).Msg("anomaly alert failed")
		}
	}
}

func safeShare(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole
}

func bucketAverages(buckets []analytics.PatternBucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Average
	}
	return out
}
