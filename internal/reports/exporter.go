// Package reports exports daily analysis reports to object storage on a
// cron schedule.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/smartutility/energy-insights/internal/cloud"
	"github.com/smartutility/energy-insights/internal/metrics"
	"github.com/smartutility/energy-insights/internal/service"
)

// Exporter renders one JSON report per meter per day and uploads it.
type Exporter struct {
	svcs *service.Services
	s3   *cloud.S3Client
	cron *cron.Cron
}

func NewExporter(svcs *service.Services, s3 *cloud.S3Client) *Exporter {
	return &Exporter{
		svcs: svcs,
		s3:   s3,
		cron: cron.New(),
	}
}

// Start schedules the export job. The spec is a standard cron
// expression; a bad expression is a deploy error, so it is returned
// rather than logged away.
func (e *Exporter) Start(spec string) error {
	_, err := e.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := e.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("report export failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule report export: %w", err)
	}
	e.cron.Start()
	return nil
}

func (e *Exporter) Stop() {
	e.cron.Stop()
}

// RunOnce exports yesterday's report for every known meter.
func (e *Exporter) RunOnce(ctx context.Context) error {
	started := time.Now()
	err := e.export(ctx)
	metrics.ObserveReportJob(started, err)
	return err
}

func (e *Exporter) export(ctx context.Context) error {
	meters, err := e.svcs.Repos.ListMeters()
	if err != nil {
		return fmt.Errorf("list meters: %w", err)
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.Add(-24 * time.Hour)
	date := from.Format("2006-01-02")

	for _, m := range meters {
		costs, err := e.svcs.Analytics.CostReport(ctx, m.ID, from, to)
		if err != nil {
			log.Error().Err(err).Int64("meter_id", m.ID).Msg("cost report failed, skipping meter")
			continue
		}
		sustainability, err := e.svcs.Analytics.Sustainability(ctx, m.ID, from, to)
		if err != nil {
			log.Error().Err(err).Int64("meter_id", m.ID).Msg("sustainability report failed, skipping meter")
			continue
		}

		report := map[string]any{
			"title":          fmt.Sprintf("Daily Energy Report - meter %d", m.ID),
			"date":           date,
			"generated_at":   time.Now().UTC().Format(time.RFC3339),
			"costs":          costs,
			"sustainability": sustainability,
		}
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}

		key := fmt.Sprintf("reports/meter-%d/%s.json", m.ID, date)
		url, err := e.s3.UploadReport(ctx, key, body)
		if err != nil {
			return fmt.Errorf("upload report for meter %d: %w", m.ID, err)
		}
		log.Info().Int64("meter_id", m.ID).Str("url", url).Msg("report exported")
	}

	return nil
}
