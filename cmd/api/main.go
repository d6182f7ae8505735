package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/smartutility/energy-insights/internal/analytics"
	"github.com/smartutility/energy-insights/internal/billai"
	"github.com/smartutility/energy-insights/internal/cache"
	"github.com/smartutility/energy-insights/internal/cloud"
	"github.com/smartutility/energy-insights/internal/config"
	"github.com/smartutility/energy-insights/internal/database"
	httpHandlers "github.com/smartutility/energy-insights/internal/http"
	"github.com/smartutility/energy-insights/internal/reports"
	"github.com/smartutility/energy-insights/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	deps := service.Deps{
		Cache: cache.NewTTL(time.Duration(config.CacheTTLSeconds()) * time.Second),
		Tariff: analytics.Tariff{
			PeakRate:     config.PeakRate(),
			OffPeakRate:  config.OffPeakRate(),
			DemandCharge: config.DemandCharge(),
			FixedCharge:  config.FixedCharge(),
			TaxRate:      config.TaxRate(),
			PeakStart:    9,
			PeakEnd:      17,
		},
		SustCfg:     analytics.DefaultSustainabilityConfig(),
		PowerFactor: config.PowerFactor(),
	}

	if url := config.BillAIURL(); url != "" {
		deps.BillAI = billai.New(url, time.Duration(config.BillAITimeoutSecs())*time.Second)
	}

	ctx := context.Background()
	var s3Client *cloud.S3Client
	if config.UseCloudServices() {
		sns, err := cloud.NewSNSClient(ctx, config.AWSRegion(), config.SNSTopicArn())
		if err != nil {
			log.Fatal().Err(err).Msg("sns client failed")
		}
		deps.SNS = sns

		s3Client, err = cloud.NewS3Client(ctx, config.AWSRegion(), config.S3Bucket())
		if err != nil {
			log.Fatal().Err(err).Msg("s3 client failed")
		}
	}

	svcs := service.New(db, deps)
	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	httpHandlers.Register(app, svcs)

	if s3Client != nil {
		exporter := reports.NewExporter(svcs, s3Client)
		if err := exporter.Start(config.ReportSchedule()); err != nil {
			log.Fatal().Err(err).Msg("report exporter failed")
		}
		defer exporter.Stop()
	}

	addr := viper.GetString("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}
