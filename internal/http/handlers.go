package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartutility/energy-insights/internal/billai"
	"github.com/smartutility/energy-insights/internal/service"
)

func Register(app *fiber.App, svcs *service.Services) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	g := app.Group("/api/v1")
	g.Get("facilities", func(c *fiber.Ctx) error {
		items, err := svcs.Repos.ListFacilities()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})
	g.Get("meters", func(c *fiber.Ctx) error {
		items, err := svcs.Repos.ListMeters()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})

	g.Get("analytics/costs", func(c *fiber.Ctx) error {
		meterID, from, to, err := analysisParams(c)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		report, err := svcs.Analytics.CostReport(c.Context(), meterID, from, to)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(report)
	})

	g.Get("analytics/demand", func(c *fiber.Ctx) error {
		meterID, err := strconv.ParseInt(c.Query("meter_id"), 10, 64)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid meter_id"})
		}
		profile, err := svcs.Analytics.DemandProfile(c.Context(), meterID)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(profile)
	})

	g.Get("analytics/sustainability", func(c *fiber.Ctx) error {
		meterID, from, to, err := analysisParams(c)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		m, err := svcs.Analytics.Sustainability(c.Context(), meterID, from, to)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(m)
	})

	g.Get("analytics/bill", func(c *fiber.Ctx) error {
		meterID, from, to, err := analysisParams(c)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		insights, err := svcs.Analytics.BillInsights(c.Context(), meterID, from, to)
		if errors.Is(err, billai.ErrAnalysisUnavailable) {
			// Degrade to an empty result; the UI renders a placeholder.
			return c.Status(503).JSON(fiber.Map{
				"status":   "unavailable",
				"insights": insights,
			})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(insights)
	})
}

// analysisParams parses meter_id plus an optional from/to RFC3339 range
// defaulting to the last 30 days.
func analysisParams(c *fiber.Ctx) (int64, time.Time, time.Time, error) {
	meterID, err := strconv.ParseInt(c.Query("meter_id"), 10, 64)
	if err != nil {
		return 0, time.Time{}, time.Time{}, errors.New("invalid meter_id")
	}

	to := time.Now().UTC()
	from := to.Add(-30 * 24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return 0, time.Time{}, time.Time{}, errors.New("invalid from timestamp")
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return 0, time.Time{}, time.Time{}, errors.New("invalid to timestamp")
		}
	}
	if !from.Before(to) {
		return 0, time.Time{}, time.Time{}, errors.New("from must precede to")
	}
	return meterID, from.UTC(), to.UTC(), nil
}
