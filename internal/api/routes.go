package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker is the store probe behind /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// UseCORS lets browser frontends on allowOrigins (comma-separated, "*" for
// any) call the API. Register it before the routes.
func UseCORS(app *fiber.App, allowOrigins string) {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
	}))
}

func RegisterRoutes(app *fiber.App, nc *nats.Conn, st HealthChecker, service string, h *MonitoringHandler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": service,
			"status":  "running",
		})
	})

	// Health check. NATS is optional; a nil connection reports "disabled".
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		switch {
		case nc == nil:
			checks["nats"] = "disabled"
		case !nc.IsConnected():
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		default:
			if err := nc.FlushTimeout(1 * time.Second); err != nil {
				checks["nats"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	mon := app.Group("/api/monitoring")
	mon.Get("/pairs", h.GetPairs)
	mon.Get("/pairs/latest", h.GetLatestSnapshot)
	mon.Get("/market-status", h.GetMarketStatus)
	mon.Get("/history/:code", h.GetHistory)
	mon.Get("/search", h.Search)
	mon.Get("/database-usage", h.GetDatabaseUsage)
	mon.Post("/cleanup", h.Cleanup)
	mon.Get("/system-status", h.GetSystemStatus)
}
