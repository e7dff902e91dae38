package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness plus the number of attached viewers.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": deps.Version,
			"viewers": len(deps.Map.Viewers()),
		})
	}
}

type readinessCheck struct {
	name     string
	required bool
	run      func(ctx context.Context) error // nil when the backend is not configured
}

func (d *Dependencies) readinessChecks() []readinessCheck {
	checks := []readinessCheck{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if d.DB != nil {
		checks[0].run = d.DB.Ping
	}
	if d.NATS != nil {
		nc := d.NATS
		checks[1].run = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}
	if d.Cache != nil {
		checks[2].run = d.Cache.Ping
	}
	return checks
}

// ReadyHandler checks the backends. The database must answer; the event
// and state mirrors only fail readiness once configured.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		results := make(map[string]string)
		ready := true
		for _, chk := range deps.readinessChecks() {
			if chk.run == nil {
				results[chk.name] = "not configured"
				ready = ready && !chk.required
				continue
			}
			if err := chk.run(ctx); err != nil {
				results[chk.name] = "error: " + err.Error()
				ready = false
				continue
			}
			results[chk.name] = "ok"
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"checks": results,
			})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	}
}
