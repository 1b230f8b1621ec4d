package surgeguard

import (
	"github.com/gofiber/fiber/v2"
)

// StatusServer exposes the operational read API.
type StatusServer struct {
	app *fiber.App
}

func NewStatusServer(detector *Detector, ledger *DetectionLedger, store AlertStore) *StatusServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if store != nil {
			if err := store.HealthCheck(c.Context()); err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(detector.Snapshot())
	})

	app.Get("/detections", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"summary": ledger.Summary(),
			"events":  ledger.Snapshot(),
		})
	})

	app.Get("/alerts", func(c *fiber.Ctx) error {
		if store == nil {
			return fiber.NewError(fiber.StatusNotFound, "alert archive not configured")
		}
		alerts, err := store.RecentAlerts(c.Context(), c.QueryInt("limit", 50))
		if err != nil {
			return err
		}
		return c.JSON(alerts)
	})

	return &StatusServer{app: app}
}

func (s *StatusServer) Listen(addr string) error { return s.app.Listen(addr) }

func (s *StatusServer) Shutdown() error { return s.app.Shutdown() }
