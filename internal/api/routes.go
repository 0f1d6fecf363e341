package api

import (
	"github.com/gofiber/fiber/v2"
	gofiberws "github.com/gofiber/websocket/v2"
)

// SetupRoutes wires the fixed settings/reset/erase surface plus the
// metrics/health/topology/strip/analog/live-feed enrichment surface onto
// app.
func SetupRoutes(app *fiber.App, svc *Service) {
	h := NewHandler(svc)

	// HEAD is refused for every path, matching the firmware's own web
	// server, which never implemented a body-less response path.
	app.Use(func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodHead {
			return h.methodNotAllowed(c)
		}
		return c.Next()
	})

	app.Get("/settings", h.getSettings)
	app.Put("/settings", h.putSettings)
	app.Post("/settings", h.putSettings)
	app.Delete("/settings", h.deleteSettings)

	app.Post("/reset", h.scheduleReset)
	app.Put("/reset", h.scheduleReset)

	app.Post("/erase", h.eraseSettings)
	app.Put("/erase", h.eraseSettings)

	v1 := app.Group("/api/v1")
	v1.Get("/metrics", h.getMetrics)
	v1.Get("/health", h.getHealth)
	v1.Get("/topology", h.getTopology)
	v1.Put("/topology", h.putTopology)
	v1.Get("/strips/:channel", h.getStrip)
	v1.Put("/strips/:channel/colorspace", h.putStripColorSpace)
	v1.Get("/analog/:terminal", h.getAnalog)

	app.Use("/api/v1/live", func(c *fiber.Ctx) error {
		if gofiberws.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/live", gofiberws.New(func(c *gofiberws.Conn) {
		svc.sys.Hub.HandleWebSocket(c)
	}))

	app.All("*", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound)
	})
}
