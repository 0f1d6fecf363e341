package api

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tinic/lightkraken/internal/topology"
)

// Handler adapts Service methods to fiber route handlers.
type Handler struct {
	svc *Service
}

// NewHandler builds a Handler bound to svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// getSettings implements GET /settings.
func (h *Handler) getSettings(c *fiber.Ctx) error {
	dump, err := h.svc.GetSettings()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(dump)
}

// putSettings implements PUT/POST /settings: apply a flat JSON object as a
// patch, each key's type inferred from its JSON value.
func (h *Handler) putSettings(c *fiber.Ctx) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed settings body")
	}
	raw := make(map[string][]byte, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	if err := h.svc.ApplyRawPatch(raw); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

// deleteSettings implements DELETE /settings: body is a JSON array of bare
// key names to remove.
func (h *Handler) deleteSettings(c *fiber.Ctx) error {
	var keys []string
	if err := json.Unmarshal(c.Body(), &keys); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed key list")
	}
	if err := h.svc.DeleteSettings(keys); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

// scheduleReset implements POST/PUT /reset.
func (h *Handler) scheduleReset(c *fiber.Ctx) error {
	h.svc.ScheduleReset()
	return c.SendStatus(fiber.StatusOK)
}

// eraseSettings implements POST/PUT /erase.
func (h *Handler) eraseSettings(c *fiber.Ctx) error {
	if err := h.svc.EraseSettings(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

// methodNotAllowed implements the HEAD * -> 405 rule.
func (h *Handler) methodNotAllowed(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusMethodNotAllowed)
}

// getMetrics implements GET /api/v1/metrics.
func (h *Handler) getMetrics(c *fiber.Ctx) error {
	h.svc.sys.Metrics.UpdateSystemMetrics()
	return c.JSON(h.svc.sys.Metrics.GetMetrics())
}

// getHealth implements GET /api/v1/health.
func (h *Handler) getHealth(c *fiber.Ctx) error {
	results := h.svc.sys.Health.RunChecks(c.Context())
	return c.JSON(fiber.Map{
		"status": h.svc.sys.Health.GetOverallStatus(),
		"checks": results,
	})
}

// getTopology implements GET /api/v1/topology.
func (h *Handler) getTopology(c *fiber.Ctx) error {
	return c.JSON(h.svc.GetTopology())
}

// putTopology implements PUT /api/v1/topology: body is {"output_config": N}.
func (h *Handler) putTopology(c *fiber.Ctx) error {
	var body struct {
		OutputConfig topology.Config `json:"output_config"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed topology body")
	}
	if err := h.svc.SetOutputConfig(body.OutputConfig); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

// getStrip implements GET /api/v1/strips/:channel.
func (h *Handler) getStrip(c *fiber.Ctx) error {
	channel, err := strconv.Atoi(c.Params("channel"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid channel")
	}
	snap, err := h.svc.StripSnapshot(channel)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(snap)
}

// putStripColorSpace implements PUT /api/v1/strips/:channel/colorspace.
func (h *Handler) putStripColorSpace(c *fiber.Ctx) error {
	channel, err := strconv.Atoi(c.Params("channel"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid channel")
	}
	var body struct {
		ColorSpace string `json:"colorspace"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed colorspace body")
	}
	if err := h.svc.SetStripColorSpace(channel, body.ColorSpace); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

// getAnalog implements GET /api/v1/analog/:terminal.
func (h *Handler) getAnalog(c *fiber.Ctx) error {
	terminal, err := strconv.Atoi(c.Params("terminal"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid terminal")
	}
	snap, err := h.svc.AnalogSnapshot(terminal)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(snap)
}
