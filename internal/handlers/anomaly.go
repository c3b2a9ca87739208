package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/tsinsight/internal/models"
)

// Detect handles batch anomaly detection
// POST /v1/anomalies/detect
func (h *Handler) Detect(c *fiber.Ctx) error {
	var req models.DetectRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analytics.Detect(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// RealTime scores observations against the history of a series
// POST /v1/anomalies/realtime/:series
func (h *Handler) RealTime(c *fiber.Ctx) error {
	var req models.RealTimeRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analytics.RealTime(c.UserContext(), c.Params("series"), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// History returns the detection history of a series. No series selects
// the default detector.
// GET /v1/anomalies/history?series=cpu&limit=100
func (h *Handler) History(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "limit must be a non-negative integer",
				},
			})
		}
		limit = n
	}

	resp, err := h.analytics.History(c.UserContext(), c.Query("series"), limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// ClearHistory drops the detection history of a series
// DELETE /v1/anomalies/history?series=cpu
func (h *Handler) ClearHistory(c *fiber.Ctx) error {
	if err := h.analytics.ClearHistory(c.UserContext(), c.Query("series")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Series lists the series tracked by the detector registry
// GET /v1/anomalies/series
func (h *Handler) Series(c *fiber.Ctx) error {
	return c.JSON(h.analytics.Series())
}
