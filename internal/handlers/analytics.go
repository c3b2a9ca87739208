package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/tsinsight/internal/models"
)

// Stats handles distribution summary requests
// POST /v1/stats
func (h *Handler) Stats(c *fiber.Ctx) error {
	var req models.StatsRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analytics.Stats(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// Trend handles trend, seasonality and cycle requests
// POST /v1/trend
func (h *Handler) Trend(c *fiber.Ctx) error {
	var req models.TrendRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analytics.Trend(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// Forecast handles forecast requests
// POST /v1/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	var req models.ForecastRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analytics.Forecast(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// Methods lists the available analysis methods
// GET /v1/methods
func (h *Handler) Methods(c *fiber.Ctx) error {
	return c.JSON(h.analytics.Methods())
}
