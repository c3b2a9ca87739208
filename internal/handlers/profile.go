package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/tsinsight/internal/models"
)

// ListProfiles handles GET /v1/profiles
func (h *Handler) ListProfiles(c *fiber.Ctx) error {
	resp, err := h.profiles.List(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// GetProfile handles GET /v1/profiles/:name
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	p, err := h.profiles.Get(c.UserContext(), c.Params("name"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

// PutProfile creates or replaces a profile
// PUT /v1/profiles/:name
func (h *Handler) PutProfile(c *fiber.Ctx) error {
	var req models.ProfileRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	p, err := h.profiles.Put(c.UserContext(), c.Params("name"), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

// DeleteProfile handles DELETE /v1/profiles/:name
func (h *Handler) DeleteProfile(c *fiber.Ctx) error {
	if err := h.profiles.Delete(c.UserContext(), c.Params("name")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
