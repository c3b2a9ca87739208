package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger    *logging.Logger
	analytics *services.AnalyticsService
	profiles  *services.ProfileService
}

// New creates a new handler instance
func New(logger *logging.Logger, analytics *services.AnalyticsService, profiles *services.ProfileService) *Handler {
	return &Handler{
		logger:    logger,
		analytics: analytics,
		profiles:  profiles,
	}
}

// parseBody decodes the JSON body into out. An empty body leaves out
// untouched.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func invalidJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_JSON",
			Message: "Failed to parse JSON body",
			Details: map[string]interface{}{"error": err.Error()},
		},
	})
}

// respondError renders a service error with its own status, anything
// else as a 500
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		return c.Status(svcErr.HTTPStatus()).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Details: svcErr.Details,
			},
		})
	}

	logging.Ctx(c.UserContext()).Error("Unhandled handler error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		},
	})
}
