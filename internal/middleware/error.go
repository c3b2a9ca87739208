package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/services"
)

// statusCodes names the error code rendered for plain fiber errors
var statusCodes = map[int]string{
	fiber.StatusBadRequest:            "INVALID_REQUEST",
	fiber.StatusUnauthorized:          "UNAUTHORIZED",
	fiber.StatusNotFound:              "NOT_FOUND",
	fiber.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	fiber.StatusRequestEntityTooLarge: "PAYLOAD_TOO_LARGE",
	fiber.StatusUnprocessableEntity:   "INVALID_REQUEST",
	fiber.StatusTooManyRequests:       "RATE_LIMITED",
	fiber.StatusServiceUnavailable:    "UNAVAILABLE",
}

// ErrorHandler renders every error escaping a handler as an ErrorResponse.
// Service errors keep their code and details; fiber errors get a code
// derived from their status; anything else is a 500.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: "Internal Server Error",
			Path:    c.Path(),
		}

		var svcErr *services.ServiceError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &svcErr):
			status = svcErr.HTTPStatus()
			detail.Code = svcErr.Code
			detail.Message = svcErr.Message
			detail.Details = svcErr.Details
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			detail.Message = fiberErr.Message
			detail.Code = "ERROR"
			if code, ok := statusCodes[status]; ok {
				detail.Code = code
			}
		}

		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"code", detail.Code,
			"request_id", logging.RequestID(c.UserContext()),
			"error", err,
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("Request error", fields...)
		} else {
			logger.Warn("Request rejected", fields...)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}
