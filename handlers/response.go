package handlers

import (
	"errors"

	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/gofiber/fiber/v2"
)

// errorResponse writes the status and public message mapped from err
func errorResponse(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"success": false,
		"error":   shared.PublicMessage(err),
	}

	var serviceErr *shared.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code
		if serviceErr.Details != nil && shared.HTTPStatus(err) < fiber.StatusInternalServerError {
			body["details"] = serviceErr.Details
		}
	}

	return c.Status(shared.HTTPStatus(err)).JSON(body)
}

// badRequest writes a 400 for input the handler rejected before reaching a service
func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
