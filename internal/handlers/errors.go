package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// ErrorHandler renders every error returned by a handler as
// {"success": false, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, message := errorResponse(err)
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func errorResponse(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var gwErr *services.GatewayError
	if errors.As(err, &gwErr) {
		return fiber.StatusBadRequest, gwErr.UserMessage()
	}

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case services.KindNotFound:
			return fiber.StatusNotFound, svcErr.Message
		case services.KindUnexpected:
			log.Printf("[HTTP] unexpected error: %v", err)
			return fiber.StatusBadRequest, svcErr.Message
		default:
			return fiber.StatusBadRequest, svcErr.Message
		}
	}

	log.Printf("[HTTP] internal error: %v", err)
	return fiber.StatusInternalServerError, "internal server error"
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return userID, nil
}

func parseIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parseUUIDs(values []string, field string) ([]uuid.UUID, error) {
	if values == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
