package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
)

func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = fiber.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
		msg = err.Error()
	case errors.Is(err, domain.ErrConflict):
		status = fiber.StatusConflict
		msg = err.Error()
	case errors.Is(err, domain.ErrRemovalIncomplete):
		status = fiber.StatusBadGateway
		msg = err.Error()
	default:
		log.Error("internal error", zap.String("path", c.Path()), zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// errorHandler renders errors returned from handlers and middleware as JSON.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fe.Message,
			})
		}
		return writeError(c, log, err)
	}
}
