package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-grader/internal/middleware"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		ctx := base.With()
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			ctx = ctx.Str("correlation_id", correlation)
		}
		if session := middleware.GetSessionID(c); session != "" {
			ctx = ctx.Str("session_id", session)
		}
		logger = ctx.Logger()
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
