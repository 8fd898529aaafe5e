package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-grader/internal/dto"
	"github.com/noah-isme/essay-grader/internal/middleware"
	"github.com/noah-isme/essay-grader/internal/models"
	"github.com/noah-isme/essay-grader/internal/repository"
	"github.com/noah-isme/essay-grader/internal/service"
	"github.com/noah-isme/essay-grader/internal/utils"
	"github.com/noah-isme/essay-grader/internal/web"
)

// EvaluationHandler exposes the grading session as a JSON API.
type EvaluationHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler instance.
func NewEvaluationHandler(service service.GradingService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires the session routes below /api/v1. limiter guards submissions and may be nil.
func (h *EvaluationHandler) Register(router fiber.Router, limiter fiber.Handler) {
	router.Get("/session", h.getSession)
	router.Delete("/session", h.resetSession)

	if limiter != nil {
		router.Post("/evaluations", limiter, h.submit)
		return
	}
	router.Post("/evaluations", h.submit)
}

func (h *EvaluationHandler) getSession(c *fiber.Ctx) error {
	session, err := h.service.Get(c.UserContext(), middleware.GetSessionID(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session retrieved", session)
}

func (h *EvaluationHandler) submit(c *fiber.Ctx) error {
	var payload dto.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Submit(c.UserContext(), middleware.GetSessionID(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if session.Status == string(models.SessionStatusError) {
		return utils.SendFailure(c, fiber.StatusOK, session.ErrorMessage, session)
	}

	return utils.SendSuccess(c, "essay evaluated", session)
}

func (h *EvaluationHandler) resetSession(c *fiber.Ctx) error {
	session, err := h.service.Reset(c.UserContext(), middleware.GetSessionID(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session reset", session)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	status, message := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	}
	return utils.SendError(c, status, message)
}

// errorStatus maps grading errors to an HTTP status and a user-facing message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEssayTooShort):
		return fiber.StatusBadRequest, web.NoticeTooShort
	case isValidationError(err):
		return fiber.StatusBadRequest, "text is required"
	case errors.Is(err, repository.ErrSessionIDRequired):
		return fiber.StatusBadRequest, "session id is required"
	case errors.Is(err, models.ErrAnalysisInProgress):
		return fiber.StatusConflict, web.NoticeInProgress
	case errors.Is(err, models.ErrResetRequired):
		return fiber.StatusConflict, web.NoticeResetFirst
	case errors.Is(err, repository.ErrSessionConflict):
		return fiber.StatusConflict, "session was modified concurrently, please retry"
	case errors.Is(err, service.ErrEvaluatorUnavailable):
		return fiber.StatusServiceUnavailable, service.GenericFailureMessage
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
