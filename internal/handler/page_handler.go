package handler

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-grader/internal/dto"
	"github.com/noah-isme/essay-grader/internal/middleware"
	"github.com/noah-isme/essay-grader/internal/models"
	"github.com/noah-isme/essay-grader/internal/service"
	"github.com/noah-isme/essay-grader/internal/web"
)

// PageHandler serves the server-rendered grading page and its form posts.
type PageHandler struct {
	service  service.GradingService
	renderer *web.Renderer
	appName  string
	model    string
	logger   zerolog.Logger
}

// NewPageHandler builds a page handler instance.
func NewPageHandler(service service.GradingService, renderer *web.Renderer, appName, model string, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		service:  service,
		renderer: renderer,
		appName:  appName,
		model:    model,
		logger:   logger.With().Str("component", "page_handler").Logger(),
	}
}

// Register wires the page routes. limiter guards essay submissions and may be nil.
func (h *PageHandler) Register(router fiber.Router, limiter fiber.Handler) {
	router.Get("/", h.index)
	router.Post("/reset", h.reset)

	if limiter != nil {
		router.Post("/essays", limiter, h.submit)
		return
	}
	router.Post("/essays", h.submit)
}

// LimitReached renders the page with a rate limit notice.
func (h *PageHandler) LimitReached(c *fiber.Ctx) error {
	return h.renderCurrent(c, fiber.StatusTooManyRequests, web.NoticeRateLimit, "")
}

func (h *PageHandler) index(c *fiber.Ctx) error {
	return h.renderCurrent(c, fiber.StatusOK, "", "")
}

func (h *PageHandler) submit(c *fiber.Ctx) error {
	var payload dto.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return h.renderCurrent(c, fiber.StatusBadRequest, web.NoticeTooShort, "")
	}

	session, err := h.service.Submit(c.UserContext(), middleware.GetSessionID(c), payload)
	if err != nil {
		status, message := errorStatus(err)
		if isValidationError(err) {
			message = web.NoticeTooShort
		}
		if status >= fiber.StatusInternalServerError && !errors.Is(err, service.ErrEvaluatorUnavailable) {
			requestLogger(h.logger, c).Error().Err(err).Msg("essay submission failed")
		}
		return h.renderCurrent(c, status, message, payload.Text)
	}

	// A failed evaluation keeps the essay in the form for resubmission.
	if session.Status == string(models.SessionStatusError) {
		return h.renderCurrent(c, fiber.StatusOK, "", payload.Text)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *PageHandler) reset(c *fiber.Ctx) error {
	if _, err := h.service.Reset(c.UserContext(), middleware.GetSessionID(c)); err != nil {
		status, message := errorStatus(err)
		if status >= fiber.StatusInternalServerError {
			requestLogger(h.logger, c).Error().Err(err).Msg("session reset failed")
		}
		return h.renderCurrent(c, status, message, "")
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *PageHandler) renderCurrent(c *fiber.Ctx, status int, notice, draft string) error {
	session, err := h.service.Get(c.UserContext(), middleware.GetSessionID(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load session")
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, web.Page{
		AppName: h.appName,
		Model:   h.model,
		Session: session,
		Draft:   draft,
		Notice:  notice,
	}); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to render page")
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}

	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}
