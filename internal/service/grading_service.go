package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/essay-grader/internal/dto"
	"github.com/noah-isme/essay-grader/internal/models"
	"github.com/noah-isme/essay-grader/internal/observability"
	"github.com/noah-isme/essay-grader/internal/repository"
	"github.com/noah-isme/essay-grader/pkg/ai"
)

// GenericFailureMessage is shown for every failed evaluation, whatever the cause.
const GenericFailureMessage = "AI 批改服务暂时不可用，请稍后重试。"

// ErrEssayTooShort indicates the submitted text does not pass the input length check.
var ErrEssayTooShort = errors.New("essay must contain more than 50 characters")

// ErrEvaluatorUnavailable indicates the AI evaluator is not configured.
var ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

// GradingService drives the per-session grading flow.
type GradingService interface {
	Submit(ctx context.Context, sessionID string, payload dto.EvaluationRequest) (dto.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (dto.SessionResponse, error)
	Reset(ctx context.Context, sessionID string) (dto.SessionResponse, error)
}

type gradingService struct {
	sessions  repository.SessionRepository
	evaluator ai.Evaluator
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewGradingService constructs the grading service. events may be nil.
func NewGradingService(sessions repository.SessionRepository, evaluator ai.Evaluator, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		sessions:  sessions,
		evaluator: evaluator,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/essay-grader/internal/service/grading"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *gradingService) Submit(ctx context.Context, sessionID string, payload dto.EvaluationRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}
	if !dto.Submittable(payload.Text) {
		return dto.SessionResponse{}, ErrEssayTooShort
	}
	if s.evaluator == nil {
		return dto.SessionResponse{}, ErrEvaluatorUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "grading.submit", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	if _, err := s.sessions.Update(ctx, sessionID, func(session *models.Session) error {
		return session.Begin(s.now())
	}); err != nil {
		span.RecordError(err)
		return dto.SessionResponse{}, err
	}

	logger := s.logger.With().
		Str("session_id", sessionID).
		Int("essay_length", utf8.RuneCountInString(payload.Text)).
		Logger()

	observability.EvaluationsInFlight().Inc()
	start := time.Now()
	result, evalErr := s.evaluate(ctx, payload.Text, logger)
	duration := time.Since(start)
	observability.EvaluationsInFlight().Dec()

	// The outcome is recorded even if the caller has gone away.
	storeCtx := context.WithoutCancel(ctx)
	event := EvaluationEvent{
		Type:       EvaluationEventType,
		SessionID:  sessionID,
		DurationMs: duration.Milliseconds(),
		OccurredAt: s.now(),
	}

	var (
		session models.Session
		err     error
	)
	if evalErr != nil {
		span.RecordError(evalErr)
		span.SetStatus(codes.Error, evalErr.Error())
		logger.Error().Err(evalErr).Dur("duration", duration).Msg("essay evaluation failed")
		observability.Evaluations().WithLabelValues("error").Inc()

		session, err = s.sessions.Update(storeCtx, sessionID, func(session *models.Session) error {
			session.Fail(GenericFailureMessage, s.now())
			return nil
		})
		event.Status = string(models.SessionStatusError)
	} else {
		report := dto.NewEvaluationReport(result)
		if report.VerdictMismatch {
			logger.Warn().
				Float64("total_score", result.TotalScore).
				Bool("model_is_pass", result.IsPass).
				Msg("model pass verdict disagrees with total score")
		}
		outcome := "failed"
		if report.Passed {
			outcome = "passed"
		}
		observability.Evaluations().WithLabelValues(outcome).Inc()
		logger.Info().Float64("total_score", result.TotalScore).Bool("passed", report.Passed).Dur("duration", duration).Msg("essay evaluated")

		session, err = s.sessions.Update(storeCtx, sessionID, func(session *models.Session) error {
			session.Succeed(result, s.now())
			return nil
		})
		event.Status = string(models.SessionStatusSuccess)
		event.TotalScore = &result.TotalScore
		event.Passed = &report.Passed
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to store evaluation outcome")
		return dto.SessionResponse{}, err
	}

	s.publish(storeCtx, event)

	return dto.NewSessionResponse(session), nil
}

// evaluate converts an evaluator panic into an error so the session leaves ANALYZING.
func (s *gradingService) evaluate(ctx context.Context, text string, logger zerolog.Logger) (result ai.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("evaluator panicked")
			err = fmt.Errorf("evaluator panicked: %v", r)
		}
	}()
	return s.evaluator.Evaluate(ctx, ai.EvaluationRequest{Text: text})
}

func (s *gradingService) Get(ctx context.Context, sessionID string) (dto.SessionResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *gradingService) Reset(ctx context.Context, sessionID string) (dto.SessionResponse, error) {
	session, err := s.sessions.Update(ctx, sessionID, func(session *models.Session) error {
		return session.Reset(s.now())
	})
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *gradingService) publish(ctx context.Context, event EvaluationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("session_id", event.SessionID).Msg("failed to publish evaluation event")
	}
}
