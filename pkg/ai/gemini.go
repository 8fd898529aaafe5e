package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultGeminiModel is the Gemini model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GenerativeClient abstracts the Gemini API for testing.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
}

// Content represents a message in a Gemini conversation.
type Content struct {
	Parts []*Part
}

// Part represents a part of a message.
type Part struct {
	Text string
}

// GenerateContentConfig holds configuration for content generation.
type GenerateContentConfig struct {
	Temperature      *float32
	ResponseMIMEType string
	ResponseSchema   *Schema
}

// GenerateContentResponse holds the response from content generation.
type GenerateContentResponse struct {
	Text string
}

// MockGenerativeClient is a mock implementation of GenerativeClient for testing.
type MockGenerativeClient struct {
	GenerateContentFn func(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
}

// GenerateContent delegates to GenerateContentFn.
func (m *MockGenerativeClient) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	return m.GenerateContentFn(ctx, model, contents, config)
}

// GeminiConfig defines configuration options for the Gemini evaluator.
type GeminiConfig struct {
	Model string
	// Temperature defaults to DefaultTemperature when nil. Zero is honoured.
	Temperature *float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// GeminiEvaluator implements Evaluator against the Gemini generate content API.
type GeminiEvaluator struct {
	client      GenerativeClient
	cfg         GeminiConfig
	temperature float32
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewGeminiEvaluator builds an evaluator that grades essays with client.
func NewGeminiEvaluator(client GenerativeClient, cfg GeminiConfig) (*GeminiEvaluator, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	temperature, err := resolveTemperature(cfg.Temperature)
	if err != nil {
		return nil, err
	}

	return &GeminiEvaluator{
		client:      client,
		cfg:         cfg,
		temperature: temperature,
		tracer:      otel.Tracer("github.com/noah-isme/essay-grader/pkg/ai/gemini"),
		logger:      cfg.Logger.With().Str("component", "gemini_evaluator").Logger(),
	}, nil
}

// BuildGeminiConfig returns the generation config used for grading calls.
func BuildGeminiConfig(temperature float32) *GenerateContentConfig {
	temp := temperature
	return &GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: JSONMimeType,
		ResponseSchema:   ResponseSchema(),
	}
}

// Evaluate sends the essay to Gemini and parses the structured evaluation.
func (e *GeminiEvaluator) Evaluate(parent context.Context, req EvaluationRequest) (EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		aiFailures.WithLabelValues("gemini", e.cfg.Model, failureReason(err)).Inc()
		return EvaluationResult{}, err
	}

	ctx, span := e.tracer.Start(parent, "gemini.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Int("essay.length", len([]rune(req.Text))),
	))
	defer span.End()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	contents := []*Content{{
		Parts: []*Part{{Text: BuildPrompt(req.Text)}},
	}}

	start := time.Now()
	resp, err := e.client.GenerateContent(ctx, e.cfg.Model, contents, BuildGeminiConfig(e.temperature))
	aiDuration.WithLabelValues("gemini", e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return EvaluationResult{}, e.fail(span, fmt.Errorf("gemini evaluate: %w", err))
	}
	if resp == nil {
		return EvaluationResult{}, e.fail(span, ErrEmptyResponse)
	}

	result, err := ParseEvaluation(resp.Text)
	if err != nil {
		return EvaluationResult{}, e.fail(span, err)
	}

	return result, nil
}

func (e *GeminiEvaluator) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues("gemini", e.cfg.Model, failureReason(err)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error().Err(err).Str("model", e.cfg.Model).Msg("gemini evaluation failed")
	return err
}
