package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultOpenAIModel is the OpenAI model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig defines configuration options for the OpenAI evaluator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	// Temperature defaults to DefaultTemperature when nil. Zero is honoured.
	Temperature *float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client      *openai.Client
	cfg         OpenAIConfig
	temperature float32
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	temperature, err := resolveTemperature(cfg.Temperature)
	if err != nil {
		return nil, err
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIEvaluator{
		client:      openai.NewClientWithConfig(config),
		cfg:         cfg,
		temperature: temperature,
		tracer:      otel.Tracer("github.com/noah-isme/essay-grader/pkg/ai/openai"),
		logger:      cfg.Logger.With().Str("component", "openai_evaluator").Logger(),
	}, nil
}

// Evaluate sends the essay to OpenAI and parses the structured evaluation.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, req EvaluationRequest) (EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		aiFailures.WithLabelValues("openai", e.cfg.Model, failureReason(err)).Inc()
		return EvaluationResult{}, err
	}

	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Int("essay.length", len([]rune(req.Text))),
	))
	defer span.End()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	schema, err := ResponseSchema().MarshalJSONSchema()
	if err != nil {
		return EvaluationResult{}, e.fail(span, err)
	}

	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: openAITemperature(e.temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req.Text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "essay_evaluation",
				Schema: schema,
				Strict: true,
			},
		},
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues("openai", e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return EvaluationResult{}, e.fail(span, fmt.Errorf("openai evaluate: %w", providerError("openai", err)))
	}

	if len(resp.Choices) == 0 {
		return EvaluationResult{}, e.fail(span, ErrEmptyResponse)
	}

	result, err := ParseEvaluation(resp.Choices[0].Message.Content)
	if err != nil {
		return EvaluationResult{}, e.fail(span, err)
	}

	return result, nil
}

func (e *OpenAIEvaluator) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues("openai", e.cfg.Model, failureReason(err)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error().Err(err).Str("model", e.cfg.Model).Msg("openai evaluation failed")
	return err
}

// openAITemperature keeps an explicit zero on the wire; go-openai omits a zero temperature.
func openAITemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
