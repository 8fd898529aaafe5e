package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/essay-grader/pkg/ai"
)

const validEvaluationJSON = `{
  "totalScore": 50,
  "isPass": true,
  "summary": "结构完整，理论结合实践较好。",
  "dimensions": [
    {"name": "切合题意", "score": 10, "fullMark": 15, "comment": "ok"},
    {"name": "项目背景", "score": 8, "fullMark": 10, "comment": "具体"}
  ],
  "strengths": ["背景真实"],
  "weaknesses": ["结尾仓促"],
  "suggestions": [
    {"point": "tighten intro", "quote": "the project was big"},
    {"point": "全文字数偏少", "quote": ""}
  ]
}`

var sampleEssay = strings.Repeat("本项目是某市政务云平台建设项目，我担任项目经理。", 3)

func newGeminiEvaluator(t *testing.T, client ai.GenerativeClient) *ai.GeminiEvaluator {
	t.Helper()
	evaluator, err := ai.NewGeminiEvaluator(client, ai.GeminiConfig{Logger: zerolog.Nop()})
	require.NoError(t, err)
	return evaluator
}

func TestGeminiEvaluator_Evaluate_ReturnsParsedResult(t *testing.T) {
	t.Parallel()

	var (
		gotModel  string
		gotPrompt string
		gotConfig *ai.GenerateContentConfig
	)
	client := &ai.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*ai.Content, config *ai.GenerateContentConfig) (*ai.GenerateContentResponse, error) {
			gotModel = model
			gotPrompt = contents[0].Parts[0].Text
			gotConfig = config
			return &ai.GenerateContentResponse{Text: validEvaluationJSON}, nil
		},
	}

	result, err := newGeminiEvaluator(t, client).Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.NoError(t, err)
	assert.Equal(t, ai.DefaultGeminiModel, gotModel)
	assert.Contains(t, gotPrompt, sampleEssay)
	require.NotNil(t, gotConfig)
	assert.Equal(t, "application/json", gotConfig.ResponseMIMEType)
	require.NotNil(t, gotConfig.Temperature)
	assert.InDelta(t, 0.3, *gotConfig.Temperature, 0.001)
	require.NotNil(t, gotConfig.ResponseSchema)

	assert.Equal(t, 50.0, result.TotalScore)
	assert.True(t, result.IsPass)
	require.Len(t, result.Dimensions, 2)
	assert.Equal(t, "切合题意", result.Dimensions[0].Name)
	require.Len(t, result.Suggestions, 2)
	assert.Equal(t, "the project was big", result.Suggestions[0].Quote)
	assert.Empty(t, result.Suggestions[1].Quote)
}

func TestGeminiEvaluator_Evaluate_RejectsShortEssayWithoutCallingModel(t *testing.T) {
	t.Parallel()

	calls := 0
	client := &ai.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*ai.Content, config *ai.GenerateContentConfig) (*ai.GenerateContentResponse, error) {
			calls++
			return &ai.GenerateContentResponse{Text: validEvaluationJSON}, nil
		},
	}

	_, err := newGeminiEvaluator(t, client).Evaluate(context.Background(), ai.EvaluationRequest{Text: strings.Repeat("字", 49)})

	require.ErrorIs(t, err, ai.ErrEssayTooShort)
	assert.Zero(t, calls)
}

func TestGeminiEvaluator_Evaluate_AcceptsExactlyMinimumLength(t *testing.T) {
	t.Parallel()

	calls := 0
	client := &ai.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*ai.Content, config *ai.GenerateContentConfig) (*ai.GenerateContentResponse, error) {
			calls++
			return &ai.GenerateContentResponse{Text: validEvaluationJSON}, nil
		},
	}

	_, err := newGeminiEvaluator(t, client).Evaluate(context.Background(), ai.EvaluationRequest{Text: strings.Repeat("字", 50)})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGeminiEvaluator_Evaluate_PropagatesAPIError(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("API rate limit exceeded")
	client := &ai.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*ai.Content, config *ai.GenerateContentConfig) (*ai.GenerateContentResponse, error) {
			return nil, expectedErr
		},
	}

	_, err := newGeminiEvaluator(t, client).Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.ErrorIs(t, err, expectedErr)
}

func TestGeminiEvaluator_Evaluate_ReturnsErrorOnNilResponse(t *testing.T) {
	t.Parallel()

	client := &ai.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*ai.Content, config *ai.GenerateContentConfig) (*ai.GenerateContentResponse, error) {
			return nil, nil
		},
	}

	_, err := newGeminiEvaluator(t, client).Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestGeminiEvaluator_Evaluate_ReturnsErrorOnInvalidJSON(t *testing.T) {
	t.Parallel()

	client := &ai.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*ai.Content, config *ai.GenerateContentConfig) (*ai.GenerateContentResponse, error) {
			return &ai.GenerateContentResponse{Text: "not valid json"}, nil
		},
	}

	_, err := newGeminiEvaluator(t, client).Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.ErrorIs(t, err, ai.ErrInvalidResponse)
}

func TestNewGeminiEvaluator_RequiresClient(t *testing.T) {
	t.Parallel()

	_, err := ai.NewGeminiEvaluator(nil, ai.GeminiConfig{})

	require.Error(t, err)
}

func TestBuildGeminiConfig_DeclaresSchema(t *testing.T) {
	t.Parallel()

	config := ai.BuildGeminiConfig(ai.DefaultTemperature)

	require.NotNil(t, config.ResponseSchema)
	assert.Equal(t, ai.TypeObject, config.ResponseSchema.Type)
	assert.ElementsMatch(t, []string{"totalScore", "isPass", "summary", "dimensions", "strengths", "weaknesses", "suggestions"}, config.ResponseSchema.Required)
	suggestions := config.ResponseSchema.Properties["suggestions"]
	require.NotNil(t, suggestions)
	require.NotNil(t, suggestions.Items)
	assert.Equal(t, []string{"point", "quote"}, suggestions.Items.Required)
}

func TestGeminiEvaluator_HonoursZeroTemperature(t *testing.T) {
	t.Parallel()

	var gotConfig *ai.GenerateContentConfig
	client := &ai.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*ai.Content, config *ai.GenerateContentConfig) (*ai.GenerateContentResponse, error) {
			gotConfig = config
			return &ai.GenerateContentResponse{Text: validEvaluationJSON}, nil
		},
	}
	zero := float32(0)
	evaluator, err := ai.NewGeminiEvaluator(client, ai.GeminiConfig{Temperature: &zero, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.NoError(t, err)
	require.NotNil(t, gotConfig.Temperature)
	assert.Zero(t, *gotConfig.Temperature)
}

func TestGeminiEvaluator_RejectsNegativeTemperature(t *testing.T) {
	t.Parallel()

	negative := float32(-0.5)
	_, err := ai.NewGeminiEvaluator(&ai.MockGenerativeClient{}, ai.GeminiConfig{Temperature: &negative, Logger: zerolog.Nop()})

	require.Error(t, err)
}
