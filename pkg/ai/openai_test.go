package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/essay-grader/pkg/ai"
)

func newChatServer(t *testing.T, status int, content string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "upstream unavailable", "type": "server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": content},
				},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newOpenAIEvaluator(t *testing.T, baseURL string) *ai.OpenAIEvaluator {
	t.Helper()
	evaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return evaluator
}

func TestOpenAIEvaluator_Evaluate_SendsStrictSchemaRequest(t *testing.T) {
	t.Parallel()

	var body map[string]interface{}
	server := newChatServer(t, http.StatusOK, validEvaluationJSON, &body)

	result, err := newOpenAIEvaluator(t, server.URL).Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.NoError(t, err)
	assert.Equal(t, 50.0, result.TotalScore)
	assert.Equal(t, "tighten intro", result.Suggestions[0].Point)

	assert.Equal(t, ai.DefaultOpenAIModel, body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 0.001)
	format := body["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema := format["json_schema"].(map[string]interface{})
	assert.Equal(t, true, jsonSchema["strict"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].(map[string]interface{})["content"], sampleEssay)
}

func TestOpenAIEvaluator_Evaluate_ServiceError(t *testing.T) {
	t.Parallel()

	server := newChatServer(t, http.StatusInternalServerError, "", nil)

	_, err := newOpenAIEvaluator(t, server.URL).Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ai.ErrInvalidResponse)
	var providerErr *ai.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusInternalServerError, providerErr.StatusCode)
	assert.True(t, providerErr.Retryable())
}

func TestOpenAIEvaluator_Evaluate_EmptyContent(t *testing.T) {
	t.Parallel()

	server := newChatServer(t, http.StatusOK, "", nil)

	_, err := newOpenAIEvaluator(t, server.URL).Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestOpenAIEvaluator_Evaluate_ShortEssaySkipsNetwork(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newOpenAIEvaluator(t, server.URL).Evaluate(context.Background(), ai.EvaluationRequest{Text: "too short"})

	require.ErrorIs(t, err, ai.ErrEssayTooShort)
	assert.Zero(t, calls)
}

func TestNewOpenAIEvaluator_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{})

	require.Error(t, err)
}

func TestOpenAIEvaluator_Evaluate_SendsZeroTemperature(t *testing.T) {
	t.Parallel()

	var body map[string]interface{}
	server := newChatServer(t, http.StatusOK, validEvaluationJSON, &body)
	zero := float32(0)
	evaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Temperature: &zero,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), ai.EvaluationRequest{Text: sampleEssay})

	require.NoError(t, err)
	require.Contains(t, body, "temperature")
	assert.InDelta(t, 0, body["temperature"], 0.0001)
}
