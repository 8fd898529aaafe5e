package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/essay-grader/pkg/ai"
)

func TestParseEvaluation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "valid payload", content: validEvaluationJSON},
		{name: "empty body", content: "   ", wantErr: ai.ErrEmptyResponse},
		{name: "not json", content: "<html>oops</html>", wantErr: ai.ErrInvalidResponse},
		{name: "truncated json", content: `{"totalScore": 50, "isPass": tr`, wantErr: ai.ErrInvalidResponse},
		{
			name:    "missing top level field",
			content: `{"totalScore": 50, "isPass": true, "summary": "x", "dimensions": [], "strengths": [], "weaknesses": []}`,
			wantErr: ai.ErrInvalidResponse,
		},
		{
			name:    "wrong field type",
			content: `{"totalScore": "fifty", "isPass": true, "summary": "x", "dimensions": [], "strengths": [], "weaknesses": [], "suggestions": []}`,
			wantErr: ai.ErrInvalidResponse,
		},
		{
			name:    "dimension missing fullMark",
			content: `{"totalScore": 50, "isPass": true, "summary": "x", "dimensions": [{"name": "A", "score": 1, "comment": ""}], "strengths": [], "weaknesses": [], "suggestions": []}`,
			wantErr: ai.ErrInvalidResponse,
		},
		{
			name:    "array instead of object",
			content: `[]`,
			wantErr: ai.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := ai.ParseEvaluation(tt.content)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, ai.EvaluationResult{}, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 50.0, result.TotalScore)
		})
	}
}

func TestParseEvaluation_KeepsOutOfRangeValues(t *testing.T) {
	t.Parallel()

	content := `{"totalScore": 90, "isPass": false, "summary": "s",
	  "dimensions": [{"name": "B", "score": 20, "fullMark": 10, "comment": "over"}, {"name": "A", "score": 1, "fullMark": 5, "comment": ""}],
	  "strengths": ["x", "x"], "weaknesses": [], "suggestions": []}`

	result, err := ai.ParseEvaluation(content)

	require.NoError(t, err)
	assert.Equal(t, 90.0, result.TotalScore)
	assert.False(t, result.IsPass)
	require.Len(t, result.Dimensions, 2)
	assert.Equal(t, "B", result.Dimensions[0].Name)
	assert.Equal(t, 20.0, result.Dimensions[0].Score)
	assert.Equal(t, []string{"x", "x"}, result.Strengths)
}
