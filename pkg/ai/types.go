package ai

import (
	"context"
	"errors"
	"unicode/utf8"
)

// MinEssayLength is the minimum number of characters an essay must contain
// before it is sent to a model.
const MinEssayLength = 50

var (
	// ErrEssayTooShort indicates the essay is below MinEssayLength characters.
	ErrEssayTooShort = errors.New("essay too short to evaluate")
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrInvalidResponse indicates the model output did not match the evaluation schema.
	ErrInvalidResponse = errors.New("model returned an invalid evaluation")
)

// EvaluationRequest carries the raw essay submitted for grading.
type EvaluationRequest struct {
	Text string
}

// Validate enforces the minimum length precondition.
func (r EvaluationRequest) Validate() error {
	if utf8.RuneCountInString(r.Text) < MinEssayLength {
		return ErrEssayTooShort
	}
	return nil
}

// DimensionScore is the score for one rubric axis.
type DimensionScore struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	FullMark float64 `json:"fullMark"`
	Comment  string  `json:"comment"`
}

// SuggestionItem is a piece of feedback, optionally anchored to a quoted sentence.
type SuggestionItem struct {
	Point string `json:"point"`
	Quote string `json:"quote"`
}

// EvaluationResult is the structured grading report returned by the model.
type EvaluationResult struct {
	TotalScore  float64          `json:"totalScore"`
	IsPass      bool             `json:"isPass"`
	Summary     string           `json:"summary"`
	Dimensions  []DimensionScore `json:"dimensions"`
	Strengths   []string         `json:"strengths"`
	Weaknesses  []string         `json:"weaknesses"`
	Suggestions []SuggestionItem `json:"suggestions"`
}

// Evaluator grades an essay with a generative model.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (EvaluationResult, error)
}
