package dto

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/essay-grader/internal/models"
	"github.com/noah-isme/essay-grader/pkg/ai"
)

// EvaluationRequest is the payload for submitting an essay.
type EvaluationRequest struct {
	Text string `json:"text" form:"text" validate:"required"`
}

// Submittable reports whether text is long enough to be submitted. Leading
// and trailing whitespace does not count towards the minimum.
func Submittable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > ai.MinEssayLength
}

// Banner is the headline shown above a report.
type Banner struct {
	Label    string `json:"label"`
	Headline string `json:"headline"`
	Tagline  string `json:"tagline"`
	Emoji    string `json:"emoji"`
}

// DimensionView is one rubric dimension prepared for display.
type DimensionView struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	FullMark float64 `json:"fullMark"`
	Comment  string  `json:"comment"`
	Percent  float64 `json:"percent"`
}

// RadarPoint is one axis of the dimension radar chart.
type RadarPoint struct {
	Subject  string  `json:"subject"`
	Value    float64 `json:"value"`
	FullMark float64 `json:"fullMark"`
}

// SuggestionView is one numbered suggestion.
type SuggestionView struct {
	Index     int    `json:"index"`
	Point     string `json:"point"`
	Quote     string `json:"quote"`
	ShowQuote bool   `json:"showQuote"`
}

// EvaluationReport is the renderable form of an evaluation result.
type EvaluationReport struct {
	TotalScore      float64          `json:"totalScore"`
	MaxScore        int              `json:"maxScore"`
	Passed          bool             `json:"passed"`
	ModelIsPass     bool             `json:"modelIsPass"`
	VerdictMismatch bool             `json:"verdictMismatch"`
	Banner          Banner           `json:"banner"`
	Summary         string           `json:"summary"`
	Dimensions      []DimensionView  `json:"dimensions"`
	Radar           []RadarPoint     `json:"radar"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Suggestions     []SuggestionView `json:"suggestions"`
}

var (
	passBanner = Banner{
		Label:    "PASSED",
		Headline: "太棒了，你已经达标！",
		Tagline:  "继续保持，高项证书在向你招手！",
		Emoji:    "🎉",
	}
	failBanner = Banner{
		Label:    "FAILED",
		Headline: "差一点点，再接再厉！",
		Tagline:  "根据建议优化，下次一定行！",
		Emoji:    "💪",
	}
)

// IsPassing applies the rubric pass threshold to a total score.
func IsPassing(totalScore float64) bool {
	return totalScore >= ai.PassThreshold
}

// NewEvaluationReport maps a model evaluation into a report. The pass state
// is derived from the total score, independent of the model's isPass.
func NewEvaluationReport(result ai.EvaluationResult) EvaluationReport {
	passed := IsPassing(result.TotalScore)
	banner := failBanner
	if passed {
		banner = passBanner
	}

	dimensions := make([]DimensionView, 0, len(result.Dimensions))
	radar := make([]RadarPoint, 0, len(result.Dimensions))
	for _, dim := range result.Dimensions {
		dimensions = append(dimensions, DimensionView{
			Name:     dim.Name,
			Score:    dim.Score,
			FullMark: dim.FullMark,
			Comment:  dim.Comment,
			Percent:  percentOf(dim.Score, dim.FullMark),
		})
		radar = append(radar, RadarPoint{Subject: dim.Name, Value: dim.Score, FullMark: dim.FullMark})
	}

	suggestions := make([]SuggestionView, 0, len(result.Suggestions))
	for i, item := range result.Suggestions {
		suggestions = append(suggestions, SuggestionView{
			Index:     i + 1,
			Point:     item.Point,
			Quote:     item.Quote,
			ShowQuote: item.Quote != "",
		})
	}

	return EvaluationReport{
		TotalScore:      result.TotalScore,
		MaxScore:        ai.RubricTotal,
		Passed:          passed,
		ModelIsPass:     result.IsPass,
		VerdictMismatch: passed != result.IsPass,
		Banner:          banner,
		Summary:         result.Summary,
		Dimensions:      dimensions,
		Radar:           radar,
		Strengths:       nonNil(result.Strengths),
		Weaknesses:      nonNil(result.Weaknesses),
		Suggestions:     suggestions,
	}
}

// percentOf is not clamped: a score above its full mark yields more than 100.
func percentOf(score, fullMark float64) float64 {
	if fullMark == 0 {
		return 0
	}
	return score / fullMark * 100
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// SessionResponse describes the grading session to API consumers.
type SessionResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Report       *EvaluationReport `json:"report,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CanSubmit    bool              `json:"can_submit"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewSessionResponse builds a response DTO from a session model.
func NewSessionResponse(session models.Session) SessionResponse {
	status := session.Status
	if status == "" {
		status = models.SessionStatusIdle
	}

	response := SessionResponse{
		ID:           session.ID,
		Status:       string(status),
		ErrorMessage: session.ErrorMessage,
		CanSubmit:    session.CanSubmit(),
		StartedAt:    session.StartedAt,
		UpdatedAt:    session.UpdatedAt,
	}

	if status == models.SessionStatusSuccess && session.Result != nil {
		report := NewEvaluationReport(*session.Result)
		response.Report = &report
	}

	return response
}
