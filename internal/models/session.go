package models

import (
	"errors"
	"time"

	"github.com/noah-isme/essay-grader/pkg/ai"
)

// SessionStatus enumerates the grading flow states of a browser session.
type SessionStatus string

const (
	SessionStatusIdle      SessionStatus = "IDLE"
	SessionStatusAnalyzing SessionStatus = "ANALYZING"
	SessionStatusSuccess   SessionStatus = "SUCCESS"
	SessionStatusError     SessionStatus = "ERROR"
)

var (
	// ErrAnalysisInProgress indicates the session already has an outstanding evaluation.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	// ErrResetRequired indicates a finished report must be reset before resubmitting.
	ErrResetRequired = errors.New("reset required before a new submission")
)

// Session is the per-browser grading state. Only the latest outcome is kept.
type Session struct {
	ID           string               `json:"id"`
	Status       SessionStatus        `json:"status"`
	Result       *ai.EvaluationResult `json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewSession returns an idle session.
func NewSession(id string, now time.Time) Session {
	return Session{ID: id, Status: SessionStatusIdle, UpdatedAt: now}
}

// CanSubmit reports whether a new evaluation may start from the current state.
func (s Session) CanSubmit() bool {
	return s.Status == SessionStatusIdle || s.Status == SessionStatusError || s.Status == ""
}

// Begin moves the session into Analyzing.
func (s *Session) Begin(now time.Time) error {
	switch s.Status {
	case SessionStatusAnalyzing:
		return ErrAnalysisInProgress
	case SessionStatusSuccess:
		return ErrResetRequired
	}
	s.Status = SessionStatusAnalyzing
	s.Result = nil
	s.ErrorMessage = ""
	s.StartedAt = &now
	s.UpdatedAt = now
	return nil
}

// Succeed records a completed evaluation.
func (s *Session) Succeed(result ai.EvaluationResult, now time.Time) {
	s.Status = SessionStatusSuccess
	s.Result = &result
	s.ErrorMessage = ""
	s.UpdatedAt = now
}

// Fail records a failed evaluation with a user-facing message.
func (s *Session) Fail(message string, now time.Time) {
	s.Status = SessionStatusError
	s.Result = nil
	s.ErrorMessage = message
	s.UpdatedAt = now
}

// Reset discards the result and returns the session to Idle.
// An outstanding evaluation cannot be cancelled.
func (s *Session) Reset(now time.Time) error {
	if s.Status == SessionStatusAnalyzing {
		return ErrAnalysisInProgress
	}
	s.Status = SessionStatusIdle
	s.Result = nil
	s.ErrorMessage = ""
	s.StartedAt = nil
	s.UpdatedAt = now
	return nil
}
