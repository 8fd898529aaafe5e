package ai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ProviderError carries the HTTP status a model provider answered with.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s responded with HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the provider asked the caller to back off or failed on its side.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// providerError attaches the upstream status to err when the SDK exposes one.
func providerError(provider string, err error) error {
	if status := upstreamStatus(err); status > 0 {
		return &ProviderError{Provider: provider, StatusCode: status, Err: err}
	}
	return err
}

func upstreamStatus(err error) int {
	var genaiValue genai.APIError
	if errors.As(err, &genaiValue) {
		return genaiValue.Code
	}
	var genaiPtr *genai.APIError
	if errors.As(err, &genaiPtr) {
		return genaiPtr.Code
	}
	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return openaiErr.HTTPStatusCode
	}
	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) {
		return requestErr.HTTPStatusCode
	}
	return 0
}
