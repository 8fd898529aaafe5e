package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "essay",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "essay",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"provider", "model", "reason"})
)

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEssayTooShort):
		return "input"
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrInvalidResponse):
		return "parse"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		return "service"
	}
	switch {
	case providerErr.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case providerErr.StatusCode >= http.StatusInternalServerError:
		return "upstream"
	default:
		return "rejected"
	}
}
