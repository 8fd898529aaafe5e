package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ProviderGemini selects the Google Gemini evaluator.
	ProviderGemini = "gemini"
	// ProviderOpenAI selects the OpenAI chat completion evaluator.
	ProviderOpenAI = "openai"
)

var (
	// ErrUnsupportedProvider is returned when ai.provider names an unknown backend.
	ErrUnsupportedProvider = errors.New("unsupported ai provider")
	// ErrMissingAPIKey is returned when the selected provider has no API key.
	ErrMissingAPIKey = errors.New("api key must be provided for the selected ai provider")
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	AIProvider      string
	AIModel         string
	AITemperature   float32
	AITimeout       time.Duration
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	RedisURL        string
	SessionTTL      time.Duration
	NATSURL         string
	NATSSubject     string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ESSAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Essay Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.timeout", "0s")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("nats.subject", "essay.evaluations")
	v.SetDefault("rate_limit.max", 10)
	v.SetDefault("rate_limit.window", "1m")

	sessionTTL, err := parseDuration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	aiTimeout, err := parseDuration(v, "ai.timeout")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		AIProvider:      strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		AIModel:         strings.TrimSpace(v.GetString("ai.model")),
		AITemperature:   float32(v.GetFloat64("ai.temperature")),
		AITimeout:       aiTimeout,
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIBaseURL:   v.GetString("openai_base_url"),
		RedisURL:        v.GetString("redis.url"),
		SessionTTL:      sessionTTL,
		NATSURL:         v.GetString("nats.url"),
		NATSSubject:     v.GetString("nats.subject"),
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
	}

	switch cfg.AIProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("%w: ESSAY_GEMINI_API_KEY", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("%w: ESSAY_OPENAI_API_KEY", ErrMissingAPIKey)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.AIProvider)
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 10
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
