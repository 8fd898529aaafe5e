package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-grader/internal/config"
	"github.com/noah-isme/essay-grader/internal/database"
	"github.com/noah-isme/essay-grader/internal/handler"
	"github.com/noah-isme/essay-grader/internal/middleware"
	"github.com/noah-isme/essay-grader/internal/repository"
	"github.com/noah-isme/essay-grader/internal/router"
	"github.com/noah-isme/essay-grader/internal/service"
	"github.com/noah-isme/essay-grader/internal/web"
	"github.com/noah-isme/essay-grader/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.IsProduction() {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	evaluator, model, err := newEvaluator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create evaluator")
	}

	var redisClient *redis.Client
	sessions := repository.NewMemorySessionRepository(cfg.SessionTTL)
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		sessions = repository.NewRedisSessionRepository(redisClient, "", cfg.SessionTTL)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load page templates")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := service.NewNATSEventPublisher(natsConn, cfg.NATSSubject, logger)
	gradingService := service.NewGradingService(sessions, evaluator, events, validate, logger)

	evaluationHandler := handler.NewEvaluationHandler(gradingService, logger)
	pageHandler := handler.NewPageHandler(gradingService, renderer, cfg.AppName, model, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// Evaluations wait on the model for tens of seconds.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		SessionTTL:   cfg.SessionTTL,
		SecureCookie: cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: evaluationHandler,
		PageHandler:       pageHandler,
	})

	logger.Info().
		Str("provider", cfg.AIProvider).
		Str("model", model).
		Bool("redis_sessions", redisClient != nil).
		Bool("nats_events", natsConn != nil).
		Str("addr", cfg.HTTPAddress()).
		Msg("starting essay grader")

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func newEvaluator(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ai.Evaluator, string, error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, "", err
		}
		model := cfg.AIModel
		if model == "" {
			model = ai.DefaultGeminiModel
		}
		evaluator, err := ai.NewGeminiEvaluator(client, ai.GeminiConfig{
			Model:       model,
			Temperature: &cfg.AITemperature,
			Timeout:     cfg.AITimeout,
			Logger:      logger,
		})
		return evaluator, model, err
	case config.ProviderOpenAI:
		model := cfg.AIModel
		if model == "" {
			model = ai.DefaultOpenAIModel
		}
		evaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       model,
			Temperature: &cfg.AITemperature,
			Timeout:     cfg.AITimeout,
			Logger:      logger,
		})
		return evaluator, model, err
	default:
		return nil, "", fmt.Errorf("%w: %q", config.ErrUnsupportedProvider, cfg.AIProvider)
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
