package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger       *zerolog.Logger
	SessionTTL   time.Duration
	SecureCookie bool
}

// Register attaches the common middlewares used across the service.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Session(SessionConfig{TTL: cfg.SessionTTL, Secure: cfg.SecureCookie}))
	app.Use(Observability(requestLogger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, X-Session-ID, X-Correlation-ID",
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		ExposeHeaders: "X-Session-ID, X-Correlation-ID",
	}))
}
