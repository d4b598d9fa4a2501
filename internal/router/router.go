package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	health "github.com/soulteary/health-kit"
	logger "github.com/soulteary/logger-kit"
	middlewarekit "github.com/soulteary/middleware-kit"
	rediskit "github.com/soulteary/redis-kit/client"

	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/handler"
	"github.com/soulteary/totp-seed/internal/metrics"
	"github.com/soulteary/totp-seed/internal/store"
)

// Setup creates the Redis-backed store and mounts routes. Call config.Initialize(log) before this.
func Setup(app *fiber.App, log *logger.Logger) (*store.Store, error) {
	cfg := rediskit.DefaultConfig().
		WithAddr(config.RedisAddr).
		WithPassword(config.RedisPassword).
		WithDB(config.RedisDB)
	redisClient, err := rediskit.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	st := store.NewStore(redisClient, config.ReplayTTL, time.Minute)

	app.Use(recover.New())
	app.Use(logger.FiberMiddleware(logger.MiddlewareConfig{
		Logger:           log,
		SkipPaths:        []string{"/healthz", "/metrics"},
		IncludeRequestID: true,
		IncludeLatency:   true,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,X-Service,X-Signature,X-Timestamp,X-API-Key,X-Key-Id",
	}))

	healthConfig := health.DefaultConfig().WithServiceName(config.ServiceName)
	healthAgg := health.NewAggregator(healthConfig)
	healthAgg.AddChecker(health.NewRedisChecker(st.Client()))
	app.Get("/healthz", health.FiberHandler(healthAgg))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	zerologLogger := log.Zerolog()
	authHandler := middlewarekit.CombinedAuth(middlewarekit.AuthConfig{
		HMACConfig: &middlewarekit.HMACConfig{
			KeyProvider: config.GetHMACSecret,
		},
		APIKeyConfig: &middlewarekit.APIKeyConfig{
			APIKey: config.APIKey,
		},
		AllowNoAuth: config.AllowNoAuth(),
		Logger:      &zerologLogger,
	})
	v1 := app.Group("/v1", authHandler, handler.RateLimit(st, log))

	v1.Post("/validate", handler.Validate(log))
	v1.Post("/generate", handler.Generate(log))
	v1.Post("/verify", handler.Verify(st, log))
	v1.Post("/parse", handler.Parse())
	v1.Post("/encode", handler.Encode())
	v1.Post("/qrcode", handler.QRCode(log))

	return st, nil
}
