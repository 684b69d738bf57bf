package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/nutrilog-backend/internal/config"
	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/handlers"
	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/middleware"
	"github.com/AnshRaj112/nutrilog-backend/internal/routes"
	"github.com/AnshRaj112/nutrilog-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		logging.Info().Msg("No .env file found")
	}
	// Load configuration
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.AuthBypass {
		logging.Warn().Str("header", middleware.TestUserHeader).Msg("⚠️  AUTH_BYPASS enabled: requests may pick their user id")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to open database")
	}
	defer store.Close()

	// Redis is optional: without it events and rate limits stay in this process
	hub := services.NewEventHub()
	var publisher services.Publisher = services.NewLocalPublisher(hub)
	var limiter middleware.Limiter
	if cfg.RedisURI != "" {
		logging.Info().Msg("Connecting to Redis...")
		client, err := database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer client.Close()

		redisPublisher := services.NewRedisPublisher(client, hub)
		redisPublisher.Start(ctx)
		publisher = redisPublisher
		limiter = middleware.NewRedisLimiter(client, cfg.RateLimitPerMinute)
	} else {
		local := middleware.NewLocalLimiter(cfg.RateLimitPerMinute)
		local.StartCleanup(ctx)
		limiter = local
		logging.Info().Msg("REDIS_URI not set; using in-process rate limiter and event fan-out")
	}

	var activity services.ActivityLog = services.NopActivityLog{}
	if cfg.MongoURI != "" {
		logging.Info().Str("uri", maskURI(cfg.MongoURI)).Msg("Connecting to MongoDB...")
		client, db, err := database.ConnectMongo(cfg.MongoURI)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer database.DisconnectMongo(client)

		mongoLog := services.NewMongoActivityLog(db)
		if err := mongoLog.EnsureIndexes(ctx); err != nil {
			logging.Warn().Err(err).Msg("⚠️  failed to ensure activity indexes")
		} else {
			logging.Info().Msg("✅ MongoDB activity indexes ensured")
		}
		defer mongoLog.Wait()
		activity = mongoLog
	}

	api := handlers.NewAPI(store, hub, publisher, activity, cfg.AllowedOrigins)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		r.Use(middleware.SecurityHeaders)
		logging.Info().Msg("✅ Production security headers enabled")
	}

	routes.SetupRoutes(r, api, routes.Options{
		Auth:      middleware.AuthConfig{Secret: cfg.JWTSecret, Bypass: cfg.AuthBypass},
		Limiter:   limiter,
		RateLimit: cfg.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("🚀 Nutrilog backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func openStore(cfg *config.Config) (*database.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		logging.Info().Str("path", cfg.SQLitePath).Msg("Opening SQLite...")
		return database.OpenSQLite(cfg.SQLitePath)
	default:
		logging.Info().Msg("Connecting to PostgreSQL...")
		return database.OpenPostgres(cfg.PostgresURI)
	}
}

// maskURI hides the password of a user:pass@host URI.
func maskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at < 0 {
		return uri
	}
	start := 0
	if scheme := strings.Index(uri, "://"); scheme >= 0 && scheme < at {
		start = scheme + 3
	}
	creds := uri[start:at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return uri[:start] + creds[:colon] + ":***" + uri[at:]
	}
	return uri
}
