package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper/comments/internal/api"
	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/config"
	"github.com/whisper/comments/internal/database"
	"github.com/whisper/comments/internal/featured"
	"github.com/whisper/comments/internal/messaging"
	"github.com/whisper/comments/internal/settings"
	"github.com/whisper/comments/pkg/logger"
)

func main() {
	log := logger.New("comments-editor")
	log.Info().Msg("Starting comment editor service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	checks := map[string]func(ctx context.Context) error{}

	// Redis backs the cached views and optionally the store and settings.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	redisUp := pingRedis(rdb) == nil
	if redisUp {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn().Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, featured views disabled")
	}

	var store comment.Store
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		checks["postgres"] = db.HealthCheck
		store = comment.NewPostgresStore(db.DB)
	case config.BackendRedis:
		if !redisUp {
			log.Fatal().Str("addr", cfg.Redis.Addr).Msg("Redis store selected but Redis is unreachable")
		}
		store = comment.NewRedisStore(rdb)
	default:
		log.Warn().Msg("Using in-memory comment store; data is lost on restart")
		store = comment.NewMemoryStore()
	}

	var source api.SettingsService
	if cfg.SettingsSource == config.SettingsRedis && redisUp {
		source = settings.NewRedis(rdb, cfg.Moderation)
	} else {
		source = settings.NewStatic(cfg.Moderation)
	}

	opts := []comment.Option{}
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATS.URL
	natsConfig.Name = "comments-editor"
	natsClient, err := messaging.NewNATSClient(natsConfig, log)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable, comment events will not be published")
	} else {
		defer natsClient.Close()
		opts = append(opts, comment.WithPublisher(comment.NewBusPublisher(natsClient)))
		checks["nats"] = func(context.Context) error {
			if !natsClient.Connected() {
				return errNATSDisconnected
			}
			return nil
		}
	}

	editor := comment.NewEditor(store, source, comment.Config{
		MaxEditAttempts: cfg.Editor.MaxEditAttempts,
		RetryBackoff:    cfg.Editor.RetryBackoff,
		SaveTimeout:     cfg.Editor.SaveTimeout,
	}, log, opts...)

	services := &api.Services{
		Comments: editor,
		Settings: source,
		Loader:   store,
		Checks:   checks,
	}
	if redisUp {
		services.Views = featured.NewStore(rdb)
	}

	router := api.NewRouter(services, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("store", cfg.StoreBackend).
			Str("settings", cfg.SettingsSource).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

var errNATSDisconnected = errors.New("nats: not connected")

func pingRedis(rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
