package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper/comments/internal/config"
	"github.com/whisper/comments/internal/featured"
	"github.com/whisper/comments/internal/messaging"
	"github.com/whisper/comments/pkg/logger"
)

func main() {
	log := logger.New("comments-moderator")
	log.Info().Msg("Starting comment view maintainer...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Redis setup.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	cancel()

	// NATS setup.
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATS.URL
	natsConfig.Name = "comments-moderator"

	natsClient, err := messaging.NewNATSClient(natsConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}

	maintainer := featured.NewMaintainer(featured.NewStore(rdb), log,
		featured.Featured,
		featured.PremodQueue,
	)

	if err := natsClient.SubscribeCommentEvents(cfg.NATS.Queue, maintainer.HandleMessage); err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to comment events")
	}

	log.Info().
		Str("redis_addr", cfg.Redis.Addr).
		Str("nats_url", natsConfig.URL).
		Str("queue", cfg.NATS.Queue).
		Msg("View maintainer running")

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down...")

	natsClient.Close()
	rdb.Close()
}
