package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/online-store/internal/config"
	"github.com/example/online-store/internal/domain/user"
	"github.com/example/online-store/internal/email"
	"github.com/example/online-store/internal/infrastructure/kafka"
	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/logger"
	"github.com/example/online-store/internal/notification"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup("notifier", cfg.Log.Level, cfg.Log.Format)

	if !cfg.KafkaEnabled() {
		log.Fatal().Msg("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Recipients are looked up in the same database the API writes to.
	db, err := store.ConnectPostgres(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()

	users := user.NewService(store.NewPostgresStore(db))
	mailer := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	handler := notification.NewHandler(mailer, users)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup)
	defer consumer.Close()

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Str("smtp", cfg.SMTP.Host).
		Msg("notifier started")

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("shutting down")
}
