package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/online-store/internal/api"
	"github.com/example/online-store/internal/auth"
	"github.com/example/online-store/internal/cache"
	"github.com/example/online-store/internal/config"
	"github.com/example/online-store/internal/domain/cart"
	"github.com/example/online-store/internal/domain/catalog"
	"github.com/example/online-store/internal/domain/order"
	"github.com/example/online-store/internal/domain/report"
	"github.com/example/online-store/internal/domain/user"
	"github.com/example/online-store/internal/infrastructure/kafka"
	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/logger"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup("api", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.ConnectPostgres(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	if cfg.Postgres.MigrateOnStart {
		if err := store.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	st := store.NewPostgresStore(db)

	// Order events are optional; without brokers the database is the only record.
	var publisher order.Publisher
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing order events")
	}

	userSvc := user.NewService(st)
	if cfg.Admin.Password != "" {
		admin, created, err := userSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin account")
		}
		if created {
			log.Info().Str("username", admin.Username).Msg("admin account created")
		}
	}

	if n, err := userSvc.PruneRevokedTokens(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to prune token blacklist")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("pruned expired token blacklist entries")
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	routerCfg := api.RouterConfig{
		Handlers: api.NewHandlers(
			catalog.NewService(st),
			cart.NewService(st),
			order.NewService(st, publisher),
			report.NewService(st),
		),
		Auth:        api.NewAuthHandlers(userSvc, jwtService),
		JWT:         jwtService,
		Revocations: userSvc,
		LoginLimit:  cfg.Auth.LoginRateLimit,
		Health:      db.PingContext,
	}

	if cfg.RedisEnabled() {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, caching and rate limiting disabled")
		} else {
			defer client.Close()
			redisCache := cache.NewRedisCache(client)
			routerCfg.Cache = redisCache
			routerCfg.CacheTTL = cfg.Redis.CacheTTL
			routerCfg.Limiter = redisCache
		}
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
