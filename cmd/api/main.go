// @title                       Feedback System API
// @version                     1.0
// @description                 Manager to employee performance feedback with acknowledgment tracking.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/feedbackflow/feedback-system/internal/api"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
	"github.com/feedbackflow/feedback-system/internal/core/service"
	mongostore "github.com/feedbackflow/feedback-system/internal/infrastructure/db/mongo"
	pgstore "github.com/feedbackflow/feedback-system/internal/infrastructure/db/postgres"
	redisstore "github.com/feedbackflow/feedback-system/internal/infrastructure/db/redis"
	"github.com/feedbackflow/feedback-system/internal/infrastructure/http/handlers"
	"github.com/feedbackflow/feedback-system/internal/infrastructure/queue"
	"github.com/feedbackflow/feedback-system/internal/infrastructure/seed"
	"github.com/feedbackflow/feedback-system/internal/pkg/config"
	"github.com/feedbackflow/feedback-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// store is the persistence backend selected by STORE_DRIVER.
type store struct {
	users    ports.UserRepository
	feedback ports.FeedbackRepository
	pingers  []handlers.Pinger
	close    func(ctx context.Context)
}

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "feedback-api",
		Env:     cfg.Env,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer st.close(context.Background())

	var blocklist ports.TokenBlocklist
	pingers := st.pingers
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		blocklist = redisstore.NewTokenBlocklist(rdb)
		pingers = append(pingers, redisstore.NewPinger(rdb))
	} else {
		log.Warn().Msg("REDIS_ADDR not set, logout will not revoke tokens")
	}

	serializer := queue.NewSerializer(cfg.Store.SerializerWorkers, log)
	serializer.Start(ctx)

	timeout := cfg.Auth.DirectoryTimeout
	authService := service.NewAuthService(service.AuthServiceConfig{
		Repo:      st.users,
		Blocklist: blocklist,
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
		Timeout:   timeout,
		Logger:    log,
	})
	userService := service.NewUserService(st.users, timeout, log)
	feedbackService := service.NewFeedbackService(service.FeedbackServiceConfig{
		Repo:       st.feedback,
		Directory:  st.users,
		Serializer: serializer,
		Timeout:    timeout,
		Logger:     log,
	})
	statsService := service.NewStatsService(st.feedback, st.users, timeout, log)

	if cfg.SeedFile != "" {
		f, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("failed to load seed file")
		}
		if err := seed.Apply(ctx, f, st.users, st.feedback, log); err != nil {
			log.Fatal().Err(err).Msg("failed to seed store")
		}
	}

	e := api.NewRouter(api.Dependencies{
		Auth:          authService,
		Users:         userService,
		Feedback:      feedbackService,
		Stats:         statsService,
		Health:        pingers,
		Logger:        log,
		AllowOrigins:  strings.Split(cfg.FrontendURL, ","),
		SecureCookies: !cfg.IsDevelopment(),
		Registerer:    prometheus.DefaultRegisterer,
		Gatherer:      prometheus.DefaultGatherer,
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("driver", cfg.Store.Driver).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	waitForShutdown(log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	// Stops the serializer workers after in-flight requests have drained.
	cancel()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongostore.NewUserRepository(db)
		feedback := mongostore.NewFeedbackRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("user indexes: %w", err)
		}
		if err := feedback.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("feedback indexes: %w", err)
		}
		return &store{
			users:    users,
			feedback: feedback,
			pingers:  []handlers.Pinger{mongostore.NewPinger(db)},
			close:    func(ctx context.Context) { _ = client.Disconnect(ctx) },
		}, nil

	case config.StorePostgres:
		pool, err := pgstore.Connect(ctx, pgstore.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := pgstore.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &store{
			users:    pgstore.NewUserRepository(pool),
			feedback: pgstore.NewFeedbackRepository(pool),
			pingers:  []handlers.Pinger{pgstore.NewPinger(pool)},
			close:    func(context.Context) { pool.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func waitForShutdown(log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")
}
