package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fkoehle/habit-coach/internal/auth"
	"github.com/fkoehle/habit-coach/internal/config"
	"github.com/fkoehle/habit-coach/internal/db"
	"github.com/fkoehle/habit-coach/internal/httpapi"
	"github.com/fkoehle/habit-coach/internal/store/rabbitmq"
	"github.com/fkoehle/habit-coach/internal/store/redisstore"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	gdb, err := db.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	// The async send endpoint degrades when RabbitMQ is unreachable; the
	// rest of the API does not depend on it.
	rabbit, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable, async coach replies disabled")
		rabbit = nil
	} else {
		defer rabbit.Close()
	}

	broker := auth.NewBroker()
	defer broker.Close()

	// Cached achievements must not outlive a session.
	events, unsubscribe := broker.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			if ev.State != auth.SignedOut {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := rds.InvalidateAchievements(ctx, ev.UserID); err != nil {
				log.Warn().Err(err).Uint64("user_id", ev.UserID).Msg("cache invalidation on sign-out failed")
			}
			cancel()
		}
	}()

	router := httpapi.NewRouter(gdb, cfg, rds, broker, rabbit)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
