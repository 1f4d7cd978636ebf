// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/app"
	"github.com/unclebandit/collabhub-backend/internal/cache"
	"github.com/unclebandit/collabhub-backend/internal/config"
	"github.com/unclebandit/collabhub-backend/internal/controller"
	"github.com/unclebandit/collabhub-backend/internal/db"
	"github.com/unclebandit/collabhub-backend/internal/handler"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/queue"
	"github.com/unclebandit/collabhub-backend/internal/repository"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	conn, err := db.Open(ctx, cfg.DSN(), cfg.DBMaxOpenConns, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()
	store := repository.NewPostgresStore(conn)

	q := queue.NewInMemoryQueue(log)
	if err := queue.LogEvents(q, log); err != nil {
		log.WithError(err).Fatal("subscribe event log")
	}
	if cfg.AMQPURL != "" {
		publisher, err := queue.DialPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to RabbitMQ")
		}
		defer publisher.Close()
		if err := publisher.Forward(q, queue.AllTopics...); err != nil {
			log.WithError(err).Fatal("forward events")
		}
	}

	var profileCache service.ProfileCache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("failed to configure redis")
		}
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, profile cache disabled")
		} else {
			profileCache = cache.NewProfileCache(client, cfg.ProfileCacheTTL)
		}
	}

	a := app.New(cfg, store, q, profileCache, log)
	router := controller.NewRouter(controller.Deps{
		Accounts:     a.Accounts,
		Campaigns:    a.Campaigns,
		Applications: a.Applications,
		Ledger:       a.Ledger,
		Profiles:     a.Profiles,
		Sessions:     a.Sessions,
		Storage:      store,
		RateLimiter:  handler.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Log:          log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("🚀 Server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
	q.Wait()
	log.Info("server stopped")
}
