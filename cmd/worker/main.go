package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/app"
	"github.com/unclebandit/collabhub-backend/internal/config"
	"github.com/unclebandit/collabhub-backend/internal/db"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/queue"
	"github.com/unclebandit/collabhub-backend/internal/repository"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

const workers = 4

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DSN(), cfg.DBMaxOpenConns, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	store := repository.NewPostgresStore(conn)
	events := queue.NewInMemoryQueue(log)
	if err := queue.LogEvents(events, log); err != nil {
		log.WithError(err).Fatal("subscribe event log")
	}
	ledger := app.New(cfg, store, events, nil, log).Ledger

	consumer, err := queue.DialPurchaseConsumer(cfg.AMQPURL, cfg.AMQPPurchaseQueue, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to RabbitMQ")
	}

	// workers drain jobs until the consumer stops, then exit on the closed channel
	jobs := make(chan queue.PurchaseJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			service.NewWorker(ledger, jobs, log).Start(context.Background())
		}()
	}

	go func() {
		<-ctx.Done()
		if err := consumer.Close(); err != nil {
			log.WithError(err).Warn("closing consumer")
		}
	}()

	log.WithField("queue", cfg.AMQPPurchaseQueue).Info("Worker running, waiting for purchases...")
	if err := consumer.Run(jobs, service.IsRetryable); err != nil {
		log.WithError(err).Error("consumer stopped")
	}
	close(jobs)
	wg.Wait()
	events.Wait()
	log.Info("worker stopped")
}
