package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/activity-tracker/internal/api"
	"example.com/activity-tracker/internal/config"
	"example.com/activity-tracker/internal/domain"
	"example.com/activity-tracker/internal/intervals"
	"example.com/activity-tracker/internal/outbox"
	persistence "example.com/activity-tracker/internal/persistence/postgres"
	syncengine "example.com/activity-tracker/internal/sync"
	httptransport "example.com/activity-tracker/internal/transport/http"
)

func main() {
	cfg := config.Load()
	configureLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	client := intervals.NewClient(intervals.Config{
		BaseURL:   cfg.IntervalsBaseURL,
		APIKey:    cfg.IntervalsAPIKey,
		AthleteID: cfg.IntervalsAthleteID,
	})

	engine := syncengine.NewEngine(client, repo)

	var scheduler *syncengine.Scheduler
	if cfg.IntervalsAPIKey == "" {
		logrus.Warn("no Intervals.icu API key configured, scheduler disabled")
	} else {
		scheduler = syncengine.NewScheduler(engine, cfg.FetchInterval)
		go scheduler.Start(ctx)
	}

	service := domain.NewService(repo)
	handler := api.NewHandler(service, engine, client)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logrus.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("request")
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(cfg.HTTPAddress, logger(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logrus.WithField("address", cfg.HTTPAddress).Info("activity tracker listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}

	dispatcher.Wait()
	if scheduler != nil {
		scheduler.Wait()
	}
}

func configureLogging(cfg config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}
