package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/telebot.v3"

	"learnhub/internal/app"
	"learnhub/internal/domain/notify"
	"learnhub/internal/domain/progress"
	"learnhub/internal/domain/schedule"
	"learnhub/internal/infra/config"
	"learnhub/internal/infra/content"
	idb "learnhub/internal/infra/database"
	"learnhub/internal/infra/httpapi"
	"learnhub/internal/infra/logger"
	"learnhub/internal/infra/memory"
	"learnhub/internal/infra/metrics"
	inotify "learnhub/internal/infra/notify"
	"learnhub/internal/infra/scheduler"
)

const terminalJobRetention = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLog := logger.Log.WithField("component", "main")
	mainLog.WithFields(map[string]interface{}{
		"environment": cfg.Environment,
		"storage":     cfg.StorageBackend,
		"channel":     cfg.NotifyChannel,
	}).Info("LearnHub starting")

	// Storage backend.
	var jobTable schedule.JobTable
	var progressStore progress.Store
	if cfg.StorageBackend == "postgres" {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			mainLog.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		jobTable = idb.NewPostgresJobTable(db)
		progressStore = idb.NewPostgresProgressStore(db)
		mainLog.Info("Postgres storage initialized")
	} else {
		jobTable = memory.NewJobTable()
		progressStore = memory.NewProgressStore()
		mainLog.Info("In-memory storage initialized")
	}

	// Notification channel.
	var notifier notify.Notifier
	switch cfg.NotifyChannel {
	case "email":
		notifier = inotify.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.FromEmail, logger.Log.WithField("component", "notifier"))
	case "telegram":
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			mainLog.WithError(err).Fatal("Could not create Telegram bot")
		}
		notifier = inotify.NewTelegramNotifier(bot)
	default:
		notifier = inotify.NewConsoleNotifier(logger.Log.WithField("component", "notifier"))
	}

	contentProvider := content.NewStaticProvider()
	clock := scheduler.NewRealClock()

	deliverySvc := app.NewDeliveryService(
		progressStore,
		contentProvider,
		notifier,
		app.DeliveryConfig{AdvanceOnFailure: cfg.AdvanceOnFailure},
		logger.Log.WithField("component", "delivery"),
	)
	enrollmentSvc := app.NewEnrollmentService(
		jobTable,
		progressStore,
		notifier,
		clock,
		app.EnrollmentConfig{
			MaxLessons:     cfg.MaxLessons,
			FirstLessonNow: cfg.FirstLessonNow,
			TestStartDelay: cfg.TestModeStartDelay,
			TestInterval:   cfg.TestModeInterval,
		},
		logger.Log.WithField("component", "enrollment"),
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	metrics.RegisterLiveJobs(prometheus.DefaultRegisterer, func() float64 {
		n, err := jobTable.Count(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	dispatcher := scheduler.NewDispatcher(scheduler.DispatcherConfig{
		Table:   jobTable,
		Handler: deliverySvc,
		Policy: scheduler.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    scheduler.FixedBackoff(cfg.RetryDelay),
		},
		Clock:          clock,
		PollInterval:   cfg.PollInterval,
		HandlerTimeout: cfg.HandlerTimeout,
		Metrics:        m,
		Logger:         logger.Log.WithField("component", "dispatcher"),
	})
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Run(dispatcherCtx)

	janitor := scheduler.NewJanitor(jobTable, terminalJobRetention, logger.Log.WithField("component", "janitor"))
	janitor.Start()

	server := httpapi.NewServer(&httpapi.Options{
		Addr:       cfg.HTTPAddr,
		Enrollment: enrollmentSvc,
		Progress:   progressStore,
		Jobs:       jobTable,
		Channel:    cfg.NotifyChannel,
		Logger:     logger.Log.WithField("component", "http"),
	})
	go func() {
		if err := server.Start(); err != nil {
			mainLog.WithError(err).Fatal("HTTP server failed")
		}
	}()
	mainLog.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLog.Info("Shutting down")
	stopDispatcher()
	janitor.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		mainLog.WithError(err).Error("HTTP server shutdown failed")
	}
	mainLog.Info("Shut down gracefully")
}
