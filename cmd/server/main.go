package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/app"
	"github.com/epco/stocksync/internal/config"
	"github.com/epco/stocksync/internal/scheduler"
	"github.com/epco/stocksync/internal/server/handlers"
	"github.com/epco/stocksync/internal/server/router"
	"github.com/epco/stocksync/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	application, err := app.New(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to initialize", zap.Error(err))
	}
	defer application.Close(context.Background())

	var reports handlers.ReportReader
	if application.Reports != nil {
		reports = application.Reports
	}
	syncHandler := handlers.NewSyncHandler(application.Service, application.Store, reports, baseLogger.Named("handlers.sync"))
	engine := router.New(syncHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(application.Service, cfg.Sync.CronSchedule, cfg.Sync.Location(), cfg.Sync.RunTimeout, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// POST /sync runs synchronously, so the write timeout must cover a run.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sync.RunTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
