package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/app"
	"github.com/epco/stocksync/internal/config"
	"github.com/epco/stocksync/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Sync.RunTimeout)
	defer cancel()

	application, err := app.New(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to initialize", zap.Error(err))
	}

	report, err := application.Service.Run(ctx)
	application.Close(context.Background())
	if err != nil {
		baseLogger.Error("sync failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}

	baseLogger.Info("sync done",
		zap.String("run_id", report.RunID),
		zap.Int("scopes", len(report.Scopes)),
		zap.Int("facts", report.Facts),
		zap.Int("failures", report.Failures))
}
