// Package app wires configuration into the sync service and its adapters.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/config"
	"github.com/epco/stocksync/internal/repository/mongodb"
	"github.com/epco/stocksync/internal/repository/sheets"
	"github.com/epco/stocksync/internal/repository/sqlstore"
	"github.com/epco/stocksync/internal/scopes"
	"github.com/epco/stocksync/internal/service/balance"
	"github.com/epco/stocksync/pkg/clients/smartup"
	"github.com/epco/stocksync/pkg/logger"
)

// App holds the long-lived components shared by the entry points.
type App struct {
	Store   *sqlstore.Store
	Service *balance.Service
	// Reports is nil when MongoDB is not configured.
	Reports *mongodb.MongoDBRepository

	logger *zap.Logger
}

// New opens the store and the optional integrations and builds the service.
func New(ctx context.Context, cfg *config.Config, base *zap.Logger) (*App, error) {
	store, err := sqlstore.Open(ctx, cfg.Database.DSN, logger.Named(base, "repo.sql"))
	if err != nil {
		return nil, err
	}
	a := &App{Store: store, logger: base}

	var sheetRepo *sheets.GoogleSheetRepository
	if cfg.Sheets.Enabled() {
		sheetRepo, err = sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(base, "repo.sheets"))
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	var source balance.ScopeSource
	switch cfg.Scopes.Source {
	case config.ScopeSourceSheets:
		source = scopes.NewSheetSource(sheetRepo, cfg.Scopes.WarehousesRange, cfg.Scopes.ConditionsRange)
	default:
		source = scopes.NewFileSource(cfg.Scopes.WarehousesFile, cfg.Scopes.ConditionsFile)
	}

	var recorders []balance.RunRecorder
	if cfg.MongoDB.Enabled() {
		a.Reports, err = mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("init mongodb repository: %w", err)
		}
		recorders = append(recorders, a.Reports)
	}
	if sheetRepo != nil && cfg.Sheets.RunLogRange != "" {
		recorders = append(recorders, sheets.NewRunLog(sheetRepo, cfg.Sheets.RunLogRange))
	}

	client := smartup.NewClient(cfg.Smartup)
	a.Service = balance.NewService(cfg.Sync, store, source, client, logger.Named(base, "svc.balance"), recorders...)
	return a, nil
}

// Close releases the store and the report archive.
func (a *App) Close(ctx context.Context) {
	if a.Reports != nil {
		if err := a.Reports.Close(ctx); err != nil {
			a.logger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Error("failed to close database", zap.Error(err))
	}
}
