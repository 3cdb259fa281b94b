package app

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/epco/stocksync/internal/config"
)

func TestNewWiresFileSourceWithoutArchive(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Smartup:  config.SmartupConfig{BaseURL: "http://127.0.0.1:1", Username: "u", Password: "p"},
		Database: config.DatabaseConfig{DSN: filepath.Join(dir, "stocksync.db")},
		Sync:     config.SyncConfig{BufferDays: 3, StepDays: 30, Timezone: "UTC"},
		Scopes: config.ScopeConfig{
			Source:         config.ScopeSourceFile,
			WarehousesFile: filepath.Join(dir, "filial_warehouse.json"),
			ConditionsFile: filepath.Join(dir, "product_condition.json"),
		},
	}

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	if a.Service == nil || a.Store == nil {
		t.Fatal("service and store must be wired")
	}
	if a.Reports != nil {
		t.Fatal("report archive should be disabled")
	}
	if v, err := a.Store.SchemaVersion(context.Background()); err != nil || v == 0 {
		t.Fatalf("schema version = %d, %v", v, err)
	}
}
