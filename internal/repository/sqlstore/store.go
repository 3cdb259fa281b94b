// Package sqlstore persists balance facts, their group and condition
// memberships and the per-scope load state in SQLite.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	dateLayout = "2006-01-02"
	runLayout  = "2006-01-02T15:04:05.000000Z"
)

// Store is the SQLite implementation of the balance repository.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open connects to the SQLite database behind dsn and applies pending
// migrations. SQLite allows one writer, so the pool is capped at one
// connection; this also keeps temporary staging tables on a single session.
// Foreign keys are enabled through the DSN so every new connection gets them.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	dsn = withForeignKeys(dsn)
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	store := NewStore(db, logger)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// withForeignKeys appends the foreign_keys pragma unless dsn already sets it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_pragma=foreign_keys(1)"
	}
	return dsn + "?_pragma=foreign_keys(1)"
}

// NewStore wraps an existing connection. Callers are responsible for running
// Migrate.
func NewStore(db *sqlx.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
