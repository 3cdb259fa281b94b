package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type migration struct {
	version    int
	statements []string
}

// migrations is the explicit, versioned schema. New versions are appended;
// applied versions are never edited.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS fact_balance (
				balance_id      TEXT    NOT NULL PRIMARY KEY CHECK (length(balance_id) = 64),
				inventory_kind  TEXT,
				balance_date    TEXT,
				warehouse_id    INTEGER,
				warehouse_code  TEXT,
				product_code    TEXT,
				product_barcode TEXT,
				product_id      TEXT,
				card_code       TEXT,
				expiry_date     TEXT,
				serial_number   TEXT,
				batch_number    TEXT,
				quantity        TEXT,
				measure_code    TEXT,
				input_price     TEXT,
				filial_id       INTEGER,
				filial_code     TEXT
			);`,
			`CREATE INDEX IF NOT EXISTS ix_fact_balance_product
				ON fact_balance(product_id, warehouse_id, batch_number, balance_date);`,
			`CREATE TABLE IF NOT EXISTS balance_group (
				balance_id TEXT NOT NULL REFERENCES fact_balance(balance_id),
				group_code TEXT NOT NULL,
				type_code  TEXT,
				PRIMARY KEY (balance_id, group_code)
			);`,
			`CREATE INDEX IF NOT EXISTS ix_balance_group_code ON balance_group(group_code);`,
			`CREATE TABLE IF NOT EXISTS balance_condition (
				balance_id        TEXT NOT NULL REFERENCES fact_balance(balance_id),
				product_condition TEXT NOT NULL,
				PRIMARY KEY (balance_id, product_condition)
			);`,
			`CREATE INDEX IF NOT EXISTS ix_balance_condition_cond ON balance_condition(product_condition);`,
			`CREATE TABLE IF NOT EXISTS load_state_balance (
				scope_key         TEXT    NOT NULL PRIMARY KEY,
				last_balance_date TEXT,
				last_run_utc      TEXT,
				last_rowcount     INTEGER
			);`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER NOT NULL PRIMARY KEY,
		applied_at TEXT    NOT NULL
	);`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.Info("schema migrated", zap.Int("version", m.version))
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.GetContext(ctx, &version, `SELECT MAX(version) FROM schema_version`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		m.version, s.now().UTC().Format(runLayout)); err != nil {
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	return tx.Commit()
}
