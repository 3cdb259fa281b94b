package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/epco/stocksync/internal/domain/models"
)

// upsertStateQuery keeps last_balance_date monotonic: a null or older observed
// date leaves the stored one untouched, while the run metadata is always
// refreshed.
const upsertStateQuery = `
INSERT INTO load_state_balance (scope_key, last_balance_date, last_run_utc, last_rowcount)
VALUES (?, ?, ?, ?)
ON CONFLICT(scope_key) DO UPDATE SET
	last_balance_date = CASE
		WHEN excluded.last_balance_date IS NOT NULL
		 AND (load_state_balance.last_balance_date IS NULL
		      OR excluded.last_balance_date > load_state_balance.last_balance_date)
		THEN excluded.last_balance_date
		ELSE load_state_balance.last_balance_date
	END,
	last_run_utc  = excluded.last_run_utc,
	last_rowcount = excluded.last_rowcount`

type stateRow struct {
	ScopeKey        string         `db:"scope_key"`
	LastBalanceDate sql.NullString `db:"last_balance_date"`
	LastRunUTC      sql.NullString `db:"last_run_utc"`
	LastRowCount    sql.NullInt64  `db:"last_rowcount"`
}

func (r stateRow) model() models.ScopeState {
	state := models.ScopeState{
		ScopeKey:        r.ScopeKey,
		LastBalanceDate: parseDate(r.LastBalanceDate),
		LastRowCount:    int(r.LastRowCount.Int64),
	}
	if r.LastRunUTC.Valid {
		if t, err := time.Parse(runLayout, r.LastRunUTC.String); err == nil {
			state.LastRunUTC = &t
		}
	}
	return state
}

// LastBalanceDate returns the checkpoint date of a scope, nil when the scope
// has never been synced or never observed a dated record.
func (s *Store) LastBalanceDate(ctx context.Context, scopeKey string) (*time.Time, error) {
	var date sql.NullString
	err := s.db.GetContext(ctx, &date, `SELECT last_balance_date FROM load_state_balance WHERE scope_key = ?`, scopeKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read load state %s: %w", scopeKey, err)
	}
	return parseDate(date), nil
}

// ScopeState returns the full checkpoint row, nil when absent.
func (s *Store) ScopeState(ctx context.Context, scopeKey string) (*models.ScopeState, error) {
	var row stateRow
	err := s.db.GetContext(ctx, &row, `SELECT scope_key, last_balance_date, last_run_utc, last_rowcount
		FROM load_state_balance WHERE scope_key = ?`, scopeKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read load state %s: %w", scopeKey, err)
	}
	state := row.model()
	return &state, nil
}

// ScopeStates lists every checkpoint ordered by scope key.
func (s *Store) ScopeStates(ctx context.Context) ([]models.ScopeState, error) {
	var rows []stateRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT scope_key, last_balance_date, last_run_utc, last_rowcount
		FROM load_state_balance ORDER BY scope_key`); err != nil {
		return nil, fmt.Errorf("list load state: %w", err)
	}
	states := make([]models.ScopeState, 0, len(rows))
	for _, r := range rows {
		states = append(states, r.model())
	}
	return states, nil
}

// UpsertScopeState records a finished fetch cycle for a scope.
func (s *Store) UpsertScopeState(ctx context.Context, scopeKey string, observedMax *time.Time, rowCount int) error {
	return s.upsertScopeState(ctx, s.db, scopeKey, observedMax, rowCount)
}

func (s *Store) upsertScopeState(ctx context.Context, exec sqlx.ExecerContext, scopeKey string, observedMax *time.Time, rowCount int) error {
	if _, err := exec.ExecContext(ctx, upsertStateQuery,
		scopeKey, formatDate(observedMax), s.now().UTC().Format(runLayout), rowCount); err != nil {
		return fmt.Errorf("upsert load state %s: %w", scopeKey, err)
	}
	return nil
}

func formatDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func parseDate(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
