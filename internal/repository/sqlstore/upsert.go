package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/domain/models"
)

// stageChunk bounds the rows per multi-row INSERT so a statement stays well
// below SQLite's bound parameter limit.
const stageChunk = 400

// merge describes how a staging table is reconciled into its target: rows are
// matched on key, columns listed in update are overwritten on match, and a
// merge without update columns is insert only. Within one staged batch the
// last staged row per key wins.
type merge struct {
	target   string
	stage    string
	key      []string
	columns  []string
	update   []string
	coalesce map[string]string
}

var (
	factMerge = merge{
		target: "fact_balance",
		stage:  "stage_fact",
		key:    []string{"balance_id"},
		columns: []string{
			"balance_id", "inventory_kind", "balance_date", "warehouse_id", "warehouse_code",
			"product_code", "product_barcode", "product_id", "card_code", "expiry_date",
			"serial_number", "batch_number", "quantity", "measure_code", "input_price",
			"filial_id", "filial_code",
		},
		update: []string{
			"inventory_kind", "balance_date", "warehouse_id", "warehouse_code",
			"product_code", "product_barcode", "product_id", "card_code", "expiry_date",
			"serial_number", "batch_number", "quantity", "measure_code", "input_price",
			"filial_id", "filial_code",
		},
	}
	groupMerge = merge{
		target:   "balance_group",
		stage:    "stage_group",
		key:      []string{"balance_id", "group_code"},
		columns:  []string{"balance_id", "group_code", "type_code"},
		update:   []string{"type_code"},
		coalesce: map[string]string{"group_code": models.NullGroupCode},
	}
	conditionMerge = merge{
		target:  "balance_condition",
		stage:   "stage_condition",
		key:     []string{"balance_id", "product_condition"},
		columns: []string{"balance_id", "product_condition"},
	}
)

func (m merge) expr(col string) string {
	if placeholder, ok := m.coalesce[col]; ok {
		return fmt.Sprintf("COALESCE(%s, '%s')", col, placeholder)
	}
	return col
}

func (m merge) createStage() string {
	return fmt.Sprintf("CREATE TEMP TABLE IF NOT EXISTS %s AS SELECT %s FROM %s WHERE 0",
		m.stage, strings.Join(m.columns, ", "), m.target)
}

func (m merge) clearStage() string {
	return "DELETE FROM temp." + m.stage
}

func (m merge) insertStage() string {
	named := make([]string, len(m.columns))
	for i, c := range m.columns {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO temp.%s (%s) VALUES (%s)",
		m.stage, strings.Join(m.columns, ", "), strings.Join(named, ", "))
}

func (m merge) reconcile() string {
	selected := make([]string, len(m.columns))
	for i, c := range m.columns {
		selected[i] = m.expr(c)
	}
	keys := make([]string, len(m.key))
	for i, k := range m.key {
		keys[i] = m.expr(k)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n", m.target, strings.Join(m.columns, ", "))
	fmt.Fprintf(&b, "SELECT %s FROM temp.%s\n", strings.Join(selected, ", "), m.stage)
	fmt.Fprintf(&b, "WHERE rowid IN (SELECT MAX(rowid) FROM temp.%s GROUP BY %s)\n", m.stage, strings.Join(keys, ", "))
	fmt.Fprintf(&b, "ON CONFLICT(%s) DO ", strings.Join(m.key, ", "))
	if len(m.update) == 0 {
		b.WriteString("NOTHING")
		return b.String()
	}
	sets := make([]string, len(m.update))
	for i, c := range m.update {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	b.WriteString("UPDATE SET " + strings.Join(sets, ", "))
	return b.String()
}

type factRow struct {
	BalanceID      string              `db:"balance_id"`
	InventoryKind  sql.NullString      `db:"inventory_kind"`
	BalanceDate    sql.NullString      `db:"balance_date"`
	WarehouseID    sql.NullInt64       `db:"warehouse_id"`
	WarehouseCode  sql.NullString      `db:"warehouse_code"`
	ProductCode    sql.NullString      `db:"product_code"`
	ProductBarcode sql.NullString      `db:"product_barcode"`
	ProductID      sql.NullString      `db:"product_id"`
	CardCode       sql.NullString      `db:"card_code"`
	ExpiryDate     sql.NullString      `db:"expiry_date"`
	SerialNumber   sql.NullString      `db:"serial_number"`
	BatchNumber    sql.NullString      `db:"batch_number"`
	Quantity       decimal.NullDecimal `db:"quantity"`
	MeasureCode    sql.NullString      `db:"measure_code"`
	InputPrice     decimal.NullDecimal `db:"input_price"`
	FilialID       sql.NullInt64       `db:"filial_id"`
	FilialCode     sql.NullString      `db:"filial_code"`
}

type groupRow struct {
	BalanceID string         `db:"balance_id"`
	GroupCode sql.NullString `db:"group_code"`
	TypeCode  sql.NullString `db:"type_code"`
}

type conditionRow struct {
	BalanceID string `db:"balance_id"`
	Condition string `db:"product_condition"`
}

func newFactRow(f models.BalanceFact) factRow {
	return factRow{
		BalanceID:      f.BalanceID,
		InventoryKind:  f.InventoryKind.NullString,
		BalanceDate:    formatDate(f.BalanceDate),
		WarehouseID:    nullInt(f.WarehouseID),
		WarehouseCode:  f.WarehouseCode.NullString,
		ProductCode:    f.ProductCode.NullString,
		ProductBarcode: f.ProductBarcode.NullString,
		ProductID:      f.ProductID.NullString,
		CardCode:       f.CardCode.NullString,
		ExpiryDate:     formatDate(f.ExpiryDate),
		SerialNumber:   f.SerialNumber.NullString,
		BatchNumber:    f.BatchNumber.NullString,
		Quantity:       f.Quantity,
		MeasureCode:    f.MeasureCode.NullString,
		InputPrice:     f.InputPrice,
		FilialID:       nullInt(f.FilialID),
		FilialCode:     f.FilialCode.NullString,
	}
}

func (r factRow) model() models.BalanceFact {
	return models.BalanceFact{
		BalanceID:      r.BalanceID,
		InventoryKind:  models.NullText{NullString: r.InventoryKind},
		BalanceDate:    parseDate(r.BalanceDate),
		WarehouseID:    intPtr(r.WarehouseID),
		WarehouseCode:  models.NullText{NullString: r.WarehouseCode},
		ProductCode:    models.NullText{NullString: r.ProductCode},
		ProductBarcode: models.NullText{NullString: r.ProductBarcode},
		ProductID:      models.NullText{NullString: r.ProductID},
		CardCode:       models.NullText{NullString: r.CardCode},
		ExpiryDate:     parseDate(r.ExpiryDate),
		SerialNumber:   models.NullText{NullString: r.SerialNumber},
		BatchNumber:    models.NullText{NullString: r.BatchNumber},
		Quantity:       r.Quantity,
		MeasureCode:    models.NullText{NullString: r.MeasureCode},
		InputPrice:     r.InputPrice,
		FilialID:       intPtr(r.FilialID),
		FilialCode:     models.NullText{NullString: r.FilialCode},
	}
}

// UpsertBatch reconciles a batch into the persistent tables in its own
// transaction.
func (s *Store) UpsertBatch(ctx context.Context, batch models.Batch) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	if err := s.upsertBatch(ctx, tx, batch); err != nil {
		return err
	}
	return tx.Commit()
}

// CommitScope reconciles the batch of one scope and advances its checkpoint
// atomically. Nothing of the scope is applied when any step fails.
func (s *Store) CommitScope(ctx context.Context, scopeKey string, batch models.Batch, observedMax *time.Time, rowCount int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scope %s: %w", scopeKey, err)
	}
	defer tx.Rollback()

	if err := s.upsertBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("scope %s: %w", scopeKey, err)
	}
	if err := s.upsertScopeState(ctx, tx, scopeKey, observedMax, rowCount); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scope %s: %w", scopeKey, err)
	}
	return nil
}

// upsertBatch reconciles facts before memberships so the foreign keys of
// group and condition rows always resolve.
func (s *Store) upsertBatch(ctx context.Context, tx *sqlx.Tx, batch models.Batch) error {
	facts := make([]factRow, 0, len(batch.Facts))
	for _, f := range batch.Facts {
		facts = append(facts, newFactRow(f))
	}
	groups := make([]groupRow, 0, len(batch.Groups))
	for _, g := range batch.Groups {
		groups = append(groups, groupRow{BalanceID: g.BalanceID, GroupCode: g.GroupCode.NullString, TypeCode: g.TypeCode.NullString})
	}
	conditions := make([]conditionRow, 0, len(batch.Conditions))
	for _, c := range batch.Conditions {
		conditions = append(conditions, conditionRow{BalanceID: c.BalanceID, Condition: c.Condition})
	}

	steps := []struct {
		merge merge
		rows  int
		stage func() error
	}{
		{factMerge, len(facts), func() error { return stageRows(ctx, tx, factMerge, facts) }},
		{groupMerge, len(groups), func() error { return stageRows(ctx, tx, groupMerge, groups) }},
		{conditionMerge, len(conditions), func() error { return stageRows(ctx, tx, conditionMerge, conditions) }},
	}

	for _, step := range steps {
		if step.rows == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, step.merge.createStage()); err != nil {
			return fmt.Errorf("create stage %s: %w", step.merge.stage, err)
		}
		if _, err := tx.ExecContext(ctx, step.merge.clearStage()); err != nil {
			return fmt.Errorf("clear stage %s: %w", step.merge.stage, err)
		}
		if err := step.stage(); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, step.merge.reconcile())
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", step.merge.target, err)
		}
		if _, err := tx.ExecContext(ctx, step.merge.clearStage()); err != nil {
			return fmt.Errorf("clear stage %s: %w", step.merge.stage, err)
		}
		affected, _ := res.RowsAffected()
		s.logger.Debug("table reconciled",
			zap.String("table", step.merge.target),
			zap.Int("staged", step.rows),
			zap.Int64("affected", affected))
	}
	return nil
}

func stageRows[T any](ctx context.Context, tx *sqlx.Tx, m merge, rows []T) error {
	query := m.insertStage()
	for start := 0; start < len(rows); start += stageChunk {
		end := min(start+stageChunk, len(rows))
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("stage %s: %w", m.stage, err)
		}
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
