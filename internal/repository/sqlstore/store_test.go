package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/epco/stocksync/internal/domain/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "stocksync.db") + "?_pragma=foreign_keys(1)"
	store, err := Open(context.Background(), dsn, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fact(id string, qty string) models.BalanceFact {
	wh := int64(65478)
	return models.BalanceFact{
		BalanceID:     id,
		InventoryKind: models.Text("goods"),
		BalanceDate:   day(2025, time.March, 1),
		WarehouseID:   &wh,
		WarehouseCode: models.Text("WH-1"),
		ProductID:     models.Text("P1"),
		BatchNumber:   models.Text("B1"),
		Quantity:      decimal.NullDecimal{Decimal: decimal.RequireFromString(qty), Valid: true},
		InputPrice:    decimal.NullDecimal{Decimal: decimal.RequireFromString("1500.25"), Valid: true},
	}
}

func hexID(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}

func TestMigrateIsRepeatable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("schema version = %d, want %d", version, len(migrations))
	}
}

func TestLastBalanceDateUnknownScope(t *testing.T) {
	store := newTestStore(t)
	got, err := store.LastBalanceDate(context.Background(), "filial=1|warehouse=2|cond=T")
	if err != nil {
		t.Fatalf("LastBalanceDate: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no checkpoint, got %v", got)
	}
}

func TestScopeStateNeverRegresses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const key = "filial=1|warehouse=65478|cond=T"

	clock := time.Date(2025, time.March, 15, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	steps := []struct {
		observed *time.Time
		rows     int
		want     *time.Time
	}{
		{nil, 0, nil},
		{day(2025, time.March, 10), 5, day(2025, time.March, 10)},
		{day(2025, time.March, 1), 2, day(2025, time.March, 10)},
		{nil, 0, day(2025, time.March, 10)},
		{day(2025, time.March, 10), 1, day(2025, time.March, 10)},
		{day(2025, time.March, 12), 7, day(2025, time.March, 12)},
	}

	var lastRun time.Time
	for i, step := range steps {
		if err := store.UpsertScopeState(ctx, key, step.observed, step.rows); err != nil {
			t.Fatalf("step %d: UpsertScopeState: %v", i, err)
		}
		state, err := store.ScopeState(ctx, key)
		if err != nil || state == nil {
			t.Fatalf("step %d: ScopeState = %v, %v", i, state, err)
		}

		switch {
		case step.want == nil && state.LastBalanceDate != nil:
			t.Fatalf("step %d: expected null checkpoint, got %v", i, state.LastBalanceDate)
		case step.want != nil && (state.LastBalanceDate == nil || !state.LastBalanceDate.Equal(*step.want)):
			t.Fatalf("step %d: checkpoint = %v, want %v", i, state.LastBalanceDate, step.want)
		}
		if state.LastRowCount != step.rows {
			t.Fatalf("step %d: row count = %d, want %d", i, state.LastRowCount, step.rows)
		}
		if state.LastRunUTC == nil || !state.LastRunUTC.After(lastRun) {
			t.Fatalf("step %d: run timestamp not refreshed: %v", i, state.LastRunUTC)
		}
		lastRun = *state.LastRunUTC
	}

	states, err := store.ScopeStates(ctx)
	if err != nil {
		t.Fatalf("ScopeStates: %v", err)
	}
	if len(states) != 1 || states[0].ScopeKey != key {
		t.Fatalf("unexpected states: %+v", states)
	}
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := hexID('a')

	batch := models.Batch{
		Facts: []models.BalanceFact{fact(id, "10")},
		Groups: []models.GroupMembership{
			{BalanceID: id, GroupCode: models.Text("G1"), TypeCode: models.Text("T1")},
			{BalanceID: id, GroupCode: models.Text("G2"), TypeCode: models.Text("T2")},
		},
		Conditions: []models.ConditionMembership{{BalanceID: id, Condition: "T"}},
	}

	for i := 0; i < 2; i++ {
		if err := store.UpsertBatch(ctx, batch); err != nil {
			t.Fatalf("UpsertBatch #%d: %v", i+1, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Facts != 1 || stats.Groups != 2 || stats.Conditions != 1 {
		t.Fatalf("unexpected stats after re-ingestion: %+v", stats)
	}

	view, err := store.Balance(ctx, id)
	if err != nil || view == nil {
		t.Fatalf("Balance = %v, %v", view, err)
	}
	if !view.Fact.Quantity.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("quantity = %s, want 10", view.Fact.Quantity.Decimal)
	}
	if !view.Fact.InputPrice.Decimal.Equal(decimal.RequireFromString("1500.25")) {
		t.Fatalf("input price = %s", view.Fact.InputPrice.Decimal)
	}
	if view.Fact.BalanceDate == nil || !view.Fact.BalanceDate.Equal(*day(2025, time.March, 1)) {
		t.Fatalf("balance date = %v", view.Fact.BalanceDate)
	}
	if view.Fact.SerialNumber.Valid {
		t.Fatalf("serial number should stay null, got %q", view.Fact.SerialNumber.String)
	}
}

func TestUpsertBatchLastStagedFactWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := hexID('b')

	batch := models.Batch{Facts: []models.BalanceFact{fact(id, "5"), fact(id, "7.5")}}
	if err := store.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	view, err := store.Balance(ctx, id)
	if err != nil || view == nil {
		t.Fatalf("Balance = %v, %v", view, err)
	}
	if !view.Fact.Quantity.Decimal.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("quantity = %s, want 7.5", view.Fact.Quantity.Decimal)
	}
}

func TestUpsertBatchOverwritesOnMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := hexID('c')

	first := models.Batch{
		Facts:      []models.BalanceFact{fact(id, "1")},
		Groups:     []models.GroupMembership{{BalanceID: id, GroupCode: models.Text("G1"), TypeCode: models.Text("old")}},
		Conditions: []models.ConditionMembership{{BalanceID: id, Condition: "T"}},
	}
	second := models.Batch{
		Facts:      []models.BalanceFact{fact(id, "3")},
		Groups:     []models.GroupMembership{{BalanceID: id, GroupCode: models.Text("G1"), TypeCode: models.Text("new")}},
		Conditions: []models.ConditionMembership{{BalanceID: id, Condition: "T"}, {BalanceID: id, Condition: "B"}},
	}
	for _, b := range []models.Batch{first, second} {
		if err := store.UpsertBatch(ctx, b); err != nil {
			t.Fatalf("UpsertBatch: %v", err)
		}
	}

	view, err := store.Balance(ctx, id)
	if err != nil || view == nil {
		t.Fatalf("Balance = %v, %v", view, err)
	}
	if !view.Fact.Quantity.Decimal.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("quantity = %s, want 3", view.Fact.Quantity.Decimal)
	}
	if len(view.Groups) != 1 || view.Groups[0].TypeCode.String != "new" {
		t.Fatalf("groups = %+v", view.Groups)
	}
	if len(view.Conditions) != 2 || view.Conditions[0] != "B" || view.Conditions[1] != "T" {
		t.Fatalf("conditions = %v", view.Conditions)
	}
}

func TestNullGroupUsesPlaceholder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := hexID('d')

	batch := models.Batch{
		Facts:  []models.BalanceFact{fact(id, "1")},
		Groups: []models.GroupMembership{{BalanceID: id}, {BalanceID: id}},
	}
	for i := 0; i < 2; i++ {
		if err := store.UpsertBatch(ctx, batch); err != nil {
			t.Fatalf("UpsertBatch: %v", err)
		}
	}

	var stored []string
	if err := store.db.SelectContext(ctx, &stored, `SELECT group_code FROM balance_group WHERE balance_id = ?`, id); err != nil {
		t.Fatalf("select groups: %v", err)
	}
	if len(stored) != 1 || stored[0] != models.NullGroupCode {
		t.Fatalf("stored group codes = %v", stored)
	}

	view, err := store.Balance(ctx, id)
	if err != nil || view == nil {
		t.Fatalf("Balance = %v, %v", view, err)
	}
	if len(view.Groups) != 1 || view.Groups[0].GroupCode.Valid {
		t.Fatalf("expected one null group, got %+v", view.Groups)
	}
}

func TestCommitScopeIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const key = "filial=1|warehouse=2|cond=T"
	id := hexID('e')

	broken := models.Batch{
		Facts:  []models.BalanceFact{fact(id, "1")},
		Groups: []models.GroupMembership{{BalanceID: hexID('f'), GroupCode: models.Text("orphan")}},
	}
	if err := store.CommitScope(ctx, key, broken, day(2025, time.March, 1), 1); err == nil {
		t.Fatal("expected foreign key violation")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats != (Stats{}) {
		t.Fatalf("failed scope left rows behind: %+v", stats)
	}

	good := models.Batch{
		Facts:      []models.BalanceFact{fact(id, "1")},
		Groups:     []models.GroupMembership{{BalanceID: id, GroupCode: models.Text("G")}},
		Conditions: []models.ConditionMembership{{BalanceID: id, Condition: "T"}},
	}
	if err := store.CommitScope(ctx, key, good, day(2025, time.March, 1), 1); err != nil {
		t.Fatalf("CommitScope: %v", err)
	}
	last, err := store.LastBalanceDate(ctx, key)
	if err != nil || last == nil || !last.Equal(*day(2025, time.March, 1)) {
		t.Fatalf("checkpoint = %v, %v", last, err)
	}
}

func TestDecimalsRoundTripExactly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, qty := range []string{"12345678901234.5678", "99999999999999.9999", "-0.0001", "0.1"} {
		id := hexID(byte('a' + i))
		f := fact(id, qty)
		f.InputPrice = decimal.NullDecimal{Decimal: decimal.RequireFromString(qty), Valid: true}
		batch := models.Batch{
			Facts:  []models.BalanceFact{f},
			Groups: []models.GroupMembership{{BalanceID: id}},
		}
		if err := store.CommitScope(ctx, "filial=1|warehouse=2|cond=T", batch, day(2025, time.March, 1), 1); err != nil {
			t.Fatalf("CommitScope %s: %v", qty, err)
		}

		view, err := store.Balance(ctx, id)
		if err != nil || view == nil {
			t.Fatalf("Balance %s: %v, %v", qty, view, err)
		}
		if got := view.Fact.Quantity.Decimal.String(); got != qty {
			t.Fatalf("quantity = %s, want %s", got, qty)
		}
		if got := view.Fact.InputPrice.Decimal.String(); got != qty {
			t.Fatalf("input price = %s, want %s", got, qty)
		}
	}
}

func TestOpenEnforcesForeignKeysWithoutPragmaInDSN(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "plain.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	var enabled int
	if err := store.db.GetContext(ctx, &enabled, "PRAGMA foreign_keys"); err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatalf("foreign_keys = %d, want 1", enabled)
	}
}

func TestStageChunksLargeBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var batch models.Batch
	for i := 0; i < stageChunk*2+17; i++ {
		id := hexID('0')
		id = id[:60] + fourHex(i)
		batch.Facts = append(batch.Facts, fact(id, "1"))
		batch.Conditions = append(batch.Conditions, models.ConditionMembership{BalanceID: id, Condition: "T"})
	}
	if err := store.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Facts != len(batch.Facts) || stats.Conditions != len(batch.Conditions) {
		t.Fatalf("stats = %+v, want %d facts", stats, len(batch.Facts))
	}
}

func fourHex(i int) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[(i>>12)&15], digits[(i>>8)&15], digits[(i>>4)&15], digits[i&15]})
}
