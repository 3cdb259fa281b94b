package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/epco/stocksync/internal/domain/models"
)

type memorySheet struct {
	ranges map[string][][]interface{}
}

func (m *memorySheet) AppendRow(_ context.Context, sheetRange string, values []interface{}) error {
	if m.ranges == nil {
		m.ranges = make(map[string][][]interface{})
	}
	m.ranges[sheetRange] = append(m.ranges[sheetRange], values)
	return nil
}

func (m *memorySheet) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	return m.ranges[sheetRange], nil
}

func TestRunLogAppendsSummaryRow(t *testing.T) {
	sheet := &memorySheet{}
	log := NewRunLog(sheet, "Runs!A:M")

	report := models.SyncReport{
		RunID:      "run-1",
		StartedAt:  time.Date(2025, time.March, 15, 3, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, time.March, 15, 3, 4, 0, 0, time.UTC),
		BeginDate:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
	report.Add(models.ScopeReport{ScopeKey: "a", Items: 10, Facts: 8, Groups: 9, Conditions: 8, Failures: 1})
	report.Add(models.ScopeReport{ScopeKey: "b", Skipped: true})

	if err := log.RecordRun(context.Background(), report); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	rows := sheet.ranges["Runs!A:M"]
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	row := rows[0]
	if row[0] != "run-1" || row[1] != "2025-03-15T03:00:00Z" || row[3] != "01.01.2025" || row[4] != "15.03.2025" {
		t.Fatalf("row = %v", row)
	}
	if row[5] != 2 || row[6] != 1 || row[7] != 10 || row[8] != 8 || row[11] != 1 || row[12] != "" {
		t.Fatalf("counters = %v", row)
	}
}
