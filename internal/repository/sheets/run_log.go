package sheets

import (
	"context"
	"time"

	"github.com/epco/stocksync/internal/domain/models"
)

const runLogDateLayout = "02.01.2006"

// RunLog appends one summary row per sync run to a spreadsheet range.
type RunLog struct {
	repo       Repository
	sheetRange string
}

// NewRunLog returns a run recorder writing into sheetRange.
func NewRunLog(repo Repository, sheetRange string) *RunLog {
	return &RunLog{repo: repo, sheetRange: sheetRange}
}

// RecordRun appends the run summary. Columns: run id, started, finished,
// window begin, window end, scopes, skipped, items, facts, groups,
// conditions, failures, error.
func (l *RunLog) RecordRun(ctx context.Context, report models.SyncReport) error {
	return l.repo.AppendRow(ctx, l.sheetRange, runLogRow(report))
}

func runLogRow(report models.SyncReport) []interface{} {
	skipped := 0
	for _, s := range report.Scopes {
		if s.Skipped {
			skipped++
		}
	}
	return []interface{}{
		report.RunID,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.FinishedAt.UTC().Format(time.RFC3339),
		report.BeginDate.Format(runLogDateLayout),
		report.EndDate.Format(runLogDateLayout),
		len(report.Scopes),
		skipped,
		report.Items,
		report.Facts,
		report.Groups,
		report.Conditions,
		report.Failures,
		report.Error,
	}
}
