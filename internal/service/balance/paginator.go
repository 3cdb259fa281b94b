package balance

import (
	"context"

	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/domain/models"
	"github.com/epco/stocksync/pkg/clients/smartup"
)

// FetchStats counts what a paginated fetch of one scope produced.
type FetchStats struct {
	Requests int
	Failures int
	Items    int
}

// Paginator walks a window in fixed-size sub-windows, one request each.
type Paginator struct {
	client   smartup.Client
	stepDays int
	logger   *zap.Logger
}

// NewPaginator builds a paginator issuing one request per stepDays days.
func NewPaginator(client smartup.Client, stepDays int, logger *zap.Logger) *Paginator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paginator{client: client, stepDays: stepDays, logger: logger}
}

// Fetch requests every sub-window of w for the scope and hands each response
// to yield. A failed request is logged and contributes zero items; it never
// aborts the remaining sub-windows. Fetch stops early only when ctx is done.
func (p *Paginator) Fetch(ctx context.Context, scope models.Scope, w Window, yield func(Window, []models.BalanceItem)) FetchStats {
	var stats FetchStats
	for _, sub := range w.Split(p.stepDays) {
		if ctx.Err() != nil {
			break
		}

		stats.Requests++
		items, err := p.client.ExportBalance(ctx, smartup.BalanceRequest{
			FilialID:      scope.FilialID.Or(""),
			FilialCode:    scope.FilialCode.Or(""),
			WarehouseCode: scope.WarehouseCode.Or(""),
			Condition:     scope.Condition,
			Begin:         sub.Begin,
			End:           sub.End,
		})
		if err != nil {
			stats.Failures++
			p.logger.Warn("balance export failed",
				zap.String("scope", scope.Key()),
				zap.String("begin", sub.Begin.Format(smartup.DateLayout)),
				zap.String("end", sub.End.Format(smartup.DateLayout)),
				zap.Error(err))
			continue
		}

		stats.Items += len(items)
		yield(sub, items)
	}
	return stats
}
