// Package balance runs the incremental balance sync: per scope it reads the
// checkpoint, fetches the missing window from Smartup, projects the items into
// rows and commits rows and checkpoint together.
package balance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/config"
	"github.com/epco/stocksync/internal/domain/models"
	"github.com/epco/stocksync/pkg/clients/smartup"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still writing.
var ErrRunInProgress = errors.New("balance sync already running")

const recordTimeout = 30 * time.Second

// Store is the persistence required by the pipeline.
type Store interface {
	LastBalanceDate(ctx context.Context, scopeKey string) (*time.Time, error)
	CommitScope(ctx context.Context, scopeKey string, batch models.Batch, observedMax *time.Time, rowCount int) error
}

// ScopeSource yields the scopes of a run.
type ScopeSource interface {
	Scopes(ctx context.Context) ([]models.Scope, error)
}

// RunRecorder receives the report of every finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, report models.SyncReport) error
}

// Runner is implemented by Service; the scheduler and HTTP layer depend on it.
type Runner interface {
	Run(ctx context.Context) (*models.SyncReport, error)
}

// Service executes sync runs. Runs are sequential: one scope is fetched,
// projected and committed before the next one starts.
type Service struct {
	store     Store
	scopes    ScopeSource
	paginator *Paginator
	recorders []RunRecorder
	cfg       config.SyncConfig
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// NewService wires a new sync service instance.
func NewService(cfg config.SyncConfig, store Store, scopes ScopeSource, client smartup.Client, logger *zap.Logger, recorders ...RunRecorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		scopes:    scopes,
		paginator: NewPaginator(client, cfg.StepDays, logger.Named("paginator")),
		recorders: recorders,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run syncs every configured scope once. Scopes committed before a fatal error
// stay committed; the next run resumes from their checkpoints.
func (s *Service) Run(ctx context.Context) (*models.SyncReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	begin, end := s.cfg.Window(s.now())
	report := &models.SyncReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now().UTC(),
		BeginDate: begin,
		EndDate:   end,
	}
	logger := s.logger.With(zap.String("run_id", report.RunID))
	logger.Info("balance sync started",
		zap.String("begin", begin.Format(smartup.DateLayout)),
		zap.String("end", end.Format(smartup.DateLayout)))

	runErr := s.run(ctx, logger, report, begin, end)

	report.FinishedAt = s.now().UTC()
	if runErr != nil {
		report.Error = runErr.Error()
		logger.Error("balance sync aborted", zap.Error(runErr))
	}
	logger.Info("balance sync finished",
		zap.Int("scopes", len(report.Scopes)),
		zap.Int("items", report.Items),
		zap.Int("facts", report.Facts),
		zap.Int("groups", report.Groups),
		zap.Int("conditions", report.Conditions),
		zap.Int("failures", report.Failures),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	s.record(ctx, logger, *report)
	return report, runErr
}

func (s *Service) run(ctx context.Context, logger *zap.Logger, report *models.SyncReport, begin, end time.Time) error {
	scopes, err := s.scopes.Scopes(ctx)
	if err != nil {
		return fmt.Errorf("load scopes: %w", err)
	}

	filter := NewFilter()
	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return err
		}
		sr, err := s.syncScope(ctx, logger.With(zap.String("scope", scope.Key())), filter, scope, begin, end)
		report.Add(sr)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) syncScope(ctx context.Context, logger *zap.Logger, filter *Filter, scope models.Scope, begin, end time.Time) (models.ScopeReport, error) {
	key := scope.Key()
	sr := models.ScopeReport{ScopeKey: key}

	checkpoint, err := s.store.LastBalanceDate(ctx, key)
	if err != nil {
		return sr, fmt.Errorf("read checkpoint %s: %w", key, err)
	}

	window, ok := EffectiveWindow(begin, end, checkpoint, s.cfg.BufferDays)
	sr.WindowBegin, sr.WindowEnd = window.Begin, window.End
	sr.Checkpoint = checkpoint
	if !ok {
		sr.Skipped = true
		logger.Info("scope already caught up",
			zap.String("begin", window.Begin.Format(smartup.DateLayout)),
			zap.String("end", window.End.Format(smartup.DateLayout)))
		return sr, nil
	}

	projection := NewProjection(scope, filter)
	stats := s.paginator.Fetch(ctx, scope, window, func(sub Window, items []models.BalanceItem) {
		var added Added
		for _, item := range items {
			added.add(projection.Add(item))
		}
		logger.Info("window fetched",
			zap.String("begin", sub.Begin.Format(smartup.DateLayout)),
			zap.String("end", sub.End.Format(smartup.DateLayout)),
			zap.Int("items", len(items)),
			zap.Int("facts_added", added.Facts),
			zap.Int("groups_added", added.Groups),
			zap.Int("conditions_added", added.Conditions))
	})
	if err := ctx.Err(); err != nil {
		return sr, err
	}

	added := projection.Added()
	sr.Requests, sr.Failures, sr.Items = stats.Requests, stats.Failures, stats.Items
	sr.Facts, sr.Groups, sr.Conditions = added.Facts, added.Groups, added.Conditions

	maxDate := projection.MaxBalanceDate()
	if err := s.store.CommitScope(ctx, key, projection.Batch(), maxDate, added.Facts); err != nil {
		return sr, fmt.Errorf("commit scope %s: %w", key, err)
	}
	if maxDate != nil && (checkpoint == nil || maxDate.After(*checkpoint)) {
		sr.Checkpoint = maxDate
	}

	if stats.Items == 0 {
		logger.Info("scope returned no results", zap.Int("requests", stats.Requests), zap.Int("failures", stats.Failures))
	} else {
		logger.Info("scope committed",
			zap.Int("items", stats.Items),
			zap.Int("facts_added", added.Facts),
			zap.Int("failures", stats.Failures))
	}
	return sr, nil
}

func (s *Service) record(ctx context.Context, logger *zap.Logger, report models.SyncReport) {
	if len(s.recorders) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	for _, r := range s.recorders {
		if err := r.RecordRun(ctx, report); err != nil {
			logger.Warn("failed to record sync report", zap.Error(err))
		}
	}
}
