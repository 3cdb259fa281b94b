package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/domain/models"
	"github.com/epco/stocksync/internal/repository/sqlstore"
	"github.com/epco/stocksync/internal/service/balance"
)

// StateReader exposes the read side of the balance store.
type StateReader interface {
	Ping(ctx context.Context) error
	ScopeStates(ctx context.Context) ([]models.ScopeState, error)
	ScopeState(ctx context.Context, scopeKey string) (*models.ScopeState, error)
	Balance(ctx context.Context, balanceID string) (*sqlstore.BalanceView, error)
	Stats(ctx context.Context) (sqlstore.Stats, error)
}

// ReportReader loads archived sync reports.
type ReportReader interface {
	LatestSyncReport(ctx context.Context) (*models.SyncReport, error)
}

// SyncHandler serves the admin API of the sync service.
type SyncHandler struct {
	runner  balance.Runner
	state   StateReader
	reports ReportReader
	logger  *zap.Logger
}

// NewSyncHandler constructs the HTTP handler adapter. reports may be nil when
// no report archive is configured.
func NewSyncHandler(runner balance.Runner, state StateReader, reports ReportReader, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{runner: runner, state: state, reports: reports, logger: logger}
}

// Health reports whether the database is reachable.
func (h *SyncHandler) Health(c *gin.Context) {
	if err := h.state.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListScopes returns every stored checkpoint.
func (h *SyncHandler) ListScopes(c *gin.Context) {
	states, err := h.state.ScopeStates(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing scope states", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scopes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scopes": states})
}

// GetScope returns the checkpoint of one scope.
func (h *SyncHandler) GetScope(c *gin.Context) {
	key := c.Param("key")
	state, err := h.state.ScopeState(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("failed reading scope state", zap.String("scope", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read scope"})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scope not found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetBalance returns one fact with its memberships.
func (h *SyncHandler) GetBalance(c *gin.Context) {
	id := c.Param("id")
	view, err := h.state.Balance(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed reading balance", zap.String("balance_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read balance"})
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "balance not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fact":       view.Fact,
		"groups":     view.Groups,
		"conditions": view.Conditions,
	})
}

// Stats returns row counts of the persisted tables.
func (h *SyncHandler) Stats(c *gin.Context) {
	stats, err := h.state.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed reading stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TriggerSync runs a sync synchronously and returns its report.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context())
	switch {
	case errors.Is(err, balance.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
	case err != nil:
		h.logger.Error("manual sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
	default:
		c.JSON(http.StatusOK, report)
	}
}

// LatestReport returns the most recent archived sync report.
func (h *SyncHandler) LatestReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "report archive disabled"})
		return
	}
	report, err := h.reports.LatestSyncReport(c.Request.Context())
	if err != nil {
		h.logger.Error("failed loading latest report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reports yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}
