package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/solarops/backend/internal/application/sync"
	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/interfaces/http/dto"
)

// SyncService is the sync surface the HTTP layer needs.
type SyncService interface {
	StartPackageSync(ctx context.Context, opts syncapp.PackageSyncOptions) (*sync.Run, error)
	StartFileMigration(ctx context.Context) (*sync.Run, error)
	RunValidation(ctx context.Context, repair bool) (*sync.Run, error)
	GetRun(ctx context.Context, id string) (*sync.Run, error)
	ListRuns(ctx context.Context, limit int) ([]sync.Run, error)
	GetStatus(ctx context.Context) (*syncapp.Status, error)
}

var _ SyncService = (*syncapp.Service)(nil)

// SyncHandler serves the sync engine endpoints.
type SyncHandler struct {
	BaseHandler
	service SyncService
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(service SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// TriggerSync kicks off a package sync run and answers 202 with the
// pending run; a full pass outlives any sensible write deadline, so the
// caller polls GET /runs/:id for the outcome. A second trigger while a
// run is in flight gets 409.
// POST /api/v1/sync/runs
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	var req dto.TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	run, err := h.service.StartPackageSync(c.Request.Context(), syncapp.PackageSyncOptions{
		Kind:      sync.RunKind(req.Kind),
		Since:     req.Since,
		WithFiles: req.WithFiles,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, run)
}

// TriggerFileMigration kicks off a standalone file-migration run,
// answering 202 with the pending run like TriggerSync.
// POST /api/v1/sync/files
func (h *SyncHandler) TriggerFileMigration(c *gin.Context) {
	run, err := h.service.StartFileMigration(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, run)
}

// TriggerValidation starts a relationship-validation run.
// POST /api/v1/sync/validate
func (h *SyncHandler) TriggerValidation(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	run, err := h.service.RunValidation(c.Request.Context(), req.Repair)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, run)
}

// ListRuns returns the most recent runs, newest first. An omitted limit
// is resolved by the service from configuration.
// GET /api/v1/sync/runs
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var req dto.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	runs, err := h.service.ListRuns(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, runs)
}

// GetRun returns one recorded run with its full detail.
// GET /api/v1/sync/runs/:id
func (h *SyncHandler) GetRun(c *gin.Context) {
	var req dto.RunIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, run)
}

// GetStatus returns the dashboard overview: the last run and the local
// row count per mirrored table.
// GET /api/v1/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}
