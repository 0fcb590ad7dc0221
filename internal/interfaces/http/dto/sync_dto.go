package dto

import "time"

// LoginRequest is the operator login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TriggerSyncRequest starts a package sync run.
type TriggerSyncRequest struct {
	// Kind selects a full mirror or an incremental pass.
	Kind string `json:"kind" binding:"required,oneof=full incremental"`
	// Since overrides the incremental cutoff.
	Since *time.Time `json:"since,omitempty"`
	// WithFiles cascades into a file-migration pass.
	WithFiles bool `json:"with_files"`
}

// ValidateRequest starts a relationship-validation run.
type ValidateRequest struct {
	// Repair clears dangling references and deletes orphaned line items.
	Repair bool `json:"repair"`
}

// ListRunsRequest pages through recorded runs.
type ListRunsRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// RunIDRequest addresses one recorded run.
type RunIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
