// Package sync contains the domain model for the Bubble → Postgres
// synchronization engine: sync runs, per-table reports, and the fixed
// table ordering the orchestrator follows.
package sync

import (
	"time"

	"github.com/google/uuid"
)

// RunKind identifies what a sync run did.
type RunKind string

const (
	RunKindFull        RunKind = "full"
	RunKindIncremental RunKind = "incremental"
	RunKindFiles       RunKind = "files"
	RunKindValidation  RunKind = "validation"
)

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// Run records one execution of the sync engine. Counts are aggregated
// across all tables the run touched; Detail carries the per-table
// breakdown for the API and for debugging.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Kind       RunKind    `json:"kind"`
	Status     RunStatus  `json:"status"`
	Since      *time.Time `json:"since,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Detail     *RunDetail `json:"detail,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// NewRun creates a running Run of the given kind.
func NewRun(kind RunKind, since *time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    RunStatusRunning,
		Since:     since,
		StartedAt: time.Now().UTC(),
	}
}

// Complete finalizes the run from its detail. The run ends partial when
// some but not all tables failed, failed when nothing succeeded.
func (r *Run) Complete(detail *RunDetail) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Detail = detail

	failedTables := 0
	totalTables := 0
	for _, t := range detail.Tables {
		totalTables++
		r.Created += t.Created
		r.Updated += t.Updated
		r.Skipped += t.Skipped
		r.Failed += t.Failed
		if t.Err != "" {
			failedTables++
		}
	}
	if detail.Files != nil {
		r.Failed += detail.Files.Failed
	}

	switch {
	case totalTables > 0 && failedTables == totalTables:
		r.Status = RunStatusFailed
	case failedTables > 0 || r.Failed > 0 || r.Error != "":
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusSuccess
	}
}

// Fail marks the run as failed with the given error.
func (r *Run) Fail(err error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Status = RunStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the run took, zero while still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunDetail is the per-table breakdown stored with a run.
type RunDetail struct {
	Tables     []TableReport     `json:"tables,omitempty"`
	Files      *FileReport       `json:"files,omitempty"`
	Validation *ValidationReport `json:"validation,omitempty"`
}

// TableReport summarizes the sync of one remote collection.
type TableReport struct {
	Table   string `json:"table"`
	Fetched int    `json:"fetched"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Err     string `json:"error,omitempty"`
}

// FileReport summarizes one file-migration pass.
type FileReport struct {
	Scanned   int      `json:"scanned"`
	Migrated  int      `json:"migrated"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	BytesRead int64    `json:"bytes_read"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidationReport summarizes a relationship-validation pass.
type ValidationReport struct {
	Checked  int               `json:"checked"`
	Dangling int               `json:"dangling"`
	Repaired int               `json:"repaired"`
	Columns  []DanglingColumns `json:"columns,omitempty"`
}

// DanglingColumns lists the dangling references found in one
// table/column pair.
type DanglingColumns struct {
	Table    string   `json:"table"`
	Column   string   `json:"column"`
	Refers   string   `json:"refers_to"`
	Count    int      `json:"count"`
	Examples []string `json:"examples,omitempty"`
}
