// Package store persists deal runs and their per-period results. Writes
// happen at period boundaries only; the calculation path never touches
// the store.
package store

import (
	"context"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Deal   string          `json:"deal,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the waterfall engine.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, deal string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Period results
	SavePeriodResult(ctx context.Context, runID string, result *model.PeriodResult) error
	ListPeriodResults(ctx context.Context, runID string) ([]model.PeriodResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
