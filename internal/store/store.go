// Package store persists research runs and cached page renders.
package store

import (
	"context"
	"time"

	"github.com/sells-group/firm-research/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status     model.RunStatus `json:"status,omitempty"`
	SubjectURL string          `json:"subject_url,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the research pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, subject model.Subject) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, record *model.ResearchRecord) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Render cache
	GetCachedPage(ctx context.Context, pageURL string) (*model.RenderedPage, error)
	SetCachedPage(ctx context.Context, page model.RenderedPage, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
