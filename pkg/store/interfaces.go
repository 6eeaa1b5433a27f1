package store

import (
	"context"
	"time"

	"radarcov/pkg/coverage"
	"radarcov/pkg/terrain"
)

// Run describes one persisted coverage computation.
type Run struct {
	ID          string
	Fingerprint string
	Observer    terrain.Observer
	Samples     int
	Margin      float64
	Rows, Cols  int
	Levels      []float64
	CreatedAt   time.Time
}

// RunStore handles coverage run persistence.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run, maps map[float64]*coverage.Map) error
	FindRun(ctx context.Context, fingerprint string) (*Run, error)
	LoadMaps(ctx context.Context, runID string) (map[float64]*coverage.Map, error)
	ListRuns(ctx context.Context) ([]*Run, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
}
