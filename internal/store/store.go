// Package store persists profiling run history.
package store

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"modelprof-mcp/internal/optable"
	"modelprof-mcp/internal/profiler"
)

// RunMeta describes the inputs of a stored run.
type RunMeta struct {
	ModelPath   string
	Units       string
	FullProfile bool
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID              string
	Created         time.Time
	Meta            RunMeta
	Counts          profiler.ComputeUnitCounts
	CompileMedianMs float64
	LoadMedianMs    float64
	PredictMedianMs float64
}

// Store defines the interface for run-history storage.
type Store interface {
	SaveRun(meta RunMeta, result *profiler.Result) (string, error)
	ListRuns() ([]RunSummary, error)
	GetRunTable(id string) (*optable.Table, error)
	Close() error
}

// DefaultDBPath is where the CLI and server keep run history.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "modelprof", "history.db")
}
