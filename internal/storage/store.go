package storage

import (
	"context"

	"dendrite/internal/model"
)

// Store persists network topologies and the signal traces produced by runs.
type Store interface {
	Init(ctx context.Context) error
	SaveTopology(ctx context.Context, topology model.Topology) error
	GetTopology(ctx context.Context, id string) (model.Topology, bool, error)
	SaveTrace(ctx context.Context, trace model.Trace) error
	GetTrace(ctx context.Context, runID string) (model.Trace, bool, error)
	ListRuns(ctx context.Context) ([]string, error)
}

// Resetter is the optional capability of stores that can drop all state.
type Resetter interface {
	Reset(ctx context.Context) error
}
