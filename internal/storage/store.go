package storage

import (
	"context"

	"xcs/internal/model"
)

// Store persists run artifacts keyed by run ID. A saved population replaces
// the previous snapshot of the same run.
type Store interface {
	Init(ctx context.Context) error
	SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulation(ctx context.Context, runID string) (model.PopulationSnapshot, bool, error)
	SaveLearnTrack(ctx context.Context, track model.LearnTrack) error
	GetLearnTrack(ctx context.Context, runID string) (model.LearnTrack, bool, error)
	// ListRuns returns the run IDs with a stored population, sorted.
	ListRuns(ctx context.Context) ([]string, error)
}
