package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"xcs/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	populations map[string]model.PopulationSnapshot
	tracks      map[string]model.LearnTrack
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.populations = make(map[string]model.PopulationSnapshot)
	s.tracks = make(map[string]model.LearnTrack)
	return nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, snapshot model.PopulationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.populations[snapshot.RunID] = copySnapshot(snapshot)
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, runID string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.populations[runID]
	if !ok {
		return model.PopulationSnapshot{}, false, nil
	}
	return copySnapshot(snapshot), true, nil
}

func (s *MemoryStore) SaveLearnTrack(_ context.Context, track model.LearnTrack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	track.Points = append([]model.PopTrack(nil), track.Points...)
	s.tracks[track.RunID] = track
	return nil
}

func (s *MemoryStore) GetLearnTrack(_ context.Context, runID string) (model.LearnTrack, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, ok := s.tracks[runID]
	if !ok {
		return model.LearnTrack{}, false, nil
	}
	track.Points = append([]model.PopTrack(nil), track.Points...)
	return track, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.populations))
	for id := range s.populations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copySnapshot(s model.PopulationSnapshot) model.PopulationSnapshot {
	s.Header = append([]string(nil), s.Header...)
	rows := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = append([]string(nil), row...)
	}
	s.Rows = rows
	return s
}
