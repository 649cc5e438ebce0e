package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"dendrite/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	topologies  map[string]model.Topology
	traces      map[string]model.Trace
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.topologies = make(map[string]model.Topology)
	s.traces = make(map[string]model.Trace)
	return nil
}

func (s *MemoryStore) SaveTopology(_ context.Context, topology model.Topology) error {
	if topology.ID == "" {
		return errors.New("topology id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.topologies[topology.ID] = topology
	return nil
}

func (s *MemoryStore) GetTopology(_ context.Context, id string) (model.Topology, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topology, ok := s.topologies[id]
	return topology, ok, nil
}

func (s *MemoryStore) SaveTrace(_ context.Context, trace model.Trace) error {
	if trace.RunID == "" {
		return errors.New("trace run id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.traces[trace.RunID] = trace
	return nil
}

func (s *MemoryStore) GetTrace(_ context.Context, runID string) (model.Trace, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trace, ok := s.traces[runID]
	return trace, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.traces))
	for runID := range s.traces {
		runs = append(runs, runID)
	}
	sort.Strings(runs)
	return runs, nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.topologies = make(map[string]model.Topology)
	s.traces = make(map[string]model.Trace)
	return nil
}
