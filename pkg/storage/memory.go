package storage

import (
	"context"
	"sync"

	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/species"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// MemoryStore keeps all save state in process memory. Used for tests and
// throwaway runs.
type MemoryStore struct {
	mu       sync.RWMutex
	species  map[string][]*species.Species
	snapshot map[string]*world.Snapshot
	history  map[string][]*sim.TurnReport
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		species:  make(map[string][]*species.Species),
		snapshot: make(map[string]*world.Snapshot),
		history:  make(map[string][]*sim.TurnReport),
	}
}

// All returns deep copies so a turn cannot mutate stored state before the
// persist stage commits.
func (m *MemoryStore) All(_ context.Context, saveID string) ([]*species.Species, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list, ok := m.species[saveID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]*species.Species, len(list))
	for i, s := range list {
		out[i] = s.Clone()
	}
	return out, nil
}

func (m *MemoryStore) SaveAll(_ context.Context, saveID string, list []*species.Species) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]*species.Species, len(list))
	for i, s := range list {
		stored[i] = s.Clone()
	}
	m.species[saveID] = stored
	return nil
}

func (m *MemoryStore) Snapshot(_ context.Context, saveID string) (*world.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshot[saveID]
	if !ok {
		return nil, ErrNotFound
	}
	return snap.Clone(), nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, saveID string, snap *world.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot[saveID] = snap.Clone()
	return nil
}

// CommitTurn applies the whole commit under one lock.
func (m *MemoryStore) CommitTurn(_ context.Context, commit TurnCommit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saveID := commit.Report.SaveID
	if commit.Species != nil {
		stored := make([]*species.Species, len(commit.Species))
		for i, s := range commit.Species {
			stored[i] = s.Clone()
		}
		m.species[saveID] = stored
	}
	if commit.Snapshot != nil {
		m.snapshot[saveID] = commit.Snapshot.Clone()
	}
	m.history[saveID] = append(m.history[saveID], commit.Report)
	return nil
}

func (m *MemoryStore) Turns(_ context.Context, saveID string) ([]*sim.TurnReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*sim.TurnReport(nil), m.history[saveID]...), nil
}
