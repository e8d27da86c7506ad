package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ShareFlow/internal/model"
)

// MemoryStore keeps projects in process memory. It backs tests and runs
// where no database is configured; nothing survives a restart.
type MemoryStore struct {
	mu        sync.Mutex
	projects  map[string]*model.Project
	snapshots map[string][]model.FundingSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:  make(map[string]*model.Project),
		snapshots: make(map[string][]model.FundingSnapshot),
	}
}

func (m *MemoryStore) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; ok {
		return ErrConflict
	}
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryStore) UpdateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return ErrNotFound
	}
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *MemoryStore) ListProjects(_ context.Context) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) RecordFundingSnapshot(_ context.Context, snap *model.FundingSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}
	m.snapshots[snap.ProjectID] = append(m.snapshots[snap.ProjectID], *snap)
	return nil
}

func (m *MemoryStore) FundingSnapshots(_ context.Context, projectID string, limit int) ([]model.FundingSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.snapshots[projectID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]model.FundingSnapshot, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
