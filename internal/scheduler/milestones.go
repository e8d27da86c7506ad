package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// milestoneState is the persisted record of announcements already sent.
type milestoneState struct {
	FullyFunded map[string]time.Time `json:"fully_funded"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Milestones remembers which projects have been announced as fully funded so
// each is announced once. An empty path keeps the record in memory only.
type Milestones struct {
	mu       sync.Mutex
	state    *milestoneState
	filePath string
}

// LoadMilestones reads the record at filePath. A missing file starts empty.
func LoadMilestones(filePath string) (*Milestones, error) {
	state := &milestoneState{}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read milestones: %w", err)
		default:
			if err := json.Unmarshal(data, state); err != nil {
				return nil, fmt.Errorf("parse milestones: %w", err)
			}
		}
	}
	if state.FullyFunded == nil {
		state.FullyFunded = make(map[string]time.Time)
	}
	return &Milestones{state: state, filePath: filePath}, nil
}

// MarkFullyFunded records projectID and reports whether it was new.
func (m *Milestones) MarkFullyFunded(projectID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.FullyFunded[projectID]; ok {
		return false, nil
	}
	m.state.FullyFunded[projectID] = at
	return true, m.save(at)
}

// ClearFullyFunded forgets projectID, e.g. after its target was raised.
func (m *Milestones) ClearFullyFunded(projectID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.FullyFunded[projectID]; !ok {
		return nil
	}
	delete(m.state.FullyFunded, projectID)
	return m.save(at)
}

// save must be called with mu held.
func (m *Milestones) save(at time.Time) error {
	if m.filePath == "" {
		return nil
	}
	m.state.UpdatedAt = at
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return fmt.Errorf("create milestones dir: %w", err)
	}
	return os.WriteFile(m.filePath, data, 0o644)
}
