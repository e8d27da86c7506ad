package store

import (
	"context"
	"errors"

	"ShareFlow/internal/model"
)

var (
	ErrNotFound = errors.New("store: project not found")
	ErrConflict = errors.New("store: project already exists")
)

// Store persists projects as rows. Roles, expenses and funding columns use
// the field names shared with the other readers of the same tables:
// percent, stream_flow_rate, stream_active, funding_total, funding_target.
type Store interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	// UpdateProject replaces the project row with its roles and expenses.
	UpdateProject(ctx context.Context, p *model.Project) error
	ListProjects(ctx context.Context) ([]model.Project, error)
	RecordFundingSnapshot(ctx context.Context, snap *model.FundingSnapshot) error
	// FundingSnapshots returns the latest snapshots of a project, newest first.
	FundingSnapshots(ctx context.Context, projectID string, limit int) ([]model.FundingSnapshot, error)
	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
	Close() error
}
