package project

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ShareFlow/internal/allocation"
	"ShareFlow/internal/cache"
	"ShareFlow/internal/editor"
	"ShareFlow/internal/flowrate"
	"ShareFlow/internal/funding"
	"ShareFlow/internal/model"
	"ShareFlow/internal/store"
)

var (
	ErrInvalidAllocation = errors.New("allocation does not sum to 100")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStreamProtocol    = errors.New("stream protocol failure")
)

// Options tunes the money handling of a Service.
type Options struct {
	RoyaltyBps    int64
	TokenDecimals int32
}

// Service coordinates editing sessions, persistence and the read-side
// projections of projects. Edits to one project are serialized; the last
// save wins.
type Service struct {
	mu       sync.Mutex
	store    store.Store
	cache    cache.Cache
	streams  StreamProtocol
	sessions *sessions
	log      *zap.SugaredLogger
	opts     Options

	now   func() time.Time
	newID func() string
}

// NewService wires a Service. A nil cache disables dashboard caching.
func NewService(st store.Store, c cache.Cache, streams StreamProtocol, log *zap.SugaredLogger, opts Options) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		store:    st,
		cache:    c,
		streams:  streams,
		sessions: newSessions(),
		log:      log,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// RoleInput describes a role supplied at creation time.
type RoleInput struct {
	Name          string  `json:"name"`
	Percent       float64 `json:"percent"`
	WalletAddress string  `json:"wallet_address,omitempty"`
}

// CreateParams describes a new project. Roles, when given, replace the
// template.
type CreateParams struct {
	Name          string      `json:"name"`
	Template      string      `json:"template,omitempty"`
	Roles         []RoleInput `json:"roles,omitempty"`
	FundingTarget float64     `json:"funding_target"`
}

// AllocationView is the state of a project's editing session.
type AllocationView struct {
	ProjectID  string                `json:"project_id"`
	Shares     []allocation.Share    `json:"shares"`
	Validation allocation.Validation `json:"validation"`
	CanUndo    bool                  `json:"can_undo"`
	CanRedo    bool                  `json:"can_redo"`
}

func viewOf(id string, e *editor.Editor) AllocationView {
	return AllocationView{
		ProjectID:  id,
		Shares:     e.Allocation().Shares(),
		Validation: e.Validate(),
		CanUndo:    e.CanUndo(),
		CanRedo:    e.CanRedo(),
	}
}

// Create stores a new project with a template split or the given roles.
func (s *Service) Create(ctx context.Context, params CreateParams) (*model.Project, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := checkAmount(params.FundingTarget, "funding_target"); err != nil {
		return nil, err
	}

	p := &model.Project{
		ID:           s.newID(),
		Name:         name,
		FundingState: model.FundingState{FundingTarget: params.FundingTarget},
		CreatedAt:    s.now(),
	}
	p.UpdatedAt = p.CreatedAt

	if len(params.Roles) > 0 {
		for i, in := range params.Roles {
			roleName := strings.TrimSpace(in.Name)
			if roleName == "" {
				return nil, fmt.Errorf("%w: role %d has no name", ErrInvalidInput, i)
			}
			if math.IsNaN(in.Percent) || in.Percent < 0 || in.Percent > 100 {
				return nil, fmt.Errorf("%w: role %q percent must be within [0, 100]", ErrInvalidInput, roleName)
			}
			p.Roles = append(p.Roles, model.Role{
				ID:            s.newID(),
				Name:          roleName,
				Percent:       in.Percent,
				WalletAddress: strings.TrimSpace(in.WalletAddress),
			})
		}
	} else {
		tpl, err := allocation.LookupTemplate(params.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		applyAllocation(p, allocation.FromTemplate(tpl, s.newID))
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if v := allocationOf(p).Validate(); !v.Valid {
		s.log.Warnw("project created with unbalanced allocation", "project", p.ID, "deficit", v.Deficit)
	}
	s.log.Infow("project created", "project", p.ID, "roles", len(p.Roles))
	return p, nil
}

// Get returns the saved project.
func (s *Service) Get(ctx context.Context, id string) (*model.Project, error) {
	return s.store.GetProject(ctx, id)
}

// List returns every saved project.
func (s *Service) List(ctx context.Context) ([]model.Project, error) {
	return s.store.ListProjects(ctx)
}

// edit runs fn against the project's editing session, opening one from the
// saved roles when none is open.
func (s *Service) edit(ctx context.Context, id string, fn func(*editor.Editor) error) (AllocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sessions.evictIdle(now)
	e, ok := s.sessions.lookup(id, now)
	if !ok {
		p, err := s.store.GetProject(ctx, id)
		if err != nil {
			return AllocationView{}, err
		}
		e = s.sessions.open(p, now)
	}
	if err := fn(e); err != nil {
		return AllocationView{}, err
	}
	return viewOf(id, e), nil
}

// peek runs fn against an open session only. Without one it returns the
// saved allocation, which has no history to move through.
func (s *Service) peek(ctx context.Context, id string, fn func(*editor.Editor)) (AllocationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sessions.evictIdle(now)
	if e, ok := s.sessions.lookup(id, now); ok {
		fn(e)
		return viewOf(id, e), nil
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return AllocationView{}, err
	}
	a := allocationOf(p)
	return AllocationView{ProjectID: id, Shares: a.Shares(), Validation: a.Validate()}, nil
}

// Draft returns the current editing state without changing it.
func (s *Service) Draft(ctx context.Context, id string) (AllocationView, error) {
	return s.peek(ctx, id, func(*editor.Editor) {})
}

// EditPercent sets one role's percent and rebalances the rest.
func (s *Service) EditPercent(ctx context.Context, id, roleID string, percent float64) (AllocationView, error) {
	return s.edit(ctx, id, func(e *editor.Editor) error {
		return e.SetPercent(roleID, percent)
	})
}

// AddRole adds a role to the draft and returns the new role's id with the
// updated view.
func (s *Service) AddRole(ctx context.Context, id, name string, percent float64) (string, AllocationView, error) {
	roleID := s.newID()
	view, err := s.edit(ctx, id, func(e *editor.Editor) error {
		return e.AddRole(roleID, name, percent)
	})
	return roleID, view, err
}

func (s *Service) RemoveRole(ctx context.Context, id, roleID string) (AllocationView, error) {
	return s.edit(ctx, id, func(e *editor.Editor) error {
		return e.RemoveRole(roleID)
	})
}

func (s *Service) RenameRole(ctx context.Context, id, roleID, name string) (AllocationView, error) {
	return s.edit(ctx, id, func(e *editor.Editor) error {
		return e.RenameRole(roleID, name)
	})
}

// Undo reverts the last draft edit; the view's flags tell whether more
// history remains.
func (s *Service) Undo(ctx context.Context, id string) (AllocationView, error) {
	return s.peek(ctx, id, func(e *editor.Editor) { e.Undo() })
}

func (s *Service) Redo(ctx context.Context, id string) (AllocationView, error) {
	return s.peek(ctx, id, func(e *editor.Editor) { e.Redo() })
}

// Save persists the draft allocation and ends the editing session. An
// unbalanced draft is rejected and stays open.
func (s *Service) Save(ctx context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	e, ok := s.sessions.lookup(id, s.now())
	if !ok {
		return p, nil
	}
	if v := e.Validate(); !v.Valid {
		return nil, fmt.Errorf("%w: deficit %.4f", ErrInvalidAllocation, v.Deficit)
	}

	applyAllocation(p, e.Allocation())
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}
	s.sessions.close(id)
	s.log.Infow("allocation saved", "project", id, "roles", len(p.Roles))
	return p, nil
}

// Discard drops the editing session without saving.
func (s *Service) Discard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.close(id)
}

// update applies fn to the saved project and persists the result.
func (s *Service) update(ctx context.Context, id string, fn func(*model.Project) error) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) persist(ctx context.Context, p *model.Project) error {
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err := s.cache.Invalidate(ctx, p.ID); err != nil {
		s.log.Warnw("invalidate dashboard cache failed", "project", p.ID, "error", err)
	}
	return nil
}

// SetWallet sets the payout address of a saved role. Wallets are not part
// of the allocation and are not undoable.
func (s *Service) SetWallet(ctx context.Context, id, roleID, wallet string) (*model.Project, error) {
	return s.update(ctx, id, func(p *model.Project) error {
		r, _ := p.Role(roleID)
		if r == nil {
			return fmt.Errorf("%w: %s", editor.ErrUnknownRole, roleID)
		}
		r.WalletAddress = strings.TrimSpace(wallet)
		return nil
	})
}

// SetExpenses replaces the project's expense lines.
func (s *Service) SetExpenses(ctx context.Context, id string, expenses []model.Expense) (*model.Project, error) {
	for i, e := range expenses {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("%w: expense %d has no name", ErrInvalidInput, i)
		}
		if e.AmountUSDC.IsNegative() {
			return nil, fmt.Errorf("%w: expense %q amount must not be negative", ErrInvalidInput, e.Name)
		}
		switch e.PayoutType {
		case "", model.PayoutOneTime, model.PayoutRecurring:
		default:
			return nil, fmt.Errorf("%w: expense %q payout type %q", ErrInvalidInput, e.Name, e.PayoutType)
		}
	}
	return s.update(ctx, id, func(p *model.Project) error {
		p.Expenses = append([]model.Expense(nil), expenses...)
		return nil
	})
}

// RecordFunding adds a received amount to the project's funding total.
func (s *Service) RecordFunding(ctx context.Context, id string, amount float64) (funding.Progress, error) {
	if err := checkAmount(amount, "amount"); err != nil {
		return funding.Progress{}, err
	}
	p, err := s.update(ctx, id, func(p *model.Project) error {
		p.FundingTotal += amount
		return nil
	})
	if err != nil {
		return funding.Progress{}, err
	}
	return funding.Compute(p.FundingState), nil
}

// SetTarget changes the funding goal. Zero clears it.
func (s *Service) SetTarget(ctx context.Context, id string, target float64) (funding.Progress, error) {
	if err := checkAmount(target, "funding_target"); err != nil {
		return funding.Progress{}, err
	}
	p, err := s.update(ctx, id, func(p *model.Project) error {
		p.FundingTarget = target
		return nil
	})
	if err != nil {
		return funding.Progress{}, err
	}
	return funding.Compute(p.FundingState), nil
}

func checkAmount(v float64, field string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidInput, field)
	}
	return nil
}

// Dashboard returns the projection of the saved project for inflow, a
// base-unit integer amount.
func (s *Service) Dashboard(ctx context.Context, id string, inflow *big.Int) (Dashboard, error) {
	if inflow == nil {
		inflow = new(big.Int)
	}
	if inflow.Sign() < 0 {
		return Dashboard{}, fmt.Errorf("%w: %v", ErrInvalidInput, flowrate.ErrNegativeAmount)
	}
	key := inflow.String()

	var d Dashboard
	err := s.cache.GetDashboard(ctx, id, key, &d)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warnw("dashboard cache read failed", "project", id, "error", err)
	}

	// Writes invalidate under mu, so the read and the fill must not straddle one.
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return Dashboard{}, err
	}
	d = buildDashboard(p, inflow, s.opts.RoyaltyBps, s.opts.TokenDecimals)
	if err := s.cache.PutDashboard(ctx, id, key, d); err != nil {
		s.log.Warnw("dashboard cache write failed", "project", id, "error", err)
	}
	return d, nil
}

// StartedStream is one stream submitted to the protocol.
type StartedStream struct {
	RoleID   string `json:"role_id"`
	Receiver string `json:"receiver"`
	// FlowRate is the per-second base-unit integer string.
	FlowRate string `json:"flow_rate"`
}

// LaunchResult reports which roles received a stream.
type LaunchResult struct {
	Started []StartedStream `json:"started"`
	// Skipped lists roles without a wallet or with a zero rate.
	Skipped []string `json:"skipped"`
	// AlreadyActive lists roles whose stream was started by an earlier launch.
	AlreadyActive []string `json:"already_active"`
}

// LaunchStreams starts a stream to every role of the saved allocation that
// has a wallet and a non-zero rate for totalAmount over the reference
// period. Roles started before a protocol failure stay recorded, and roles
// with an active stream are never submitted again, so a retry only covers
// the roles that failed.
func (s *Service) LaunchStreams(ctx context.Context, id string, totalAmount *big.Int) (LaunchResult, error) {
	if totalAmount == nil || totalAmount.Sign() <= 0 {
		return LaunchResult{}, fmt.Errorf("%w: total amount must be positive", ErrInvalidInput)
	}

	var res LaunchResult
	var launchErr error
	_, err := s.update(ctx, id, func(p *model.Project) error {
		rates, err := flowrate.Allocate(distributable(totalAmount, s.opts.RoyaltyBps), allocationOf(p))
		if errors.Is(err, flowrate.ErrInvalidAllocation) {
			return ErrInvalidAllocation
		}
		if err != nil {
			return err
		}

		for i, rr := range rates {
			role := &p.Roles[i]
			if role.StreamActive {
				res.AlreadyActive = append(res.AlreadyActive, role.ID)
				continue
			}
			if role.WalletAddress == "" || rr.Rate.Sign() == 0 {
				res.Skipped = append(res.Skipped, role.ID)
				continue
			}
			rate := flowrate.FixedPoint(rr.Rate)
			if err := s.streams.CreateFlow(ctx, role.WalletAddress, rate); err != nil {
				launchErr = fmt.Errorf("%w: role %s: %v", ErrStreamProtocol, role.ID, err)
				break
			}
			role.StreamActive = true
			role.FlowRate = decimal.NullDecimal{Decimal: decimal.NewFromBigInt(rr.Rate, 0), Valid: true}
			res.Started = append(res.Started, StartedStream{RoleID: role.ID, Receiver: role.WalletAddress, FlowRate: rate})
		}
		if len(res.Started) == 0 && launchErr != nil {
			return launchErr
		}
		return nil
	})
	if err != nil {
		return LaunchResult{}, err
	}
	s.log.Infow("streams launched", "project", id,
		"started", len(res.Started), "skipped", len(res.Skipped), "already_active", len(res.AlreadyActive))
	return res, launchErr
}

// FundingHistory returns the latest funding snapshots, newest first.
func (s *Service) FundingHistory(ctx context.Context, id string, limit int) ([]model.FundingSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	return s.store.FundingSnapshots(ctx, id, limit)
}

// SweepResult is the funding state of one project at sweep time.
type SweepResult struct {
	Project  model.Project
	Progress funding.Progress
}

// SweepFunding records a funding snapshot for every project. A failed
// snapshot is logged; the project is still reported.
func (s *Service) SweepFunding(ctx context.Context) ([]SweepResult, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]SweepResult, 0, len(projects))
	for _, p := range projects {
		prog := funding.Compute(p.FundingState)
		if err := s.store.RecordFundingSnapshot(ctx, &model.FundingSnapshot{
			ProjectID:     p.ID,
			FundingTotal:  p.FundingTotal,
			FundingTarget: p.FundingTarget,
			PercentFunded: prog.PercentFunded,
			RecordedAt:    s.now(),
		}); err != nil {
			s.log.Errorw("record funding snapshot failed", "project", p.ID, "error", err)
		}
		out = append(out, SweepResult{Project: p, Progress: prog})
	}
	return out, nil
}

// DriftEntry is a saved project whose allocation does not sum to 100.
type DriftEntry struct {
	ProjectID string
	Name      string
	Deficit   float64
}

// CheckDrift lists saved projects with unbalanced allocations.
func (s *Service) CheckDrift(ctx context.Context) ([]DriftEntry, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var out []DriftEntry
	for i := range projects {
		if v := allocationOf(&projects[i]).Validate(); !v.Valid {
			out = append(out, DriftEntry{ProjectID: projects[i].ID, Name: projects[i].Name, Deficit: v.Deficit})
		}
	}
	return out, nil
}
