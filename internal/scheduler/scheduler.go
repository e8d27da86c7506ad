package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ShareFlow/internal/model"
	"ShareFlow/internal/notifier"
	"ShareFlow/internal/project"
	"ShareFlow/internal/store"
)

// Projects is the part of the project service the scheduler drives.
type Projects interface {
	Get(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	FundingHistory(ctx context.Context, id string, limit int) ([]model.FundingSnapshot, error)
	SweepFunding(ctx context.Context) ([]project.SweepResult, error)
	CheckDrift(ctx context.Context) ([]project.DriftEntry, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Projects   Projects
	Notifier   notifier.Notifier
	Milestones *Milestones
	Ctx        context.Context

	log *zap.SugaredLogger
	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, projects Projects, n notifier.Notifier, ms *Milestones, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Projects:   projects,
		Notifier:   n,
		Milestones: ms,
		Ctx:        ctx,
		log:        log,
		now:        time.Now,
	}
}

// RegisterAll registers the funding sweep and the drift check.
func (s *Scheduler) RegisterAll(fundingCron, driftCron string) error {
	if _, err := s.Cron.AddFunc(fundingCron, s.RunFundingSweep); err != nil {
		return fmt.Errorf("register funding sweep: %w", err)
	}
	if _, err := s.Cron.AddFunc(driftCron, s.RunDriftCheck); err != nil {
		return fmt.Errorf("register drift check: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunFundingSweep snapshots every project's funding and announces projects
// that became fully funded.
func (s *Scheduler) RunFundingSweep() {
	s.log.Info("running funding sweep")
	results, err := s.Projects.SweepFunding(s.Ctx)
	if err != nil {
		s.log.Errorw("funding sweep failed", "error", err)
		return
	}

	now := s.now()
	for i := range results {
		r := &results[i]
		if !r.Progress.IsFullyFunded {
			// A raised target re-arms the announcement.
			if err := s.Milestones.ClearFullyFunded(r.Project.ID, now); err != nil {
				s.log.Errorw("save milestones failed", "error", err)
			}
			continue
		}
		fresh, err := s.Milestones.MarkFullyFunded(r.Project.ID, now)
		if err != nil {
			s.log.Errorw("save milestones failed", "error", err)
		}
		if fresh {
			s.log.Infow("project fully funded", "project", r.Project.ID)
			s.trySend(notifier.FormatFullyFunded(&r.Project))
		}
	}
	s.log.Infow("funding sweep done", "projects", len(results))
}

// RunDriftCheck reports saved projects whose allocation is unbalanced.
func (s *Scheduler) RunDriftCheck() {
	s.log.Info("running drift check")
	entries, err := s.Projects.CheckDrift(s.Ctx)
	if err != nil {
		s.log.Errorw("drift check failed", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	for _, e := range entries {
		s.log.Warnw("allocation drift", "project", e.ProjectID, "deficit", e.Deficit)
	}
	s.trySend(notifier.FormatDriftWarning(entries))
}

const helpText = "Available commands:\n• /projects\n• /funding &lt;project id&gt;"

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/projects":
		projects, err := s.Projects.List(ctx)
		if err != nil {
			s.log.Errorw("list projects failed", "error", err)
			return "❌ Could not load projects."
		}
		return notifier.FormatProjectList(projects)
	case "/funding":
		if len(fields) < 2 {
			return "Usage: /funding &lt;project id&gt;"
		}
		p, err := s.Projects.Get(ctx, fields[1])
		if errors.Is(err, store.ErrNotFound) {
			return "Unknown project."
		}
		if err != nil {
			s.log.Errorw("get project failed", "project", fields[1], "error", err)
			return "❌ Could not load project."
		}
		history, err := s.Projects.FundingHistory(ctx, p.ID, 5)
		if err != nil {
			s.log.Warnw("load funding history failed", "project", p.ID, "error", err)
		}
		return notifier.FormatFundingStatus(p, history)
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Errorw("send notification failed", "error", err)
	}
}
