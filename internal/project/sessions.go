package project

import (
	"time"

	"ShareFlow/internal/allocation"
	"ShareFlow/internal/editor"
	"ShareFlow/internal/model"
)

// sessionIdleTTL is how long an untouched editing session is kept.
const sessionIdleTTL = 30 * time.Minute

type session struct {
	editor   *editor.Editor
	lastUsed time.Time
}

// sessions holds the open editor of each project being edited. Access is
// serialized by Service.mu.
type sessions struct {
	editors map[string]*session
}

func newSessions() *sessions {
	return &sessions{editors: make(map[string]*session)}
}

// open returns the project's editor, starting one from the saved roles when
// none is open. Loading saved state is not an undoable edit.
func (s *sessions) open(p *model.Project, now time.Time) *editor.Editor {
	if e, ok := s.lookup(p.ID, now); ok {
		return e
	}
	e := editor.New(allocation.New())
	e.Load(allocationOf(p))
	s.editors[p.ID] = &session{editor: e, lastUsed: now}
	return e
}

func (s *sessions) lookup(id string, now time.Time) (*editor.Editor, bool) {
	sess, ok := s.editors[id]
	if !ok {
		return nil, false
	}
	sess.lastUsed = now
	return sess.editor, true
}

func (s *sessions) close(id string) {
	delete(s.editors, id)
}

// evictIdle drops sessions untouched for longer than sessionIdleTTL. Their
// unsaved drafts are lost.
func (s *sessions) evictIdle(now time.Time) {
	for id, sess := range s.editors {
		if now.Sub(sess.lastUsed) > sessionIdleTTL {
			delete(s.editors, id)
		}
	}
}

// allocationOf builds the allocation held by a project's saved roles.
func allocationOf(p *model.Project) allocation.Allocation {
	shares := make([]allocation.Share, len(p.Roles))
	for i, r := range p.Roles {
		shares[i] = allocation.Share{ID: r.ID, Name: r.Name, Percent: r.Percent}
	}
	return allocation.New(shares...)
}

// applyAllocation rewrites p's roles to match a, keeping wallet and stream
// fields of roles that survive the edit.
func applyAllocation(p *model.Project, a allocation.Allocation) {
	roles := make([]model.Role, 0, a.Len())
	for _, s := range a.Shares() {
		r := model.Role{ID: s.ID}
		if existing, _ := p.Role(s.ID); existing != nil {
			r = *existing
		}
		r.Name = s.Name
		r.Percent = s.Percent
		roles = append(roles, r)
	}
	p.Roles = roles
}
