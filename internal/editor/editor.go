package editor

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"ShareFlow/internal/allocation"
	"ShareFlow/internal/history"
)

var (
	ErrUnknownRole   = errors.New("editor: unknown role")
	ErrDuplicateRole = errors.New("editor: role id already present")
	ErrEmptyName     = errors.New("editor: role name must not be empty")
	ErrLastRole      = errors.New("editor: cannot remove the last role")
)

// Editor owns the in-memory allocation of one project while it is being
// edited. Every structural edit is recorded for undo. An Editor is not safe
// for concurrent use; callers serialize edits to one instance.
type Editor struct {
	stack *history.Stack[allocation.Allocation]
}

// New starts an editing session from a.
func New(a allocation.Allocation) *Editor {
	return &Editor{stack: history.New(a)}
}

// Allocation returns the current allocation.
func (e *Editor) Allocation() allocation.Allocation { return e.stack.Current() }

// Validate reports whether the current allocation sums to 100.
func (e *Editor) Validate() allocation.Validation { return e.stack.Current().Validate() }

// Load replaces the allocation without recording history.
func (e *Editor) Load(a allocation.Allocation) { e.stack.SetDirect(a) }

// SetPercent gives roleID the requested percent and rebalances the others.
// Percent is clamped to [0, 100]; NaN is treated as 0.
func (e *Editor) SetPercent(roleID string, percent float64) error {
	cur := e.stack.Current()
	idx := cur.IndexOf(roleID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRole, roleID)
	}
	e.stack.Set(allocation.Rebalance(cur, idx, ClampPercent(percent)))
	return nil
}

// AddRole appends a role holding percent, taking the share proportionally
// from the existing roles. The whole operation is one undo step.
func (e *Editor) AddRole(id, name string, percent float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	cur := e.stack.Current()
	if cur.IndexOf(id) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRole, id)
	}
	next := cur.Append(allocation.Share{ID: id, Name: name})
	if next.Len() > 1 {
		next = allocation.Rebalance(next, next.Len()-1, ClampPercent(percent))
	} else {
		next = allocation.Rebalance(next, 0, 100)
	}
	e.stack.Set(next)
	return nil
}

// RemoveRole drops roleID and returns its share to the remaining roles in
// proportion to what they hold.
func (e *Editor) RemoveRole(roleID string) error {
	cur := e.stack.Current()
	idx := cur.IndexOf(roleID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRole, roleID)
	}
	if cur.Len() == 1 {
		return ErrLastRole
	}
	e.stack.Set(allocation.Rebalance(cur, idx, 0).Remove(idx))
	return nil
}

// RenameRole changes the display name of roleID.
func (e *Editor) RenameRole(roleID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	cur := e.stack.Current()
	idx := cur.IndexOf(roleID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRole, roleID)
	}
	e.stack.Set(cur.Rename(idx, name))
	return nil
}

// Undo reverts the last edit. It reports false when there is nothing to undo.
func (e *Editor) Undo() bool { return e.stack.Undo() }

// Redo re-applies the last undone edit. It reports false when there is
// nothing to redo.
func (e *Editor) Redo() bool { return e.stack.Redo() }

func (e *Editor) CanUndo() bool { return e.stack.CanUndo() }
func (e *Editor) CanRedo() bool { return e.stack.CanRedo() }

// ClampPercent bounds p to [0, 100].
func ClampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
