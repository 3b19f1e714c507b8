package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/mutation"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/topology"
	"github.com/newtron-network/netedit/pkg/util"
)

// Observer is told about recomputes, draft invalidations, transitions and
// commit outcomes. Metrics collectors implement it.
type Observer interface {
	Recomputed(node string, rows int, took time.Duration)
	Reconciled(node, reason string)
	Transitioned(node, trigger string, from, to Mode)
	Committed(node, operation string, took time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) Recomputed(string, int, time.Duration)          {}
func (nopObserver) Reconciled(string, string)                      {}
func (nopObserver) Transitioned(string, string, Mode, Mode)        {}
func (nopObserver) Committed(string, string, time.Duration, error) {}

// Session owns the editing state of one node: the latest snapshot, the
// engine built from it and the current State. A Session is not safe for
// concurrent use.
type Session struct {
	snap     *model.Snapshot
	canEdit  bool
	engine   *Engine
	state    State
	observer Observer
}

// New starts a session on snap.
func New(snap *model.Snapshot, canEdit bool) *Session {
	s := &Session{canEdit: canEdit, state: Initial(), observer: nopObserver{}}
	s.Update(snap)
	return s
}

// SetObserver replaces the observer; nil removes it.
func (s *Session) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// Node returns the system id of the node being edited.
func (s *Session) Node() string {
	return s.snap.Node.SystemID
}

// Snapshot returns the snapshot the session was last updated with.
func (s *Session) Snapshot() *model.Snapshot {
	return s.snap
}

// Engine returns the engine for the current snapshot.
func (s *Session) Engine() *Engine {
	return s.engine
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// CanCommit reports whether the current draft passes the commit checks.
func (s *Session) CanCommit() bool {
	return s.engine.CanCommit(s.state)
}

// Rows returns the rows to render for the current state.
func (s *Session) Rows() []*topology.Row {
	return s.engine.Rows(s.state)
}

// VLANTable returns the VLAN summary of the current snapshot.
func (s *Session) VLANTable() []topology.VLANTableEntry {
	return s.engine.Graph().VLANTable()
}

// Update recomputes the rows for snap and reconciles the state with them.
func (s *Session) Update(snap *model.Snapshot) {
	start := time.Now()
	s.snap = snap
	s.engine = NewEngine(snap, s.canEdit)
	s.observer.Recomputed(s.Node(), len(s.engine.Graph().Rows()), time.Since(start))
	util.WithNode(s.Node()).Debugf("Recomputed %d rows from %d interfaces",
		len(s.engine.Graph().Rows()), len(snap.Interfaces))
	s.reconcile()
}

// SetCanEdit changes the edit capability. Turning it off drops any draft.
func (s *Session) SetCanEdit(canEdit bool) {
	if canEdit == s.canEdit {
		return
	}
	s.canEdit = canEdit
	s.engine = NewEngine(s.snap, canEdit)
	s.reconcile()
}

func (s *Session) reconcile() {
	next, reason := s.engine.Reconcile(s.state)
	s.state = next
	if reason != ReasonNone {
		s.observer.Reconciled(s.Node(), reason)
	}
}

// Refresh reads the node from src and updates the session with it.
func (s *Session) Refresh(ctx context.Context, src source.Source) error {
	snap, err := src.Snapshot(ctx, s.Node())
	if err != nil {
		return fmt.Errorf("refreshing %s: %w", s.Node(), err)
	}
	s.Update(snap)
	return nil
}

// Do runs a transition against the current state and keeps its result.
// On error the state is unchanged.
func (s *Session) Do(trigger string, fn func(*Engine, State) (State, error)) error {
	from := s.state.Mode
	next, err := fn(s.engine, s.state)
	if err != nil {
		util.WithNode(s.Node()).WithField("trigger", trigger).Debugf("Transition refused: %v", err)
		return err
	}
	s.state = next
	if from != next.Mode {
		s.observer.Transitioned(s.Node(), trigger, from, next.Mode)
		util.WithNode(s.Node()).Debugf("%s: %s -> %s", trigger, from, next.Mode)
	}
	return nil
}

// Select toggles key in the selection.
func (s *Session) Select(key topology.RowKey) error {
	return s.Do("select", func(e *Engine, st State) (State, error) { return e.Select(st, key) })
}

// Deselect removes key from the selection.
func (s *Session) Deselect(key topology.RowKey) error {
	return s.Do("deselect", func(e *Engine, st State) (State, error) { return e.Deselect(st, key) })
}

// Add opens an alias or VLAN draft on the selected row.
func (s *Session) Add() error {
	return s.Do("add", (*Engine).Add)
}

// Delete opens a delete draft for the selected rows.
func (s *Session) Delete() error {
	return s.Do("delete", (*Engine).Delete)
}

// QuickDelete selects key alone and opens a delete draft for it.
func (s *Session) QuickDelete(key topology.RowKey) error {
	return s.Do("delete", func(e *Engine, st State) (State, error) { return e.QuickDelete(st, key) })
}

// CreateBond opens a bond draft over the selected rows.
func (s *Session) CreateBond() error {
	return s.Do("create-bond", (*Engine).CreateBond)
}

// CreateBridge opens a bridge draft over the selected row.
func (s *Session) CreateBridge() error {
	return s.Do("create-bridge", (*Engine).CreateBridge)
}

// CreatePhysical opens a physical interface draft.
func (s *Session) CreatePhysical() error {
	return s.Do("create-physical", (*Engine).CreatePhysical)
}

// Edit opens an edit draft on key.
func (s *Session) Edit(key topology.RowKey) error {
	return s.Do("edit", func(e *Engine, st State) (State, error) { return e.Edit(st, key) })
}

// ToggleMember adds key to or removes it from the edited composite.
func (s *Session) ToggleMember(key topology.RowKey) error {
	return s.Do("toggle-member", func(e *Engine, st State) (State, error) { return e.ToggleMember(st, key) })
}

// UpdateDraft sets draft fields. A value that cannot be set leaves the
// draft as it was and flags the field in State().Errors.
func (s *Session) UpdateDraft(fields map[string]string) error {
	err := s.Do("update-draft", func(e *Engine, st State) (State, error) { return e.UpdateDraft(st, fields) })
	if errors.Is(err, util.ErrValidationFailed) {
		errs := maps.Clone(s.state.Errors)
		if errs == nil {
			errs = map[string]string{}
		}
		maps.Copy(errs, util.FieldMessages(err))
		s.state = s.state.withErrors(errs)
	}
	return err
}

// Cancel drops the draft, if any.
func (s *Session) Cancel() {
	_ = s.Do("cancel", func(e *Engine, st State) (State, error) { return e.Cancel(st), nil })
}

// Commit plans the draft and sends it to client. On success the session
// returns to mode none; the caller refreshes the snapshot. When the draft
// fails validation or the change set is rejected, the draft stays open
// with the field errors attached and the error is returned.
func (s *Session) Commit(ctx context.Context, client mutation.Client) (*mutation.ChangeSet, error) {
	cs, err := s.engine.Plan(s.state)
	if err != nil {
		if errors.Is(err, util.ErrValidationFailed) {
			s.state = s.state.withErrors(util.FieldMessages(err))
		}
		return nil, err
	}

	start := time.Now()
	err = client.Apply(ctx, cs)
	s.observer.Committed(s.Node(), cs.Operation, time.Since(start), err)

	logger := util.WithCommit(s.Node(), cs.Operation)
	if err != nil {
		logger.Warnf("Commit rejected: %v", err)
		s.state = s.engine.Rejected(s.state, err)
		return cs, err
	}
	logger.Infof("Committed %d changes", len(cs.Changes))

	from := s.state.Mode
	s.state = s.engine.Committed(s.state)
	s.observer.Transitioned(s.Node(), "commit", from, s.state.Mode)
	return cs, nil
}
