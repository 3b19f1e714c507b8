package mutation

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// Client carries out change sets. Apply either applies every change or
// none; a rejected field is reported as a *util.MutationError.
type Client interface {
	Apply(ctx context.Context, cs *ChangeSet) error
}

// DryRun logs the preview of every change set and applies nothing.
type DryRun struct{}

// Apply implements Client.
func (DryRun) Apply(_ context.Context, cs *ChangeSet) error {
	util.WithCommit(cs.Node, cs.Operation).
		Infof("Dry run, not applied:\n%s", cs.String())
	return nil
}

// Memory keeps one node's snapshot in memory. It is both the source of
// snapshots and the client that mutates them, for fixture-backed sessions
// and tests.
type Memory struct {
	mu   sync.Mutex
	snap *model.Snapshot
	ids  *IDs
	log  []*ChangeSet
}

// NewMemory starts from a copy of snap.
func NewMemory(snap *model.Snapshot) *Memory {
	c := snap.Clone()
	return &Memory{snap: c, ids: IDsFrom(c)}
}

// Snapshot returns a copy of the current state.
func (m *Memory) Snapshot(_ context.Context, systemID string) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if systemID != "" && systemID != m.snap.Node.SystemID {
		return nil, fmt.Errorf("node %s: %w", systemID, util.ErrNotFound)
	}
	return m.snap.Clone(), nil
}

// Apply implements Client.
func (m *Memory) Apply(ctx context.Context, cs *ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs.Node != m.snap.Node.SystemID {
		return fmt.Errorf("node %s: %w", cs.Node, util.ErrNotFound)
	}
	if err := ApplyTo(m.snap, cs, m.ids); err != nil {
		return err
	}
	m.log = append(m.log, cs)
	return nil
}

// Applied returns the change sets applied so far.
func (m *Memory) Applied() []*ChangeSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChangeSet(nil), m.log...)
}
