// Package source adapts the external synchronization layer: it delivers
// consistent snapshots of one node's interfaces and the VLAN, fabric and
// subnet collections, from Redis or from a YAML fixture.
package source

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// Source delivers the current state of a node.
type Source interface {
	Snapshot(ctx context.Context, systemID string) (*model.Snapshot, error)
}

// Watch polls src every interval and calls fn with each snapshot that
// differs from the previous one. The first snapshot is always delivered.
// It returns when ctx is done or fn returns an error. Read errors are
// logged and retried on the next tick.
func Watch(ctx context.Context, src Source, systemID string, interval time.Duration, fn func(*model.Snapshot) error) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval %s: must be positive", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *model.Snapshot
	for {
		snap, err := src.Snapshot(ctx, systemID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			util.WithNode(systemID).Warnf("Snapshot read failed: %v", err)
		case last == nil || !reflect.DeepEqual(last, snap):
			if err := fn(snap); err != nil {
				return err
			}
			last = snap
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sortSnapshot orders every collection by id so that equal states compare
// equal regardless of key order.
func sortSnapshot(snap *model.Snapshot) {
	slices.SortFunc(snap.Interfaces, func(a, b model.Interface) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.VLANs, func(a, b model.VLAN) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Fabrics, func(a, b model.Fabric) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Subnets, func(a, b model.Subnet) int { return cmp.Compare(a.ID, b.ID) })
}

func sortLinks(links []model.Link) {
	slices.SortFunc(links, func(a, b model.Link) int { return cmp.Compare(a.ID, b.ID) })
}
