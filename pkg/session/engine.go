// Package session is the editing state machine over a flattened topology:
// row selection, the active workflow mode, the in-progress draft, and the
// reconciliation that keeps a draft valid as snapshots arrive.
package session

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/topology"
	"github.com/newtron-network/netedit/pkg/util"
)

// Engine evaluates transitions against one flattened snapshot. It is
// rebuilt for every snapshot and never modifies a State in place.
type Engine struct {
	graph   *topology.Graph
	canEdit bool
}

// NewEngine flattens snap. canEdit is the external capability signal; when
// false every mutating transition is refused.
func NewEngine(snap *model.Snapshot, canEdit bool) *Engine {
	return &Engine{graph: topology.Flatten(snap), canEdit: canEdit}
}

// Graph returns the flattened topology.
func (e *Engine) Graph() *topology.Graph {
	return e.graph
}

// CanEdit reports the capability signal the engine was built with.
func (e *Engine) CanEdit() bool {
	return e.canEdit
}

func (e *Engine) node() string {
	return e.graph.Node().SystemID
}

// rows resolves keys to rows, failing on the first unknown key.
func (e *Engine) rows(keys []topology.RowKey) ([]*topology.Row, error) {
	out := make([]*topology.Row, 0, len(keys))
	for _, k := range keys {
		r, ok := e.graph.Row(k)
		if !ok {
			return nil, fmt.Errorf("row %s: %w", k, util.ErrNotFound)
		}
		out = append(out, r)
	}
	return out, nil
}

// CanCreateBond requires at least two selected rows, none a bond or an
// alias, all on the same VLAN. Rows without a VLAN share the nil VLAN.
func (e *Engine) CanCreateBond(s State) bool {
	if !e.canEdit || len(s.Selection) < 2 {
		return false
	}
	rows, err := e.rows(s.Selection)
	if err != nil {
		return false
	}
	for _, r := range rows {
		if r.Type == model.TypeBond || r.Type == model.TypeAlias {
			return false
		}
		if !topology.SameVLAN(r, rows[0]) {
			return false
		}
	}
	return true
}

// CanCreateBridge requires exactly one selected row that is neither a
// bridge nor an alias.
func (e *Engine) CanCreateBridge(s State) bool {
	if !e.canEdit || len(s.Selection) != 1 {
		return false
	}
	r, ok := e.graph.Row(s.Selection[0])
	return ok && !r.Type.IsBridge() && r.Type != model.TypeAlias
}

// CanAddAlias requires the row's interface to have a configured link.
// Alias rows are links already and take no children.
func (e *Engine) CanAddAlias(row *topology.Row) bool {
	if row.Type == model.TypeAlias {
		return false
	}
	iface, ok := e.graph.Original(row.ID)
	return ok && iface.HasConfiguredLink()
}

// CanAddVLAN requires an unused VLAN on the row's fabric.
func (e *Engine) CanAddVLAN(row *topology.Row) bool {
	return len(e.UnusedVLANs(row)) > 0
}

// UnusedVLANs lists, by VID, the VLANs of the row's fabric that a new VLAN
// interface on it could use: not the untagged VLAN, not the row's own, and
// not one an existing VLAN child already has.
func (e *Engine) UnusedVLANs(row *topology.Row) []*model.VLAN {
	if row.Fabric == nil || row.Type == model.TypeAlias || row.Type == model.TypeVLAN {
		return nil
	}
	used := map[int]bool{}
	if row.VLAN != nil {
		used[row.VLAN.ID] = true
	}
	if iface, ok := e.graph.Original(row.ID); ok {
		for _, cid := range iface.Children {
			child, ok := e.graph.Original(cid)
			if ok && child.Type == model.TypeVLAN && child.VLANID != nil {
				used[*child.VLANID] = true
			}
		}
	}
	return lo.Filter(e.graph.Catalog().VLANsOnFabric(row.Fabric.ID), func(v *model.VLAN, _ int) bool {
		return !v.IsDefault() && !used[v.ID]
	})
}

// CanDelete requires every target to exist and none to be a boot
// interface. An alias of the boot interface only drops a link and may go.
func (e *Engine) CanDelete(keys []topology.RowKey) error {
	rows, err := e.rows(keys)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.IsBoot && r.Type != model.TypeAlias {
			return util.NewPreconditionError("delete", r.Name, "not the boot interface", "the boot interface cannot be removed")
		}
	}
	return nil
}

// NextName returns the lowest prefixN not used by any interface.
func (e *Engine) NextName(prefix string) string {
	for n := 0; ; n++ {
		name := fmt.Sprintf("%s%d", prefix, n)
		if !e.graph.NameInUse(name, -1) {
			return name
		}
	}
}

// firstSubnetOn returns the first subnet of a VLAN, by id.
func (e *Engine) firstSubnetOn(vlanID *int) *int {
	if vlanID == nil {
		return nil
	}
	subnets := e.graph.Catalog().SubnetsOnVLAN(*vlanID)
	if len(subnets) == 0 {
		return nil
	}
	return model.IntPtr(subnets[0].ID)
}

// aliasDefaults: the parent's VLAN, its first subnet, auto when a subnet
// exists.
func (e *Engine) aliasDefaults(parent *topology.Row) LinkSettings {
	ls := LinkSettings{VLAN: parent.VLANID(), Mode: model.LinkModeLinkUp}
	ls.Subnet = e.firstSubnetOn(ls.VLAN)
	if ls.Subnet != nil {
		ls.Mode = model.LinkModeAuto
	}
	return ls
}

// vlanDefaults: the first unused VLAN, no subnet, unconfigured.
func (e *Engine) vlanDefaults(parent *topology.Row) LinkSettings {
	ls := LinkSettings{Mode: model.LinkModeLinkUp}
	if unused := e.UnusedVLANs(parent); len(unused) > 0 {
		ls.VLAN = model.IntPtr(unused[0].ID)
	}
	return ls
}

func (e *Engine) newChildDraft(parent *topology.Row, typ model.InterfaceType) *ChildDraft {
	d := &ChildDraft{Type: typ, Parent: parent.Key(), ParentRow: parent, Tags: []string{}}
	if typ == model.TypeVLAN {
		d.LinkSettings = e.vlanDefaults(parent)
	} else {
		d.LinkSettings = e.aliasDefaults(parent)
	}
	return d
}

// rowLink copies a row's link settings.
func rowLink(r *topology.Row) LinkSettings {
	return LinkSettings{
		VLAN:      r.VLANID(),
		Subnet:    r.SubnetID(),
		Mode:      r.Mode,
		IPAddress: r.IPAddress,
	}
}

// Rows returns the rows to render for s. While editing a bond or bridge,
// rows added as members are hidden and removed members are shown at top
// level again.
func (e *Engine) Rows(s State) []*topology.Row {
	d, ok := s.Draft.(*EditDraft)
	if !ok || d.TargetRow == nil || !d.TargetRow.Type.IsComposite() {
		return e.graph.Rows()
	}

	members := map[int]bool{}
	for _, id := range d.Members {
		members[id] = true
	}
	known := map[int]*topology.Row{}
	for _, r := range e.graph.Rows() {
		if _, seen := known[r.ID]; !seen {
			known[r.ID] = r
		}
	}
	for _, m := range d.TargetRow.Members {
		known[m.ID] = m
	}

	target := *d.TargetRow
	target.Members = nil
	for _, id := range d.Members {
		if r, ok := known[id]; ok {
			target.Members = append(target.Members, r)
		}
	}

	var out []*topology.Row
	for _, r := range e.graph.Rows() {
		switch {
		case r.Key() == d.Target:
			out = append(out, &target)
		case !members[r.ID]:
			out = append(out, r)
		}
	}
	for _, m := range d.TargetRow.Members {
		if !members[m.ID] {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b *topology.Row) int { return a.ID - b.ID })
	return out
}
