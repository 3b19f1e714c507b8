package session

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/mutation"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/topology"
	"github.com/newtron-network/netedit/pkg/util"
)

// Plan turns the draft of s into the change set its commit sends to the
// mutation layer. Only draft fields and the current snapshot's ids are
// used. A draft that fails Validate is not planned.
func (e *Engine) Plan(s State) (*mutation.ChangeSet, error) {
	if err := e.requireEdit("commit"); err != nil {
		return nil, err
	}
	if s.Draft == nil {
		return nil, invalidTransition(s.Mode, "commit")
	}
	if err := e.Validate(s); err != nil {
		return nil, err
	}

	switch d := s.Draft.(type) {
	case *ChildDraft:
		return e.planChild(d)
	case *BondDraft:
		cs := mutation.NewChangeSet(e.node(), "add-bond")
		fields := newInterfaceFields(d.Name, d.MACAddress, d.Tags, d.LinkSettings)
		fields[mutation.FieldParents] = util.JoinInts(rowIDs(d.ParentRows))
		for k, v := range source.EncodeBondParams(&d.Params) {
			fields[k] = v
		}
		cs.Add(mutation.OpCreateBond, 0, 0, fields)
		return cs, nil
	case *BridgeDraft:
		if d.ParentRow == nil {
			return nil, fmt.Errorf("bridge parent %s: %w", d.Parent, util.ErrNotFound)
		}
		cs := mutation.NewChangeSet(e.node(), "add-bridge")
		fields := newInterfaceFields(d.Name, d.MACAddress, d.Tags, d.LinkSettings)
		fields[mutation.FieldParents] = strconv.Itoa(d.ParentRow.ID)
		for k, v := range source.EncodeBridgeParams(&d.Params) {
			fields[k] = v
		}
		cs.Add(mutation.OpCreateBridge, 0, 0, fields)
		return cs, nil
	case *PhysicalDraft:
		cs := mutation.NewChangeSet(e.node(), "add-physical")
		cs.Add(mutation.OpCreatePhysical, 0, 0, newInterfaceFields(d.Name, d.MACAddress, d.Tags, d.LinkSettings))
		return cs, nil
	case *EditDraft:
		return e.planEdit(d)
	case *DeleteDraft:
		return e.planDelete(d)
	}
	return nil, fmt.Errorf("unknown draft %T", s.Draft)
}

func (e *Engine) planChild(d *ChildDraft) (*mutation.ChangeSet, error) {
	if d.ParentRow == nil {
		return nil, fmt.Errorf("parent %s: %w", d.Parent, util.ErrNotFound)
	}
	if d.Type == model.TypeAlias {
		cs := mutation.NewChangeSet(e.node(), "add-alias")
		cs.Add(mutation.OpCreateAlias, d.ParentRow.ID, 0, linkFields(d.LinkSettings))
		return cs, nil
	}
	cs := mutation.NewChangeSet(e.node(), "add-vlan")
	fields := linkFields(d.LinkSettings)
	fields[mutation.FieldName] = e.vlanName(d.ParentRow.Name, *d.VLAN)
	fields[mutation.FieldParent] = strconv.Itoa(d.ParentRow.ID)
	fields[mutation.FieldVLAN] = source.FormatOptionalID(d.VLAN)
	fields[mutation.FieldTags] = strings.Join(d.Tags, ",")
	cs.Add(mutation.OpCreateVLAN, 0, 0, fields)
	return cs, nil
}

// planEdit emits update-interface with the fields that differ from the
// stored interface, then replaces the row's link if its settings changed.
func (e *Engine) planEdit(d *EditDraft) (*mutation.ChangeSet, error) {
	if d.TargetRow == nil {
		return nil, fmt.Errorf("edit target %s: %w", d.Target, util.ErrNotFound)
	}
	row := d.TargetRow
	iface, ok := e.graph.Original(row.ID)
	if !ok {
		return nil, fmt.Errorf("interface %d: %w", row.ID, util.ErrNotFound)
	}
	cs := mutation.NewChangeSet(e.node(), "edit-interface")

	changed := map[string]string{}
	if d.Name != iface.Name {
		changed[mutation.FieldName] = d.Name
	}
	if !strings.EqualFold(d.MACAddress, iface.MACAddress) {
		changed[mutation.FieldMACAddress] = d.MACAddress
	}
	if !slices.Equal(d.Tags, iface.Tags) && (len(d.Tags) > 0 || len(iface.Tags) > 0) {
		changed[mutation.FieldTags] = strings.Join(d.Tags, ",")
	}
	if row.Type != model.TypeAlias && !model.IntPtrEqual(d.VLAN, iface.VLANID) {
		changed[mutation.FieldVLAN] = source.FormatOptionalID(d.VLAN)
	}
	if row.Type.IsComposite() && !slices.Equal(d.Members, iface.Parents) {
		changed[mutation.FieldParents] = util.JoinInts(d.Members)
	}
	if d.BondParams != nil && iface.BondParams != nil {
		diffInto(changed, source.EncodeBondParams(iface.BondParams), source.EncodeBondParams(d.BondParams))
	}
	if d.BridgeParams != nil && iface.BridgeParams != nil {
		diffInto(changed, source.EncodeBridgeParams(iface.BridgeParams), source.EncodeBridgeParams(d.BridgeParams))
	}
	if len(changed) > 0 {
		cs.Add(mutation.OpUpdateInterface, row.ID, 0, changed)
	}

	old := rowLink(row)
	if !model.IntPtrEqual(old.Subnet, d.Subnet) || old.Mode != d.Mode || old.IPAddress != d.IPAddress {
		if row.LinkID != topology.NoLink {
			cs.Add(mutation.OpUnlinkSubnet, row.ID, row.LinkID, nil)
		}
		if d.Subnet != nil || d.Mode != model.LinkModeLinkUp {
			cs.Add(mutation.OpLinkSubnet, row.ID, 0, linkFields(d.LinkSettings))
		}
	}
	return cs, nil
}

// planDelete removes alias rows by unlinking them and other rows by
// deleting their interface. An interface is deleted once, and aliases of
// an interface being deleted need no unlink.
func (e *Engine) planDelete(d *DeleteDraft) (*mutation.ChangeSet, error) {
	rows, err := e.rows(d.Targets)
	if err != nil {
		return nil, err
	}
	deleted := map[int]bool{}
	for _, r := range rows {
		if r.Type != model.TypeAlias {
			deleted[r.ID] = true
		}
	}

	cs := mutation.NewChangeSet(e.node(), "delete")
	for _, r := range rows {
		if r.Type == model.TypeAlias && !deleted[r.ID] {
			cs.Add(mutation.OpUnlinkSubnet, r.ID, r.LinkID, nil)
		}
	}
	done := map[int]bool{}
	for _, r := range rows {
		if deleted[r.ID] && !done[r.ID] {
			done[r.ID] = true
			cs.Add(mutation.OpDeleteInterface, r.ID, 0, nil)
		}
	}
	return cs, nil
}

// Committed is the state after a successful commit.
func (e *Engine) Committed(s State) State {
	return s.idle()
}

// Rejected keeps the draft of s and attaches the field errors of err.
func (e *Engine) Rejected(s State, err error) State {
	return s.withErrors(util.FieldMessages(err))
}

func linkFields(ls LinkSettings) map[string]string {
	f := map[string]string{
		mutation.FieldSubnet: source.FormatOptionalID(ls.Subnet),
		mutation.FieldMode:   string(ls.Mode),
	}
	if ls.Mode == model.LinkModeStatic {
		f[mutation.FieldIPAddress] = ls.IPAddress
	}
	return f
}

func newInterfaceFields(name, mac string, tags []string, ls LinkSettings) map[string]string {
	f := linkFields(ls)
	f[mutation.FieldName] = name
	f[mutation.FieldMACAddress] = mac
	f[mutation.FieldTags] = strings.Join(tags, ",")
	f[mutation.FieldVLAN] = source.FormatOptionalID(ls.VLAN)
	return f
}

func diffInto(out, before, after map[string]string) {
	for k, v := range after {
		if before[k] != v {
			out[k] = v
		}
	}
}

func rowIDs(rows []*topology.Row) []int {
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
