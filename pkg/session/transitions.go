package session

import (
	"fmt"
	"slices"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/topology"
	"github.com/newtron-network/netedit/pkg/util"
)

func invalidTransition(from Mode, trigger string) error {
	return fmt.Errorf("%s in mode %s: %w", trigger, from, util.ErrInvalidTransition)
}

func (e *Engine) requireEdit(operation string) error {
	if e.canEdit {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, util.ErrPermissionDenied)
}

// Select toggles key in the selection. Selecting the only selected row
// again clears the selection.
func (e *Engine) Select(s State, key topology.RowKey) (State, error) {
	if !s.Mode.IsSelecting() {
		return s, invalidTransition(s.Mode, "select")
	}
	if _, ok := e.graph.Row(key); !ok {
		return s, fmt.Errorf("row %s: %w", key, util.ErrNotFound)
	}
	if s.Selection.Has(key) {
		return e.Deselect(s, key)
	}
	n := s.next()
	n.Selection = s.Selection.With(key)
	n.Mode = modeForSelection(n.Selection)
	return n, nil
}

// Deselect removes key from the selection.
func (e *Engine) Deselect(s State, key topology.RowKey) (State, error) {
	if !s.Mode.IsSelecting() {
		return s, invalidTransition(s.Mode, "deselect")
	}
	if !s.Selection.Has(key) {
		return s, nil
	}
	n := s.next()
	n.Selection = s.Selection.Without(key)
	n.Mode = modeForSelection(n.Selection)
	return n, nil
}

// Add opens an alias or VLAN draft on the single selected row. An alias is
// preferred when both are possible.
func (e *Engine) Add(s State) (State, error) {
	if err := e.requireEdit("add"); err != nil {
		return s, err
	}
	if s.Mode != ModeSingle {
		return s, invalidTransition(s.Mode, "add")
	}
	parent, ok := e.graph.Row(s.Selection[0])
	if !ok {
		return s, fmt.Errorf("row %s: %w", s.Selection[0], util.ErrNotFound)
	}

	var typ model.InterfaceType
	switch {
	case e.CanAddAlias(parent):
		typ = model.TypeAlias
	case e.CanAddVLAN(parent):
		typ = model.TypeVLAN
	default:
		return s, util.NewPreconditionError("add", parent.Name, "alias or VLAN addable",
			"no configured link for an alias and no unused VLAN on the fabric")
	}

	n := s.next()
	n.Mode = ModeAdd
	n.Draft = e.newChildDraft(parent, typ)
	n.Errors = nil
	return n, nil
}

// QuickDelete selects key alone and opens the delete confirmation for it.
func (e *Engine) QuickDelete(s State, key topology.RowKey) (State, error) {
	if err := e.requireEdit("delete"); err != nil {
		return s, err
	}
	if s.Mode != ModeNone && s.Mode != ModeSingle {
		return s, invalidTransition(s.Mode, "delete")
	}
	if err := e.CanDelete([]topology.RowKey{key}); err != nil {
		return s, err
	}
	n := s.next()
	n.Selection = Selection{key}
	n.Mode = ModeDelete
	n.Draft = &DeleteDraft{Targets: []topology.RowKey{key}}
	n.Errors = nil
	return n, nil
}

// Delete opens the delete confirmation for every selected row.
func (e *Engine) Delete(s State) (State, error) {
	if err := e.requireEdit("delete"); err != nil {
		return s, err
	}
	if s.Mode != ModeSingle && s.Mode != ModeMulti {
		return s, invalidTransition(s.Mode, "delete")
	}
	if err := e.CanDelete(s.Selection); err != nil {
		return s, err
	}
	n := s.next()
	n.Mode = ModeDelete
	n.Draft = &DeleteDraft{Targets: slices.Clone(s.Selection)}
	n.Errors = nil
	return n, nil
}

// CreateBond opens a bond draft over the selection. The first selected row
// is the primary and supplies the VLAN, link settings and MAC.
func (e *Engine) CreateBond(s State) (State, error) {
	if err := e.requireEdit("create-bond"); err != nil {
		return s, err
	}
	if s.Mode != ModeMulti {
		return s, invalidTransition(s.Mode, "create-bond")
	}
	if !e.CanCreateBond(s) {
		return s, util.NewPreconditionError("create-bond", "selection", "bondable selection",
			"select two or more rows on one VLAN, none a bond or an alias")
	}
	rows, err := e.rows(s.Selection)
	if err != nil {
		return s, err
	}
	primary := rows[0]

	n := s.next()
	n.Mode = ModeCreateBond
	n.Draft = &BondDraft{
		Name:         e.NextName("bond"),
		MACAddress:   primary.MACAddress,
		Tags:         []string{},
		Primary:      primary.Key(),
		Parents:      slices.Clone(s.Selection),
		ParentRows:   rows,
		Params:       model.DefaultBondParams(),
		LinkSettings: rowLink(primary),
	}
	n.Errors = nil
	return n, nil
}

// CreateBridge opens a bridge draft over the single selected row.
func (e *Engine) CreateBridge(s State) (State, error) {
	if err := e.requireEdit("create-bridge"); err != nil {
		return s, err
	}
	if s.Mode != ModeSingle {
		return s, invalidTransition(s.Mode, "create-bridge")
	}
	if !e.CanCreateBridge(s) {
		return s, util.NewPreconditionError("create-bridge", "selection", "bridgeable row",
			"select exactly one row that is not a bridge or an alias")
	}
	parent, _ := e.graph.Row(s.Selection[0])

	n := s.next()
	n.Mode = ModeCreateBridge
	n.Draft = &BridgeDraft{
		Name:         e.NextName("br"),
		MACAddress:   parent.MACAddress,
		Tags:         []string{},
		Parent:       parent.Key(),
		ParentRow:    parent,
		Params:       model.DefaultBridgeParams(),
		LinkSettings: rowLink(parent),
	}
	n.Errors = nil
	return n, nil
}

// CreatePhysical opens a physical interface draft on the first fabric's
// default VLAN.
func (e *Engine) CreatePhysical(s State) (State, error) {
	if err := e.requireEdit("create-physical"); err != nil {
		return s, err
	}
	if s.Mode != ModeNone {
		return s, invalidTransition(s.Mode, "create-physical")
	}
	n := s.next()
	n.Mode = ModeCreatePhysical
	n.Draft = e.physicalDefaults()
	n.Errors = nil
	return n, nil
}

func (e *Engine) physicalDefaults() *PhysicalDraft {
	d := &PhysicalDraft{
		Name:         e.NextName("eth"),
		Tags:         []string{},
		LinkSettings: LinkSettings{Mode: model.LinkModeLinkUp},
	}
	if fabrics := e.graph.Catalog().Fabrics(); len(fabrics) > 0 {
		d.Fabric = model.IntPtr(fabrics[0].ID)
		if e.graph.Catalog().VLANByID(fabrics[0].DefaultVLANID) != nil {
			d.VLAN = model.IntPtr(fabrics[0].DefaultVLANID)
		}
	}
	return d
}

// Edit opens an edit draft for key, which becomes the sole selection.
func (e *Engine) Edit(s State, key topology.RowKey) (State, error) {
	if err := e.requireEdit("edit"); err != nil {
		return s, err
	}
	if s.Mode != ModeNone && s.Mode != ModeSingle {
		return s, invalidTransition(s.Mode, "edit")
	}
	row, ok := e.graph.Row(key)
	if !ok {
		return s, fmt.Errorf("row %s: %w", key, util.ErrNotFound)
	}
	iface, _ := e.graph.Original(row.ID)

	d := &EditDraft{
		Target:       key,
		TargetRow:    row,
		Name:         iface.Name,
		MACAddress:   iface.MACAddress,
		Tags:         slices.Clone(iface.Tags),
		LinkSettings: rowLink(row),
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if row.Type.IsComposite() {
		d.Members = slices.Clone(iface.Parents)
	}
	if iface.BondParams != nil {
		p := *iface.BondParams
		d.BondParams = &p
	}
	if iface.BridgeParams != nil {
		p := *iface.BridgeParams
		d.BridgeParams = &p
	}

	n := s.next()
	n.Mode = ModeEdit
	n.Selection = Selection{key}
	n.Draft = d
	n.Errors = nil
	return n, nil
}

// MemberCandidates lists the rows that can be toggled in or out of the
// edited bond or bridge: top-level physical rows other than the target,
// plus the target's current members.
func (e *Engine) MemberCandidates(s State) []*topology.Row {
	d, ok := s.Draft.(*EditDraft)
	if !ok || d.TargetRow == nil || !d.TargetRow.Type.IsComposite() {
		return nil
	}
	var out []*topology.Row
	for _, r := range e.graph.Rows() {
		if r.Type == model.TypePhysical && r.ID != d.TargetRow.ID {
			out = append(out, r)
		}
	}
	out = append(out, d.TargetRow.Members...)
	slices.SortStableFunc(out, func(a, b *topology.Row) int { return a.ID - b.ID })
	return out
}

// ToggleMember adds or removes the interface of key from the edited bond
// or bridge. A bridge keeps exactly one member and a bond at least one.
func (e *Engine) ToggleMember(s State, key topology.RowKey) (State, error) {
	if s.Mode != ModeEdit {
		return s, invalidTransition(s.Mode, "toggle-member")
	}
	d, ok := s.Draft.(*EditDraft)
	if !ok || d.TargetRow == nil || !d.TargetRow.Type.IsComposite() {
		return s, util.NewPreconditionError("toggle-member", "draft", "bond or bridge target", "only bonds and bridges have members")
	}

	var row *topology.Row
	for _, r := range e.MemberCandidates(s) {
		if r.Key() == key {
			row = r
			break
		}
	}
	if row == nil {
		return s, fmt.Errorf("member candidate %s: %w", key, util.ErrNotFound)
	}

	nd := d.clone().(*EditDraft)
	if slices.Contains(nd.Members, row.ID) {
		if len(nd.Members) == 1 {
			return s, util.NewPreconditionError("toggle-member", nd.Name, "at least one member", "the last member cannot be removed")
		}
		nd.Members = slices.DeleteFunc(nd.Members, func(id int) bool { return id == row.ID })
	} else {
		if d.TargetRow.Type.IsBridge() && len(nd.Members) >= 1 {
			return s, util.NewPreconditionError("toggle-member", nd.Name, "one member", "a bridge has exactly one member")
		}
		nd.Members = append(nd.Members, row.ID)
	}

	n := s.next()
	n.Draft = nd
	return n, nil
}

// Cancel drops the draft. The mode falls back to the one the selection
// implies.
func (e *Engine) Cancel(s State) State {
	if s.Mode.IsSelecting() && s.Draft == nil {
		return s
	}
	n := s.next()
	n.Draft = nil
	n.Errors = nil
	if s.Mode == ModeCreatePhysical {
		n.Selection = nil
	}
	n.Mode = modeForSelection(n.Selection)
	return n
}
