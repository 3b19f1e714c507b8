package session

import (
	"slices"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// Invalidation reasons reported by Reconcile.
const (
	ReasonNone            = ""
	ReasonEditDisabled    = "edit-disabled"
	ReasonParentGone      = "parent-gone"
	ReasonNotAddable      = "not-addable"
	ReasonTypeFlipped     = "type-flipped"
	ReasonMemberGone      = "member-gone"
	ReasonTargetGone      = "target-gone"
	ReasonSelectionPruned = "selection-pruned"
)

// Reconcile carries prev over to the engine's snapshot. Rows that no
// longer exist leave the selection, drafts that refer to them are dropped,
// and row references inside surviving drafts are replaced with the rows of
// this snapshot. The second result names why the draft or selection had
// to change, or is empty.
func (e *Engine) Reconcile(prev State) (State, string) {
	n := prev.next()
	n.Selection = e.prune(prev.Selection)
	pruned := len(n.Selection) != len(prev.Selection)

	if prev.Draft == nil {
		if n.Mode.IsSelecting() {
			n.Mode = modeForSelection(n.Selection)
		}
		if pruned {
			return e.logged(n, ReasonSelectionPruned)
		}
		return n, ReasonNone
	}

	if !e.canEdit {
		return e.logged(n.idle(), ReasonEditDisabled)
	}

	d := prev.Draft.clone()
	n.Draft = d
	reason := ReasonNone

	switch d := d.(type) {
	case *ChildDraft:
		parent, ok := e.graph.Row(d.Parent)
		if !ok {
			return e.logged(n.idle(), ReasonParentGone)
		}
		d.ParentRow = parent
		addable := map[model.InterfaceType]bool{
			model.TypeAlias: e.CanAddAlias(parent),
			model.TypeVLAN:  e.CanAddVLAN(parent),
		}
		switch {
		case addable[d.Type]:
			e.refreshLink(&d.LinkSettings)
			if d.Type == model.TypeVLAN && (d.VLAN == nil || !e.vlanUnused(parent, *d.VLAN)) {
				d.LinkSettings = e.vlanDefaults(parent)
			}
		case addable[model.TypeAlias]:
			*d = *e.newChildDraft(parent, model.TypeAlias)
			reason = ReasonTypeFlipped
		case addable[model.TypeVLAN]:
			*d = *e.newChildDraft(parent, model.TypeVLAN)
			reason = ReasonTypeFlipped
		default:
			n.Draft = nil
			n.Errors = nil
			n.Mode = modeForSelection(n.Selection)
			return e.logged(n, ReasonNotAddable)
		}

	case *BondDraft:
		kept := e.prune(Selection(d.Parents))
		if len(kept) != len(d.Parents) {
			n.Draft = nil
			n.Errors = nil
			n.Selection = kept
			n.Mode = modeForSelection(kept)
			return e.logged(n, ReasonMemberGone)
		}
		d.ParentRows, _ = e.rows(d.Parents)
		e.refreshLink(&d.LinkSettings)

	case *BridgeDraft:
		parent, ok := e.graph.Row(d.Parent)
		if !ok {
			n.Draft = nil
			n.Errors = nil
			n.Mode = modeForSelection(n.Selection)
			return e.logged(n, ReasonMemberGone)
		}
		d.ParentRow = parent
		e.refreshLink(&d.LinkSettings)

	case *PhysicalDraft:
		if d.Fabric == nil || e.graph.Catalog().FabricByID(*d.Fabric) == nil {
			defaults := e.physicalDefaults()
			d.Fabric = defaults.Fabric
			d.LinkSettings = defaults.LinkSettings
		}
		e.refreshLink(&d.LinkSettings)

	case *EditDraft:
		target, ok := e.graph.Row(d.Target)
		if !ok {
			return e.logged(n.idle(), ReasonTargetGone)
		}
		d.TargetRow = target
		n.Selection = Selection{d.Target}
		if target.Type.IsComposite() {
			d.Members = slices.DeleteFunc(d.Members, func(id int) bool {
				_, ok := e.graph.Original(id)
				return !ok
			})
			if len(d.Members) == 0 {
				iface, _ := e.graph.Original(target.ID)
				d.Members = slices.Clone(iface.Parents)
				reason = ReasonMemberGone
			}
		}
		e.refreshLink(&d.LinkSettings)

	case *DeleteDraft:
		d.Targets = e.prune(Selection(d.Targets))
		if len(d.Targets) == 0 {
			return e.logged(n.idle(), ReasonTargetGone)
		}
	}

	if pruned && reason == ReasonNone {
		reason = ReasonSelectionPruned
	}
	return e.logged(n, reason)
}

// prune keeps the keys that still name a row.
func (e *Engine) prune(keys Selection) Selection {
	var out Selection
	for _, k := range keys {
		if _, ok := e.graph.Row(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// refreshLink drops a VLAN or subnet the catalog no longer has.
func (e *Engine) refreshLink(ls *LinkSettings) {
	if ls.VLAN != nil && e.graph.Catalog().VLANByID(*ls.VLAN) == nil {
		ls.VLAN = nil
		_ = e.setSubnet(ls, "")
	}
	if ls.Subnet != nil {
		subnet := e.graph.Catalog().SubnetByID(*ls.Subnet)
		if subnet == nil || (ls.VLAN != nil && subnet.VLANID != *ls.VLAN) {
			_ = e.setSubnet(ls, "")
		}
	}
}

func (e *Engine) logged(s State, reason string) (State, string) {
	if reason != ReasonNone {
		util.WithNode(e.node()).WithFields(util.Fields{
			"reason": reason,
			"mode":   s.Mode,
		}).Debug("Draft reconciled")
	}
	return s, reason
}
