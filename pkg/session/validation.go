package session

import (
	"errors"
	"fmt"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
	"github.com/newtron-network/netedit/pkg/validate"
)

// Validate checks the draft of s and returns a *util.ValidationError
// naming every failing field, or nil. States without a draft are valid.
func (e *Engine) Validate(s State) error {
	b := &util.ValidationBuilder{}
	switch d := s.Draft.(type) {
	case nil, *DeleteDraft:
		return nil
	case *ChildDraft:
		e.checkLink(b, d.LinkSettings, d.Type == model.TypeAlias)
		if d.Type == model.TypeVLAN {
			b.Add(d.VLAN != nil, FieldVLAN, "field is required")
			if d.ParentRow != nil && d.VLAN != nil {
				e.checkFields(b, validate.Fields{
					ID:    validate.NewInterfaceID,
					Name:  e.vlanName(d.ParentRow.Name, *d.VLAN),
					Names: e.graph,
				})
			}
		}
	case *BondDraft:
		e.checkFields(b, validate.Fields{ID: validate.NewInterfaceID, Name: d.Name, MACAddress: d.MACAddress, Names: e.graph})
		e.checkLink(b, d.LinkSettings, false)
	case *BridgeDraft:
		e.checkFields(b, validate.Fields{ID: validate.NewInterfaceID, Name: d.Name, MACAddress: d.MACAddress, Names: e.graph})
		e.checkLink(b, d.LinkSettings, false)
	case *PhysicalDraft:
		e.checkFields(b, validate.Fields{
			ID: validate.NewInterfaceID, Name: d.Name, MACAddress: d.MACAddress,
			MACRequired: true, Names: e.graph,
		})
		e.checkLink(b, d.LinkSettings, false)
	case *EditDraft:
		f := validate.Fields{Name: d.Name, MACAddress: d.MACAddress, Names: e.graph}
		if d.TargetRow != nil {
			f.ID = d.TargetRow.ID
			f.MACRequired = d.TargetRow.Type == model.TypePhysical
		}
		e.checkFields(b, f)
		e.checkLink(b, d.LinkSettings, d.TargetRow != nil && d.TargetRow.Type == model.TypeAlias)
	}
	return b.Build()
}

// CanCommit reports whether the draft of s may be committed. New bonds,
// bridges and physical interfaces must also clear their add guards.
func (e *Engine) CanCommit(s State) bool {
	switch d := s.Draft.(type) {
	case nil:
		return false
	case *BondDraft:
		if validate.CannotAddBond(d.Name, d.MACAddress, e.graph) {
			return false
		}
	case *BridgeDraft:
		if validate.CannotAddBridge(d.Name, d.MACAddress, e.graph) {
			return false
		}
	case *PhysicalDraft:
		if validate.CannotAddPhysical(d.Name, d.MACAddress, e.graph) {
			return false
		}
	}
	return e.Validate(s) == nil
}

func (e *Engine) checkFields(b *util.ValidationBuilder, f validate.Fields) {
	err := validate.Check(f)
	var ve *util.ValidationError
	if errors.As(err, &ve) {
		for _, fe := range ve.Errors {
			b.AddErrorf(fe.Field, "%s", fe.Message)
		}
	} else if err != nil {
		b.AddErrorf(util.GeneralField, "%v", err)
	}
}

// checkLink validates link settings. An alias is a link, so it needs a
// subnet and a mode other than link_up.
func (e *Engine) checkLink(b *util.ValidationBuilder, ls LinkSettings, needSubnet bool) {
	var subnet *model.Subnet
	if ls.Subnet != nil {
		subnet = e.graph.Catalog().SubnetByID(*ls.Subnet)
		b.Add(subnet != nil, FieldSubnet, fmt.Sprintf("unknown subnet %d", *ls.Subnet))
		if subnet != nil && ls.VLAN != nil {
			b.Add(subnet.VLANID == *ls.VLAN, FieldSubnet, "subnet is not on the selected VLAN")
		}
	}
	if needSubnet {
		b.Add(ls.Subnet != nil, FieldSubnet, "field is required")
		b.Add(ls.Mode != model.LinkModeLinkUp, FieldMode, "an alias needs an address mode")
	}
	e.checkFields(b, validate.Fields{
		ID:        validate.NewInterfaceID,
		Name:      "-",
		Mode:      ls.Mode,
		IPAddress: ls.IPAddress,
		Subnet:    subnet,
	})
	if ls.Mode == model.LinkModeStatic && ls.Subnet != nil {
		b.Add(ls.IPAddress != "", FieldIPAddress, "field is required")
	}
}

// vlanName is the name of a VLAN interface: parent.vid.
func (e *Engine) vlanName(parent string, vlanID int) string {
	vid := vlanID
	if v := e.graph.Catalog().VLANByID(vlanID); v != nil {
		vid = v.VID
	}
	return fmt.Sprintf("%s.%d", parent, vid)
}
