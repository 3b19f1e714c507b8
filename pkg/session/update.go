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

// Draft fields accepted by UpdateDraft besides the bond_* and bridge_*
// parameters.
const (
	FieldType       = "type"
	FieldFabric     = "fabric"
	FieldPrimary    = "primary"
	FieldName       = mutation.FieldName
	FieldMACAddress = mutation.FieldMACAddress
	FieldTags       = mutation.FieldTags
	FieldVLAN       = mutation.FieldVLAN
	FieldSubnet     = mutation.FieldSubnet
	FieldMode       = mutation.FieldMode
	FieldIPAddress  = mutation.FieldIPAddress
)

// fieldOrder is the order UpdateDraft applies fields in, so that a VLAN
// change clears the old subnet before a new subnet is set.
var fieldOrder = []string{
	FieldType, FieldFabric, FieldVLAN, FieldPrimary, FieldSubnet, FieldMode,
	FieldIPAddress, FieldName, FieldMACAddress, FieldTags,
}

// UpdateDraft sets draft fields from their string forms (ids in decimal,
// "" for none, tags comma separated). The returned state carries the
// field errors of the updated draft; a field that cannot be set at all is
// an error and leaves s unchanged.
func (e *Engine) UpdateDraft(s State, fields map[string]string) (State, error) {
	if s.Draft == nil {
		return s, invalidTransition(s.Mode, "update-draft")
	}
	d := s.Draft.clone()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if n := orderOf(a) - orderOf(b); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})

	for _, k := range keys {
		if err := e.setField(d, k, fields[k]); err != nil {
			return s, err
		}
	}

	n := s.next()
	n.Draft = d
	n.Errors = util.FieldMessages(e.Validate(n))
	return n, nil
}

func orderOf(field string) int {
	if n := slices.Index(fieldOrder, field); n >= 0 {
		return n
	}
	return len(fieldOrder)
}

func fieldError(field, format string, args ...any) error {
	return util.NewValidationError(field, fmt.Sprintf(format, args...))
}

func (e *Engine) setField(d Draft, field, value string) error {
	ls := linkSettingsOf(d)
	switch field {
	case FieldType:
		return e.setChildType(d, value)
	case FieldFabric:
		return e.setFabric(d, value)
	case FieldVLAN:
		if ls == nil {
			break
		}
		return e.setVLAN(d, ls, value)
	case FieldPrimary:
		return e.setPrimary(d, value)
	case FieldSubnet:
		if ls == nil {
			break
		}
		return e.setSubnet(ls, value)
	case FieldMode:
		if ls == nil {
			break
		}
		mode, err := model.ParseLinkMode(value)
		if err != nil {
			return fieldError(field, "%v", err)
		}
		ls.Mode = mode
		if mode != model.LinkModeStatic {
			ls.IPAddress = ""
		}
		return nil
	case FieldIPAddress:
		if ls == nil {
			break
		}
		ls.IPAddress = strings.TrimSpace(value)
		return nil
	case FieldName, FieldMACAddress, FieldTags:
		return setIdentity(d, field, value)
	default:
		if strings.HasPrefix(field, "bond_") {
			return setBondParam(d, field, value)
		}
		if strings.HasPrefix(field, "bridge_") {
			return setBridgeParam(d, field, value)
		}
	}
	return fieldError(field, "not a field of a %s draft", d.Kind())
}

func (e *Engine) setChildType(d Draft, value string) error {
	cd, ok := d.(*ChildDraft)
	if !ok {
		return fieldError(FieldType, "only alias and VLAN drafts have a type")
	}
	typ, err := model.ParseInterfaceType(value)
	if err != nil || (typ != model.TypeAlias && typ != model.TypeVLAN) {
		return fieldError(FieldType, "must be alias or vlan")
	}
	if typ == cd.Type {
		return nil
	}
	parent := cd.ParentRow
	if parent == nil {
		return fieldError(FieldType, "parent row is gone")
	}
	if (typ == model.TypeAlias && !e.CanAddAlias(parent)) || (typ == model.TypeVLAN && !e.CanAddVLAN(parent)) {
		return fieldError(FieldType, "cannot add a %s to %s", typ, parent.Name)
	}
	*cd = *e.newChildDraft(parent, typ)
	return nil
}

func (e *Engine) setFabric(d Draft, value string) error {
	pd, ok := d.(*PhysicalDraft)
	if !ok {
		return fieldError(FieldFabric, "only physical drafts choose a fabric")
	}
	id, err := source.ParseOptionalID(value)
	if err != nil || id == nil {
		return fieldError(FieldFabric, "must be a fabric id")
	}
	fabric := e.graph.Catalog().FabricByID(*id)
	if fabric == nil {
		return fieldError(FieldFabric, "unknown fabric %d", *id)
	}
	pd.Fabric = id
	pd.VLAN = model.IntPtr(fabric.DefaultVLANID)
	pd.Subnet = nil
	pd.Mode = model.LinkModeLinkUp
	pd.IPAddress = ""
	return nil
}

func (e *Engine) setVLAN(d Draft, ls *LinkSettings, value string) error {
	id, err := source.ParseOptionalID(value)
	if err != nil {
		return fieldError(FieldVLAN, "%v", err)
	}
	if id != nil && e.graph.Catalog().VLANByID(*id) == nil {
		return fieldError(FieldVLAN, "unknown VLAN %d", *id)
	}
	if cd, ok := d.(*ChildDraft); ok {
		if cd.Type == model.TypeAlias {
			return fieldError(FieldVLAN, "an alias stays on its parent's VLAN")
		}
		if id == nil || !e.vlanUnused(cd.ParentRow, *id) {
			return fieldError(FieldVLAN, "VLAN is not available on %s", cd.Parent)
		}
	}
	if pd, ok := d.(*PhysicalDraft); ok && id != nil {
		pd.Fabric = model.IntPtr(e.graph.Catalog().VLANByID(*id).FabricID)
	}
	if model.IntPtrEqual(ls.VLAN, id) {
		return nil
	}
	ls.VLAN = id
	return e.setSubnet(ls, "")
}

func (e *Engine) vlanUnused(parent *topology.Row, id int) bool {
	if parent == nil {
		return false
	}
	for _, v := range e.UnusedVLANs(parent) {
		if v.ID == id {
			return true
		}
	}
	return false
}

// setSubnet applies the subnet rules: no subnet means unconfigured, a
// subnet on an unconfigured link means auto, and only static keeps an
// address.
func (e *Engine) setSubnet(ls *LinkSettings, value string) error {
	id, err := source.ParseOptionalID(value)
	if err != nil {
		return fieldError(FieldSubnet, "%v", err)
	}
	if id != nil {
		subnet := e.graph.Catalog().SubnetByID(*id)
		if subnet == nil {
			return fieldError(FieldSubnet, "unknown subnet %d", *id)
		}
		if ls.VLAN != nil && subnet.VLANID != *ls.VLAN {
			return fieldError(FieldSubnet, "subnet %s is not on the selected VLAN", subnet.CIDR)
		}
	}
	ls.Subnet = id
	switch {
	case id == nil:
		ls.Mode = model.LinkModeLinkUp
	case ls.Mode == model.LinkModeLinkUp:
		ls.Mode = model.LinkModeAuto
	}
	if ls.Mode != model.LinkModeStatic {
		ls.IPAddress = ""
	}
	return nil
}

func (e *Engine) setPrimary(d Draft, value string) error {
	bd, ok := d.(*BondDraft)
	if !ok {
		return fieldError(FieldPrimary, "only bond drafts have a primary")
	}
	key := topology.RowKey(value)
	n := slices.Index(bd.Parents, key)
	if n < 0 {
		return fieldError(FieldPrimary, "%s is not a parent of the bond", value)
	}
	bd.Primary = key
	if n < len(bd.ParentRows) && bd.ParentRows[n] != nil {
		bd.MACAddress = bd.ParentRows[n].MACAddress
	}
	return nil
}

func setIdentity(d Draft, field, value string) error {
	var name, mac *string
	var tags *[]string
	switch d := d.(type) {
	case *BondDraft:
		name, mac, tags = &d.Name, &d.MACAddress, &d.Tags
	case *BridgeDraft:
		name, mac, tags = &d.Name, &d.MACAddress, &d.Tags
	case *PhysicalDraft:
		name, mac, tags = &d.Name, &d.MACAddress, &d.Tags
	case *EditDraft:
		name, mac, tags = &d.Name, &d.MACAddress, &d.Tags
	case *ChildDraft:
		tags = &d.Tags
	}
	switch {
	case field == FieldName && name != nil:
		*name = strings.TrimSpace(value)
	case field == FieldMACAddress && mac != nil:
		*mac = strings.ToLower(strings.TrimSpace(value))
	case field == FieldTags && tags != nil:
		*tags = util.SplitCommaSeparated(value)
		if *tags == nil {
			*tags = []string{}
		}
	default:
		return fieldError(field, "not a field of a %s draft", d.Kind())
	}
	return nil
}

// setBondParam parses one bond_* value. Unknown values and bad numbers
// are field errors; the draft keeps its previous setting.
func setBondParam(d Draft, field, value string) error {
	var p *model.BondParams
	switch d := d.(type) {
	case *BondDraft:
		p = &d.Params
	case *EditDraft:
		p = d.BondParams
	}
	if p == nil {
		return fieldError(field, "not a field of a %s draft", d.Kind())
	}
	value = strings.TrimSpace(value)
	switch field {
	case source.FieldBondMode:
		return setChoice(field, value, model.BondModes, &p.Mode)
	case source.FieldBondLACPRate:
		return setChoice(field, value, model.LACPRates, &p.LACPRate)
	case source.FieldBondXmitHashPolicy:
		return setChoice(field, value, model.XmitHashPolicies, &p.XmitHashPolicy)
	case source.FieldBondMIIMon:
		return setCount(field, value, &p.MIIMon)
	case source.FieldBondUpDelay:
		return setCount(field, value, &p.UpDelay)
	case source.FieldBondDownDelay:
		return setCount(field, value, &p.DownDelay)
	case source.FieldBondNumGratARP:
		return setCount(field, value, &p.NumGratARP)
	}
	return fieldError(field, "unknown bond parameter")
}

func setBridgeParam(d Draft, field, value string) error {
	var p *model.BridgeParams
	switch d := d.(type) {
	case *BridgeDraft:
		p = &d.Params
	case *EditDraft:
		p = d.BridgeParams
	}
	if p == nil {
		return fieldError(field, "not a field of a %s draft", d.Kind())
	}
	value = strings.TrimSpace(value)
	switch field {
	case source.FieldBridgeType:
		return setChoice(field, value, model.BridgeTypes, &p.Type)
	case source.FieldBridgeSTP:
		stp, err := strconv.ParseBool(value)
		if err != nil {
			return fieldError(field, "%q is not true or false", value)
		}
		p.STP = stp
		return nil
	case source.FieldBridgeFD:
		return setCount(field, value, &p.FD)
	}
	return fieldError(field, "unknown bridge parameter")
}

func setChoice[T ~string](field, value string, allowed []T, dst *T) error {
	if !slices.Contains(allowed, T(value)) {
		return fieldError(field, "%q is not one of %s", value, joinChoices(allowed))
	}
	*dst = T(value)
	return nil
}

func joinChoices[T ~string](allowed []T) string {
	out := make([]string, len(allowed))
	for i, v := range allowed {
		out[i] = string(v)
	}
	return strings.Join(out, ", ")
}

// setCount parses a non-negative integer such as a delay or a count.
func setCount(field, value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fieldError(field, "%q is not a whole number", value)
	}
	if n < 0 {
		return fieldError(field, "must not be negative")
	}
	*dst = n
	return nil
}
