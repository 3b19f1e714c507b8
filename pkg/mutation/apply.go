package mutation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/util"
)

// Rejection messages returned to the editor.
const (
	MsgMACInUse  = "This MAC address is already in use by %s."
	MsgIPInUse   = "IP address is already in use."
	MsgNameInUse = "Interface name is already in use on this node."
	MsgNotInCIDR = "IP address is not inside subnet %s."
)

// IDs hands out interface and link ids. Next values are one above the
// last allocated.
type IDs struct {
	Interface int
	Link      int
}

func (ids *IDs) nextInterface() int {
	ids.Interface++
	return ids.Interface
}

func (ids *IDs) nextLink() int {
	ids.Link++
	return ids.Link
}

// IDsFrom returns an allocator that continues after the highest ids in
// snap.
func IDsFrom(snap *model.Snapshot) *IDs {
	ids := &IDs{}
	for _, iface := range snap.Interfaces {
		ids.Interface = max(ids.Interface, iface.ID)
		for _, l := range iface.Links {
			ids.Link = max(ids.Link, l.ID)
		}
	}
	return ids
}

// ApplyTo performs cs on snap in place. Either every change applies or snap
// is left as it was and the error says why: a *util.MutationError for a
// rejected field, or an error wrapping util.ErrNotFound.
func ApplyTo(snap *model.Snapshot, cs *ChangeSet, ids *IDs) error {
	work := snap.Clone()
	saved := *ids
	a := &applier{snap: work, ids: ids}
	for _, c := range cs.Changes {
		if err := a.apply(c); err != nil {
			*ids = saved
			return err
		}
	}
	work.FillChildren()
	*snap = *work
	return nil
}

type applier struct {
	snap *model.Snapshot
	ids  *IDs
}

func (a *applier) find(id int) (*model.Interface, error) {
	for n := range a.snap.Interfaces {
		if a.snap.Interfaces[n].ID == id {
			return &a.snap.Interfaces[n], nil
		}
	}
	return nil, fmt.Errorf("interface %d: %w", id, util.ErrNotFound)
}

func (a *applier) apply(c Change) error {
	switch c.Op {
	case OpCreatePhysical, OpCreateBond, OpCreateBridge, OpCreateVLAN:
		return a.create(c)
	case OpCreateAlias, OpLinkSubnet:
		iface, err := a.find(c.InterfaceID)
		if err != nil {
			return err
		}
		return a.link(c.Op, iface, c.Fields)
	case OpUnlinkSubnet:
		return a.unlink(c)
	case OpUpdateInterface:
		return a.update(c)
	case OpDeleteInterface:
		return a.remove(c.InterfaceID)
	}
	return fmt.Errorf("unknown operation %q", c.Op)
}

func (a *applier) create(c Change) error {
	f := c.Fields
	iface := model.Interface{
		ID:         a.ids.nextInterface(),
		Name:       f[FieldName],
		MACAddress: strings.ToLower(f[FieldMACAddress]),
		Tags:       util.SplitCommaSeparated(f[FieldTags]),
	}

	var err error
	if iface.VLANID, err = source.ParseOptionalID(f[FieldVLAN]); err != nil {
		return util.NewMutationError(string(c.Op), FieldVLAN, err.Error())
	}

	switch c.Op {
	case OpCreatePhysical:
		iface.Type = model.TypePhysical
		if iface.MACAddress == "" {
			return util.NewMutationError(string(c.Op), FieldMACAddress, "This field is required.")
		}
	case OpCreateBond:
		iface.Type = model.TypeBond
		iface.BondParams = source.DecodeBondParams(f)
		iface.Parents = util.SplitInts(f[FieldParents])
	case OpCreateBridge:
		iface.Type = model.TypeBridge
		iface.BridgeParams = source.DecodeBridgeParams(f)
		if iface.BridgeParams.Type == model.BridgeTypeOVS {
			iface.Type = model.TypeOVSBridge
		}
		iface.Parents = util.SplitInts(f[FieldParents])
	case OpCreateVLAN:
		iface.Type = model.TypeVLAN
		parent, err := strconv.Atoi(f[FieldParent])
		if err != nil {
			return util.NewMutationError(string(c.Op), FieldParent, "A parent interface is required.")
		}
		iface.Parents = []int{parent}
	}

	if iface.Name == "" {
		return util.NewMutationError(string(c.Op), FieldName, "This field is required.")
	}
	if a.nameInUse(iface.Name, iface.ID) {
		return util.NewMutationError(string(c.Op), FieldName, MsgNameInUse)
	}
	if err := a.checkMAC(string(c.Op), &iface); err != nil {
		return err
	}

	for _, pid := range iface.Parents {
		parent, err := a.find(pid)
		if err != nil {
			return util.NewMutationError(string(c.Op), FieldParents, fmt.Sprintf("Unknown interface %d.", pid))
		}
		if iface.Type.IsComposite() {
			// Members carry no addresses of their own.
			parent.Links = nil
			if iface.MACAddress == "" && pid == iface.Parents[0] {
				iface.MACAddress = parent.MACAddress
			}
		}
		if iface.Type == model.TypeVLAN && iface.MACAddress == "" {
			iface.MACAddress = parent.MACAddress
		}
	}

	a.snap.Interfaces = append(a.snap.Interfaces, iface)
	created := &a.snap.Interfaces[len(a.snap.Interfaces)-1]
	return a.link(c.Op, created, f)
}

// link adds a link from mode/subnet/ip_address fields. An unconfigured
// link with no subnet is the same as no link and is skipped.
func (a *applier) link(op Operation, iface *model.Interface, f map[string]string) error {
	mode := model.LinkModeLinkUp
	if m := f[FieldMode]; m != "" {
		parsed, err := model.ParseLinkMode(m)
		if err != nil {
			return util.NewMutationError(string(op), FieldMode, err.Error())
		}
		mode = parsed
	}
	subnetID, err := source.ParseOptionalID(f[FieldSubnet])
	if err != nil {
		return util.NewMutationError(string(op), FieldSubnet, err.Error())
	}
	if mode == model.LinkModeLinkUp && subnetID == nil {
		return nil
	}

	link := model.Link{SubnetID: subnetID, Mode: mode}
	if mode == model.LinkModeStatic {
		link.IPAddress = f[FieldIPAddress]
		if err := a.checkIP(string(op), &link); err != nil {
			return err
		}
	}
	link.ID = a.ids.nextLink()
	iface.Links = append(iface.Links, link)
	return nil
}

func (a *applier) unlink(c Change) error {
	iface, err := a.find(c.InterfaceID)
	if err != nil {
		return err
	}
	n := slices.IndexFunc(iface.Links, func(l model.Link) bool { return l.ID == c.LinkID })
	if n < 0 {
		return fmt.Errorf("interface %d link %d: %w", c.InterfaceID, c.LinkID, util.ErrNotFound)
	}
	iface.Links = slices.Delete(iface.Links, n, n+1)
	return nil
}

func (a *applier) update(c Change) error {
	iface, err := a.find(c.InterfaceID)
	if err != nil {
		return err
	}
	op := string(c.Op)
	f := c.Fields

	if name, ok := f[FieldName]; ok {
		if name == "" {
			return util.NewMutationError(op, FieldName, "This field is required.")
		}
		if a.nameInUse(name, iface.ID) {
			return util.NewMutationError(op, FieldName, MsgNameInUse)
		}
		iface.Name = name
	}
	if mac, ok := f[FieldMACAddress]; ok {
		iface.MACAddress = strings.ToLower(mac)
		if err := a.checkMAC(op, iface); err != nil {
			return err
		}
	}
	if tags, ok := f[FieldTags]; ok {
		iface.Tags = util.SplitCommaSeparated(tags)
	}
	if v, ok := f[FieldVLAN]; ok {
		if iface.VLANID, err = source.ParseOptionalID(v); err != nil {
			return util.NewMutationError(op, FieldVLAN, err.Error())
		}
	}
	if p, ok := f[FieldParents]; ok {
		parents := util.SplitInts(p)
		for _, pid := range parents {
			parent, err := a.find(pid)
			if err != nil {
				return util.NewMutationError(op, FieldParents, fmt.Sprintf("Unknown interface %d.", pid))
			}
			if iface.Type.IsComposite() && !iface.HasParent(pid) {
				parent.Links = nil
			}
		}
		iface.Parents = parents
	}
	if iface.Type == model.TypeBond {
		if iface.BondParams == nil {
			p := model.DefaultBondParams()
			iface.BondParams = &p
		}
		mergeBondParams(iface.BondParams, f)
	}
	if iface.Type.IsBridge() {
		if iface.BridgeParams == nil {
			p := model.DefaultBridgeParams()
			iface.BridgeParams = &p
		}
		mergeBridgeParams(iface.BridgeParams, f)
	}
	return nil
}

func mergeBondParams(p *model.BondParams, f map[string]string) {
	present := map[string]string{}
	for k, v := range source.EncodeBondParams(p) {
		present[k] = v
	}
	for k := range present {
		if v, ok := f[k]; ok {
			present[k] = v
		}
	}
	*p = *source.DecodeBondParams(present)
}

func mergeBridgeParams(p *model.BridgeParams, f map[string]string) {
	present := map[string]string{}
	for k, v := range source.EncodeBridgeParams(p) {
		present[k] = v
	}
	for k := range present {
		if v, ok := f[k]; ok {
			present[k] = v
		}
	}
	*p = *source.DecodeBridgeParams(present)
}

// remove deletes an interface together with its VLAN children and drops
// it from the parent lists of bonds and bridges.
func (a *applier) remove(id int) error {
	if _, err := a.find(id); err != nil {
		return err
	}
	drop := map[int]bool{id: true}
	for _, iface := range a.snap.Interfaces {
		if iface.Type == model.TypeVLAN && iface.HasParent(id) {
			drop[iface.ID] = true
		}
	}
	kept := a.snap.Interfaces[:0]
	for _, iface := range a.snap.Interfaces {
		if drop[iface.ID] {
			continue
		}
		iface.Parents = slices.DeleteFunc(iface.Parents, func(p int) bool { return drop[p] })
		kept = append(kept, iface)
	}
	a.snap.Interfaces = kept
	return nil
}

func (a *applier) nameInUse(name string, exceptID int) bool {
	for _, iface := range a.snap.Interfaces {
		if iface.ID != exceptID && iface.Name == name {
			return true
		}
	}
	return false
}

// checkMAC rejects a physical interface whose MAC another physical
// interface already has. Bonds, bridges and VLANs share their parents'.
func (a *applier) checkMAC(op string, iface *model.Interface) error {
	if iface.Type != model.TypePhysical || iface.MACAddress == "" {
		return nil
	}
	for _, other := range a.snap.Interfaces {
		if other.ID != iface.ID && other.Type == model.TypePhysical && strings.EqualFold(other.MACAddress, iface.MACAddress) {
			return util.NewMutationError(op, FieldMACAddress, fmt.Sprintf(MsgMACInUse, other.Name))
		}
	}
	return nil
}

func (a *applier) checkIP(op string, link *model.Link) error {
	if link.IPAddress == "" {
		return nil
	}
	if !util.IsValidIP(link.IPAddress) {
		return util.NewMutationError(op, FieldIPAddress, "Enter a valid IPv4 or IPv6 address.")
	}
	if link.SubnetID != nil {
		for _, s := range a.snap.Subnets {
			if s.ID != *link.SubnetID {
				continue
			}
			if in, err := util.AddressInCIDR(link.IPAddress, s.CIDR); err != nil || !in {
				return util.NewMutationError(op, FieldIPAddress, fmt.Sprintf(MsgNotInCIDR, s.CIDR))
			}
		}
	}
	for _, iface := range a.snap.Interfaces {
		for _, l := range iface.Links {
			if l.IPAddress == link.IPAddress {
				return util.NewMutationError(op, FieldIPAddress, MsgIPInUse)
			}
		}
	}
	return nil
}
