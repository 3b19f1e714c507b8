package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// Tables of the Redis layout. Keys are "<TABLE>|<id>";
// links are "LINK|<interface id>|<link id>".
const (
	TableNode      = "NODE"
	TableInterface = "INTERFACE"
	TableLink      = "LINK"
	TableVLAN      = "VLAN"
	TableFabric    = "FABRIC"
	TableSubnet    = "SUBNET"
	TableNextID    = "NEXT_ID"
)

// Hash fields.
const (
	FieldNode         = "node"
	FieldName         = "name"
	FieldType         = "type"
	FieldParents      = "parents"
	FieldVLAN         = "vlan"
	FieldMACAddress   = "mac_address"
	FieldTags         = "tags"
	FieldIsBoot       = "is_boot"
	FieldNUMANode     = "numa_node"
	FieldMTU          = "mtu"
	FieldSubnet       = "subnet"
	FieldMode         = "mode"
	FieldIPAddress    = "ip_address"
	FieldVID          = "vid"
	FieldFabric       = "fabric"
	FieldDHCPOn       = "dhcp_on"
	FieldDefaultVLAN  = "default_vlan"
	FieldCIDR         = "cidr"
	FieldGatewayIP    = "gateway_ip"
	FieldHostname     = "hostname"
	FieldIsController = "is_controller"

	FieldBondMode           = "bond_mode"
	FieldBondMIIMon         = "bond_miimon"
	FieldBondUpDelay        = "bond_updelay"
	FieldBondDownDelay      = "bond_downdelay"
	FieldBondLACPRate       = "bond_lacp_rate"
	FieldBondXmitHashPolicy = "bond_xmit_hash_policy"
	FieldBondNumGratARP     = "bond_num_grat_arp"

	FieldBridgeType = "bridge_type"
	FieldBridgeSTP  = "bridge_stp"
	FieldBridgeFD   = "bridge_fd"
)

// Key builds a Redis key from a table and its key parts.
func Key(table string, parts ...any) string {
	var sb strings.Builder
	sb.WriteString(table)
	for _, p := range parts {
		sb.WriteString("|")
		sb.WriteString(fmt.Sprint(p))
	}
	return sb.String()
}

// FormatOptionalID renders an optional id; nil is the empty string.
func FormatOptionalID(id *int) string {
	if id == nil {
		return ""
	}
	return strconv.Itoa(*id)
}

// ParseOptionalID is the inverse of FormatOptionalID.
func ParseOptionalID(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", s)
	}
	return &n, nil
}

// EncodeInterface renders the interface hash, links excluded.
func EncodeInterface(node string, iface *model.Interface) map[string]string {
	vals := map[string]string{
		FieldNode:       node,
		FieldName:       iface.Name,
		FieldType:       string(iface.Type),
		FieldParents:    util.JoinInts(iface.Parents),
		FieldVLAN:       FormatOptionalID(iface.VLANID),
		FieldMACAddress: iface.MACAddress,
		FieldTags:       strings.Join(iface.Tags, ","),
		FieldIsBoot:     strconv.FormatBool(iface.IsBoot),
		FieldNUMANode:   strconv.Itoa(iface.NUMANode),
		FieldMTU:        strconv.Itoa(iface.MTU),
	}
	if iface.BondParams != nil {
		for k, v := range EncodeBondParams(iface.BondParams) {
			vals[k] = v
		}
	}
	if iface.BridgeParams != nil {
		for k, v := range EncodeBridgeParams(iface.BridgeParams) {
			vals[k] = v
		}
	}
	return vals
}

// DecodeInterface parses an interface hash. Links and children are filled
// in by the caller.
func DecodeInterface(id int, vals map[string]string) (model.Interface, error) {
	iface := model.Interface{
		ID:         id,
		Name:       vals[FieldName],
		MACAddress: vals[FieldMACAddress],
		Tags:       util.SplitCommaSeparated(vals[FieldTags]),
		IsBoot:     vals[FieldIsBoot] == "true",
	}
	var err error
	if iface.Type, err = model.ParseInterfaceType(vals[FieldType]); err != nil {
		return iface, fmt.Errorf("interface %d: %w", id, err)
	}
	iface.Parents = util.SplitInts(vals[FieldParents])
	if iface.VLANID, err = ParseOptionalID(vals[FieldVLAN]); err != nil {
		return iface, fmt.Errorf("interface %d vlan: %w", id, err)
	}
	iface.NUMANode = atoiOr(vals[FieldNUMANode], 0)
	iface.MTU = atoiOr(vals[FieldMTU], 0)

	switch {
	case iface.Type == model.TypeBond:
		iface.BondParams = DecodeBondParams(vals)
	case iface.Type.IsBridge():
		iface.BridgeParams = DecodeBridgeParams(vals)
	}
	return iface, nil
}

// EncodeLink renders a link hash.
func EncodeLink(link *model.Link) map[string]string {
	return map[string]string{
		FieldSubnet:    FormatOptionalID(link.SubnetID),
		FieldMode:      string(link.Mode),
		FieldIPAddress: link.IPAddress,
	}
}

// DecodeLink parses a link hash.
func DecodeLink(id int, vals map[string]string) (model.Link, error) {
	link := model.Link{ID: id, IPAddress: vals[FieldIPAddress]}
	var err error
	if link.SubnetID, err = ParseOptionalID(vals[FieldSubnet]); err != nil {
		return link, fmt.Errorf("link %d subnet: %w", id, err)
	}
	if link.Mode, err = model.ParseLinkMode(vals[FieldMode]); err != nil {
		return link, fmt.Errorf("link %d: %w", id, err)
	}
	return link, nil
}

// EncodeBondParams renders bond settings as bond_* fields.
func EncodeBondParams(p *model.BondParams) map[string]string {
	return map[string]string{
		FieldBondMode:           string(p.Mode),
		FieldBondMIIMon:         strconv.Itoa(p.MIIMon),
		FieldBondUpDelay:        strconv.Itoa(p.UpDelay),
		FieldBondDownDelay:      strconv.Itoa(p.DownDelay),
		FieldBondLACPRate:       string(p.LACPRate),
		FieldBondXmitHashPolicy: string(p.XmitHashPolicy),
		FieldBondNumGratARP:     strconv.Itoa(p.NumGratARP),
	}
}

// DecodeBondParams reads bond_* fields; missing fields keep their defaults.
func DecodeBondParams(vals map[string]string) *model.BondParams {
	p := model.DefaultBondParams()
	if v := vals[FieldBondMode]; v != "" {
		p.Mode = model.BondMode(v)
	}
	p.MIIMon = atoiOr(vals[FieldBondMIIMon], p.MIIMon)
	p.UpDelay = atoiOr(vals[FieldBondUpDelay], p.UpDelay)
	p.DownDelay = atoiOr(vals[FieldBondDownDelay], p.DownDelay)
	if v := vals[FieldBondLACPRate]; v != "" {
		p.LACPRate = model.LACPRate(v)
	}
	if v := vals[FieldBondXmitHashPolicy]; v != "" {
		p.XmitHashPolicy = model.XmitHashPolicy(v)
	}
	p.NumGratARP = atoiOr(vals[FieldBondNumGratARP], p.NumGratARP)
	return &p
}

// EncodeBridgeParams renders bridge settings as bridge_* fields.
func EncodeBridgeParams(p *model.BridgeParams) map[string]string {
	return map[string]string{
		FieldBridgeType: string(p.Type),
		FieldBridgeSTP:  strconv.FormatBool(p.STP),
		FieldBridgeFD:   strconv.Itoa(p.FD),
	}
}

// DecodeBridgeParams reads bridge_* fields; missing fields keep their
// defaults.
func DecodeBridgeParams(vals map[string]string) *model.BridgeParams {
	p := model.DefaultBridgeParams()
	if v := vals[FieldBridgeType]; v != "" {
		p.Type = model.BridgeType(v)
	}
	if v, err := strconv.ParseBool(vals[FieldBridgeSTP]); err == nil {
		p.STP = v
	}
	p.FD = atoiOr(vals[FieldBridgeFD], p.FD)
	return &p
}

func encodeVLAN(v *model.VLAN) map[string]string {
	return map[string]string{
		FieldVID:    strconv.Itoa(v.VID),
		FieldName:   v.Name,
		FieldFabric: strconv.Itoa(v.FabricID),
		FieldMTU:    strconv.Itoa(v.MTU),
		FieldDHCPOn: strconv.FormatBool(v.DHCPOn),
	}
}

func decodeVLAN(id int, vals map[string]string) model.VLAN {
	return model.VLAN{
		ID:       id,
		VID:      atoiOr(vals[FieldVID], 0),
		Name:     vals[FieldName],
		FabricID: atoiOr(vals[FieldFabric], 0),
		MTU:      atoiOr(vals[FieldMTU], 0),
		DHCPOn:   vals[FieldDHCPOn] == "true",
	}
}

func encodeFabric(f *model.Fabric) map[string]string {
	return map[string]string{
		FieldName:        f.Name,
		FieldDefaultVLAN: strconv.Itoa(f.DefaultVLANID),
	}
}

func decodeFabric(id int, vals map[string]string) model.Fabric {
	return model.Fabric{
		ID:            id,
		Name:          vals[FieldName],
		DefaultVLANID: atoiOr(vals[FieldDefaultVLAN], 0),
	}
}

func encodeSubnet(s *model.Subnet) map[string]string {
	return map[string]string{
		FieldName:      s.Name,
		FieldCIDR:      s.CIDR,
		FieldVLAN:      strconv.Itoa(s.VLANID),
		FieldGatewayIP: s.GatewayIP,
	}
}

func decodeSubnet(id int, vals map[string]string) model.Subnet {
	return model.Subnet{
		ID:        id,
		Name:      vals[FieldName],
		CIDR:      vals[FieldCIDR],
		VLANID:    atoiOr(vals[FieldVLAN], 0),
		GatewayIP: vals[FieldGatewayIP],
	}
}

func atoiOr(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
