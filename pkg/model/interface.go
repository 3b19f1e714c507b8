// Package model defines the raw network objects supplied by the
// synchronization layer: interfaces and their links, VLANs, fabrics and
// subnets of one node.
package model

import (
	"fmt"
	"slices"
)

// InterfaceType is the closed set of interface kinds.
type InterfaceType string

const (
	TypePhysical  InterfaceType = "physical"
	TypeBond      InterfaceType = "bond"
	TypeBridge    InterfaceType = "bridge"
	TypeVLAN      InterfaceType = "vlan"
	TypeAlias     InterfaceType = "alias"
	TypeOVSBridge InterfaceType = "ovs-bridge"
)

// ParseInterfaceType converts a wire value into an InterfaceType.
func ParseInterfaceType(s string) (InterfaceType, error) {
	switch t := InterfaceType(s); t {
	case TypePhysical, TypeBond, TypeBridge, TypeVLAN, TypeAlias, TypeOVSBridge:
		return t, nil
	}
	return "", fmt.Errorf("unknown interface type %q", s)
}

// IsBridge returns true for standard and OVS bridges.
func (t InterfaceType) IsBridge() bool {
	return t == TypeBridge || t == TypeOVSBridge
}

// IsComposite returns true for interface kinds whose parents are members
// (bonds and bridges).
func (t InterfaceType) IsComposite() bool {
	return t == TypeBond || t.IsBridge()
}

// Text returns the display label for the type.
func (t InterfaceType) Text() string {
	switch t {
	case TypePhysical:
		return "Physical"
	case TypeBond:
		return "Bond"
	case TypeBridge:
		return "Bridge"
	case TypeVLAN:
		return "VLAN"
	case TypeAlias:
		return "Alias"
	case TypeOVSBridge:
		return "OVS Bridge"
	}
	return string(t)
}

// LinkMode is how an address is assigned on a link.
type LinkMode string

const (
	LinkModeDHCP   LinkMode = "dhcp"
	LinkModeStatic LinkMode = "static"
	LinkModeAuto   LinkMode = "auto"
	LinkModeLinkUp LinkMode = "link_up"
)

// ParseLinkMode converts a wire value into a LinkMode.
func ParseLinkMode(s string) (LinkMode, error) {
	switch m := LinkMode(s); m {
	case LinkModeDHCP, LinkModeStatic, LinkModeAuto, LinkModeLinkUp:
		return m, nil
	}
	return "", fmt.Errorf("unknown link mode %q", s)
}

// Text returns the display label for the mode.
func (m LinkMode) Text() string {
	switch m {
	case LinkModeDHCP:
		return "DHCP"
	case LinkModeStatic:
		return "Static assign"
	case LinkModeAuto:
		return "Auto assign"
	case LinkModeLinkUp:
		return "Unconfigured"
	}
	return string(m)
}

// Link is one address assignment on an interface.
type Link struct {
	ID        int      `json:"id" yaml:"id"`
	SubnetID  *int     `json:"subnet_id,omitempty" yaml:"subnet_id,omitempty"`
	Mode      LinkMode `json:"mode" yaml:"mode"`
	IPAddress string   `json:"ip_address" yaml:"ip_address"`
}

// Interface is a raw interface as delivered by the synchronization layer.
// Parents and Children are id lists; nothing holds pointers into the graph.
type Interface struct {
	ID           int           `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Type         InterfaceType `json:"type" yaml:"type"`
	Parents      []int         `json:"parents" yaml:"parents,omitempty"`
	Children     []int         `json:"children" yaml:"children,omitempty"`
	Links        []Link        `json:"links" yaml:"links,omitempty"`
	VLANID       *int          `json:"vlan_id,omitempty" yaml:"vlan_id,omitempty"`
	MACAddress   string        `json:"mac_address" yaml:"mac_address"`
	Tags         []string      `json:"tags" yaml:"tags,omitempty"`
	IsBoot       bool          `json:"is_boot" yaml:"is_boot"`
	NUMANode     int           `json:"numa_node" yaml:"numa_node"`
	MTU          int           `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	BondParams   *BondParams   `json:"bond_params,omitempty" yaml:"bond_params,omitempty"`
	BridgeParams *BridgeParams `json:"bridge_params,omitempty" yaml:"bridge_params,omitempty"`
}

// HasParent returns true if id is one of the interface's parents.
func (i *Interface) HasParent(id int) bool {
	return slices.Contains(i.Parents, id)
}

// HasConfiguredLink returns true if at least one link is in a mode other
// than link_up.
func (i *Interface) HasConfiguredLink() bool {
	for _, l := range i.Links {
		if l.Mode != LinkModeLinkUp {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the interface.
func (i *Interface) Clone() *Interface {
	c := *i
	c.Parents = slices.Clone(i.Parents)
	c.Children = slices.Clone(i.Children)
	c.Tags = slices.Clone(i.Tags)
	if i.Links != nil {
		c.Links = make([]Link, len(i.Links))
		for n, l := range i.Links {
			c.Links[n] = l
			if l.SubnetID != nil {
				id := *l.SubnetID
				c.Links[n].SubnetID = &id
			}
		}
	}
	if i.VLANID != nil {
		id := *i.VLANID
		c.VLANID = &id
	}
	if i.BondParams != nil {
		bp := *i.BondParams
		c.BondParams = &bp
	}
	if i.BridgeParams != nil {
		bp := *i.BridgeParams
		c.BridgeParams = &bp
	}
	return &c
}

// IntPtr returns a pointer to n, for optional id fields.
func IntPtr(n int) *int {
	return &n
}

// IntPtrEqual compares two optional ids.
func IntPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
