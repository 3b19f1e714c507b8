package model

import (
	"fmt"
	"slices"
)

// VLAN is a tagged subdivision of a fabric. VID 0 is the fabric's untagged
// default VLAN.
type VLAN struct {
	ID       int    `json:"id" yaml:"id"`
	VID      int    `json:"vid" yaml:"vid"`
	Name     string `json:"name" yaml:"name"`
	FabricID int    `json:"fabric" yaml:"fabric"`
	MTU      int    `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	DHCPOn   bool   `json:"dhcp_on" yaml:"dhcp_on"`
}

// IsDefault returns true for the untagged VLAN of a fabric.
func (v *VLAN) IsDefault() bool {
	return v.VID == 0
}

// Text returns the display label: "untagged", "<vid>" or "<vid> (<name>)".
func (v *VLAN) Text() string {
	if v == nil {
		return ""
	}
	if v.VID == 0 {
		return "untagged"
	}
	if v.Name != "" {
		return fmt.Sprintf("%d (%s)", v.VID, v.Name)
	}
	return fmt.Sprintf("%d", v.VID)
}

// Fabric is a layer-2 broadcast domain.
type Fabric struct {
	ID            int    `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	DefaultVLANID int    `json:"default_vlan_id" yaml:"default_vlan_id"`
}

// Subnet is an address block on exactly one VLAN.
type Subnet struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	CIDR      string `json:"cidr" yaml:"cidr"`
	VLANID    int    `json:"vlan" yaml:"vlan"`
	GatewayIP string `json:"gateway_ip,omitempty" yaml:"gateway_ip,omitempty"`
}

// Node is the machine whose interfaces are edited.
type Node struct {
	SystemID     string `json:"system_id" yaml:"system_id"`
	Hostname     string `json:"hostname" yaml:"hostname"`
	IsController bool   `json:"is_controller" yaml:"is_controller"`
}

// Snapshot is one consistent view of a node's interfaces and the auxiliary
// collections, as of one synchronization tick.
type Snapshot struct {
	Node       Node        `json:"node" yaml:"node"`
	Interfaces []Interface `json:"interfaces" yaml:"interfaces"`
	VLANs      []VLAN      `json:"vlans" yaml:"vlans"`
	Fabrics    []Fabric    `json:"fabrics" yaml:"fabrics"`
	Subnets    []Subnet    `json:"subnets" yaml:"subnets"`
}

// FillChildren derives every interface's Children from the Parents lists.
// Sources that only store the parent edge call this after loading.
func (s *Snapshot) FillChildren() {
	index := make(map[int]int, len(s.Interfaces))
	for n := range s.Interfaces {
		index[s.Interfaces[n].ID] = n
		s.Interfaces[n].Children = nil
	}
	for _, iface := range s.Interfaces {
		for _, pid := range iface.Parents {
			if n, ok := index[pid]; ok && !slices.Contains(s.Interfaces[n].Children, iface.ID) {
				s.Interfaces[n].Children = append(s.Interfaces[n].Children, iface.ID)
			}
		}
	}
	for n := range s.Interfaces {
		slices.Sort(s.Interfaces[n].Children)
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Node:    s.Node,
		VLANs:   slices.Clone(s.VLANs),
		Fabrics: slices.Clone(s.Fabrics),
		Subnets: slices.Clone(s.Subnets),
	}
	if s.Interfaces != nil {
		c.Interfaces = make([]Interface, len(s.Interfaces))
		for n := range s.Interfaces {
			c.Interfaces[n] = *s.Interfaces[n].Clone()
		}
	}
	return c
}
