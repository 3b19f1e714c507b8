package testutil

import (
	"github.com/newtron-network/netedit/pkg/model"
)

// Ids used by the fixtures.
const (
	FabricMain = 0
	FabricLab  = 1

	VLANMainUntagged = 5000
	VLANLabUntagged  = 5001
	VLANMain10       = 5002
	VLANMain20       = 5003

	SubnetMain   = 1
	SubnetTen    = 2
	SubnetLab    = 3
	SubnetMainV6 = 4

	IfaceEth0     = 1
	IfaceEth1     = 2
	IfaceEth2     = 3
	IfaceBond0    = 4
	IfaceEth0VLAN = 5
	IfaceEth3     = 6
)

// Collections returns the VLANs, fabrics and subnets shared by the fixture
// snapshots.
func Collections() ([]model.VLAN, []model.Fabric, []model.Subnet) {
	vlans := []model.VLAN{
		{ID: VLANMainUntagged, VID: 0, FabricID: FabricMain, MTU: 1500},
		{ID: VLANLabUntagged, VID: 0, FabricID: FabricLab, MTU: 1500},
		{ID: VLANMain10, VID: 10, Name: "storage", FabricID: FabricMain, MTU: 1500},
		{ID: VLANMain20, VID: 20, FabricID: FabricMain, MTU: 9000},
	}
	fabrics := []model.Fabric{
		{ID: FabricMain, Name: "fabric-0", DefaultVLANID: VLANMainUntagged},
		{ID: FabricLab, Name: "fabric-1", DefaultVLANID: VLANLabUntagged},
	}
	subnets := []model.Subnet{
		{ID: SubnetMain, Name: "main", CIDR: "192.168.122.0/24", VLANID: VLANMainUntagged, GatewayIP: "192.168.122.1"},
		{ID: SubnetTen, Name: "storage", CIDR: "10.0.10.0/24", VLANID: VLANMain10},
		{ID: SubnetLab, Name: "lab", CIDR: "172.16.0.0/16", VLANID: VLANLabUntagged},
		{ID: SubnetMainV6, Name: "main-v6", CIDR: "2001:db8::/64", VLANID: VLANMainUntagged},
	}
	return vlans, fabrics, subnets
}

// NodeSnapshot returns a machine with a multi-link boot NIC (eth0), a bond
// of eth1 and eth2, a VLAN child of eth0 and a disconnected eth3.
//
//	eth0     physical  192.168.122.10 static, plus an auto link on main-v6
//	eth0.10  vlan      on eth0, VLAN 10, auto on storage
//	bond0    bond      members eth1, eth2, dhcp on main
//	eth3     physical  no VLAN, no links
func NodeSnapshot() *model.Snapshot {
	vlans, fabrics, subnets := Collections()
	params := model.DefaultBondParams()
	snap := &model.Snapshot{
		Node: model.Node{SystemID: "abc123", Hostname: "node1"},
		Interfaces: []model.Interface{
			{
				ID: IfaceEth0, Name: "eth0", Type: model.TypePhysical,
				VLANID:     model.IntPtr(VLANMainUntagged),
				MACAddress: "52:54:00:00:00:01", IsBoot: true,
				Links: []model.Link{
					{ID: 1, SubnetID: model.IntPtr(SubnetMain), Mode: model.LinkModeStatic, IPAddress: "192.168.122.10"},
					{ID: 2, SubnetID: model.IntPtr(SubnetMainV6), Mode: model.LinkModeAuto},
				},
			},
			{
				ID: IfaceEth1, Name: "eth1", Type: model.TypePhysical,
				VLANID:     model.IntPtr(VLANMainUntagged),
				MACAddress: "52:54:00:00:00:02",
			},
			{
				ID: IfaceEth2, Name: "eth2", Type: model.TypePhysical,
				VLANID:     model.IntPtr(VLANMainUntagged),
				MACAddress: "52:54:00:00:00:03", NUMANode: 1,
			},
			{
				ID: IfaceBond0, Name: "bond0", Type: model.TypeBond,
				Parents:    []int{IfaceEth1, IfaceEth2},
				VLANID:     model.IntPtr(VLANMainUntagged),
				MACAddress: "52:54:00:00:00:02",
				BondParams: &params,
				Links: []model.Link{
					{ID: 3, SubnetID: model.IntPtr(SubnetMain), Mode: model.LinkModeDHCP},
				},
			},
			{
				ID: IfaceEth0VLAN, Name: "eth0.10", Type: model.TypeVLAN,
				Parents:    []int{IfaceEth0},
				VLANID:     model.IntPtr(VLANMain10),
				MACAddress: "52:54:00:00:00:01",
				Links: []model.Link{
					{ID: 4, SubnetID: model.IntPtr(SubnetTen), Mode: model.LinkModeAuto},
				},
			},
			{
				ID: IfaceEth3, Name: "eth3", Type: model.TypePhysical,
				MACAddress: "52:54:00:00:00:06",
			},
		},
		VLANs:   vlans,
		Fabrics: fabrics,
		Subnets: subnets,
	}
	snap.FillChildren()
	return snap
}

// ControllerSnapshot is NodeSnapshot for a fleet controller.
func ControllerSnapshot() *model.Snapshot {
	snap := NodeSnapshot()
	snap.Node = model.Node{SystemID: "ctl001", Hostname: "controller", IsController: true}
	return snap
}

// BondOnlySnapshot is two linkless NICs bonded into a linkless bond with
// no VLAN.
func BondOnlySnapshot() *model.Snapshot {
	_, fabrics, _ := Collections()
	return &model.Snapshot{
		Node: model.Node{SystemID: "bond01", Hostname: "bonded"},
		Interfaces: []model.Interface{
			{ID: 0, Name: "eth0", Type: model.TypePhysical, Parents: []int{}, Children: []int{2}, Links: []model.Link{}},
			{ID: 1, Name: "eth1", Type: model.TypePhysical, Parents: []int{}, Children: []int{2}, Links: []model.Link{}},
			{ID: 2, Name: "bond0", Type: model.TypeBond, Parents: []int{0, 1}, Children: []int{}, Links: []model.Link{}},
		},
		Fabrics: fabrics,
	}
}

// Without returns a copy of snap with the given interfaces removed. Parent
// and child references to them are dropped as well.
func Without(snap *model.Snapshot, ids ...int) *model.Snapshot {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := snap.Clone()
	kept := out.Interfaces[:0]
	for _, iface := range out.Interfaces {
		if drop[iface.ID] {
			continue
		}
		iface.Parents = filterIDs(iface.Parents, drop)
		iface.Children = filterIDs(iface.Children, drop)
		kept = append(kept, iface)
	}
	out.Interfaces = kept
	return out
}

func filterIDs(ids []int, drop map[int]bool) []int {
	var out []int
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
