package topology

import (
	"reflect"
	"testing"

	"github.com/newtron-network/netedit/internal/testutil"
	"github.com/newtron-network/netedit/pkg/model"
)

func rowNames(rows []*Row) []string {
	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names
}

func TestKeyRoundTrip(t *testing.T) {
	if got := Key(5, NoLink); got != "5/-1" {
		t.Errorf("Key(5, NoLink) = %q, want %q", got, "5/-1")
	}
	id, link, err := ParseKey("12/3")
	if err != nil || id != 12 || link != 3 {
		t.Errorf("ParseKey(12/3) = %d, %d, %v", id, link, err)
	}
	for _, bad := range []string{"", "12", "a/1", "1/b"} {
		if _, _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}

func TestResolveHelpers(t *testing.T) {
	vlans, fabrics, subnets := testutil.Collections()

	if got := ResolveVLAN(nil, vlans); got != nil {
		t.Errorf("ResolveVLAN(nil) = %v, want nil", got)
	}
	if got := ResolveVLAN(model.IntPtr(9999), vlans); got != nil {
		t.Errorf("ResolveVLAN(9999) = %v, want nil", got)
	}
	v := ResolveVLAN(model.IntPtr(testutil.VLANMain10), vlans)
	if v == nil || v.VID != 10 {
		t.Fatalf("ResolveVLAN(VLANMain10) = %v", v)
	}
	if f := ResolveFabric(v, fabrics); f == nil || f.Name != "fabric-0" {
		t.Errorf("ResolveFabric() = %v, want fabric-0", f)
	}
	if f := ResolveFabric(nil, fabrics); f != nil {
		t.Errorf("ResolveFabric(nil) = %v, want nil", f)
	}
	if s := ResolveSubnet(model.IntPtr(testutil.SubnetTen), subnets); s == nil || s.CIDR != "10.0.10.0/24" {
		t.Errorf("ResolveSubnet(SubnetTen) = %v", s)
	}
	if s := ResolveSubnet(nil, subnets); s != nil {
		t.Errorf("ResolveSubnet(nil) = %v, want nil", s)
	}
}

func TestFlattenIdempotent(t *testing.T) {
	snap := testutil.NodeSnapshot()
	a := Flatten(snap).Rows()
	b := Flatten(snap).Rows()
	if !reflect.DeepEqual(a, b) {
		t.Error("flattening the same snapshot twice produced different rows")
	}
}

func TestFlattenOrderIndependent(t *testing.T) {
	snap := testutil.ControllerSnapshot()
	shuffled := snap.Clone()
	for i, j := 0, len(shuffled.Interfaces)-1; i < j; i, j = i+1, j-1 {
		shuffled.Interfaces[i], shuffled.Interfaces[j] = shuffled.Interfaces[j], shuffled.Interfaces[i]
	}
	shuffled.Subnets[0], shuffled.Subnets[3] = shuffled.Subnets[3], shuffled.Subnets[0]
	shuffled.VLANs[0], shuffled.VLANs[2] = shuffled.VLANs[2], shuffled.VLANs[0]

	a, b := Flatten(snap), Flatten(shuffled)
	if !reflect.DeepEqual(a.Rows(), b.Rows()) {
		t.Errorf("rows differ: %v vs %v", rowNames(a.Rows()), rowNames(b.Rows()))
	}
	if !reflect.DeepEqual(a.VLANTable(), b.VLANTable()) {
		t.Error("VLAN tables differ with collection order")
	}
}

func TestFlattenCoverage(t *testing.T) {
	snap := testutil.NodeSnapshot()
	g := Flatten(snap)

	want := 0
	for _, iface := range snap.Interfaces {
		if _, member := g.memberOf(iface.ID); member {
			continue
		}
		want += max(1, len(iface.Links))
	}
	if got := len(g.Rows()); got != want {
		t.Errorf("len(Rows()) = %d, want %d", got, want)
	}
	wantNames := []string{"eth0", "eth0:1", "bond0", "eth0.10", "eth3"}
	if got := rowNames(g.Rows()); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("row names = %v, want %v", got, wantNames)
	}
}

func TestFlattenMembershipExclusivity(t *testing.T) {
	g := Flatten(testutil.NodeSnapshot())

	topLevel := make(map[int]bool)
	for _, r := range g.Rows() {
		topLevel[r.ID] = true
	}
	for _, iface := range g.Interfaces() {
		_, member := g.memberOf(iface.ID)
		if topLevel[iface.ID] == member {
			t.Errorf("interface %s: top-level=%v member=%v", iface.Name, topLevel[iface.ID], member)
		}
	}

	// VLAN parents are not bond/bridge members.
	if !topLevel[testutil.IfaceEth0] {
		t.Error("eth0 should stay top-level under its VLAN child")
	}
	vlanRow, ok := g.Row(Key(testutil.IfaceEth0VLAN, 4))
	if !ok {
		t.Fatal("eth0.10 row not indexed")
	}
	if !reflect.DeepEqual(vlanRow.ParentNames, []string{"eth0"}) {
		t.Errorf("eth0.10 parent names = %v, want [eth0]", vlanRow.ParentNames)
	}
}

func TestFlattenAliasNaming(t *testing.T) {
	snap := &model.Snapshot{
		Interfaces: []model.Interface{{
			ID: 7, Name: "eth0", Type: model.TypePhysical,
			Links: []model.Link{
				{ID: 10, Mode: model.LinkModeDHCP},
				{ID: 11, Mode: model.LinkModeAuto},
				{ID: 12, Mode: model.LinkModeStatic, IPAddress: "10.0.0.5"},
			},
		}},
	}
	rows := Flatten(snap).Rows()

	tests := []struct {
		name   string
		typ    model.InterfaceType
		linkID int
		mode   model.LinkMode
	}{
		{"eth0", model.TypePhysical, 10, model.LinkModeDHCP},
		{"eth0:1", model.TypeAlias, 11, model.LinkModeAuto},
		{"eth0:2", model.TypeAlias, 12, model.LinkModeStatic},
	}
	if len(rows) != len(tests) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(tests))
	}
	for n, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rows[n]
			if r.Name != tt.name || r.Type != tt.typ || r.LinkID != tt.linkID || r.Mode != tt.mode {
				t.Errorf("row = {%s %s %d %s}, want {%s %s %d %s}",
					r.Name, r.Type, r.LinkID, r.Mode, tt.name, tt.typ, tt.linkID, tt.mode)
			}
			if r.ID != 7 {
				t.Errorf("row id = %d, want 7", r.ID)
			}
		})
	}
	if rows[2].IPAddress != "10.0.0.5" {
		t.Errorf("eth0:2 ip = %q, want 10.0.0.5", rows[2].IPAddress)
	}
}

func TestFlattenBondExample(t *testing.T) {
	g := Flatten(testutil.BondOnlySnapshot())
	rows := g.Rows()
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1: %v", len(rows), rowNames(rows))
	}
	bond := rows[0]
	if bond.ID != 2 || bond.Type != model.TypeBond || bond.LinkID != NoLink {
		t.Errorf("bond row = {%d %s %d}, want {2 bond -1}", bond.ID, bond.Type, bond.LinkID)
	}
	if bond.VLAN != nil || bond.Subnet != nil {
		t.Errorf("bond vlan/subnet = %v/%v, want nil/nil", bond.VLAN, bond.Subnet)
	}
	if bond.Mode != model.LinkModeLinkUp || bond.IPAddress != "" {
		t.Errorf("bond mode/ip = %s/%q, want link_up/\"\"", bond.Mode, bond.IPAddress)
	}
	if got := rowNames(bond.Members); !reflect.DeepEqual(got, []string{"eth0", "eth1"}) {
		t.Errorf("members = %v, want [eth0 eth1]", got)
	}
	for _, m := range bond.Members {
		if m.LinkID != NoLink {
			t.Errorf("member %s link id = %d, want -1", m.Name, m.LinkID)
		}
	}
}

func TestFlattenEmptyBond(t *testing.T) {
	snap := &model.Snapshot{Interfaces: []model.Interface{
		{ID: 1, Name: "bond0", Type: model.TypeBond},
		{ID: 2, Name: "br0", Type: model.TypeBridge, Parents: []int{}},
	}}
	rows := Flatten(snap).Rows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Members == nil || len(r.Members) != 0 {
			t.Errorf("%s members = %v, want empty", r.Name, r.Members)
		}
	}
}

func TestFlattenMissingReferences(t *testing.T) {
	snap := &model.Snapshot{Interfaces: []model.Interface{{
		ID: 1, Name: "eth0", Type: model.TypePhysical, VLANID: model.IntPtr(42),
		Links: []model.Link{{ID: 1, SubnetID: model.IntPtr(99), Mode: model.LinkModeAuto}},
	}}}
	r := Flatten(snap).Rows()[0]
	if r.VLAN != nil || r.Fabric != nil || r.Subnet != nil {
		t.Errorf("unresolved references should be nil, got %v %v %v", r.VLAN, r.Fabric, r.Subnet)
	}
}

func TestFlattenParentCycle(t *testing.T) {
	snap := &model.Snapshot{Interfaces: []model.Interface{
		{ID: 1, Name: "bond0", Type: model.TypeBond, Parents: []int{2}},
		{ID: 2, Name: "bond1", Type: model.TypeBond, Parents: []int{1}},
	}}
	// Both are members of each other so neither renders; the call must
	// terminate.
	g := Flatten(snap)
	if len(g.Rows()) != 0 {
		t.Errorf("rows = %v, want none", rowNames(g.Rows()))
	}
}

func TestFlattenDoublyClaimedMember(t *testing.T) {
	snap := &model.Snapshot{Interfaces: []model.Interface{
		{ID: 1, Name: "eth0", Type: model.TypePhysical},
		{ID: 2, Name: "eth1", Type: model.TypePhysical},
		{ID: 7, Name: "br1", Type: model.TypeBridge, Parents: []int{2}},
		{ID: 3, Name: "bond0", Type: model.TypeBond, Parents: []int{1, 2}},
	}}
	// Map order varies between runs; the owner must not.
	for i := 0; i < 20; i++ {
		g := Flatten(snap)
		if owner, ok := g.memberOf(2); !ok || owner != 3 {
			t.Fatalf("memberOf(eth1) = %d, %v, want 3 (bond0)", owner, ok)
		}
		bond, ok := g.Row(Key(3, NoLink))
		if !ok {
			t.Fatal("bond0 row missing")
		}
		if got, want := rowNames(bond.Members), []string{"eth0", "eth1"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("bond0 members = %v, want %v", got, want)
		}
		br, ok := g.Row(Key(7, NoLink))
		if !ok {
			t.Fatal("br1 row missing")
		}
		if len(br.Members) != 0 {
			t.Fatalf("br1 members = %v, want none", rowNames(br.Members))
		}
	}
}

func TestGraphLookups(t *testing.T) {
	g := Flatten(testutil.NodeSnapshot())

	if _, ok := g.Row(Key(testutil.IfaceEth0, 2)); !ok {
		t.Error("alias row 1/2 not indexed")
	}
	if _, ok := g.Row(Key(testutil.IfaceEth1, NoLink)); ok {
		t.Error("member eth1 must not be a top-level row")
	}
	if owner, ok := g.memberOf(testutil.IfaceEth1); !ok || owner != testutil.IfaceBond0 {
		t.Errorf("memberOf(eth1) = %d, %v", owner, ok)
	}
	if iface, ok := g.Original(testutil.IfaceEth2); !ok || iface.Name != "eth2" {
		t.Errorf("Original(eth2) = %v, %v", iface, ok)
	}
	if got := len(g.RowsOf(testutil.IfaceEth0)); got != 2 {
		t.Errorf("len(RowsOf(eth0)) = %d, want 2", got)
	}
	if !g.NameInUse("eth1", testutil.IfaceEth0) {
		t.Error("NameInUse(eth1) should see the member interface")
	}
	if g.NameInUse("eth0", testutil.IfaceEth0) {
		t.Error("NameInUse must exclude the interface itself")
	}
	if len(g.VLANTable()) != 0 {
		t.Error("VLAN table must be empty for a non-controller node")
	}
}

func TestVLANTable(t *testing.T) {
	g := Flatten(testutil.ControllerSnapshot())
	table := g.VLANTable()

	wantKeys := []string{"fabric-0|10 (storage)", "fabric-0|untagged"}
	var gotKeys []string
	for _, e := range table {
		gotKeys = append(gotKeys, e.SortKey)
	}
	if !reflect.DeepEqual(gotKeys, wantKeys) {
		t.Fatalf("sort keys = %v, want %v", gotKeys, wantKeys)
	}

	untagged := table[1]
	if untagged.VLAN.ID != testutil.VLANMainUntagged {
		t.Errorf("entry vlan = %d, want %d", untagged.VLAN.ID, testutil.VLANMainUntagged)
	}
	var subnetIDs []int
	for _, s := range untagged.Subnets {
		subnetIDs = append(subnetIDs, s.ID)
	}
	if want := []int{testutil.SubnetMain, testutil.SubnetMainV6}; !reflect.DeepEqual(subnetIDs, want) {
		t.Errorf("untagged subnets = %v, want %v", subnetIDs, want)
	}
}

func TestVLANTableDedup(t *testing.T) {
	vlans, fabrics, subnets := testutil.Collections()
	snap := &model.Snapshot{
		Node: model.Node{IsController: true},
		Interfaces: []model.Interface{
			{ID: 1, Name: "eth0", Type: model.TypePhysical, VLANID: model.IntPtr(testutil.VLANMain10)},
			{ID: 2, Name: "eth1", Type: model.TypePhysical, VLANID: model.IntPtr(testutil.VLANMain10)},
		},
		VLANs: vlans, Fabrics: fabrics, Subnets: subnets,
	}
	table := Flatten(snap).VLANTable()
	if len(table) != 1 {
		t.Fatalf("len(table) = %d, want 1", len(table))
	}
	if len(table[0].Subnets) != 1 || table[0].Subnets[0].ID != testutil.SubnetTen {
		t.Errorf("subnets = %v, want [storage]", table[0].Subnets)
	}
}
