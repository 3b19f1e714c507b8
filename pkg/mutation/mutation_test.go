package mutation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/newtron-network/netedit/internal/testutil"
	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/util"
)

func find(snap *model.Snapshot, name string) *model.Interface {
	for n := range snap.Interfaces {
		if snap.Interfaces[n].Name == name {
			return &snap.Interfaces[n]
		}
	}
	return nil
}

func apply(t *testing.T, snap *model.Snapshot, changes ...Change) error {
	t.Helper()
	cs := NewChangeSet(snap.Node.SystemID, "test")
	cs.Changes = changes
	return ApplyTo(snap, cs, IDsFrom(snap))
}

func TestApplyCreateBond(t *testing.T) {
	snap := testutil.NodeSnapshot()
	err := apply(t, snap, Change{Op: OpCreateBond, Fields: map[string]string{
		FieldName:                 "bond1",
		FieldParents:              "6,1",
		FieldVLAN:                 "5000",
		FieldMode:                 "auto",
		FieldSubnet:               "1",
		source.FieldBondMode:      "802.3ad",
		source.FieldBondLACPRate:  "fast",
		source.FieldBondMIIMon:    "200",
		source.FieldBondUpDelay:   "0",
		source.FieldBondDownDelay: "0",
	}})
	if err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}

	bond := find(snap, "bond1")
	if bond == nil {
		t.Fatal("bond1 not created")
	}
	if bond.ID != testutil.IfaceEth3+1 {
		t.Errorf("bond1 id = %d, want %d", bond.ID, testutil.IfaceEth3+1)
	}
	if bond.MACAddress != "52:54:00:00:00:06" {
		t.Errorf("bond1 mac = %q, want the first parent's", bond.MACAddress)
	}
	if bond.BondParams.Mode != model.BondMode8023AD || bond.BondParams.MIIMon != 200 || bond.BondParams.NumGratARP != 1 {
		t.Errorf("bond params = %+v", *bond.BondParams)
	}
	if len(bond.Links) != 1 || bond.Links[0].Mode != model.LinkModeAuto {
		t.Errorf("bond links = %+v", bond.Links)
	}
	if eth0 := find(snap, "eth0"); len(eth0.Links) != 0 {
		t.Errorf("eth0 kept %d links after joining a bond", len(eth0.Links))
	}
	if eth3 := find(snap, "eth3"); len(eth3.Children) != 1 || eth3.Children[0] != bond.ID {
		t.Errorf("eth3 children = %v, want [%d]", eth3.Children, bond.ID)
	}
}

func TestApplyRejections(t *testing.T) {
	tests := []struct {
		name   string
		change Change
		field  string
		msg    string
	}{
		{
			name: "duplicate mac",
			change: Change{Op: OpCreatePhysical, Fields: map[string]string{
				FieldName: "eth9", FieldMACAddress: "52:54:00:00:00:01",
			}},
			field: FieldMACAddress,
			msg:   "This MAC address is already in use by eth0.",
		},
		{
			name: "duplicate name",
			change: Change{Op: OpCreatePhysical, Fields: map[string]string{
				FieldName: "eth3", FieldMACAddress: "52:54:00:00:00:99",
			}},
			field: FieldName,
			msg:   MsgNameInUse,
		},
		{
			name: "duplicate ip",
			change: Change{Op: OpCreateAlias, InterfaceID: testutil.IfaceBond0, Fields: map[string]string{
				FieldMode: "static", FieldSubnet: "1", FieldIPAddress: "192.168.122.10",
			}},
			field: FieldIPAddress,
			msg:   MsgIPInUse,
		},
		{
			name: "outside subnet",
			change: Change{Op: OpLinkSubnet, InterfaceID: testutil.IfaceEth3, Fields: map[string]string{
				FieldMode: "static", FieldSubnet: "1", FieldIPAddress: "192.168.123.10",
			}},
			field: FieldIPAddress,
			msg:   "IP address is not inside subnet 192.168.122.0/24.",
		},
		{
			name: "unknown parent",
			change: Change{Op: OpCreateBond, Fields: map[string]string{
				FieldName: "bond9", FieldParents: "6,77",
			}},
			field: FieldParents,
			msg:   "Unknown interface 77.",
		},
		{
			name: "rename onto existing",
			change: Change{Op: OpUpdateInterface, InterfaceID: testutil.IfaceEth3, Fields: map[string]string{
				FieldName: "eth0",
			}},
			field: FieldName,
			msg:   MsgNameInUse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testutil.NodeSnapshot()
			err := apply(t, snap, tt.change)
			var me *util.MutationError
			if !errors.As(err, &me) {
				t.Fatalf("error = %v, want *util.MutationError", err)
			}
			if got := util.FieldMessages(err)[tt.field]; got != tt.msg {
				t.Errorf("%s message = %q, want %q", tt.field, got, tt.msg)
			}
		})
	}
}

func TestApplyIsAtomic(t *testing.T) {
	snap := testutil.NodeSnapshot()
	ids := IDsFrom(snap)
	before := *ids

	cs := NewChangeSet(snap.Node.SystemID, "test")
	cs.Add(OpCreatePhysical, 0, 0, map[string]string{FieldName: "eth9", FieldMACAddress: "52:54:00:00:00:09"})
	cs.Add(OpDeleteInterface, 999, 0, nil)

	err := ApplyTo(snap, cs, ids)
	if !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if find(snap, "eth9") != nil {
		t.Error("eth9 was created by a failed change set")
	}
	if *ids != before {
		t.Errorf("ids = %+v, want %+v", *ids, before)
	}
}

func TestApplyDeleteCascadesToVLANs(t *testing.T) {
	snap := testutil.NodeSnapshot()
	if err := apply(t, snap, Change{Op: OpDeleteInterface, InterfaceID: testutil.IfaceEth0}); err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}
	if find(snap, "eth0") != nil || find(snap, "eth0.10") != nil {
		t.Error("eth0 and its VLAN child should be gone")
	}

	snap = testutil.NodeSnapshot()
	if err := apply(t, snap, Change{Op: OpDeleteInterface, InterfaceID: testutil.IfaceEth1}); err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}
	if bond := find(snap, "bond0"); len(bond.Parents) != 1 || bond.Parents[0] != testutil.IfaceEth2 {
		t.Errorf("bond0 parents = %v, want [%d]", bond.Parents, testutil.IfaceEth2)
	}
}

func TestApplyLinkChanges(t *testing.T) {
	snap := testutil.NodeSnapshot()
	err := apply(t, snap,
		Change{Op: OpUnlinkSubnet, InterfaceID: testutil.IfaceEth0, LinkID: 2},
		Change{Op: OpLinkSubnet, InterfaceID: testutil.IfaceEth0, Fields: map[string]string{
			FieldMode: "static", FieldSubnet: "4", FieldIPAddress: "2001:db8::10",
		}},
	)
	if err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}
	eth0 := find(snap, "eth0")
	if len(eth0.Links) != 2 {
		t.Fatalf("eth0 links = %+v", eth0.Links)
	}
	if l := eth0.Links[1]; l.ID != 5 || l.IPAddress != "2001:db8::10" {
		t.Errorf("new link = %+v, want id 5 with 2001:db8::10", l)
	}

	err = apply(t, snap, Change{Op: OpUnlinkSubnet, InterfaceID: testutil.IfaceEth0, LinkID: 42})
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("unlink of a missing link: error = %v, want ErrNotFound", err)
	}
}

func TestApplyUpdateBondParams(t *testing.T) {
	snap := testutil.NodeSnapshot()
	err := apply(t, snap, Change{Op: OpUpdateInterface, InterfaceID: testutil.IfaceBond0, Fields: map[string]string{
		source.FieldBondMode: "active-backup",
		FieldParents:         "2",
		FieldTags:            "uplink, lacp",
	}})
	if err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}
	bond := find(snap, "bond0")
	if bond.BondParams.Mode != model.BondModeActiveBackup || bond.BondParams.MIIMon != 100 {
		t.Errorf("bond params = %+v", *bond.BondParams)
	}
	if len(bond.Parents) != 1 || len(bond.Tags) != 2 {
		t.Errorf("bond0 parents/tags = %v/%v", bond.Parents, bond.Tags)
	}
	if eth2 := find(snap, "eth2"); len(eth2.Children) != 0 {
		t.Errorf("eth2 children = %v, want none", eth2.Children)
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(testutil.NodeSnapshot())

	cs := NewChangeSet("abc123", "add-vlan")
	cs.Add(OpCreateVLAN, 0, 0, map[string]string{FieldParent: "6", FieldName: "eth3.20", FieldVLAN: "5003"})
	if err := mem.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	snap, err := mem.Snapshot(ctx, "abc123")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	vlan := find(snap, "eth3.20")
	if vlan == nil || vlan.Type != model.TypeVLAN || vlan.MACAddress != "52:54:00:00:00:06" {
		t.Fatalf("eth3.20 = %+v", vlan)
	}
	snap.Interfaces = nil
	again, _ := mem.Snapshot(ctx, "")
	if len(again.Interfaces) == 0 {
		t.Error("Snapshot() must return a copy")
	}
	if len(mem.Applied()) != 1 {
		t.Errorf("len(Applied()) = %d, want 1", len(mem.Applied()))
	}

	if _, err := mem.Snapshot(ctx, "other"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Snapshot(other) error = %v, want ErrNotFound", err)
	}
	if err := mem.Apply(ctx, NewChangeSet("other", "x")); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Apply(other) error = %v, want ErrNotFound", err)
	}
}

func TestChangeSetString(t *testing.T) {
	cs := NewChangeSet("abc123", "delete")
	if cs.String() != "No changes" {
		t.Errorf("empty String() = %q", cs.String())
	}
	cs.Add(OpUnlinkSubnet, 1, 2, nil)
	cs.Add(OpUpdateInterface, 4, 0, map[string]string{FieldName: "bond9", FieldTags: "a"})
	out := cs.Preview()
	for _, want := range []string{
		"Node: abc123",
		"[unlink-subnet] interface 1 link 2",
		"[update-interface] interface 4 → {name=bond9 tags=a}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Preview() missing %q:\n%s", want, out)
		}
	}
}

func TestRedisClient(t *testing.T) {
	client := testutil.RedisClient(t)
	ctx := testutil.Context(t)
	db := source.NewRedisDBFromClient(client)

	if err := db.WriteSnapshot(ctx, testutil.NodeSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	rc := NewRedisClient(db)
	cs := NewChangeSet("abc123", "create-bond")
	cs.Add(OpCreateBond, 0, 0, map[string]string{FieldName: "bond1", FieldParents: "6"})
	cs.Add(OpDeleteInterface, testutil.IfaceEth0VLAN, 0, nil)
	if err := rc.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	snap, err := db.Snapshot(ctx, "abc123")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if bond := find(snap, "bond1"); bond == nil || bond.ID != 7 || bond.Parents[0] != testutil.IfaceEth3 {
		t.Errorf("bond1 = %+v", bond)
	}
	if find(snap, "eth0.10") != nil {
		t.Error("eth0.10 still stored")
	}
	if n, _ := client.Exists(ctx, source.Key(source.TableLink, testutil.IfaceEth0VLAN, 4)).Result(); n != 0 {
		t.Error("link of the deleted interface still stored")
	}

	dup := NewChangeSet("abc123", "create-physical")
	dup.Add(OpCreatePhysical, 0, 0, map[string]string{FieldName: "eth9", FieldMACAddress: "52:54:00:00:00:02"})
	if err := rc.Apply(ctx, dup); !errors.Is(err, util.ErrMutationRejected) {
		t.Errorf("duplicate MAC error = %v, want ErrMutationRejected", err)
	}
}
