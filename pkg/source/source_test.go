package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/newtron-network/netedit/internal/testutil"
	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

func TestKey(t *testing.T) {
	if got := Key(TableLink, 4, 12); got != "LINK|4|12" {
		t.Errorf("Key() = %q, want LINK|4|12", got)
	}
	if got := Key(TableNextID, "interface"); got != "NEXT_ID|interface" {
		t.Errorf("Key() = %q", got)
	}
}

func TestInterfaceCodec(t *testing.T) {
	bond := testutil.NodeSnapshot().Interfaces[3]
	bond.Children = nil
	bond.Links = nil
	bond.Tags = []string{"uplink", "lacp"}

	vals := EncodeInterface("abc123", &bond)
	if vals[FieldNode] != "abc123" || vals[FieldParents] != "2,3" || vals[FieldBondMIIMon] != "100" {
		t.Errorf("EncodeInterface() = %v", vals)
	}
	got, err := DecodeInterface(bond.ID, vals)
	if err != nil {
		t.Fatalf("DecodeInterface() error = %v", err)
	}
	if !reflect.DeepEqual(got, bond) {
		t.Errorf("DecodeInterface() = %+v\nwant %+v", got, bond)
	}

	if _, err := DecodeInterface(1, map[string]string{FieldType: "tunnel"}); err == nil {
		t.Error("DecodeInterface() should reject an unknown type")
	}
}

func TestLinkCodec(t *testing.T) {
	link := model.Link{ID: 3, SubnetID: model.IntPtr(1), Mode: model.LinkModeStatic, IPAddress: "192.168.122.5"}
	got, err := DecodeLink(3, EncodeLink(&link))
	if err != nil || !reflect.DeepEqual(got, link) {
		t.Errorf("DecodeLink() = %+v, %v", got, err)
	}

	unlinked := model.Link{ID: 4, Mode: model.LinkModeLinkUp}
	vals := EncodeLink(&unlinked)
	if vals[FieldSubnet] != "" {
		t.Errorf("subnet field = %q, want empty", vals[FieldSubnet])
	}
	if got, _ := DecodeLink(4, vals); got.SubnetID != nil {
		t.Errorf("decoded subnet = %v, want nil", *got.SubnetID)
	}
}

func TestDecodeParamsDefaults(t *testing.T) {
	bp := DecodeBondParams(map[string]string{FieldBondMode: "802.3ad"})
	want := model.DefaultBondParams()
	want.Mode = model.BondMode8023AD
	if *bp != want {
		t.Errorf("DecodeBondParams() = %+v, want %+v", *bp, want)
	}
	br := DecodeBridgeParams(map[string]string{FieldBridgeSTP: "true"})
	if br.Type != model.BridgeTypeStandard || !br.STP || br.FD != model.DefaultBridgeFD {
		t.Errorf("DecodeBridgeParams() = %+v", *br)
	}
}

const fixtureYAML = `node:
  system_id: fx01
  hostname: fixture
interfaces:
  - id: 2
    name: bond0
    type: bond
    parents: [1]
    mac_address: "52:54:00:aa:bb:01"
  - id: 1
    name: eth0
    type: physical
    mac_address: "52:54:00:aa:bb:01"
    vlan_id: 10
    links:
      - id: 1
        subnet_id: 3
        mode: static
        ip_address: 10.0.0.4
vlans:
  - {id: 10, vid: 0, fabric: 1}
fabrics:
  - {id: 1, name: fabric-1, default_vlan_id: 10}
subnets:
  - {id: 3, cidr: 10.0.0.0/24, vlan: 10}
`

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte(fixtureYAML), 0644); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	if snap.Node.SystemID != "fx01" || len(snap.Interfaces) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	eth0 := snap.Interfaces[0]
	if eth0.Name != "eth0" || !reflect.DeepEqual(eth0.Children, []int{2}) {
		t.Errorf("interfaces not sorted or children not derived: %+v", eth0)
	}
	if eth0.Links[0].Mode != model.LinkModeStatic || *eth0.Links[0].SubnetID != 3 {
		t.Errorf("eth0 link = %+v", eth0.Links[0])
	}

	out := filepath.Join(t.TempDir(), "out.yaml")
	if err := SaveFixture(out, snap); err != nil {
		t.Fatalf("SaveFixture() error = %v", err)
	}
	again, err := LoadFixture(out)
	if err != nil {
		t.Fatalf("LoadFixture(saved) error = %v", err)
	}
	if !reflect.DeepEqual(again, snap) {
		t.Error("saved fixture does not load back to the same snapshot")
	}
}

func TestLoadFixtureErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"bad type", "interfaces:\n  - {id: 1, name: x, type: tunnel}\n"},
		{"bad mode", "interfaces:\n  - {id: 1, name: x, type: physical, links: [{id: 1, mode: bogus}]}\n"},
		{"duplicate id", "interfaces:\n  - {id: 1, name: x, type: physical}\n  - {id: 1, name: y, type: physical}\n"},
		{"not yaml", "interfaces: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			os.WriteFile(path, []byte(tt.body), 0644)
			if _, err := LoadFixture(path); err == nil {
				t.Error("LoadFixture() should fail")
			}
		})
	}
	if _, err := LoadFixture(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFixture() of a missing file should fail")
	}
}

func TestFixtureSourceNode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	os.WriteFile(path, []byte(fixtureYAML), 0644)
	src := &FixtureSource{Path: path}

	if _, err := src.Snapshot(context.Background(), ""); err != nil {
		t.Errorf("Snapshot(\"\") error = %v", err)
	}
	if _, err := src.Snapshot(context.Background(), "other"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Snapshot(other) error = %v, want ErrNotFound", err)
	}
}

// scripted returns its snapshots in order, then repeats the last one.
type scripted struct {
	snaps []*model.Snapshot
	calls int
}

func (s *scripted) Snapshot(context.Context, string) (*model.Snapshot, error) {
	n := min(s.calls, len(s.snaps)-1)
	s.calls++
	if s.snaps[n] == nil {
		return nil, errors.New("read failed")
	}
	return s.snaps[n].Clone(), nil
}

func TestWatchDeliversChanges(t *testing.T) {
	a := testutil.NodeSnapshot()
	b := testutil.Without(a, testutil.IfaceEth3)
	src := &scripted{snaps: []*model.Snapshot{a, a, nil, b, b}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []int
	err := Watch(ctx, src, "abc123", time.Millisecond, func(s *model.Snapshot) error {
		got = append(got, len(s.Interfaces))
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() error = %v, want context.Canceled", err)
	}
	if !reflect.DeepEqual(got, []int{6, 5}) {
		t.Errorf("delivered interface counts = %v, want [6 5]", got)
	}
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		src := &scripted{snaps: []*model.Snapshot{testutil.NodeSnapshot()}}
		err := Watch(context.Background(), src, "abc123", interval, func(*model.Snapshot) error {
			t.Error("fn called")
			return nil
		})
		if err == nil {
			t.Errorf("Watch(interval %s) error = nil, want an error", interval)
		}
		if src.calls != 0 {
			t.Errorf("Watch(interval %s) read %d snapshots, want 0", interval, src.calls)
		}
	}
}

func TestRedisSnapshot(t *testing.T) {
	client := testutil.RedisClient(t)
	ctx := testutil.Context(t)
	db := NewRedisDBFromClient(client)

	want := testutil.ControllerSnapshot()
	if err := db.WriteSnapshot(ctx, want); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	got, err := db.Snapshot(ctx, want.Node.SystemID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(got.Interfaces) != len(want.Interfaces) || len(got.Subnets) != len(want.Subnets) {
		t.Fatalf("Snapshot() = %d interfaces %d subnets", len(got.Interfaces), len(got.Subnets))
	}
	if !got.Node.IsController {
		t.Error("controller flag lost")
	}
	eth0 := got.Interfaces[0]
	if len(eth0.Links) != 2 || eth0.Links[0].IPAddress != "192.168.122.10" || !eth0.IsBoot {
		t.Errorf("eth0 = %+v", eth0)
	}

	iface, link, err := db.Counters(ctx)
	if err != nil || iface != testutil.IfaceEth3 || link != 4 {
		t.Errorf("Counters() = %d, %d, %v", iface, link, err)
	}
	if _, err := db.Snapshot(ctx, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Snapshot(missing) error = %v, want ErrNotFound", err)
	}
}
