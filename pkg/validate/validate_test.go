package validate

import (
	"errors"
	"testing"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

type names map[string]int

func (n names) NameInUse(name string, exceptID int) bool {
	id, ok := n[name]
	return ok && id != exceptID
}

var subnet122 = &model.Subnet{ID: 1, CIDR: "192.168.122.0/24"}

func TestMACValid(t *testing.T) {
	tests := []struct {
		mac      string
		required bool
		want     bool
	}{
		{"52:54:00:12:34:56", true, true},
		{"AA:BB:CC:DD:EE:FF", true, true},
		{"", false, true},
		{"", true, false},
		{"52:54:00:12:34", false, false},
		{"52-54-00-12-34-56", false, false},
		{"52:54:00:12:34:5g", false, false},
		{"52:54:00:12:34:567", false, false},
		{"5254.0012.3456", false, false},
	}
	for _, tt := range tests {
		if got := macValid(tt.mac, tt.required); got != tt.want {
			t.Errorf("macValid(%q, %v) = %v, want %v", tt.mac, tt.required, got, tt.want)
		}
	}
}

func TestIPValid(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"", true},
		{"192.168.1.1", true},
		{"2001:db8::1", true},
		{"192.168.1.256", false},
		{"10.0.0.0/8", false},
		{"host", false},
	}
	for _, tt := range tests {
		if got := ipValid(tt.ip); got != tt.want {
			t.Errorf("ipValid(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestAddressInSubnet(t *testing.T) {
	if !addressInSubnet("192.168.122.10", subnet122) {
		t.Error("192.168.122.10 should be inside 192.168.122.0/24")
	}
	if addressInSubnet("192.168.123.10", subnet122) {
		t.Error("192.168.123.10 should not be inside 192.168.122.0/24")
	}
	if addressInSubnet("2001:db8::1", subnet122) {
		t.Error("an IPv6 address is never inside an IPv4 subnet")
	}
	if addressInSubnet("192.168.122.10", nil) {
		t.Error("no subnet means no membership")
	}
}

func TestStaticAddressValid(t *testing.T) {
	tests := []struct {
		name   string
		mode   model.LinkMode
		subnet *model.Subnet
		ip     string
		want   bool
	}{
		{"static inside", model.LinkModeStatic, subnet122, "192.168.122.10", true},
		{"static outside", model.LinkModeStatic, subnet122, "192.168.123.10", false},
		{"static empty", model.LinkModeStatic, subnet122, "", true},
		{"static no subnet", model.LinkModeStatic, nil, "10.1.1.1", true},
		{"auto ignores subnet", model.LinkModeAuto, subnet122, "10.1.1.1", true},
		{"bad syntax", model.LinkModeDHCP, nil, "not-an-ip", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := staticAddressValid(tt.mode, tt.subnet, tt.ip); got != tt.want {
				t.Errorf("staticAddressValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNameValid(t *testing.T) {
	n := names{"eth0": 1, "bond0": 4}
	if nameValid("eth0", NewInterfaceID, n) {
		t.Error("eth0 is taken")
	}
	if !nameValid("eth0", 1, n) {
		t.Error("an interface may keep its own name")
	}
	if !nameValid("bond1", NewInterfaceID, n) {
		t.Error("bond1 is free")
	}
	if nameValid("", NewInterfaceID, n) {
		t.Error("empty name is invalid")
	}
}

func TestCompositeGuards(t *testing.T) {
	n := names{"bond0": 4, "br0": 7}
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"bond ok", CannotAddBond("bond1", "", n), false},
		{"bond taken name", CannotAddBond("bond0", "", n), true},
		{"bond bad mac", CannotAddBond("bond1", "zz", n), true},
		{"bridge ok", CannotAddBridge("br1", "52:54:00:00:00:01", n), false},
		{"bridge taken", CannotAddBridge("br0", "52:54:00:00:00:01", n), true},
		{"physical needs mac", CannotAddPhysical("eth9", "", n), true},
		{"physical ok", CannotAddPhysical("eth9", "52:54:00:00:00:09", n), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	n := names{"eth0": 1}

	ok := Fields{
		ID: NewInterfaceID, Name: "eth1", MACAddress: "52:54:00:00:00:02", MACRequired: true,
		Mode: model.LinkModeStatic, IPAddress: "192.168.122.20", Subnet: subnet122, Names: n,
	}
	if err := Check(ok); err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}

	bad := Fields{
		ID: NewInterfaceID, Name: "eth0", MACRequired: true,
		Mode: model.LinkModeStatic, IPAddress: "192.168.123.20", Subnet: subnet122, Names: n,
	}
	err := Check(bad)
	if !errors.Is(err, util.ErrValidationFailed) {
		t.Fatalf("Check() error = %v, want ErrValidationFailed", err)
	}
	var ve *util.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Check() error type = %T", err)
	}
	fields := ve.Fields()
	for _, f := range []string{"name", "mac_address", "ip_address"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing error for %s in %v", f, fields)
		}
	}
	if fields["ip_address"] != "must be inside subnet 192.168.122.0/24" {
		t.Errorf("ip_address message = %q", fields["ip_address"])
	}

	syntax := Fields{Name: "x", MACAddress: "nope", IPAddress: "300.1.1.1", Mode: "bogus"}
	fields = util.FieldMessages(Check(syntax))
	for _, f := range []string{"mac_address", "ip_address", "mode"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing error for %s in %v", f, fields)
		}
	}
}
