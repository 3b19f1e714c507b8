package topology

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/netedit/pkg/model"
)

// NoLink is the link id of the row produced for an interface without links.
const NoLink = -1

// RowKey is the unique "<interface id>/<link id>" address of a Row. It is
// the only way selection and drafts refer to rows.
type RowKey string

// Key builds the RowKey for an interface/link pair.
func Key(id, linkID int) RowKey {
	return RowKey(fmt.Sprintf("%d/%d", id, linkID))
}

// ParseKey splits a RowKey into its interface and link ids.
func ParseKey(key string) (id, linkID int, err error) {
	a, b, ok := strings.Cut(key, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid row key %q", key)
	}
	if id, err = strconv.Atoi(a); err != nil {
		return 0, 0, fmt.Errorf("invalid row key %q: %w", key, err)
	}
	if linkID, err = strconv.Atoi(b); err != nil {
		return 0, 0, fmt.Errorf("invalid row key %q: %w", key, err)
	}
	return id, linkID, nil
}

// Row is one flattened, display-ready unit: an interface without links, or
// one link of an interface.
type Row struct {
	ID        int                 `json:"id"`
	LinkID    int                 `json:"link_id"`
	Name      string              `json:"name"`
	Type      model.InterfaceType `json:"type"`
	Members   []*Row              `json:"members,omitempty"`
	VLAN      *model.VLAN         `json:"vlan"`
	Fabric    *model.Fabric       `json:"fabric,omitempty"`
	Subnet    *model.Subnet       `json:"subnet"`
	Mode      model.LinkMode      `json:"mode"`
	IPAddress string              `json:"ip_address"`

	MACAddress   string              `json:"mac_address"`
	Tags         []string            `json:"tags,omitempty"`
	IsBoot       bool                `json:"is_boot"`
	NUMANode     int                 `json:"numa_node"`
	ParentNames  []string            `json:"parent_names,omitempty"`
	BondParams   *model.BondParams   `json:"bond_params,omitempty"`
	BridgeParams *model.BridgeParams `json:"bridge_params,omitempty"`
}

// Key returns the row's unique key.
func (r *Row) Key() RowKey {
	return Key(r.ID, r.LinkID)
}

// VLANID returns the id of the row's VLAN, or nil when disconnected.
func (r *Row) VLANID() *int {
	if r.VLAN == nil {
		return nil
	}
	return model.IntPtr(r.VLAN.ID)
}

// SubnetID returns the id of the row's subnet, or nil.
func (r *Row) SubnetID() *int {
	if r.Subnet == nil {
		return nil
	}
	return model.IntPtr(r.Subnet.ID)
}

// SameVLAN reports whether two rows resolve to the same VLAN; two
// disconnected rows share the nil VLAN.
func SameVLAN(a, b *Row) bool {
	if a.VLAN == nil || b.VLAN == nil {
		return a.VLAN == nil && b.VLAN == nil
	}
	return a.VLAN.ID == b.VLAN.ID
}
