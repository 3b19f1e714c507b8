package session

import (
	"slices"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/topology"
)

// DraftKind names the concrete draft type.
type DraftKind string

const (
	DraftAlias    DraftKind = "alias"
	DraftVLAN     DraftKind = "vlan"
	DraftBond     DraftKind = "bond"
	DraftBridge   DraftKind = "bridge"
	DraftPhysical DraftKind = "physical"
	DraftEdit     DraftKind = "edit"
	DraftDelete   DraftKind = "delete"
)

// Draft is an uncommitted creation or edit. The set of drafts is closed:
// ChildDraft, BondDraft, BridgeDraft, PhysicalDraft, EditDraft and
// DeleteDraft.
type Draft interface {
	Kind() DraftKind
	clone() Draft
}

// Link settings shared by every draft that creates or edits an address.
type LinkSettings struct {
	VLAN      *int           `json:"vlan"`
	Subnet    *int           `json:"subnet"`
	Mode      model.LinkMode `json:"mode"`
	IPAddress string         `json:"ip_address"`
}

func (l LinkSettings) clone() LinkSettings {
	c := l
	if l.VLAN != nil {
		c.VLAN = model.IntPtr(*l.VLAN)
	}
	if l.Subnet != nil {
		c.Subnet = model.IntPtr(*l.Subnet)
	}
	return c
}

// ChildDraft adds an alias (a further link) or a VLAN interface on top of
// the parent row's interface.
type ChildDraft struct {
	Type      model.InterfaceType `json:"type"`
	Parent    topology.RowKey     `json:"parent"`
	ParentRow *topology.Row       `json:"-"`
	Tags      []string            `json:"tags"`
	LinkSettings
}

func (d *ChildDraft) Kind() DraftKind {
	if d.Type == model.TypeVLAN {
		return DraftVLAN
	}
	return DraftAlias
}

func (d *ChildDraft) clone() Draft {
	c := *d
	c.Tags = slices.Clone(d.Tags)
	c.LinkSettings = d.LinkSettings.clone()
	return &c
}

// BondDraft creates a bond from the selected rows. Parents are in
// selection order; Primary is one of them.
type BondDraft struct {
	Name       string            `json:"name"`
	MACAddress string            `json:"mac_address"`
	Tags       []string          `json:"tags"`
	Primary    topology.RowKey   `json:"primary"`
	Parents    []topology.RowKey `json:"parents"`
	ParentRows []*topology.Row   `json:"-"`
	Params     model.BondParams  `json:"params"`
	LinkSettings
}

func (d *BondDraft) Kind() DraftKind { return DraftBond }

func (d *BondDraft) clone() Draft {
	c := *d
	c.Tags = slices.Clone(d.Tags)
	c.Parents = slices.Clone(d.Parents)
	c.ParentRows = slices.Clone(d.ParentRows)
	c.LinkSettings = d.LinkSettings.clone()
	return &c
}

// BridgeDraft creates a bridge over one row.
type BridgeDraft struct {
	Name       string             `json:"name"`
	MACAddress string             `json:"mac_address"`
	Tags       []string           `json:"tags"`
	Parent     topology.RowKey    `json:"parent"`
	ParentRow  *topology.Row      `json:"-"`
	Params     model.BridgeParams `json:"params"`
	LinkSettings
}

func (d *BridgeDraft) Kind() DraftKind { return DraftBridge }

func (d *BridgeDraft) clone() Draft {
	c := *d
	c.Tags = slices.Clone(d.Tags)
	c.LinkSettings = d.LinkSettings.clone()
	return &c
}

// PhysicalDraft creates a physical interface.
type PhysicalDraft struct {
	Name       string   `json:"name"`
	MACAddress string   `json:"mac_address"`
	Tags       []string `json:"tags"`
	Fabric     *int     `json:"fabric"`
	LinkSettings
}

func (d *PhysicalDraft) Kind() DraftKind { return DraftPhysical }

func (d *PhysicalDraft) clone() Draft {
	c := *d
	c.Tags = slices.Clone(d.Tags)
	if d.Fabric != nil {
		c.Fabric = model.IntPtr(*d.Fabric)
	}
	c.LinkSettings = d.LinkSettings.clone()
	return &c
}

// EditDraft edits an existing row. Members is only used for bond and
// bridge targets and lists member interface ids in parent order.
type EditDraft struct {
	Target       topology.RowKey     `json:"target"`
	TargetRow    *topology.Row       `json:"-"`
	Name         string              `json:"name"`
	MACAddress   string              `json:"mac_address"`
	Tags         []string            `json:"tags"`
	Members      []int               `json:"members,omitempty"`
	BondParams   *model.BondParams   `json:"bond_params,omitempty"`
	BridgeParams *model.BridgeParams `json:"bridge_params,omitempty"`
	LinkSettings
}

func (d *EditDraft) Kind() DraftKind { return DraftEdit }

func (d *EditDraft) clone() Draft {
	c := *d
	c.Tags = slices.Clone(d.Tags)
	c.Members = slices.Clone(d.Members)
	if d.BondParams != nil {
		p := *d.BondParams
		c.BondParams = &p
	}
	if d.BridgeParams != nil {
		p := *d.BridgeParams
		c.BridgeParams = &p
	}
	c.LinkSettings = d.LinkSettings.clone()
	return &c
}

// DeleteDraft is a pending delete confirmation.
type DeleteDraft struct {
	Targets []topology.RowKey `json:"targets"`
}

func (d *DeleteDraft) Kind() DraftKind { return DraftDelete }

func (d *DeleteDraft) clone() Draft {
	return &DeleteDraft{Targets: slices.Clone(d.Targets)}
}

// linkSettingsOf returns a pointer to the draft's link settings, or nil
// for drafts without any.
func linkSettingsOf(d Draft) *LinkSettings {
	switch d := d.(type) {
	case *ChildDraft:
		return &d.LinkSettings
	case *BondDraft:
		return &d.LinkSettings
	case *BridgeDraft:
		return &d.LinkSettings
	case *PhysicalDraft:
		return &d.LinkSettings
	case *EditDraft:
		return &d.LinkSettings
	}
	return nil
}
