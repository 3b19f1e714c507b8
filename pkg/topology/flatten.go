// Package topology turns a node's raw interface graph into the flat row
// model the editor works on, and derives the VLAN summary table.
package topology

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/newtron-network/netedit/pkg/model"
)

// Graph is the result of one flatten pass. Everything in it is derived from
// a single snapshot and is replaced wholesale by the next pass.
type Graph struct {
	node      model.Node
	rows      []*Row
	index     map[RowKey]*Row
	original  map[int]*model.Interface
	owner     map[int]int
	catalog   *Catalog
	vlanTable []VLANTableEntry
}

// Flatten computes the row model for snap. It never fails: references to
// missing VLANs, fabrics or subnets resolve to nil.
func Flatten(snap *model.Snapshot) *Graph {
	g := &Graph{
		node:     snap.Node,
		index:    make(map[RowKey]*Row),
		original: make(map[int]*model.Interface, len(snap.Interfaces)),
		owner:    make(map[int]int),
		catalog:  NewCatalog(snap),
	}

	for n := range snap.Interfaces {
		iface := &snap.Interfaces[n]
		g.original[iface.ID] = iface
	}

	// Parents of a bond or bridge are its members and are not rendered on
	// their own. VLAN parents stay top-level. An interface claimed by two
	// composites belongs to the one with the lower id.
	for _, iface := range g.Interfaces() {
		if !iface.Type.IsComposite() {
			continue
		}
		for _, pid := range iface.Parents {
			if pid == iface.ID {
				continue
			}
			if _, claimed := g.owner[pid]; claimed {
				continue
			}
			if _, ok := g.original[pid]; ok {
				g.owner[pid] = iface.ID
			}
		}
	}

	topLevel := make([]*model.Interface, 0, len(g.original))
	for _, iface := range g.original {
		if _, member := g.owner[iface.ID]; !member {
			topLevel = append(topLevel, iface)
		}
	}
	slices.SortFunc(topLevel, func(a, b *model.Interface) int {
		return cmp.Compare(a.ID, b.ID)
	})

	for _, iface := range topLevel {
		for _, row := range g.expand(iface, map[int]bool{}) {
			g.rows = append(g.rows, row)
			g.index[row.Key()] = row
		}
	}

	if g.node.IsController {
		g.vlanTable = BuildVLANTable(g.rows, g.catalog)
	}
	return g
}

// expand produces the rows of one interface: one per link, or a single
// link_up row when it has no links. Only the first row carries members.
func (g *Graph) expand(iface *model.Interface, visiting map[int]bool) []*Row {
	vlan := g.catalog.VLAN(iface.VLANID)
	base := Row{
		ID:         iface.ID,
		LinkID:     NoLink,
		Name:       iface.Name,
		Type:       iface.Type,
		VLAN:       vlan,
		Fabric:     g.catalog.Fabric(vlan),
		Mode:       model.LinkModeLinkUp,
		MACAddress: iface.MACAddress,
		Tags:       slices.Clone(iface.Tags),
		IsBoot:     iface.IsBoot,
		NUMANode:   iface.NUMANode,

		BondParams:   iface.BondParams,
		BridgeParams: iface.BridgeParams,
	}
	if iface.Type.IsComposite() {
		base.Members = g.members(iface, visiting)
	}
	if iface.Type == model.TypeVLAN {
		for _, pid := range iface.Parents {
			if p, ok := g.original[pid]; ok {
				base.ParentNames = append(base.ParentNames, p.Name)
			}
		}
	}

	if len(iface.Links) == 0 {
		return []*Row{&base}
	}

	rows := make([]*Row, 0, len(iface.Links))
	for n, link := range iface.Links {
		row := base
		row.Tags = slices.Clone(base.Tags)
		row.LinkID = link.ID
		row.Subnet = g.catalog.Subnet(link.SubnetID)
		row.Mode = link.Mode
		row.IPAddress = link.IPAddress
		if n > 0 {
			row.Type = model.TypeAlias
			row.Name = fmt.Sprintf("%s:%d", iface.Name, n)
			row.Members = nil
		}
		rows = append(rows, &row)
	}
	return rows
}

// members resolves a composite's parents to rows, in parent order. Each
// member is represented by its first row. Parents owned by another
// composite are left out.
func (g *Graph) members(iface *model.Interface, visiting map[int]bool) []*Row {
	visiting[iface.ID] = true
	defer delete(visiting, iface.ID)

	members := make([]*Row, 0, len(iface.Parents))
	for _, pid := range iface.Parents {
		parent, ok := g.original[pid]
		if !ok || visiting[pid] {
			continue
		}
		if owner, claimed := g.owner[pid]; claimed && owner != iface.ID {
			continue
		}
		members = append(members, g.expand(parent, visiting)[0])
	}
	return members
}

// Node returns the node the graph was computed for.
func (g *Graph) Node() model.Node {
	return g.node
}

// Rows returns the top-level rows in display order.
func (g *Graph) Rows() []*Row {
	return g.rows
}

// Row looks up a top-level row by key.
func (g *Graph) Row(key RowKey) (*Row, bool) {
	r, ok := g.index[key]
	return r, ok
}

// RowsOf returns the top-level rows produced by one interface.
func (g *Graph) RowsOf(id int) []*Row {
	var rows []*Row
	for _, r := range g.rows {
		if r.ID == id {
			rows = append(rows, r)
		}
	}
	return rows
}

// Original returns the raw interface with the given id, as last delivered.
func (g *Graph) Original(id int) (*model.Interface, bool) {
	iface, ok := g.original[id]
	return iface, ok
}

// Interfaces returns every raw interface, members included, ordered by id.
func (g *Graph) Interfaces() []*model.Interface {
	out := make([]*model.Interface, 0, len(g.original))
	for _, iface := range g.original {
		out = append(out, iface)
	}
	slices.SortFunc(out, func(a, b *model.Interface) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// memberOf returns the bond or bridge that owns id as a member.
func (g *Graph) memberOf(id int) (int, bool) {
	owner, ok := g.owner[id]
	return owner, ok
}

// Catalog returns the VLAN/fabric/subnet index of the snapshot.
func (g *Graph) Catalog() *Catalog {
	return g.catalog
}

// VLANTable returns the VLAN summary; empty unless the node is a controller.
func (g *Graph) VLANTable() []VLANTableEntry {
	return g.vlanTable
}

// NameInUse reports whether any interface other than exceptID is called name.
func (g *Graph) NameInUse(name string, exceptID int) bool {
	for _, iface := range g.original {
		if iface.ID != exceptID && iface.Name == name {
			return true
		}
	}
	return false
}
