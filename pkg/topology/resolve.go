package topology

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/newtron-network/netedit/pkg/model"
)

// ResolveVLAN returns the VLAN with the given id, or nil when id is nil or
// no VLAN matches.
func ResolveVLAN(id *int, vlans []model.VLAN) *model.VLAN {
	if id == nil {
		return nil
	}
	for n := range vlans {
		if vlans[n].ID == *id {
			return &vlans[n]
		}
	}
	return nil
}

// ResolveFabric returns the fabric that owns vlan, or nil.
func ResolveFabric(vlan *model.VLAN, fabrics []model.Fabric) *model.Fabric {
	if vlan == nil {
		return nil
	}
	for n := range fabrics {
		if fabrics[n].ID == vlan.FabricID {
			return &fabrics[n]
		}
	}
	return nil
}

// ResolveSubnet returns the subnet with the given id, or nil.
func ResolveSubnet(id *int, subnets []model.Subnet) *model.Subnet {
	if id == nil {
		return nil
	}
	for n := range subnets {
		if subnets[n].ID == *id {
			return &subnets[n]
		}
	}
	return nil
}

// Catalog indexes the auxiliary collections of one snapshot by id. It is
// rebuilt on every recompute and never outlives its snapshot.
type Catalog struct {
	vlans   map[int]*model.VLAN
	fabrics map[int]*model.Fabric
	subnets map[int]*model.Subnet

	vlanList   []*model.VLAN
	fabricList []*model.Fabric
	subnetList []*model.Subnet
}

// NewCatalog indexes the VLANs, fabrics and subnets of snap.
func NewCatalog(snap *model.Snapshot) *Catalog {
	c := &Catalog{
		vlans:   make(map[int]*model.VLAN, len(snap.VLANs)),
		fabrics: make(map[int]*model.Fabric, len(snap.Fabrics)),
		subnets: make(map[int]*model.Subnet, len(snap.Subnets)),
	}
	for n := range snap.VLANs {
		v := &snap.VLANs[n]
		c.vlans[v.ID] = v
		c.vlanList = append(c.vlanList, v)
	}
	for n := range snap.Fabrics {
		f := &snap.Fabrics[n]
		c.fabrics[f.ID] = f
		c.fabricList = append(c.fabricList, f)
	}
	for n := range snap.Subnets {
		s := &snap.Subnets[n]
		c.subnets[s.ID] = s
		c.subnetList = append(c.subnetList, s)
	}
	// Delivery order of the collections must not leak into results.
	slices.SortStableFunc(c.vlanList, func(a, b *model.VLAN) int {
		return cmp.Or(cmp.Compare(a.VID, b.VID), cmp.Compare(a.ID, b.ID))
	})
	slices.SortStableFunc(c.fabricList, func(a, b *model.Fabric) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	slices.SortStableFunc(c.subnetList, func(a, b *model.Subnet) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return c
}

// VLAN resolves an optional VLAN id.
func (c *Catalog) VLAN(id *int) *model.VLAN {
	if id == nil {
		return nil
	}
	return c.vlans[*id]
}

// VLANByID resolves a VLAN id.
func (c *Catalog) VLANByID(id int) *model.VLAN {
	return c.vlans[id]
}

// Fabric resolves the fabric that owns vlan.
func (c *Catalog) Fabric(vlan *model.VLAN) *model.Fabric {
	if vlan == nil {
		return nil
	}
	return c.fabrics[vlan.FabricID]
}

// FabricByID resolves a fabric id.
func (c *Catalog) FabricByID(id int) *model.Fabric {
	return c.fabrics[id]
}

// Subnet resolves an optional subnet id.
func (c *Catalog) Subnet(id *int) *model.Subnet {
	if id == nil {
		return nil
	}
	return c.subnets[*id]
}

// SubnetByID resolves a subnet id.
func (c *Catalog) SubnetByID(id int) *model.Subnet {
	return c.subnets[id]
}

// Fabrics returns all fabrics ordered by name.
func (c *Catalog) Fabrics() []*model.Fabric {
	return c.fabricList
}

// VLANsOnFabric returns the VLANs of a fabric ordered by VID.
func (c *Catalog) VLANsOnFabric(fabricID int) []*model.VLAN {
	return lo.Filter(c.vlanList, func(v *model.VLAN, _ int) bool {
		return v.FabricID == fabricID
	})
}

// SubnetsOnVLAN returns every subnet on a VLAN ordered by id, whether or not
// any interface uses it.
func (c *Catalog) SubnetsOnVLAN(vlanID int) []*model.Subnet {
	return lo.Filter(c.subnetList, func(s *model.Subnet, _ int) bool {
		return s.VLANID == vlanID
	})
}
