package topology

import (
	"cmp"
	"slices"

	"github.com/newtron-network/netedit/pkg/model"
)

// VLANTableEntry summarises one VLAN used on a controller: its fabric and
// every subnet available on it.
type VLANTableEntry struct {
	Fabric  *model.Fabric   `json:"fabric"`
	VLAN    *model.VLAN     `json:"vlan"`
	Subnets []*model.Subnet `json:"subnets"`
	SortKey string          `json:"sort_key"`
}

// BuildVLANTable derives the VLAN table from flattened rows. Entries are
// unique by VLAN id and ordered by "<fabric name>|<vlan text>".
func BuildVLANTable(rows []*Row, catalog *Catalog) []VLANTableEntry {
	seen := make(map[int]int)
	var table []VLANTableEntry
	for _, row := range rows {
		if row.VLAN == nil {
			continue
		}
		n, ok := seen[row.VLAN.ID]
		if !ok {
			n = len(table)
			seen[row.VLAN.ID] = n
			table = append(table, VLANTableEntry{
				Fabric:  row.Fabric,
				VLAN:    row.VLAN,
				Subnets: []*model.Subnet{},
			})
		}
		entry := &table[n]
		entry.Subnets = catalog.SubnetsOnVLAN(entry.VLAN.ID)
		entry.SortKey = sortKey(entry.Fabric, entry.VLAN)
	}
	slices.SortStableFunc(table, func(a, b VLANTableEntry) int {
		return cmp.Compare(a.SortKey, b.SortKey)
	})
	return table
}

func sortKey(fabric *model.Fabric, vlan *model.VLAN) string {
	name := ""
	if fabric != nil {
		name = fabric.Name
	}
	return name + "|" + vlan.Text()
}
