// Package mutation describes the network changes a committed draft asks
// for and the clients that carry them out.
package mutation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/newtron-network/netedit/pkg/source"
)

// Operation is one kind of mutation call.
type Operation string

const (
	OpCreatePhysical  Operation = "create-physical-interface"
	OpCreateBond      Operation = "create-bond-interface"
	OpCreateBridge    Operation = "create-bridge-interface"
	OpCreateVLAN      Operation = "create-vlan-interface"
	OpCreateAlias     Operation = "create-alias"
	OpUpdateInterface Operation = "update-interface"
	OpLinkSubnet      Operation = "link-subnet"
	OpUnlinkSubnet    Operation = "unlink-subnet"
	OpDeleteInterface Operation = "delete-interface"
)

// Field names carried in Change.Fields. They match the stored hash fields;
// ids and id lists are decimal, lists are comma separated, and an empty
// subnet or vlan means none.
const (
	FieldName       = source.FieldName
	FieldMACAddress = source.FieldMACAddress
	FieldTags       = source.FieldTags
	FieldParents    = source.FieldParents
	FieldParent     = "parent"
	FieldVLAN       = source.FieldVLAN
	FieldSubnet     = source.FieldSubnet
	FieldMode       = source.FieldMode
	FieldIPAddress  = source.FieldIPAddress
)

// Change is a single mutation call. InterfaceID is the target of updates,
// link changes and deletes, and the parent of a new alias; LinkID is only
// set for unlink-subnet.
type Change struct {
	Op          Operation         `json:"op"`
	InterfaceID int               `json:"interface_id,omitempty"`
	LinkID      int               `json:"link_id,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// ChangeSet is the ordered list of calls produced by one commit.
type ChangeSet struct {
	Node      string    `json:"node"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
	Changes   []Change  `json:"changes"`
}

// NewChangeSet creates a new ChangeSet.
func NewChangeSet(node, operation string) *ChangeSet {
	return &ChangeSet{
		Node:      node,
		Operation: operation,
		Timestamp: time.Now(),
		Changes:   make([]Change, 0),
	}
}

// Add adds a change to the set.
func (cs *ChangeSet) Add(op Operation, interfaceID, linkID int, fields map[string]string) {
	cs.Changes = append(cs.Changes, Change{
		Op:          op,
		InterfaceID: interfaceID,
		LinkID:      linkID,
		Fields:      fields,
	})
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Changes) == 0
}

// String returns a human-readable representation of the changes.
func (cs *ChangeSet) String() string {
	if cs.IsEmpty() {
		return "No changes"
	}

	var sb strings.Builder
	for _, c := range cs.Changes {
		sb.WriteString(fmt.Sprintf("  [%s]", c.Op))
		switch c.Op {
		case OpUnlinkSubnet:
			sb.WriteString(fmt.Sprintf(" interface %d link %d", c.InterfaceID, c.LinkID))
		case OpUpdateInterface, OpLinkSubnet, OpDeleteInterface, OpCreateAlias:
			sb.WriteString(fmt.Sprintf(" interface %d", c.InterfaceID))
		}
		if len(c.Fields) > 0 {
			sb.WriteString(" → " + formatFields(c.Fields))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Preview returns a formatted preview of the changes.
func (cs *ChangeSet) Preview() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Operation: %s\n", cs.Operation))
	sb.WriteString(fmt.Sprintf("Node: %s\n", cs.Node))
	sb.WriteString(fmt.Sprintf("Changes:\n%s", cs.String()))
	return sb.String()
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + fields[k]
	}
	return "{" + strings.Join(parts, " ") + "}"
}
