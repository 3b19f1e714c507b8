// Package auth decides who may edit a node's interfaces. It supplies the
// edit capability signal the session engine consumes.
package auth

// Permission names an action a policy grants to groups.
type Permission string

const (
	PermInterfaceView   Permission = "interface.view"
	PermInterfaceEdit   Permission = "interface.edit"
	PermInterfaceDelete Permission = "interface.delete"

	PermBondCreate   Permission = "bond.create"
	PermBridgeCreate Permission = "bridge.create"
	PermVLANCreate   Permission = "vlan.create"

	PermAuditView Permission = "audit.view"

	PermAll Permission = "all" // superuser
)

// Permissions lists every grantable permission with what it allows, in
// the order `netedit whoami` prints them.
var Permissions = []struct {
	Permission  Permission
	Description string
}{
	{PermInterfaceView, "list rows and the VLAN table"},
	{PermInterfaceEdit, "add aliases and VLANs, edit interfaces, commit"},
	{PermInterfaceDelete, "delete interfaces and aliases"},
	{PermBondCreate, "create bonds"},
	{PermBridgeCreate, "create bridges"},
	{PermVLANCreate, "create VLAN interfaces"},
	{PermAuditView, "read the audit log"},
}

// IsReadOnly reports whether p never leads to a mutation.
func (p Permission) IsReadOnly() bool {
	return p == PermInterfaceView || p == PermAuditView
}

// Context narrows a check to a node and, optionally, one row on it.
type Context struct {
	Node string
	Row  string
}

func NewContext() *Context {
	return &Context{}
}

func (c *Context) WithNode(node string) *Context {
	c.Node = node
	return c
}

// WithRow records the row key ("id/link") the request targets. It only
// shows up in denial messages; policies are per node.
func (c *Context) WithRow(key string) *Context {
	c.Row = key
	return c
}
