package auth

import (
	"fmt"
	"os"
	"os/user"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netedit/pkg/util"
)

// Policy is the YAML permission file. Permissions maps a permission name
// (or "all") to the users and groups holding it; Nodes narrows or widens
// that per node.
type Policy struct {
	SuperUsers  []string              `yaml:"super_users"`
	UserGroups  map[string][]string   `yaml:"user_groups"`
	Permissions map[string][]string   `yaml:"permissions"`
	Nodes       map[string]NodePolicy `yaml:"nodes,omitempty"`
}

// NodePolicy grants permissions on a single node.
type NodePolicy struct {
	Permissions map[string][]string `yaml:"permissions"`
}

// LoadPolicy reads a policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy %s: %w", path, err)
	}
	return &p, nil
}

// OpenPolicy allows everything to everyone. It is used when no policy file
// is configured.
func OpenPolicy() *Policy {
	return &Policy{Permissions: map[string][]string{string(PermAll): {"*"}}}
}

// Checker validates user permissions
type Checker struct {
	policy      *Policy
	currentUser string
}

// NewChecker creates a permission checker
func NewChecker(policy *Policy) *Checker {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	return &Checker{
		policy:      policy,
		currentUser: username,
	}
}

// SetUser overrides the current user (for testing or sudo)
func (c *Checker) SetUser(username string) {
	c.currentUser = username
}

// CurrentUser returns the current username
func (c *Checker) CurrentUser() string {
	return c.currentUser
}

// Check verifies if the current user has a permission
func (c *Checker) Check(permission Permission, ctx *Context) error {
	return c.CheckUser(c.currentUser, permission, ctx)
}

// CheckUser verifies if a specific user has a permission
func (c *Checker) CheckUser(username string, permission Permission, ctx *Context) error {
	// Superusers can do anything
	if c.isSuperUser(username) {
		return nil
	}

	// Node-specific grants first
	if ctx != nil && ctx.Node != "" {
		if np, ok := c.policy.Nodes[ctx.Node]; ok {
			if c.checkPermissionMap(username, permission, np.Permissions) {
				return nil
			}
		}
	}

	if c.checkPermissionMap(username, permission, c.policy.Permissions) {
		return nil
	}

	return &PermissionError{
		User:       username,
		Permission: permission,
		Context:    ctx,
	}
}

// CanEdit is the edit capability for node: the current user may edit
// interfaces there.
func (c *Checker) CanEdit(node string) bool {
	return c.Check(PermInterfaceEdit, NewContext().WithNode(node)) == nil
}

// IsSuperUser returns true if the current user is a superuser
func (c *Checker) IsSuperUser() bool {
	return c.isSuperUser(c.currentUser)
}

func (c *Checker) isSuperUser(username string) bool {
	return slices.Contains(c.policy.SuperUsers, username)
}

// checkPermissionMap checks whether username has the given permission in permMap.
// It first checks the "all" wildcard key, then the specific permission key.
func (c *Checker) checkPermissionMap(username string, permission Permission, permMap map[string][]string) bool {
	if groups, ok := permMap[string(PermAll)]; ok {
		if c.userInGroups(username, groups) {
			return true
		}
	}

	groups, ok := permMap[string(permission)]
	if !ok {
		return false
	}
	return c.userInGroups(username, groups)
}

func (c *Checker) userInGroups(username string, allowedGroups []string) bool {
	for _, group := range allowedGroups {
		// "*" is everyone; otherwise a direct username match or group membership
		if group == "*" || group == username {
			return true
		}
		if slices.Contains(c.policy.UserGroups[group], username) {
			return true
		}
	}
	return false
}

// ListPermissions returns all permissions the current user has
func (c *Checker) ListPermissions() []Permission {
	return c.ListPermissionsForUser(c.currentUser)
}

// ListPermissionsForUser returns the global permissions a user has,
// sorted.
func (c *Checker) ListPermissionsForUser(username string) []Permission {
	if c.isSuperUser(username) {
		return []Permission{PermAll}
	}

	var perms []Permission
	for permStr, groups := range c.policy.Permissions {
		if c.userInGroups(username, groups) {
			perms = append(perms, Permission(permStr))
		}
	}
	slices.Sort(perms)
	return perms
}

// GetUserGroups returns the groups a user belongs to, sorted.
func (c *Checker) GetUserGroups(username string) []string {
	var groups []string
	for groupName, members := range c.policy.UserGroups {
		if slices.Contains(members, username) {
			groups = append(groups, groupName)
		}
	}
	slices.Sort(groups)
	return groups
}

// PermissionError represents a permission denial
type PermissionError struct {
	User       string
	Permission Permission
	Context    *Context
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied: user '%s' does not have '%s' permission", e.User, e.Permission)
	if e.Context != nil && e.Context.Row != "" {
		msg += fmt.Sprintf(" for row %s", e.Context.Row)
	}
	if e.Context != nil && e.Context.Node != "" {
		msg += fmt.Sprintf(" on node '%s'", e.Context.Node)
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return util.ErrPermissionDenied
}
