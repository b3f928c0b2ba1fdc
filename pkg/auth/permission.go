// Package auth provides permission-based access control for policy config deltas.
package auth

// Permission defines an action that can be controlled.
type Permission string

// Standard permissions, one family per config delta operation in the external interface.
const (
	PermPolicyCreate Permission = "policy.create"
	PermPolicyDelete Permission = "policy.delete"
	PermPolicyView   Permission = "policy.view"

	PermTermCreate Permission = "term.create"
	PermTermDelete Permission = "term.delete"
	PermTermUpdate Permission = "term.update"

	PermSetCreate Permission = "set.create"
	PermSetUpdate Permission = "set.update"
	PermSetDelete Permission = "set.delete"

	PermImportUpdate Permission = "import.update"
	PermExportUpdate Permission = "export.update"

	PermVarMapAdd Permission = "varmap.add"

	PermCommit Permission = "commit"

	PermAuditView Permission = "audit.view"

	PermAll Permission = "all" // Superuser - allows everything
)

// PermissionCategory groups related permissions.
type PermissionCategory struct {
	Name        string
	Description string
	Permissions []Permission
}

// StandardCategories defines standard permission categories.
var StandardCategories = []PermissionCategory{
	{
		Name:        "policy",
		Description: "Policy statement lifecycle",
		Permissions: []Permission{PermPolicyCreate, PermPolicyDelete, PermPolicyView},
	},
	{
		Name:        "term",
		Description: "Term blocks within a policy",
		Permissions: []Permission{PermTermCreate, PermTermDelete, PermTermUpdate},
	},
	{
		Name:        "set",
		Description: "Named sets referenced by policies",
		Permissions: []Permission{PermSetCreate, PermSetUpdate, PermSetDelete},
	},
	{
		Name:        "binding",
		Description: "Per-protocol import/export list assignment",
		Permissions: []Permission{PermImportUpdate, PermExportUpdate},
	},
	{
		Name:        "varmap",
		Description: "Protocol variable catalog",
		Permissions: []Permission{PermVarMapAdd},
	},
	{
		Name:        "commit",
		Description: "Compile, link and hand off to the filter manager",
		Permissions: []Permission{PermCommit},
	},
	{
		Name:        "audit",
		Description: "Audit log access",
		Permissions: []Permission{PermAuditView},
	},
}

// Context provides context for permission checks.
type Context struct {
	Protocol string
	Target   string // e.g. "bgp/export" — used for per-target permission overrides
	Resource string
}

// NewContext creates a new permission context.
func NewContext() *Context {
	return &Context{}
}

// WithProtocol sets the protocol context.
func (c *Context) WithProtocol(protocol string) *Context {
	c.Protocol = protocol
	return c
}

// WithTarget sets the target context.
func (c *Context) WithTarget(target string) *Context {
	c.Target = target
	return c
}

// WithResource sets a generic resource context (policy name, set name, ...).
func (c *Context) WithResource(resource string) *Context {
	c.Resource = resource
	return c
}

// IsReadOnly returns true if the permission is read-only.
func (p Permission) IsReadOnly() bool {
	switch p {
	case PermPolicyView, PermAuditView:
		return true
	}
	return false
}

// IsWriteOperation returns true if the permission involves modification.
func (p Permission) IsWriteOperation() bool {
	return !p.IsReadOnly()
}
