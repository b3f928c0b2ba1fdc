package auth

import (
	"fmt"
	"os/user"
	"slices"

	"github.com/newtron-network/routepolicy/pkg/util"
)

// TargetOverride holds permission overrides scoped to one per-protocol target
// (e.g. "bgp/export"), mirroring the per-target linking unit used by codegen.
type TargetOverride struct {
	Description string              `yaml:"description,omitempty"`
	Permissions map[string][]string `yaml:"permissions,omitempty"`
}

// AccessConfig is the authoritative permission source: superusers bypass every
// check, UserGroups maps group name to member usernames, Permissions maps a
// Permission string (or "all") to the groups/users allowed to exercise it, and
// Targets holds per-target overrides that are consulted before the global map.
type AccessConfig struct {
	SuperUsers  []string                   `yaml:"super_users,omitempty"`
	UserGroups  map[string][]string        `yaml:"user_groups,omitempty"`
	Permissions map[string][]string        `yaml:"permissions,omitempty"`
	Targets     map[string]*TargetOverride `yaml:"targets,omitempty"`
}

// Checker validates user permissions against an AccessConfig.
type Checker struct {
	access      *AccessConfig
	currentUser string
}

// NewChecker creates a permission checker.
func NewChecker(access *AccessConfig) *Checker {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	return &Checker{
		access:      access,
		currentUser: username,
	}
}

// SetUser overrides the current user (for testing or sudo).
func (c *Checker) SetUser(username string) {
	c.currentUser = username
}

// CurrentUser returns the current username.
func (c *Checker) CurrentUser() string {
	return c.currentUser
}

// Check verifies if the current user has a permission.
func (c *Checker) Check(permission Permission, ctx *Context) error {
	return c.CheckUser(c.currentUser, permission, ctx)
}

// CheckUser verifies if a specific user has a permission.
func (c *Checker) CheckUser(username string, permission Permission, ctx *Context) error {
	if c.isSuperUser(username) {
		return nil
	}

	if ctx != nil && ctx.Target != "" {
		if target, ok := c.access.Targets[ctx.Target]; ok {
			if c.checkTargetPermission(username, permission, target) {
				return nil
			}
		}
	}

	if c.checkGlobalPermission(username, permission) {
		return nil
	}

	return &PermissionError{
		User:       username,
		Permission: permission,
		Context:    ctx,
	}
}

// IsSuperUser returns true if the current user is a superuser.
func (c *Checker) IsSuperUser() bool {
	return c.isSuperUser(c.currentUser)
}

func (c *Checker) isSuperUser(username string) bool {
	return slices.Contains(c.access.SuperUsers, username)
}

func (c *Checker) checkTargetPermission(username string, permission Permission, target *TargetOverride) bool {
	if target.Permissions == nil {
		return false
	}
	return c.checkPermissionMap(username, permission, target.Permissions)
}

func (c *Checker) checkGlobalPermission(username string, permission Permission) bool {
	return c.checkPermissionMap(username, permission, c.access.Permissions)
}

// checkPermissionMap checks whether username has the given permission in permMap.
// It first checks the "all" wildcard key, then the specific permission key.
func (c *Checker) checkPermissionMap(username string, permission Permission, permMap map[string][]string) bool {
	if groups, ok := permMap["all"]; ok {
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
		if group == username {
			return true
		}
		if members, ok := c.access.UserGroups[group]; ok {
			if slices.Contains(members, username) {
				return true
			}
		}
	}
	return false
}

// ListPermissions returns every permission the current user holds, given the groups
// declared in the global permission map. Superusers get PermAll only.
func (c *Checker) ListPermissions() []Permission {
	if c.isSuperUser(c.currentUser) {
		return []Permission{PermAll}
	}

	var perms []Permission
	for permStr, groups := range c.access.Permissions {
		if permStr == "all" {
			continue
		}
		if c.userInGroups(c.currentUser, groups) {
			perms = append(perms, Permission(permStr))
		}
	}
	return perms
}

// GetUserGroups returns the groups username belongs to.
func (c *Checker) GetUserGroups(username string) []string {
	var groups []string
	for name, members := range c.access.UserGroups {
		if slices.Contains(members, username) {
			groups = append(groups, name)
		}
	}
	return groups
}

// PermissionError represents a permission denial.
type PermissionError struct {
	User       string
	Permission Permission
	Context    *Context
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied: user '%s' does not have '%s' permission", e.User, e.Permission)
	if e.Context != nil {
		if e.Context.Target != "" {
			msg += fmt.Sprintf(" for target '%s'", e.Context.Target)
		}
		if e.Context.Resource != "" {
			msg += fmt.Sprintf(" on '%s'", e.Context.Resource)
		}
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return util.ErrPermissionDenied
}
