package auth

import (
	"errors"
	"testing"

	"github.com/newtron-network/routepolicy/pkg/util"
)

func TestContext_Chaining(t *testing.T) {
	ctx := NewContext().
		WithProtocol("bgp").
		WithTarget("bgp/export").
		WithResource("REJECT_MARTIANS")

	if ctx.Protocol != "bgp" {
		t.Errorf("Protocol = %q", ctx.Protocol)
	}
	if ctx.Target != "bgp/export" {
		t.Errorf("Target = %q", ctx.Target)
	}
	if ctx.Resource != "REJECT_MARTIANS" {
		t.Errorf("Resource = %q", ctx.Resource)
	}
}

func testAccessConfig() *AccessConfig {
	return &AccessConfig{
		SuperUsers: []string{"admin", "root"},
		UserGroups: map[string][]string{
			"neteng": {"alice", "bob"},
			"netops": {"charlie", "diana"},
			"viewer": {"eve"},
		},
		Permissions: map[string][]string{
			"all":           {"neteng"},
			"term.update":   {"neteng", "netops"},
			"policy.delete": {"neteng", "netops", "viewer"},
			"set.create":    {"neteng"},
			"commit":        {"neteng", "netops", "viewer"},
		},
		Targets: map[string]*TargetOverride{
			"bgp/export": {
				Description: "export filter towards the bgp speaker",
				Permissions: map[string][]string{
					"term.update": {"netops"}, // more restrictive than global
				},
			},
			"ospf/export": {
				Description: "export filter towards ospf redistribution",
				Permissions: map[string][]string{
					"all": {"neteng"}, // only neteng
				},
			},
		},
	}
}

func TestChecker_SuperUser(t *testing.T) {
	access := testAccessConfig()
	checker := NewChecker(access)
	checker.SetUser("admin")

	if err := checker.Check(PermTermUpdate, nil); err != nil {
		t.Errorf("Superuser should be allowed: %v", err)
	}
	if err := checker.Check(PermCommit, nil); err != nil {
		t.Errorf("Superuser should be allowed: %v", err)
	}

	if !checker.IsSuperUser() {
		t.Error("admin should be superuser")
	}
}

func TestChecker_GlobalPermissions(t *testing.T) {
	access := testAccessConfig()
	checker := NewChecker(access)

	t.Run("user in allowed group", func(t *testing.T) {
		checker.SetUser("alice") // In neteng
		if err := checker.Check(PermTermUpdate, nil); err != nil {
			t.Errorf("alice (neteng) should have term.update: %v", err)
		}
	})

	t.Run("user with 'all' permission", func(t *testing.T) {
		checker.SetUser("bob") // In neteng which has 'all'
		if err := checker.Check(PermSetCreate, nil); err != nil {
			t.Errorf("bob (neteng with 'all') should have set.create: %v", err)
		}
	})

	t.Run("user without permission", func(t *testing.T) {
		checker.SetUser("eve") // In viewer only
		if err := checker.Check(PermTermUpdate, nil); err == nil {
			t.Error("eve (viewer) should not have term.update")
		}
	})
}

func TestChecker_TargetPermissions(t *testing.T) {
	access := testAccessConfig()
	checker := NewChecker(access)

	t.Run("target-specific override", func(t *testing.T) {
		checker.SetUser("charlie") // In netops
		ctx := NewContext().WithTarget("bgp/export")

		if err := checker.Check(PermTermUpdate, ctx); err != nil {
			t.Errorf("charlie should have permission via target override: %v", err)
		}
	})

	t.Run("target with 'all' permission", func(t *testing.T) {
		checker.SetUser("alice") // In neteng
		ctx := NewContext().WithTarget("ospf/export")

		if err := checker.Check(PermTermUpdate, ctx); err != nil {
			t.Errorf("alice should have permission via target 'all': %v", err)
		}
	})

	t.Run("no target permission falls back to global", func(t *testing.T) {
		checker.SetUser("diana") // In netops
		ctx := NewContext().WithTarget("ospf/export")

		if err := checker.Check(PermTermUpdate, ctx); err != nil {
			t.Errorf("diana should have permission via global fallback: %v", err)
		}
	})
}

func TestChecker_PermissionError(t *testing.T) {
	access := testAccessConfig()
	checker := NewChecker(access)
	checker.SetUser("eve")

	ctx := NewContext().WithTarget("bgp/export").WithResource("REJECT_MARTIANS")
	err := checker.Check(PermTermUpdate, ctx)

	if err == nil {
		t.Fatal("Expected error")
	}

	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("Expected PermissionError, got %T", err)
	}

	if permErr.User != "eve" {
		t.Errorf("User = %q", permErr.User)
	}
	if permErr.Permission != PermTermUpdate {
		t.Errorf("Permission = %q", permErr.Permission)
	}

	msg := err.Error()
	if msg == "" {
		t.Error("Error message should not be empty")
	}

	if !errors.Is(err, util.ErrPermissionDenied) {
		t.Error("Should unwrap to ErrPermissionDenied")
	}
}

func TestChecker_ListPermissions(t *testing.T) {
	access := testAccessConfig()
	checker := NewChecker(access)

	t.Run("superuser", func(t *testing.T) {
		checker.SetUser("admin")
		perms := checker.ListPermissions()
		if len(perms) != 1 || perms[0] != PermAll {
			t.Errorf("Superuser should have PermAll only, got %v", perms)
		}
	})

	t.Run("regular user", func(t *testing.T) {
		checker.SetUser("eve") // In viewer

		permMap := make(map[Permission]bool)
		for _, p := range checker.ListPermissions() {
			permMap[p] = true
		}

		if !permMap[PermPolicyDelete] {
			t.Error("eve should have policy.delete")
		}
		if !permMap[PermCommit] {
			t.Error("eve should have commit")
		}
		if permMap[PermTermUpdate] {
			t.Error("eve should not have term.update")
		}
	})
}

func TestChecker_GetUserGroups(t *testing.T) {
	access := testAccessConfig()
	checker := NewChecker(access)

	groups := checker.GetUserGroups("alice")
	if len(groups) != 1 || groups[0] != "neteng" {
		t.Errorf("alice groups = %v, want [neteng]", groups)
	}

	groups = checker.GetUserGroups("unknown")
	if len(groups) != 0 {
		t.Errorf("unknown user should have no groups, got %v", groups)
	}
}

func TestChecker_DirectUserPermission(t *testing.T) {
	access := &AccessConfig{
		Permissions: map[string][]string{
			"term.update": {"direct-user"}, // Direct user, not a group
		},
	}
	checker := NewChecker(access)
	checker.SetUser("direct-user")

	if err := checker.Check(PermTermUpdate, nil); err != nil {
		t.Errorf("Direct user permission should work: %v", err)
	}
}

func TestChecker_CurrentUser(t *testing.T) {
	access := testAccessConfig()
	checker := NewChecker(access)

	if checker.CurrentUser() == "" {
		t.Error("CurrentUser should not be empty after NewChecker")
	}

	checker.SetUser("test-user")
	if checker.CurrentUser() != "test-user" {
		t.Errorf("CurrentUser() = %q, want %q", checker.CurrentUser(), "test-user")
	}
}

func TestChecker_TargetWithNilPermissions(t *testing.T) {
	access := &AccessConfig{
		SuperUsers: []string{},
		UserGroups: map[string][]string{
			"neteng": {"alice"},
		},
		Permissions: map[string][]string{
			"term.update": {"neteng"},
		},
		Targets: map[string]*TargetOverride{
			"rip/import": {
				Description: "target with nil permissions",
				Permissions: nil,
			},
		},
	}
	checker := NewChecker(access)
	checker.SetUser("alice")

	ctx := NewContext().WithTarget("rip/import")
	if err := checker.Check(PermTermUpdate, ctx); err != nil {
		t.Errorf("Should fall back to global permission: %v", err)
	}
}

func TestChecker_GlobalPermissionNotFound(t *testing.T) {
	access := &AccessConfig{
		SuperUsers:  []string{},
		UserGroups:  map[string][]string{},
		Permissions: map[string][]string{},
	}
	checker := NewChecker(access)
	checker.SetUser("anyone")

	err := checker.Check(PermTermUpdate, nil)
	if err == nil {
		t.Error("Should be denied when no permissions defined")
	}
}

func TestChecker_GlobalAllPermissionNotGranted(t *testing.T) {
	access := &AccessConfig{
		SuperUsers: []string{},
		UserGroups: map[string][]string{
			"admins": {"admin-user"},
			"users":  {"normal-user"},
		},
		Permissions: map[string][]string{
			"all": {"admins"},
		},
	}
	checker := NewChecker(access)
	checker.SetUser("normal-user")

	err := checker.Check(PermTermUpdate, nil)
	if err == nil {
		t.Error("normal-user should not have permission via 'all'")
	}
}

func TestChecker_TargetAllPermissionNotGranted(t *testing.T) {
	access := &AccessConfig{
		SuperUsers: []string{},
		UserGroups: map[string][]string{
			"admins": {"admin-user"},
			"users":  {"normal-user"},
		},
		Permissions: map[string][]string{},
		Targets: map[string]*TargetOverride{
			"restricted": {
				Description: "restricted target",
				Permissions: map[string][]string{
					"all": {"admins"},
				},
			},
		},
	}
	checker := NewChecker(access)
	checker.SetUser("normal-user")

	ctx := NewContext().WithTarget("restricted")
	err := checker.Check(PermTermUpdate, ctx)
	if err == nil {
		t.Error("normal-user should not have permission via target 'all'")
	}
}

func TestPermissionError_ContextVariations(t *testing.T) {
	t.Run("nil context", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermTermUpdate,
			Context:    nil,
		}
		msg := err.Error()
		if msg == "" {
			t.Error("Error message should not be empty")
		}
		if contains(msg, "for target") || contains(msg, "on '") {
			t.Error("Should not mention target/resource when context is nil")
		}
	})

	t.Run("context with target only", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermTermUpdate,
			Context:    &Context{Target: "bgp/export"},
		}
		msg := err.Error()
		if !contains(msg, "bgp/export") {
			t.Error("Should mention target name")
		}
	})

	t.Run("context with resource only", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermTermUpdate,
			Context:    &Context{Resource: "REJECT_MARTIANS"},
		}
		msg := err.Error()
		if !contains(msg, "REJECT_MARTIANS") {
			t.Error("Should mention resource name")
		}
	})

	t.Run("context with both target and resource", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermTermUpdate,
			Context:    &Context{Target: "bgp/export", Resource: "P1"},
		}
		msg := err.Error()
		if !contains(msg, "bgp/export") || !contains(msg, "P1") {
			t.Error("Should mention both target and resource")
		}
	})
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsHelper(s, substr))
}

func containsHelper(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
