package varmap

import (
	"errors"
	"testing"

	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/util"
)

func TestVarMapGenericVariablesVisibleUnderAnyProtocol(t *testing.T) {
	vm := New()
	for _, proto := range []string{"bgp4", "rip", "ospf"} {
		id, err := vm.Var2Id(proto, "policy-tags")
		if err != nil {
			t.Errorf("Var2Id(%s, policy-tags) error: %v", proto, err)
		}
		if id != IdPolicyTags {
			t.Errorf("Var2Id(%s, policy-tags) = %d, want %d", proto, id, IdPolicyTags)
		}
	}
}

func TestVarMapDeclareAndLookup(t *testing.T) {
	vm := New()
	if err := vm.Declare("bgp4", "as-path", value.KindASPath, ReadOnly, IdProtocolPrivateBase); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}

	id, err := vm.Var2Id("bgp4", "as-path")
	if err != nil {
		t.Fatalf("Var2Id() error: %v", err)
	}
	if id != IdProtocolPrivateBase {
		t.Errorf("Var2Id() = %d, want %d", id, IdProtocolPrivateBase)
	}

	typ, ok := vm.TypeOf(id)
	if !ok || typ != value.KindASPath {
		t.Errorf("TypeOf() = (%s, %v), want (%s, true)", typ, ok, value.KindASPath)
	}

	access, ok := vm.AccessOf(id)
	if !ok || access != ReadOnly {
		t.Errorf("AccessOf() = (%v, %v), want (ReadOnly, true)", access, ok)
	}
}

func TestVarMapDeclareDuplicate(t *testing.T) {
	vm := New()
	if err := vm.Declare("bgp4", "local-pref", value.KindU32, ReadWrite, IdProtocolPrivateBase); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}
	err := vm.Declare("bgp4", "local-pref", value.KindU32, ReadWrite, IdProtocolPrivateBase+1)
	if !errors.Is(err, util.ErrAlreadyExists) {
		t.Errorf("Declare() duplicate = %v, want util.ErrAlreadyExists", err)
	}
}

func TestVarMapUnknownVariable(t *testing.T) {
	vm := New()
	_, err := vm.Var2Id("bgp4", "does-not-exist")
	var uv *UnknownVariableError
	if !errors.As(err, &uv) {
		t.Fatalf("Var2Id() unknown = %v, want *UnknownVariableError", err)
	}
	if !errors.Is(err, util.ErrNotFound) {
		t.Error("UnknownVariableError should unwrap to util.ErrNotFound")
	}
}

func TestVarMapPerProtocolIsolation(t *testing.T) {
	vm := New()
	if err := vm.Declare("bgp4", "med", value.KindU32, ReadWrite, IdProtocolPrivateBase); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}
	if _, err := vm.Var2Id("rip", "med"); err == nil {
		t.Error("Var2Id() should not find a protocol-private variable under a different protocol")
	}
}

func TestVarMapDeclaredIncludesGenericAndProtocolSpecific(t *testing.T) {
	vm := New()
	if err := vm.Declare("bgp4", "med", value.KindU32, ReadWrite, IdProtocolPrivateBase); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}

	names := vm.Declared("bgp4")
	hasMed, hasPolicyTags := false, false
	for _, n := range names {
		if n == "med" {
			hasMed = true
		}
		if n == "policy-tags" {
			hasPolicyTags = true
		}
	}
	if !hasMed {
		t.Error("Declared(bgp4) should include the protocol-specific med variable")
	}
	if !hasPolicyTags {
		t.Error("Declared(bgp4) should include generic variables like policy-tags")
	}

	if namesRIP := vm.Declared("rip"); containsString(namesRIP, "med") {
		t.Error("Declared(rip) should not include bgp4's protocol-private med variable")
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
