package codegen

import (
	"testing"

	"github.com/newtron-network/routepolicy/pkg/policy/ast"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
)

func newTestVarMap(t *testing.T) *varmap.VarMap {
	t.Helper()
	vm := varmap.New()
	if err := vm.Declare("bgp4", "med", value.KindU32, varmap.ReadWrite, varmap.IdProtocolPrivateBase); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}
	return vm
}

func termWithAction(n *ast.Node) *ast.Term {
	term := ast.NewTerm("t1")
	term.Action.Insert(ast.NewConfigNodeId(""), n)
	term.Finalize()
	return term
}

func TestLowerAcceptAction(t *testing.T) {
	vm := newTestVarMap(t)
	term := termWithAction(&ast.Node{Kind: ast.NodeAccept})

	code, err := Lower(vm, "bgp4", term, nil)
	if err != nil {
		t.Fatalf("Lower() error: %v", err)
	}
	if len(code) != 1 || code[0].Op != OpAccept {
		t.Errorf("Lower() = %v, want [ACCEPT]", code)
	}
}

func TestLowerSourceMatchEmitsOnFalseExit(t *testing.T) {
	vm := newTestVarMap(t)
	term := ast.NewTerm("t1")
	term.Source.Insert(ast.NewConfigNodeId(""), &ast.Node{
		Kind: ast.NodeBin,
		Op:   value.OpEq,
		Left: &ast.Node{Kind: ast.NodeVar, VarName: "med"},
		Right: &ast.Node{Kind: ast.NodeElem, Elem: value.U32(100)},
	})
	term.Action.Insert(ast.NewConfigNodeId(""), &ast.Node{Kind: ast.NodeAccept})
	term.Finalize()

	code, err := Lower(vm, "bgp4", term, nil)
	if err != nil {
		t.Fatalf("Lower() error: %v", err)
	}

	// PUSH 100 (right, lowered first), LOAD med (left, on top), OP ==, ONFALSE_EXIT, ACCEPT
	if len(code) != 5 {
		t.Fatalf("Lower() produced %d instructions, want 5: %v", len(code), code)
	}
	if code[0].Op != OpPush {
		t.Errorf("code[0].Op = %v, want PUSH (right operand lowered first)", code[0].Op)
	}
	if code[1].Op != OpLoad {
		t.Errorf("code[1].Op = %v, want LOAD (left operand ends up on top)", code[1].Op)
	}
	if code[2].Op != OpOperator || code[2].Operator != value.OpEq {
		t.Errorf("code[2] = %v, want OP ==", code[2])
	}
	if code[3].Op != OpOnFalseExit {
		t.Errorf("code[3].Op = %v, want ONFALSE_EXIT", code[3].Op)
	}
	if code[4].Op != OpAccept {
		t.Errorf("code[4].Op = %v, want ACCEPT", code[4].Op)
	}
}

func TestLowerPlainAssign(t *testing.T) {
	vm := newTestVarMap(t)
	id, _ := vm.Var2Id("bgp4", "med")
	term := termWithAction(&ast.Node{
		Kind:      ast.NodeAssign,
		AssignVar: "med",
		RHS:       &ast.Node{Kind: ast.NodeElem, Elem: value.U32(50)},
	})

	code, err := Lower(vm, "bgp4", term, nil)
	if err != nil {
		t.Fatalf("Lower() error: %v", err)
	}
	if len(code) != 2 || code[0].Op != OpPush || code[1].Op != OpStore || code[1].VarId != id {
		t.Errorf("Lower() = %v, want [PUSH 50, STORE med]", code)
	}
}

func TestLowerCompoundAssignLoadsBeforeOperating(t *testing.T) {
	vm := newTestVarMap(t)
	addOp := value.OpAdd
	term := termWithAction(&ast.Node{
		Kind:      ast.NodeAssign,
		AssignVar: "med",
		AssignOp:  &addOp,
		RHS:       &ast.Node{Kind: ast.NodeElem, Elem: value.U32(5)},
	})

	code, err := Lower(vm, "bgp4", term, nil)
	if err != nil {
		t.Fatalf("Lower() error: %v", err)
	}
	// PUSH 5, LOAD med, OP +, STORE med
	if len(code) != 4 {
		t.Fatalf("Lower() produced %d instructions, want 4: %v", len(code), code)
	}
	if code[0].Op != OpPush || code[1].Op != OpLoad || code[2].Op != OpOperator || code[3].Op != OpStore {
		t.Errorf("Lower() opcodes = %v, want [PUSH LOAD OP STORE]", code)
	}
}

func TestLowerPolicyTagsAssignAllocatesTag(t *testing.T) {
	vm := newTestVarMap(t)
	tags := NewTagAllocator()
	term := termWithAction(&ast.Node{
		Kind:      ast.NodeAssign,
		AssignVar: "policy-tags",
		RHS:       &ast.Node{Kind: ast.NodeElem, Elem: value.U32(999)}, // ignored: compiler synthesizes its own
	})

	code, err := Lower(vm, "bgp4", term, tags)
	if err != nil {
		t.Fatalf("Lower() error: %v", err)
	}
	if len(code) != 2 || code[0].Op != OpPush || code[1].Op != OpStore {
		t.Fatalf("Lower() = %v, want [PUSH tag, STORE policy-tags]", code)
	}
	if code[0].Imm.U32() == 999 {
		t.Error("Lower() should synthesize a compiler-allocated tag, not the user-written RHS literal")
	}
	tagsFor := tags.TagsFor("bgp4")
	if len(tagsFor) != 1 || tagsFor[0] != code[0].Imm.U32() {
		t.Errorf("allocator state %v does not match emitted tag %d", tagsFor, code[0].Imm.U32())
	}
}

func TestLowerPolicyTagsWithoutAllocatorFallsBackToLiteral(t *testing.T) {
	vm := newTestVarMap(t)
	term := termWithAction(&ast.Node{
		Kind:      ast.NodeAssign,
		AssignVar: "policy-tags",
		RHS:       &ast.Node{Kind: ast.NodeElem, Elem: value.U32(7)},
	})

	code, err := Lower(vm, "bgp4", term, nil)
	if err != nil {
		t.Fatalf("Lower() error: %v", err)
	}
	if code[0].Imm.U32() != 7 {
		t.Errorf("without a tag allocator Lower() should emit the literal RHS, got %d", code[0].Imm.U32())
	}
}

func TestLowerUnknownVariableErrors(t *testing.T) {
	vm := newTestVarMap(t)
	term := termWithAction(&ast.Node{
		Kind:      ast.NodeAssign,
		AssignVar: "does-not-exist",
		RHS:       &ast.Node{Kind: ast.NodeElem, Elem: value.U32(1)},
	})

	if _, err := Lower(vm, "bgp4", term, nil); err == nil {
		t.Error("Lower() should error on an undeclared assignment target")
	}
}

func TestLowerProtoMatch(t *testing.T) {
	vm := newTestVarMap(t)
	term := ast.NewTerm("t1")
	term.Source.Insert(ast.NewConfigNodeId(""), &ast.Node{Kind: ast.NodeProto, ProtoName: "rip"})
	term.Finalize()

	code, err := Lower(vm, "bgp4", term, nil)
	if err != nil {
		t.Fatalf("Lower() error: %v", err)
	}
	// LOAD source-protocol, PUSH "rip", OP ==, ONFALSE_EXIT
	if len(code) != 4 || code[0].Op != OpLoad || code[0].VarId != varmap.IdSourceProtocol {
		t.Errorf("Lower() = %v, want LOAD source-protocol first", code)
	}
}
