package codegen

import (
	"fmt"

	"github.com/newtron-network/routepolicy/pkg/policy/ast"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
)

// Lower lowers a checked term to a flat instruction sequence: source-match
// then dest-match (each statement produces a Bool followed by
// ONFALSE_EXIT), then the action block lowered left-to-right.
//
// tags is non-nil only for export targets; an assignment to policy-tags
// then allocates a fresh tag from the compiler's monotonic counter instead
// of emitting the written-out value (spec "Tag allocation").
func Lower(vm *varmap.VarMap, protocol string, t *ast.Term, tags *TagAllocator) (Code, error) {
	var code Code

	for _, n := range t.Source.InOrder() {
		stmt, err := lowerExpr(vm, protocol, n)
		if err != nil {
			return nil, err
		}
		code = append(code, stmt...)
		code = append(code, Instruction{Op: OpOnFalseExit})
	}
	for _, n := range t.Dest.InOrder() {
		stmt, err := lowerExpr(vm, protocol, n)
		if err != nil {
			return nil, err
		}
		code = append(code, stmt...)
		code = append(code, Instruction{Op: OpOnFalseExit})
	}
	for _, n := range t.Action.InOrder() {
		stmt, err := lowerAction(vm, protocol, n, tags)
		if err != nil {
			return nil, err
		}
		code = append(code, stmt...)
	}
	return code, nil
}

func lowerAction(vm *varmap.VarMap, protocol string, n *ast.Node, tags *TagAllocator) (Code, error) {
	switch n.Kind {
	case ast.NodeAccept:
		return Code{{Op: OpAccept}}, nil
	case ast.NodeReject:
		return Code{{Op: OpReject}}, nil
	case ast.NodeNextPolicy:
		return Code{{Op: OpNextPolicy}}, nil
	case ast.NodeNextTerm:
		return Code{{Op: OpNextTerm}}, nil
	case ast.NodeAssign:
		id, err := vm.Var2Id(protocol, n.AssignVar)
		if err != nil {
			return nil, err
		}
		if id == varmap.IdPolicyTags && tags != nil {
			tag, err := tags.Allocate(protocol)
			if err != nil {
				return nil, err
			}
			return Code{
				{Op: OpPush, Imm: value.U32(tag)},
				{Op: OpStore, VarId: id},
			}, nil
		}
		rhs, err := lowerExpr(vm, protocol, n.RHS)
		if err != nil {
			return nil, err
		}
		var code Code
		code = append(code, rhs...)
		if n.AssignOp != nil {
			code = append(code, Instruction{Op: OpLoad, VarId: id})
			code = append(code, Instruction{Op: OpOperator, Operator: *n.AssignOp})
		}
		code = append(code, Instruction{Op: OpStore, VarId: id})
		return code, nil
	case ast.NodeSubr:
		return Code{{Op: OpSubr, Policy: n.PolicyName}}, nil
	default:
		return lowerExpr(vm, protocol, n)
	}
}

// lowerExpr lowers an expression node to Bool-or-value-producing code. For
// binary operators, operand-producing code for the *second* argument is
// emitted first and the first argument last, so the first argument ends on
// top of stack per the VM's stack convention.
func lowerExpr(vm *varmap.VarMap, protocol string, n *ast.Node) (Code, error) {
	switch n.Kind {
	case ast.NodeElem:
		return Code{{Op: OpPush, Imm: n.Elem}}, nil

	case ast.NodeVar:
		id, err := vm.Var2Id(protocol, n.VarName)
		if err != nil {
			return nil, err
		}
		return Code{{Op: OpLoad, VarId: id}}, nil

	case ast.NodeSetRef:
		return Code{{Op: OpPushSet, SetName: n.SetName}}, nil

	case ast.NodeProto:
		return Code{
			{Op: OpLoad, VarId: varmap.IdSourceProtocol},
			{Op: OpPush, Imm: value.Str(n.ProtoName)},
			{Op: OpOperator, Operator: value.OpEq},
		}, nil

	case ast.NodeUn:
		operand, err := lowerExpr(vm, protocol, n.Left)
		if err != nil {
			return nil, err
		}
		var code Code
		code = append(code, operand...)
		code = append(code, Instruction{Op: OpOperator, Operator: n.Op, Unary: true})
		return code, nil

	case ast.NodeBin:
		right, err := lowerExpr(vm, protocol, n.Right)
		if err != nil {
			return nil, err
		}
		left, err := lowerExpr(vm, protocol, n.Left)
		if err != nil {
			return nil, err
		}
		var code Code
		code = append(code, right...)
		code = append(code, left...)
		if n.Op == value.OpRegex {
			code = append(code, Instruction{Op: OpRegex})
		} else {
			code = append(code, Instruction{Op: OpOperator, Operator: n.Op})
		}
		return code, nil
	}
	return nil, fmt.Errorf("cannot lower node kind %d as an expression", n.Kind)
}
