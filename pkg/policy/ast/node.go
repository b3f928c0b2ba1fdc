// Package ast implements the policy statement node hierarchy, the
// ConfigNodeId-ordered Term/PolicyStatement containers, and the statement
// parser.
package ast

import (
	"fmt"
	"strings"

	"github.com/newtron-network/routepolicy/pkg/policy/value"
)

// Block identifies which of a term's three sub-blocks a statement belongs
// to.
type Block int

const (
	BlockSource Block = iota
	BlockDest
	BlockAction
)

func (b Block) String() string {
	switch b {
	case BlockSource:
		return "source"
	case BlockDest:
		return "dest"
	case BlockAction:
		return "action"
	}
	return "?"
}

// NodeKind tags the closed sum of AST node variants.
type NodeKind int

const (
	NodeVar NodeKind = iota
	NodeElem
	NodeSetRef
	NodeUn
	NodeBin
	NodeAssign
	NodeAccept
	NodeReject
	NodeProto
	NodeNextPolicy
	NodeNextTerm
	NodeSubr
)

// Node is a single AST node. Every node carries the source line for
// diagnostics. The variant fields used depend on Kind.
type Node struct {
	Kind NodeKind
	Line int

	// NodeVar
	VarName string

	// NodeElem
	Elem value.Value

	// NodeSetRef
	SetName string

	// NodeUn / NodeBin
	Op          value.Op
	Left, Right *Node

	// NodeAssign
	AssignVar string
	AssignOp  *value.Op // nil = plain assign, else a modifier op (e.g. +=)
	RHS       *Node

	// NodeProto
	ProtoName string

	// NodeSubr
	PolicyName string
}

// String renders a canonical, re-parseable textual form of the node,
// grounded on XORP's node.hh str() methods.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeVar:
		return n.VarName
	case NodeElem:
		return n.Elem.String()
	case NodeSetRef:
		return n.SetName
	case NodeUn:
		if n.Op == value.OpHead || n.Op == value.OpCtr {
			return fmt.Sprintf("%s %s", n.Left.String(), opString(n.Op))
		}
		return fmt.Sprintf("%s %s", opString(n.Op), n.Left.String())
	case NodeBin:
		op := opString(n.Op)
		if n.Op == value.OpEq && n.Right != nil && n.Right.Kind == NodeSetRef {
			op = "in"
		}
		return fmt.Sprintf("%s %s %s", n.Left.String(), op, n.Right.String())
	case NodeAssign:
		op := "="
		if n.AssignOp != nil {
			op = opString(*n.AssignOp) + "="
		}
		return fmt.Sprintf("%s %s %s", n.AssignVar, op, n.RHS.String())
	case NodeAccept:
		return "accept"
	case NodeReject:
		return "reject"
	case NodeProto:
		return fmt.Sprintf("protocol %s", n.ProtoName)
	case NodeNextPolicy:
		return "next policy"
	case NodeNextTerm:
		return "next term"
	case NodeSubr:
		return fmt.Sprintf("policy %s", n.PolicyName)
	}
	return "?"
}

func opString(op value.Op) string {
	switch op {
	case value.OpEq:
		return "=="
	case value.OpNeq:
		return "!="
	case value.OpLt:
		return "<"
	case value.OpGt:
		return ">"
	case value.OpLe:
		return "<="
	case value.OpGe:
		return ">="
	case value.OpNot:
		return "!"
	case value.OpAnd:
		return "&&"
	case value.OpOr:
		return "||"
	case value.OpXor:
		return "^"
	case value.OpAdd:
		return "+"
	case value.OpSub:
		return "-"
	case value.OpMul:
		return "*"
	case value.OpHead:
		return "head"
	case value.OpCtr:
		return "ctr"
	case value.OpNEInt:
		return "not in"
	case value.OpRegex:
		return "=~"
	}
	return "?"
}

// Statements renders a slice of nodes, one per line.
func Statements(nodes []*Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.String())
		sb.WriteString(";\n")
	}
	return sb.String()
}
