// Package codegen lowers checked policy ASTs to a flat stack-machine
// instruction stream, links per-policy fragments into per-target filter
// images, and allocates redistribution tags.
package codegen

import (
	"fmt"

	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
)

// Opcode is the VM's instruction set.
type Opcode int

const (
	OpPush Opcode = iota
	OpPushSet
	OpLoad
	OpStore
	OpOperator
	OpRegex
	OpOnFalseExit
	OpAccept
	OpReject
	OpNextPolicy
	OpNextTerm
	OpSubr
)

func (o Opcode) String() string {
	switch o {
	case OpPush:
		return "PUSH"
	case OpPushSet:
		return "PUSHSET"
	case OpLoad:
		return "LOAD"
	case OpStore:
		return "STORE"
	case OpOperator:
		return "OP"
	case OpRegex:
		return "REGEX"
	case OpOnFalseExit:
		return "ONFALSE_EXIT"
	case OpAccept:
		return "ACCEPT"
	case OpReject:
		return "REJECT"
	case OpNextPolicy:
		return "NEXT_POLICY"
	case OpNextTerm:
		return "NEXT_TERM"
	case OpSubr:
		return "SUBR"
	}
	return "?"
}

// Instruction is one bytecode entry. Only the fields relevant to Op are
// populated.
type Instruction struct {
	Op       Opcode
	Imm      value.Value
	SetName  string
	VarId    varmap.Id
	Operator value.Op
	Unary    bool
	Pattern  string
	Policy   string
}

func (i Instruction) String() string {
	switch i.Op {
	case OpPush:
		return fmt.Sprintf("PUSH %s", i.Imm.String())
	case OpPushSet:
		return fmt.Sprintf("PUSHSET %s", i.SetName)
	case OpLoad:
		return fmt.Sprintf("LOAD %d", i.VarId)
	case OpStore:
		return fmt.Sprintf("STORE %d", i.VarId)
	case OpOperator:
		return fmt.Sprintf("OP %d unary=%v", i.Operator, i.Unary)
	case OpRegex:
		return fmt.Sprintf("REGEX %q", i.Pattern)
	case OpSubr:
		return fmt.Sprintf("SUBR %s", i.Policy)
	default:
		return i.Op.String()
	}
}

// Code is a flat instruction sequence produced for one policy (a fragment)
// or, after linking, for one target (a full image).
type Code []Instruction
