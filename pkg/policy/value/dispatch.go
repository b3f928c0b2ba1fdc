package value

import (
	"fmt"
	"regexp"
)

// Op identifies an operator in the closed dispatch table.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpNot
	OpAnd
	OpOr
	OpXor
	OpAdd
	OpSub
	OpMul
	OpHead
	OpCtr
	OpNEInt
	OpRegex
)

// TypeMismatchError reports a dispatcher miss: no (op, operand-types) entry.
type TypeMismatchError struct {
	Op    Op
	Left  Kind
	Right Kind // KindNull-unused for unary ops
	Unary bool
}

func (e *TypeMismatchError) Error() string {
	if e.Unary {
		return fmt.Sprintf("no dispatcher entry for unary op %d on %s", e.Op, e.Left)
	}
	return fmt.Sprintf("no dispatcher entry for op %d on (%s, %s)", e.Op, e.Left, e.Right)
}

// binaryKey identifies one (op, left-kind, right-kind) dispatcher entry.
type binaryKey struct {
	op          Op
	left, right Kind
}

type binaryEntry struct {
	result Kind
	eval   func(a, b Value) (Value, error)
}

type unaryKey struct {
	op      Op
	operand Kind
}

type unaryEntry struct {
	result Kind
	eval   func(a Value) (Value, error)
}

var binaryTable map[binaryKey]binaryEntry
var unaryTable map[unaryKey]unaryEntry

func init() {
	binaryTable = make(map[binaryKey]binaryEntry)
	unaryTable = make(map[unaryKey]unaryEntry)

	eqKinds := []Kind{KindU32, KindBool, KindStr, KindIPv4, KindIPv6, KindIPv4Net, KindIPv6Net, KindASPath, KindCommunitySet, KindSet32, KindNull}
	for _, k := range eqKinds {
		k := k
		binaryTable[binaryKey{OpEq, k, k}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(a.Equal(b)), nil }}
		binaryTable[binaryKey{OpNeq, k, k}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(!a.Equal(b)), nil }}
	}
	// set membership: x == S iff x in S
	binaryTable[binaryKey{OpEq, KindU32, KindSet32}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(b.Contains(a.u32)), nil }}
	binaryTable[binaryKey{OpEq, KindU32, KindCommunitySet}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(b.Contains(a.u32)), nil }}

	ordKinds := []Kind{KindU32, KindIPv4, KindIPv6}
	for _, k := range ordKinds {
		k := k
		binaryTable[binaryKey{OpLt, k, k}] = binaryEntry{KindBool, ordCmp(k, func(c int) bool { return c < 0 })}
		binaryTable[binaryKey{OpGt, k, k}] = binaryEntry{KindBool, ordCmp(k, func(c int) bool { return c > 0 })}
		binaryTable[binaryKey{OpLe, k, k}] = binaryEntry{KindBool, ordCmp(k, func(c int) bool { return c <= 0 })}
		binaryTable[binaryKey{OpGe, k, k}] = binaryEntry{KindBool, ordCmp(k, func(c int) bool { return c >= 0 })}
	}

	unaryTable[unaryKey{OpNot, KindBool}] = unaryEntry{KindBool, func(a Value) (Value, error) { return Bool(!a.b), nil }}
	binaryTable[binaryKey{OpAnd, KindBool, KindBool}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(a.b && b.b), nil }}
	binaryTable[binaryKey{OpOr, KindBool, KindBool}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(a.b || b.b), nil }}
	binaryTable[binaryKey{OpXor, KindBool, KindBool}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(a.b != b.b), nil }}

	binaryTable[binaryKey{OpAdd, KindU32, KindU32}] = binaryEntry{KindU32, func(a, b Value) (Value, error) { return U32(a.u32 + b.u32), nil }}
	binaryTable[binaryKey{OpSub, KindU32, KindU32}] = binaryEntry{KindU32, func(a, b Value) (Value, error) { return U32(a.u32 - b.u32), nil }}
	binaryTable[binaryKey{OpMul, KindU32, KindU32}] = binaryEntry{KindU32, func(a, b Value) (Value, error) { return U32(a.u32 * b.u32), nil }}

	unaryTable[unaryKey{OpHead, KindASPath}] = unaryEntry{KindU32, func(a Value) (Value, error) {
		if len(a.path) == 0 {
			return Value{}, fmt.Errorf("head of empty aspath")
		}
		return U32(a.path[0]), nil
	}}
	unaryTable[unaryKey{OpCtr, KindASPath}] = unaryEntry{KindU32, func(a Value) (Value, error) { return U32(uint32(len(a.path))), nil }}
	unaryTable[unaryKey{OpCtr, KindSet32}] = unaryEntry{KindU32, func(a Value) (Value, error) { return U32(uint32(len(a.set))), nil }}
	unaryTable[unaryKey{OpCtr, KindCommunitySet}] = unaryEntry{KindU32, func(a Value) (Value, error) { return U32(uint32(len(a.comm))), nil }}

	binaryTable[binaryKey{OpNEInt, KindU32, KindU32}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(a.u32 != b.u32), nil }}
	binaryTable[binaryKey{OpNEInt, KindU32, KindSet32}] = binaryEntry{KindBool, func(a, b Value) (Value, error) { return Bool(!b.Contains(a.u32)), nil }}

	binaryTable[binaryKey{OpRegex, KindStr, KindStr}] = binaryEntry{KindBool, func(a, b Value) (Value, error) {
		re, err := regexp.CompilePOSIX(b.str)
		if err != nil {
			return Value{}, fmt.Errorf("invalid regex %q: %w", b.str, err)
		}
		return Bool(re.MatchString(a.str)), nil
	}}
}

func ordCmp(k Kind, pred func(int) bool) func(a, b Value) (Value, error) {
	return func(a, b Value) (Value, error) {
		var c int
		switch k {
		case KindU32:
			switch {
			case a.u32 < b.u32:
				c = -1
			case a.u32 > b.u32:
				c = 1
			}
		case KindIPv4, KindIPv6:
			c = compareIP(a.ip, b.ip)
		}
		return Bool(pred(c)), nil
	}
}

func compareIP(a, b []byte) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	if len(b) > len(a) {
		return -1
	}
	return 0
}

// ResultType reports the result type a binary (op, left, right) entry
// declares, used by the semantic checker for type propagation.
func ResultType(op Op, left, right Kind) (Kind, bool) {
	e, ok := binaryTable[binaryKey{op, left, right}]
	if !ok {
		return 0, false
	}
	return e.result, true
}

// UnaryResultType reports the result type a unary (op, operand) entry
// declares.
func UnaryResultType(op Op, operand Kind) (Kind, bool) {
	e, ok := unaryTable[unaryKey{op, operand}]
	if !ok {
		return 0, false
	}
	return e.result, true
}

// Eval evaluates a binary operator, failing with TypeMismatchError if no
// dispatcher entry exists — a condition the semantic checker is responsible
// for ruling out before code ever reaches the VM.
func Eval(op Op, a, b Value) (Value, error) {
	e, ok := binaryTable[binaryKey{op, a.kind, b.kind}]
	if !ok {
		return Value{}, &TypeMismatchError{Op: op, Left: a.kind, Right: b.kind}
	}
	return e.eval(a, b)
}

// EvalUnary evaluates a unary operator.
func EvalUnary(op Op, a Value) (Value, error) {
	e, ok := unaryTable[unaryKey{op, a.kind}]
	if !ok {
		return Value{}, &TypeMismatchError{Op: op, Left: a.kind, Unary: true}
	}
	return e.eval(a)
}

// Entries returns every (op, operand-types) combination the dispatcher
// supports, for exhaustive dispatcher-totality testing.
func Entries() []struct {
	Op          Op
	Left, Right Kind
	Unary       bool
} {
	var out []struct {
		Op          Op
		Left, Right Kind
		Unary       bool
	}
	for k := range binaryTable {
		out = append(out, struct {
			Op          Op
			Left, Right Kind
			Unary       bool
		}{k.op, k.left, k.right, false})
	}
	for k := range unaryTable {
		out = append(out, struct {
			Op          Op
			Left, Right Kind
			Unary       bool
		}{k.op, k.operand, 0, true})
	}
	return out
}
