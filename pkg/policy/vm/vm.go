// Package vm implements the stack-machine executor that runs a linked
// instruction stream from pkg/policy/codegen over a route bound through a
// varmap.VarRW.
package vm

import (
	"fmt"
	"regexp"

	"github.com/newtron-network/routepolicy/pkg/policy"
	"github.com/newtron-network/routepolicy/pkg/policy/codegen"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
	"github.com/newtron-network/routepolicy/pkg/util"
)

// Verdict is the outcome of running an image over a route.
type Verdict int

const (
	Default Verdict = iota
	Accept
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "default"
	}
}

// RuntimeError reports a fatal-but-non-crashing failure during execution:
// StackUnderflow, TypeMismatch, or UnknownVariable. It never propagates
// past Run — Run logs it and returns a Default verdict instead.
type RuntimeError struct {
	Kind   string // "stack-underflow", "type-mismatch", "unknown-variable"
	Detail string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error (%s): %s", e.Kind, e.Detail)
}

func (e *RuntimeError) Unwrap() error { return policy.ErrRuntime }

// regexCache memoizes compiled POSIX patterns across instructions within a
// single Run; regex compile failures are never expected here because
// codegen already validated patterns at check time.
type regexCache struct {
	compiled map[string]*regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{compiled: make(map[string]*regexp.Regexp)}
}

func (c *regexCache) get(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return nil, err
	}
	c.compiled[pattern] = re
	return re, nil
}

// VM executes one linked target image at a time. A VM is not shared across
// route-processing events: each event constructs one, runs one policy
// chain, and discards it.
type VM struct {
	VarMap *varmap.VarMap
	regex  *regexCache
	Trace  bool
}

// SetMapLookup resolves a named set by name, as bound at link time. Declared
// here (rather than depending on the concrete pkg/policy/value.SetMap) so
// the VM's dependency on the set-storage concern stays an interface.
type SetMapLookup interface {
	Get(name string) (value.Value, bool)
}

func New(vmap *varmap.VarMap) *VM {
	return &VM{VarMap: vmap, regex: newRegexCache()}
}

// Run executes code over rw, returning the final verdict. It never panics
// or returns a non-nil error for ordinary policy-authored conditions: a
// RuntimeError is logged and downgraded to a Default verdict per the
// spec's failure-mode contract, since these indicate compiler bugs, not
// bad input.
func (m *VM) Run(code codegen.Code, rw varmap.VarRW, sets SetMapLookup) (verdict Verdict, err error) {
	var stack []value.Value
	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() (value.Value, error) {
		if len(stack) == 0 {
			return value.Value{}, &RuntimeError{Kind: "stack-underflow", Detail: "pop on empty stack"}
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	verdict = Default
	traceLog := util.WithField("component", "policy-vm")

	ip := 0
instrLoop:
	for ip < len(code) {
		instr := code[ip]
		if m.Trace {
			top := "empty"
			if len(stack) > 0 {
				top = stack[len(stack)-1].String()
			}
			traceLog.Debugf("ip=%d %s (tos=%s)", ip, instr.String(), top)
		}

		switch instr.Op {
		case codegen.OpPush:
			push(instr.Imm)

		case codegen.OpPushSet:
			s, ok := sets.Get(instr.SetName)
			if !ok {
				rerr := &RuntimeError{Kind: "unknown-variable", Detail: fmt.Sprintf("set %q not bound", instr.SetName)}
				util.WithField("component", "policy-vm").Error(rerr.Error())
				return Default, nil
			}
			push(s)

		case codegen.OpLoad:
			v, rerr := rw.Read(instr.VarId)
			if rerr != nil {
				util.WithField("component", "policy-vm").Errorf("unknown-variable: %v", rerr)
				return Default, nil
			}
			push(v)

		case codegen.OpStore:
			v, perr := pop()
			if perr != nil {
				util.WithField("component", "policy-vm").Error(perr.Error())
				return Default, nil
			}
			if werr := rw.Write(instr.VarId, v); werr != nil {
				util.WithField("component", "policy-vm").Errorf("write failed: %v", werr)
				return Default, nil
			}

		case codegen.OpOperator:
			if instr.Unary {
				a, perr := pop()
				if perr != nil {
					util.WithField("component", "policy-vm").Error(perr.Error())
					return Default, nil
				}
				res, everr := value.EvalUnary(instr.Operator, a)
				if everr != nil {
					util.WithField("component", "policy-vm").Errorf("type-mismatch: %v", everr)
					return Default, nil
				}
				push(res)
			} else {
				// first argument (left) was lowered last, so it is on top.
				a, perr := pop()
				if perr != nil {
					util.WithField("component", "policy-vm").Error(perr.Error())
					return Default, nil
				}
				b, perr := pop()
				if perr != nil {
					util.WithField("component", "policy-vm").Error(perr.Error())
					return Default, nil
				}
				res, everr := value.Eval(instr.Operator, a, b)
				if everr != nil {
					util.WithField("component", "policy-vm").Errorf("type-mismatch: %v", everr)
					return Default, nil
				}
				push(res)
			}

		case codegen.OpRegex:
			a, perr := pop() // subject string (left operand, str)
			if perr != nil {
				util.WithField("component", "policy-vm").Error(perr.Error())
				return Default, nil
			}
			b, perr := pop() // pattern literal (right operand, str)
			if perr != nil {
				util.WithField("component", "policy-vm").Error(perr.Error())
				return Default, nil
			}
			re, cerr := m.regex.get(b.Str())
			if cerr != nil {
				// codegen validates patterns at check time; a compile
				// failure here would be a compiler bug, not bad input.
				util.WithField("component", "policy-vm").Errorf("regex compile error at runtime: %v", cerr)
				push(value.Bool(false))
				continue
			}
			push(value.Bool(re.MatchString(a.Str())))

		case codegen.OpOnFalseExit:
			// Leaves the stack unchanged: a giant AND can splice an
			// ONFALSE_EXIT after each clause without popping the
			// running result out from under later clauses.
			if len(stack) == 0 {
				rerr := &RuntimeError{Kind: "stack-underflow", Detail: "onfalseexit on empty stack"}
				util.WithField("component", "policy-vm").Error(rerr.Error())
				return Default, nil
			}
			if !stack[len(stack)-1].Bool() {
				break instrLoop
			}

		case codegen.OpAccept:
			verdict = Accept
			break instrLoop

		case codegen.OpReject:
			verdict = Reject
			break instrLoop

		case codegen.OpNextPolicy, codegen.OpNextTerm:
			// Both simply advance linearly: the linker has already placed
			// the next term's or policy's code immediately following, so
			// "next" falls out of normal instruction sequencing. The only
			// observable effect is that verdict stays Default.

		case codegen.OpSubr:
			// Sub-policy invocation is resolved at lowering time into an
			// inlined call sequence by the caller of Run for now; reaching
			// here with an unresolved SUBR is a linker bug.
			util.WithField("component", "policy-vm").Errorf("unresolved SUBR %s reached the VM", instr.Policy)
			return Default, nil

		default:
			util.WithField("component", "policy-vm").Errorf("unknown opcode %v", instr.Op)
			return Default, nil
		}
		ip++
	}

	if serr := rw.Sync(); serr != nil {
		return verdict, serr
	}
	// trash arena: stack and any intermediate Values are dropped here by
	// falling out of scope — Values are plain Go values with no manual
	// release step.
	return verdict, nil
}
