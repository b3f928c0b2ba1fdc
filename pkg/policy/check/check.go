// Package check implements the semantic checker and dependency visitor: one
// pass over a policy's AST that type-checks every operator and assignment,
// enforces per-direction legality, and records set/sub-policy dependencies.
package check

import (
	"fmt"
	"regexp"

	"github.com/newtron-network/routepolicy/pkg/policy"
	"github.com/newtron-network/routepolicy/pkg/policy/ast"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
)

// Direction distinguishes import policies (fixed source protocol, no
// dest-match) from export policies (must set Proto, may have dest-match).
type Direction int

const (
	Import Direction = iota
	Export
)

// SemanticError reports a type mismatch, unknown variable, per-direction
// legality violation, or sub-policy cycle.
type SemanticError struct {
	Policy, Term string
	Block        ast.Block
	Line         int
	Reason       string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("semantic error in policy %q term %q (%s block) line %d: %s",
		e.Policy, e.Term, e.Block, e.Line, e.Reason)
}

func (e *SemanticError) Unwrap() error { return policy.ErrSemantic }

// PolicyLookup resolves a sub-policy (Subr) reference by name.
type PolicyLookup interface {
	Lookup(name string) (*ast.PolicyStatement, bool)
}

// SetLookup resolves a named-set (SetRef) reference.
type SetLookup interface {
	Get(name string) (value.Value, bool)
}

// Result is the outcome of checking one policy: its resolved dependencies
// and whether any path reaches Reject (a hint for the linker).
type Result struct {
	SetDeps    map[string]struct{}
	PolicyDeps map[string]struct{}
	ReachesReject bool
}

// Checker walks a policy's AST with a SemanticVarRW, accomplishing type
// checking, per-direction legality, set/sub-policy resolution, and
// reject-tracking in a single pass.
type Checker struct {
	VarMap    *varmap.VarMap
	Protocol  string
	Direction Direction
	Policies  PolicyLookup
	Sets      SetLookup
}

// Check walks p and returns its dependency set, failing fast on the first
// semantic error encountered.
func (c *Checker) Check(p *ast.PolicyStatement) (*Result, error) {
	res := &Result{SetDeps: map[string]struct{}{}, PolicyDeps: map[string]struct{}{}}
	visited := map[string]int{} // 0=unvisited,1=grey,2=black, for cycle detection
	if err := c.checkCycles(p.Name, visited); err != nil {
		return nil, err
	}

	for _, t := range p.Terms() {
		vrw := varmap.NewSemanticVarRW(c.VarMap, c.Protocol)

		sawProto := false
		for _, n := range t.Source.InOrder() {
			if n.Kind == ast.NodeProto {
				sawProto = true
			}
			if _, err := c.checkNode(p.Name, t.Name, ast.BlockSource, n, vrw, res); err != nil {
				return nil, err
			}
		}

		destNodes := t.Dest.InOrder()
		if c.Direction == Import && len(destNodes) > 0 {
			return nil, &SemanticError{Policy: p.Name, Term: t.Name, Block: ast.BlockDest, Reason: "import policies may not contain a dest-match block"}
		}
		for _, n := range destNodes {
			if _, err := c.checkNode(p.Name, t.Name, ast.BlockDest, n, vrw, res); err != nil {
				return nil, err
			}
		}

		for _, n := range t.Source.InOrder() {
			if n.Kind == ast.NodeProto && c.Direction == Import {
				return nil, &SemanticError{Policy: p.Name, Term: t.Name, Block: ast.BlockSource, Line: n.Line, Reason: "import policies may not contain a protocol match (source protocol is fixed)"}
			}
		}
		_ = sawProto // an export term without a Proto directive is not rejected by this checker

		for _, n := range t.Action.InOrder() {
			if n.Kind == ast.NodeReject {
				res.ReachesReject = true
			}
			if _, err := c.checkNode(p.Name, t.Name, ast.BlockAction, n, vrw, res); err != nil {
				return nil, err
			}
		}
	}

	return res, nil
}

func (c *Checker) checkCycles(name string, state map[string]int) error {
	if state[name] == 2 {
		return nil
	}
	if state[name] == 1 {
		return &SemanticError{Policy: name, Reason: "cycle detected in sub-policy references"}
	}
	state[name] = 1
	p, ok := c.Policies.Lookup(name)
	if ok {
		for _, t := range p.Terms() {
			for _, n := range t.Action.InOrder() {
				if n.Kind == ast.NodeSubr {
					if err := c.checkCycles(n.PolicyName, state); err != nil {
						return err
					}
				}
			}
		}
	}
	state[name] = 2
	return nil
}

// checkNode type-checks n and returns its static type, recording set and
// sub-policy dependencies as it goes.
func (c *Checker) checkNode(policy, term string, block ast.Block, n *ast.Node, vrw *varmap.SemanticVarRW, res *Result) (value.Kind, error) {
	switch n.Kind {
	case ast.NodeElem:
		return n.Elem.Kind(), nil

	case ast.NodeVar:
		id, err := c.VarMap.Var2Id(c.Protocol, n.VarName)
		if err != nil {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: err.Error()}
		}
		v, err := vrw.Read(id)
		if err != nil {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: err.Error()}
		}
		return v.Kind(), nil

	case ast.NodeSetRef:
		if _, ok := c.Sets.Get(n.SetName); !ok {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: fmt.Sprintf("unknown set %q", n.SetName)}
		}
		res.SetDeps[n.SetName] = struct{}{}
		return value.KindSet32, nil

	case ast.NodeProto:
		return value.KindBool, nil

	case ast.NodeUn:
		lt, err := c.checkNode(policy, term, block, n.Left, vrw, res)
		if err != nil {
			return 0, err
		}
		rt, ok := value.UnaryResultType(n.Op, lt)
		if !ok {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: fmt.Sprintf("no operator entry for unary op on %s", lt)}
		}
		return rt, nil

	case ast.NodeBin:
		lt, err := c.checkNode(policy, term, block, n.Left, vrw, res)
		if err != nil {
			return 0, err
		}
		rt, err := c.checkNode(policy, term, block, n.Right, vrw, res)
		if err != nil {
			return 0, err
		}
		resultType, ok := value.ResultType(n.Op, lt, rt)
		if !ok {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: fmt.Sprintf("no operator entry for (%s, %s)", lt, rt)}
		}
		if n.Op == value.OpRegex && n.Right.Kind == ast.NodeElem {
			if _, err := regexp.CompilePOSIX(n.Right.Elem.Str()); err != nil {
				return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: fmt.Sprintf("invalid regex pattern %q: %v", n.Right.Elem.Str(), err)}
			}
		}
		return resultType, nil

	case ast.NodeAssign:
		id, err := c.VarMap.Var2Id(c.Protocol, n.AssignVar)
		if err != nil {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: err.Error()}
		}
		rt, err := c.checkNode(policy, term, block, n.RHS, vrw, res)
		if err != nil {
			return 0, err
		}
		typ, _ := c.VarMap.TypeOf(id)
		writeType := typ
		if err := vrw.Write(id, zeroOfKind(writeType)); err != nil {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: err.Error()}
		}
		if n.AssignOp != nil {
			if _, ok := value.ResultType(*n.AssignOp, typ, rt); !ok {
				return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: fmt.Sprintf("modifier assign operator type mismatch on %s", n.AssignVar)}
			}
		} else if rt != typ && typ != value.KindNull {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: fmt.Sprintf("assigning %s to variable %s of type %s", rt, n.AssignVar, typ)}
		}
		return value.KindNull, nil

	case ast.NodeAccept, ast.NodeReject, ast.NodeNextPolicy, ast.NodeNextTerm:
		return value.KindNull, nil

	case ast.NodeSubr:
		if _, ok := c.Policies.Lookup(n.PolicyName); !ok {
			return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: fmt.Sprintf("unknown sub-policy %q", n.PolicyName)}
		}
		res.PolicyDeps[n.PolicyName] = struct{}{}
		return value.KindBool, nil
	}
	return 0, &SemanticError{Policy: policy, Term: term, Block: block, Line: n.Line, Reason: "unknown node kind"}
}

func zeroOfKind(k value.Kind) value.Value {
	switch k {
	case value.KindU32:
		return value.U32(0)
	case value.KindBool:
		return value.Bool(false)
	case value.KindSet32:
		return value.Set32(nil)
	default:
		return value.Null()
	}
}
