package ast

import (
	"errors"
	"testing"

	"github.com/newtron-network/routepolicy/pkg/policy"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
)

func TestParseSimpleStatements(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		kind NodeKind
	}{
		{"accept", "accept", NodeAccept},
		{"reject", "reject", NodeReject},
		{"next policy", "next policy", NodeNextPolicy},
		{"next term", "next term", NodeNextTerm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(tt.stmt, 1)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.stmt, err)
			}
			if n.Kind != tt.kind {
				t.Errorf("Parse(%q).Kind = %v, want %v", tt.stmt, n.Kind, tt.kind)
			}
		})
	}
}

func TestParseAssignment(t *testing.T) {
	n, err := Parse("med = 100", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeAssign || n.AssignVar != "med" || n.AssignOp != nil {
		t.Errorf("Parse() = %+v, want plain assignment to med", n)
	}
	if n.RHS.Elem.U32() != 100 {
		t.Errorf("RHS = %v, want 100", n.RHS.Elem)
	}
}

func TestParseCompoundAssignment(t *testing.T) {
	n, err := Parse("med += 5", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.AssignOp == nil || *n.AssignOp != value.OpAdd {
		t.Errorf("Parse() AssignOp = %v, want OpAdd", n.AssignOp)
	}
}

func TestParseComparison(t *testing.T) {
	n, err := Parse("med == 100", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeBin || n.Op != value.OpEq {
		t.Fatalf("Parse() = %+v, want NodeBin ==", n)
	}
	if n.Left.Kind != NodeVar || n.Left.VarName != "med" {
		t.Errorf("Left = %+v, want var med", n.Left)
	}
	if n.Right.Elem.U32() != 100 {
		t.Errorf("Right = %v, want 100", n.Right.Elem)
	}
}

func TestParsePrecedence(t *testing.T) {
	// && binds tighter than ||, so "a || b && c" parses as "a || (b && c)".
	n, err := Parse("true || false && false", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeBin || n.Op != value.OpOr {
		t.Fatalf("top-level op = %+v, want ||", n)
	}
	if n.Right.Kind != NodeBin || n.Right.Op != value.OpAnd {
		t.Errorf("right operand = %+v, want && subtree", n.Right)
	}
}

func TestParseParenthesizedOverridesPrecedence(t *testing.T) {
	n, err := Parse("(true || false) && false", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeBin || n.Op != value.OpAnd {
		t.Fatalf("top-level op = %+v, want &&", n)
	}
	if n.Left.Kind != NodeBin || n.Left.Op != value.OpOr {
		t.Errorf("left operand = %+v, want || subtree", n.Left)
	}
}

func TestParseInOperator(t *testing.T) {
	n, err := Parse("med in tier1", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeBin || n.Op != value.OpEq {
		t.Fatalf("Parse() = %+v, want NodeBin ==", n)
	}
	if n.Right.Kind != NodeSetRef || n.Right.SetName != "tier1" {
		t.Errorf("Right = %+v, want set ref tier1", n.Right)
	}
}

func TestParseNotInOperator(t *testing.T) {
	n, err := Parse("med not in tier1", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeBin || n.Op != value.OpNEInt {
		t.Fatalf("Parse() = %+v, want NodeBin NEInt", n)
	}
	if n.Right.Kind != NodeSetRef || n.Right.SetName != "tier1" {
		t.Errorf("Right = %+v, want set ref tier1", n.Right)
	}
}

func TestParseRegexMatch(t *testing.T) {
	n, err := Parse(`community =~ "^65000:.*$"`, 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeBin || n.Op != value.OpRegex {
		t.Fatalf("Parse() = %+v, want NodeBin OpRegex", n)
	}
	if n.Right.Kind != NodeElem || n.Right.Elem.Str() != "^65000:.*$" {
		t.Errorf("Right = %+v, want pattern literal", n.Right)
	}
}

func TestParseNot(t *testing.T) {
	n, err := Parse("!true", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeUn || n.Op != value.OpNot {
		t.Errorf("Parse() = %+v, want NodeUn !", n)
	}
}

func TestParseProtocol(t *testing.T) {
	n, err := Parse("protocol rip", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeProto || n.ProtoName != "rip" {
		t.Errorf("Parse() = %+v, want protocol rip", n)
	}
}

func TestParseSubPolicyReference(t *testing.T) {
	n, err := Parse("policy reject-bogons", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeSubr || n.PolicyName != "reject-bogons" {
		t.Errorf("Parse() = %+v, want sub-policy reject-bogons", n)
	}
}

func TestParseCIDRLiteral(t *testing.T) {
	n, err := Parse("10.0.0.0/8", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeElem || n.Elem.Kind() != value.KindIPv4Net {
		t.Fatalf("Parse() = %+v, want ipv4net literal", n)
	}
	if got := n.Elem.Net().Prefix; got != 8 {
		t.Errorf("Prefix = %d, want 8", got)
	}
}

func TestParseIPLiteral(t *testing.T) {
	n, err := Parse("192.0.2.1", 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Kind != NodeElem || n.Elem.Kind() != value.KindIPv4 {
		t.Fatalf("Parse() = %+v, want ipv4 literal", n)
	}
}

func TestParseStringLiteral(t *testing.T) {
	n, err := Parse(`as-path-re == "^65001 "`, 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if n.Right.Elem.Str() != "^65001 " {
		t.Errorf("Right = %q, want %q", n.Right.Elem.Str(), "^65001 ")
	}
}

func TestParseTrailingGarbageErrors(t *testing.T) {
	_, err := Parse("accept accept", 1)
	if err == nil {
		t.Fatal("Parse() should reject trailing input after a complete statement")
	}
}

func TestParseErrorWrapsSentinel(t *testing.T) {
	_, err := Parse("med ==", 1)
	if err == nil {
		t.Fatal("Parse() should fail on an incomplete comparison")
	}
	if !errors.Is(err, policy.ErrParse) {
		t.Errorf("ParseError should unwrap to policy.ErrParse, got %v", err)
	}
}

func TestParseRoundTrip(t *testing.T) {
	// Property: print(parse(s)) re-parses to an equivalent AST.
	stmts := []string{
		"med == 100",
		"med = 50",
		"accept",
		"reject",
		"protocol rip",
	}
	for _, s := range stmts {
		t.Run(s, func(t *testing.T) {
			n1, err := Parse(s, 1)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", s, err)
			}
			printed := n1.String()
			n2, err := Parse(printed, 1)
			if err != nil {
				t.Fatalf("re-parsing printed form %q: %v", printed, err)
			}
			if n2.String() != printed {
				t.Errorf("round-trip unstable: %q != %q", n2.String(), printed)
			}
		})
	}
}
