package codegen

import (
	"fmt"

	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
)

// FilterKind identifies which of the three per-protocol linking units a
// code fragment belongs to.
type FilterKind int

const (
	FilterImport FilterKind = iota
	FilterExportSourceMatch
	FilterExport
)

func (k FilterKind) String() string {
	switch k {
	case FilterImport:
		return "import"
	case FilterExportSourceMatch:
		return "export-source-match"
	case FilterExport:
		return "export"
	}
	return "?"
}

// ParseFilterKind parses the String() form back into a FilterKind, for CLI
// and config-file input.
func ParseFilterKind(s string) (FilterKind, error) {
	switch s {
	case "import":
		return FilterImport, nil
	case "export-source-match":
		return FilterExportSourceMatch, nil
	case "export":
		return FilterExport, nil
	}
	return 0, fmt.Errorf("unknown filter kind %q", s)
}

// Target is the (protocol, filter-kind) pair: the unit of linking and
// delivery.
type Target struct {
	Protocol string
	Kind     FilterKind
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.Protocol, t.Kind)
}

// Fragment is one policy's compiled code for one target.
type Fragment struct {
	Policy string
	Code   Code
}

// Link concatenates per-policy fragments in list order, producing a single
// flat instruction stream for the target. Fallthrough between policies
// needs no extra opcode: a policy that doesn't reach ACCEPT/REJECT (falls
// off its own end, or hits NEXT_POLICY) simply runs on into the next
// fragment's instructions with the verdict still Default.
func Link(fragments []Fragment) Code {
	var out Code
	for _, f := range fragments {
		out = append(out, f.Code...)
	}
	return out
}

// TargetsFor returns the linking targets a term's protocol/direction
// combination contributes to, per the spec's partitioning rule: import
// policies produce one (protocol, import) target; export policies produce
// a (protocol, export) target for the consumer plus a
// (source-protocol, export-source-match) target for every distinct
// source protocol named in a term's Proto directive.
func TargetsFor(protocol string, isExport bool, sourceProtocols []string) []Target {
	if !isExport {
		return []Target{{Protocol: protocol, Kind: FilterImport}}
	}
	targets := make([]Target, 0, 1+len(sourceProtocols))
	targets = append(targets, Target{Protocol: protocol, Kind: FilterExport})
	seen := make(map[string]struct{}, len(sourceProtocols))
	for _, sp := range sourceProtocols {
		if _, ok := seen[sp]; ok {
			continue
		}
		seen[sp] = struct{}{}
		targets = append(targets, Target{Protocol: sp, Kind: FilterExportSourceMatch})
	}
	return targets
}

// filterSlotVar maps a generation index (0, 1, 2) to its reserved VarMap id.
func filterSlotVar(generation int) varmap.Id {
	switch generation {
	case 0:
		return varmap.IdFilterSlot0
	case 1:
		return varmap.IdFilterSlot1
	default:
		return varmap.IdFilterSlot2
	}
}

// FilterSlotStore emits the two-instruction sequence that installs a freshly
// compiled image's handle into one of the three versioned filter-slot
// variables, per the spec's "Versioned filter images" rule: a route in
// flight completes under the old generation; new routes pick up the new
// handle on their next read of the slot.
func FilterSlotStore(generation int, handle value.Value) Code {
	return Code{
		{Op: OpPush, Imm: handle},
		{Op: OpStore, VarId: filterSlotVar(generation)},
	}
}

// Image is a fully linked code image for one target, plus the slot
// generation it was installed into.
type Image struct {
	Target     Target
	Code       Code
	Generation int // 0, 1, or 2 — the versioned filter slot it occupies
}
