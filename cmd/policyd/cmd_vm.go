package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/auth"
	"github.com/newtron-network/routepolicy/pkg/policy/codegen"
	"github.com/newtron-network/routepolicy/pkg/policy/config"
	"github.com/newtron-network/routepolicy/pkg/policy/filtermgr"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
	"github.com/newtron-network/routepolicy/pkg/policy/vm"
)

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Run linked policy code over a synthetic route",
}

var vmEvalVars []string
var vmEvalTrace bool

var vmEvalCmd = &cobra.Command{
	Use:   "eval <protocol> <import|export|export-source-match>",
	Short: "Recompile the bundle and evaluate one target against a synthetic route",
	Long: `Eval replays the configuration bundle into a throwaway Engine,
runs the commit pipeline to (re)link every target, then executes the
named (protocol, filter-kind) target's code over a route built from
--var assignments, printing the resulting verdict.

Unassigned variables read as null; this is a debugging
aid, not a test harness for route processing at large.

Examples:
  policyd vm eval bgp4 import --var med=50
  policyd vm eval bgp4 export --var med=50 --trace`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		protocol := args[0]
		kind, err := codegen.ParseFilterKind(args[1])
		if err != nil {
			return err
		}

		authCtx := auth.NewContext().WithProtocol(protocol)
		if err := checkPermission(auth.PermPolicyView, authCtx, "vm.eval"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}

		e := config.New(filtermgr.NewMemoryFilterManager())
		if err := b.Apply(e); err != nil {
			return fmt.Errorf("applying bundle: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.CommitNow(ctx); err != nil {
			return fmt.Errorf("compiling bundle: %w", err)
		}

		target := codegen.Target{Protocol: protocol, Kind: kind}
		image, ok := e.Filter.Current(target)
		if !ok {
			return fmt.Errorf("no linked image for target %s", target)
		}

		initial, err := parseVarAssignments(e.VarMap, protocol, vmEvalVars)
		if err != nil {
			return err
		}
		rw := varmap.NewMapVarRW(initial)

		machine := vm.New(e.VarMap)
		machine.Trace = vmEvalTrace
		verdict, err := machine.Run(image.Code, rw, e.Sets)
		if err != nil {
			return fmt.Errorf("running target %s: %w", target, err)
		}

		fmt.Printf("target:     %s\n", target)
		fmt.Printf("generation: %d\n", image.Generation)
		fmt.Printf("verdict:    %s\n", formatVerdict(verdict))
		return nil
	},
}

func formatVerdict(v vm.Verdict) string {
	switch v {
	case vm.Accept:
		return green(v.String())
	case vm.Reject:
		return red(v.String())
	default:
		return yellow(v.String())
	}
}

// parseVarAssignments turns "name=value" flag strings into a seed map for
// MapVarRW, resolving each name against protocol's namespace and coercing
// the textual value to the variable's declared Kind.
func parseVarAssignments(vmap *varmap.VarMap, protocol string, assignments []string) (map[varmap.Id]value.Value, error) {
	seed := make(map[varmap.Id]value.Value, len(assignments))
	for _, a := range assignments {
		name, raw, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", a)
		}
		id, err := vmap.Var2Id(protocol, name)
		if err != nil {
			return nil, err
		}
		kind, _ := vmap.TypeOf(id)
		v, err := coerceValue(kind, raw)
		if err != nil {
			return nil, fmt.Errorf("--var %s: %w", name, err)
		}
		seed[id] = v
	}
	return seed, nil
}

func coerceValue(kind value.Kind, raw string) (value.Value, error) {
	switch kind {
	case value.KindU32:
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid u32 %q", raw)
		}
		return value.U32(uint32(n)), nil
	case value.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid bool %q", raw)
		}
		return value.Bool(b), nil
	case value.KindStr:
		return value.Str(raw), nil
	default:
		return value.Value{}, fmt.Errorf("--var does not support type %s; set it up via the policy language instead", kind)
	}
}

func init() {
	vmEvalCmd.Flags().StringArrayVar(&vmEvalVars, "var", nil, "route variable assignment name=value (repeatable)")
	vmEvalCmd.Flags().BoolVar(&vmEvalTrace, "trace", false, "log each VM instruction as it executes")
	vmCmd.AddCommand(vmEvalCmd)
}
