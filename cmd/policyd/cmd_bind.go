package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/auth"
)

var bindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Bind policies into a protocol's import or export list",
	Long: `Bind an ordered list of policies into a protocol's import or
export chain.

Binding replaces the whole list for (protocol, direction); list order is
policy evaluation order at commit time.

Examples:
  policyd bind import bgp4 tier1-import tier2-import
  policyd bind export bgp4 tier1-export
  policyd bind list`,
}

var bindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List import/export bindings",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBundle()
		if err != nil {
			return err
		}

		if app.jsonOutput {
			out := struct {
				Imports map[string][]string `json:"imports"`
				Exports map[string][]string `json:"exports"`
			}{b.Imports, b.Exports}
			return json.NewEncoder(os.Stdout).Encode(out)
		}

		if len(b.Imports) == 0 && len(b.Exports) == 0 {
			fmt.Println("No bindings configured")
			return nil
		}

		t := cliTable("DIRECTION", "PROTOCOL", "POLICIES")
		for proto, names := range b.Imports {
			t.Row("import", proto, strings.Join(names, ", "))
		}
		for proto, names := range b.Exports {
			t.Row("export", proto, strings.Join(names, ", "))
		}
		t.Flush()
		return nil
	},
}

var bindImportCmd = &cobra.Command{
	Use:   "import <protocol> <policy>...",
	Short: "Replace a protocol's import policy list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bind(args[0], args[1:], auth.PermImportUpdate, "import.update", true)
	},
}

var bindExportCmd = &cobra.Command{
	Use:   "export <protocol> <policy>...",
	Short: "Replace a protocol's export policy list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bind(args[0], args[1:], auth.PermExportUpdate, "export.update", false)
	},
}

func bind(protocol string, policies []string, perm auth.Permission, operation string, isImport bool) error {
	authCtx := auth.NewContext().WithProtocol(protocol)
	if err := checkPermission(perm, authCtx, operation); err != nil {
		return err
	}

	b, err := loadBundle()
	if err != nil {
		return err
	}
	if isImport {
		if b.Imports == nil {
			b.Imports = make(map[string][]string)
		}
		b.Imports[protocol] = policies
	} else {
		if b.Exports == nil {
			b.Exports = make(map[string][]string)
		}
		b.Exports[protocol] = policies
	}
	if err := saveBundle(b); err != nil {
		return err
	}
	fmt.Println(green(fmt.Sprintf("Bound %s/%s: %s", protocol, operation, strings.Join(policies, ", "))))
	return nil
}

func init() {
	bindCmd.AddCommand(bindListCmd)
	bindCmd.AddCommand(bindImportCmd)
	bindCmd.AddCommand(bindExportCmd)
}
