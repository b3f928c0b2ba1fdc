package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/auth"
	"github.com/newtron-network/routepolicy/pkg/policy/config"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage named policies",
	Long: `Manage named policies in the configuration bundle.

Examples:
  policyd policy create tier1-import
  policyd policy list
  policyd policy show tier1-import
  policyd policy delete tier1-import`,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBundle()
		if err != nil {
			return err
		}

		if app.jsonOutput {
			names := make([]string, 0, len(b.Policies))
			for _, p := range b.Policies {
				names = append(names, p.Name)
			}
			return json.NewEncoder(os.Stdout).Encode(names)
		}

		if len(b.Policies) == 0 {
			fmt.Println("No policies configured")
			return nil
		}

		t := cliTable("NAME", "TERMS")
		for _, p := range b.Policies {
			t.Row(p.Name, fmt.Sprintf("%d", len(p.Terms)))
		}
		t.Flush()
		return nil
	},
}

var policyShowCmd = &cobra.Command{
	Use:   "show <policy>",
	Short: "Show a policy's terms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBundle()
		if err != nil {
			return err
		}
		p := findPolicy(b, args[0])
		if p == nil {
			return fmt.Errorf("policy %q not found", args[0])
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(p)
		}

		fmt.Printf("Policy: %s\n", bold(p.Name))
		if len(p.Terms) == 0 {
			fmt.Println("  (no terms)")
			return nil
		}
		for _, term := range p.Terms {
			fmt.Printf("  term %s\n", term.Name)
			fmt.Printf("    source: %s\n", dash(term.Source))
			fmt.Printf("    dest:   %s\n", dash(term.Dest))
			fmt.Printf("    action: %s\n", dash(term.Action))
		}
		return nil
	},
}

var policyCreateCmd = &cobra.Command{
	Use:   "create <policy>",
	Short: "Create a new empty policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		authCtx := auth.NewContext().WithResource(name)
		if err := checkPermission(auth.PermPolicyCreate, authCtx, "policy.create"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		if findPolicy(b, name) != nil {
			fmt.Printf("Policy %s already exists.\n", name)
			return nil
		}
		b.Policies = append(b.Policies, config.BundlePolicy{Name: name})
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green("Policy created: " + name))
		return nil
	},
}

var policyDeleteCmd = &cobra.Command{
	Use:   "delete <policy>",
	Short: "Delete a policy",
	Long: `Delete a policy from the configuration bundle.

The delete is refused at commit time, not here, if the policy is still
referenced by another policy or bound into an import/export list — the
bundle has no live dependency graph to check against until it is replayed
into an Engine.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		authCtx := auth.NewContext().WithResource(name)
		if err := checkPermission(auth.PermPolicyDelete, authCtx, "policy.delete"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		kept := b.Policies[:0]
		for _, p := range b.Policies {
			if p.Name != name {
				kept = append(kept, p)
			}
		}
		b.Policies = kept
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green("Policy deleted: " + name))
		return nil
	},
}

func findPolicy(b *config.Bundle, name string) *config.BundlePolicy {
	for i := range b.Policies {
		if b.Policies[i].Name == name {
			return &b.Policies[i]
		}
	}
	return nil
}

func init() {
	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyCreateCmd)
	policyCmd.AddCommand(policyDeleteCmd)
}
