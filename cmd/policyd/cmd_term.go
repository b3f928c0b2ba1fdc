package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/auth"
	"github.com/newtron-network/routepolicy/pkg/policy/config"
)

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Manage a policy's terms",
	Long: `Manage the ordered terms within a policy.

Terms run in list order at commit time; each term's source/dest/action
blocks hold one policy-language statement apiece.

Examples:
  policyd term create tier1-import t10
  policyd term set tier1-import t10 action "accept"
  policyd term set tier1-import t10 source "med < 100"
  policyd term delete tier1-import t10`,
}

var termCreateCmd = &cobra.Command{
	Use:   "create <policy> <term>",
	Short: "Append a new term to a policy",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		policyName, termName := args[0], args[1]
		authCtx := auth.NewContext().WithResource(policyName)
		if err := checkPermission(auth.PermTermCreate, authCtx, "term.create"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		p := findPolicy(b, policyName)
		if p == nil {
			return fmt.Errorf("policy %q not found", policyName)
		}
		for _, t := range p.Terms {
			if t.Name == termName {
				fmt.Printf("Term %s already exists on %s.\n", termName, policyName)
				return nil
			}
		}
		p.Terms = append(p.Terms, config.BundleTerm{Name: termName})
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green(fmt.Sprintf("Term created: %s/%s", policyName, termName)))
		return nil
	},
}

var termSetCmd = &cobra.Command{
	Use:   "set <policy> <term> <source|dest|action> <statement>",
	Short: "Set a term's source, dest, or action statement",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		policyName, termName, block, statement := args[0], args[1], args[2], args[3]
		switch block {
		case "source", "dest", "action":
		default:
			return fmt.Errorf("block must be one of: source, dest, action")
		}

		authCtx := auth.NewContext().WithResource(fmt.Sprintf("%s/%s", policyName, termName))
		if err := checkPermission(auth.PermTermUpdate, authCtx, "term.update."+block); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		p := findPolicy(b, policyName)
		if p == nil {
			return fmt.Errorf("policy %q not found", policyName)
		}
		term := findTerm(p, termName)
		if term == nil {
			return fmt.Errorf("term %q not found on policy %q", termName, policyName)
		}
		switch block {
		case "source":
			term.Source = statement
		case "dest":
			term.Dest = statement
		case "action":
			term.Action = statement
		}
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green(fmt.Sprintf("Term updated: %s/%s %s", policyName, termName, block)))
		return nil
	},
}

var termDeleteCmd = &cobra.Command{
	Use:   "delete <policy> <term>",
	Short: "Delete a term from a policy",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		policyName, termName := args[0], args[1]
		authCtx := auth.NewContext().WithResource(fmt.Sprintf("%s/%s", policyName, termName))
		if err := checkPermission(auth.PermTermDelete, authCtx, "term.delete"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		p := findPolicy(b, policyName)
		if p == nil {
			return fmt.Errorf("policy %q not found", policyName)
		}
		kept := p.Terms[:0]
		for _, t := range p.Terms {
			if t.Name != termName {
				kept = append(kept, t)
			}
		}
		p.Terms = kept
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green(fmt.Sprintf("Term deleted: %s/%s", policyName, termName)))
		return nil
	},
}

func findTerm(p *config.BundlePolicy, name string) *config.BundleTerm {
	for i := range p.Terms {
		if p.Terms[i].Name == name {
			return &p.Terms[i]
		}
	}
	return nil
}

func init() {
	termCmd.AddCommand(termCreateCmd)
	termCmd.AddCommand(termSetCmd)
	termCmd.AddCommand(termDeleteCmd)
}
