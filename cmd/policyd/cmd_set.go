package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/auth"
	"github.com/newtron-network/routepolicy/pkg/policy/config"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Manage named sets referenced by policies",
	Long: `Manage named sets (community-set, set32, etc.) referenced from
policy match expressions.

Examples:
  policyd set create tier1 set32
  policyd set update tier1 "1,2,3"
  policyd set list
  policyd set show tier1
  policyd set delete tier1`,
}

var setListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBundle()
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(b.Sets)
		}

		if len(b.Sets) == 0 {
			fmt.Println("No sets configured")
			return nil
		}

		t := cliTable("NAME", "TYPE", "ELEMENTS")
		for _, s := range b.Sets {
			t.Row(s.Name, s.Type, dash(s.CSV))
		}
		t.Flush()
		return nil
	},
}

var setShowCmd = &cobra.Command{
	Use:   "show <set>",
	Short: "Show a single set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBundle()
		if err != nil {
			return err
		}
		s := findSet(b, args[0])
		if s == nil {
			return fmt.Errorf("set %q not found", args[0])
		}
		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(s)
		}
		fmt.Printf("Set: %s\n", bold(s.Name))
		fmt.Printf("Type: %s\n", s.Type)
		fmt.Printf("Elements: %s\n", dash(s.CSV))
		return nil
	},
}

var setCreateCmd = &cobra.Command{
	Use:   "create <name> <type>",
	Short: "Create an empty set",
	Long: `Create an empty named set of the given element type.

Type is one of: u32, bool, str, ipv4, ipv6, ipv4net, ipv6net, nexthop4,
nexthop6, aspath, community-set, set32, filter-handle.

Examples:
  policyd set create tier1 set32
  policyd set create as-blocklist aspath`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, typ := args[0], args[1]
		authCtx := auth.NewContext().WithResource(name)
		if err := checkPermission(auth.PermSetCreate, authCtx, "set.create"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		if findSet(b, name) != nil {
			fmt.Printf("Set %s already exists.\n", name)
			return nil
		}
		b.Sets = append(b.Sets, config.BundleSet{Name: name, Type: typ})
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green("Set created: " + name))
		return nil
	},
}

var setUpdateCmd = &cobra.Command{
	Use:   "update <name> <csv-elements>",
	Short: "Replace a set's elements",
	Long: `Replace a set's element list wholesale, as a comma-separated
string in the element type's own textual form.

Examples:
  policyd set update tier1 "1,2,3"
  policyd set update as-blocklist "65001,65002"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, csv := args[0], args[1]
		authCtx := auth.NewContext().WithResource(name)
		if err := checkPermission(auth.PermSetUpdate, authCtx, "set.update"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		s := findSet(b, name)
		if s == nil {
			return fmt.Errorf("set %q not found", name)
		}
		s.CSV = csv
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green("Set updated: " + name))
		return nil
	},
}

var setDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a set",
	Long: `Delete a set. The delete is refused at commit time if any
policy still references it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		authCtx := auth.NewContext().WithResource(name)
		if err := checkPermission(auth.PermSetDelete, authCtx, "set.delete"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		kept := b.Sets[:0]
		for _, s := range b.Sets {
			if s.Name != name {
				kept = append(kept, s)
			}
		}
		b.Sets = kept
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green("Set deleted: " + name))
		return nil
	},
}

func findSet(b *config.Bundle, name string) *config.BundleSet {
	for i := range b.Sets {
		if b.Sets[i].Name == name {
			return &b.Sets[i]
		}
	}
	return nil
}

func init() {
	setCmd.AddCommand(setListCmd)
	setCmd.AddCommand(setShowCmd)
	setCmd.AddCommand(setCreateCmd)
	setCmd.AddCommand(setUpdateCmd)
	setCmd.AddCommand(setDeleteCmd)
}
