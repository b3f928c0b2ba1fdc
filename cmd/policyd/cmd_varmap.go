package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/auth"
	"github.com/newtron-network/routepolicy/pkg/policy/config"
)

var varmapCmd = &cobra.Command{
	Use:   "varmap",
	Short: "Manage the protocol variable catalog",
	Long: `Manage the VarMap: the catalog of protocol-specific route
variables policies may read or write.

Examples:
  policyd varmap add bgp4 med u32 rw 65536
  policyd varmap list`,
}

var varmapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBundle()
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(b.VarMap)
		}

		if len(b.VarMap) == 0 {
			fmt.Println("No protocol variables declared")
			return nil
		}

		t := cliTable("PROTOCOL", "NAME", "TYPE", "ACCESS", "ID")
		for _, v := range b.VarMap {
			t.Row(v.Protocol, v.Name, v.Type, v.Access, strconv.FormatUint(uint64(v.Id), 10))
		}
		t.Flush()
		return nil
	},
}

var varmapAddCmd = &cobra.Command{
	Use:   "add <protocol> <name> <type> <ro|rw> <id>",
	Short: "Declare a protocol variable",
	Long: `Declare a protocol-specific variable: its wire type, whether
policy may write it, and its numeric variable id.

Protocol-specific ids must be >= the protocol-private base (65536); ids
below that are reserved for generic variables shared across protocols.

Examples:
  policyd varmap add bgp4 med u32 rw 65536
  policyd varmap add bgp4 as-path aspath ro 65537`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		protocol, name, typ, accessStr, idStr := args[0], args[1], args[2], args[3], args[4]
		switch accessStr {
		case "ro", "rw":
		default:
			return fmt.Errorf("access must be one of: ro, rw")
		}
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid variable id: %s", idStr)
		}

		authCtx := auth.NewContext().WithProtocol(protocol).WithResource(name)
		if err := checkPermission(auth.PermVarMapAdd, authCtx, "varmap.add"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}
		access := "read-only"
		if accessStr == "rw" {
			access = "read-write"
		}
		b.VarMap = append(b.VarMap, config.BundleVar{
			Protocol: protocol,
			Name:     name,
			Type:     typ,
			Access:   access,
			Id:       uint32(id),
		})
		if err := saveBundle(b); err != nil {
			return err
		}
		fmt.Println(green(fmt.Sprintf("Variable declared: %s/%s", protocol, name)))
		return nil
	},
}

func init() {
	varmapCmd.AddCommand(varmapListCmd)
	varmapCmd.AddCommand(varmapAddCmd)
}
