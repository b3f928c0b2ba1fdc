// Policyd - Router Policy Configuration Tool
//
// A CLI for managing a router's redistribution/import/export policy
// configuration:
//   - policy/term/set/varmap/bind commands edit a declarative config
//     bundle on disk
//   - commit replays the bundle into a compiler/VM engine, relinks every
//     modified target, and hands the resulting filter images to a
//     FilterManager
//   - vm eval runs a linked target's code over a synthetic route for
//     interactive debugging
//
// Noun-group CLI Pattern:
//
//	policyd <noun> <verb> [args]
//
// Examples:
//
//	policyd policy create tier1-import
//	policyd term create tier1-import t10
//	policyd term set tier1-import t10 action "accept"
//	policyd bind import bgp4 tier1-import
//	policyd commit
//	policyd vm eval bgp4 import --var med=50
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/audit"
	"github.com/newtron-network/routepolicy/pkg/auth"
	"github.com/newtron-network/routepolicy/pkg/cli"
	"github.com/newtron-network/routepolicy/pkg/policy/config"
	"github.com/newtron-network/routepolicy/pkg/settings"
	"github.com/newtron-network/routepolicy/pkg/util"
	"github.com/newtron-network/routepolicy/pkg/version"
)

// App holds CLI state shared across all commands.
type App struct {
	// Option flags
	configDir  string
	verbose    bool
	jsonOutput bool

	// Initialized state (set in PersistentPreRunE)
	settings    *settings.Settings
	permChecker *auth.Checker
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "policyd",
	Short:             "Router policy configuration tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Policyd is a noun-group CLI for managing a router's policy
configuration: named sets, per-protocol variables, policies and their
terms, import/export bindings, and the compiled filter images every
protocol reads from.

  policyd <noun> <verb> [args]

  policyd policy create tier1-import
  policyd term create tier1-import t10
  policyd term set tier1-import t10 action "accept"
  policyd bind import bgp4 tier1-import
  policyd commit
  policyd vm eval bgp4 import --var med=50`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isHelpOrVersion(cmd) {
			return nil
		}

		var err error
		app.settings, err = settings.LoadFrom(settingsPath())
		if err != nil {
			util.Logger.Warnf("could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}

		if app.configDir == "" {
			app.configDir = app.settings.GetConfigDir()
		}

		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		access, err := auth.LoadAccessConfig(app.settings.AuthFile)
		if err != nil {
			return fmt.Errorf("loading access config: %w", err)
		}
		app.permChecker = auth.NewChecker(access)

		auditLogger, err := audit.NewFileLogger(app.settings.GetAuditLogPath(), audit.RotationConfig{
			MaxSize:    int64(app.settings.GetAuditMaxSizeMB()) * 1024 * 1024,
			MaxBackups: app.settings.GetAuditMaxBackups(),
		})
		if err != nil {
			util.Logger.Warnf("could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.configDir, "config-dir", "c", "", "Configuration directory")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "config", Title: "Configuration Commands:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
		&cobra.Group{ID: "meta", Title: "Meta:"},
	)

	for _, cmd := range []*cobra.Command{policyCmd, termCmd, setCmd, varmapCmd, bindCmd} {
		cmd.GroupID = "config"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{commitCmd, vmCmd} {
		cmd.GroupID = "ops"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("policyd dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("policyd %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}

func isHelpOrVersion(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version":
			return true
		}
	}
	return false
}

// settingsPath returns the path to policyd.yaml, honoring -c before falling
// back to settings.DefaultSettingsPath.
func settingsPath() string {
	if app.configDir != "" {
		return filepath.Join(app.configDir, "policyd.yaml")
	}
	return settings.DefaultSettingsPath()
}

// bundlePath is where the declarative configuration bundle lives — the
// file every config-editing command reads and rewrites, and the file
// commit replays into a fresh Engine.
func bundlePath() string {
	return filepath.Join(app.configDir, "bundle.yaml")
}

// loadBundle reads the bundle, yielding an empty one if the file doesn't
// exist yet (a brand new configDir).
func loadBundle() (*config.Bundle, error) {
	b, err := config.LoadBundle(bundlePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &config.Bundle{}, nil
		}
		return nil, fmt.Errorf("loading bundle: %w", err)
	}
	return b, nil
}

func saveBundle(b *config.Bundle) error {
	if err := b.SaveTo(bundlePath()); err != nil {
		return fmt.Errorf("saving bundle: %w", err)
	}
	return nil
}

// checkPermission enforces a permission for a config-editing command,
// recording an audit event regardless of outcome.
func checkPermission(perm auth.Permission, authCtx *auth.Context, operation string) error {
	err := app.permChecker.Check(perm, authCtx)
	evt := audit.NewEvent(app.permChecker.CurrentUser(), authCtx.Target, operation)
	if authCtx.Protocol != "" {
		evt = evt.WithProtocol(authCtx.Protocol)
	}
	if err != nil {
		audit.Log(evt.WithError(err))
		return err
	}
	audit.Log(evt.WithSuccess())
	return nil
}

// Color helpers — delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func cliTable(headers ...string) *cli.Table {
	return cli.NewTable(headers...)
}
