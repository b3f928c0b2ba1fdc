package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage policyd.yaml settings",
	Long: `Manage persistent settings stored in policyd.yaml.

Examples:
  policyd settings show
  policyd settings set filter_backend redis
  policyd settings set redis_addr localhost:6379`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.LoadFrom(settingsPath())
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settingsPath())

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SETTING\tVALUE")
		fmt.Fprintln(w, "-------\t-----")
		fmt.Fprintf(w, "config_dir\t%s\n", s.GetConfigDir())
		fmt.Fprintf(w, "filter_backend\t%s\n", s.GetFilterBackend())
		fmt.Fprintf(w, "redis_addr\t%s\n", dash(s.RedisAddr))
		fmt.Fprintf(w, "debounce_millis\t%d\n", s.GetDebounceMillis())
		fmt.Fprintf(w, "audit_log_path\t%s\n", s.GetAuditLogPath())
		fmt.Fprintf(w, "audit_max_size_mb\t%d\n", s.GetAuditMaxSizeMB())
		fmt.Fprintf(w, "audit_max_backups\t%d\n", s.GetAuditMaxBackups())
		fmt.Fprintf(w, "auth_file\t%s\n", dash(s.AuthFile))
		fmt.Fprintf(w, "metrics_addr\t%s\n", dash(s.MetricsAddr))
		w.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Long: `Set a persistent setting value.

Available settings:
  config_dir         - Configuration directory (bundle.yaml's parent)
  filter_backend     - "memory" or "redis"
  redis_addr         - Redis address, used when filter_backend is redis
  debounce_millis    - Default commit-debounce delay
  audit_log_path     - Audit log file path
  audit_max_size_mb  - Audit log rotation size
  audit_max_backups  - Audit log rotation backup count
  auth_file          - Path to the access-control YAML file
  metrics_addr       - Prometheus /metrics listen address`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting, value := args[0], args[1]

		s, err := settings.LoadFrom(settingsPath())
		if err != nil {
			s = &settings.Settings{}
		}

		switch setting {
		case "config_dir":
			s.ConfigDir = value
		case "filter_backend":
			if value != "memory" && value != "redis" {
				return fmt.Errorf("filter_backend must be memory or redis")
			}
			s.FilterBackend = settings.FilterBackend(value)
		case "redis_addr":
			s.RedisAddr = value
		case "debounce_millis":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid debounce_millis: %s", value)
			}
			s.DebounceMillis = n
		case "audit_log_path":
			s.AuditLogPath = value
		case "audit_max_size_mb":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid audit_max_size_mb: %s", value)
			}
			s.AuditMaxSizeMB = n
		case "audit_max_backups":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid audit_max_backups: %s", value)
			}
			s.AuditMaxBackups = n
		case "auth_file":
			s.AuthFile = value
		case "metrics_addr":
			s.MetricsAddr = value
		default:
			return fmt.Errorf("unknown setting: %s", setting)
		}

		if err := s.SaveTo(settingsPath()); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", setting, value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.SaveTo(settingsPath()); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("All settings cleared.")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
}
