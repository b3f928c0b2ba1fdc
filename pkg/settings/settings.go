// Package settings loads policyd's YAML configuration file.
package settings

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the default configuration directory used when no
// override is supplied.
const DefaultConfigDir = "/etc/policyd"

// FilterBackend selects which FilterManager implementation policyd wires up.
type FilterBackend string

const (
	BackendMemory FilterBackend = "memory"
	BackendRedis  FilterBackend = "redis"
)

// Settings holds policyd's persistent configuration, loaded from
// policyd.yaml.
type Settings struct {
	// ConfigDir overrides the default configuration directory.
	ConfigDir string `yaml:"config_dir,omitempty"`

	// FilterBackend selects the FilterManager implementation ("memory" or
	// "redis").
	FilterBackend FilterBackend `yaml:"filter_backend,omitempty"`

	// RedisAddr is the address of the Redis instance backing
	// RedisFilterManager, used only when FilterBackend is "redis".
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// DebounceMillis is the default commit-debounce delay in milliseconds.
	DebounceMillis int `yaml:"debounce_millis,omitempty"`

	// AuditLogPath overrides the default audit log path.
	AuditLogPath string `yaml:"audit_log_path,omitempty"`

	// AuditMaxSizeMB is the max audit log size in MB before rotation.
	AuditMaxSizeMB int `yaml:"audit_max_size_mb,omitempty"`

	// AuditMaxBackups is the max number of rotated audit log files.
	AuditMaxBackups int `yaml:"audit_max_backups,omitempty"`

	// AuthFile is the path to the access-control file pkg/auth consults.
	AuthFile string `yaml:"auth_file,omitempty"`

	// MetricsAddr, if non-empty, is the address policyd's Prometheus
	// /metrics endpoint listens on.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

const (
	DefaultDebounceMillis  = 200
	DefaultAuditMaxSizeMB  = 10
	DefaultAuditMaxBackups = 10
)

// DefaultSettingsPath returns the default path to policyd.yaml.
func DefaultSettingsPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".policyd", "policyd.yaml")
	}
	return "policyd.yaml"
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields
// zero-value settings, not an error — fields read through a Get* accessor
// fall back to a default.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path, creating parent directories
// as needed.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetConfigDir returns the configuration directory with a fallback default.
func (s *Settings) GetConfigDir() string {
	if s.ConfigDir != "" {
		return s.ConfigDir
	}
	return DefaultConfigDir
}

// GetFilterBackend returns the selected filter backend, defaulting to
// in-memory.
func (s *Settings) GetFilterBackend() FilterBackend {
	if s.FilterBackend != "" {
		return s.FilterBackend
	}
	return BackendMemory
}

// GetDebounceMillis returns the configured commit debounce delay, or the
// default.
func (s *Settings) GetDebounceMillis() int {
	if s.DebounceMillis > 0 {
		return s.DebounceMillis
	}
	return DefaultDebounceMillis
}

// GetAuditLogPath returns the audit log path with a fallback default that
// depends on the configured config directory.
func (s *Settings) GetAuditLogPath() string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	return filepath.Join(s.GetConfigDir(), "audit.log")
}

// GetAuditMaxSizeMB returns the audit max size in MB, or the default.
func (s *Settings) GetAuditMaxSizeMB() int {
	if s.AuditMaxSizeMB > 0 {
		return s.AuditMaxSizeMB
	}
	return DefaultAuditMaxSizeMB
}

// GetAuditMaxBackups returns the max rotated audit log count, or the
// default.
func (s *Settings) GetAuditMaxBackups() int {
	if s.AuditMaxBackups > 0 {
		return s.AuditMaxBackups
	}
	return DefaultAuditMaxBackups
}

// Clear resets all settings to defaults.
func (s *Settings) Clear() {
	*s = Settings{}
}
