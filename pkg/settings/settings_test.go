package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetConfigDir(); got != DefaultConfigDir {
		t.Errorf("GetConfigDir() default = %q, want %q", got, DefaultConfigDir)
	}
	if got := s.GetFilterBackend(); got != BackendMemory {
		t.Errorf("GetFilterBackend() default = %q, want %q", got, BackendMemory)
	}
	if got := s.GetDebounceMillis(); got != DefaultDebounceMillis {
		t.Errorf("GetDebounceMillis() default = %d, want %d", got, DefaultDebounceMillis)
	}
	if got := s.GetAuditMaxSizeMB(); got != DefaultAuditMaxSizeMB {
		t.Errorf("GetAuditMaxSizeMB() default = %d, want %d", got, DefaultAuditMaxSizeMB)
	}
	if got := s.GetAuditMaxBackups(); got != DefaultAuditMaxBackups {
		t.Errorf("GetAuditMaxBackups() default = %d, want %d", got, DefaultAuditMaxBackups)
	}
}

func TestSettings_Overrides(t *testing.T) {
	s := &Settings{
		ConfigDir:      "/custom/path",
		FilterBackend:  BackendRedis,
		RedisAddr:      "localhost:6379",
		DebounceMillis: 500,
	}

	if got := s.GetConfigDir(); got != "/custom/path" {
		t.Errorf("GetConfigDir() = %q, want %q", got, "/custom/path")
	}
	if got := s.GetFilterBackend(); got != BackendRedis {
		t.Errorf("GetFilterBackend() = %q, want %q", got, BackendRedis)
	}
	if got := s.GetDebounceMillis(); got != 500 {
		t.Errorf("GetDebounceMillis() = %d, want %d", got, 500)
	}
}

func TestSettings_AuditLogPathFallback(t *testing.T) {
	s := &Settings{ConfigDir: "/etc/policyd"}
	want := filepath.Join("/etc/policyd", "audit.log")
	if got := s.GetAuditLogPath(); got != want {
		t.Errorf("GetAuditLogPath() = %q, want %q", got, want)
	}

	s.AuditLogPath = "/var/log/custom.log"
	if got := s.GetAuditLogPath(); got != "/var/log/custom.log" {
		t.Errorf("GetAuditLogPath() override = %q, want %q", got, "/var/log/custom.log")
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{ConfigDir: "/x", RedisAddr: "y:1234", DebounceMillis: 10}
	s.Clear()
	if s.ConfigDir != "" || s.RedisAddr != "" || s.DebounceMillis != 0 {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "policyd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "policyd.yaml")
	original := &Settings{
		FilterBackend:  BackendRedis,
		RedisAddr:      "redis:6379",
		DebounceMillis: 250,
		AuthFile:       "/etc/policyd/acl.yaml",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if loaded.FilterBackend != original.FilterBackend {
		t.Errorf("FilterBackend mismatch: got %q, want %q", loaded.FilterBackend, original.FilterBackend)
	}
	if loaded.RedisAddr != original.RedisAddr {
		t.Errorf("RedisAddr mismatch: got %q, want %q", loaded.RedisAddr, original.RedisAddr)
	}
	if loaded.DebounceMillis != original.DebounceMillis {
		t.Errorf("DebounceMillis mismatch: got %d, want %d", loaded.DebounceMillis, original.DebounceMillis)
	}
	if loaded.AuthFile != original.AuthFile {
		t.Errorf("AuthFile mismatch: got %q, want %q", loaded.AuthFile, original.AuthFile)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/policyd.yaml")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.FilterBackend != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidYAML(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "policyd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "policyd.yaml")
	if err := os.WriteFile(path, []byte("filter_backend: [invalid"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with invalid YAML should error")
	}
}

func TestSettings_SaveCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "policyd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "subdir", "nested", "policyd.yaml")
	s := &Settings{FilterBackend: BackendMemory}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	path := DefaultSettingsPath()
	if path == "" {
		t.Error("DefaultSettingsPath() should not be empty")
	}
}

func TestLoadFrom_ReadError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "policyd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dirAsFile := filepath.Join(tmpDir, "policyd.yaml")
	if err := os.Mkdir(dirAsFile, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := LoadFrom(dirAsFile); err == nil {
		t.Error("LoadFrom() should error when path is a directory")
	}
}

func TestSaveTo_MkdirError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "policyd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	blockingFile := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blockingFile, []byte("blocking"), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	path := filepath.Join(blockingFile, "subdir", "policyd.yaml")
	s := &Settings{FilterBackend: BackendMemory}
	if err := s.SaveTo(path); err == nil {
		t.Error("SaveTo() should fail when directory creation fails")
	}
}
