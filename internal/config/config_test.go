// ABOUTME: Tests for healthexport configuration management.
// ABOUTME: Covers load, save, defaults, env overrides, backend selection, and path expansion.
package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/storage"
)

func TestGetBackendDefault(t *testing.T) {
	t.Setenv("HEALTHEXPORT_BACKEND", "")
	cfg := &Config{}
	if got := cfg.GetBackend(); got != BackendBadger {
		t.Errorf("GetBackend() = %q, want %q", got, BackendBadger)
	}
}

func TestGetBackendExplicit(t *testing.T) {
	t.Setenv("HEALTHEXPORT_BACKEND", "")
	cfg := &Config{Backend: "Redis"}
	if got := cfg.GetBackend(); got != BackendRedis {
		t.Errorf("GetBackend() = %q, want %q", got, BackendRedis)
	}
}

func TestGetBackendEnvOverride(t *testing.T) {
	t.Setenv("HEALTHEXPORT_BACKEND", "memory")
	cfg := &Config{Backend: "redis"}
	if got := cfg.GetBackend(); got != BackendMemory {
		t.Errorf("GetBackend() = %q, want %q", got, BackendMemory)
	}
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("HEALTHEXPORT_LOG_LEVEL", "")
	if got := (&Config{}).GetLogLevel(); got != "info" {
		t.Errorf("default GetLogLevel() = %q, want info", got)
	}
	if got := (&Config{LogLevel: "warn"}).GetLogLevel(); got != "warn" {
		t.Errorf("GetLogLevel() = %q, want warn", got)
	}

	t.Setenv("HEALTHEXPORT_LOG_LEVEL", "debug")
	if got := (&Config{LogLevel: "warn"}).GetLogLevel(); got != "debug" {
		t.Errorf("env GetLogLevel() = %q, want debug", got)
	}
}

func TestGetRedisAddrDefault(t *testing.T) {
	if got := (&Config{}).GetRedisAddr(); got != "localhost:6379" {
		t.Errorf("GetRedisAddr() = %q", got)
	}
}

func TestGetDataDirDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	cfg := &Config{}
	want := filepath.Join(tmpDir, "healthexport")
	if got := cfg.GetDataDir(); got != want {
		t.Errorf("GetDataDir() = %q, want %q", got, want)
	}
}

func TestGetDataDirExpandsTilde(t *testing.T) {
	home, _ := os.UserHomeDir()

	cfg := &Config{DataDir: "~/health-data"}
	got := cfg.GetDataDir()
	want := filepath.Join(home, "health-data")
	if got != want {
		t.Errorf("GetDataDir() = %q, want %q", got, want)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/tmp/foo", "/tmp/foo"},
		{"~", home},
		{"~/data/health", filepath.Join(home, "data/health")},
		{"data/health", "data/health"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportConcurrency(t *testing.T) {
	tests := []struct {
		in   int
		want export.Concurrency
	}{
		{0, export.Disabled()},
		{1, export.Disabled()},
		{4, export.Limit(4)},
		{-1, export.Unlimited()},
	}
	for _, tt := range tests {
		cfg := &Config{Concurrency: tt.in}
		if got := cfg.ExportConcurrency(); got != tt.want {
			t.Errorf("ExportConcurrency(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMaxSleepGap(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 60 * time.Minute},
		{"90m", 90 * time.Minute},
		{"nonsense", 60 * time.Minute},
		{"-5m", 60 * time.Minute},
	}
	for _, tt := range tests {
		cfg := &Config{SleepGap: tt.in}
		if got := cfg.MaxSleepGap(); got != tt.want {
			t.Errorf("MaxSleepGap(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with no config file should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
	if cfg.Backend != "" || cfg.DataDir != "" {
		t.Errorf("Expected empty config, got %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &Config{
		Backend:     "redis",
		DataDir:     "/tmp/health-data",
		RedisAddr:   "cache:6380",
		Concurrency: 3,
		SleepGap:    "45m",
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "nonexistent"))

	cfg := &Config{Backend: BackendBadger}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() should create directory: %v", err)
	}

	configDir := filepath.Join(tmpDir, "nonexistent", "healthexport")
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		t.Error("Expected config directory to be created")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir := filepath.Join(tmpDir, "healthexport")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte("invalid json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid JSON config")
	}
}

func TestGetConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	got := GetConfigPath()
	want := filepath.Join(tmpDir, "healthexport", "config.json")
	if got != want {
		t.Errorf("GetConfigPath() = %q, want %q", got, want)
	}
}

func TestOpenSampleDB(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{DataDir: tmpDir}

	db, err := cfg.OpenSampleDB()
	if err != nil {
		t.Fatalf("OpenSampleDB() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "samples.db")); os.IsNotExist(err) {
		t.Error("Expected samples.db to be created")
	}
}

func TestOpenDescriptorStoreBadger(t *testing.T) {
	t.Setenv("HEALTHEXPORT_BACKEND", "")
	tmpDir := t.TempDir()
	cfg := &Config{DataDir: tmpDir}

	store, err := cfg.OpenDescriptorStore(context.Background())
	if err != nil {
		t.Fatalf("OpenDescriptorStore() failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*storage.BadgerStore); !ok {
		t.Errorf("expected *storage.BadgerStore, got %T", store)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "sessions")); os.IsNotExist(err) {
		t.Error("Expected sessions directory to be created")
	}
}

func TestOpenDescriptorStoreMemory(t *testing.T) {
	t.Setenv("HEALTHEXPORT_BACKEND", "")
	cfg := &Config{Backend: BackendMemory}

	store, err := cfg.OpenDescriptorStore(context.Background())
	if err != nil {
		t.Fatalf("OpenDescriptorStore() failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*storage.MemoryStore); !ok {
		t.Errorf("expected *storage.MemoryStore, got %T", store)
	}
}

func TestOpenDescriptorStoreInvalidBackend(t *testing.T) {
	t.Setenv("HEALTHEXPORT_BACKEND", "")
	cfg := &Config{Backend: "invalid"}

	if _, err := cfg.OpenDescriptorStore(context.Background()); err == nil {
		t.Error("Expected error for invalid backend")
	}
}

func TestConfigJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(&Config{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Expected empty JSON object, got %s", string(data))
	}
}

func TestConfigJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(&Config{SleepGap: "30m", Concurrency: -1})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["max_sleep_gap"] != "30m" {
		t.Errorf("max_sleep_gap = %v", raw["max_sleep_gap"])
	}
	if raw["concurrency"] != float64(-1) {
		t.Errorf("concurrency = %v", raw["concurrency"])
	}
}
