package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"techxfer/internal/config"
)

func TestLoadDefaultConfigUsesEnvTokenAndExpandsPaths(t *testing.T) {
	t.Setenv("TECHXFER_API_TOKEN", "env-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "techxfer")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.API.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.API.Token)
	}
	if cfg.Workflow.MaxPollAttempts != 900 {
		t.Fatalf("unexpected max poll attempts: %d", cfg.Workflow.MaxPollAttempts)
	}
	if cfg.PollInterval().Seconds() != 2 || cfg.ErrorBackoff().Seconds() != 5 {
		t.Fatalf("unexpected poll timing: %v / %v", cfg.PollInterval(), cfg.ErrorBackoff())
	}
	if len(cfg.Workflow.TargetColumns) != len(config.DefaultTargetColumns) {
		t.Fatalf("unexpected target columns: %v", cfg.Workflow.TargetColumns)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "techxfer.toml")

	type payload struct {
		API struct {
			BaseURL string `toml:"base_url"`
			Token   string `toml:"token"`
		} `toml:"api"`
		Workflow struct {
			PollIntervalSeconds int `toml:"poll_interval_seconds"`
			MaxPollAttempts     int `toml:"max_poll_attempts"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.API.BaseURL = "https://transfer.example.com/"
	custom.API.Token = "file-token"
	custom.Workflow.PollIntervalSeconds = 4
	custom.Workflow.MaxPollAttempts = 10
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.API.BaseURL != "https://transfer.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "file-token" {
		t.Fatalf("expected token from file, got %q", cfg.API.Token)
	}
	if cfg.Workflow.PollIntervalSeconds != 4 || cfg.Workflow.MaxPollAttempts != 10 {
		t.Fatalf("unexpected workflow overrides: %+v", cfg.Workflow)
	}
	if cfg.Workflow.ErrorBackoffSeconds != 5 {
		t.Fatalf("expected default error backoff, got %d", cfg.Workflow.ErrorBackoffSeconds)
	}
}

func TestLoadReadsTokenFromDotEnv(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "techxfer.toml")
	if err := os.WriteFile(configPath, []byte("[api]\nbase_url = \"http://127.0.0.1:9000\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("TECHXFER_API_TOKEN=dotenv-token\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("TECHXFER_API_TOKEN", "")
	os.Unsetenv("TECHXFER_API_TOKEN")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Token != "dotenv-token" {
		t.Fatalf("expected token from .env, got %q", cfg.API.Token)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"relative base url", func(c *config.Config) { c.API.BaseURL = "localhost" }, "api.base_url"},
		{"ftp base url", func(c *config.Config) { c.API.BaseURL = "ftp://host" }, "scheme"},
		{"zero poll", func(c *config.Config) { c.Workflow.PollIntervalSeconds = 0 }, "workflow.poll_interval_seconds"},
		{"negative ceiling", func(c *config.Config) { c.Workflow.MaxPollAttempts = -1 }, "workflow.max_poll_attempts"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bare ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRequireToken(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireToken(); err == nil || !strings.Contains(err.Error(), "TECHXFER_API_TOKEN") {
		t.Fatalf("expected missing token error, got %v", err)
	}
	cfg.API.Token = "x"
	if err := cfg.RequireToken(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Workflow.MaxPollAttempts != 900 {
		t.Fatalf("unexpected sample ceiling: %d", cfg.Workflow.MaxPollAttempts)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\ntoken = \"x\"\npoll_interval = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "poll_interval") {
		t.Fatalf("expected unknown key error naming poll_interval, got %v", err)
	}
}
