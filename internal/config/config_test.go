package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"gamereporter/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
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

	wantData := filepath.Join(tempHome, ".local", "share", "gamereporter")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.ISO != "" {
		t.Fatalf("expected empty iso path by default, got %q", cfg.Paths.ISO)
	}
	if cfg.API.GraphQLURL != "https://internal.slippi.gg/graphql" {
		t.Fatalf("unexpected graphql url: %q", cfg.API.GraphQLURL)
	}
	if cfg.Reporter.MaxAttempts != 5 {
		t.Fatalf("expected 5 max attempts, got %d", cfg.Reporter.MaxAttempts)
	}
	if cfg.Reporter.BackoffStepMS != 100 {
		t.Fatalf("expected 100ms backoff step, got %d", cfg.Reporter.BackoffStepMS)
	}
	if cfg.Reporter.ContentRangeHdr != "X-Goog-Content-Length-Range" {
		t.Fatalf("unexpected content range header: %q", cfg.Reporter.ContentRangeHdr)
	}
	if cfg.SocketPath() != filepath.Join(wantData, "gamereporter.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.SocketPath())
	}
	if cfg.JournalPath() != filepath.Join(wantData, "journal.db") {
		t.Fatalf("unexpected journal path: %q", cfg.JournalPath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	custom := config.Default()
	custom.Paths.ISO = "~/games/melee.iso"
	custom.API.GraphQLURL = "http://localhost:8080/graphql"
	custom.Reporter.MaxAttempts = 3
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != cfgPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", cfgPath, resolved, exists)
	}
	if cfg.Paths.ISO != filepath.Join(tempHome, "games", "melee.iso") {
		t.Fatalf("unexpected iso path: %q", cfg.Paths.ISO)
	}
	if cfg.Reporter.MaxAttempts != 3 {
		t.Fatalf("expected 3 max attempts, got %d", cfg.Reporter.MaxAttempts)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadGraphQLURLFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvGraphQLURL, "http://127.0.0.1:9999/graphql")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.GraphQLURL != "http://127.0.0.1:9999/graphql" {
		t.Fatalf("expected env override, got %q", cfg.API.GraphQLURL)
	}
}

func TestEnvOverridesFileValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvISO, "~/games/melee.iso")
	t.Setenv(config.EnvLogLevel, "DEBUG")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[paths]\niso = \"/srv/other.iso\"\n\n[logging]\nlevel = \"warn\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if want := filepath.Join(home, "games", "melee.iso"); cfg.Paths.ISO != want {
		t.Fatalf("expected expanded env iso %q, got %q", want, cfg.Paths.ISO)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "graphql scheme",
			mutate:  func(c *config.Config) { c.API.GraphQLURL = "ftp://example.com/graphql" },
			wantErr: "api.graphql_url",
		},
		{
			name:    "attempt cap",
			mutate:  func(c *config.Config) { c.Reporter.MaxAttempts = 500 },
			wantErr: "reporter.max_attempts",
		},
		{
			name:    "log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
