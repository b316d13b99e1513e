package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	ISO      string `toml:"iso"`
	UserJSON string `toml:"user_json"`
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	Socket   string `toml:"socket"`
}

// API contains configuration for the remote GraphQL service.
type API struct {
	GraphQLURL     string `toml:"graphql_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ClientVersion  string `toml:"client_version"`
	Build          string `toml:"build"`
	IPv4Only       bool   `toml:"ipv4_only"`
}

// Reporter contains retry and delivery settings for the report pipeline.
type Reporter struct {
	MaxAttempts     int    `toml:"max_attempts"`
	BackoffStepMS   int    `toml:"backoff_step_ms"`
	UploadMaxBytes  int64  `toml:"upload_max_bytes"`
	StatusQueueSize int    `toml:"status_queue_size"`
	UploadTimeout   int    `toml:"upload_timeout_seconds"`
	ContentRangeHdr string `toml:"content_range_header"`
}

// Journal contains configuration for the SQLite delivery journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Metrics contains configuration for the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the reporter daemon.
//
// Configuration sections by subsystem:
//   - Paths: game image, identity file, data/log directories, host socket
//   - API: GraphQL endpoint and HTTP client behavior
//   - Reporter: retry cap, backoff step, upload limits
//   - Journal: SQLite delivery history
//   - Metrics: Prometheus exposition
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	API      API      `toml:"api"`
	Reporter Reporter `toml:"reporter"`
	Journal  Journal  `toml:"journal"`
	Metrics  Metrics  `toml:"metrics"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gamereporter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the host bridge socket location.
func (c *Config) SocketPath() string {
	if strings.TrimSpace(c.Paths.Socket) != "" {
		return c.Paths.Socket
	}
	return filepath.Join(c.Paths.DataDir, "gamereporter.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "gamereporter.lock")
}

// JournalPath returns the SQLite journal location.
func (c *Config) JournalPath() string {
	if strings.TrimSpace(c.Journal.Path) != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.Paths.DataDir, "journal.db")
}

// UserAgent returns the HTTP user agent advertised to the remote service.
func (c *Config) UserAgent() string {
	return fmt.Sprintf("SlippiDolphin/%s (%s) (Go)", c.API.Build, c.API.ClientVersion)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
