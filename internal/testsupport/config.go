package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gamereporter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Metrics stay disabled and the socket lives under the temp dir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.UserJSON = filepath.Join(base, "user.json")
	cfgVal.Paths.Socket = filepath.Join(base, "gr.sock")
	cfgVal.API.GraphQLURL = "http://127.0.0.1:1/graphql"
	cfgVal.Metrics.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithGraphQLURL points the API client at a test server.
func WithGraphQLURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.GraphQLURL = url
	}
}

// WithISO writes content as the game image and configures its path.
func WithISO(content []byte) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "game.iso")
		if err := os.WriteFile(path, content, 0o644); err != nil {
			b.t.Fatalf("write iso: %v", err)
		}
		b.cfg.Paths.ISO = path
	}
}

// WithUser writes a user.json holding the given credentials.
func WithUser(uid, playKey string) ConfigOption {
	return func(b *configBuilder) {
		body := fmt.Sprintf(`{"uid":%q,"playKey":%q}`, uid, playKey)
		if err := os.WriteFile(b.cfg.Paths.UserJSON, []byte(body), 0o600); err != nil {
			b.t.Fatalf("write user.json: %v", err)
		}
	}
}

// WithoutJournal disables the SQLite journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
