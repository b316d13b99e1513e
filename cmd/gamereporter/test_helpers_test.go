package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gamereporter/internal/config"
	"gamereporter/internal/daemon"
	"gamereporter/internal/gqlapi"
	"gamereporter/internal/ipc"
	"gamereporter/internal/journal"
	"gamereporter/internal/logging"
	"gamereporter/internal/testsupport"
)

type acceptingClient struct{}

func (acceptingClient) ReportOnlineGame(context.Context, gqlapi.OnlineGameReportInput) (gqlapi.GameResult, error) {
	return gqlapi.GameResult{Success: true}, nil
}

func (acceptingClient) ReportMatchStatus(context.Context, gqlapi.MatchStatusInput) (bool, error) {
	return true, nil
}

func (acceptingClient) ReportMatchCompletion(context.Context, gqlapi.MatchCompletionInput) (bool, error) {
	return true, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *journal.Store
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(homeDir, ".config", "gamereporter", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenJournal(t, cfg)
	logger := logging.NewNop()
	d, err := daemon.New(cfg, logger, daemon.Deps{Client: acceptingClient{}, Journal: store})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\nuser_json = %q\nsocket = %q\n\n[api]\ngraphql_url = %q\n\n[metrics]\nenabled = false\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.UserJSON,
		cfg.Paths.Socket,
		cfg.API.GraphQLURL,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
