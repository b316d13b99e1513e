package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gamereporter/internal/ipc"
	"gamereporter/internal/journal"
	"gamereporter/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, "", env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.socketPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.daemon.CreateReporter(); err != nil {
		t.Fatalf("CreateReporter: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon:")
	requireContains(t, out, "running=yes")
	requireContains(t, out, "Reporters:")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status ipc.StatusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status json: %v", err)
	}
	if !status.Running || status.Reporters != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	entries := []journal.Entry{
		{MatchID: "mode.ranked-1", Mode: "RANKED", Result: journal.ResultDelivered, Attempts: 1, Upload: journal.UploadDone},
		{MatchID: "mode.direct-2", Mode: "DIRECT", Result: journal.ResultDropped, Attempts: 5, Upload: journal.UploadNone, Error: "status: 502"},
	}
	for _, e := range entries {
		if err := env.store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	out, _, err := runCLI(t, []string{"history", "-n", "10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "mode.ranked-1")
	requireContains(t, out, "Ranked")
	requireContains(t, out, "Dropped")
	requireContains(t, out, "Delivered: 1  Dropped: 1")
}

func TestStatusWithoutDaemonExplainsHowToStart(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	socket := filepath.Join(t.TempDir(), "missing.sock")
	_, _, err := runCLI(t, []string{"status"}, socket, "")
	if err == nil {
		t.Fatal("expected dial failure")
	}
	requireContains(t, err.Error(), "gamereporter run")
}

func TestISOCommandReportsHash(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "game.iso")
	testsupport.WriteFile(t, path, 100*1024)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read iso: %v", err)
	}
	sum := md5.Sum(data)

	out, _, err := runCLI(t, []string{"iso", path}, "", "")
	if err != nil {
		t.Fatalf("iso: %v", err)
	}
	requireContains(t, out, "Safe")
	requireContains(t, out, hex.EncodeToString(sum[:]))

	if _, _, err := runCLI(t, []string{"iso", filepath.Join(t.TempDir(), "absent.iso")}, "", ""); err == nil {
		t.Fatal("expected missing image to fail")
	}
}

func TestEnvelopeWrapUnwrapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	raw := bytes.Repeat([]byte{0x35, 0x36, 0x37, 0x38}, 512)
	input := filepath.Join(dir, "game.slp.raw")
	if err := os.WriteFile(input, raw, 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	for _, gzip := range []string{"--gzip=true", "--gzip=false"} {
		t.Run(gzip, func(t *testing.T) {
			wrapped := filepath.Join(dir, "wrapped"+gzip)
			restored := filepath.Join(dir, "restored"+gzip)
			if _, _, err := runCLI(t, []string{"envelope", "wrap", gzip, input, wrapped}, "", ""); err != nil {
				t.Fatalf("wrap: %v", err)
			}
			out, _, err := runCLI(t, []string{"envelope", "unwrap", wrapped, restored}, "", "")
			if err != nil {
				t.Fatalf("unwrap: %v", err)
			}
			requireContains(t, out, "Wrote 2048 raw bytes")
			got, err := os.ReadFile(restored)
			if err != nil {
				t.Fatalf("read restored: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Fatal("restored bytes differ from input")
			}
		})
	}
}
