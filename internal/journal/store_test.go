package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gamereporter/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []journal.Entry{
		{MatchID: "m1", Mode: "RANKED", Result: journal.ResultDelivered, Attempts: 1, Upload: journal.UploadDone, ISOHash: "abc", RecordedAt: base},
		{MatchID: "m2", Mode: "UNRANKED", Result: journal.ResultDropped, Attempts: 5, Error: "graphql network", RecordedAt: base.Add(time.Minute)},
		{MatchID: "m3", Mode: "DIRECT", Result: journal.ResultDelivered, Attempts: 2, Upload: journal.UploadFailed, RecordedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].MatchID != "m3" || recent[1].MatchID != "m2" {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[1].Upload != journal.UploadNone || recent[1].Error != "graphql network" {
		t.Fatalf("defaults not applied: %+v", recent[1])
	}
	if recent[0].ID == "" {
		t.Fatal("expected generated id")
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Delivered != 2 || summary.Dropped != 1 || summary.UploadFailure != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	removed, err := store.Prune(ctx, base.Add(30*time.Second))
	if err != nil || removed != 1 {
		t.Fatalf("Prune removed %d, err %v", removed, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), journal.Entry{MatchID: "m", Mode: "RANKED", Result: journal.ResultDelivered}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	recent, err := reopened.Recent(context.Background(), 10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d (%v)", len(recent), err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := journal.Open(path); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
