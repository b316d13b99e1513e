package testsupport

import (
	"testing"

	"gamereporter/internal/config"
	"gamereporter/internal/journal"
)

// MustOpenJournal opens the config's journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
