package testsupport

import (
	"testing"

	"labelsheet/internal/config"
	"labelsheet/internal/journal"
)

// MustOpenJournal opens a journal store against the test config and registers
// cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("open journal store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close journal store: %v", err)
		}
	})
	return store
}
