// Package testutil provides shared test helpers for setting up vaults,
// databases and a selection stack over them.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/vaultlens/internal/dailynote"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/storage"
	"github.com/starford/vaultlens/internal/viewservice"
)

// Now is the instant FixedClock stands still at: Wednesday 2026-10-21 12:00 UTC.
var Now = time.Date(2026, time.October, 21, 12, 0, 0, 0, time.UTC)

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) selection.Clock {
	return selection.ClockFunc(func() time.Time { return t })
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vaultlens-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// Seed writes notes to the vault and indexes them with modTime.
func Seed(t *testing.T, store storage.Provider, db *index.DB, modTime time.Time, notes map[string]string) {
	t.Helper()
	for p, content := range notes {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
		if err := db.IndexNote(p, []byte(content), modTime); err != nil {
			t.Fatalf("index %s: %v", p, err)
		}
	}
}

// Service builds a view service over store and db with daily notes in
// dailyFolder, all dates in UTC and the clock fixed at Now.
func Service(t *testing.T, store storage.Provider, db *index.DB, dailyFolder string, opts selection.Options, svcOpts ...viewservice.Option) *viewservice.Service {
	t.Helper()
	clock := FixedClock(Now)
	daily, err := dailynote.New(store, db, dailynote.Config{Folder: dailyFolder},
		dailynote.WithLocation(time.UTC), dailynote.WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	engine := selection.New(opts, selection.Collaborators{
		Daily:     daily,
		Documents: db,
		Tags:      db,
		Clock:     clock,
	})
	return viewservice.NewService(engine, store, db, append([]viewservice.Option{viewservice.WithClock(clock), viewservice.WithDailyNotes(daily)}, svcOpts...)...)
}
