// Package testutil provides shared test helpers for setting up stores and
// inbox directories.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/storage"
	"github.com/starford/planboard/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "planboard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInbox creates a temporary inbox directory with a storage.Provider.
func TestInbox(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return fs.Root(), fs
}

// SeedProject inserts a project directly into s.
func SeedProject(t *testing.T, s store.Store, id, timezone string) models.Project {
	t.Helper()
	now := time.Now().UTC()
	p := models.Project{ID: id, Name: "Project " + id, Timezone: timezone, CreatedAt: now, UpdatedAt: now}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}
