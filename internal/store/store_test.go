package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/models"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "planboard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := OpenSQLite(f.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// runStoreSuite exercises the behaviour every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, s Store, id string) {
		t.Helper()
		p := models.Project{ID: id, Name: "Project " + id, Timezone: "UTC", CreatedAt: now, UpdatedAt: now}
		if err := s.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
	}

	t.Run("projects", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "p1")
		if err := s.CreateProject(ctx, models.Project{ID: "p1", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, apperr.ErrAlreadyExists) {
			t.Errorf("duplicate create = %v, want ErrAlreadyExists", err)
		}
		p, err := s.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject: %v", err)
		}
		if p.Name != "Project p1" || p.Timezone != "UTC" {
			t.Errorf("project = %+v", p)
		}
		if _, err := s.GetProject(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("missing project = %v", err)
		}
		list, err := s.ListProjects(ctx)
		if err != nil || len(list) != 1 {
			t.Fatalf("ListProjects = %v, %v", list, err)
		}
	})

	t.Run("events", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "p1")
		ev := models.CalendarEvent{
			ID: "e1", ProjectID: "p1", Title: "Standup", Category: models.CategoryEvent,
			StartAt: "2025-03-10T09:00:00Z", EndAt: "not a date",
			Metadata:  models.Metadata{models.MetaTaskID: "7", "room": "A"},
			Revision:  "r1",
			CreatedAt: now, UpdatedAt: now,
		}
		if err := s.UpsertEvent(ctx, ev); err != nil {
			t.Fatalf("UpsertEvent: %v", err)
		}
		got, err := s.GetEvent(ctx, "p1", "e1")
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		if got.EndAt != "not a date" {
			t.Errorf("raw timestamp should round-trip, got %q", got.EndAt)
		}
		if id, ok := got.LinkedTaskID(); !ok || id != "7" {
			t.Errorf("LinkedTaskID = %q, %v", id, ok)
		}

		ev.Title = "Standup (moved)"
		ev.Revision = "r2"
		if err := s.UpsertEvent(ctx, ev); err != nil {
			t.Fatalf("UpsertEvent update: %v", err)
		}
		list, err := s.ListEvents(ctx, "p1")
		if err != nil || len(list) != 1 || list[0].Title != "Standup (moved)" {
			t.Fatalf("ListEvents = %+v, %v", list, err)
		}

		if err := s.DeleteEvent(ctx, "p1", "e1"); err != nil {
			t.Fatalf("DeleteEvent: %v", err)
		}
		if err := s.DeleteEvent(ctx, "p1", "e1"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("second delete = %v", err)
		}
	})

	t.Run("tasks", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "p1")
		task := models.Task{
			ID: "t1", ProjectID: "p1", Title: "Write report", DueDate: "2025-03-12",
			EstimatedHours: models.Hours(2.5),
			Owner:          &models.Owner{Name: "Ana"},
			CreatedAt:      now, UpdatedAt: now,
		}
		if err := s.UpsertTask(ctx, task); err != nil {
			t.Fatalf("UpsertTask: %v", err)
		}
		bare := models.Task{ID: "t2", ProjectID: "p1", Title: "Bare", CreatedAt: now, UpdatedAt: now}
		if err := s.UpsertTask(ctx, bare); err != nil {
			t.Fatalf("UpsertTask bare: %v", err)
		}

		got, err := s.GetTask(ctx, "p1", "t1")
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if got.EstimatedHours == nil || *got.EstimatedHours != 2.5 {
			t.Errorf("EstimatedHours = %v", got.EstimatedHours)
		}
		if got.Owner.Label() != "Ana" {
			t.Errorf("Owner = %+v", got.Owner)
		}
		got, err = s.GetTask(ctx, "p1", "t2")
		if err != nil {
			t.Fatalf("GetTask bare: %v", err)
		}
		if got.EstimatedHours != nil || got.Owner != nil {
			t.Errorf("absent fields should stay nil: %+v", got)
		}

		list, err := s.ListTasks(ctx, "p1")
		if err != nil || len(list) != 2 {
			t.Fatalf("ListTasks = %v, %v", list, err)
		}
		if _, err := s.GetTask(ctx, "p1", "nope"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("missing task = %v", err)
		}
	})

	t.Run("replace source events", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "p1")
		manual := models.CalendarEvent{ID: "m", ProjectID: "p1", Title: "Manual", Category: models.CategoryEvent, CreatedAt: now, UpdatedAt: now}
		if err := s.UpsertEvent(ctx, manual); err != nil {
			t.Fatal(err)
		}
		batch := []models.CalendarEvent{
			{ID: "i1", Title: "Imported 1", Category: models.CategoryEvent, CreatedAt: now, UpdatedAt: now},
			{ID: "i2", Title: "Imported 2", Category: models.CategoryEvent, CreatedAt: now, UpdatedAt: now},
		}
		if err := s.ReplaceSourceEvents(ctx, "p1", "feed.ics", batch); err != nil {
			t.Fatalf("ReplaceSourceEvents: %v", err)
		}
		if err := s.ReplaceSourceEvents(ctx, "p1", "feed.ics", batch[:1]); err != nil {
			t.Fatalf("ReplaceSourceEvents again: %v", err)
		}
		list, _ := s.ListEvents(ctx, "p1")
		if len(list) != 2 {
			t.Fatalf("expected manual + 1 imported, got %d", len(list))
		}

		if err := s.RecordImport(ctx, "feed.ics", "p1", "abc"); err != nil {
			t.Fatalf("RecordImport: %v", err)
		}
		sums, err := s.ImportChecksums(ctx)
		if err != nil || sums["feed.ics"] != "abc" {
			t.Fatalf("ImportChecksums = %v, %v", sums, err)
		}
		if err := s.ForgetImport(ctx, "feed.ics"); err != nil {
			t.Fatalf("ForgetImport: %v", err)
		}
		list, _ = s.ListEvents(ctx, "p1")
		if len(list) != 1 || list[0].ID != "m" {
			t.Errorf("only the manual event should remain, got %+v", list)
		}
		sums, _ = s.ImportChecksums(ctx)
		if _, ok := sums["feed.ics"]; ok {
			t.Error("import record should be gone")
		}
	})

	t.Run("delete project cascades", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "p1")
		_ = s.UpsertEvent(ctx, models.CalendarEvent{ID: "e", ProjectID: "p1", Category: models.CategoryEvent, CreatedAt: now, UpdatedAt: now})
		_ = s.UpsertTask(ctx, models.Task{ID: "t", ProjectID: "p1", CreatedAt: now, UpdatedAt: now})
		if err := s.DeleteProject(ctx, "p1"); err != nil {
			t.Fatalf("DeleteProject: %v", err)
		}
		evs, _ := s.ListEvents(ctx, "p1")
		tasks, _ := s.ListTasks(ctx, "p1")
		if len(evs) != 0 || len(tasks) != 0 {
			t.Errorf("children should be removed, got %d events %d tasks", len(evs), len(tasks))
		}
		if err := s.DeleteProject(ctx, "p1"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("second delete = %v", err)
		}
	})

	t.Run("load snapshot", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "p1")
		_ = s.UpsertEvent(ctx, models.CalendarEvent{ID: "e", ProjectID: "p1", Category: models.CategoryEvent, CreatedAt: now, UpdatedAt: now})
		_ = s.UpsertTask(ctx, models.Task{ID: "t", ProjectID: "p1", CreatedAt: now, UpdatedAt: now})
		snap, err := Load(ctx, s, "p1")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if snap.Project.ID != "p1" || len(snap.Events) != 1 || len(snap.Tasks) != 1 {
			t.Errorf("snapshot = %+v", snap)
		}
		if _, err := Load(ctx, s, "other"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Load missing = %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return testSQLite(t) })
}

func TestSQLite_ListPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := testSQLite(t)
	now := time.Now().UTC()
	_ = s.CreateProject(ctx, models.Project{ID: "p", CreatedAt: now, UpdatedAt: now})
	for _, id := range []models.ID{"z", "a", "m"} {
		if err := s.UpsertTask(ctx, models.Task{ID: id, ProjectID: "p", CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListTasks(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "z" || list[1].ID != "a" || list[2].ID != "m" {
		t.Errorf("order = %v", list)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mysql"}); err == nil {
		t.Error("unknown driver should fail")
	}
}
