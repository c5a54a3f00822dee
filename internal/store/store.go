// Package store persists projects, calendar events and tasks. It is the
// record store the scheduling engine reads snapshots from.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/planboard/internal/models"
)

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store defines the persistence operations. Consumers depend on this
// interface rather than a concrete backend.
type Store interface {
	CreateProject(ctx context.Context, p models.Project) error
	GetProject(ctx context.Context, id string) (models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	DeleteProject(ctx context.Context, id string) error

	UpsertEvent(ctx context.Context, ev models.CalendarEvent) error
	GetEvent(ctx context.Context, projectID string, id models.ID) (models.CalendarEvent, error)
	ListEvents(ctx context.Context, projectID string) ([]models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, projectID string, id models.ID) error
	// ReplaceSourceEvents atomically swaps every event imported from source
	// with events.
	ReplaceSourceEvents(ctx context.Context, projectID, source string, events []models.CalendarEvent) error

	UpsertTask(ctx context.Context, t models.Task) error
	GetTask(ctx context.Context, projectID string, id models.ID) (models.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
	DeleteTask(ctx context.Context, projectID string, id models.ID) error

	// ImportChecksums maps each import source to the checksum last imported.
	ImportChecksums(ctx context.Context) (map[string]string, error)
	RecordImport(ctx context.Context, source, projectID, checksum string) error
	// ForgetImport drops the import record and the events it produced.
	ForgetImport(ctx context.Context, source string) error

	Close() error
}

// Verify backends satisfy Store at compile time.
var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)

// Snapshot is the full record set of one project at a point in time.
type Snapshot struct {
	Project models.Project
	Events  []models.CalendarEvent
	Tasks   []models.Task
}

// Config selects and configures a backend.
type Config struct {
	Driver      string
	SQLitePath  string
	PostgresURL string
}

// Open creates the backend named by cfg.Driver; empty means SQLite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// Load reads the project and all of its events and tasks.
func Load(ctx context.Context, s Store, projectID string) (Snapshot, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return Snapshot{}, err
	}
	events, err := s.ListEvents(ctx, projectID)
	if err != nil {
		return Snapshot{}, err
	}
	tasks, err := s.ListTasks(ctx, projectID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Project: p, Events: events, Tasks: tasks}, nil
}

func encodeMetadata(m models.Metadata) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeMetadata(raw string) models.Metadata {
	if raw == "" || raw == "{}" || raw == "null" {
		return nil
	}
	var m models.Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

func encodeOwner(o *models.Owner) *string {
	if o == nil {
		return nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func decodeOwner(raw *string) *models.Owner {
	if raw == nil || *raw == "" {
		return nil
	}
	var o models.Owner
	if err := json.Unmarshal([]byte(*raw), &o); err != nil {
		return nil
	}
	return &o
}
