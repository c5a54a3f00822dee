package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/models"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	timezone   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT 'event',
	start_at   TEXT NOT NULL DEFAULT '',
	end_at     TEXT NOT NULL DEFAULT '',
	all_day    INTEGER NOT NULL DEFAULT 0,
	location   TEXT NOT NULL DEFAULT '',
	metadata   TEXT NOT NULL DEFAULT '{}',
	source     TEXT NOT NULL DEFAULT '',
	revision   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (project_id, id)
);

CREATE INDEX IF NOT EXISTS idx_events_source ON events(project_id, source);

CREATE TABLE IF NOT EXISTS tasks (
	project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	id              TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT '',
	due_date        TEXT NOT NULL DEFAULT '',
	start_date      TEXT NOT NULL DEFAULT '',
	estimated_hours REAL NULL,
	owner           TEXT NULL,
	revision        TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (project_id, id)
);

CREATE TABLE IF NOT EXISTS ics_imports (
	source      TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	checksum    TEXT NOT NULL DEFAULT '',
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// CreateProject inserts a new project.
func (s *SQLite) CreateProject(ctx context.Context, p models.Project) error {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO projects (id, name, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.ID, p.Name, p.Timezone, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrAlreadyExists
	}
	return nil
}

// GetProject returns one project.
func (s *SQLite) GetProject(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := s.conn.QueryRowContext(ctx, `
		SELECT id, name, timezone, created_at, updated_at FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("store: get project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project ordered by name.
func (s *SQLite) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, timezone, created_at, updated_at FROM projects ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Timezone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project with its events, tasks and import records.
func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	return affected(res)
}

const upsertEventSQL = `
	INSERT INTO events (project_id, id, title, category, start_at, end_at, all_day,
		location, metadata, source, revision, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(project_id, id) DO UPDATE SET
		title      = excluded.title,
		category   = excluded.category,
		start_at   = excluded.start_at,
		end_at     = excluded.end_at,
		all_day    = excluded.all_day,
		location   = excluded.location,
		metadata   = excluded.metadata,
		source     = excluded.source,
		revision   = excluded.revision,
		updated_at = excluded.updated_at
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertEvent(ctx context.Context, db execer, ev models.CalendarEvent) error {
	_, err := db.ExecContext(ctx, upsertEventSQL,
		ev.ProjectID, string(ev.ID), ev.Title, string(ev.Category),
		string(ev.StartAt), string(ev.EndAt), ev.AllDay, ev.Location,
		encodeMetadata(ev.Metadata), ev.Source, ev.Revision, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert event: %w", err)
	}
	return nil
}

// UpsertEvent inserts or replaces an event.
func (s *SQLite) UpsertEvent(ctx context.Context, ev models.CalendarEvent) error {
	return upsertEvent(ctx, s.conn, ev)
}

const selectEventSQL = `
	SELECT project_id, id, title, category, start_at, end_at, all_day, location,
		metadata, source, revision, created_at, updated_at
	FROM events`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (models.CalendarEvent, error) {
	var ev models.CalendarEvent
	var id, cat, start, end, meta string
	if err := row.Scan(&ev.ProjectID, &id, &ev.Title, &cat, &start, &end, &ev.AllDay,
		&ev.Location, &meta, &ev.Source, &ev.Revision, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return models.CalendarEvent{}, err
	}
	ev.ID = models.ID(id)
	ev.Category = models.Category(cat)
	ev.StartAt = models.Timestamp(start)
	ev.EndAt = models.Timestamp(end)
	ev.Metadata = decodeMetadata(meta)
	return ev, nil
}

// GetEvent returns one event.
func (s *SQLite) GetEvent(ctx context.Context, projectID string, id models.ID) (models.CalendarEvent, error) {
	row := s.conn.QueryRowContext(ctx, selectEventSQL+` WHERE project_id = ? AND id = ?`, projectID, string(id))
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CalendarEvent{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("store: get event: %w", err)
	}
	return ev, nil
}

// ListEvents returns the events of a project in insertion order.
func (s *SQLite) ListEvents(ctx context.Context, projectID string) ([]models.CalendarEvent, error) {
	rows, err := s.conn.QueryContext(ctx, selectEventSQL+` WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	out := []models.CalendarEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteEvent removes one event.
func (s *SQLite) DeleteEvent(ctx context.Context, projectID string, id models.ID) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM events WHERE project_id = ? AND id = ?`, projectID, string(id))
	if err != nil {
		return fmt.Errorf("store: delete event: %w", err)
	}
	return affected(res)
}

// ReplaceSourceEvents swaps the events of an import source in one transaction.
func (s *SQLite) ReplaceSourceEvents(ctx context.Context, projectID, source string, events []models.CalendarEvent) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE project_id = ? AND source = ?`, projectID, source); err != nil {
		return fmt.Errorf("store: clear source events: %w", err)
	}
	for _, ev := range events {
		ev.ProjectID = projectID
		ev.Source = source
		if err := upsertEvent(ctx, tx, ev); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertTask inserts or replaces a task.
func (s *SQLite) UpsertTask(ctx context.Context, t models.Task) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO tasks (project_id, id, title, description, status, priority, due_date,
			start_date, estimated_hours, owner, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, id) DO UPDATE SET
			title           = excluded.title,
			description     = excluded.description,
			status          = excluded.status,
			priority        = excluded.priority,
			due_date        = excluded.due_date,
			start_date      = excluded.start_date,
			estimated_hours = excluded.estimated_hours,
			owner           = excluded.owner,
			revision        = excluded.revision,
			updated_at      = excluded.updated_at
	`, t.ProjectID, string(t.ID), t.Title, t.Description, t.Status, t.Priority,
		string(t.DueDate), string(t.StartDate), t.EstimatedHours, encodeOwner(t.Owner),
		t.Revision, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert task: %w", err)
	}
	return nil
}

const selectTaskSQL = `
	SELECT project_id, id, title, description, status, priority, due_date, start_date,
		estimated_hours, owner, revision, created_at, updated_at
	FROM tasks`

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	var id, due, start string
	var hours sql.NullFloat64
	var owner sql.NullString
	if err := row.Scan(&t.ProjectID, &id, &t.Title, &t.Description, &t.Status, &t.Priority,
		&due, &start, &hours, &owner, &t.Revision, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Task{}, err
	}
	t.ID = models.ID(id)
	t.DueDate = models.Timestamp(due)
	t.StartDate = models.Timestamp(start)
	if hours.Valid {
		t.EstimatedHours = models.Hours(hours.Float64)
	}
	if owner.Valid {
		t.Owner = decodeOwner(&owner.String)
	}
	return t, nil
}

// GetTask returns one task.
func (s *SQLite) GetTask(ctx context.Context, projectID string, id models.ID) (models.Task, error) {
	row := s.conn.QueryRowContext(ctx, selectTaskSQL+` WHERE project_id = ? AND id = ?`, projectID, string(id))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("store: get task: %w", err)
	}
	return t, nil
}

// ListTasks returns the tasks of a project in insertion order.
func (s *SQLite) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	rows, err := s.conn.QueryContext(ctx, selectTaskSQL+` WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTask removes one task. Events linking to it are left alone; the
// link is soft.
func (s *SQLite) DeleteTask(ctx context.Context, projectID string, id models.ID) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ? AND id = ?`, projectID, string(id))
	if err != nil {
		return fmt.Errorf("store: delete task: %w", err)
	}
	return affected(res)
}

// ImportChecksums returns the checksum recorded for every import source.
func (s *SQLite) ImportChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT source, checksum FROM ics_imports`)
	if err != nil {
		return nil, fmt.Errorf("store: import checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var src, cs string
		if err := rows.Scan(&src, &cs); err != nil {
			return nil, err
		}
		out[src] = cs
	}
	return out, rows.Err()
}

// RecordImport stores the checksum of the latest import of source.
func (s *SQLite) RecordImport(ctx context.Context, source, projectID, checksum string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO ics_imports (source, project_id, checksum, imported_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			project_id  = excluded.project_id,
			checksum    = excluded.checksum,
			imported_at = excluded.imported_at
	`, source, projectID, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: record import: %w", err)
	}
	return nil
}

// ForgetImport removes the import record of source and its events.
func (s *SQLite) ForgetImport(ctx context.Context, source string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE source = ?`, source); err != nil {
		return fmt.Errorf("store: forget import events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ics_imports WHERE source = ?`, source); err != nil {
		return fmt.Errorf("store: forget import: %w", err)
	}
	return tx.Commit()
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
