package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/models"
)

// Postgres is a Store backed by a PostgreSQL pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and bootstraps the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'event',
			start_at TEXT NOT NULL DEFAULT '',
			end_at TEXT NOT NULL DEFAULT '',
			all_day BOOLEAN NOT NULL DEFAULT FALSE,
			location TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			source TEXT NOT NULL DEFAULT '',
			revision TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (project_id, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_source ON events (project_id, source);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			due_date TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL DEFAULT '',
			estimated_hours DOUBLE PRECISION NULL,
			owner TEXT NULL,
			revision TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (project_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS ics_imports (
			source TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			checksum TEXT NOT NULL DEFAULT '',
			imported_at TIMESTAMPTZ NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// CreateProject inserts a new project.
func (s *Postgres) CreateProject(ctx context.Context, p models.Project) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO projects (id, name, timezone, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5) ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Name, p.Timezone, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrAlreadyExists
	}
	return nil
}

// GetProject returns one project.
func (s *Postgres) GetProject(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, timezone, created_at, updated_at FROM projects WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Project{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("store: get project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project ordered by name.
func (s *Postgres) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, timezone, created_at, updated_at FROM projects ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Timezone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and everything it owns.
func (s *Postgres) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	return pgAffected(tag)
}

const pgUpsertEventSQL = `INSERT INTO events (
		project_id, id, title, category, start_at, end_at, all_day, location,
		metadata, source, revision, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (project_id, id) DO UPDATE SET
		title=EXCLUDED.title,
		category=EXCLUDED.category,
		start_at=EXCLUDED.start_at,
		end_at=EXCLUDED.end_at,
		all_day=EXCLUDED.all_day,
		location=EXCLUDED.location,
		metadata=EXCLUDED.metadata,
		source=EXCLUDED.source,
		revision=EXCLUDED.revision,
		updated_at=EXCLUDED.updated_at`

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pgUpsertEvent(ctx context.Context, db pgExecer, ev models.CalendarEvent) error {
	_, err := db.Exec(ctx, pgUpsertEventSQL,
		ev.ProjectID, string(ev.ID), ev.Title, string(ev.Category),
		string(ev.StartAt), string(ev.EndAt), ev.AllDay, ev.Location,
		encodeMetadata(ev.Metadata), ev.Source, ev.Revision, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert event: %w", err)
	}
	return nil
}

// UpsertEvent inserts or replaces an event.
func (s *Postgres) UpsertEvent(ctx context.Context, ev models.CalendarEvent) error {
	return pgUpsertEvent(ctx, s.pool, ev)
}

const pgSelectEventSQL = `SELECT project_id, id, title, category, start_at, end_at, all_day,
		location, metadata, source, revision, created_at, updated_at FROM events`

// GetEvent returns one event.
func (s *Postgres) GetEvent(ctx context.Context, projectID string, id models.ID) (models.CalendarEvent, error) {
	row := s.pool.QueryRow(ctx, pgSelectEventSQL+` WHERE project_id=$1 AND id=$2`, projectID, string(id))
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CalendarEvent{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("store: get event: %w", err)
	}
	return ev, nil
}

// ListEvents returns the events of a project in insertion order.
func (s *Postgres) ListEvents(ctx context.Context, projectID string) ([]models.CalendarEvent, error) {
	rows, err := s.pool.Query(ctx, pgSelectEventSQL+` WHERE project_id=$1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	out := []models.CalendarEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteEvent removes one event.
func (s *Postgres) DeleteEvent(ctx context.Context, projectID string, id models.ID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE project_id=$1 AND id=$2`, projectID, string(id))
	if err != nil {
		return fmt.Errorf("store: delete event: %w", err)
	}
	return pgAffected(tag)
}

// ReplaceSourceEvents swaps the events of an import source in one transaction.
func (s *Postgres) ReplaceSourceEvents(ctx context.Context, projectID, source string, events []models.CalendarEvent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM events WHERE project_id=$1 AND source=$2`, projectID, source); err != nil {
		return fmt.Errorf("store: clear source events: %w", err)
	}
	for _, ev := range events {
		ev.ProjectID = projectID
		ev.Source = source
		if err := pgUpsertEvent(ctx, tx, ev); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// UpsertTask inserts or replaces a task.
func (s *Postgres) UpsertTask(ctx context.Context, t models.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (
			project_id, id, title, description, status, priority, due_date, start_date,
			estimated_hours, owner, revision, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (project_id, id) DO UPDATE SET
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			status=EXCLUDED.status,
			priority=EXCLUDED.priority,
			due_date=EXCLUDED.due_date,
			start_date=EXCLUDED.start_date,
			estimated_hours=EXCLUDED.estimated_hours,
			owner=EXCLUDED.owner,
			revision=EXCLUDED.revision,
			updated_at=EXCLUDED.updated_at`,
		t.ProjectID, string(t.ID), t.Title, t.Description, t.Status, t.Priority,
		string(t.DueDate), string(t.StartDate), t.EstimatedHours, encodeOwner(t.Owner),
		t.Revision, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upsert task: %w", err)
	}
	return nil
}

const pgSelectTaskSQL = `SELECT project_id, id, title, description, status, priority, due_date,
		start_date, estimated_hours, owner, revision, created_at, updated_at FROM tasks`

func pgScanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	var id, due, start string
	var hours *float64
	var owner *string
	if err := row.Scan(&t.ProjectID, &id, &t.Title, &t.Description, &t.Status, &t.Priority,
		&due, &start, &hours, &owner, &t.Revision, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Task{}, err
	}
	t.ID = models.ID(id)
	t.DueDate = models.Timestamp(due)
	t.StartDate = models.Timestamp(start)
	t.EstimatedHours = hours
	t.Owner = decodeOwner(owner)
	return t, nil
}

// GetTask returns one task.
func (s *Postgres) GetTask(ctx context.Context, projectID string, id models.ID) (models.Task, error) {
	row := s.pool.QueryRow(ctx, pgSelectTaskSQL+` WHERE project_id=$1 AND id=$2`, projectID, string(id))
	t, err := pgScanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("store: get task: %w", err)
	}
	return t, nil
}

// ListTasks returns the tasks of a project in insertion order.
func (s *Postgres) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx, pgSelectTaskSQL+` WHERE project_id=$1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := pgScanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTask removes one task.
func (s *Postgres) DeleteTask(ctx context.Context, projectID string, id models.ID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE project_id=$1 AND id=$2`, projectID, string(id))
	if err != nil {
		return fmt.Errorf("store: delete task: %w", err)
	}
	return pgAffected(tag)
}

// ImportChecksums returns the checksum recorded for every import source.
func (s *Postgres) ImportChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, checksum FROM ics_imports`)
	if err != nil {
		return nil, fmt.Errorf("store: import checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var src, cs string
		if err := rows.Scan(&src, &cs); err != nil {
			return nil, fmt.Errorf("store: scan import: %w", err)
		}
		out[src] = cs
	}
	return out, rows.Err()
}

// RecordImport stores the checksum of the latest import of source.
func (s *Postgres) RecordImport(ctx context.Context, source, projectID, checksum string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ics_imports (source, project_id, checksum, imported_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (source) DO UPDATE SET
			project_id=EXCLUDED.project_id,
			checksum=EXCLUDED.checksum,
			imported_at=EXCLUDED.imported_at`,
		source, projectID, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: record import: %w", err)
	}
	return nil
}

// ForgetImport removes the import record of source and its events.
func (s *Postgres) ForgetImport(ctx context.Context, source string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM events WHERE source=$1`, source); err != nil {
		return fmt.Errorf("store: forget import events: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM ics_imports WHERE source=$1`, source); err != nil {
		return fmt.Errorf("store: forget import: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

func pgAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
