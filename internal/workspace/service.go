// Package workspace coordinates the record store and the insights engine.
// It owns validation, revisions and change notification for projects,
// calendar events and tasks.
package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/checksum"
	"github.com/starford/planboard/internal/clock"
	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/observability"
	"github.com/starford/planboard/internal/store"
)

// Change kinds passed to ChangeFunc.
const (
	KindEventCreated = "event.created"
	KindEventUpdated = "event.updated"
	KindEventDeleted = "event.deleted"
	KindTaskCreated  = "task.created"
	KindTaskUpdated  = "task.updated"
	KindTaskDeleted  = "task.deleted"
	KindImported     = "calendar.imported"
)

// ChangeFunc is notified after every successful write.
type ChangeFunc func(kind, projectID string, id models.ID)

// Service is the application layer over a store.Store.
type Service struct {
	store    store.Store
	clock    clock.Clock
	location *time.Location
	metrics  *observability.Metrics
	onChange ChangeFunc
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the zone used for projects without a timezone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithMetrics records computations and writes in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithChangeFunc registers the write callback.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(s *Service) { s.onChange = fn }
}

// NewService creates a workspace service over st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, clock: clock.Real{}, location: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange replaces the write callback. It must be called before the
// service is shared between goroutines.
func (s *Service) OnChange(fn ChangeFunc) {
	s.onChange = fn
}

func (s *Service) notify(kind, projectID string, id models.ID) {
	if s.onChange != nil {
		s.onChange(kind, projectID, id)
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.store.ListProjects(ctx)
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id string) (models.Project, error) {
	return s.store.GetProject(ctx, id)
}

// CreateProject validates and stores a new project. An empty id is generated.
func (s *Service) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := validateProject(p); err != nil {
		return models.Project{}, err
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.store.CreateProject(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// DeleteProject removes a project with its events and tasks.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.store.DeleteProject(ctx, id)
}

// ListEvents returns the events of a project.
func (s *Service) ListEvents(ctx context.Context, projectID string) ([]models.CalendarEvent, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, projectID)
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, projectID string, id models.ID) (models.CalendarEvent, error) {
	return s.store.GetEvent(ctx, projectID, id.Normalize())
}

// CreateEvent validates and stores a new event.
func (s *Service) CreateEvent(ctx context.Context, projectID string, ev models.CalendarEvent) (models.CalendarEvent, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return models.CalendarEvent{}, err
	}
	ev.ProjectID = projectID
	ev.ID = ev.ID.Normalize()
	if ev.ID.IsZero() {
		ev.ID = models.ID(uuid.NewString())
	} else if _, err := s.store.GetEvent(ctx, projectID, ev.ID); err == nil {
		return models.CalendarEvent{}, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.CalendarEvent{}, err
	}
	if ev.Category == "" {
		ev.Category = models.CategoryEvent
	}
	if err := validateEvent(ev); err != nil {
		return models.CalendarEvent{}, err
	}

	now := s.now()
	ev.CreatedAt, ev.UpdatedAt = now, now
	ev.Revision = checksum.Sum(ev.Content())
	if err := s.store.UpsertEvent(ctx, ev); err != nil {
		return models.CalendarEvent{}, err
	}
	s.metrics.CountWrite("event", "created")
	s.notify(KindEventCreated, projectID, ev.ID)
	return ev, nil
}

// UpdateEvent replaces the editable fields of an event. A non-empty ifMatch
// must equal the stored revision.
func (s *Service) UpdateEvent(ctx context.Context, projectID string, id models.ID, ev models.CalendarEvent, ifMatch string) (models.CalendarEvent, error) {
	existing, err := s.store.GetEvent(ctx, projectID, id.Normalize())
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if ifMatch != "" && ifMatch != existing.Revision {
		return models.CalendarEvent{}, apperr.ErrConflict
	}
	ev.ID = existing.ID
	ev.ProjectID = projectID
	ev.Source = existing.Source
	if ev.Category == "" {
		ev.Category = existing.Category
	}
	if err := validateEvent(ev); err != nil {
		return models.CalendarEvent{}, err
	}

	ev.CreatedAt = existing.CreatedAt
	ev.UpdatedAt = s.now()
	ev.Revision = checksum.Sum(ev.Content())
	if err := s.store.UpsertEvent(ctx, ev); err != nil {
		return models.CalendarEvent{}, err
	}
	s.metrics.CountWrite("event", "updated")
	s.notify(KindEventUpdated, projectID, ev.ID)
	return ev, nil
}

// DeleteEvent removes one event.
func (s *Service) DeleteEvent(ctx context.Context, projectID string, id models.ID) error {
	id = id.Normalize()
	if err := s.store.DeleteEvent(ctx, projectID, id); err != nil {
		return err
	}
	s.metrics.CountWrite("event", "deleted")
	s.notify(KindEventDeleted, projectID, id)
	return nil
}

// ListTasks returns the tasks of a project.
func (s *Service) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, projectID)
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, projectID string, id models.ID) (models.Task, error) {
	return s.store.GetTask(ctx, projectID, id.Normalize())
}

// CreateTask validates and stores a new task.
func (s *Service) CreateTask(ctx context.Context, projectID string, t models.Task) (models.Task, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return models.Task{}, err
	}
	t.ProjectID = projectID
	t.ID = t.ID.Normalize()
	if t.ID.IsZero() {
		t.ID = models.ID(uuid.NewString())
	} else if _, err := s.store.GetTask(ctx, projectID, t.ID); err == nil {
		return models.Task{}, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.Task{}, err
	}
	if err := validateTask(t); err != nil {
		return models.Task{}, err
	}

	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	t.Revision = checksum.Sum(t.Content())
	if err := s.store.UpsertTask(ctx, t); err != nil {
		return models.Task{}, err
	}
	s.metrics.CountWrite("task", "created")
	s.notify(KindTaskCreated, projectID, t.ID)
	return t, nil
}

// UpdateTask replaces the editable fields of a task. A non-empty ifMatch
// must equal the stored revision.
func (s *Service) UpdateTask(ctx context.Context, projectID string, id models.ID, t models.Task, ifMatch string) (models.Task, error) {
	existing, err := s.store.GetTask(ctx, projectID, id.Normalize())
	if err != nil {
		return models.Task{}, err
	}
	if ifMatch != "" && ifMatch != existing.Revision {
		return models.Task{}, apperr.ErrConflict
	}
	t.ID = existing.ID
	t.ProjectID = projectID
	if err := validateTask(t); err != nil {
		return models.Task{}, err
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	t.Revision = checksum.Sum(t.Content())
	if err := s.store.UpsertTask(ctx, t); err != nil {
		return models.Task{}, err
	}
	s.metrics.CountWrite("task", "updated")
	s.notify(KindTaskUpdated, projectID, t.ID)
	return t, nil
}

// DeleteTask removes one task. Events linked to it keep their metadata.
func (s *Service) DeleteTask(ctx context.Context, projectID string, id models.ID) error {
	id = id.Normalize()
	if err := s.store.DeleteTask(ctx, projectID, id); err != nil {
		return err
	}
	s.metrics.CountWrite("task", "deleted")
	s.notify(KindTaskDeleted, projectID, id)
	return nil
}

// Snapshot returns the project with all of its records.
func (s *Service) Snapshot(ctx context.Context, projectID string) (store.Snapshot, error) {
	return store.Load(ctx, s.store, projectID)
}

// Ping checks that the store answers.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.store.ListProjects(ctx)
	return err
}
