package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/planboard/internal/checksum"
	"github.com/starford/planboard/internal/models"
)

// Location returns the zone that defines local days for p.
func (s *Service) Location(p models.Project) *time.Location {
	return p.Location(s.location)
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// ImportEvents replaces the events previously imported from source with
// events. Ids are kept; revisions and timestamps are assigned here.
func (s *Service) ImportEvents(ctx context.Context, projectID, source string, events []models.CalendarEvent) (int, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	now := s.now()
	batch := make([]models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		ev.ProjectID = projectID
		ev.Source = source
		if ev.ID.IsZero() {
			ev.ID = models.ID(uuid.NewString())
		}
		if ev.Category == "" {
			ev.Category = models.CategoryEvent
		}
		if err := validateEvent(ev); err != nil {
			return 0, fmt.Errorf("import %s event %s: %w", source, ev.ID, err)
		}
		ev.CreatedAt, ev.UpdatedAt = now, now
		ev.Revision = checksum.Sum(ev.Content())
		batch = append(batch, ev)
	}
	if err := s.store.ReplaceSourceEvents(ctx, projectID, source, batch); err != nil {
		return 0, err
	}
	s.metrics.CountWrite("event", "imported")
	s.notify(KindImported, projectID, "")
	return len(batch), nil
}

// ImportChecksums maps every import source to the checksum last imported.
func (s *Service) ImportChecksums(ctx context.Context) (map[string]string, error) {
	return s.store.ImportChecksums(ctx)
}

// RecordImport remembers the checksum of the body imported from source.
func (s *Service) RecordImport(ctx context.Context, projectID, source, sum string) error {
	return s.store.RecordImport(ctx, source, projectID, sum)
}

// ForgetImport drops the events and bookkeeping of source.
func (s *Service) ForgetImport(ctx context.Context, projectID, source string) error {
	if err := s.store.ForgetImport(ctx, source); err != nil {
		return err
	}
	s.metrics.CountWrite("event", "forgotten")
	s.notify(KindImported, projectID, "")
	return nil
}
