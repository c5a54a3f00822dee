package ics

import (
	"strings"
	"time"

	"github.com/starford/planboard/internal/checksum"
	"github.com/starford/planboard/internal/models"
)

// EventID derives a stable event id from a feed UID and the recurrence
// instance. Re-importing the same feed yields the same ids.
func EventID(uid string, instance time.Time) models.ID {
	key := uid
	if !instance.IsZero() {
		key += "|" + instance.UTC().Format(time.RFC3339)
	}
	return models.ID("ics-" + checksum.Sum([]byte(key))[:20])
}

// CategoryOf picks the first CATEGORIES value naming a known category.
func CategoryOf(categories []string) models.Category {
	for _, c := range categories {
		cat := models.Category(strings.ToLower(strings.TrimSpace(c)))
		if cat.Known() {
			return cat
		}
	}
	return models.CategoryEvent
}

// ToCalendarEvents maps occurrences onto project calendar events. Times are
// rendered in loc; all-day occurrences carry date-only timestamps.
func ToCalendarEvents(projectID string, occurrences []Occurrence, loc *time.Location) []models.CalendarEvent {
	if loc == nil {
		loc = time.Local
	}
	out := make([]models.CalendarEvent, 0, len(occurrences))
	for _, occ := range occurrences {
		ev := occ.Event
		meta := models.Metadata{models.MetaICSUID: ev.UID}
		if !occ.Instance.IsZero() {
			meta[models.MetaICSInstance] = occ.Instance.UTC().Format(time.RFC3339)
		}
		if ev.TaskID != "" {
			meta[models.MetaTaskID] = ev.TaskID
		}
		if d := strings.TrimSpace(ev.Description); d != "" {
			meta[models.MetaDescription] = d
		}

		title := strings.TrimSpace(ev.Summary)
		if title == "" {
			title = "(untitled)"
		}

		ce := models.CalendarEvent{
			ID:        EventID(ev.UID, occ.Instance),
			ProjectID: projectID,
			Title:     title,
			Category:  CategoryOf(ev.Categories),
			AllDay:    ev.AllDay,
			Location:  ev.Location,
			Metadata:  meta,
		}
		if ev.AllDay {
			ce.StartAt = models.DateTimestamp(occ.Start)
			ce.EndAt = models.DateTimestamp(occ.End)
		} else {
			ce.StartAt = models.NewTimestamp(occ.Start.In(loc))
			ce.EndAt = models.NewTimestamp(occ.End.In(loc))
		}
		out = append(out, ce)
	}
	return out
}

// Import parses body, expands recurrences inside w and converts the result.
func Import(projectID string, body []byte, w Window, loc *time.Location) ([]models.CalendarEvent, error) {
	parsed, err := Parse(body, loc)
	if err != nil {
		return nil, err
	}
	occ, err := Expand(parsed, w)
	if err != nil {
		return nil, err
	}
	return ToCalendarEvents(projectID, occ, loc), nil
}
