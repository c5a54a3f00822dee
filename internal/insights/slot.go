package insights

import (
	"strings"
	"time"

	"github.com/starford/planboard/internal/models"
)

const (
	// SlotStartHour is the local hour proposed slots begin at.
	SlotStartHour = 9
	// DeadlineHour is the local hour used for all-day deadline fallbacks.
	DeadlineHour = 10
	// MaxSlotHours caps the proposed duration.
	MaxSlotHours = 8.0
	// summaryLimit caps the taskSummary metadata value, in runes.
	summaryLimit = 280
)

// Proposal is a prefilled calendar slot for a task. It is a suggestion only;
// nothing is persisted until the caller creates the event.
type Proposal struct {
	StartAt  *time.Time      `json:"startAt,omitempty"`
	EndAt    *time.Time      `json:"endAt,omitempty"`
	AllDay   bool            `json:"allDay"`
	Metadata models.Metadata `json:"metadata"`
}

// Ready reports whether the proposal has a start and can be submitted as is.
func (p Proposal) Ready() bool { return p.StartAt != nil }

// ProposeSlot suggests a calendar slot for task. The anchor day is the task's
// start date, else its due date; the slot starts at 09:00 local and lasts the
// estimated hours (capped at MaxSlotHours, one hour when unknown). When no
// anchor parses but the due date still names a day, an all-day proposal
// ending at 10:00 that day is returned. A valid due date always wins over an
// invalid start date. Without any usable date the proposal carries metadata
// only.
func ProposeSlot(task models.Task, loc *time.Location) Proposal {
	if loc == nil {
		loc = time.Local
	}
	p := Proposal{Metadata: slotMetadata(task)}

	anchor, ok := task.StartDate.Parse(loc)
	if !ok {
		anchor, ok = task.DueDate.Parse(loc)
	}
	if ok {
		start := models.AtClock(anchor.In(loc), SlotStartHour)
		end := start.Add(slotDuration(task.EstimatedHours))
		p.StartAt, p.EndAt = &start, &end
		return p
	}

	if day, ok := task.DueDate.Date(loc); ok {
		end := models.AtClock(day, DeadlineHour)
		p.EndAt = &end
		p.AllDay = true
	}
	return p
}

func slotDuration(estimate *float64) time.Duration {
	hours := 1.0
	if estimate != nil && *estimate > 0 {
		hours = min(*estimate, MaxSlotHours)
	}
	return time.Duration(hours * float64(time.Hour))
}

func slotMetadata(task models.Task) models.Metadata {
	m := models.Metadata{
		models.MetaTaskID:             task.ID.String(),
		models.MetaTaskPriority:       task.Priority,
		models.MetaTaskStatus:         task.Status,
		models.MetaTaskDueDate:        task.DueDate.String(),
		models.MetaTaskEstimatedHours: nil,
	}
	if task.EstimatedHours != nil {
		m[models.MetaTaskEstimatedHours] = *task.EstimatedHours
	}
	if owner := task.Owner.Label(); owner != "" {
		m[models.MetaTaskOwner] = owner
	}
	if summary := summarize(task.Description); summary != "" {
		m[models.MetaTaskSummary] = summary
	}
	return m
}

func summarize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= summaryLimit {
		return s
	}
	return strings.TrimSpace(string(r[:summaryLimit-1])) + "…"
}

// Draft turns the proposal into a calendar event ready for the store. The
// event is a focus block titled after the task.
func (p Proposal) Draft(projectID string, task models.Task) models.CalendarEvent {
	ev := models.CalendarEvent{
		ProjectID: projectID,
		Title:     task.Title,
		Category:  models.CategoryFocus,
		AllDay:    p.AllDay,
		Metadata:  p.Metadata.Clone(),
	}
	if p.StartAt != nil {
		ev.StartAt = models.NewTimestamp(*p.StartAt)
	}
	if p.EndAt != nil {
		ev.EndAt = models.NewTimestamp(*p.EndAt)
	}
	return ev
}
