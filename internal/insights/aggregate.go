// Package insights derives scheduling insights from a project's calendar
// events and tasks: a day-bucketed timeline, coverage metrics, autoplan
// candidates and slot proposals.
//
// Every function in this package is pure. Inputs are treated as immutable
// snapshots and the current time is always supplied by the caller; local
// time means now.Location().
package insights

import (
	"math"
	"slices"
	"time"

	"github.com/starford/planboard/internal/models"
)

const (
	// TimelineDays is the number of day buckets kept in the timeline.
	TimelineDays = 5
	// UpcomingWindow bounds the upcoming commitments list.
	UpcomingWindow = 14 * 24 * time.Hour
	// UpcomingLimit caps the upcoming commitments list.
	UpcomingLimit = 4
	// DefaultEventDuration applies when an event has no usable end.
	DefaultEventDuration = time.Hour
)

// ScheduledEvent is an event with a valid start, resolved against local time.
type ScheduledEvent struct {
	Event         models.CalendarEvent `json:"event"`
	Start         time.Time            `json:"start"`
	End           time.Time            `json:"end"`
	DurationHours float64              `json:"durationHours"`
}

// DayBucket groups the events starting on one local calendar day.
type DayBucket struct {
	Date   string           `json:"date"`
	Day    time.Time        `json:"day"`
	Events []ScheduledEvent `json:"events"`
}

// Insights is the aggregated view of one project's schedule.
type Insights struct {
	Timeline         []DayBucket      `json:"timeline"`
	Upcoming         []ScheduledEvent `json:"upcoming"`
	FocusCoverage    int              `json:"focusCoverage"`
	TaskCoverage     int              `json:"taskCoverage"`
	FocusHours       int              `json:"focusHours"`
	TotalHours       float64          `json:"totalHours"`
	TasksWithDueDate int              `json:"tasksWithDueDateCount"`
	ScheduledTasks   int              `json:"scheduledTasksCount"`
	LinkedTaskIDs    models.IDSet     `json:"-"`
}

// Aggregate builds the timeline, upcoming list and coverage metrics.
// Events without a parseable start are ignored.
func Aggregate(events []models.CalendarEvent, tasks []models.Task, now time.Time) Insights {
	loc := now.Location()
	valid := ResolveEvents(events, loc)

	var focusHours, totalHours float64
	linked := make(models.IDSet)
	for _, se := range valid {
		totalHours += se.DurationHours
		if se.Event.Category == models.CategoryFocus {
			focusHours += se.DurationHours
		}
		if id, ok := se.Event.LinkedTaskID(); ok {
			linked.Add(id)
		}
	}

	dated, scheduled := 0, 0
	for _, t := range tasks {
		if _, ok := t.DueDate.Parse(loc); !ok {
			continue
		}
		dated++
		if linked.Has(t.ID) {
			scheduled++
		}
	}

	return Insights{
		Timeline:         buildTimeline(valid, loc),
		Upcoming:         upcoming(valid, now),
		FocusCoverage:    percent(focusHours, totalHours),
		TaskCoverage:     percent(float64(scheduled), float64(dated)),
		FocusHours:       int(math.Round(focusHours)),
		TotalHours:       math.Round(totalHours*10) / 10,
		TasksWithDueDate: dated,
		ScheduledTasks:   scheduled,
		LinkedTaskIDs:    linked,
	}
}

// ResolveEvents parses start and end of every event and drops the ones
// without a valid start. The result keeps input order.
func ResolveEvents(events []models.CalendarEvent, loc *time.Location) []ScheduledEvent {
	out := make([]ScheduledEvent, 0, len(events))
	for _, ev := range events {
		start, ok := ev.StartAt.Parse(loc)
		if !ok {
			continue
		}
		end, ok := ev.EndAt.Parse(loc)
		if !ok {
			end = start.Add(DefaultEventDuration)
		}
		hours := end.Sub(start).Hours()
		if hours < 0 {
			hours = 0
		}
		out = append(out, ScheduledEvent{
			Event:         ev,
			Start:         start,
			End:           end,
			DurationHours: hours,
		})
	}
	return out
}

func buildTimeline(valid []ScheduledEvent, loc *time.Location) []DayBucket {
	byDay := make(map[string]*DayBucket)
	for _, se := range valid {
		day := models.StartOfDay(se.Start.In(loc))
		key := day.Format("2006-01-02")
		b, ok := byDay[key]
		if !ok {
			b = &DayBucket{Date: key, Day: day}
			byDay[key] = b
		}
		b.Events = append(b.Events, se)
	}

	buckets := make([]DayBucket, 0, len(byDay))
	for _, b := range byDay {
		slices.SortStableFunc(b.Events, byStart)
		buckets = append(buckets, *b)
	}
	slices.SortFunc(buckets, func(a, b DayBucket) int {
		return a.Day.Compare(b.Day)
	})
	if len(buckets) > TimelineDays {
		buckets = buckets[:TimelineDays]
	}
	return buckets
}

func upcoming(valid []ScheduledEvent, now time.Time) []ScheduledEvent {
	horizon := now.Add(UpcomingWindow)
	out := make([]ScheduledEvent, 0, UpcomingLimit)
	for _, se := range valid {
		if se.Start.Before(now) || !se.Start.Before(horizon) {
			continue
		}
		out = append(out, se)
	}
	slices.SortStableFunc(out, byStart)
	if len(out) > UpcomingLimit {
		out = out[:UpcomingLimit]
	}
	return out
}

func byStart(a, b ScheduledEvent) int {
	return a.Start.Compare(b.Start)
}

// percent returns round(100*part/whole) clamped to [0,100], or 0 when whole
// is not positive.
func percent(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	p := int(math.Round(100 * part / whole))
	return max(0, min(100, p))
}
