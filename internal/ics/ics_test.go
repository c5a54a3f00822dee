package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/planboard/internal/models"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:single-1
DTSTAMP:20250301T000000Z
DTSTART:20250311T090000Z
DTEND:20250311T110000Z
SUMMARY:Design review
DESCRIPTION:Walk through the mockups
CATEGORIES:WORKSHOP
X-PLANBOARD-TASK-ID:42
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
DTSTAMP:20250301T000000Z
DTSTART:20250310T100000Z
DTEND:20250310T103000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20250317T100000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
DTSTAMP:20250301T000000Z
RECURRENCE-ID:20250324T100000Z
DTSTART:20250324T140000Z
DTEND:20250324T143000Z
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
UID:holiday-1
DTSTAMP:20250301T000000Z
DTSTART;VALUE=DATE:20250314
DTEND;VALUE=DATE:20250315
SUMMARY:Company holiday
CATEGORIES:Holiday
END:VEVENT
BEGIN:VEVENT
DTSTART:20250315T090000Z
SUMMARY:No UID is skipped
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte { return []byte(strings.ReplaceAll(s, "\n", "\r\n")) }

var march = Window{
	Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
}

func TestParse(t *testing.T) {
	events, err := Parse(crlf(feed), time.UTC)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}
	single := events[0]
	if single.UID != "single-1" || single.TaskID != "42" || single.Categories[0] != "WORKSHOP" {
		t.Errorf("single = %+v", single)
	}
	if single.End.Sub(single.Start) != 2*time.Hour {
		t.Errorf("duration = %v", single.End.Sub(single.Start))
	}
	if events[1].RawRRule != "FREQ=WEEKLY;COUNT=4" || len(events[1].ExDates) != 1 {
		t.Errorf("weekly = %+v", events[1])
	}
	if events[2].Recurrence == nil {
		t.Error("override should carry RECURRENCE-ID")
	}
	if !events[3].AllDay {
		t.Error("VALUE=DATE should be all day")
	}
}

func TestParse_TZIDAndEmpty(t *testing.T) {
	body := crlf(`BEGIN:VCALENDAR
BEGIN:VEVENT
UID:tz-1
DTSTART;TZID=Europe/Berlin:20250312T090000
SUMMARY:Berlin morning
END:VEVENT
END:VCALENDAR
`)
	events, err := Parse(body, time.UTC)
	if err != nil || len(events) != 1 {
		t.Fatalf("Parse = %v, %v", events, err)
	}
	if want := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC); !events[0].Start.Equal(want) {
		t.Errorf("start = %v, want %v", events[0].Start, want)
	}
	if !events[0].End.Equal(events[0].Start) {
		t.Error("missing DTEND should collapse to start")
	}

	if _, err := Parse([]byte("  \n"), time.UTC); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty = %v", err)
	}
}

func TestExpand(t *testing.T) {
	parsed, _ := Parse(crlf(feed), time.UTC)
	occ, err := Expand(parsed, march)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	var titles []string
	for _, o := range occ {
		titles = append(titles, o.Event.Summary+"@"+o.Start.Format("01-02T15"))
	}
	want := "Standup@03-10T10,Design review@03-11T09,Company holiday@03-14T00,Standup (moved)@03-24T14,Standup@03-31T10"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("occurrences:\n got %s\nwant %s", got, want)
	}
	if _, err := Expand(parsed, Window{Start: march.End, End: march.Start}); err == nil {
		t.Error("inverted window should fail")
	}
}

func TestExpand_WindowLimitsRecurrenceOnly(t *testing.T) {
	parsed, _ := Parse(crlf(feed), time.UTC)
	w := Window{Start: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)}
	occ, _ := Expand(parsed, w)
	// single + holiday are kept, only the moved standup falls in the window.
	if len(occ) != 3 {
		t.Errorf("occurrences = %d, want 3", len(occ))
	}
}

func TestToCalendarEvents(t *testing.T) {
	events, err := Import("p1", crlf(feed), march, time.UTC)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("events = %d", len(events))
	}
	byTitle := map[string]models.CalendarEvent{}
	for _, ev := range events {
		byTitle[ev.Title] = ev
	}

	review := byTitle["Design review"]
	if review.Category != models.CategoryWorkshop || review.ID != EventID("single-1", time.Time{}) {
		t.Errorf("review = %+v", review)
	}
	if id, ok := review.LinkedTaskID(); !ok || id != "42" {
		t.Errorf("task link lost: %q", id)
	}
	if review.StartAt != "2025-03-11T09:00:00Z" || review.Metadata[models.MetaDescription] != "Walk through the mockups" {
		t.Errorf("review = %+v", review)
	}

	holiday := byTitle["Company holiday"]
	if !holiday.AllDay || holiday.StartAt != "2025-03-14" || holiday.EndAt != "2025-03-15" || holiday.Category != models.CategoryHoliday {
		t.Errorf("holiday = %+v", holiday)
	}

	moved := byTitle["Standup (moved)"]
	if moved.ID != EventID("weekly-1", time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("override should keep its instance id, got %s", moved.ID)
	}

	again, _ := Import("p1", crlf(feed), march, time.UTC)
	for i := range events {
		if events[i].ID != again[i].ID {
			t.Fatalf("ids must be deterministic: %s vs %s", events[i].ID, again[i].ID)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	if got := CategoryOf([]string{"MEETING", "Focus"}); got != models.CategoryFocus {
		t.Errorf("got %s", got)
	}
	if got := CategoryOf(nil); got != models.CategoryEvent {
		t.Errorf("default = %s", got)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	p := models.Project{ID: "p1", Name: "Launch", Timezone: "UTC"}
	events := []models.CalendarEvent{
		{
			ID: "e1", Title: "Deep work", Category: models.CategoryFocus,
			StartAt: "2025-03-11T09:00:00Z", EndAt: "2025-03-11T12:00:00Z",
			Metadata: models.Metadata{models.MetaTaskID: float64(7)},
		},
		{
			ID: "e2", Title: "Offsite", Category: models.CategoryHoliday, AllDay: true,
			StartAt: "2025-03-14", EndAt: "2025-03-15",
		},
		{ID: "e3", Title: "Broken", StartAt: "soon"},
	}
	body := Export(p, events, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(body, "X-PLANBOARD-TASK-ID:7") {
		t.Errorf("task link not exported:\n%s", body)
	}
	if strings.Contains(body, "Broken") {
		t.Error("events without a valid start must be skipped")
	}

	parsed, err := Parse([]byte(body), time.UTC)
	if err != nil {
		t.Fatalf("Parse exported: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("parsed = %d", len(parsed))
	}
	back := ToCalendarEvents("p1", []Occurrence{
		{Event: parsed[0], Start: parsed[0].Start, End: parsed[0].End},
		{Event: parsed[1], Start: parsed[1].Start, End: parsed[1].End},
	}, time.UTC)
	if id, ok := back[0].LinkedTaskID(); !ok || id != "7" || back[0].Category != models.CategoryFocus {
		t.Errorf("focus event = %+v", back[0])
	}
	if back[0].StartAt != "2025-03-11T09:00:00Z" || back[0].EndAt != "2025-03-11T12:00:00Z" {
		t.Errorf("times = %s..%s", back[0].StartAt, back[0].EndAt)
	}
	if !back[1].AllDay || back[1].StartAt != "2025-03-14" {
		t.Errorf("all-day event = %+v", back[1])
	}
}
