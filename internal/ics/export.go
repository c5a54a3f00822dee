package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/starford/planboard/internal/insights"
	"github.com/starford/planboard/internal/models"
)

// ProductID identifies exported calendars.
const ProductID = "-//Planboard//Project Calendar//EN"

// Export serializes the events of a project with a valid start as an
// iCalendar feed. Linked tasks are carried in X-PLANBOARD-TASK-ID.
func Export(p models.Project, events []models.CalendarEvent, now time.Time) string {
	loc := p.Location(time.UTC)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if p.Name != "" {
		cal.SetXWRCalName(p.Name)
	}
	if p.Timezone != "" {
		cal.SetXWRTimezone(p.Timezone)
	}

	for _, se := range insights.ResolveEvents(events, loc) {
		ev := se.Event
		ve := cal.AddEvent(exportUID(ev))
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(ev.Title)

		if ev.AllDay {
			start := models.StartOfDay(se.Start)
			end := models.StartOfDay(se.End)
			if !end.After(start) {
				end = start.AddDate(0, 0, 1)
			}
			ve.SetAllDayStartAt(start)
			ve.SetAllDayEndAt(end)
		} else {
			ve.SetStartAt(se.Start)
			ve.SetEndAt(se.End)
		}

		if ev.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(ev.Category)))
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if d, ok := ev.Metadata[models.MetaDescription].(string); ok && d != "" {
			ve.SetDescription(d)
		}
		if id, ok := ev.LinkedTaskID(); ok {
			ve.SetProperty(PropTaskID, id.String())
		}
	}
	return cal.Serialize()
}

// exportUID reuses the feed UID of single imported events; every other
// event gets a UID derived from its id.
func exportUID(ev models.CalendarEvent) string {
	if uid, ok := ev.Metadata[models.MetaICSUID].(string); ok && uid != "" {
		if _, recurring := ev.Metadata[models.MetaICSInstance]; !recurring {
			return uid
		}
	}
	return ev.ID.String() + "@planboard"
}
