package ics

import (
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/teambition/rrule-go"
)

// MaxOccurrencesPerEvent caps the expansion of a single recurring event.
const MaxOccurrencesPerEvent = 500

// Window bounds recurrence expansion. Start is inclusive, End exclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAround returns the window from before ahead of now to after past it.
func WindowAround(now time.Time, before, after time.Duration) Window {
	return Window{Start: now.Add(-before), End: now.Add(after)}
}

// Occurrence is one concrete instance of a parsed event. Instance is the
// recurrence slot the occurrence fills; it is zero for single events.
type Occurrence struct {
	Event    ParsedEvent
	Start    time.Time
	End      time.Time
	Instance time.Time
}

// Expand turns parsed events into occurrences. Non-recurring events are kept
// whatever their date; recurring ones are expanded inside w with EXDATE and
// RECURRENCE-ID overrides applied. The result is ordered by start.
func Expand(events []ParsedEvent, w Window) ([]Occurrence, error) {
	if w.End.Before(w.Start) {
		return nil, errors.New("ics: window end is before start")
	}

	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		}
	}

	out := make([]Occurrence, 0, len(events))
	for _, ev := range events {
		if ev.Recurrence != nil {
			continue
		}
		if ev.RawRRule == "" {
			out = append(out, Occurrence{Event: ev, Start: ev.Start, End: ev.End})
			continue
		}
		occ, truncated := expandRecurring(ev, overrides[ev.UID], w)
		if truncated {
			slog.Warn("ics: occurrences truncated",
				slog.String("uid", ev.UID),
				slog.Int("cap", MaxOccurrencesPerEvent))
		}
		out = append(out, occ...)
	}

	// Overrides whose base event is missing are kept as plain events.
	for uid, ovs := range overrides {
		if slices.ContainsFunc(events, func(e ParsedEvent) bool { return e.UID == uid && e.Recurrence == nil }) {
			continue
		}
		for _, ov := range ovs {
			out = append(out, Occurrence{Event: ov, Start: ov.Start, End: ov.End, Instance: *ov.Recurrence})
		}
	}

	slices.SortStableFunc(out, func(a, b Occurrence) int { return a.Start.Compare(b.Start) })
	return out, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, w Window) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		slog.Warn("ics: bad RRULE, keeping first instance",
			slog.String("uid", ev.UID),
			slog.String("rrule", ev.RawRRule),
			slog.String("error", err.Error()))
		return []Occurrence{{Event: ev, Start: ev.Start, End: ev.End}}, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	times := set.Between(w.Start.In(loc), w.End.In(loc), true)
	truncated := false
	if len(times) > MaxOccurrencesPerEvent {
		times = times[:MaxOccurrencesPerEvent]
		truncated = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(times))
	for _, start := range times {
		if !start.Before(w.End) {
			continue
		}
		occ := Occurrence{Event: ev, Start: start, End: start.Add(dur), Instance: start}
		if ov, ok := findOverride(overrides, start); ok {
			occ = Occurrence{Event: ov, Start: ov.Start, End: ov.End, Instance: start}
		}
		out = append(out, occ)
	}
	return out, truncated
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}
