package insights

import (
	"slices"
	"time"

	"github.com/starford/planboard/internal/models"
)

const (
	// DueSoonWindow is how far ahead an unscheduled task counts as due soon.
	DueSoonWindow = 7 * 24 * time.Hour
	// DefaultPreview is the number of candidates callers show by default.
	DefaultPreview = 5
)

// Candidate is a dated task with no linked calendar event.
type Candidate struct {
	Task    models.Task `json:"task"`
	Due     time.Time   `json:"due"`
	Overdue bool        `json:"overdue"`
}

// RankUnscheduled returns the tasks that still need a calendar slot: not in
// linked, and either overdue or due within DueSoonWindow of now. The result
// is ordered by due date ascending with ties kept in input order. Overdue
// entries naturally come first since their due dates lie in the past.
func RankUnscheduled(tasks []models.Task, linked models.IDSet, now time.Time) []Candidate {
	loc := now.Location()
	horizon := now.Add(DueSoonWindow)

	out := make([]Candidate, 0)
	for _, t := range tasks {
		due, ok := t.DueDate.Parse(loc)
		if !ok || linked.Has(t.ID) {
			continue
		}
		switch {
		case due.Before(now):
			out = append(out, Candidate{Task: t, Due: due, Overdue: true})
		case !due.After(horizon):
			out = append(out, Candidate{Task: t, Due: due})
		}
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		return a.Due.Compare(b.Due)
	})
	return out
}

// Plan is the ranked candidate list with its presentational split.
type Plan struct {
	Candidates   []Candidate `json:"candidates"`
	OverdueCount int         `json:"overdueCount"`
	DueSoonCount int         `json:"dueSoonCount"`
}

// Autoplan ranks the unscheduled tasks of a project, deriving the linkage
// from events.
func Autoplan(events []models.CalendarEvent, tasks []models.Task, now time.Time) Plan {
	linked := make(models.IDSet)
	for _, se := range ResolveEvents(events, now.Location()) {
		if id, ok := se.Event.LinkedTaskID(); ok {
			linked.Add(id)
		}
	}
	return NewPlan(RankUnscheduled(tasks, linked, now))
}

// NewPlan counts the overdue and due-soon entries of a ranked list.
func NewPlan(candidates []Candidate) Plan {
	p := Plan{Candidates: candidates}
	for _, c := range candidates {
		if c.Overdue {
			p.OverdueCount++
		} else {
			p.DueSoonCount++
		}
	}
	return p
}

// Preview returns the first n candidates and how many were left out.
// n <= 0 selects DefaultPreview.
func (p Plan) Preview(n int) ([]Candidate, int) {
	if n <= 0 {
		n = DefaultPreview
	}
	if len(p.Candidates) <= n {
		return p.Candidates, 0
	}
	return p.Candidates[:n], len(p.Candidates) - n
}
