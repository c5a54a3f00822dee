// Package report renders insights for terminals.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/starford/planboard/internal/insights"
	"github.com/starford/planboard/internal/workspace"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	goodColor    = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	badColor     = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	dimColor     = color.New(color.FgHiBlack)
)

const timeLayout = "15:04"

func coverageColor(pct int) *color.Color {
	switch {
	case pct >= 50:
		return goodColor
	case pct >= 25:
		return warningColor
	default:
		return badColor
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	_, _ = headerColor.Fprintf(w, "▸ %s\n", title)
}

// Write prints the insights and the autoplan preview of one project.
func Write(w io.Writer, r workspace.Report, plan workspace.AutoplanReport, preview int) {
	_, _ = headerColor.Fprintf(w, "Planboard · %s", r.ProjectID)
	_, _ = dimColor.Fprintf(w, " (%s, %s)\n", r.Timezone, r.GeneratedAt.Format("2006-01-02 15:04"))

	_, _ = labelColor.Fprint(w, "  Focus coverage: ")
	_, _ = coverageColor(r.FocusCoverage).Fprintf(w, "%d%%", r.FocusCoverage)
	_, _ = dimColor.Fprintf(w, "  %dh focus of %.1fh scheduled\n", r.FocusHours, r.TotalHours)
	_, _ = labelColor.Fprint(w, "  Task coverage:  ")
	_, _ = coverageColor(r.TaskCoverage).Fprintf(w, "%d%%", r.TaskCoverage)
	_, _ = dimColor.Fprintf(w, "  %d of %d dated tasks scheduled\n", r.ScheduledTasks, r.TasksWithDueDate)

	section(w, "Timeline")
	if len(r.Timeline) == 0 {
		_, _ = dimColor.Fprintln(w, "  no scheduled events")
	}
	for _, day := range r.Timeline {
		_, _ = labelColor.Fprintf(w, "  %s\n", day.Date)
		for _, se := range day.Events {
			writeEvent(w, se, "    ")
		}
	}

	section(w, "Upcoming")
	if len(r.Upcoming) == 0 {
		_, _ = dimColor.Fprintln(w, "  nothing upcoming")
	}
	for _, se := range r.Upcoming {
		writeEvent(w, se, "  "+se.Start.Format("2006-01-02")+" ")
	}

	section(w, fmt.Sprintf("Autoplan (%d overdue, %d due soon)", plan.OverdueCount, plan.DueSoonCount))
	shown, remaining := plan.Preview(preview)
	if len(shown) == 0 {
		_, _ = goodColor.Fprintln(w, "  ✓ every dated task is scheduled")
	}
	for _, c := range shown {
		writeCandidate(w, c)
	}
	if remaining > 0 {
		_, _ = dimColor.Fprintf(w, "  … and %d more\n", remaining)
	}
}

func writeEvent(w io.Writer, se insights.ScheduledEvent, indent string) {
	span := se.Start.Format(timeLayout) + "-" + se.End.Format(timeLayout)
	if se.Event.AllDay {
		span = "all day    "
	}
	_, _ = infoColor.Fprintf(w, "%s%s  ", indent, span)
	fmt.Fprint(w, se.Event.Title)
	_, _ = dimColor.Fprintf(w, " [%s]\n", se.Event.Category)
}

func writeCandidate(w io.Writer, c insights.Candidate) {
	due := c.Due.Format("2006-01-02")
	if c.Overdue {
		_, _ = badColor.Fprintf(w, "  ⚠ overdue %s  ", due)
	} else {
		_, _ = warningColor.Fprintf(w, "  • due     %s  ", due)
	}
	fmt.Fprint(w, c.Task.Title)
	var extra []string
	if c.Task.Priority != "" {
		extra = append(extra, c.Task.Priority)
	}
	if owner := c.Task.Owner.Label(); owner != "" {
		extra = append(extra, owner)
	}
	if len(extra) > 0 {
		_, _ = dimColor.Fprintf(w, " (%s)", strings.Join(extra, ", "))
	}
	fmt.Fprintln(w)
}
