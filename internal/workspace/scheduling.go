package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/checksum"
	"github.com/starford/planboard/internal/insights"
	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/store"
)

// ErrNoSlot is returned when a task has no usable date and the caller did
// not supply a start.
var ErrNoSlot = fmt.Errorf("%w: task has no date to anchor a slot, supply a start", apperr.ErrInvalid)

// Report is the insights payload for one project.
type Report struct {
	ProjectID   string    `json:"projectId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Timezone    string    `json:"timezone"`
	insights.Insights
}

// AutoplanReport is the ranked candidate list for one project.
type AutoplanReport struct {
	ProjectID   string    `json:"projectId"`
	GeneratedAt time.Time `json:"generatedAt"`
	insights.Plan
}

// SlotOverride replaces parts of a proposal before it is scheduled.
type SlotOverride struct {
	StartAt models.Timestamp `json:"startAt,omitempty"`
	EndAt   models.Timestamp `json:"endAt,omitempty"`
	AllDay  *bool            `json:"allDay,omitempty"`
	Title   string           `json:"title,omitempty"`
}

// snapshot loads a project and resolves "now" in its location.
func (s *Service) snapshot(ctx context.Context, projectID string) (store.Snapshot, time.Time, error) {
	snap, err := store.Load(ctx, s.store, projectID)
	if err != nil {
		return store.Snapshot{}, time.Time{}, err
	}
	loc := snap.Project.Location(s.location)
	return snap, s.clock.Now().In(loc), nil
}

// Insights computes the timeline and coverage metrics of a project.
func (s *Service) Insights(ctx context.Context, projectID string) (Report, error) {
	started := time.Now()
	snap, now, err := s.snapshot(ctx, projectID)
	if err != nil {
		return Report{}, err
	}
	res := insights.Aggregate(snap.Events, snap.Tasks, now)
	s.metrics.ObserveCompute("insights", time.Since(started))
	s.metrics.ObserveCoverage(projectID, res.FocusCoverage, res.TaskCoverage)
	return Report{
		ProjectID:   projectID,
		GeneratedAt: now,
		Timezone:    now.Location().String(),
		Insights:    res,
	}, nil
}

// Autoplan ranks the project's tasks that still need a calendar slot.
func (s *Service) Autoplan(ctx context.Context, projectID string) (AutoplanReport, error) {
	started := time.Now()
	snap, now, err := s.snapshot(ctx, projectID)
	if err != nil {
		return AutoplanReport{}, err
	}
	plan := insights.Autoplan(snap.Events, snap.Tasks, now)
	s.metrics.ObserveCompute("autoplan", time.Since(started))
	s.metrics.ObserveCandidates(projectID, len(plan.Candidates))
	return AutoplanReport{ProjectID: projectID, GeneratedAt: now, Plan: plan}, nil
}

// ProposeSlot suggests a calendar slot for a task without writing anything.
func (s *Service) ProposeSlot(ctx context.Context, projectID string, taskID models.ID) (insights.Proposal, models.Task, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return insights.Proposal{}, models.Task{}, err
	}
	task, err := s.store.GetTask(ctx, projectID, taskID.Normalize())
	if err != nil {
		return insights.Proposal{}, models.Task{}, err
	}
	started := time.Now()
	proposal := insights.ProposeSlot(task, p.Location(s.location))
	s.metrics.ObserveCompute("slot", time.Since(started))
	return proposal, task, nil
}

// ScheduleTask creates a focus event for a task from its proposal, with
// override applied on top. It fails with ErrNoSlot when no start results.
func (s *Service) ScheduleTask(ctx context.Context, projectID string, taskID models.ID, override SlotOverride) (models.CalendarEvent, error) {
	proposal, task, err := s.ProposeSlot(ctx, projectID, taskID)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	ev := proposal.Draft(projectID, task)
	if !override.StartAt.IsZero() {
		ev.StartAt = override.StartAt
	}
	if !override.EndAt.IsZero() {
		ev.EndAt = override.EndAt
	}
	if override.AllDay != nil {
		ev.AllDay = *override.AllDay
	}
	if override.Title != "" {
		ev.Title = override.Title
	}
	if ev.StartAt.IsZero() {
		return models.CalendarEvent{}, ErrNoSlot
	}
	if err := validateEvent(ev); err != nil {
		return models.CalendarEvent{}, err
	}

	ev.ID = models.ID(uuid.NewString())
	now := s.now()
	ev.CreatedAt, ev.UpdatedAt = now, now
	ev.Revision = checksum.Sum(ev.Content())
	if err := s.store.UpsertEvent(ctx, ev); err != nil {
		return models.CalendarEvent{}, err
	}
	s.metrics.CountWrite("event", "scheduled")
	s.notify(KindEventCreated, projectID, ev.ID)
	return ev, nil
}
