package api

import (
	"time"

	"github.com/starford/planboard/internal/insights"
	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/workspace"
)

// ProjectRequest is the request body for creating a project.
type ProjectRequest struct {
	ID       string `json:"id,omitempty" example:"launch"`
	Name     string `json:"name" example:"Launch" validate:"required"`
	Timezone string `json:"timezone,omitempty" example:"Europe/Berlin"`
}

func (p ProjectRequest) project() models.Project {
	return models.Project{ID: p.ID, Name: p.Name, Timezone: p.Timezone}
}

// EventRequest is the request body for creating or replacing an event.
type EventRequest struct {
	ID       models.ID        `json:"id,omitempty"`
	Title    string           `json:"title" example:"Design review" validate:"required"`
	Category models.Category  `json:"category,omitempty" example:"workshop"`
	StartAt  models.Timestamp `json:"startAt,omitempty" example:"2025-03-11T09:00:00Z"`
	EndAt    models.Timestamp `json:"endAt,omitempty" example:"2025-03-11T11:00:00Z"`
	AllDay   bool             `json:"allDay"`
	Location string           `json:"location,omitempty"`
	Metadata models.Metadata  `json:"metadata,omitempty"`
}

func (e EventRequest) event() models.CalendarEvent {
	return models.CalendarEvent{
		ID:       e.ID,
		Title:    e.Title,
		Category: e.Category,
		StartAt:  e.StartAt,
		EndAt:    e.EndAt,
		AllDay:   e.AllDay,
		Location: e.Location,
		Metadata: e.Metadata,
	}
}

// TaskRequest is the request body for creating or replacing a task.
type TaskRequest struct {
	ID             models.ID        `json:"id,omitempty"`
	Title          string           `json:"title" example:"Write launch notes" validate:"required"`
	Description    string           `json:"description,omitempty"`
	Status         string           `json:"status,omitempty" example:"todo"`
	Priority       string           `json:"priority,omitempty" example:"high"`
	DueDate        models.Timestamp `json:"dueDate,omitempty" example:"2025-03-14"`
	StartDate      models.Timestamp `json:"startDate,omitempty"`
	EstimatedHours *float64         `json:"estimatedHours,omitempty" example:"3"`
	Owner          *models.Owner    `json:"owner,omitempty"`
}

func (t TaskRequest) task() models.Task {
	return models.Task{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		DueDate:        t.DueDate,
		StartDate:      t.StartDate,
		EstimatedHours: t.EstimatedHours,
		Owner:          t.Owner,
	}
}

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects" validate:"required"`
}

// EventListResponse wraps event listings.
type EventListResponse struct {
	Events []models.CalendarEvent `json:"events" validate:"required"`
}

// TaskListResponse wraps task listings.
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks" validate:"required"`
}

// InsightsResponse is the insights payload for one project.
type InsightsResponse = workspace.Report

// AutoplanResponse is the previewed autoplan list.
type AutoplanResponse struct {
	ProjectID    string               `json:"projectId"`
	GeneratedAt  time.Time            `json:"generatedAt"`
	Candidates   []insights.Candidate `json:"candidates"`
	Remaining    int                  `json:"remaining" example:"2"`
	Total        int                  `json:"total" example:"7"`
	OverdueCount int                  `json:"overdueCount" example:"3"`
	DueSoonCount int                  `json:"dueSoonCount" example:"4"`
}

// SlotResponse is a slot proposal for one task.
type SlotResponse struct {
	TaskID   models.ID         `json:"taskId"`
	Ready    bool              `json:"ready"`
	Proposal insights.Proposal `json:"proposal"`
}

// ScheduleRequest optionally overrides the proposed slot.
type ScheduleRequest = workspace.SlotOverride

// ImportResponse is returned after a calendar upload.
type ImportResponse struct {
	Path string `json:"path" example:"launch/upload.ics"`
}
