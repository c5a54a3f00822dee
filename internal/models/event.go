// Package models defines the domain types for Planboard.
package models

import (
	"encoding/json"
	"time"
)

// Category classifies a calendar event.
type Category string

// Event categories.
const (
	CategoryEvent    Category = "event"
	CategoryWorkshop Category = "workshop"
	CategoryDeadline Category = "deadline"
	CategoryHoliday  Category = "holiday"
	CategoryFocus    Category = "focus"
)

// Categories lists every known category.
var Categories = []Category{CategoryEvent, CategoryWorkshop, CategoryDeadline, CategoryHoliday, CategoryFocus}

// Known reports whether c is one of the known categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Metadata keys written by the scheduling flow.
const (
	MetaTaskID             = "taskId"
	MetaTaskStatus         = "taskStatus"
	MetaTaskPriority       = "taskPriority"
	MetaTaskDueDate        = "taskDueDate"
	MetaTaskEstimatedHours = "taskEstimatedHours"
	MetaTaskOwner          = "taskOwner"
	MetaTaskSummary        = "taskSummary"
	MetaICSUID             = "icsUid"
	MetaICSInstance        = "icsInstance"
	MetaDescription        = "description"
)

// Metadata is the free-form payload attached to an event.
type Metadata map[string]any

// TaskID returns the normalized task id referenced by the metadata, if any.
func (m Metadata) TaskID() (ID, bool) {
	if m == nil {
		return "", false
	}
	return NormalizeID(m[MetaTaskID])
}

// Clone returns a shallow copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CalendarEvent is a project calendar entry.
type CalendarEvent struct {
	ID        ID        `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Category  Category  `json:"category"`
	StartAt   Timestamp `json:"startAt,omitempty"`
	EndAt     Timestamp `json:"endAt,omitempty"`
	AllDay    bool      `json:"allDay"`
	Location  string    `json:"location,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Source    string    `json:"source,omitempty"`
	Revision  string    `json:"revision,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LinkedTaskID returns the task the event references through its metadata.
func (e CalendarEvent) LinkedTaskID() (ID, bool) {
	return e.Metadata.TaskID()
}

// Content returns the canonical encoding of the user-editable fields, used
// for revision checksums.
func (e CalendarEvent) Content() []byte {
	e.Revision = ""
	e.CreatedAt = time.Time{}
	e.UpdatedAt = time.Time{}
	data, _ := json.Marshal(e)
	return data
}
