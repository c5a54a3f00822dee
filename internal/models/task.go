package models

import (
	"encoding/json"
	"time"
)

// Owner describes the person responsible for a task.
type Owner struct {
	ID    ID     `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Label returns the most readable identifier of the owner.
func (o *Owner) Label() string {
	switch {
	case o == nil:
		return ""
	case o.Name != "":
		return o.Name
	case o.Email != "":
		return o.Email
	default:
		return o.ID.String()
	}
}

// Task is a unit of project work.
type Task struct {
	ID             ID        `json:"id"`
	ProjectID      string    `json:"projectId"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status,omitempty"`
	Priority       string    `json:"priority,omitempty"`
	DueDate        Timestamp `json:"dueDate,omitempty"`
	StartDate      Timestamp `json:"startDate,omitempty"`
	EstimatedHours *float64  `json:"estimatedHours,omitempty"`
	Owner          *Owner    `json:"owner,omitempty"`
	Revision       string    `json:"revision,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Content returns the canonical encoding of the user-editable fields.
func (t Task) Content() []byte {
	t.Revision = ""
	t.CreatedAt = time.Time{}
	t.UpdatedAt = time.Time{}
	data, _ := json.Marshal(t)
	return data
}

// Project groups events and tasks. Timezone names the IANA zone that
// defines local days for the project; empty means the server default.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Location resolves the project timezone, falling back to def.
func (p Project) Location(def *time.Location) *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	if def == nil {
		return time.Local
	}
	return def
}

// Hours is a convenience for building optional estimates.
func Hours(h float64) *float64 { return &h }
