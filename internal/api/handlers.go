package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planboard/internal/ics"
	"github.com/starford/planboard/internal/icsync"
	"github.com/starford/planboard/internal/insights"
	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *workspace.Service
	importer *icsync.Importer
	preview  int
}

// NewHandler creates a new Handler. importer may be nil.
func NewHandler(svc *workspace.Service, importer *icsync.Importer, preview int) *Handler {
	if preview <= 0 {
		preview = insights.DefaultPreview
	}
	return &Handler{svc: svc, importer: importer, preview: preview}
}

func eventID(r *http.Request) models.ID { return models.ID(chi.URLParam(r, "eventID")).Normalize() }
func taskID(r *http.Request) models.ID  { return models.ID(chi.URLParam(r, "taskID")).Normalize() }

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, err, "list projects")
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProjectRequest	true	"Project to create"
//	@Success		201		{object}	models.Project
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req.project())
	if err != nil {
		writeError(w, err, "create project", slog.String("project", req.ID))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/projects/{projectID}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, projectFrom(r))
}

// DeleteProject handles DELETE /api/projects/{projectID}.
//
//	@Summary		Delete a project with its events and tasks
//	@Tags			projects
//	@Success		204	"Project deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	if err := h.svc.DeleteProject(r.Context(), p.ID); err != nil {
		writeError(w, err, "delete project", slog.String("project", p.ID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /api/projects/{projectID}/events.
//
//	@Summary		List the events of a project
//	@Tags			events
//	@Produce		json
//	@Success		200	{object}	EventListResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	events, err := h.svc.ListEvents(r.Context(), p.ID)
	if err != nil {
		writeError(w, err, "list events", slog.String("project", p.ID))
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: events})
}

// GetEvent handles GET /api/projects/{projectID}/events/{eventID}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	ev, err := h.svc.GetEvent(r.Context(), p.ID, eventID(r))
	if err != nil {
		writeError(w, err, "get event", slog.String("project", p.ID))
		return
	}
	setETag(w, ev.Revision)
	writeJSON(w, http.StatusOK, ev)
}

// CreateEvent handles POST /api/projects/{projectID}/events.
//
//	@Summary		Create a calendar event
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EventRequest	true	"Event to create"
//	@Success		201		{object}	models.CalendarEvent
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	var req EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := h.svc.CreateEvent(r.Context(), p.ID, req.event())
	if err != nil {
		writeError(w, err, "create event", slog.String("project", p.ID))
		return
	}
	setETag(w, ev.Revision)
	writeJSON(w, http.StatusCreated, ev)
}

// UpdateEvent handles PUT /api/projects/{projectID}/events/{eventID}.
//
//	@Summary		Replace an event with optimistic concurrency
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header		string			false	"Revision for optimistic concurrency"
//	@Param			body		body		EventRequest	true	"Replacement event"
//	@Success		200			{object}	models.CalendarEvent
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/events/{eventID} [put]
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	var req EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := h.svc.UpdateEvent(r.Context(), p.ID, eventID(r), req.event(), ifMatch(r))
	if err != nil {
		writeError(w, err, "update event", slog.String("project", p.ID))
		return
	}
	setETag(w, ev.Revision)
	writeJSON(w, http.StatusOK, ev)
}

// DeleteEvent handles DELETE /api/projects/{projectID}/events/{eventID}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	if err := h.svc.DeleteEvent(r.Context(), p.ID, eventID(r)); err != nil {
		writeError(w, err, "delete event", slog.String("project", p.ID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTasks handles GET /api/projects/{projectID}/tasks.
//
//	@Summary		List the tasks of a project
//	@Tags			tasks
//	@Produce		json
//	@Success		200	{object}	TaskListResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	tasks, err := h.svc.ListTasks(r.Context(), p.ID)
	if err != nil {
		writeError(w, err, "list tasks", slog.String("project", p.ID))
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// GetTask handles GET /api/projects/{projectID}/tasks/{taskID}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	t, err := h.svc.GetTask(r.Context(), p.ID, taskID(r))
	if err != nil {
		writeError(w, err, "get task", slog.String("project", p.ID))
		return
	}
	setETag(w, t.Revision)
	writeJSON(w, http.StatusOK, t)
}

// CreateTask handles POST /api/projects/{projectID}/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTask(r.Context(), p.ID, req.task())
	if err != nil {
		writeError(w, err, "create task", slog.String("project", p.ID))
		return
	}
	setETag(w, t.Revision)
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTask handles PUT /api/projects/{projectID}/tasks/{taskID}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTask(r.Context(), p.ID, taskID(r), req.task(), ifMatch(r))
	if err != nil {
		writeError(w, err, "update task", slog.String("project", p.ID))
		return
	}
	setETag(w, t.Revision)
	writeJSON(w, http.StatusOK, t)
}

// DeleteTask handles DELETE /api/projects/{projectID}/tasks/{taskID}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	if err := h.svc.DeleteTask(r.Context(), p.ID, taskID(r)); err != nil {
		writeError(w, err, "delete task", slog.String("project", p.ID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Insights handles GET /api/projects/{projectID}/insights.
//
//	@Summary		Timeline, upcoming events and coverage for a project
//	@Tags			insights
//	@Produce		json
//	@Success		200	{object}	InsightsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/insights [get]
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	report, err := h.svc.Insights(r.Context(), p.ID)
	if err != nil {
		writeError(w, err, "insights", slog.String("project", p.ID))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Autoplan handles GET /api/projects/{projectID}/autoplan.
//
//	@Summary		Unscheduled overdue and due-soon tasks, most urgent first
//	@Tags			insights
//	@Produce		json
//	@Param			limit	query		int	false	"Preview size"
//	@Success		200		{object}	AutoplanResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/autoplan [get]
func (h *Handler) Autoplan(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	limit := h.preview
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}
	report, err := h.svc.Autoplan(r.Context(), p.ID)
	if err != nil {
		writeError(w, err, "autoplan", slog.String("project", p.ID))
		return
	}
	shown, remaining := report.Preview(limit)
	writeJSON(w, http.StatusOK, AutoplanResponse{
		ProjectID:    report.ProjectID,
		GeneratedAt:  report.GeneratedAt,
		Candidates:   shown,
		Remaining:    remaining,
		Total:        len(report.Candidates),
		OverdueCount: report.OverdueCount,
		DueSoonCount: report.DueSoonCount,
	})
}

// ProposeSlot handles GET /api/projects/{projectID}/tasks/{taskID}/slot.
//
//	@Summary		Suggest a calendar slot for a task
//	@Tags			scheduling
//	@Produce		json
//	@Success		200	{object}	SlotResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/tasks/{taskID}/slot [get]
func (h *Handler) ProposeSlot(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	proposal, task, err := h.svc.ProposeSlot(r.Context(), p.ID, taskID(r))
	if err != nil {
		writeError(w, err, "propose slot", slog.String("project", p.ID))
		return
	}
	writeJSON(w, http.StatusOK, SlotResponse{TaskID: task.ID, Ready: proposal.Ready(), Proposal: proposal})
}

// ScheduleTask handles POST /api/projects/{projectID}/tasks/{taskID}/schedule.
//
//	@Summary		Create a focus event for a task from its proposed slot
//	@Tags			scheduling
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScheduleRequest	false	"Slot overrides"
//	@Success		201		{object}	models.CalendarEvent
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/tasks/{taskID}/schedule [post]
func (h *Handler) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	var req ScheduleRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ev, err := h.svc.ScheduleTask(r.Context(), p.ID, taskID(r), req)
	if err != nil {
		writeError(w, err, "schedule task", slog.String("project", p.ID))
		return
	}
	setETag(w, ev.Revision)
	writeJSON(w, http.StatusCreated, ev)
}

// ExportCalendar handles GET /api/projects/{projectID}/calendar.ics.
//
//	@Summary		Export the project calendar as iCalendar
//	@Tags			calendar
//	@Produce		text/calendar
//	@Success		200	{string}	string	"VCALENDAR body"
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/calendar.ics [get]
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	snap, err := h.svc.Snapshot(r.Context(), p.ID)
	if err != nil {
		writeError(w, err, "export calendar", slog.String("project", p.ID))
		return
	}
	body := ics.Export(snap.Project, snap.Events, h.svc.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+p.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// ImportCalendar handles POST /api/projects/{projectID}/calendar.ics.
//
//	@Summary		Import an iCalendar body into the project
//	@Tags			calendar
//	@Accept			text/calendar
//	@Produce		json
//	@Param			name	query		string	false	"Inbox file name"
//	@Success		201		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/calendar.ics [post]
func (h *Handler) ImportCalendar(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("calendar import is disabled"))
		return
	}
	p := projectFrom(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	path, err := h.importer.Deliver(r.Context(), p.ID, name, body, icsync.OriginUpload)
	if err != nil {
		writeError(w, err, "import calendar", slog.String("project", p.ID))
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{Path: path})
}
