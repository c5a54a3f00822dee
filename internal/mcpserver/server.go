// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Planboard scheduling tools for LLM integration via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/insights"
	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/workspace"
)

// EventMetadataURI names the metadata contract resource.
const EventMetadataURI = "planboard://event-metadata"

// Server wraps the MCP server with Planboard tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *workspace.Service
	preview int
}

// New creates a new MCP server with all Planboard tools registered.
// preview is the default autoplan list size.
func New(svc *workspace.Service, preview int) *Server {
	if preview <= 0 {
		preview = insights.DefaultPreview
	}
	s := &Server{svc: svc, preview: preview}

	s.mcp = server.NewMCPServer(
		"Planboard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	projectArg := mcp.WithString("project", mcp.Required(), mcp.Description("Project id"))
	taskArg := mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id"))

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects with their timezones."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_insights",
		mcp.WithDescription("Timeline of the first days with events, the next upcoming events, "+
			"focus coverage (share of scheduled hours that are focus blocks) and task coverage "+
			"(share of dated tasks with a linked event)."),
		projectArg,
	), s.getInsights)

	s.mcp.AddTool(mcp.NewTool("list_autoplan_candidates",
		mcp.WithDescription("Tasks with a due date that are overdue or due within 7 days and "+
			"have no linked calendar event, most urgent first."),
		projectArg,
		mcp.WithNumber("limit", mcp.Description("Maximum number of candidates to return")),
	), s.listAutoplanCandidates)

	s.mcp.AddTool(mcp.NewTool("propose_slot",
		mcp.WithDescription("Suggest a focus slot for a task without creating anything. "+
			"The slot starts at 09:00 local on the task's start or due day and lasts its estimate."),
		projectArg, taskArg,
	), s.proposeSlot)

	s.mcp.AddTool(mcp.NewTool("schedule_task",
		mcp.WithDescription("Create a focus event for a task from its proposed slot. "+
			"start_at and end_at override the proposal and are required when the task has no date. "+
			"Read "+EventMetadataURI+" for the metadata written."),
		projectArg, taskArg,
		mcp.WithString("start_at", mcp.Description("ISO 8601 start overriding the proposal")),
		mcp.WithString("end_at", mcp.Description("ISO 8601 end overriding the proposal")),
		mcp.WithString("title", mcp.Description("Event title; defaults to the task title")),
	), s.scheduleTask)

	s.mcp.AddTool(mcp.NewTool("list_events",
		mcp.WithDescription("List the calendar events of a project."),
		projectArg,
	), s.listEvents)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List the tasks of a project."),
		projectArg,
	), s.listTasks)

	s.mcp.AddResource(
		mcp.NewResource(EventMetadataURI, "Event Metadata Contract",
			mcp.WithResourceDescription("Metadata keys Planboard reads from and writes to calendar events."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEventMetadataResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool-level error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("conflict: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.ListProjects(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(projects) == 0 {
		return mcp.NewToolResultText("no projects"), nil
	}
	lines := make([]string, 0, len(projects))
	for _, p := range projects {
		tz := p.Timezone
		if tz == "" {
			tz = "default"
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", p.ID, p.Name, tz))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getInsights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.Insights(ctx, project)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(report), nil
}

func (s *Server) listAutoplanCandidates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := s.preview
	if n, nErr := req.RequireFloat("limit"); nErr == nil && n >= 1 {
		limit = int(n)
	}
	report, err := s.svc.Autoplan(ctx, project)
	if err != nil {
		return toolError(err), nil
	}
	shown, remaining := report.Preview(limit)
	return jsonResult(map[string]any{
		"candidates":   shown,
		"remaining":    remaining,
		"overdueCount": report.OverdueCount,
		"dueSoonCount": report.DueSoonCount,
	}), nil
}

func (s *Server) proposeSlot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proposal, task, err := s.svc.ProposeSlot(ctx, project, models.ID(taskID))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"taskId":   task.ID,
		"ready":    proposal.Ready(),
		"proposal": proposal,
	}), nil
}

func (s *Server) scheduleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var override workspace.SlotOverride
	if v, vErr := req.RequireString("start_at"); vErr == nil {
		override.StartAt = models.Timestamp(v)
	}
	if v, vErr := req.RequireString("end_at"); vErr == nil {
		override.EndAt = models.Timestamp(v)
	}
	if v, vErr := req.RequireString("title"); vErr == nil {
		override.Title = v
	}
	ev, err := s.svc.ScheduleTask(ctx, project, models.ID(taskID), override)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(ev), nil
}

func (s *Server) listEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, err := s.svc.ListEvents(ctx, project)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(events), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tasks, err := s.svc.ListTasks(ctx, project)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(tasks), nil
}

func (s *Server) readEventMetadataResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      EventMetadataURI,
			MIMEType: "text/markdown",
			Text:     EventMetadataContract,
		},
	}, nil
}
