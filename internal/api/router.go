package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planboard/internal/icsync"
	"github.com/starford/planboard/internal/workspace"
)

// Options configures NewRouter.
type Options struct {
	// AuthEnabled controls whether Bearer token auth is enforced.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// Importer, if non-nil, enables POST .../calendar.ics.
	Importer *icsync.Importer
	// Preview is the default autoplan limit.
	Preview int
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *workspace.Service, opts Options) chi.Router {
	h := NewHandler(svc, opts.Importer, opts.Preview)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Use(projectCtx(svc))
			r.Get("/", h.GetProject)
			r.Delete("/", h.DeleteProject)

			r.Get("/events", h.ListEvents)
			r.Post("/events", h.CreateEvent)
			r.Get("/events/{eventID}", h.GetEvent)
			r.Put("/events/{eventID}", h.UpdateEvent)
			r.Delete("/events/{eventID}", h.DeleteEvent)

			r.Get("/tasks", h.ListTasks)
			r.Post("/tasks", h.CreateTask)
			r.Get("/tasks/{taskID}", h.GetTask)
			r.Put("/tasks/{taskID}", h.UpdateTask)
			r.Delete("/tasks/{taskID}", h.DeleteTask)
			r.Get("/tasks/{taskID}/slot", h.ProposeSlot)
			r.Post("/tasks/{taskID}/schedule", h.ScheduleTask)

			r.Get("/insights", h.Insights)
			r.Get("/autoplan", h.Autoplan)

			r.Get("/calendar.ics", h.ExportCalendar)
			r.Post("/calendar.ics", h.ImportCalendar)
		})
	})

	// SSE endpoint (protected by same auth middleware).
	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
