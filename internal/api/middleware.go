// Package api implements the Planboard REST API using chi.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/workspace"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="planboard"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type projectKey struct{}

// projectCtx resolves {projectID} once per request; unknown projects get a
// 404 before any handler runs.
func projectCtx(svc *workspace.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "projectID")
			p, err := svc.GetProject(r.Context(), id)
			if err != nil {
				writeError(w, err, "load project", "project", id)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), projectKey{}, p)))
		})
	}
}

func projectFrom(r *http.Request) models.Project {
	p, _ := r.Context().Value(projectKey{}).(models.Project)
	return p
}
