package internal

import (
	"net/http"

	"github.com/starford/planboard/internal/clock"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	clock      clock.Clock
	httpClient *http.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithClock replaces the wall clock used for insights and imports.
func WithClock(c clock.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}

// WithHTTPClient sets the client used to fetch calendar subscriptions.
func WithHTTPClient(c *http.Client) Option {
	return func(a *application) {
		a.httpClient = c
	}
}
