package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/robfig/cron/v3"

	"github.com/starford/planboard/internal/icsync"
	"github.com/starford/planboard/internal/insights"
	"github.com/starford/planboard/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	ICS     ICSConfig         `yaml:"ics"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.ICS.Validate(); err != nil {
		return fmt.Errorf("ics: %w", err)
	}
	return c.Metrics.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// Timezone is the IANA zone used for projects without one.
	Timezone string `yaml:"timezone"`
	// Preview is the default number of autoplan candidates returned.
	Preview int `yaml:"preview"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
		validation.Field(&c.Preview, validation.Min(0), validation.Max(100)),
	)
}

// Location resolves Timezone; empty means the host zone.
func (c *ApplicationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.New("must be an IANA time zone name")
	}
	return loc, nil
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = store.DriverSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&c.SQLitePath, validation.When(c.Driver == store.DriverSQLite, validation.Required)),
		validation.Field(&c.PostgresURL, validation.When(c.Driver == store.DriverPostgres, validation.Required)),
	)
}

// StoreConfig converts the section for store.Open.
func (c *StorageConfig) StoreConfig() store.Config {
	return store.Config{Driver: c.Driver, SQLitePath: c.SQLitePath, PostgresURL: c.PostgresURL}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ICSConfig configures the calendar inbox and its subscriptions.
type ICSConfig struct {
	// InboxPath holds one directory per project with .ics files.
	InboxPath string `yaml:"inbox_path"`
	// Watch enables the fsnotify watcher on the inbox.
	Watch bool `yaml:"watch"`
	// Past and Ahead bound recurrence expansion around now.
	Past          time.Duration        `yaml:"past"`
	Ahead         time.Duration        `yaml:"ahead"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// Validate validates the ICS configuration.
func (c *ICSConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.InboxPath, validation.Required),
		validation.Field(&c.Past, validation.Min(time.Duration(0))),
		validation.Field(&c.Ahead, validation.Min(time.Duration(0))),
		validation.Field(&c.Subscriptions),
	); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		if seen[s.Name] {
			return fmt.Errorf("subscription %q defined twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// SubscriptionList converts the configured subscriptions for the scheduler.
func (c *ICSConfig) SubscriptionList() []icsync.Subscription {
	out := make([]icsync.Subscription, 0, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		out = append(out, icsync.Subscription{Name: s.Name, ProjectID: s.Project, URL: s.URL, Schedule: s.Schedule})
	}
	return out
}

// SubscriptionConfig pulls a remote calendar into a project on a schedule.
type SubscriptionConfig struct {
	Name     string `yaml:"name"`
	Project  string `yaml:"project"`
	URL      string `yaml:"url"`
	Schedule string `yaml:"schedule"`
}

var cronRule = validation.By(func(value any) error {
	spec, _ := value.(string)
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.New("must be a cron expression or descriptor")
	}
	return nil
})

// Validate validates one subscription.
func (c SubscriptionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Project, validation.Required),
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.Schedule, validation.Required, cronRule),
	)
}

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Validate validates the metrics configuration.
func (c *MetricsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Namespace, validation.When(c.Enabled, validation.Required), validation.Match(metricNamePattern)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			Preview: insights.DefaultPreview,
		},
		Storage: StorageConfig{
			Driver:     store.DriverSQLite,
			SQLitePath: "./planboard.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		ICS: ICSConfig{
			InboxPath: "./inbox",
			Watch:     true,
			Past:      icsync.DefaultPast,
			Ahead:     icsync.DefaultAhead,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "planboard",
		},
	}
}
