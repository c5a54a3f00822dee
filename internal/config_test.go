package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/planboard/internal/icsync"
	pkgconfig "github.com/starford/planboard/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestStorageConfig_PostgresNeedsURL(t *testing.T) {
	cfg := StorageConfig{Driver: "postgres"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("postgres without url should fail")
	}
	cfg.PostgresURL = "postgres://localhost/planboard"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("postgres with url should pass: %v", err)
	}
}

func TestStorageConfig_UnknownDriver(t *testing.T) {
	cfg := StorageConfig{Driver: "mysql", SQLitePath: "x.db"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestStorageConfig_EmptyDriverDefaultsSQLite(t *testing.T) {
	cfg := StorageConfig{SQLitePath: "x.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := cfg.StoreConfig().Driver; got != "sqlite" {
		t.Errorf("driver = %q", got)
	}
}

func TestApplicationConfig_Timezone(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Timezone = "Europe/Berlin"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid zone rejected: %v", err)
	}
	loc, _ := cfg.App.Location()
	if loc.String() != "Europe/Berlin" {
		t.Errorf("location = %s", loc)
	}

	cfg.App.Timezone = "Mars/Olympus"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "IANA") {
		t.Fatalf("err = %v", err)
	}
}

func TestICSConfig_Subscriptions(t *testing.T) {
	valid := SubscriptionConfig{Name: "team", Project: "p1", URL: "https://cal.example.com/team.ics", Schedule: "@hourly"}

	tests := []struct {
		name    string
		subs    []SubscriptionConfig
		wantErr bool
	}{
		{name: "valid", subs: []SubscriptionConfig{valid}},
		{name: "cron expression", subs: []SubscriptionConfig{{Name: "a", Project: "p1", URL: valid.URL, Schedule: "*/15 * * * *"}}},
		{name: "bad schedule", subs: []SubscriptionConfig{{Name: "a", Project: "p1", URL: valid.URL, Schedule: "every tuesday"}}, wantErr: true},
		{name: "bad url", subs: []SubscriptionConfig{{Name: "a", Project: "p1", URL: "not a url", Schedule: "@daily"}}, wantErr: true},
		{name: "missing project", subs: []SubscriptionConfig{{Name: "a", URL: valid.URL, Schedule: "@daily"}}, wantErr: true},
		{name: "duplicate name", subs: []SubscriptionConfig{valid, valid}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.ICS.Subscriptions = tt.subs
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestICSConfig_SubscriptionList(t *testing.T) {
	cfg := ICSConfig{Subscriptions: []SubscriptionConfig{{Name: "team", Project: "p1", URL: "https://x/a.ics", Schedule: "@daily"}}}
	subs := cfg.SubscriptionList()
	if len(subs) != 1 || subs[0].ProjectID != "p1" || subs[0].Schedule != "@daily" {
		t.Errorf("subs = %+v", subs)
	}
}

func TestMetricsConfig_Namespace(t *testing.T) {
	cfg := MetricsConfig{Enabled: true, Namespace: "plan-board"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("dash in namespace should fail")
	}
	cfg = MetricsConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled metrics need a namespace")
	}
	cfg = MetricsConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled metrics need nothing: %v", err)
	}
}

func TestConfig_LoadYAML(t *testing.T) {
	t.Setenv("PLANBOARD_TEST_TOKEN", "abc")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `app:
  log_level: debug
  http:
    port: 9000
  timezone: Europe/Berlin
auth:
  mode: token
  token: ${PLANBOARD_TEST_TOKEN}
ics:
  inbox_path: ` + filepath.Join(dir, "inbox") + `
  watch: false
  ahead: 720h
  subscriptions:
    - name: team
      project: p1
      url: https://cal.example.com/team.ics
      schedule: "@every 30m"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9000 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "abc" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.ICS.Watch || cfg.ICS.Ahead != 720*time.Hour || cfg.ICS.Past != icsync.DefaultPast {
		t.Errorf("ics = %+v", cfg.ICS)
	}
	if len(cfg.ICS.Subscriptions) != 1 {
		t.Fatalf("subscriptions = %+v", cfg.ICS.Subscriptions)
	}
	if cfg.Storage.Driver != "sqlite" || !cfg.Metrics.Enabled {
		t.Errorf("defaults lost: storage=%+v metrics=%+v", cfg.Storage, cfg.Metrics)
	}
}
