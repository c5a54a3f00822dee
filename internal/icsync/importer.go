// Package icsync keeps project calendars in step with the ICS inbox: a
// directory with one sub-directory per project holding .ics files. Files are
// imported on start-up, on change, and when URL subscriptions deliver new
// content into the inbox.
package icsync

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/checksum"
	"github.com/starford/planboard/internal/ics"
	"github.com/starford/planboard/internal/observability"
	"github.com/starford/planboard/internal/storage"
	"github.com/starford/planboard/internal/workspace"
)

// Import origins, used as metric labels.
const (
	OriginInbox        = "inbox"
	OriginUpload       = "upload"
	OriginSubscription = "subscription"
)

// Default recurrence expansion window around now.
const (
	DefaultPast  = 30 * 24 * time.Hour
	DefaultAhead = 180 * 24 * time.Hour
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Options tunes an Importer.
type Options struct {
	Past    time.Duration
	Ahead   time.Duration
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Importer moves calendar files from the inbox into project calendars. The
// inbox path of a file is its import source.
type Importer struct {
	svc     *workspace.Service
	inbox   storage.Provider
	past    time.Duration
	ahead   time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewImporter creates an importer over inbox.
func NewImporter(svc *workspace.Service, inbox storage.Provider, opts Options) *Importer {
	im := &Importer{
		svc:     svc,
		inbox:   inbox,
		past:    opts.Past,
		ahead:   opts.Ahead,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if im.past <= 0 {
		im.past = DefaultPast
	}
	if im.ahead <= 0 {
		im.ahead = DefaultAhead
	}
	if im.logger == nil {
		im.logger = slog.Default()
	}
	return im
}

// Inbox returns the provider the importer reads from.
func (im *Importer) Inbox() storage.Provider { return im.inbox }

// ImportFile imports the inbox file at path unless its checksum matches the
// last import. It reports whether anything was imported.
func (im *Importer) ImportFile(ctx context.Context, path, origin string) (bool, error) {
	projectID := storage.ProjectOf(path)
	if projectID == "" {
		return false, fmt.Errorf("icsync: %s is not inside a project directory", path)
	}
	data, err := im.inbox.Read(path)
	if err != nil {
		return false, err
	}
	sum := checksum.Sum(data)
	sums, err := im.svc.ImportChecksums(ctx)
	if err != nil {
		return false, err
	}
	if sums[path] == sum {
		return false, nil
	}

	n, err := im.importBody(ctx, projectID, path, data)
	im.metrics.CountImport(origin, err)
	if err != nil {
		return false, err
	}
	if err := im.svc.RecordImport(ctx, projectID, path, sum); err != nil {
		return false, err
	}
	im.logger.Info("icsync: imported",
		slog.String("path", path),
		slog.String("project", projectID),
		slog.String("origin", origin),
		slog.Int("events", n))
	return true, nil
}

func (im *Importer) importBody(ctx context.Context, projectID, source string, data []byte) (int, error) {
	p, err := im.svc.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	loc := im.svc.Location(p)
	now := im.svc.Now().In(loc)
	events, err := ics.Import(projectID, data, ics.WindowAround(now, im.past, im.ahead), loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return im.svc.ImportEvents(ctx, projectID, source, events)
}

// Deliver writes body into the project's inbox directory as name and
// imports it. The body must parse as a calendar.
func (im *Importer) Deliver(ctx context.Context, projectID, name string, body []byte, origin string) (string, error) {
	if _, err := im.svc.GetProject(ctx, projectID); err != nil {
		return "", err
	}
	if _, err := ics.Parse(body, time.UTC); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	path := projectID + "/" + FileName(name)
	if err := im.inbox.Write(path, body); err != nil {
		return "", err
	}
	if _, err := im.ImportFile(ctx, path, origin); err != nil {
		return path, err
	}
	return path, nil
}

// Forget drops the events imported from path.
func (im *Importer) Forget(ctx context.Context, path string) error {
	if err := im.svc.ForgetImport(ctx, storage.ProjectOf(path), path); err != nil {
		return err
	}
	im.logger.Info("icsync: forgot", slog.String("path", path))
	return nil
}

// FileName turns name into a safe inbox file name with the .ics extension.
func FileName(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), storage.Ext)
	name = strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		name = "calendar"
	}
	return name + storage.Ext
}
