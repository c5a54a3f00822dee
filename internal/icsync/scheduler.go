package icsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// maxFeedBytes caps the size of a downloaded feed.
const maxFeedBytes = 10 << 20

// ErrFeedTooLarge is returned when a feed body exceeds maxFeedBytes.
var ErrFeedTooLarge = errors.New("feed exceeds 10 MiB")

// Subscription pulls a remote calendar into a project's inbox directory on a
// cron schedule.
type Subscription struct {
	Name      string
	ProjectID string
	URL       string
	// Schedule is a standard five-field cron spec or a descriptor such as
	// "@hourly".
	Schedule string
}

// FileName is the inbox file the subscription writes to.
func (s Subscription) FileName() string {
	return FileName("subscription-" + s.Name)
}

// Scheduler runs subscriptions with robfig/cron.
type Scheduler struct {
	im     *Importer
	subs   []Subscription
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	etags map[string]string
}

// NewScheduler validates every subscription schedule and returns a scheduler
// ready to Run.
func NewScheduler(im *Importer, subs []Subscription, client *http.Client) (*Scheduler, error) {
	for _, sub := range subs {
		if _, err := cron.ParseStandard(sub.Schedule); err != nil {
			return nil, fmt.Errorf("icsync: subscription %q: schedule: %w", sub.Name, err)
		}
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Scheduler{
		im:     im,
		subs:   subs,
		client: client,
		logger: im.logger,
		etags:  make(map[string]string),
	}, nil
}

// Run fetches every subscription once, then on schedule until ctx is
// cancelled. It waits for running jobs before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.subs) == 0 {
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	for _, sub := range s.subs {
		if _, err := c.AddFunc(sub.Schedule, func() { s.run(ctx, sub) }); err != nil {
			return fmt.Errorf("icsync: subscription %q: %w", sub.Name, err)
		}
	}
	for _, sub := range s.subs {
		s.run(ctx, sub)
	}

	c.Start()
	s.logger.Info("scheduler: started", slog.Int("subscriptions", len(s.subs)))
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler: stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context, sub Subscription) {
	if ctx.Err() != nil {
		return
	}
	changed, err := s.Fetch(ctx, sub)
	if err != nil {
		s.logger.Warn("scheduler: fetch failed",
			slog.String("subscription", sub.Name),
			slog.String("url", redact(sub.URL)),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("scheduler: fetched",
		slog.String("subscription", sub.Name),
		slog.Bool("changed", changed))
}

// Fetch downloads one subscription and delivers it to the inbox. A 304
// reply leaves the inbox untouched and reports false.
func (s *Scheduler) Fetch(ctx context.Context, sub Subscription) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sub.URL, nil)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	etag := s.etags[sub.URL]
	s.mu.Unlock()
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return false, nil
	case http.StatusOK:
	default:
		return false, errors.New(resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return false, err
	}
	if len(body) > maxFeedBytes {
		return false, ErrFeedTooLarge
	}
	if _, err := s.im.Deliver(ctx, sub.ProjectID, sub.FileName(), body, OriginSubscription); err != nil {
		return false, err
	}
	if tag := resp.Header.Get("ETag"); tag != "" {
		s.mu.Lock()
		s.etags[sub.URL] = tag
		s.mu.Unlock()
	}
	return true, nil
}

// redact keeps only the scheme and host of a feed URL; paths and queries of
// private feeds often carry tokens.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/..."
}
