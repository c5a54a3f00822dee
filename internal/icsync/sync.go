package icsync

import (
	"context"
	"log/slog"
)

// Sync walks the inbox and brings project calendars up to date:
//   - new/changed files are imported
//   - files removed from disk have their events dropped
func Sync(ctx context.Context, im *Importer) error {
	files, err := im.inbox.List("")
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}
		if _, err := im.ImportFile(ctx, f.Path, OriginInbox); err != nil {
			im.logger.Warn("sync: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
		}
	}

	sums, err := im.svc.ImportChecksums(ctx)
	if err != nil {
		return err
	}
	for src := range sums {
		if _, ok := disk[src]; ok {
			continue
		}
		if err := im.Forget(ctx, src); err != nil {
			im.logger.Warn("sync: forget failed", slog.String("path", src), slog.String("error", err.Error()))
		}
	}
	return nil
}
