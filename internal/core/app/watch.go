package app

import (
	"context"
	"log/slog"
	"sort"

	"symscope/internal/core/watcher"
	"symscope/internal/shared/util"
)

// Watch rebinds files as they change under the configured watch paths until
// ctx is done. Each batch is rate limited, folded together with batches that
// arrived while waiting, and reported through onReport.
func (a *App) Watch(ctx context.Context, onReport func(*Report)) error {
	cfg, p, _ := a.snapshot()

	batches := make(chan []string, 16)
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files, func(paths []string) {
		select {
		case batches <- paths:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	w.SetExtensions(p.SupportedExtensions())
	if err := w.Watch(cfg.WatchPaths); err != nil {
		return err
	}
	slog.Info("watching for changes", "paths", cfg.WatchPaths)

	limiter := util.NewLimiter(cfg.Watch.RatePerSecond, cfg.Watch.Burst)
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-batches:
			if err := limiter.Wait(ctx, 1); err != nil {
				return nil
			}
			paths = coalesce(paths, batches)
			slog.Info("detected changes", "count", len(paths))
			report, err := a.Rescan(ctx, paths)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Warn("rescan failed", "error", err)
				continue
			}
			if onReport != nil {
				onReport(report)
			}
		}
	}
}

// coalesce merges paths with any batches already queued, without blocking.
func coalesce(paths []string, batches <-chan []string) []string {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	for {
		select {
		case more := <-batches:
			for _, p := range more {
				set[p] = true
			}
		default:
			out := make([]string, 0, len(set))
			for p := range set {
				out = append(out, p)
			}
			sort.Strings(out)
			return out
		}
	}
}
