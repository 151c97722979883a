package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"symscope/internal/engine/parser"
	"symscope/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scan binds every supported file under paths, or under the configured
// watch paths when none are given, and replaces the previous results.
func (a *App) Scan(ctx context.Context, paths []string) (*Report, error) {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()

	cfg, p, f := a.snapshot()
	if len(paths) == 0 {
		paths = cfg.WatchPaths
	}
	ctx, span := observability.Tracer.Start(ctx, "app.Scan")
	defer span.End()

	started := time.Now()
	roots := uniqueScanRoots(paths)
	files, skipped, err := discover(roots, p, f, cfg.Analysis.MaxFileBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("files", len(files)))
	slog.Info("scanning", "files", len(files), "skipped", len(skipped))

	bound, failed := bindAll(ctx, p, files, cfg.Analysis.Workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.files = make(map[string]*parser.File, len(bound))
	for _, file := range bound {
		a.files[file.Path] = file
	}
	a.roots = roots
	return a.finish(ctx, started, skipped, failed), nil
}

// Rescan rebinds the changed paths and reports on every known file. Paths
// that no longer exist are dropped; unsupported or excluded paths are
// ignored.
func (a *App) Rescan(ctx context.Context, changed []string) (*Report, error) {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()

	cfg, p, f := a.snapshot()
	ctx, span := observability.Tracer.Start(ctx, "app.Rescan")
	defer span.End()
	span.SetAttributes(attribute.Int("changed", len(changed)))

	started := time.Now()
	roots := a.roots
	if roots == nil {
		roots = uniqueScanRoots(cfg.WatchPaths)
	}
	var (
		toBind  []string
		skipped []string
	)
	for _, path := range changed {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			delete(a.files, path)
			continue
		}
		if err != nil {
			slog.Warn("failed to stat changed file", "path", path, "error", err)
			continue
		}
		if info.IsDir() || !p.IsSupportedPath(path) || excludedPath(path, roots, f) {
			continue
		}
		if tooLarge(info, cfg.Analysis.MaxFileBytes) {
			delete(a.files, path)
			skipped = append(skipped, path)
			continue
		}
		toBind = append(toBind, path)
	}

	bound, failed := bindAll(ctx, p, toBind, cfg.Analysis.Workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, file := range bound {
		a.files[file.Path] = file
	}
	for _, fe := range failed {
		delete(a.files, fe.Path)
	}
	slog.Info("rescanned", "changed", len(changed), "bound", len(bound), "known", len(a.files))
	return a.finish(ctx, started, skipped, failed), nil
}

func uniqueScanRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		normalized := filepath.Clean(p)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		roots = append(roots, normalized)
	}
	sort.Strings(roots)
	return roots
}

// discover walks roots for supported files, honouring the exclude globs and
// the size cap. Oversized files are returned separately.
func discover(roots []string, p *parser.Parser, f filters, maxBytes int64) (files, skipped []string, err error) {
	seen := make(map[string]bool)
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if d.IsDir() {
				if path != root && matchAny(f.dirs, base) {
					return filepath.SkipDir
				}
				return nil
			}
			if !p.IsSupportedPath(path) || matchAny(f.files, base) || seen[path] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			seen[path] = true
			if tooLarge(info, maxBytes) {
				slog.Debug("skipping oversized file", "path", path, "bytes", info.Size())
				skipped = append(skipped, path)
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	sort.Strings(files)
	return files, skipped, nil
}

func tooLarge(info fs.FileInfo, maxBytes int64) bool {
	return maxBytes > 0 && info.Size() > maxBytes
}

// excludedPath reports whether the file name or a directory between path
// and its scan root matches an exclude glob. The root itself and anything
// above it are not checked, as in discover.
func excludedPath(path string, roots []string, f filters) bool {
	if matchAny(f.files, filepath.Base(path)) {
		return true
	}
	path = absPath(path)
	root := containingRoot(path, roots)
	if root == path {
		return false
	}
	for dir := filepath.Dir(path); dir != root; {
		if matchAny(f.dirs, filepath.Base(dir)) {
			return true
		}
		next := filepath.Dir(dir)
		if next == dir {
			return false
		}
		dir = next
	}
	return false
}

// containingRoot returns the deepest root at or above path, or "" when
// path lies outside every root. path must be absolute.
func containingRoot(path string, roots []string) string {
	best := ""
	for _, r := range roots {
		r = absPath(r)
		rel, err := filepath.Rel(r, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(r) > len(best) {
			best = r
		}
	}
	return best
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// FileError is a file that could not be read or bound.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// bindAll binds paths on a pool of workers, each file into its own table.
// Results come back in the order of paths.
func bindAll(ctx context.Context, p *parser.Parser, paths []string, workers int) ([]*parser.File, []FileError) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]*parser.File, len(paths))
	errs := make([]error, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = bindFile(ctx, p, paths[i])
			}
		}()
	}
feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var (
		bound  = make([]*parser.File, 0, len(paths))
		failed []FileError
	)
	for i, file := range results {
		if errs[i] != nil {
			slog.Warn("failed to bind file", "path", paths[i], "error", errs[i])
			failed = append(failed, FileError{Path: paths[i], Error: errs[i].Error()})
			continue
		}
		if file != nil {
			bound = append(bound, file)
		}
	}
	return bound, failed
}

func bindFile(ctx context.Context, p *parser.Parser, path string) (*parser.File, error) {
	_, span := observability.Tracer.Start(ctx, "app.bindFile", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	content, err := os.ReadFile(path)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	started := time.Now()
	file, err := p.ParseFile(path, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	observability.ParsingDuration.WithLabelValues(file.Language).Observe(time.Since(started).Seconds())
	observability.FilesBoundTotal.Inc()
	recordLookups(file)
	span.SetAttributes(
		attribute.Int("declarations", len(file.Declarations)),
		attribute.Int("diagnostics", len(file.Diagnostics)),
	)
	return file, nil
}
