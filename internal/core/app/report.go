package app

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"symscope/internal/core/config"
	"symscope/internal/core/errors"
	"symscope/internal/data/history"
	"symscope/internal/engine/parser"
	"symscope/internal/shared/observability"

	"github.com/google/uuid"
)

// Report summarizes the bound files after a scan.
type Report struct {
	RunID        string              `json:"run_id"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	FileCount    int                 `json:"file_count"`
	Declarations int                 `json:"declarations"`
	References   int                 `json:"references"`
	Resolved     int                 `json:"resolved"`
	Diagnostics  []parser.Diagnostic `json:"diagnostics"`
	// Suppressed counts diagnostics dropped by the symbol excludes or the
	// report switches.
	Suppressed int         `json:"suppressed"`
	Skipped    []string    `json:"skipped,omitempty"`
	Failed     []FileError `json:"failed,omitempty"`
}

// CountByCode tallies the reported diagnostics by error code.
func (r *Report) CountByCode() map[string]int {
	out := make(map[string]int)
	for _, d := range r.Diagnostics {
		out[d.Code]++
	}
	return out
}

// Clean reports whether every reference resolved and every file was bound.
func (r *Report) Clean() bool {
	return len(r.Diagnostics) == 0 && len(r.Failed) == 0
}

// Files returns the latest binding result of every known file, by path.
func (a *App) Files() []*parser.File {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()
	out := make([]*parser.File, 0, len(a.files))
	for _, f := range a.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// finish builds the report over every known file, updates the gauges and
// records the run. The caller holds scanMu.
func (a *App) finish(ctx context.Context, started time.Time, skipped []string, failed []FileError) *Report {
	cfg, _, f := a.snapshot()
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: started,
		FileCount: len(a.files),
		Skipped:   skipped,
		Failed:    failed,
	}
	for _, file := range a.files {
		report.Declarations += len(file.Declarations)
		report.References += len(file.References)
		for _, ref := range file.References {
			if ref.Resolved {
				report.Resolved++
			}
		}
		for _, d := range file.Diagnostics {
			if suppressed(d, cfg, f) {
				report.Suppressed++
				continue
			}
			report.Diagnostics = append(report.Diagnostics, d)
		}
	}
	sort.SliceStable(report.Diagnostics, func(i, j int) bool {
		li, lj := report.Diagnostics[i].Location, report.Diagnostics[j].Location
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		return li.Column < lj.Column
	})
	report.FinishedAt = time.Now()

	observability.ScanDuration.Observe(report.FinishedAt.Sub(started).Seconds())
	observability.Declarations.Set(float64(report.Declarations))
	observability.Diagnostics.Reset()
	for code, n := range report.CountByCode() {
		observability.Diagnostics.WithLabelValues(code).Set(float64(n))
	}

	if a.history != nil {
		if err := a.saveRun(ctx, cfg, report); err != nil {
			slog.Warn("failed to record run", "run", report.RunID, "error", err)
		}
	}
	return report
}

func suppressed(d parser.Diagnostic, cfg *config.Config, f filters) bool {
	switch errors.ErrorCode(d.Code) {
	case errors.CodeNotFound:
		if !cfg.Analysis.UnresolvedEnabled() {
			return true
		}
	case errors.CodeAmbiguous:
		if !cfg.Analysis.AmbiguousEnabled() {
			return true
		}
	}
	return matchAny(f.symbols, d.Symbol)
}

func (a *App) saveRun(ctx context.Context, cfg *config.Config, report *Report) error {
	run := history.Run{
		ID:               report.RunID,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
		FileCount:        report.FileCount,
		DeclarationCount: report.Declarations,
		ReferenceCount:   report.References,
		ResolvedCount:    report.Resolved,
	}
	for _, d := range report.Diagnostics {
		switch errors.ErrorCode(d.Code) {
		case errors.CodeNotFound:
			run.NotFoundCount++
		case errors.CodeAmbiguous:
			run.AmbiguousCount++
		case errors.CodeCircularInheritance:
			run.CircularCount++
		}
		run.Diagnostics = append(run.Diagnostics, history.Diagnostic{
			Code:       d.Code,
			Symbol:     d.Symbol,
			Message:    d.Message,
			File:       d.Location.File,
			Line:       d.Location.Line,
			Column:     d.Location.Column,
			Candidates: d.Candidates,
		})
	}
	if err := a.history.SaveRun(ctx, cfg.DB.ProjectKey, run); err != nil {
		return err
	}
	if cfg.DB.KeepRuns > 0 {
		pruned, err := a.history.PruneRuns(ctx, cfg.DB.ProjectKey, cfg.DB.KeepRuns)
		if err != nil {
			return err
		}
		if pruned > 0 {
			slog.Debug("pruned run history", "removed", pruned)
		}
	}
	return nil
}

// Trend loads the latest runs of the configured project and compares each
// with its predecessor, oldest first.
func (a *App) Trend(ctx context.Context, limit int) ([]history.TrendPoint, error) {
	if a.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "run history is disabled")
	}
	runs, err := a.history.LoadRuns(ctx, a.Config().DB.ProjectKey, limit)
	if err != nil {
		return nil, err
	}
	return history.BuildTrend(runs)
}

// recordLookups counts the lookups of a freshly bound file by outcome.
func recordLookups(file *parser.File) {
	resolved := 0
	for _, ref := range file.References {
		if ref.Resolved {
			resolved++
		}
	}
	observability.LookupsTotal.WithLabelValues(observability.OutcomeResolved).Add(float64(resolved))
	for _, d := range file.Diagnostics {
		observability.LookupsTotal.WithLabelValues(lookupOutcome(d.Code)).Inc()
	}
}

func lookupOutcome(code string) string {
	switch errors.ErrorCode(code) {
	case errors.CodeNotFound:
		return observability.OutcomeNotFound
	case errors.CodeAmbiguous:
		return observability.OutcomeAmbiguous
	case errors.CodeCircularInheritance:
		return observability.OutcomeCircular
	default:
		return observability.OutcomeUnexpected
	}
}
