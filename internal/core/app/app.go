package app

import (
	"fmt"
	"log/slog"
	"sync"

	"symscope/internal/core/config"
	"symscope/internal/data/history"
	"symscope/internal/engine/parser"

	"github.com/gobwas/glob"
)

// App binds C and C++ sources into symbol tables and reports the names
// that failed to resolve. Files are bound independently; the App keeps the
// latest result per file so watch mode can rebind only what changed.
type App struct {
	mu      sync.RWMutex
	cfg     *config.Config
	parser  *parser.Parser
	filters filters

	// scanMu serializes Scan and Rescan.
	scanMu sync.Mutex
	files  map[string]*parser.File
	// roots are the directories of the last Scan; Rescan only applies
	// the exclude globs below them.
	roots []string

	history *history.Store
}

type filters struct {
	dirs    []glob.Glob
	files   []glob.Glob
	symbols []glob.Glob
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	p, f, err := build(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		parser:  p,
		filters: f,
		files:   make(map[string]*parser.File),
	}
	if cfg.DB.Enabled {
		store, err := history.Open(cfg.DB.Path, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, fmt.Errorf("open history %q: %w", cfg.DB.Path, err)
		}
		a.history = store
	}
	return a, nil
}

func build(cfg *config.Config) (*parser.Parser, filters, error) {
	var f filters
	loader, err := parser.NewGrammarLoader(cfg.ExtensionMap())
	if err != nil {
		return nil, f, err
	}
	if f.dirs, err = compileGlobs(cfg.Exclude.Dirs, "exclude dir"); err != nil {
		return nil, f, err
	}
	if f.files, err = compileGlobs(cfg.Exclude.Files, "exclude file"); err != nil {
		return nil, f, err
	}
	if f.symbols, err = compileGlobs(cfg.Exclude.Symbols, "exclude symbol"); err != nil {
		return nil, f, err
	}
	return parser.NewParser(loader), f, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Reconfigure swaps in a reloaded configuration. Language, exclude and
// analysis settings apply from the next scan; the history database stays
// the one opened by New.
func (a *App) Reconfigure(cfg *config.Config) error {
	p, f, err := build(cfg)
	if err != nil {
		return err
	}
	a.mu.Lock()
	prev := a.cfg
	a.cfg, a.parser, a.filters = cfg, p, f
	a.mu.Unlock()

	if prev.DB.Enabled != cfg.DB.Enabled || prev.DB.Path != cfg.DB.Path {
		slog.Warn("history settings changed; restart to apply", "path", cfg.DB.Path)
	}
	slog.Info("configuration applied", "languages", len(p.SupportedExtensions()), "workers", cfg.Analysis.Workers)
	return nil
}

func (a *App) snapshot() (*config.Config, *parser.Parser, filters) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg, a.parser, a.filters
}

// History exposes the run store, nil when persistence is disabled.
func (a *App) History() *history.Store {
	return a.history
}

func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}
