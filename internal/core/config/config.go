package config

import (
	"sort"
	"time"

	"symscope/internal/shared/util"
)

type Config struct {
	Version       int                 `toml:"version"`
	WatchPaths    []string            `toml:"watch_paths"`
	Languages     map[string]Language `toml:"languages"`
	Exclude       Exclude             `toml:"exclude"`
	Analysis      Analysis            `toml:"analysis"`
	DB            Database            `toml:"db"`
	Watch         Watch               `toml:"watch"`
	Observability Observability       `toml:"observability"`
	Output        Output              `toml:"output"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

func (l Language) IsEnabled() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
	// Symbols are glob patterns; diagnostics for matching names are dropped.
	Symbols []string `toml:"symbols"`
}

type Analysis struct {
	Workers          int   `toml:"workers"`
	ReportUnresolved *bool `toml:"report_unresolved"`
	ReportAmbiguous  *bool `toml:"report_ambiguous"`
	MaxFileBytes     int64 `toml:"max_file_bytes"`
}

func (a Analysis) UnresolvedEnabled() bool { return a.ReportUnresolved == nil || *a.ReportUnresolved }
func (a Analysis) AmbiguousEnabled() bool  { return a.ReportAmbiguous == nil || *a.ReportAmbiguous }

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	ProjectKey  string        `toml:"project_key"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	// KeepRuns bounds the stored history per project; 0 keeps every run.
	KeepRuns int `toml:"keep_runs"`
}

type Watch struct {
	Debounce      time.Duration `toml:"debounce"`
	RatePerSecond float64       `toml:"rate_per_second"`
	Burst         int           `toml:"burst"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

type Output struct {
	Format string `toml:"format"`
}

// DefaultLanguages is the extension registry used when a language has no
// explicit extensions configured.
var DefaultLanguages = map[string][]string{
	"c":   {".c"},
	"cpp": {".cc", ".cpp", ".cxx", ".c++", ".h", ".hh", ".hpp", ".hxx"},
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ExtensionMap maps lower-cased file extensions to the enabled language
// that handles them.
func (c *Config) ExtensionMap() map[string]string {
	out := make(map[string]string)
	ids := make([]string, 0, len(c.Languages))
	for id := range c.Languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		lang := c.Languages[id]
		if !lang.IsEnabled() {
			continue
		}
		for _, ext := range lang.Extensions {
			if ext = util.NormalizeExtension(ext); ext != "" {
				out[ext] = id
			}
		}
	}
	return out
}
