package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate reports every problem found in cfg.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) []error{
		validateVersion,
		validateLanguages,
		validateExclude,
		validateAnalysis,
		validateDatabase,
		validateWatch,
		validateOutput,
	} {
		errs = append(errs, check(cfg)...)
	}
	return errs
}

func validateVersion(cfg *Config) []error {
	if cfg.Version != 1 {
		return []error{fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)}
	}
	return nil
}

func validateLanguages(cfg *Config) []error {
	var errs []error
	owner := make(map[string]string)
	for id, settings := range cfg.Languages {
		if _, known := DefaultLanguages[id]; !known {
			errs = append(errs, fmt.Errorf("languages.%s is not supported; supported languages are c and cpp", id))
			continue
		}
		if !settings.IsEnabled() {
			continue
		}
		for _, ext := range settings.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				errs = append(errs, fmt.Errorf("languages.%s.extensions must not include empty values", id))
				continue
			}
			if prev, ok := owner[ext]; ok && prev != id {
				errs = append(errs, fmt.Errorf("extension %q is claimed by both %s and %s", ext, prev, id))
			}
			owner[ext] = id
		}
	}
	return errs
}

func validateExclude(cfg *Config) []error {
	var errs []error
	check := func(section string, patterns []string) {
		for i, pattern := range patterns {
			if _, err := glob.Compile(pattern); err != nil {
				errs = append(errs, fmt.Errorf("exclude.%s[%d] %q is not a valid glob: %w", section, i, pattern, err))
			}
		}
	}
	check("dirs", cfg.Exclude.Dirs)
	check("files", cfg.Exclude.Files)
	check("symbols", cfg.Exclude.Symbols)
	return errs
}

func validateAnalysis(cfg *Config) []error {
	var errs []error
	if cfg.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be >= 0, got %d", cfg.Analysis.Workers))
	}
	if cfg.Analysis.MaxFileBytes < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_file_bytes must be >= 0, got %d", cfg.Analysis.MaxFileBytes))
	}
	return errs
}

func validateDatabase(cfg *Config) []error {
	var errs []error
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		errs = append(errs, fmt.Errorf("db.path must not be empty when db.enabled=true"))
	}
	if cfg.DB.KeepRuns < 0 {
		errs = append(errs, fmt.Errorf("db.keep_runs must be >= 0, got %d", cfg.DB.KeepRuns))
	}
	return errs
}

func validateWatch(cfg *Config) []error {
	var errs []error
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}
	if cfg.Watch.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("watch.rate_per_second must not be negative"))
	}
	if cfg.Watch.Burst < 1 {
		errs = append(errs, fmt.Errorf("watch.burst must be >= 1, got %d", cfg.Watch.Burst))
	}
	return errs
}

func validateOutput(cfg *Config) []error {
	switch strings.ToLower(strings.TrimSpace(cfg.Output.Format)) {
	case "text", "json":
		return nil
	default:
		return []error{fmt.Errorf("output.format must be one of: text, json")}
	}
}
