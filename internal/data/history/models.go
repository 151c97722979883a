package history

import "time"

const SchemaVersion = 1

// Run is the persisted summary of one scan.
type Run struct {
	ID               string    `json:"id"`
	ProjectKey       string    `json:"project_key"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	FileCount        int       `json:"file_count"`
	DeclarationCount int       `json:"declaration_count"`
	ReferenceCount   int       `json:"reference_count"`
	ResolvedCount    int       `json:"resolved_count"`
	NotFoundCount    int       `json:"not_found_count"`
	AmbiguousCount   int       `json:"ambiguous_count"`
	CircularCount    int       `json:"circular_count"`

	// Diagnostics are written with the run but not read back by LoadRuns.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// DiagnosticCount is the number of failed lookups in the run.
func (r Run) DiagnosticCount() int {
	return r.NotFoundCount + r.AmbiguousCount + r.CircularCount
}

type Diagnostic struct {
	Code       string   `json:"code"`
	Symbol     string   `json:"symbol"`
	Message    string   `json:"message"`
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	Candidates []string `json:"candidates,omitempty"`
}

// TrendPoint compares a run with the one before it.
type TrendPoint struct {
	RunID            string    `json:"run_id"`
	StartedAt        time.Time `json:"started_at"`
	Diagnostics      int       `json:"diagnostics"`
	DeltaDiagnostics int       `json:"delta_diagnostics"`
	DeltaDeclaration int       `json:"delta_declarations"`
	DeltaAmbiguous   int       `json:"delta_ambiguous"`
	ResolvedPct      float64   `json:"resolved_pct"`
}
