package history

import (
	"fmt"
	"math"
	"sort"
)

// BuildTrend orders runs oldest first and compares each with its
// predecessor.
func BuildTrend(runs []Run) ([]TrendPoint, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs available")
	}
	ordered := make([]Run, len(runs))
	copy(ordered, runs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartedAt.Before(ordered[j].StartedAt)
	})

	points := make([]TrendPoint, 0, len(ordered))
	for i, current := range ordered {
		point := TrendPoint{
			RunID:       current.ID,
			StartedAt:   current.StartedAt,
			Diagnostics: current.DiagnosticCount(),
		}
		if current.ReferenceCount > 0 {
			point.ResolvedPct = round2(float64(current.ResolvedCount) / float64(current.ReferenceCount) * 100)
		}
		if i > 0 {
			prev := ordered[i-1]
			point.DeltaDiagnostics = current.DiagnosticCount() - prev.DiagnosticCount()
			point.DeltaDeclaration = current.DeclarationCount - prev.DeclarationCount
			point.DeltaAmbiguous = current.AmbiguousCount - prev.AmbiguousCount
		}
		points = append(points, point)
	}
	return points, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
