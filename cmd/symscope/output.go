package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"symscope/internal/core/app"
	"symscope/internal/data/history"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, json: strings.EqualFold(strings.TrimSpace(format), "json")}
}

func (p *printer) Report(r *app.Report) error {
	if p.json {
		return p.encode(r)
	}
	_, err := io.WriteString(p.w, formatReport(r))
	return err
}

func (p *printer) Trend(points []history.TrendPoint) error {
	if p.json {
		return p.encode(points)
	}
	_, err := io.WriteString(p.w, formatTrend(points))
	return err
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func codeStyle(code string) lipgloss.Style {
	if code == "AMBIGUOUS" {
		return warnStyle
	}
	return errorStyle
}

func formatReport(r *app.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("symscope report"))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("run %s, %s", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Files: %d  Declarations: %d  References: %d  Resolved: %d\n",
		r.FileCount, r.Declarations, r.References, r.Resolved)

	if r.Clean() {
		b.WriteString(successStyle.Render("No diagnostics"))
		b.WriteString("\n")
	} else if len(r.Diagnostics) > 0 {
		counts := r.CountByCode()
		codes := make([]string, 0, len(counts))
		for code := range counts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		parts := make([]string, 0, len(codes))
		for _, code := range codes {
			parts = append(parts, codeStyle(code).Render(fmt.Sprintf("%s %d", code, counts[code])))
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n\n")
		for _, d := range r.Diagnostics {
			fmt.Fprintf(&b, "%s:%d:%d %s %s: %s\n",
				d.Location.File, d.Location.Line, d.Location.Column,
				codeStyle(d.Code).Render(d.Code), d.Symbol, d.Message)
			for _, c := range d.Candidates {
				fmt.Fprintf(&b, "    candidate %s\n", c)
			}
		}
	}

	if r.Suppressed > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d diagnostics suppressed", r.Suppressed)))
		b.WriteString("\n")
	}
	for _, path := range r.Skipped {
		b.WriteString(statusStyle.Render("skipped (too large) " + path))
		b.WriteString("\n")
	}
	for _, f := range r.Failed {
		fmt.Fprintf(&b, "%s %s: %s\n", errorStyle.Render("failed"), f.Path, f.Error)
	}
	return b.String()
}

func formatTrend(points []history.TrendPoint) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Run history"))
	b.WriteString("\n")
	for _, p := range points {
		delta := fmt.Sprintf("%+d", p.DeltaDiagnostics)
		switch {
		case p.DeltaDiagnostics > 0:
			delta = errorStyle.Render(delta)
		case p.DeltaDiagnostics < 0:
			delta = successStyle.Render(delta)
		}
		fmt.Fprintf(&b, "%s  %s  diagnostics %d (%s)  resolved %.2f%%\n",
			p.StartedAt.Format("2006-01-02 15:04:05"), p.RunID, p.Diagnostics, delta, p.ResolvedPct)
	}
	return b.String()
}
