package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"qrnglab/domain/stats"
)

// RenderMarkdown writes a human-readable summary of the report. Confirmatory and
// exploratory results are kept in separate sections.
func RenderMarkdown(r *Report) string {
	var b strings.Builder
	res := r.Results

	fmt.Fprintf(&b, "# Analysis report %s\n\n", r.ID)
	fmt.Fprintf(&b, "Generated %s, fingerprint `%s`, alpha %.3g, seed %d.\n\n",
		r.GeneratedAt.Format("2006-01-02 15:04:05 MST"), r.Fingerprint.Short(), res.Config.Alpha, res.Config.Seed)

	writeDataQuality(&b, res)
	writeOverview(&b, res)
	writeConfirmatory(&b, res)
	writeExploratory(&b, res)
	return b.String()
}

// RenderHTML renders the markdown summary as a standalone HTML page.
func RenderHTML(r *Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: fmt.Sprintf("Analysis report %s", r.ID),
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	})
	return markdown.ToHTML([]byte(RenderMarkdown(r)), p, renderer)
}

func writeDataQuality(b *strings.Builder, res Results) {
	s := res.Summary
	ex := s.Exclusions
	b.WriteString("## Data\n\n")
	fmt.Fprintf(b, "%d of %d sessions selected (%d blocks, %d trials).\n\n", len(s.Sessions), s.Input, s.Pooled.Blocks, s.Pooled.Trials)
	if ex.Total() == 0 && ex.MalformedBlocks == 0 {
		return
	}
	b.WriteString("| Exclusion | Count |\n|---|---:|\n")
	rows := []struct {
		label string
		n     int
	}{
		{"malformed sessions", ex.MalformedSessions},
		{"malformed blocks", ex.MalformedBlocks},
		{"missing completion flag", ex.MissingCompletion},
		{"missing condition", ex.MissingCondition},
		{"missing creation time", ex.MissingCreatedAt},
		{"missing data source", ex.MissingDataSource},
		{"missing participant", ex.MissingParticipant},
		{"filtered out", ex.FilteredOut},
		{"repeat sessions", ex.RepeatSessions},
		{"empty sessions", ex.EmptySessions},
	}
	for _, row := range rows {
		if row.n > 0 {
			fmt.Fprintf(b, "| %s | %d |\n", row.label, row.n)
		}
	}
	b.WriteString("\n")
}

func writeOverview(b *strings.Builder, res Results) {
	o := res.Overview
	if o == nil {
		return
	}
	b.WriteString("## Overview (descriptive)\n\n")
	fmt.Fprintf(b, "Pooled hit rate %.4f vs ghost rate %.4f over %d trials: z = %.3f, p = %s.\n",
		o.Pooled.HitRate, o.Pooled.GhostRate, o.Pooled.Trials, o.SubjectVsControl.Z, formatP(o.SubjectVsControl.P))
	fmt.Fprintf(b, "Exact binomial vs 0.5: two-sided p = %s, one-sided p = %s.\n",
		formatP(o.BinomialTwoSided.PExact), formatP(o.BinomialGreater.PExact))
	if o.MinHitsSignificant > 0 {
		fmt.Fprintf(b, "Hits needed for one-sided significance: %d of %d.\n", o.MinHitsSignificant, o.Pooled.Trials)
	}
	b.WriteString("\n")
	if len(o.Conditions) > 0 {
		b.WriteString("| Condition | Sessions | Trials | Hit rate | Ghost rate |\n|---|---:|---:|---:|---:|\n")
		for _, c := range o.Conditions {
			fmt.Fprintf(b, "| %s | %d | %d | %.4f | %.4f |\n", c.Condition, c.Sessions, c.Trials, c.HitRate, c.GhostRate)
		}
		b.WriteString("\n")
	}
}

func writeConfirmatory(b *strings.Builder, res Results) {
	c := res.Confirmatory
	if c == nil {
		return
	}
	b.WriteString("## Confirmatory analysis\n\n")
	b.WriteString("| Group | n | Mean | SD | SE |\n|---|---:|---:|---:|---:|\n")
	for _, g := range c.Groups {
		fmt.Fprintf(b, "| %s | %d | %.4f | %.4f | %.4f |\n", g.Condition, g.N, g.Mean, g.SD, g.SE)
	}
	b.WriteString("\n")

	if len(c.Comparisons) > 0 {
		b.WriteString("| Comparison | t | df | p | Holm p | d | MDE | Significant |\n|---|---:|---:|---:|---:|---:|---:|---|\n")
		for _, cmp := range c.Comparisons {
			adjusted := cmp.Result.PValue
			significant := false
			if m, ok := c.Correction.Member(cmp.Label); ok {
				adjusted, significant = m.AdjustedP, m.Significant
			}
			fmt.Fprintf(b, "| %s | %.3f | %.1f | %s | %s | %.3f | %.3f | %s |\n",
				cmp.Label, cmp.Welch.T, cmp.Welch.DF, formatP(cmp.Welch.P), formatP(adjusted), cmp.CohenD, cmp.MDE, yesNo(significant))
		}
		b.WriteString("\n")
	}
	writeSkipped(b, c.Skipped)
}

func writeExploratory(b *strings.Builder, res Results) {
	e := res.Exploratory
	if e == nil {
		return
	}
	b.WriteString("## Exploratory analyses\n\n")
	fmt.Fprintf(b, "> %s\n\n", res.ExploratoryCaveat)

	var lines []string
	add := func(r stats.StatisticalResult) {
		lines = append(lines, fmt.Sprintf("- %s: statistic %.3f, p = %s%s", r.Label, r.Statistic, formatP(r.PValue), flag(r)))
	}
	if a := e.Autocorrelation; a != nil {
		for _, m := range a.SubjectCorrection.Members {
			lines = append(lines, fmt.Sprintf("- %s: p = %s, Holm p = %s", m.Result.Label, formatP(m.Result.PValue), formatP(m.AdjustedP)))
		}
	}
	if h := e.HalfComparison; h != nil {
		add(h.Result)
	}
	if w := e.EntropyTwoWindows; w != nil {
		add(w.Result)
		if w.Bootstrap != nil {
			lines = append(lines, fmt.Sprintf("- entropy window difference %.0f%% CI: [%.5f, %.5f]", w.Bootstrap.Level*100, w.Bootstrap.Lower, w.Bootstrap.Upper))
		}
		if w.Permutation != nil {
			lines = append(lines, fmt.Sprintf("- entropy window sign-flip permutation: p = %s (%d resamples)", formatP(w.Permutation.P), w.Permutation.Iterations))
		}
	}
	if w := e.EntropyThreeWindows; w != nil {
		add(w.TrendResult)
		for _, m := range w.FDR.Members {
			lines = append(lines, fmt.Sprintf("- %s: p = %s, FDR q = %s", m.Result.Label, formatP(m.Result.PValue), formatP(m.AdjustedP)))
		}
		if w.Differential != nil {
			add(w.Differential.Result)
		}
	}
	if h := e.Harmonic; h != nil {
		add(h.Result)
		if !h.Spectrum.Empty() {
			lines = append(lines, fmt.Sprintf("- dominant period %.2f blocks (%s, %d segments)", h.Spectrum.DominantPeriod, h.Spectrum.Method, h.Spectrum.Segments))
		}
	}
	if d := e.Damped; d != nil {
		add(d.Result)
	}
	if cv := e.ControlValidation; cv != nil {
		lines = append(lines, fmt.Sprintf("- subject/control bit correlation r = %.4f over %d bits", cv.BitCorrelation, cv.Bits))
		if cv.ChiResult != nil {
			add(*cv.ChiResult)
		}
		if cv.DesignError {
			lines = append(lines, "- **design error**: "+strings.Join(cv.Reasons, "; "))
		}
	}
	if h := e.HoldDuration; h != nil && h.Result != nil {
		add(*h.Result)
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	b.WriteString("\n")
	writeSkipped(b, e.Skipped)
}

func writeSkipped(b *strings.Builder, notes []stats.SkipNote) {
	if len(notes) == 0 {
		return
	}
	b.WriteString("Skipped:\n\n")
	for _, n := range notes {
		fmt.Fprintf(b, "- %s (%s)\n", n.Test, n.Reason)
	}
	b.WriteString("\n")
}

func formatP(p float64) string {
	if p < 0.0001 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

func flag(r stats.StatisticalResult) string {
	switch {
	case r.Degenerate:
		return " (degenerate)"
	case r.Significant:
		return " *"
	}
	return ""
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
