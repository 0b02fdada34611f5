// Package report assembles analysis output into the stable result schema handed
// to presentation layers.
package report

import (
	"time"

	"qrnglab/domain/core"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/analysis/exploratory"
	"qrnglab/internal/analysis/primary"
	"qrnglab/ports"
)

// SchemaVersion changes whenever the Results layout changes shape.
const SchemaVersion = "1"

// Settings echoes the analysis parameters that produced a report.
type Settings struct {
	Alpha                 float64  `json:"alpha"`
	Seed                  int64    `json:"seed"`
	Conditions            []string `json:"conditions"`
	BootstrapIterations   int      `json:"bootstrap_iterations"`
	PermutationIterations int      `json:"permutation_iterations"`
	MaxResampleN          int      `json:"max_resample_n,omitempty"`
}

// Results is the deterministic part of a report. Equal inputs give byte-equal
// JSON and therefore equal fingerprints.
type Results struct {
	SchemaVersion     string                      `json:"schema_version"`
	Config            Settings                    `json:"config"`
	Filter            aggregation.Filter          `json:"filter"`
	Source            *ports.SourceDiagnostics    `json:"source,omitempty"`
	Summary           aggregation.Summary         `json:"summary"`
	Overview          *exploratory.OverviewResult `json:"overview,omitempty"`
	Confirmatory      *primary.Result             `json:"confirmatory,omitempty"`
	Exploratory       *exploratory.Result         `json:"exploratory,omitempty"`
	ExploratoryCaveat string                      `json:"exploratory_caveat"`
}

// Report wraps Results with identity and provenance.
type Report struct {
	ID          core.ReportID `json:"id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Fingerprint core.Hash     `json:"fingerprint"`
	Results     Results       `json:"results"`
}

// New stamps results with a fresh ID and the fingerprint of their JSON encoding.
// ID and GeneratedAt are outside the fingerprint.
func New(results Results, now time.Time) (*Report, error) {
	results.SchemaVersion = SchemaVersion
	if results.ExploratoryCaveat == "" {
		results.ExploratoryCaveat = exploratory.Caveat
	}
	fp, err := core.Fingerprint(results)
	if err != nil {
		return nil, err
	}
	return &Report{
		ID:          core.NewReportID(),
		GeneratedAt: now.UTC(),
		Fingerprint: fp,
		Results:     results,
	}, nil
}

// Verify recomputes the fingerprint and reports whether it still matches.
func (r *Report) Verify() bool {
	fp, err := core.Fingerprint(r.Results)
	return err == nil && fp == r.Fingerprint
}

// Entry is the listing view of an archived report.
type Entry struct {
	ID          core.ReportID `json:"id" db:"id"`
	Fingerprint core.Hash     `json:"fingerprint" db:"fingerprint"`
	GeneratedAt time.Time     `json:"generated_at" db:"generated_at"`
}

// Entry returns the listing view of r.
func (r *Report) Entry() Entry {
	return Entry{ID: r.ID, Fingerprint: r.Fingerprint, GeneratedAt: r.GeneratedAt}
}
