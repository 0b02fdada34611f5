package ports

import (
	"context"

	"qrnglab/domain/experiment"
)

// SourceDiagnostics reports what a source dropped or rewrote while loading
type SourceDiagnostics struct {
	Source            string   `json:"source"`
	Documents         int      `json:"documents"`
	Sessions          int      `json:"sessions"`
	MalformedSessions int      `json:"malformed_sessions"`
	MalformedBlocks   int      `json:"malformed_blocks"`
	LegacyFields      int      `json:"legacy_fields"`  // Fields read under a historical name
	DerivedCounts     int      `json:"derived_counts"` // Hit counts derived from raw bits
	Warnings          []string `json:"warnings,omitempty"`
}

// SessionSource delivers a read-only snapshot of session records
type SessionSource interface {
	// LoadSessions returns every session the source can parse. Unparseable
	// records are counted in the diagnostics, not returned as errors; an error
	// means the source itself is unavailable.
	LoadSessions(ctx context.Context) ([]experiment.Session, SourceDiagnostics, error)

	// Name identifies the source in logs and reports
	Name() string
}
