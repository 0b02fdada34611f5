package aggregation

import (
	"qrnglab/domain/core"
	"qrnglab/domain/experiment"
)

// Filter selects the sessions an analysis runs over. Zero values select everything.
type Filter struct {
	Completion      experiment.CompletionMode `json:"completion" form:"completion"`
	Conditions      []string                  `json:"conditions,omitempty" form:"condition"`
	DataSources     []string                  `json:"data_sources,omitempty" form:"data_source"`
	Ordinal         experiment.OrdinalMode    `json:"ordinal" form:"ordinal"`
	SessionWeighted bool                      `json:"session_weighted" form:"session_weighted"`
}

// DefaultFilter selects all sessions.
func DefaultFilter() Filter {
	return Filter{Completion: experiment.CompletionAll, Ordinal: experiment.OrdinalAll}
}

// Normalize maps empty or unknown modes to "all".
func (f Filter) Normalize() Filter {
	f.Completion = experiment.ParseCompletionMode(string(f.Completion))
	f.Ordinal = experiment.ParseOrdinalMode(string(f.Ordinal))
	return f
}

// needsOrdinal reports whether the filter depends on participant history.
func (f Filter) needsOrdinal() bool {
	return f.Ordinal != experiment.OrdinalAll || f.SessionWeighted
}

// BlockRow is one valid block of a selected session.
type BlockRow struct {
	SessionID      core.SessionID `json:"session_id"`
	Condition      string         `json:"condition,omitempty"`
	BlockIndex     int            `json:"block_index"`
	N              int            `json:"n"`
	SubjectHits    int            `json:"subject_hits"`
	ControlHits    int            `json:"control_hits"`
	HitRate        float64        `json:"hit_rate"`
	GhostRate      float64        `json:"ghost_rate"`
	SubjectEntropy *float64       `json:"subject_entropy,omitempty"`
	ControlEntropy *float64       `json:"control_entropy,omitempty"`
}

// SessionRow is the per-session derived summary.
// HitRate is trial-weighted over the session's valid blocks.
type SessionRow struct {
	SessionID          core.SessionID     `json:"session_id"`
	ParticipantID      core.ParticipantID `json:"participant_id,omitempty"`
	Condition          string             `json:"condition,omitempty"`
	DataSource         string             `json:"data_source,omitempty"`
	Completed          *bool              `json:"completed,omitempty"`
	Ordinal            int                `json:"ordinal,omitempty"` // 1 = participant's first session; 0 = unknown
	Blocks             int                `json:"blocks"`
	Trials             int                `json:"trials"`
	SubjectHits        int                `json:"subject_hits"`
	ControlHits        int                `json:"control_hits"`
	HitRate            float64            `json:"hit_rate"`
	GhostRate          float64            `json:"ghost_rate"`
	Delta              float64            `json:"delta"` // HitRate - GhostRate
	EntropyMean        *float64           `json:"entropy_mean,omitempty"`
	ControlEntropyMean *float64           `json:"control_entropy_mean,omitempty"`
	MalformedBlocks    int                `json:"malformed_blocks,omitempty"`
}

// SessionSeries holds the ordered per-session sequences the exploratory suite
// consumes. It is not part of the serialized output.
type SessionSeries struct {
	SessionID      core.SessionID
	Condition      string
	HitRates       []float64 // per valid block
	GhostRates     []float64
	SubjectEntropy []float64 // blocks with an entropy value, in block order
	ControlEntropy []float64 // blocks with control bits, in block order
	PairedEntropy  [][2]float64
	SubjectBits    []uint8 // concatenated over blocks carrying both halves
	ControlBits    []uint8
	HoldDurations  []float64 // trials with a recorded hold duration
	HoldHits       []float64 // subject bit of the same trials
}

// Pooled is the trial-weighted pool over all selected sessions.
type Pooled struct {
	Sessions    int     `json:"sessions"`
	Blocks      int     `json:"blocks"`
	Trials      int     `json:"trials"`
	SubjectHits int     `json:"subject_hits"`
	ControlHits int     `json:"control_hits"`
	HitRate     float64 `json:"hit_rate"`
	GhostRate   float64 `json:"ghost_rate"`
}

// Exclusions counts records dropped at each stage, for data-quality reporting.
type Exclusions struct {
	MalformedSessions  int `json:"malformed_sessions"`
	MalformedBlocks    int `json:"malformed_blocks"`
	MissingCompletion  int `json:"missing_completion"`
	MissingCondition   int `json:"missing_condition"`
	MissingCreatedAt   int `json:"missing_created_at"`
	MissingDataSource  int `json:"missing_data_source"`
	MissingParticipant int `json:"missing_participant"`
	FilteredOut        int `json:"filtered_out"`
	RepeatSessions     int `json:"repeat_sessions"` // dropped by session weighting
	EmptySessions      int `json:"empty_sessions"`
}

// Total is the number of excluded sessions (blocks are not counted).
func (e Exclusions) Total() int {
	return e.MalformedSessions + e.MissingCompletion + e.MissingCondition + e.MissingCreatedAt +
		e.MissingDataSource + e.MissingParticipant + e.FilteredOut + e.RepeatSessions + e.EmptySessions
}

// Summary is the immutable result of one aggregation pass.
type Summary struct {
	Filter     Filter          `json:"filter"`
	Input      int             `json:"input_sessions"`
	Sessions   []SessionRow    `json:"sessions"`
	Blocks     []BlockRow      `json:"blocks"`
	Series     []SessionSeries `json:"-"`
	Pooled     Pooled          `json:"pooled"`
	Exclusions Exclusions      `json:"exclusions"`
}

// RowsFor returns the session rows of one condition, in summary order.
func (s Summary) RowsFor(condition string) []SessionRow {
	var out []SessionRow
	for _, r := range s.Sessions {
		if r.Condition == condition {
			out = append(out, r)
		}
	}
	return out
}

// HitRatesFor returns the session hit rates of one condition.
func (s Summary) HitRatesFor(condition string) []float64 {
	var out []float64
	for _, r := range s.Sessions {
		if r.Condition == condition {
			out = append(out, r.HitRate)
		}
	}
	return out
}
