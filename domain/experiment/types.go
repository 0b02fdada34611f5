package experiment

import (
	"qrnglab/domain/core"
)

// ============================================================================
// RECORDS (read-only projections of persisted documents)
// ============================================================================

// Trial is a single button press paired with one subject bit and one control bit.
type Trial struct {
	BlockIndex int             `json:"block_index"`
	TrialIndex int             `json:"trial_index"`
	SubjectBit uint8           `json:"subject_bit"`
	ControlBit uint8           `json:"control_bit"`
	HoldMillis *float64        `json:"hold_ms,omitempty"` // Optional press/hold duration
	Timestamp  *core.Timestamp `json:"timestamp,omitempty"`
}

// Block is one batch of trials drawn from a single random-source fetch ("minute").
// INVARIANTS:
// - SubjectHits <= N and ControlHits <= N
// - len(SubjectBits) == N when SubjectBits is present (same for ControlBits)
type Block struct {
	Index       int      `json:"index"`
	N           int      `json:"n"`
	SubjectHits int      `json:"subject_hits"`
	ControlHits int      `json:"control_hits"`
	SubjectBits []uint8  `json:"subject_bits,omitempty"`
	ControlBits []uint8  `json:"control_bits,omitempty"`
	Entropy     *float64 `json:"entropy,omitempty"` // Stored entropy over the block's bit window
	Trials      []Trial  `json:"trials,omitempty"`
}

// Session is one run of the experiment by one participant.
// Optional fields are pointers or empty strings: absence means "exclude from the
// test that needs the field", never zero/false.
type Session struct {
	ID            core.SessionID     `json:"id"`
	ParticipantID core.ParticipantID `json:"participant_id"`
	Condition     string             `json:"condition,omitempty"`
	DataSource    string             `json:"data_source,omitempty"`
	Completed     *bool              `json:"completed,omitempty"`
	CreatedAt     *core.Timestamp    `json:"created_at,omitempty"`
	ExitReason    string             `json:"exit_reason,omitempty"`
	Blocks        []Block            `json:"blocks"`
}

// Participant groups the sessions that share a stable participant id.
type Participant struct {
	ID       core.ParticipantID `json:"id"`
	Sessions []Session          `json:"sessions"`
}

// ============================================================================
// FILTER VOCABULARY
// ============================================================================

// CompletionMode selects sessions by completion flag.
type CompletionMode string

const (
	CompletionAll           CompletionMode = "all"
	CompletionCompleters    CompletionMode = "completers"
	CompletionNonCompleters CompletionMode = "nonCompleters"
)

// OrdinalMode selects sessions by their position in a participant's history.
type OrdinalMode string

const (
	OrdinalAll    OrdinalMode = "all"
	OrdinalFirst  OrdinalMode = "first"
	OrdinalRepeat OrdinalMode = "repeat"
)

// ParseCompletionMode maps user input to a CompletionMode; unknown input is "all".
func ParseCompletionMode(s string) CompletionMode {
	switch CompletionMode(s) {
	case CompletionCompleters, CompletionNonCompleters:
		return CompletionMode(s)
	}
	switch s {
	case "completed", "complete":
		return CompletionCompleters
	case "incomplete", "noncompleters", "non-completers":
		return CompletionNonCompleters
	}
	return CompletionAll
}

// ParseOrdinalMode maps user input to an OrdinalMode; unknown input is "all".
func ParseOrdinalMode(s string) OrdinalMode {
	switch OrdinalMode(s) {
	case OrdinalFirst, OrdinalRepeat:
		return OrdinalMode(s)
	}
	return OrdinalAll
}
