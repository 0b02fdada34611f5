package experiment

import (
	"fmt"
	"sort"

	"qrnglab/domain/core"
)

// Validate checks the block invariants. A block that fails is skipped by the
// aggregates that need it and counted as malformed.
func (b Block) Validate() error {
	record := fmt.Sprintf("block[%d]", b.Index)
	if b.N <= 0 {
		return core.NewMalformedRecordError(record, "n", "must be positive")
	}
	if b.SubjectHits < 0 || b.SubjectHits > b.N {
		return core.NewMalformedRecordError(record, "subject_hits", fmt.Sprintf("%d outside [0,%d]", b.SubjectHits, b.N))
	}
	if b.ControlHits < 0 || b.ControlHits > b.N {
		return core.NewMalformedRecordError(record, "control_hits", fmt.Sprintf("%d outside [0,%d]", b.ControlHits, b.N))
	}
	if b.SubjectBits != nil && len(b.SubjectBits) != b.N {
		return core.NewMalformedRecordError(record, "subject_bits", fmt.Sprintf("length %d != n %d", len(b.SubjectBits), b.N))
	}
	if b.ControlBits != nil && len(b.ControlBits) != b.N {
		return core.NewMalformedRecordError(record, "control_bits", fmt.Sprintf("length %d != n %d", len(b.ControlBits), b.N))
	}
	if err := validBits(b.SubjectBits); err != nil {
		return core.NewMalformedRecordError(record, "subject_bits", err.Error())
	}
	if err := validBits(b.ControlBits); err != nil {
		return core.NewMalformedRecordError(record, "control_bits", err.Error())
	}
	return nil
}

func validBits(bits []uint8) error {
	for i, v := range bits {
		if v > 1 {
			return fmt.Errorf("value %d at %d is not a bit", v, i)
		}
	}
	return nil
}

// HasBits reports whether both raw bit halves were recorded.
func (b Block) HasBits() bool {
	return len(b.SubjectBits) > 0 && len(b.ControlBits) > 0
}

// HitRate is the subject hit fraction of the block.
func (b Block) HitRate() float64 {
	if b.N == 0 {
		return 0
	}
	return float64(b.SubjectHits) / float64(b.N)
}

// GhostRate is the control hit fraction of the block.
func (b Block) GhostRate() float64 {
	if b.N == 0 {
		return 0
	}
	return float64(b.ControlHits) / float64(b.N)
}

// SortedBlocks returns the blocks ordered by block index without mutating s.
func (s Session) SortedBlocks() []Block {
	blocks := make([]Block, len(s.Blocks))
	copy(blocks, s.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Index < blocks[j].Index })
	return blocks
}

// IsCompleted reports the completion flag and whether it was recorded.
func (s Session) IsCompleted() (completed bool, known bool) {
	if s.Completed == nil {
		return false, false
	}
	return *s.Completed, true
}

// GroupByParticipant groups sessions by participant id, ordering each
// participant's sessions by creation time. Sessions without a creation time
// sort last in input order; sessions without a participant id are skipped.
func GroupByParticipant(sessions []Session) []Participant {
	index := make(map[core.ParticipantID]int)
	var participants []Participant
	for _, s := range sessions {
		if s.ParticipantID.IsEmpty() {
			continue
		}
		i, ok := index[s.ParticipantID]
		if !ok {
			i = len(participants)
			index[s.ParticipantID] = i
			participants = append(participants, Participant{ID: s.ParticipantID})
		}
		participants[i].Sessions = append(participants[i].Sessions, s)
	}

	for i := range participants {
		ss := participants[i].Sessions
		sort.SliceStable(ss, func(a, b int) bool {
			ta, tb := ss[a].CreatedAt, ss[b].CreatedAt
			switch {
			case ta == nil && tb == nil:
				return false
			case ta == nil:
				return false
			case tb == nil:
				return true
			}
			return ta.Before(*tb)
		})
	}
	return participants
}

// FirstSession returns the session with the earliest creation time, if any
// session of the participant carries one.
func (p Participant) FirstSession() (Session, bool) {
	for _, s := range p.Sessions {
		if s.CreatedAt != nil {
			return s, true
		}
	}
	return Session{}, false
}
