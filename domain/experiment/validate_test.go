package experiment

import (
	"testing"
	"time"

	"qrnglab/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(minute int) *core.Timestamp {
	t := core.NewTimestamp(time.Date(2025, 3, 1, 12, minute, 0, 0, time.UTC))
	return &t
}

func TestBlockValidate(t *testing.T) {
	tests := []struct {
		name    string
		block   Block
		wantErr bool
	}{
		{"valid counts", Block{Index: 0, N: 10, SubjectHits: 4, ControlHits: 6}, false},
		{"valid bits", Block{N: 4, SubjectHits: 2, SubjectBits: []uint8{1, 0, 1, 0}, ControlBits: []uint8{0, 0, 1, 1}}, false},
		{"zero n", Block{N: 0}, true},
		{"subject hits above n", Block{N: 5, SubjectHits: 6}, true},
		{"negative control hits", Block{N: 5, ControlHits: -1}, true},
		{"bit length mismatch", Block{N: 3, SubjectBits: []uint8{1, 0}}, true},
		{"non-binary bit", Block{N: 2, ControlBits: []uint8{1, 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.block.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsMalformedRecord(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSortedBlocksDoesNotMutate(t *testing.T) {
	s := Session{Blocks: []Block{{Index: 2}, {Index: 0}, {Index: 1}}}
	sorted := s.SortedBlocks()

	assert.Equal(t, []int{0, 1, 2}, []int{sorted[0].Index, sorted[1].Index, sorted[2].Index})
	assert.Equal(t, 2, s.Blocks[0].Index)
}

func TestGroupByParticipantOrdersByCreation(t *testing.T) {
	sessions := []Session{
		{ID: "s3", ParticipantID: "p1", CreatedAt: ts(30)},
		{ID: "s1", ParticipantID: "p1", CreatedAt: ts(10)},
		{ID: "s-undated", ParticipantID: "p1"},
		{ID: "s2", ParticipantID: "p2", CreatedAt: ts(20)},
		{ID: "anon"},
	}

	participants := GroupByParticipant(sessions)
	require.Len(t, participants, 2)

	p1 := participants[0]
	assert.Equal(t, core.ParticipantID("p1"), p1.ID)
	require.Len(t, p1.Sessions, 3)
	assert.Equal(t, core.SessionID("s1"), p1.Sessions[0].ID)
	assert.Equal(t, core.SessionID("s3"), p1.Sessions[1].ID)
	assert.Equal(t, core.SessionID("s-undated"), p1.Sessions[2].ID)

	first, ok := p1.FirstSession()
	require.True(t, ok)
	assert.Equal(t, core.SessionID("s1"), first.ID)
}

func TestParseModes(t *testing.T) {
	assert.Equal(t, CompletionCompleters, ParseCompletionMode("completers"))
	assert.Equal(t, CompletionNonCompleters, ParseCompletionMode("incomplete"))
	assert.Equal(t, CompletionAll, ParseCompletionMode("whatever"))
	assert.Equal(t, OrdinalFirst, ParseOrdinalMode("first"))
	assert.Equal(t, OrdinalAll, ParseOrdinalMode(""))
}
