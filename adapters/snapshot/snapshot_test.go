package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"qrnglab/domain/core"
	"qrnglab/internal/errors"
	"qrnglab/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDoc = `[
  {
    "sessionId": "s1",
    "userId": "p1",
    "sessionType": "human",
    "status": "completed",
    "timestamp": "2025-02-01T10:00:00Z",
    "minutes": [
      {"minute": 0, "trials": 4, "subjectHits": 3, "demonHits": 2},
      {"minute": 1, "bits": [1, 0, 1, 1], "ghostBits": "0101"}
    ]
  },
  {
    "id": "s2",
    "participantId": "p2",
    "condition": "ai",
    "completed": false,
    "createdAt": 1735725600000,
    "dataSource": "lab",
    "blocks": [
      {"index": 0, "n": "5", "hits": "x", "ghostHits": 1},
      {"index": 1, "n": 5, "hits": 6, "ghostHits": 1},
      {"index": 2, "n": 2, "hits": 1, "ghostHits": 1, "entropy": 0.97,
       "trialLog": [{"subject": 1, "control": 0, "holdMs": 420}, {"subject": 0, "control": 1}]}
    ]
  },
  {"participantId": "p3", "condition": "ai", "blocks": []},
  "garbage"
]`

func TestParseNormalizesLegacyFields(t *testing.T) {
	sessions, diag, err := Parse([]byte(legacyDoc), "export")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	s1 := sessions[0]
	assert.Equal(t, core.SessionID("s1"), s1.ID)
	assert.Equal(t, core.ParticipantID("p1"), s1.ParticipantID)
	assert.Equal(t, "human", s1.Condition)
	assert.Equal(t, "export", s1.DataSource)
	require.NotNil(t, s1.Completed)
	assert.True(t, *s1.Completed)
	require.NotNil(t, s1.CreatedAt)
	assert.Equal(t, "2025-02-01T10:00:00Z", s1.CreatedAt.String())

	require.Len(t, s1.Blocks, 2)
	assert.Equal(t, 4, s1.Blocks[0].N)
	assert.Equal(t, 3, s1.Blocks[0].SubjectHits)
	assert.Equal(t, 2, s1.Blocks[0].ControlHits)
	derived := s1.Blocks[1]
	assert.Equal(t, 1, derived.Index)
	assert.Equal(t, 4, derived.N)
	assert.Equal(t, 3, derived.SubjectHits)
	assert.Equal(t, 2, derived.ControlHits)
	assert.Equal(t, []uint8{0, 1, 0, 1}, derived.ControlBits)

	s2 := sessions[1]
	assert.Equal(t, "lab", s2.DataSource)
	require.NotNil(t, s2.Completed)
	assert.False(t, *s2.Completed)
	assert.Equal(t, "2025-01-01T10:00:00Z", s2.CreatedAt.String())
	require.Len(t, s2.Blocks, 1)
	kept := s2.Blocks[0]
	assert.Equal(t, 2, kept.Index)
	require.NotNil(t, kept.Entropy)
	assert.InDelta(t, 0.97, *kept.Entropy, 1e-12)
	require.Len(t, kept.Trials, 2)
	require.NotNil(t, kept.Trials[0].HoldMillis)
	assert.Equal(t, 420.0, *kept.Trials[0].HoldMillis)
	assert.Nil(t, kept.Trials[1].HoldMillis)

	assert.Equal(t, 4, diag.Documents)
	assert.Equal(t, 2, diag.Sessions)
	assert.Equal(t, 2, diag.MalformedSessions)
	assert.Equal(t, 2, diag.MalformedBlocks)
	assert.Equal(t, 3, diag.DerivedCounts)
	assert.Positive(t, diag.LegacyFields)
	assert.Len(t, diag.Warnings, 4)
}

func TestParseWrappedAndInvalid(t *testing.T) {
	sessions, _, err := Parse([]byte(`{"sessions": [{"id": "a", "blocks": []}]}`), "wrapped")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	sessions, _, err = Parse([]byte(`{"data": [{"id": "a"}, {"id": "b"}]}`), "wrapped")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	_, _, err = Parse([]byte(`{"sessions": 3}`), "bad")
	assert.True(t, core.IsMalformedRecord(err))

	_, _, err = Parse([]byte(`not json`), "bad")
	assert.True(t, core.IsMalformedRecord(err))
}

func TestUnknownStatusLeavesCompletionAbsent(t *testing.T) {
	sessions, _, err := Parse([]byte(`[{"id": "a", "status": "paused"}]`), "x")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].Completed)
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := testkit.DefaultSessionConfig()
	cfg.SessionsPerCondition = 3
	cfg.BlocksPerSession = 4
	cfg.TrialsPerBlock = 20
	cfg.HoldDurationRate = 0.3
	want := testkit.NewSessionGenerator(cfg).Generate()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, Write(path, want))

	got, diag, err := NewFileSource(path, "").LoadSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapshot.json", diag.Source)
	assert.Zero(t, diag.MalformedBlocks)
	assert.Zero(t, diag.LegacyFields)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Condition, got[i].Condition)
		assert.Equal(t, want[i].CreatedAt.Time().UnixMilli(), got[i].CreatedAt.Time().UnixMilli())
		require.Len(t, got[i].Blocks, len(want[i].Blocks))
		for j := range want[i].Blocks {
			assert.Equal(t, want[i].Blocks[j].SubjectHits, got[i].Blocks[j].SubjectHits)
			assert.Equal(t, want[i].Blocks[j].ControlBits, got[i].Blocks[j].ControlBits)
			assert.Len(t, got[i].Blocks[j].Trials, len(want[i].Blocks[j].Trials))
		}
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	_, _, err := NewFileSource(filepath.Join(t.TempDir(), "absent.json"), "absent").LoadSessions(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeSourceUnavailable, errors.GetCode(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemorySourceHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewMemorySource("body", []byte(`[]`)).LoadSessions(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
