package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionGenerator_Basic(t *testing.T) {
	config := DefaultSessionConfig()
	config.SessionsPerCondition = 4
	config.BlocksPerSession = 3
	config.TrialsPerBlock = 50

	sessions := NewSessionGenerator(config).Generate()
	require.Len(t, sessions, 12)

	for _, s := range sessions {
		assert.False(t, s.ID.IsEmpty())
		require.Len(t, s.Blocks, 3)
		for _, b := range s.Blocks {
			assert.NoError(t, b.Validate())
			assert.Len(t, b.SubjectBits, 50)
		}
	}
}

func TestSessionGenerator_Deterministic(t *testing.T) {
	config := DefaultSessionConfig()
	config.SessionsPerCondition = 3

	a := NewSessionGenerator(config).Generate()
	b := NewSessionGenerator(config).Generate()
	assert.Equal(t, a, b)

	config.Seed = 7
	c := NewSessionGenerator(config).Generate()
	assert.NotEqual(t, a[0].Blocks[0].SubjectBits, c[0].Blocks[0].SubjectBits)
}

func TestSessionGenerator_RepeatSessionsAndHolds(t *testing.T) {
	config := DefaultSessionConfig()
	config.Conditions = []string{"human"}
	config.SessionsPerCondition = 4
	config.SessionsPerPerson = 2
	config.HoldDurationRate = 0.5
	config.WithBits = false

	sessions := NewSessionGenerator(config).Generate()
	assert.Equal(t, sessions[0].ParticipantID, sessions[1].ParticipantID)
	assert.NotEqual(t, sessions[1].ParticipantID, sessions[2].ParticipantID)
	assert.True(t, sessions[0].CreatedAt.Before(*sessions[1].CreatedAt))

	b := sessions[0].Blocks[0]
	assert.Nil(t, b.SubjectBits)
	assert.NotNil(t, b.Entropy)
	assert.NotEmpty(t, b.Trials)
	for _, tr := range b.Trials {
		require.NotNil(t, tr.HoldMillis)
		assert.GreaterOrEqual(t, *tr.HoldMillis, 150.0)
	}
}

func TestSessionGenerator_BiasedCondition(t *testing.T) {
	config := DefaultSessionConfig()
	config.Conditions = []string{"human"}
	config.HitProbability = map[string]float64{"human": 0.9}

	hits, trials := 0, 0
	for _, s := range NewSessionGenerator(config).Generate() {
		for _, b := range s.Blocks {
			hits += b.SubjectHits
			trials += b.N
		}
	}
	assert.InDelta(t, 0.9, float64(hits)/float64(trials), 0.02)
}
