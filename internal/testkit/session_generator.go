package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"qrnglab/domain/core"
	"qrnglab/domain/experiment"
	"qrnglab/internal/sequence"
)

// SessionGeneratorConfig configures the synthetic session generator
type SessionGeneratorConfig struct {
	Conditions           []string           `json:"conditions"`
	SessionsPerCondition int                `json:"sessions_per_condition"`
	BlocksPerSession     int                `json:"blocks_per_session"`
	TrialsPerBlock       int                `json:"trials_per_block"`
	SessionsPerPerson    int                `json:"sessions_per_person"` // >1 produces repeat sessions
	HitProbability       map[string]float64 `json:"hit_probability"`     // Per condition; missing = 0.5
	ControlProbability   float64            `json:"control_probability"`
	CompletionRate       float64            `json:"completion_rate"`
	HoldDurationRate     float64            `json:"hold_duration_rate"` // Fraction of trials with a hold time
	WithBits             bool               `json:"with_bits"`
	DataSource           string             `json:"data_source"`
	StartDate            time.Time          `json:"start_date"`
	Seed                 int64              `json:"seed"`
}

// DefaultSessionConfig returns a fair-coin three-condition design
func DefaultSessionConfig() SessionGeneratorConfig {
	return SessionGeneratorConfig{
		Conditions:           []string{"human", "ai", "baseline"},
		SessionsPerCondition: 20,
		BlocksPerSession:     10,
		TrialsPerBlock:       100,
		SessionsPerPerson:    1,
		ControlProbability:   0.5,
		CompletionRate:       1.0,
		WithBits:             true,
		DataSource:           "synthetic",
		StartDate:            time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Seed:                 42,
	}
}

// SessionGenerator produces deterministic sessions for a given seed
type SessionGenerator struct {
	config SessionGeneratorConfig
	rng    *rand.Rand
}

// NewSessionGenerator creates a new generator
func NewSessionGenerator(config SessionGeneratorConfig) *SessionGenerator {
	if config.SessionsPerPerson < 1 {
		config.SessionsPerPerson = 1
	}
	if config.ControlProbability == 0 {
		config.ControlProbability = 0.5
	}
	return &SessionGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds SessionsPerCondition sessions for every condition, in
// condition order. Sessions of one participant are a day apart.
func (g *SessionGenerator) Generate() []experiment.Session {
	var sessions []experiment.Session
	for ci, condition := range g.config.Conditions {
		p := g.hitProbability(condition)
		for i := 0; i < g.config.SessionsPerCondition; i++ {
			person := i / g.config.SessionsPerPerson
			visit := i % g.config.SessionsPerPerson
			created := core.NewTimestamp(g.config.StartDate.
				AddDate(0, 0, visit).
				Add(time.Duration(ci*g.config.SessionsPerCondition+person) * time.Minute))

			s := experiment.Session{
				ID:            core.SessionID(fmt.Sprintf("%s_%04d", condition, i+1)),
				ParticipantID: core.ParticipantID(fmt.Sprintf("%s_p%04d", condition, person+1)),
				Condition:     condition,
				DataSource:    g.config.DataSource,
				CreatedAt:     &created,
			}
			completed := g.rng.Float64() < g.config.CompletionRate
			s.Completed = &completed
			if !completed {
				s.ExitReason = "left_early"
			}

			for b := 0; b < g.config.BlocksPerSession; b++ {
				s.Blocks = append(s.Blocks, g.block(b, p))
			}
			sessions = append(sessions, s)
		}
	}
	return sessions
}

func (g *SessionGenerator) hitProbability(condition string) float64 {
	if p, ok := g.config.HitProbability[condition]; ok {
		return p
	}
	return 0.5
}

func (g *SessionGenerator) block(index int, p float64) experiment.Block {
	n := g.config.TrialsPerBlock
	subject := make([]uint8, n)
	control := make([]uint8, n)
	b := experiment.Block{Index: index, N: n}

	for i := 0; i < n; i++ {
		if g.rng.Float64() < p {
			subject[i] = 1
			b.SubjectHits++
		}
		if g.rng.Float64() < g.config.ControlProbability {
			control[i] = 1
			b.ControlHits++
		}
		if g.config.HoldDurationRate > 0 && g.rng.Float64() < g.config.HoldDurationRate {
			hold := 150 + g.rng.ExpFloat64()*400
			b.Trials = append(b.Trials, experiment.Trial{
				BlockIndex: index,
				TrialIndex: i,
				SubjectBit: subject[i],
				ControlBit: control[i],
				HoldMillis: &hold,
			})
		}
	}

	if g.config.WithBits {
		b.SubjectBits = subject
		b.ControlBits = control
	} else {
		e := sequence.ShannonEntropy(subject)
		b.Entropy = &e
	}
	return b
}
