package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"qrnglab/internal/errors"
	"qrnglab/internal/sequence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Analysis.Alpha)
	assert.Equal(t, int64(42), cfg.Analysis.Seed)
	assert.Equal(t, 1000, cfg.Analysis.BootstrapIterations)
	assert.Equal(t, 10000, cfg.Analysis.PermutationIterations)
	assert.Equal(t, 50, cfg.Analysis.ChiSquareMinTotal)
	assert.Equal(t, 3, cfg.Analysis.MinCorrelationN)
	assert.Equal(t, 20, cfg.Analysis.HoldMinN)
	assert.Equal(t, 5, cfg.Analysis.MaxLag)
	assert.Equal(t, []string{"human", "ai", "baseline"}, cfg.Analysis.Conditions)
	assert.Equal(t, "snapshot", cfg.Source.Kind)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.ArchivePath)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("QRNG_ALPHA", "0.01")
	t.Setenv("QRNG_SEED", "7")
	t.Setenv("QRNG_CONDITIONS", "primed, neutral")
	t.Setenv("QRNG_QUERY_TIMEOUT", "5s")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, int64(7), cfg.Analysis.Seed)
	assert.Equal(t, []string{"primed", "neutral"}, cfg.Analysis.Conditions)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadYAMLThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrng.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  alpha: 0.1
  max_lag: 3
  conditions: [a, b, c, d]
source:
  kind: snapshot
  snapshot_path: /data/sessions.json
`), 0o600))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("QRNG_MAX_LAG", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Analysis.Alpha)
	assert.Equal(t, 4, cfg.Analysis.MaxLag)
	assert.Equal(t, []string{"a", "b", "c", "d"}, cfg.Analysis.Conditions)
	assert.Equal(t, "/data/sessions.json", cfg.Source.SnapshotPath)
	// untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Analysis.BootstrapIterations)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"alpha out of range":  {"QRNG_ALPHA": "1.5"},
		"one condition":       {"QRNG_CONDITIONS": "human"},
		"postgres without db": {"QRNG_SOURCE": "postgres"},
		"unknown source":      {"QRNG_SOURCE": "redis"},
		"postgres storage":    {"QRNG_STORAGE": "postgres"},
		"unknown storage":     {"QRNG_STORAGE": "s3"},
		"too few resamples":   {"QRNG_BOOTSTRAP_ITERATIONS": "10"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestOptionProjections(t *testing.T) {
	a := Default().Analysis
	a.MaxResampleN = 500

	p := a.PrimaryOptions()
	assert.Equal(t, a.Conditions, p.Conditions)
	assert.Equal(t, 2, p.MinSessionsPerGroup)

	e := a.ExploratoryOptions()
	assert.Equal(t, 500, e.Bootstrap.MaxN)
	assert.Equal(t, 500, e.Permutation.MaxN)
	assert.Equal(t, 0.95, e.Bootstrap.Level)
	assert.Equal(t, sequence.MethodWelch, e.Spectrum.Method)
	assert.Equal(t, 8, e.Spectrum.SegmentLength)
}
