package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"qrnglab/internal/analysis/exploratory"
	"qrnglab/internal/analysis/primary"
	"qrnglab/internal/errors"
	"qrnglab/internal/hypothesis"
	"qrnglab/internal/sequence"
)

// ConfigFileEnv names the optional YAML file read before environment overrides.
const ConfigFileEnv = "QRNG_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis" validate:"required"`
	Server   ServerConfig   `json:"server" yaml:"server" validate:"required"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Source   SourceConfig   `json:"source" yaml:"source"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// AnalysisConfig holds every tunable of the statistical pipeline
type AnalysisConfig struct {
	Alpha                 float64  `json:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	Seed                  int64    `json:"seed" yaml:"seed"`
	BootstrapIterations   int      `json:"bootstrap_iterations" yaml:"bootstrap_iterations" validate:"gte=100"`
	PermutationIterations int      `json:"permutation_iterations" yaml:"permutation_iterations" validate:"gte=100"`
	ConfidenceLevel       float64  `json:"confidence_level" yaml:"confidence_level" validate:"gt=0,lt=1"`
	MaxResampleN          int      `json:"max_resample_n" yaml:"max_resample_n" validate:"gte=0"` // 0 = uncapped
	ChiSquareMinTotal     int      `json:"chi_square_min_total" yaml:"chi_square_min_total" validate:"gte=1"`
	MinCorrelationN       int      `json:"min_correlation_n" yaml:"min_correlation_n" validate:"gte=3"`
	HoldMinN              int      `json:"hold_min_n" yaml:"hold_min_n" validate:"gte=4"`
	MinSessionsPerGroup   int      `json:"min_sessions_per_group" yaml:"min_sessions_per_group" validate:"gte=2"`
	MaxLag                int      `json:"max_lag" yaml:"max_lag" validate:"gte=1,lte=50"`
	DependenceThreshold   float64  `json:"dependence_threshold" yaml:"dependence_threshold" validate:"gt=0,lte=1"`
	CrossLagRange         int      `json:"cross_lag_range" yaml:"cross_lag_range" validate:"gte=0"`
	WelchSegmentLength    int      `json:"welch_segment_length" yaml:"welch_segment_length" validate:"gte=4"`
	Workers               int      `json:"workers" yaml:"workers" validate:"gte=1,lte=64"`
	Conditions            []string `json:"conditions" yaml:"conditions" validate:"min=2,dive,required"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `json:"port" yaml:"port" validate:"required"`
	GinMode string `json:"gin_mode" yaml:"gin_mode" validate:"oneof=debug release test"`
}

// DatabaseConfig holds the read-only session store connection
type DatabaseConfig struct {
	URL          string        `json:"-" yaml:"url"`
	Table        string        `json:"table" yaml:"table" validate:"required"`
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
}

// SourceConfig selects where sessions are loaded from
type SourceConfig struct {
	Kind         string `json:"kind" yaml:"kind" validate:"oneof=snapshot postgres"`
	SnapshotPath string `json:"snapshot_path" yaml:"snapshot_path"`
	DataSource   string `json:"data_source" yaml:"data_source"` // Label applied to sessions that carry none
}

// StorageConfig selects where assembled reports are archived
type StorageConfig struct {
	Backend     string `json:"backend" yaml:"backend" validate:"oneof=badger postgres"`
	ArchivePath string `json:"archive_path" yaml:"archive_path"` // Empty keeps the badger archive in memory
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns the domain defaults
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Alpha:                 0.05,
			Seed:                  42,
			BootstrapIterations:   hypothesis.DefaultBootstrapIterations,
			PermutationIterations: hypothesis.DefaultPermutationIterations,
			ConfidenceLevel:       hypothesis.DefaultConfidenceLevel,
			MaxResampleN:          100000,
			ChiSquareMinTotal:     hypothesis.DefaultChiSquareMinTotal,
			MinCorrelationN:       3,
			HoldMinN:              20,
			MinSessionsPerGroup:   2,
			MaxLag:                5,
			DependenceThreshold:   0.5,
			CrossLagRange:         3,
			WelchSegmentLength:    8,
			Workers:               4,
			Conditions:            []string{"human", "ai", "baseline"},
		},
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "release",
		},
		Database: DatabaseConfig{
			Table:        "experiment_sessions",
			QueryTimeout: 30 * time.Second,
		},
		Source: SourceConfig{
			Kind: "snapshot",
		},
		Storage: StorageConfig{
			Backend: "badger",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads defaults, the optional YAML file, then environment overrides, and
// validates the result
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.Wrap(err, "failed to load configuration file")
		}
	}

	loadAnalysisConfig(&config.Analysis)
	loadServerConfig(&config.Server)
	loadDatabaseConfig(&config.Database)
	loadSourceConfig(&config.Source)
	config.Storage.Backend = getEnvOrDefault("QRNG_STORAGE", config.Storage.Backend)
	config.Storage.ArchivePath = getEnvOrDefault("QRNG_ARCHIVE_PATH", config.Storage.ArchivePath)
	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", config.Logging.Level)

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

func loadAnalysisConfig(a *AnalysisConfig) {
	a.Alpha = getEnvFloatOrDefault("QRNG_ALPHA", a.Alpha)
	a.Seed = int64(getEnvIntOrDefault("QRNG_SEED", int(a.Seed)))
	a.BootstrapIterations = getEnvIntOrDefault("QRNG_BOOTSTRAP_ITERATIONS", a.BootstrapIterations)
	a.PermutationIterations = getEnvIntOrDefault("QRNG_PERMUTATION_ITERATIONS", a.PermutationIterations)
	a.MaxResampleN = getEnvIntOrDefault("QRNG_MAX_RESAMPLE_N", a.MaxResampleN)
	a.ChiSquareMinTotal = getEnvIntOrDefault("QRNG_CHI_SQUARE_MIN_TOTAL", a.ChiSquareMinTotal)
	a.MinCorrelationN = getEnvIntOrDefault("QRNG_MIN_CORRELATION_N", a.MinCorrelationN)
	a.HoldMinN = getEnvIntOrDefault("QRNG_HOLD_MIN_N", a.HoldMinN)
	a.MinSessionsPerGroup = getEnvIntOrDefault("QRNG_MIN_SESSIONS_PER_GROUP", a.MinSessionsPerGroup)
	a.MaxLag = getEnvIntOrDefault("QRNG_MAX_LAG", a.MaxLag)
	a.DependenceThreshold = getEnvFloatOrDefault("QRNG_DEPENDENCE_THRESHOLD", a.DependenceThreshold)
	a.WelchSegmentLength = getEnvIntOrDefault("QRNG_WELCH_SEGMENT_LENGTH", a.WelchSegmentLength)
	a.Workers = getEnvIntOrDefault("QRNG_WORKERS", a.Workers)
	a.Conditions = getEnvListOrDefault("QRNG_CONDITIONS", a.Conditions)
}

func loadServerConfig(s *ServerConfig) {
	s.Port = getEnvOrDefault("PORT", s.Port)
	s.GinMode = getEnvOrDefault("GIN_MODE", s.GinMode)
}

func loadDatabaseConfig(d *DatabaseConfig) {
	d.URL = getEnvOrDefault("DATABASE_URL", d.URL)
	d.Table = getEnvOrDefault("QRNG_SESSIONS_TABLE", d.Table)
	d.QueryTimeout = getEnvDurationOrDefault("QRNG_QUERY_TIMEOUT", d.QueryTimeout)
}

func loadSourceConfig(s *SourceConfig) {
	s.Kind = getEnvOrDefault("QRNG_SOURCE", s.Kind)
	s.SnapshotPath = getEnvOrDefault("QRNG_SNAPSHOT_PATH", s.SnapshotPath)
	s.DataSource = getEnvOrDefault("QRNG_DATA_SOURCE", s.DataSource)
}

var validate = validator.New()

// Validate checks struct tags and the cross-field rules tags cannot express
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Source.Kind == "postgres" && config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required for the postgres source")
	}
	if config.Storage.Backend == "postgres" && config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required for postgres report storage")
	}
	return nil
}

// PrimaryOptions projects the confirmatory settings
func (a AnalysisConfig) PrimaryOptions() primary.Options {
	return primary.Options{
		Conditions:          append([]string(nil), a.Conditions...),
		Alpha:               a.Alpha,
		MinSessionsPerGroup: a.MinSessionsPerGroup,
	}
}

// ExploratoryOptions projects the exploratory suite settings
func (a AnalysisConfig) ExploratoryOptions() exploratory.Options {
	return exploratory.Options{
		Alpha:               a.Alpha,
		Seed:                a.Seed,
		MaxLag:              a.MaxLag,
		MinCorrelationN:     a.MinCorrelationN,
		HoldMinN:            a.HoldMinN,
		ChiSquareMinTotal:   a.ChiSquareMinTotal,
		DependenceThreshold: a.DependenceThreshold,
		CrossLagRange:       a.CrossLagRange,
		Bootstrap: hypothesis.Resampling{
			Iterations: a.BootstrapIterations,
			Level:      a.ConfidenceLevel,
			MaxN:       a.MaxResampleN,
		},
		Permutation: hypothesis.Resampling{
			Iterations: a.PermutationIterations,
			MaxN:       a.MaxResampleN,
		},
		Spectrum: sequence.SpectrumOptions{
			Window:        sequence.WindowHann,
			Method:        sequence.MethodWelch,
			SegmentLength: a.WelchSegmentLength,
		},
		Workers: a.Workers,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma-separated value, dropping blanks
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
