package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"qrnglab/adapters/archive"
	"qrnglab/adapters/postgres"
	"qrnglab/adapters/rng"
	"qrnglab/adapters/snapshot"
	"qrnglab/app"
	"qrnglab/internal/analysis"
	"qrnglab/internal/config"
	"qrnglab/internal/errors"
	"qrnglab/internal/migration"
	"qrnglab/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB      *sqlx.DB
	Archive *archive.Archive

	// Data access
	Source   ports.SessionSource
	Sessions *postgres.SessionSourceImpl
	Store    app.ReportStore

	// Analysis
	Pipeline *analysis.Pipeline
	Service  *app.AnalysisService
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{Config: cfg, Logger: logger}, nil
}

// Init connects infrastructure and wires the analysis service. The database is
// only opened when the source or the report store needs it.
func (c *Container) Init(ctx context.Context) error {
	if c.needsDatabase() {
		if err := c.initDatabase(ctx); err != nil {
			return err
		}
	}
	if err := c.initSource(); err != nil {
		return fmt.Errorf("failed to initialize session source: %w", err)
	}
	if err := c.initStore(); err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}

	c.Pipeline = analysis.NewPipeline(c.Config.Analysis, rng.NewStreams(), c.Logger)
	c.Service = app.NewAnalysisService(c.Source, c.Pipeline, c.Store, c.Logger)

	c.Logger.Info("container initialized",
		zap.String("source", c.Config.Source.Kind),
		zap.String("storage", c.Config.Storage.Backend),
		zap.Bool("database", c.DB != nil),
	)
	return nil
}

func (c *Container) needsDatabase() bool {
	return c.Config.Source.Kind == "postgres" || c.Config.Storage.Backend == "postgres"
}

// initDatabase connects to PostgreSQL and applies the schema
func (c *Container) initDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.SourceUnavailable("postgres", err)
	}
	c.DB = db

	migrator, err := migration.NewRunner(c.Config.Database.Table, c.Logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	return nil
}

// initSource selects where sessions are loaded from. A snapshot source without
// a path leaves Source nil, so only posted sessions can be analyzed.
func (c *Container) initSource() error {
	switch c.Config.Source.Kind {
	case "postgres":
		sessions, err := postgres.NewSessionSource(c.DB, c.Config.Database.Table, c.Config.Database.QueryTimeout)
		if err != nil {
			return err
		}
		c.Sessions = sessions
		c.Source = sessions
	default:
		if c.Config.Source.SnapshotPath != "" {
			c.Source = snapshot.NewFileSource(c.Config.Source.SnapshotPath, c.Config.Source.DataSource)
		} else {
			c.Logger.Warn("no snapshot path configured; only posted sessions can be analyzed")
		}
	}
	return nil
}

// initStore selects where reports are archived
func (c *Container) initStore() error {
	switch c.Config.Storage.Backend {
	case "postgres":
		c.Store = postgres.NewReportRepository(c.DB)
	default:
		a, err := archive.Open(archive.Config{
			Path:       c.Config.Storage.ArchivePath,
			SyncWrites: c.Config.Storage.ArchivePath != "",
			Logger:     c.Logger,
		})
		if err != nil {
			return err
		}
		c.Archive = a
		c.Store = a
	}
	return nil
}

// Shutdown releases the archive and the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error
	if c.Archive != nil {
		if err := c.Archive.Close(); err != nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
