// Package analysis chains aggregation, the confirmatory run, the exploratory
// suite and report assembly.
package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qrnglab/domain/experiment"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/analysis/exploratory"
	"qrnglab/internal/analysis/primary"
	"qrnglab/internal/config"
	"qrnglab/internal/errors"
	"qrnglab/internal/report"
	"qrnglab/ports"
)

// Pipeline runs the full analysis over an in-memory snapshot of sessions.
type Pipeline struct {
	settings    report.Settings
	primary     primary.Options
	exploratory exploratory.Options
	suite       *exploratory.Suite
	logger      *zap.Logger
	now         func() time.Time
}

// NewPipeline creates a pipeline from the analysis configuration.
func NewPipeline(cfg config.AnalysisConfig, rng ports.RNGPort, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	exOpts := cfg.ExploratoryOptions()
	return &Pipeline{
		settings: report.Settings{
			Alpha:                 cfg.Alpha,
			Seed:                  cfg.Seed,
			Conditions:            append([]string(nil), cfg.Conditions...),
			BootstrapIterations:   cfg.BootstrapIterations,
			PermutationIterations: cfg.PermutationIterations,
			MaxResampleN:          cfg.MaxResampleN,
		},
		primary:     cfg.PrimaryOptions(),
		exploratory: exOpts,
		suite:       exploratory.NewSuite(exOpts, rng),
		logger:      logger.Named("pipeline"),
		now:         time.Now,
	}
}

// Run aggregates sessions under filter and assembles the report. diag may be nil
// when the sessions did not come from a source.
func (p *Pipeline) Run(ctx context.Context, sessions []experiment.Session, filter aggregation.Filter, diag *ports.SourceDiagnostics) (*report.Report, error) {
	start := time.Now()
	filter = filter.Normalize()

	summary := aggregation.Aggregate(sessions, filter)
	if diag != nil {
		// documents the source could not parse never became sessions
		summary.Input += diag.MalformedSessions
		summary.Exclusions.MalformedSessions += diag.MalformedSessions
	}
	p.logger.Info("aggregated sessions",
		zap.Int("input", summary.Input),
		zap.Int("selected", len(summary.Sessions)),
		zap.Int("blocks", len(summary.Blocks)),
		zap.Int("excluded", summary.Exclusions.Total()),
		zap.Int("malformed_blocks", summary.Exclusions.MalformedBlocks),
		zap.String("completion", string(filter.Completion)),
		zap.String("ordinal", string(filter.Ordinal)),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := report.Results{
		Config:            p.settings,
		Filter:            filter,
		Source:            diag,
		Summary:           summary,
		ExploratoryCaveat: exploratory.Caveat,
	}

	if overview, err := exploratory.Overview(summary, p.exploratory); err == nil {
		results.Overview = overview
	} else {
		p.logger.Info("overview skipped", zap.Error(err))
	}

	confirmatory := primary.Run(summary, p.primary)
	results.Confirmatory = &confirmatory
	p.logger.Info("confirmatory analysis complete",
		zap.Int("comparisons", len(confirmatory.Comparisons)),
		zap.Int("rejections", confirmatory.Rejections()),
		zap.Int("skipped", len(confirmatory.Skipped)),
	)

	suiteStart := time.Now()
	ex, err := p.suite.Run(ctx, summary)
	if err != nil {
		return nil, errors.Wrap(err, "exploratory suite failed")
	}
	results.Exploratory = ex
	p.logger.Info("exploratory suite complete",
		zap.Int("skipped", len(ex.Skipped)),
		zap.Bool("design_error", ex.ControlValidation != nil && ex.ControlValidation.DesignError),
		zap.Duration("duration", time.Since(suiteStart)),
	)
	if ex.ControlValidation != nil && ex.ControlValidation.DesignError {
		p.logger.Warn("subject and control streams are not independent", zap.Strings("reasons", ex.ControlValidation.Reasons))
	}

	rep, err := report.New(results, p.now())
	if err != nil {
		return nil, errors.Wrap(err, "failed to assemble report")
	}
	p.logger.Info("report assembled",
		zap.String("report_id", rep.ID.String()),
		zap.String("fingerprint", rep.Fingerprint.Short()),
		zap.Duration("duration", time.Since(start)),
	)
	return rep, nil
}
