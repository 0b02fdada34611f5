package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qrnglab/domain/core"
	"qrnglab/domain/experiment"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/analysis"
	"qrnglab/internal/errors"
	"qrnglab/internal/report"
	"qrnglab/ports"
)

// ReportStore archives assembled reports
type ReportStore interface {
	SaveReport(ctx context.Context, rep *report.Report) error
	GetReport(ctx context.Context, id core.ReportID) (*report.Report, error)
	ListReports(ctx context.Context, limit int) ([]report.Entry, error)
}

// AnalysisService loads sessions from a source, runs the pipeline over them and
// archives the report.
type AnalysisService struct {
	source   ports.SessionSource
	pipeline *analysis.Pipeline
	store    ReportStore
	logger   *zap.Logger
}

// NewAnalysisService wires the service. source and store may be nil: without a
// source only caller-supplied sessions can be analyzed, and without a store
// reports are not archived.
func NewAnalysisService(source ports.SessionSource, pipeline *analysis.Pipeline, store ReportStore, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		source:   source,
		pipeline: pipeline,
		store:    store,
		logger:   logger.Named("analysis_service"),
	}
}

// Analyze runs the pipeline over the configured source.
func (s *AnalysisService) Analyze(ctx context.Context, filter aggregation.Filter) (*report.Report, error) {
	if s.source == nil {
		return nil, errors.New(errors.CodeSourceUnavailable, "no session source configured")
	}
	return s.AnalyzeSource(ctx, s.source, filter)
}

// AnalyzeSource runs the pipeline over sessions loaded from src.
func (s *AnalysisService) AnalyzeSource(ctx context.Context, src ports.SessionSource, filter aggregation.Filter) (*report.Report, error) {
	start := time.Now()
	sessions, diag, err := src.LoadSessions(ctx)
	if err != nil {
		s.logger.Error("failed to load sessions", zap.String("source", src.Name()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("sessions loaded",
		zap.String("source", src.Name()),
		zap.Int("documents", diag.Documents),
		zap.Int("sessions", diag.Sessions),
		zap.Int("malformed_sessions", diag.MalformedSessions),
		zap.Int("malformed_blocks", diag.MalformedBlocks),
		zap.Int("legacy_fields", diag.LegacyFields),
		zap.Duration("duration", time.Since(start)),
	)
	for _, w := range diag.Warnings {
		s.logger.Debug("source warning", zap.String("source", src.Name()), zap.String("warning", w))
	}
	return s.run(ctx, sessions, filter, &diag)
}

// AnalyzeSessions runs the pipeline over sessions already in memory.
func (s *AnalysisService) AnalyzeSessions(ctx context.Context, sessions []experiment.Session, filter aggregation.Filter) (*report.Report, error) {
	return s.run(ctx, sessions, filter, nil)
}

func (s *AnalysisService) run(ctx context.Context, sessions []experiment.Session, filter aggregation.Filter, diag *ports.SourceDiagnostics) (*report.Report, error) {
	rep, err := s.pipeline.Run(ctx, sessions, filter, diag)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.SaveReport(ctx, rep); err != nil {
			// archiving is best effort
			s.logger.Warn("failed to archive report", zap.String("report_id", rep.ID.String()), zap.Error(err))
		}
	}
	return rep, nil
}

// GetReport returns an archived report
func (s *AnalysisService) GetReport(ctx context.Context, id core.ReportID) (*report.Report, error) {
	if s.store == nil {
		return nil, errors.NotFound("report " + id.String())
	}
	return s.store.GetReport(ctx, id)
}

// ListReports returns archived report entries, newest first
func (s *AnalysisService) ListReports(ctx context.Context, limit int) ([]report.Entry, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListReports(ctx, limit)
}
