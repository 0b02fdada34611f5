package app

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qrnglab/adapters/rng"
	"qrnglab/domain/core"
	"qrnglab/domain/experiment"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/analysis"
	"qrnglab/internal/config"
	"qrnglab/internal/errors"
	"qrnglab/internal/logging"
	"qrnglab/internal/report"
	"qrnglab/internal/testkit"
	"qrnglab/ports"
)

// MockSessionSource is a mock implementation of ports.SessionSource
type MockSessionSource struct {
	mock.Mock
}

func (m *MockSessionSource) LoadSessions(ctx context.Context) ([]experiment.Session, ports.SourceDiagnostics, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]experiment.Session)
	return sessions, args.Get(1).(ports.SourceDiagnostics), args.Error(2)
}

func (m *MockSessionSource) Name() string {
	return "mock"
}

// MockReportStore is a mock implementation of ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, rep *report.Report) error {
	return m.Called(ctx, rep).Error(0)
}

func (m *MockReportStore) GetReport(ctx context.Context, id core.ReportID) (*report.Report, error) {
	args := m.Called(ctx, id)
	rep, _ := args.Get(0).(*report.Report)
	return rep, args.Error(1)
}

func (m *MockReportStore) ListReports(ctx context.Context, limit int) ([]report.Entry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]report.Entry)
	return entries, args.Error(1)
}

func testPipeline() *analysis.Pipeline {
	cfg := config.Default().Analysis
	cfg.BootstrapIterations = 100
	cfg.PermutationIterations = 100
	return analysis.NewPipeline(cfg, rng.NewStreams(), logging.Nop())
}

func fixture() []experiment.Session {
	cfg := testkit.DefaultSessionConfig()
	cfg.SessionsPerCondition = 4
	cfg.BlocksPerSession = 6
	cfg.TrialsPerBlock = 20
	return testkit.NewSessionGenerator(cfg).Generate()
}

func TestAnalyzeLoadsSourceAndArchives(t *testing.T) {
	source := new(MockSessionSource)
	store := new(MockReportStore)
	diag := ports.SourceDiagnostics{Source: "mock", Documents: 13, Sessions: 12, MalformedSessions: 1}
	source.On("LoadSessions", mock.Anything).Return(fixture(), diag, nil).Once()
	store.On("SaveReport", mock.Anything, mock.AnythingOfType("*report.Report")).Return(nil).Once()

	svc := NewAnalysisService(source, testPipeline(), store, logging.Nop())
	rep, err := svc.Analyze(context.Background(), aggregation.DefaultFilter())
	require.NoError(t, err)

	require.NotNil(t, rep.Results.Source)
	assert.Equal(t, 13, rep.Results.Source.Documents)
	assert.Equal(t, 1, rep.Results.Summary.Exclusions.MalformedSessions)
	assert.Len(t, rep.Results.Summary.Sessions, 12)
	assert.True(t, rep.Verify())
	source.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestAnalyzeSourceFailure(t *testing.T) {
	source := new(MockSessionSource)
	boom := errors.SourceUnavailable("mock", stderrors.New("connection refused"))
	source.On("LoadSessions", mock.Anything).Return(nil, ports.SourceDiagnostics{}, boom)

	svc := NewAnalysisService(source, testPipeline(), nil, nil)
	_, err := svc.Analyze(context.Background(), aggregation.DefaultFilter())
	assert.Equal(t, errors.CodeSourceUnavailable, errors.GetCode(err))
}

func TestAnalyzeWithoutSource(t *testing.T) {
	svc := NewAnalysisService(nil, testPipeline(), nil, nil)
	_, err := svc.Analyze(context.Background(), aggregation.DefaultFilter())
	assert.Equal(t, errors.CodeSourceUnavailable, errors.GetCode(err))
}

func TestArchiveFailureDoesNotFailAnalysis(t *testing.T) {
	store := new(MockReportStore)
	store.On("SaveReport", mock.Anything, mock.Anything).Return(stderrors.New("disk full"))

	svc := NewAnalysisService(nil, testPipeline(), store, nil)
	rep, err := svc.AnalyzeSessions(context.Background(), fixture(), aggregation.DefaultFilter())
	require.NoError(t, err)
	assert.Nil(t, rep.Results.Source)
	store.AssertExpectations(t)
}

func TestGetReportWithoutStore(t *testing.T) {
	svc := NewAnalysisService(nil, testPipeline(), nil, nil)
	_, err := svc.GetReport(context.Background(), "abc")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	entries, err := svc.ListReports(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetReportDelegates(t *testing.T) {
	store := new(MockReportStore)
	want := &report.Report{ID: "r1"}
	store.On("GetReport", mock.Anything, core.ReportID("r1")).Return(want, nil)
	store.On("ListReports", mock.Anything, 5).Return([]report.Entry{{ID: "r1"}}, nil)

	svc := NewAnalysisService(nil, testPipeline(), store, nil)
	got, err := svc.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Same(t, want, got)

	entries, err := svc.ListReports(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
