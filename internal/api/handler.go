package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"qrnglab/adapters/excel"
	"qrnglab/adapters/snapshot"
	"qrnglab/app"
	"qrnglab/domain/core"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/errors"
	"qrnglab/internal/report"
)

// Output formats accepted by the format query parameter
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatXLSX     = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxBodyBytes bounds inline session uploads
const maxBodyBytes = 64 << 20

// AnalysisHandler serves analyses over HTTP
type AnalysisHandler struct {
	service *app.AnalysisService
	metrics *Metrics
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *app.AnalysisService, metrics *Metrics, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &AnalysisHandler{service: service, metrics: metrics, logger: logger.Named("api")}
}

// Analyze runs the pipeline over session documents posted in the body: either
// a bare array or {"sessions": [...], "filter": {...}}. Query parameters
// override the body filter.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, errors.InvalidInput("failed to read request body: "+err.Error()))
		return
	}
	if !gjson.ValidBytes(body) {
		h.fail(c, errors.InvalidInput("request body is not valid JSON"))
		return
	}

	filter := aggregation.DefaultFilter()
	if raw := gjson.GetBytes(body, "filter"); raw.IsObject() {
		if err := json.Unmarshal([]byte(raw.Raw), &filter); err != nil {
			h.fail(c, errors.InvalidInput("invalid filter: "+err.Error()))
			return
		}
	}
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.fail(c, errors.InvalidInput("invalid filter: "+err.Error()))
		return
	}

	label := c.DefaultQuery("source", "request")
	h.run(c, "analyze", func(ctx context.Context) (*report.Report, error) {
		return h.service.AnalyzeSource(ctx, snapshot.NewMemorySource(label, body), filter)
	})
}

// Report runs the pipeline over the configured source with the query filter.
func (h *AnalysisHandler) Report(c *gin.Context) {
	filter := aggregation.DefaultFilter()
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.fail(c, errors.InvalidInput("invalid filter: "+err.Error()))
		return
	}
	h.run(c, "report", func(ctx context.Context) (*report.Report, error) {
		return h.service.Analyze(ctx, filter)
	})
}

// GetReport returns an archived report
func (h *AnalysisHandler) GetReport(c *gin.Context) {
	rep, err := h.service.GetReport(c.Request.Context(), core.ReportID(c.Param("id")))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, rep)
}

// ListReports returns archived report entries, newest first
func (h *AnalysisHandler) ListReports(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		h.fail(c, errors.InvalidInput("limit must be a positive integer"))
		return
	}
	entries, err := h.service.ListReports(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []report.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": entries})
}

// Health reports liveness
func (h *AnalysisHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (h *AnalysisHandler) run(c *gin.Context, endpoint string, analyze func(ctx context.Context) (*report.Report, error)) {
	if !validFormat(c.DefaultQuery("format", FormatJSON)) {
		h.fail(c, errors.InvalidInput("format must be one of json, markdown, html, xlsx"))
		return
	}
	start := time.Now()
	rep, err := analyze(c.Request.Context())
	h.metrics.Observe(endpoint, time.Since(start).Seconds(), rep)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("analysis served",
		zap.String("endpoint", endpoint),
		zap.String("report_id", rep.ID.String()),
		zap.String("fingerprint", rep.Fingerprint.Short()),
		zap.Duration("duration", time.Since(start)),
	)
	h.render(c, rep)
}

func validFormat(format string) bool {
	switch format {
	case FormatJSON, FormatMarkdown, FormatHTML, FormatXLSX:
		return true
	}
	return false
}

func (h *AnalysisHandler) render(c *gin.Context, rep *report.Report) {
	switch format := c.DefaultQuery("format", FormatJSON); format {
	case FormatMarkdown:
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.RenderMarkdown(rep)))
	case FormatHTML:
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.RenderHTML(rep))
	case FormatXLSX:
		var buf bytes.Buffer
		if err := excel.WriteReport(&buf, rep); err != nil {
			h.fail(c, errors.Wrap(err, "failed to build workbook"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="report-`+rep.ID.String()+`.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	case FormatJSON:
		c.JSON(http.StatusOK, rep)
	default:
		h.fail(c, errors.InvalidInput("format must be one of json, markdown, html, xlsx"))
	}
}

// fail maps error codes onto HTTP statuses
func (h *AnalysisHandler) fail(c *gin.Context, err error) {
	code := errors.Classify(err)
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	case stderrors.Is(err, context.Canceled):
		status, code = 499, "CANCELLED"
	case code == errors.CodeInvalidInput, code == errors.CodeMalformedRecord:
		status = http.StatusBadRequest
	case code == errors.CodeNotFound:
		status = http.StatusNotFound
	case code == errors.CodeSourceUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
