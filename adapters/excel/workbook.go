// Package excel exports analysis reports as spreadsheet workbooks.
package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"qrnglab/domain/stats"
	"qrnglab/internal/report"
)

// Sheet names, in workbook order
const (
	SheetSummary      = "Summary"
	SheetSessions     = "Sessions"
	SheetBlocks       = "Blocks"
	SheetConfirmatory = "Confirmatory"
	SheetExploratory  = "Exploratory"
)

// WorkbookWriter lays a report out over one sheet per section
type WorkbookWriter struct {
	file   *excelize.File
	header int
}

// NewWorkbookWriter creates an empty workbook
func NewWorkbookWriter() (*WorkbookWriter, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &WorkbookWriter{file: f, header: header}, nil
}

// Close releases the workbook
func (w *WorkbookWriter) Close() error {
	return w.file.Close()
}

// WriteReport fills every sheet from rep and streams the workbook to out.
func WriteReport(out io.Writer, rep *report.Report) error {
	w, err := NewWorkbookWriter()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Fill(rep); err != nil {
		return err
	}
	if _, err := w.file.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveReport writes the workbook for rep to path.
func SaveReport(path string, rep *report.Report) error {
	w, err := NewWorkbookWriter()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Fill(rep); err != nil {
		return err
	}
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// Fill writes all sheets for rep.
func (w *WorkbookWriter) Fill(rep *report.Report) error {
	res := rep.Results
	summary := [][]interface{}{
		{"report_id", rep.ID.String()},
		{"generated_at", rep.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"fingerprint", rep.Fingerprint.String()},
		{"schema_version", res.SchemaVersion},
		{"alpha", res.Config.Alpha},
		{"seed", res.Config.Seed},
		{"completion", string(res.Filter.Completion)},
		{"ordinal", string(res.Filter.Ordinal)},
		{"session_weighted", res.Filter.SessionWeighted},
		{"input_sessions", res.Summary.Input},
		{"selected_sessions", len(res.Summary.Sessions)},
		{"pooled_trials", res.Summary.Pooled.Trials},
		{"pooled_hit_rate", res.Summary.Pooled.HitRate},
		{"pooled_ghost_rate", res.Summary.Pooled.GhostRate},
		{"exploratory_caveat", res.ExploratoryCaveat},
	}
	if err := w.sheet(SheetSummary, []string{"Field", "Value"}, summary); err != nil {
		return err
	}

	sessions := make([][]interface{}, 0, len(res.Summary.Sessions))
	for _, s := range res.Summary.Sessions {
		sessions = append(sessions, []interface{}{
			s.SessionID.String(), s.ParticipantID.String(), s.Condition, s.DataSource,
			optionalBool(s.Completed), s.Ordinal, s.Blocks, s.Trials,
			s.SubjectHits, s.ControlHits, s.HitRate, s.GhostRate, s.Delta, optionalFloat(s.EntropyMean),
		})
	}
	if err := w.sheet(SheetSessions, []string{
		"Session", "Participant", "Condition", "Source", "Completed", "Ordinal", "Blocks", "Trials",
		"Subject hits", "Control hits", "Hit rate", "Ghost rate", "Delta", "Entropy mean",
	}, sessions); err != nil {
		return err
	}

	blocks := make([][]interface{}, 0, len(res.Summary.Blocks))
	for _, b := range res.Summary.Blocks {
		blocks = append(blocks, []interface{}{
			b.SessionID.String(), b.Condition, b.BlockIndex, b.N, b.SubjectHits, b.ControlHits,
			b.HitRate, b.GhostRate, optionalFloat(b.SubjectEntropy), optionalFloat(b.ControlEntropy),
		})
	}
	if err := w.sheet(SheetBlocks, []string{
		"Session", "Condition", "Block", "N", "Subject hits", "Control hits", "Hit rate", "Ghost rate",
		"Subject entropy", "Control entropy",
	}, blocks); err != nil {
		return err
	}

	var confirmatory [][]interface{}
	if c := res.Confirmatory; c != nil {
		for _, cmp := range c.Comparisons {
			adjusted, significant := cmp.Result.PValue, false
			if m, ok := c.Correction.Member(cmp.Label); ok {
				adjusted, significant = m.AdjustedP, m.Significant
			}
			confirmatory = append(confirmatory, []interface{}{
				cmp.Label, cmp.Welch.T, cmp.Welch.DF, cmp.Welch.P, adjusted, cmp.CohenD, cmp.MDE, significant,
			})
		}
	}
	if err := w.sheet(SheetConfirmatory, []string{
		"Comparison", "t", "df", "p", "Holm p", "Cohen d", "MDE", "Significant",
	}, confirmatory); err != nil {
		return err
	}

	var exploratory [][]interface{}
	if e := res.Exploratory; e != nil {
		for _, t := range e.Tests() {
			exploratory = append(exploratory, testRow(t))
		}
		for _, n := range e.Skipped {
			exploratory = append(exploratory, []interface{}{n.Test, "skipped", nil, nil, nil, nil, n.Reason})
		}
	}
	if err := w.sheet(SheetExploratory, []string{
		"Test", "Type", "Statistic", "p", "N", "Significant", "Notes",
	}, exploratory); err != nil {
		return err
	}

	// NewFile starts with a default sheet that none of the sections use
	if idx, err := w.file.GetSheetIndex("Sheet1"); err == nil && idx >= 0 {
		if err := w.file.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to drop default sheet: %w", err)
		}
	}
	if idx, err := w.file.GetSheetIndex(SheetSummary); err == nil {
		w.file.SetActiveSheet(idx)
	}
	return nil
}

func (w *WorkbookWriter) sheet(name string, header []string, rows [][]interface{}) error {
	if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := w.file.SetSheetRow(name, "A1", &cells); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := w.file.SetCellStyle(name, "A1", last, w.header); err != nil {
		return fmt.Errorf("failed to style %s header: %w", name, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.file.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}

func testRow(r stats.StatisticalResult) []interface{} {
	notes := ""
	if r.Degenerate {
		notes = "degenerate"
	}
	for _, w := range r.Warnings {
		if notes != "" {
			notes += "; "
		}
		notes += string(w)
	}
	return []interface{}{r.Label, string(r.Test), r.Statistic, r.PValue, r.N, r.Significant, notes}
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func optionalBool(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
