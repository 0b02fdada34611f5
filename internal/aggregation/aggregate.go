// Package aggregation folds hierarchical session records into per-block,
// per-session and pooled summaries under a user-selected filter.
package aggregation

import (
	"qrnglab/domain/core"
	"qrnglab/domain/experiment"
	"qrnglab/internal/sequence"

	"gonum.org/v1/gonum/floats"
)

// Aggregate runs Filter Sessions -> Fold Blocks -> Derive Rows -> Pool.
// It never mutates its input and never fails: every unusable record is counted
// in Exclusions and skipped.
func Aggregate(sessions []experiment.Session, filter Filter) Summary {
	filter = filter.Normalize()
	summary := Summary{Filter: filter, Input: len(sessions)}

	ordinals := participantOrdinals(sessions)
	selected := selectSessions(sessions, filter, ordinals, &summary.Exclusions)

	for _, s := range selected {
		row, blocks, series, ok := foldSession(s, ordinals[s.ID], &summary.Exclusions)
		if !ok {
			continue
		}
		summary.Sessions = append(summary.Sessions, row)
		summary.Blocks = append(summary.Blocks, blocks...)
		summary.Series = append(summary.Series, series)
	}

	summary.Pooled = pool(summary.Sessions)
	return summary
}

// participantOrdinals numbers each participant's dated sessions 1..n by creation
// time across the whole input. Undated or anonymous sessions get no ordinal.
func participantOrdinals(sessions []experiment.Session) map[core.SessionID]int {
	ordinals := make(map[core.SessionID]int)
	for _, p := range experiment.GroupByParticipant(sessions) {
		ord := 0
		for _, s := range p.Sessions {
			if s.CreatedAt == nil {
				continue
			}
			ord++
			ordinals[s.ID] = ord
		}
	}
	return ordinals
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// selectSessions applies the per-field filters. A field the filter needs but the
// session lacks excludes the session under its own counter.
func selectSessions(sessions []experiment.Session, f Filter, ordinals map[core.SessionID]int, ex *Exclusions) []experiment.Session {
	var kept []experiment.Session
	for _, s := range sessions {
		if s.ID.IsEmpty() {
			ex.MalformedSessions++
			continue
		}

		if f.Completion != experiment.CompletionAll {
			done, known := s.IsCompleted()
			if !known {
				ex.MissingCompletion++
				continue
			}
			if done != (f.Completion == experiment.CompletionCompleters) {
				ex.FilteredOut++
				continue
			}
		}

		if len(f.Conditions) > 0 {
			if s.Condition == "" {
				ex.MissingCondition++
				continue
			}
			if !contains(f.Conditions, s.Condition) {
				ex.FilteredOut++
				continue
			}
		}

		if len(f.DataSources) > 0 {
			if s.DataSource == "" {
				ex.MissingDataSource++
				continue
			}
			if !contains(f.DataSources, s.DataSource) {
				ex.FilteredOut++
				continue
			}
		}

		if f.needsOrdinal() {
			if s.ParticipantID.IsEmpty() {
				ex.MissingParticipant++
				continue
			}
			ord, ok := ordinals[s.ID]
			if !ok {
				ex.MissingCreatedAt++
				continue
			}
			if (f.Ordinal == experiment.OrdinalFirst && ord != 1) ||
				(f.Ordinal == experiment.OrdinalRepeat && ord == 1) {
				ex.FilteredOut++
				continue
			}
		}

		kept = append(kept, s)
	}

	if f.SessionWeighted {
		kept = earliestPerParticipant(kept, ordinals, ex)
	}
	return kept
}

// earliestPerParticipant keeps the lowest-ordinal session of each participant,
// preserving input order among the survivors.
func earliestPerParticipant(sessions []experiment.Session, ordinals map[core.SessionID]int, ex *Exclusions) []experiment.Session {
	best := make(map[core.ParticipantID]core.SessionID)
	for _, s := range sessions {
		cur, ok := best[s.ParticipantID]
		if !ok || ordinals[s.ID] < ordinals[cur] {
			best[s.ParticipantID] = s.ID
		}
	}
	var out []experiment.Session
	for _, s := range sessions {
		if best[s.ParticipantID] == s.ID {
			out = append(out, s)
		} else {
			ex.RepeatSessions++
		}
	}
	return out
}

// foldSession accumulates the valid blocks of one session in block order.
func foldSession(s experiment.Session, ordinal int, ex *Exclusions) (SessionRow, []BlockRow, SessionSeries, bool) {
	row := SessionRow{
		SessionID:     s.ID,
		ParticipantID: s.ParticipantID,
		Condition:     s.Condition,
		DataSource:    s.DataSource,
		Completed:     s.Completed,
		Ordinal:       ordinal,
	}
	series := SessionSeries{SessionID: s.ID, Condition: s.Condition}
	var blocks []BlockRow

	if len(s.Blocks) == 0 {
		ex.EmptySessions++
		return row, nil, series, false
	}

	for _, b := range s.SortedBlocks() {
		if err := b.Validate(); err != nil {
			ex.MalformedBlocks++
			row.MalformedBlocks++
			continue
		}
		br := BlockRow{
			SessionID:   s.ID,
			Condition:   s.Condition,
			BlockIndex:  b.Index,
			N:           b.N,
			SubjectHits: b.SubjectHits,
			ControlHits: b.ControlHits,
			HitRate:     b.HitRate(),
			GhostRate:   b.GhostRate(),
		}
		if e, ok := subjectEntropy(b); ok {
			br.SubjectEntropy = &e
			series.SubjectEntropy = append(series.SubjectEntropy, e)
		}
		if len(b.ControlBits) > 0 {
			e := sequence.ShannonEntropy(b.ControlBits)
			br.ControlEntropy = &e
			series.ControlEntropy = append(series.ControlEntropy, e)
		}
		if br.SubjectEntropy != nil && br.ControlEntropy != nil {
			series.PairedEntropy = append(series.PairedEntropy, [2]float64{*br.SubjectEntropy, *br.ControlEntropy})
		}
		if b.HasBits() {
			series.SubjectBits = append(series.SubjectBits, b.SubjectBits...)
			series.ControlBits = append(series.ControlBits, b.ControlBits...)
		}
		for _, tr := range b.Trials {
			if tr.HoldMillis == nil {
				continue
			}
			series.HoldDurations = append(series.HoldDurations, *tr.HoldMillis)
			series.HoldHits = append(series.HoldHits, float64(tr.SubjectBit))
		}

		series.HitRates = append(series.HitRates, br.HitRate)
		series.GhostRates = append(series.GhostRates, br.GhostRate)
		row.Blocks++
		row.Trials += b.N
		row.SubjectHits += b.SubjectHits
		row.ControlHits += b.ControlHits
		blocks = append(blocks, br)
	}

	if row.Blocks == 0 {
		ex.MalformedSessions++
		return row, nil, series, false
	}

	row.HitRate = float64(row.SubjectHits) / float64(row.Trials)
	row.GhostRate = float64(row.ControlHits) / float64(row.Trials)
	row.Delta = row.HitRate - row.GhostRate
	row.EntropyMean = meanOrNil(series.SubjectEntropy)
	row.ControlEntropyMean = meanOrNil(series.ControlEntropy)
	return row, blocks, series, true
}

// subjectEntropy prefers the entropy of the raw bits over the stored value.
func subjectEntropy(b experiment.Block) (float64, bool) {
	if len(b.SubjectBits) > 0 {
		return sequence.ShannonEntropy(b.SubjectBits), true
	}
	if b.Entropy != nil {
		return *b.Entropy, true
	}
	return 0, false
}

func meanOrNil(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := floats.Sum(values) / float64(len(values))
	return &m
}

func pool(rows []SessionRow) Pooled {
	var p Pooled
	for _, r := range rows {
		p.Sessions++
		p.Blocks += r.Blocks
		p.Trials += r.Trials
		p.SubjectHits += r.SubjectHits
		p.ControlHits += r.ControlHits
	}
	if p.Trials > 0 {
		p.HitRate = float64(p.SubjectHits) / float64(p.Trials)
		p.GhostRate = float64(p.ControlHits) / float64(p.Trials)
	}
	return p
}
