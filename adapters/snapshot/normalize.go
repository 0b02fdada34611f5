package snapshot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"qrnglab/domain/core"
	"qrnglab/domain/experiment"
	"qrnglab/ports"
)

// Field aliases. The first name is canonical; any other counts as a legacy read.
var (
	sessionIDFields   = []string{"id", "sessionId", "_id"}
	participantFields = []string{"participantId", "userId", "participant"}
	conditionFields   = []string{"condition", "group", "sessionType"}
	dataSourceFields  = []string{"dataSource", "source"}
	completedFields   = []string{"completed", "status", "completionStatus"}
	createdAtFields   = []string{"createdAt", "created_at", "timestamp"}
	exitReasonFields  = []string{"exitReason", "exit_reason"}
	blockListFields   = []string{"blocks", "minutes"}

	blockIndexFields  = []string{"index", "minute", "blockIndex"}
	trialCountFields  = []string{"n", "trialCount", "trials"}
	subjectHitFields  = []string{"hits", "subjectHits", "primaryHits"}
	controlHitFields  = []string{"ghostHits", "controlHits", "demonHits"}
	subjectBitFields  = []string{"subjectBits", "bits", "primaryBits"}
	controlBitFields  = []string{"controlBits", "ghostBits", "demonBits"}
	entropyFields     = []string{"entropy", "subjectEntropy"}
	trialLogFields    = []string{"trialLog", "presses"}
	holdFields        = []string{"holdMs", "holdDuration", "hold_ms"}
	trialSubjectField = []string{"subject", "hit"}
	trialControlField = []string{"control", "ghost"}
)

var completedStatuses = map[string]bool{
	"completed":  true,
	"complete":   true,
	"done":       true,
	"finished":   true,
	"abandoned":  false,
	"incomplete": false,
	"exited":     false,
	"left_early": false,
	"timeout":    false,
}

// Normalizer maps raw session documents onto sessions and accumulates
// diagnostics about what it dropped or rewrote.
type Normalizer struct {
	label    string
	diag     ports.SourceDiagnostics
	sessions []experiment.Session
}

// NewNormalizer creates a normalizer. label fills DataSource for documents
// without one.
func NewNormalizer(label string) *Normalizer {
	return &Normalizer{label: label, diag: ports.SourceDiagnostics{Source: label}}
}

// Add normalizes one document. fallbackID is used when the document carries
// no id of its own, as with rows keyed outside the document.
func (n *Normalizer) Add(doc gjson.Result, fallbackID string) {
	position := n.diag.Documents
	n.diag.Documents++
	if s, ok := n.session(doc, position, fallbackID); ok {
		n.sessions = append(n.sessions, s)
	}
}

// AddBytes normalizes one raw JSON document.
func (n *Normalizer) AddBytes(raw []byte, fallbackID string) {
	if !gjson.ValidBytes(raw) {
		n.diag.Documents++
		n.diag.MalformedSessions++
		n.warn("document %s is not valid JSON", fallbackID)
		return
	}
	n.Add(gjson.ParseBytes(raw), fallbackID)
}

// Result returns the sessions normalized so far and the diagnostics.
func (n *Normalizer) Result() ([]experiment.Session, ports.SourceDiagnostics) {
	n.diag.Sessions = len(n.sessions)
	return n.sessions, n.diag
}

// lookup returns the first alias present on obj.
func (n *Normalizer) lookup(obj gjson.Result, names []string) (gjson.Result, bool) {
	for i, name := range names {
		v := obj.Get(gjson.Escape(name))
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if i > 0 {
			n.diag.LegacyFields++
		}
		return v, true
	}
	return gjson.Result{}, false
}

// count parses a non-negative integer from a number or numeric string.
func count(v gjson.Result) (int, error) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", v.Str)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("not numeric: %s", v.Type)
	}
	if f < 0 || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a count: %v", f)
	}
	return int(f), nil
}

// bits parses an array of 0/1 values or a "0101" string.
func bits(v gjson.Result) ([]uint8, error) {
	var out []uint8
	if v.Type == gjson.String {
		for _, r := range v.Str {
			switch r {
			case '0':
				out = append(out, 0)
			case '1':
				out = append(out, 1)
			default:
				return nil, fmt.Errorf("bit string contains %q", r)
			}
		}
		return out, nil
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("bits are %s", v.Type)
	}
	var err error
	v.ForEach(func(_, b gjson.Result) bool {
		c, cerr := count(b)
		if cerr != nil || c > 1 {
			err = fmt.Errorf("bit value %s", b.Raw)
			return false
		}
		out = append(out, uint8(c))
		return true
	})
	return out, err
}

// timestamp accepts epoch milliseconds or an RFC3339 string.
func timestamp(v gjson.Result) (*core.Timestamp, error) {
	switch v.Type {
	case gjson.Number:
		ts := core.FromUnixMillis(v.Int())
		return &ts, nil
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, v.Str)
		if err != nil {
			return nil, err
		}
		ts := core.NewTimestamp(t)
		return &ts, nil
	}
	return nil, fmt.Errorf("unsupported timestamp %s", v.Type)
}

// completion accepts a bool or a status string; unknown statuses are absent.
func completion(v gjson.Result) *bool {
	var b bool
	switch v.Type {
	case gjson.True, gjson.False:
		b = v.Bool()
	case gjson.String:
		known, ok := completedStatuses[strings.ToLower(strings.TrimSpace(v.Str))]
		if !ok {
			return nil
		}
		b = known
	default:
		return nil
	}
	return &b
}

// session maps one document. ok is false when the document has no usable id.
func (n *Normalizer) session(doc gjson.Result, position int, fallbackID string) (experiment.Session, bool) {
	var s experiment.Session
	if !doc.IsObject() {
		n.diag.MalformedSessions++
		n.warn("document %d is not an object", position)
		return s, false
	}
	id := fallbackID
	if v, ok := n.lookup(doc, sessionIDFields); ok {
		id = v.String()
	}
	if strings.TrimSpace(id) == "" {
		n.diag.MalformedSessions++
		n.warn("document %d has no session id", position)
		return s, false
	}
	s.ID = core.SessionID(strings.TrimSpace(id))

	if v, ok := n.lookup(doc, participantFields); ok {
		s.ParticipantID = core.ParticipantID(strings.TrimSpace(v.String()))
	}
	if v, ok := n.lookup(doc, conditionFields); ok {
		s.Condition = strings.TrimSpace(v.String())
	}
	s.DataSource = n.label
	if v, ok := n.lookup(doc, dataSourceFields); ok && v.String() != "" {
		s.DataSource = v.String()
	}
	if v, ok := n.lookup(doc, completedFields); ok {
		s.Completed = completion(v)
	}
	if v, ok := n.lookup(doc, createdAtFields); ok {
		ts, err := timestamp(v)
		if err != nil {
			n.warn("session %s: unreadable creation time: %v", s.ID, err)
		}
		s.CreatedAt = ts
	}
	if v, ok := n.lookup(doc, exitReasonFields); ok {
		s.ExitReason = v.String()
	}

	if list, ok := n.lookup(doc, blockListFields); ok && list.IsArray() {
		i := 0
		list.ForEach(func(_, raw gjson.Result) bool {
			if b, err := n.block(raw, i); err != nil {
				n.diag.MalformedBlocks++
				n.warn("session %s block %d: %v", s.ID, i, err)
			} else {
				s.Blocks = append(s.Blocks, b)
			}
			i++
			return true
		})
	}
	return s, true
}

// block maps one block, deriving counts from raw bits when they are absent.
func (n *Normalizer) block(raw gjson.Result, position int) (experiment.Block, error) {
	b := experiment.Block{Index: position}
	if !raw.IsObject() {
		return b, fmt.Errorf("not an object")
	}

	if v, ok := n.lookup(raw, blockIndexFields); ok {
		idx, err := count(v)
		if err != nil {
			return b, fmt.Errorf("index: %w", err)
		}
		b.Index = idx
	}

	var err error
	if v, ok := n.lookup(raw, subjectBitFields); ok {
		if b.SubjectBits, err = bits(v); err != nil {
			return b, fmt.Errorf("subject bits: %w", err)
		}
	}
	if v, ok := n.lookup(raw, controlBitFields); ok {
		if b.ControlBits, err = bits(v); err != nil {
			return b, fmt.Errorf("control bits: %w", err)
		}
	}

	nSet, subjectSet, controlSet := false, false, false
	if v, ok := n.lookup(raw, trialCountFields); ok && !v.IsArray() {
		if b.N, err = count(v); err != nil {
			return b, fmt.Errorf("n: %w", err)
		}
		nSet = true
	}
	if v, ok := n.lookup(raw, subjectHitFields); ok {
		if b.SubjectHits, err = count(v); err != nil {
			return b, fmt.Errorf("subject hits: %w", err)
		}
		subjectSet = true
	}
	if v, ok := n.lookup(raw, controlHitFields); ok {
		if b.ControlHits, err = count(v); err != nil {
			return b, fmt.Errorf("control hits: %w", err)
		}
		controlSet = true
	}

	if !nSet && len(b.SubjectBits) > 0 {
		b.N = len(b.SubjectBits)
		n.diag.DerivedCounts++
	}
	if !subjectSet {
		if len(b.SubjectBits) == 0 {
			return b, fmt.Errorf("no subject hits or bits")
		}
		b.SubjectHits = sum(b.SubjectBits)
		n.diag.DerivedCounts++
	}
	if !controlSet {
		if len(b.ControlBits) == 0 {
			return b, fmt.Errorf("no control hits or bits")
		}
		b.ControlHits = sum(b.ControlBits)
		n.diag.DerivedCounts++
	}

	if v, ok := n.lookup(raw, entropyFields); ok {
		if v.Type != gjson.Number {
			return b, fmt.Errorf("entropy is %s", v.Type)
		}
		e := v.Num
		b.Entropy = &e
	}
	if v, ok := n.lookup(raw, trialLogFields); ok && v.IsArray() {
		b.Trials = n.trials(v, b.Index)
	}

	if err := b.Validate(); err != nil {
		return b, err
	}
	return b, nil
}

// trials reads per-press records; unreadable entries are dropped.
func (n *Normalizer) trials(list gjson.Result, blockIndex int) []experiment.Trial {
	var out []experiment.Trial
	i := 0
	list.ForEach(func(_, raw gjson.Result) bool {
		t := experiment.Trial{BlockIndex: blockIndex, TrialIndex: i}
		i++
		if v := raw.Get("i"); v.Type == gjson.Number {
			t.TrialIndex = int(v.Int())
		}
		if v, ok := n.lookup(raw, trialSubjectField); ok {
			c, err := count(v)
			if err != nil || c > 1 {
				return true
			}
			t.SubjectBit = uint8(c)
		}
		if v, ok := n.lookup(raw, trialControlField); ok {
			if c, err := count(v); err == nil && c <= 1 {
				t.ControlBit = uint8(c)
			}
		}
		if v, ok := n.lookup(raw, holdFields); ok && v.Type == gjson.Number && v.Num >= 0 {
			h := v.Num
			t.HoldMillis = &h
		}
		if v := raw.Get("t"); v.Exists() {
			if ts, err := timestamp(v); err == nil {
				t.Timestamp = ts
			}
		}
		out = append(out, t)
		return true
	})
	return out
}

func sum(bits []uint8) int {
	total := 0
	for _, b := range bits {
		total += int(b)
	}
	return total
}

func (n *Normalizer) warn(format string, args ...interface{}) {
	const maxWarnings = 50
	if len(n.diag.Warnings) < maxWarnings {
		n.diag.Warnings = append(n.diag.Warnings, fmt.Sprintf(format, args...))
	}
}

// Parse normalizes a JSON array of session documents, or an object holding one
// under "sessions" or "data". label fills DataSource for documents without one.
func Parse(data []byte, label string) ([]experiment.Session, ports.SourceDiagnostics, error) {
	n := NewNormalizer(label)
	if !gjson.ValidBytes(data) {
		return nil, n.diag, core.NewMalformedRecordError("snapshot", "document", "is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	docs := root
	if root.IsObject() {
		docs = root.Get("sessions")
		if !docs.Exists() {
			docs = root.Get("data")
		}
	}
	if !docs.IsArray() {
		return nil, n.diag, core.NewMalformedRecordError("snapshot", "sessions", "is not an array")
	}

	docs.ForEach(func(_, doc gjson.Result) bool {
		n.Add(doc, "")
		return true
	})
	sessions, diag := n.Result()
	return sessions, diag, nil
}
