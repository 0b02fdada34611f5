// Package snapshot loads session documents exported from the experiment store
// and normalizes their historical field names.
package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"qrnglab/domain/experiment"
	"qrnglab/internal/errors"
	"qrnglab/ports"
)

// FileSource reads a JSON snapshot from disk. It implements ports.SessionSource.
type FileSource struct {
	path  string
	label string
}

// NewFileSource creates a source for path. An empty label uses the file name.
func NewFileSource(path, label string) *FileSource {
	if label == "" {
		label = filepath.Base(path)
	}
	return &FileSource{path: path, label: label}
}

// Name returns the source label
func (s *FileSource) Name() string {
	return s.label
}

// LoadSessions reads and normalizes the whole file.
func (s *FileSource) LoadSessions(ctx context.Context) ([]experiment.Session, ports.SourceDiagnostics, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.SourceDiagnostics{Source: s.label}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, ports.SourceDiagnostics{Source: s.label}, errors.SourceUnavailable(s.label, err)
	}
	sessions, diag, err := Parse(data, s.label)
	if err != nil {
		return nil, diag, errors.SourceUnavailable(s.label, err)
	}
	return sessions, diag, nil
}

// MemorySource serves raw documents already held in memory, such as a request body.
type MemorySource struct {
	label string
	data  []byte
}

// NewMemorySource creates a source over raw JSON
func NewMemorySource(label string, data []byte) *MemorySource {
	return &MemorySource{label: label, data: data}
}

// Name returns the source label
func (s *MemorySource) Name() string {
	return s.label
}

// LoadSessions normalizes the held documents
func (s *MemorySource) LoadSessions(ctx context.Context) ([]experiment.Session, ports.SourceDiagnostics, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.SourceDiagnostics{Source: s.label}, err
	}
	return Parse(s.data, s.label)
}

// Encode serializes sessions under the canonical document field names. Bits
// are written as "0101" strings.
func Encode(sessions []experiment.Session) ([]byte, error) {
	docs := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		docs = append(docs, document(s))
	}
	return json.MarshalIndent(map[string]interface{}{"sessions": docs}, "", "  ")
}

// EncodeSession serializes a single session document.
func EncodeSession(s experiment.Session) ([]byte, error) {
	return json.Marshal(document(s))
}

func document(s experiment.Session) map[string]interface{} {
	doc := map[string]interface{}{
		"id":            s.ID,
		"participantId": s.ParticipantID,
		"condition":     s.Condition,
		"dataSource":    s.DataSource,
	}
	if s.Completed != nil {
		doc["completed"] = *s.Completed
	}
	if s.CreatedAt != nil {
		doc["createdAt"] = s.CreatedAt.Time().UnixMilli()
	}
	if s.ExitReason != "" {
		doc["exitReason"] = s.ExitReason
	}
	blocks := make([]map[string]interface{}, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		block := map[string]interface{}{
			"index":     b.Index,
			"n":         b.N,
			"hits":      b.SubjectHits,
			"ghostHits": b.ControlHits,
		}
		if len(b.SubjectBits) > 0 {
			block["subjectBits"] = bitString(b.SubjectBits)
		}
		if len(b.ControlBits) > 0 {
			block["controlBits"] = bitString(b.ControlBits)
		}
		if b.Entropy != nil {
			block["entropy"] = *b.Entropy
		}
		if len(b.Trials) > 0 {
			log := make([]map[string]interface{}, 0, len(b.Trials))
			for _, t := range b.Trials {
				entry := map[string]interface{}{"i": t.TrialIndex, "subject": t.SubjectBit, "control": t.ControlBit}
				if t.HoldMillis != nil {
					entry["holdMs"] = *t.HoldMillis
				}
				log = append(log, entry)
			}
			block["trialLog"] = log
		}
		blocks = append(blocks, block)
	}
	doc["blocks"] = blocks
	return doc
}

func bitString(bits []uint8) string {
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = '0' + b
	}
	return string(out)
}

// Write stores sessions as a snapshot file that FileSource reads back.
func Write(path string, sessions []experiment.Session) error {
	data, err := Encode(sessions)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write snapshot %s", path)
	}
	return nil
}
