package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() || !ID("   ").IsEmpty() {
		t.Error("Expected blank IDs to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestDomainIDIsEmpty(t *testing.T) {
	if !SessionID(" ").IsEmpty() || !ParticipantID("").IsEmpty() {
		t.Error("Expected blank domain IDs to be empty")
	}
	if SessionID("sess-1").IsEmpty() || ParticipantID("p-1").IsEmpty() {
		t.Error("Expected non-blank domain IDs to not be empty")
	}
}

func TestParseSessionID(t *testing.T) {
	tests := []struct {
		input    string
		expected SessionID
		hasError bool
	}{
		{"sess-1", SessionID("sess-1"), false},
		{"  sess-2 ", SessionID("sess-2"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseSessionID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestFingerprintIsStable(t *testing.T) {
	a := map[string]interface{}{"b": 2, "a": []float64{0.5, 0.25}}
	b := map[string]interface{}{"a": []float64{0.5, 0.25}, "b": 2}

	ha, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	hb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if ha != hb {
		t.Errorf("Expected equal fingerprints, got %s and %s", ha, hb)
	}
	if len(ha.Short()) != 12 {
		t.Errorf("Expected 12-char short hash, got %q", ha.Short())
	}
}

func TestErrorClasses(t *testing.T) {
	err := NewInsufficientDataError("welch", 1, 2)
	if !IsInsufficientData(err) || !IsAbsorbable(err) {
		t.Errorf("Expected insufficient-data class, got %v", err)
	}
	if !errors.Is(NewResampleCapError(10, 5), ErrResampleCapExceeded) {
		t.Error("Expected resample cap error to wrap sentinel")
	}
	if IsAbsorbable(NewMalformedRecordError("block", "hits", "not numeric")) {
		t.Error("Malformed records are counted, not absorbed as absent results")
	}
}
