package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Domain-specific ID types
type (
	SessionID     ID
	ParticipantID ID
	ReportID      ID
)

// String conversions for domain IDs
func (id SessionID) String() string     { return ID(id).String() }
func (id ParticipantID) String() string { return ID(id).String() }
func (id ReportID) String() string      { return ID(id).String() }

// IsEmpty checks for blank domain ids
func (id SessionID) IsEmpty() bool     { return ID(id).IsEmpty() }
func (id ParticipantID) IsEmpty() bool { return ID(id).IsEmpty() }

// NewReportID creates a time-ordered report identifier
func NewReportID() ReportID { return ReportID(NewID()) }

// ParseSessionID parses a string into SessionID
func ParseSessionID(s string) (SessionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	return SessionID(strings.TrimSpace(s)), nil
}

// ParseParticipantID parses a string into ParticipantID
func ParseParticipantID(s string) (ParticipantID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("participant ID cannot be empty")
	}
	return ParticipantID(strings.TrimSpace(s)), nil
}
