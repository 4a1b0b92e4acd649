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
	return id == ""
}

// Domain-specific ID types
type (
	AnalysisID ID
	DatasetKey ID
)

func NewAnalysisID() AnalysisID { return AnalysisID(NewID()) }

// String conversions for domain IDs
func (id AnalysisID) String() string { return ID(id).String() }
func (k DatasetKey) String() string  { return ID(k).String() }

// ParseAnalysisID parses a string into AnalysisID
func ParseAnalysisID(s string) (AnalysisID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("analysis ID %q is not a UUID: %w", s, err)
	}
	return AnalysisID(s), nil
}

// ParseDatasetKey parses a caller-chosen dataset key such as "sales-2024"
func ParseDatasetKey(s string) (DatasetKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("dataset key cannot be empty")
	}
	if len(s) > 128 {
		return "", fmt.Errorf("dataset key longer than 128 characters")
	}
	return DatasetKey(s), nil
}
