package bundle

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ID is a bundle's symbolic name, unique within a Runtime.
//
// IDs are stored in NFC normal form so that visually identical names
// compare equal regardless of how the source plan encoded them. Sort keys
// and journal rows are derived from IDs, so normalization must happen at
// the boundary, before an ID enters the engine.
type ID string

// NewID normalizes a symbolic name into an ID.
// Leading and trailing whitespace is trimmed before normalization.
func NewID(symbolicName string) ID {
	return ID(norm.NFC.String(strings.TrimSpace(symbolicName)))
}

func (id ID) String() string { return string(id) }

// IsValid reports whether the ID is non-empty after normalization.
func (id ID) IsValid() bool { return id != "" }
