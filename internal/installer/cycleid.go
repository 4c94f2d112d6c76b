package installer

import (
	"sync"

	"github.com/google/uuid"
)

// CycleIDGenerator generates unique IDs for installer cycles, used to
// correlate journal rows and log lines belonging to one cycle.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type CycleIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 cycle IDs, so journal
// queries ordered by cycle ID follow creation order.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined cycle IDs for deterministic tests
// and golden comparisons.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed; exhaustion in a test means
// the test ran more cycles than it declared.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("installer: FixedGenerator exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
