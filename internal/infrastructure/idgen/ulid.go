// Package idgen issues identifiers for accounts, history records and outbox
// events. Both storage backends share it.
package idgen

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator issues ULIDs. ulid.Make draws from a process-wide monotonic
// source, so ids generated later in the process sort after earlier ones,
// including within the same millisecond.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate returns the next id in canonical 26-character form.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
