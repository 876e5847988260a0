package idgen

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestULIDGenerator_SortsInIssueOrder(t *testing.T) {
	g := NewULIDGenerator()

	prev := g.Generate()
	for i := 0; i < 1000; i++ {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("id %q issued after %q does not sort after it", next, prev)
		}
		prev = next
	}
}

func TestULIDGenerator_ProducesValidULIDs(t *testing.T) {
	id := NewULIDGenerator().Generate()

	if len(id) != ulid.EncodedSize {
		t.Fatalf("expected %d characters, got %d (%q)", ulid.EncodedSize, len(id), id)
	}

	if _, err := ulid.ParseStrict(id); err != nil {
		t.Fatalf("generated id %q does not parse: %v", id, err)
	}
}
