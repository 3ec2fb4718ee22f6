package idgen_test

import (
	"strings"
	"testing"

	"github.com/calyptra/grantvec/idgen"
)

func TestUUIDv7_Unique(t *testing.T) {
	gen := idgen.UUIDv7()
	seen := make(map[string]bool)
	for range 100 {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	gen := idgen.Prefixed("doc_", idgen.UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "doc_") {
		t.Errorf("id %q missing doc_ prefix", id)
	}
	if _, err := idgen.Parse(strings.TrimPrefix(id, "doc_")); err != nil {
		t.Errorf("suffix is not a UUID: %v", err)
	}
}

func TestNanoID_Length(t *testing.T) {
	gen := idgen.NanoID(12)
	id := gen()
	if len(id) != 12 {
		t.Errorf("len = %d, want 12", len(id))
	}
}
