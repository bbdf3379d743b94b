package dfid

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGenerateFormat(t *testing.T) {
	g := NewGenerator()
	id := g.Generate()
	parts := strings.Split(id, "-")
	if len(parts) != 4 || parts[0] != "DFID" {
		t.Fatalf("unexpected DFID shape: %q", id)
	}
	if len(parts[3]) < 6 {
		t.Fatalf("expected random suffix >= 6 chars, got %q", parts[3])
	}
}

func TestGenerateNeverReused(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		id := g.Generate()
		if seen[id] {
			t.Fatalf("DFID collision at iteration %d: %s", i, id)
		}
		seen[id] = true
	}
}

func TestSequenceResetsPerSecond(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	g := &Generator{now: func() time.Time {
		defer func() { tick++ }()
		if tick < 3 {
			return base
		}
		return base.Add(time.Second)
	}}

	first := g.Generate()
	second := g.Generate()
	third := g.Generate()
	fourth := g.Generate()

	if !strings.Contains(first, "-0000-") {
		t.Errorf("expected first sequence 0000, got %s", first)
	}
	if !strings.Contains(second, "-0001-") {
		t.Errorf("expected second sequence 0001, got %s", second)
	}
	if !strings.Contains(third, "-0002-") {
		t.Errorf("expected third sequence 0002, got %s", third)
	}
	if !strings.Contains(fourth, "-0000-") {
		t.Errorf("expected sequence to reset to 0000 on new second, got %s", fourth)
	}
}

// TestMonotonicTimestampProperty exercises the invariant from spec §8: for
// any pair of calls to the generator on one process, the second call's
// timestamp-prefix component is never less than the first's.
func TestMonotonicTimestampProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("timestamp prefix never regresses", prop.ForAll(
		func(n int) bool {
			g := NewGenerator()
			var prevPrefix string
			for i := 0; i < n; i++ {
				id := g.Generate()
				prefix := strings.SplitN(id, "-", 3)[1]
				if prevPrefix != "" && prefix < prevPrefix {
					return false
				}
				prevPrefix = prefix
			}
			return true
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
