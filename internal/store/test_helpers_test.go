package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sensiml/piccolo-sub000/internal/catalog"
	"github.com/sensiml/piccolo-sub000/internal/compiler"
	"github.com/sensiml/piccolo-sub000/internal/ir"
	"github.com/sensiml/piccolo-sub000/internal/testutil"
)

// createTestStore creates a store in a temp dir with a deterministic clock
// and sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithClock(testutil.NewDeterministicClock()),
		WithIDs(testutil.NewSequenceIDs("pl")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testPipeline builds a small named pipeline over the fixture catalog.
func testPipeline(name string, bins int) *ir.Pipeline {
	p := testutil.Pipeline(testutil.SensorColumns,
		testutil.Step("Windowing", "window_size", 64, "delta", 32),
		testutil.Step("Histogram", "columns", []string{"accelx"}, "number_of_bins", bins),
	)
	p.Name = name
	return p
}

// compilePlan compiles p against the fixture catalog.
func compilePlan(t *testing.T, p *ir.Pipeline) *compiler.Plan {
	t.Helper()
	reg, err := catalog.New(testutil.Contracts(t))
	if err != nil {
		t.Fatalf("catalog.New() failed: %v", err)
	}
	plan, err := compiler.New(reg, compiler.Options{}).Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return plan
}

// mustSavePipeline saves p or fails the test.
func mustSavePipeline(t *testing.T, s *Store, p *ir.Pipeline) PipelineRecord {
	t.Helper()
	rec, err := s.SavePipeline(context.Background(), p)
	if err != nil {
		t.Fatalf("SavePipeline(%q) failed: %v", p.Name, err)
	}
	return rec
}
