package testutil

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// CatalogJSON is the shared fixture catalog: a dozen contracts covering every
// step type, formula shape and scratch buffer kind.
//
//go:embed testdata/catalog.json
var CatalogJSON []byte

// Contracts decodes the fixture catalog.
func Contracts(t testing.TB) []ir.StepContract {
	t.Helper()
	var contracts []ir.StepContract
	if err := json.Unmarshal(CatalogJSON, &contracts); err != nil {
		t.Fatalf("decode fixture catalog: %v", err)
	}
	return contracts
}

// Contract returns one fixture contract by name.
func Contract(t testing.TB, name string) ir.StepContract {
	t.Helper()
	for _, c := range Contracts(t) {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("fixture catalog has no contract %q", name)
	return ir.StepContract{}
}

// WriteCatalog writes the fixture catalog into a temp dir and returns its path.
func WriteCatalog(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, CatalogJSON, 0o644); err != nil {
		t.Fatalf("write fixture catalog: %v", err)
	}
	return path
}

// Step builds a step invocation from alternating name/value pairs:
//
//	testutil.Step("Downsample", "columns", []string{"accelx"}, "new_length", 5)
func Step(contract string, kv ...any) ir.StepInvocation {
	if len(kv)%2 != 0 {
		panic("testutil.Step: odd number of key/value arguments")
	}
	params := make(ir.Params, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic("testutil.Step: parameter names must be strings")
		}
		params[name] = ir.MustValue(kv[i+1])
	}
	return ir.StepInvocation{Contract: contract, Params: params}
}

// Pipeline builds a pipeline over the given data columns.
func Pipeline(columns []string, steps ...ir.StepInvocation) *ir.Pipeline {
	return &ir.Pipeline{
		Name:    "fixture",
		Columns: columns,
		Steps:   steps,
	}
}

// SensorColumns are the data columns fixture pipelines start from.
var SensorColumns = []string{"accelx", "accely", "accelz"}
