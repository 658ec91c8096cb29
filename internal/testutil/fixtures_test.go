package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

func TestFixtureCatalogDecodes(t *testing.T) {
	contracts := Contracts(t)
	require.NotEmpty(t, contracts)

	names := make(map[string]bool)
	for _, c := range contracts {
		assert.False(t, names[c.Name], "duplicate fixture name %q", c.Name)
		names[c.Name] = true
		assert.NotEmpty(t, c.UUID)
	}

	downsample := Contract(t, "Downsample")
	assert.Equal(t, ir.StepFeatureGenerator, downsample.Type)
}

func TestWriteCatalog(t *testing.T) {
	path := WriteCatalog(t)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CatalogJSON, data)
}

func TestStep(t *testing.T) {
	step := Step("Downsample", "columns", []string{"accelx"}, "new_length", 5)
	assert.Equal(t, "Downsample", step.Contract)
	assert.Equal(t, ir.Params{"columns": ir.StrList("accelx"), "new_length": ir.Int(5)}, step.Params)

	assert.Panics(t, func() { Step("x", "odd") })
	assert.Panics(t, func() { Step("x", 1, 2) })
}
