package store

import (
	"encoding/json"
	"fmt"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// marshalPipeline converts a pipeline to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal definitions store identically.
func marshalPipeline(p *ir.Pipeline) (string, error) {
	data, err := ir.Canonicalize(p)
	if err != nil {
		return "", fmt.Errorf("marshal pipeline: %w", err)
	}
	return string(data), nil
}

// unmarshalPipeline parses a stored definition. Params go through
// ir.Params.UnmarshalJSON, which keeps integers distinct from floats.
func unmarshalPipeline(data string) (*ir.Pipeline, error) {
	var p ir.Pipeline
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline: %w", err)
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
