package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// Scenario defines a conformance scenario: a catalog, one pipeline compiled
// against it, and assertions on the resulting plan.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the path of a catalog file or directory.
	// Relative paths resolve against the scenario file's directory.
	Catalog string `yaml:"catalog"`

	// Options configure the compiler for this scenario.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// Pipeline is compiled once per run.
	Pipeline ir.Pipeline `yaml:"pipeline"`

	// Valid is the expected overall outcome.
	Valid bool `yaml:"valid"`

	// Assertions validate the compiled plan.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// ScenarioOptions mirror compiler.Options.
type ScenarioOptions struct {
	RequireNative    bool `yaml:"require_native,omitempty"`
	MaxSegmentLength int  `yaml:"max_segment_length,omitempty"`
	ScratchBudget    int  `yaml:"scratch_budget,omitempty"`
}

// Assertion validates one aspect of a compiled plan.
type Assertion struct {
	// Type specifies the assertion type:
	// - "violation": a violation with the given code exists (step/param narrow it)
	// - "violation_count": exactly Count violations
	// - "output_width": step Step's output Output has width Width
	// - "columns": the final data columns are exactly Columns
	// - "feature_count": exactly Count feature columns
	// - "buffer": step Step has a scratch buffer for Output of Size (Deferred when unbound)
	// - "slots": step Step serializes to Values
	// - "param": step Step resolved Param to Value
	// - "shared": the pipeline context holds Value for Param
	// - "stored_plan": the plan persisted and reloaded with the same hash
	Type string `yaml:"type"`

	Step     *int      `yaml:"step,omitempty"`
	Code     string    `yaml:"code,omitempty"`
	Param    string    `yaml:"param,omitempty"`
	Output   string    `yaml:"output,omitempty"`
	Width    int       `yaml:"width,omitempty"`
	Size     int       `yaml:"size,omitempty"`
	Deferred bool      `yaml:"deferred,omitempty"`
	Count    int       `yaml:"count,omitempty"`
	Columns  []string  `yaml:"columns,omitempty"`
	Values   []float64 `yaml:"values,omitempty"`
	Value    any       `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertViolation      = "violation"
	AssertViolationCount = "violation_count"
	AssertOutputWidth    = "output_width"
	AssertColumns        = "columns"
	AssertFeatureCount   = "feature_count"
	AssertBuffer         = "buffer"
	AssertSlots          = "slots"
	AssertParam          = "param"
	AssertShared         = "shared"
	AssertStoredPlan     = "stored_plan"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.Path = path

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, ordered by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
		return fmt.Errorf("catalog not found: %s", s.Catalog)
	}
	if len(s.Pipeline.Columns) == 0 {
		return fmt.Errorf("pipeline.columns is required and must be non-empty")
	}
	for i, step := range s.Pipeline.Steps {
		if step.Contract == "" {
			return fmt.Errorf("pipeline.steps[%d]: contract is required", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	need := func(ok bool, field string) error {
		if !ok {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		return nil
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertViolation:
		return need(a.Code != "", "code")
	case AssertViolationCount, AssertFeatureCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertOutputWidth:
		if err := need(a.Step != nil, "step"); err != nil {
			return err
		}
		return need(a.Output != "", "output")
	case AssertColumns:
		return need(len(a.Columns) > 0, "columns")
	case AssertBuffer:
		if err := need(a.Step != nil, "step"); err != nil {
			return err
		}
		if err := need(a.Output != "", "output"); err != nil {
			return err
		}
		return need(a.Deferred || a.Size > 0, "size")
	case AssertSlots:
		return need(a.Step != nil, "step")
	case AssertParam:
		if err := need(a.Step != nil, "step"); err != nil {
			return err
		}
		return need(a.Param != "", "param")
	case AssertShared:
		return need(a.Param != "", "param")
	case AssertStoredPlan:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
