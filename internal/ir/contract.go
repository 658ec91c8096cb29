package ir

import (
	"encoding/json"
	"fmt"
)

// Parameter type names accepted in ParamSpec.Type.
const (
	TypeDataFrame   = "DataFrame"
	TypeDataSegment = "DataSegment"
	TypeStr         = "str"
	TypeInt         = "int"
	TypeFloat       = "float"
	TypeNumeric     = "numeric"
	TypeBool        = "bool"
	TypeBoolean     = "boolean"
	TypeList        = "list"
	TypeDict        = "dict"
	TypeInt16       = "int16_t"
)

// ValidParamTypes is the closed set of parameter type names.
var ValidParamTypes = map[string]bool{
	TypeDataFrame:   true,
	TypeDataSegment: true,
	TypeStr:         true,
	TypeInt:         true,
	TypeFloat:       true,
	TypeNumeric:     true,
	TypeBool:        true,
	TypeBoolean:     true,
	TypeList:        true,
	TypeDict:        true,
	TypeInt16:       true,
}

// Contract types used by the column-state rules.
const (
	StepSegmenter         = "segmenter"
	StepTransform         = "transform"
	StepSampler           = "sampler"
	StepFeatureGenerator  = "featureGenerator"
	StepFeatureSelector   = "featureSelector"
	StepTrainingAlgorithm = "trainingAlgorithm"
	StepValidationMethod  = "validationMethod"
	StepClassifier        = "classifier"
)

// Scratch buffer descriptor kinds.
const (
	BufferSegmentSize = "segment_size"
	BufferParameter   = "parameter"
	BufferFixedValue  = "fixed_value"
)

// StepContract is one catalog entry: the declarative schema of a pipeline
// stage. Contracts are immutable once loaded into a registry.
type StepContract struct {
	UUID            string       `json:"uuid"`
	Name            string       `json:"name"`
	Type            string       `json:"type"`
	Subtype         string       `json:"subtype,omitempty"`
	HasCVersion     bool         `json:"has_c_version"`
	AutoMLAvailable bool         `json:"automl_available"`
	LibraryPack     *string      `json:"library_pack"`
	Description     string       `json:"description,omitempty"`
	InputContract   []ParamSpec  `json:"input_contract"`
	OutputContract  []OutputSpec `json:"output_contract"`
}

// Param returns the named parameter spec, or nil.
func (c *StepContract) Param(name string) *ParamSpec {
	for i := range c.InputContract {
		if c.InputContract[i].Name == name {
			return &c.InputContract[i]
		}
	}
	return nil
}

// ParamSpec describes one entry of a contract's input_contract.
type ParamSpec struct {
	Name          string
	Type          string
	Range         *Range
	Options       []Option
	ElementType   string
	Default       Value // nil when no default is declared
	NumColumns    *int
	MinElements   *int
	MaxElements   *int
	CParam        *int
	CParamMapping map[string]int
	HandleBySet   bool
	DependsOn     []Dependency
	Streams       bool
	NoDisplay     bool
	DisplayName   string
	Description   string
}

// HasDefault reports whether the catalog declares a default (possibly null).
func (p *ParamSpec) HasDefault() bool {
	return p.Default != nil
}

// Collaborator reports whether the value is supplied by the pipeline
// builder rather than by the user (input frames).
func (p *ParamSpec) Collaborator() bool {
	return p.Type == TypeDataFrame || p.Type == TypeDataSegment
}

// paramSpecJSON is the wire shape of ParamSpec.
type paramSpecJSON struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Range         *Range          `json:"range,omitempty"`
	Options       []Option        `json:"options,omitempty"`
	ElementType   string          `json:"element_type,omitempty"`
	Default       json.RawMessage `json:"default,omitempty"`
	NumColumns    *int            `json:"num_columns,omitempty"`
	MinElements   *int            `json:"min_elements,omitempty"`
	MaxElements   *int            `json:"max_elements,omitempty"`
	CParam        *int            `json:"c_param,omitempty"`
	CParamMapping map[string]int  `json:"c_param_mapping,omitempty"`
	HandleBySet   bool            `json:"handle_by_set,omitempty"`
	DependsOn     json.RawMessage `json:"depends_on,omitempty"`
	Streams       bool            `json:"streams,omitempty"`
	NoDisplay     bool            `json:"no_display,omitempty"`
	DisplayName   string          `json:"display_name,omitempty"`
	Description   string          `json:"description,omitempty"`
}

// UnmarshalJSON decodes a ParamSpec, distinguishing an absent default from
// an explicit null default.
func (p *ParamSpec) UnmarshalJSON(data []byte) error {
	var raw paramSpecJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = ParamSpec{
		Name:          raw.Name,
		Type:          raw.Type,
		Range:         raw.Range,
		Options:       raw.Options,
		ElementType:   raw.ElementType,
		NumColumns:    raw.NumColumns,
		MinElements:   raw.MinElements,
		MaxElements:   raw.MaxElements,
		CParam:        raw.CParam,
		CParamMapping: raw.CParamMapping,
		HandleBySet:   raw.HandleBySet,
		Streams:       raw.Streams,
		NoDisplay:     raw.NoDisplay,
		DisplayName:   raw.DisplayName,
		Description:   raw.Description,
	}

	if len(raw.Default) > 0 {
		def, err := UnmarshalValue(raw.Default)
		if err != nil {
			return fmt.Errorf("param %q default: %w", raw.Name, err)
		}
		p.Default = def
	}

	deps, err := unmarshalDependencies(raw.DependsOn)
	if err != nil {
		return fmt.Errorf("param %q depends_on: %w", raw.Name, err)
	}
	p.DependsOn = deps

	return nil
}

// MarshalJSON implements json.Marshaler for ParamSpec.
func (p ParamSpec) MarshalJSON() ([]byte, error) {
	raw := paramSpecJSON{
		Name:          p.Name,
		Type:          p.Type,
		Range:         p.Range,
		Options:       p.Options,
		ElementType:   p.ElementType,
		NumColumns:    p.NumColumns,
		MinElements:   p.MinElements,
		MaxElements:   p.MaxElements,
		CParam:        p.CParam,
		CParamMapping: p.CParamMapping,
		HandleBySet:   p.HandleBySet,
		Streams:       p.Streams,
		NoDisplay:     p.NoDisplay,
		DisplayName:   p.DisplayName,
		Description:   p.Description,
	}
	if p.Default != nil {
		def, err := MarshalValue(p.Default)
		if err != nil {
			return nil, fmt.Errorf("param %q default: %w", p.Name, err)
		}
		raw.Default = def
	}
	if len(p.DependsOn) > 0 {
		deps, err := json.Marshal(p.DependsOn)
		if err != nil {
			return nil, err
		}
		raw.DependsOn = deps
	}
	return json.Marshal(raw)
}

// Range is an inclusive [min, max] bound.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether x lies within the inclusive bounds.
func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

// String renders the range the way the catalog writes it.
func (r Range) String() string {
	return fmt.Sprintf("[%v, %v]", r.Min, r.Max)
}

// UnmarshalJSON decodes a two-element [min, max] array.
func (r *Range) UnmarshalJSON(data []byte) error {
	var bounds []float64
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	if len(bounds) != 2 {
		return fmt.Errorf("range: expected [min, max], got %d element(s)", len(bounds))
	}
	r.Min, r.Max = bounds[0], bounds[1]
	return nil
}

// MarshalJSON implements json.Marshaler for Range.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{r.Min, r.Max})
}

// Option is one allowed value of an enumerated parameter. The catalog
// writes options either as bare values or as objects carrying a "name".
type Option struct {
	Value Value
	// Object is set when the option was written as {"name": value, ...}.
	Object Dict
}

// UnmarshalJSON implements json.Unmarshaler for Option.
func (o *Option) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	if obj, ok := v.(Dict); ok {
		name, ok := obj["name"]
		if !ok {
			return fmt.Errorf("option object has no \"name\"")
		}
		o.Value = name
		o.Object = obj
		return nil
	}
	o.Value = v
	o.Object = nil
	return nil
}

// MarshalJSON implements json.Marshaler for Option.
func (o Option) MarshalJSON() ([]byte, error) {
	if o.Object != nil {
		return o.Object.MarshalJSON()
	}
	return MarshalValue(o.Value)
}

// Dependency is one depends_on condition referencing a sibling parameter.
type Dependency struct {
	Name string `json:"name"`
	How  string `json:"how"`
}

// Relations accepted in Dependency.How.
const (
	HowEnabled            = "enabled"
	HowLessThan           = "less_than"
	HowLessThanOrEqual    = "less_than_or_equal"
	HowGreaterThan        = "greater_than"
	HowGreaterThanOrEqual = "greater_than_or_equal"
	HowEqual              = "equal"
	HowNotEqual           = "not_equal"
)

// ValidRelations is the set of supported depends_on relations.
var ValidRelations = map[string]bool{
	HowEnabled:            true,
	HowLessThan:           true,
	HowLessThanOrEqual:    true,
	HowGreaterThan:        true,
	HowGreaterThanOrEqual: true,
	HowEqual:              true,
	HowNotEqual:           true,
}

// unmarshalDependencies accepts a single {name, how} object, a list of
// them, or null.
func unmarshalDependencies(data json.RawMessage) ([]Dependency, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var list []Dependency
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single Dependency
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []Dependency{single}, nil
}

// OutputSpec describes one entry of a contract's output_contract.
type OutputSpec struct {
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Family          bool           `json:"family,omitempty"`
	OutputFormula   string         `json:"output_formula,omitempty"`
	ScratchBuffer   *ScratchBuffer `json:"scratch_buffer,omitempty"`
	MetadataColumns []string       `json:"metadata_columns,omitempty"`
	Persist         bool           `json:"persist,omitempty"`
	DisplayName     string         `json:"display_name,omitempty"`
}

// ScratchBuffer is the working-memory descriptor of an output.
type ScratchBuffer struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Value *int   `json:"value,omitempty"`
}
