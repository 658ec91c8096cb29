package ir

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Params is a concrete argument map for one step invocation.
type Params map[string]Value

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SortedKeys returns the parameter names in canonical order.
func (p Params) SortedKeys() []string {
	return Dict(p).SortedKeys()
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (p Params) MarshalJSON() ([]byte, error) {
	return Dict(p).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler for Params.
func (p *Params) UnmarshalJSON(data []byte) error {
	var d Dict
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	*p = Params(d)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Params.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := make(Params, len(raw))
	for k, v := range raw {
		val, err := FromAny(v)
		if err != nil {
			return fmt.Errorf("params[%q]: %w", k, err)
		}
		out[k] = val
	}
	*p = out
	return nil
}

// Pipeline is a user-authored, ordered list of step invocations together
// with the initial column schema of the data flowing into the first step.
// It is plain data: a pipeline round-trips through JSON or YAML with no
// hidden state.
type Pipeline struct {
	Name         string           `json:"name" yaml:"name"`
	Columns      []string         `json:"columns" yaml:"columns"`
	GroupColumns []string         `json:"group_columns,omitempty" yaml:"group_columns,omitempty"`
	LabelColumn  string           `json:"label_column,omitempty" yaml:"label_column,omitempty"`
	Shared       Params           `json:"shared,omitempty" yaml:"shared,omitempty"`
	Steps        []StepInvocation `json:"steps" yaml:"steps"`
}

// StepInvocation references a contract by name or uuid and carries the
// user's concrete parameter values.
type StepInvocation struct {
	Contract string `json:"contract" yaml:"contract"`
	Params   Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// MarshalYAML renders Params as a mapping node built from the values
// themselves, so ints, integral floats and large integers keep their kind.
func (p Params) MarshalYAML() (any, error) {
	return valueNode(Dict(p))
}

func valueNode(v Value) (*yaml.Node, error) {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch val := v.(type) {
	case nil, Null:
		return scalar("!!null", "null"), nil
	case Bool:
		return scalar("!!bool", strconv.FormatBool(bool(val))), nil
	case Int:
		return scalar("!!int", strconv.FormatInt(int64(val), 10)), nil
	case Float:
		text, err := val.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return scalar("!!float", string(text)), nil
	case Str:
		return scalar("!!str", string(val)), nil
	case List:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, elem := range val {
			child, err := valueNode(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case Dict:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range val.SortedKeys() {
			child, err := valueNode(val[k])
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			node.Content = append(node.Content, scalar("!!str", k), child)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}
