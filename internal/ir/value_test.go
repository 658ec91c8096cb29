package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = Int(0)
	var _ Value = Float(0)
	var _ Value = Str("")
	var _ Value = Bool(false)
	var _ Value = List{}
	var _ Value = Dict{}
}

func TestKind(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{nil, "absent"},
		{Null{}, "null"},
		{Int(1), "int"},
		{Float(1.5), "float"},
		{Str("x"), "str"},
		{Bool(true), "bool"},
		{List{}, "list"},
		{Dict{}, "dict"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.value))
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"absent", nil, false},
		{"null", Null{}, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero int", Int(0), false},
		{"int", Int(3), true},
		{"zero float", Float(0), false},
		{"float", Float(0.1), true},
		{"empty string", Str(""), false},
		{"string", Str("median"), true},
		{"empty list", List{}, false},
		{"list", StrList("accelx"), true},
		{"empty dict", Dict{}, false},
		{"dict", Dict{"a": Int(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}

func TestNumber(t *testing.T) {
	n, ok := Number(Int(5))
	assert.True(t, ok)
	assert.Equal(t, 5.0, n)

	n, ok = Number(Float(2.5))
	assert.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = Number(Str("5"))
	assert.False(t, ok)

	_, ok = Number(Bool(true))
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2.0)), "numerically equal values compare equal")
	assert.True(t, Equal(StrList("a", "b"), StrList("a", "b")))
	assert.False(t, Equal(StrList("a", "b"), StrList("b", "a")), "list order matters")
	assert.True(t, Equal(Dict{"x": Int(1), "y": Int(2)}, Dict{"y": Int(2), "x": Int(1)}))
	assert.False(t, Equal(Str("1"), Int(1)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Null{}))
}

func TestStrings(t *testing.T) {
	got, ok := Strings(StrList("accelx", "accely"))
	require.True(t, ok)
	assert.Equal(t, []string{"accelx", "accely"}, got)

	_, ok = Strings(List{Str("accelx"), Int(1)})
	assert.False(t, ok)

	_, ok = Strings(Str("accelx"))
	assert.False(t, ok)
}

func TestDictSortedKeys(t *testing.T) {
	d := Dict{"zebra": Int(1), "alpha": Int(2), "Beta": Int(3)}
	assert.Equal(t, []string{"Beta", "alpha", "zebra"}, d.SortedKeys())

	assert.Empty(t, Dict{}.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"\U00010000", "\uE000", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestUnmarshalValueKeepsIntsDistinct(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"a": 1, "b": 1.0, "c": 2.5, "d": 1e3, "e": null, "f": [true, "x"]}`))
	require.NoError(t, err)

	d, ok := v.(Dict)
	require.True(t, ok)
	assert.Equal(t, Int(1), d["a"])
	assert.Equal(t, Float(1), d["b"])
	assert.Equal(t, Float(2.5), d["c"])
	assert.Equal(t, Float(1000), d["d"])
	assert.Equal(t, Null{}, d["e"])
	assert.Equal(t, List{Bool(true), Str("x")}, d["f"])
}

func TestMarshalValueRoundTrip(t *testing.T) {
	original := Dict{
		"window_size":    Int(250),
		"scaling_factor": Float(255),
		"columns":        StrList("accelx", "accely"),
		"enabled":        Bool(false),
		"nothing":        Null{},
	}

	data, err := MarshalValue(original)
	require.NoError(t, err)
	assert.Equal(t,
		`{"columns":["accelx","accely"],"enabled":false,"nothing":null,"scaling_factor":255.0,"window_size":250}`,
		string(data))

	back, err := UnmarshalValue(data)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    7,
		"f":    0.5,
		"list": []any{"a", int64(2)},
		"nested": map[any]any{
			"k": "v",
		},
		"nil": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, Dict{
		"n":      Int(7),
		"f":      Float(0.5),
		"list":   List{Str("a"), Int(2)},
		"nested": Dict{"k": Str("v")},
		"nil":    Null{},
	}, v)

	num, err := FromAny(json.Number("12"))
	require.NoError(t, err)
	assert.Equal(t, Int(12), num)

	_, err = FromAny(map[any]any{1: "x"})
	assert.Error(t, err)

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestMustValuePanics(t *testing.T) {
	assert.Panics(t, func() { MustValue(make(chan int)) })
	assert.Equal(t, Str("x"), MustValue("x"))
}

func TestFloatMarshalJSONRejectsNonFinite(t *testing.T) {
	_, err := json.Marshal(List{Float(1), Float(2.5)})
	require.NoError(t, err)

	_, err = Float(math.Inf(1)).MarshalJSON()
	assert.Error(t, err)
}
