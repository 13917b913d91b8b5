package ml

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidValue = errors.New("invalid parameter value")

// Kind tags the variant held by a Value.
type Kind string

const (
	KindFloat  Kind = "float"
	KindInt    Kind = "int"
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindFloats Kind = "floats"
	KindMatrix Kind = "matrix"
)

// Value is a tagged union over the parameter kinds a model may store.
type Value struct {
	Kind   Kind        `json:"kind"`
	Float  float64     `json:"float,omitempty"`
	Int    int64       `json:"int,omitempty"`
	Text   string      `json:"text,omitempty"`
	Bool   bool        `json:"bool,omitempty"`
	Floats []float64   `json:"floats,omitempty"`
	Matrix [][]float64 `json:"matrix,omitempty"`
}

func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func IntValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Text: v} }
func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }

func FloatsValue(v []float64) Value {
	return Value{Kind: KindFloats, Floats: append([]float64{}, v...)}
}

func MatrixValue(v [][]float64) Value {
	return Value{Kind: KindMatrix, Matrix: copyMatrix(v)}
}

// AsFloat also accepts int values.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	}
	return 0, false
}

func (v Value) AsInt() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Text, true
}

func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

func (v Value) AsFloats() ([]float64, bool) {
	if v.Kind != KindFloats {
		return nil, false
	}
	return v.Floats, true
}

func (v Value) AsMatrix() ([][]float64, bool) {
	if v.Kind != KindMatrix {
		return nil, false
	}
	return v.Matrix, true
}

func (v Value) Clone() Value {
	clone := v
	if v.Floats != nil {
		clone.Floats = append([]float64{}, v.Floats...)
	}
	if v.Matrix != nil {
		clone.Matrix = copyMatrix(v.Matrix)
	}
	return clone
}

func (v Value) validate() error {
	switch v.Kind {
	case KindFloat, KindInt, KindString, KindBool, KindFloats, KindMatrix:
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidValue, v.Kind)
}

// Parameters holds the full state of a model: hyperparameters and learned
// weights alike.
type Parameters map[string]Value

func (p Parameters) Clone() Parameters {
	clone := make(Parameters, len(p))
	for key, value := range p {
		clone[key] = value.Clone()
	}
	return clone
}

// Merge copies every entry of other into p, overwriting existing keys.
func (p Parameters) Merge(other Parameters) {
	for key, value := range other {
		p[key] = value.Clone()
	}
}

func EncodeParameters(p Parameters) ([]byte, error) {
	if p == nil {
		p = Parameters{}
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return payload, nil
}

func DecodeParameters(payload []byte) (Parameters, error) {
	params := make(Parameters)
	if err := json.Unmarshal(payload, &params); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}
	for key, value := range params {
		if err := value.validate(); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key, err)
		}
	}
	return params, nil
}

func copyMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64{}, row...)
	}
	return out
}
