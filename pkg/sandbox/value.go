package sandbox

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the dynamic type of a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind. No well-formed Value carries it.
	KindInvalid Kind = iota

	// KindNumber is a float64 value.
	KindNumber

	// KindBool is a boolean value.
	KindBool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is the closed set of runtime values: a number or a boolean.
type Value struct {
	kind Kind
	num  float64
	b    bool
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind {
	return v.kind
}

// Float returns the numeric view of v. Booleans are 0 or 1.
func (v Value) Float() float64 {
	if v.kind == KindBool {
		if v.b {
			return 1
		}
		return 0
	}
	return v.num
}

// Truthy reports whether v is considered true.
func (v Value) Truthy() bool {
	if v.kind == KindBool {
		return v.b
	}
	return v.num != 0
}

// Interface returns v as a float64 or bool.
func (v Value) Interface() any {
	if v.kind == KindBool {
		return v.b
	}
	return v.num
}

// String formats v for traces and messages.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return "<invalid>"
	}
}

// FromAny converts a Go value to a Value. Only numeric and boolean inputs
// are accepted.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if t.kind == KindInvalid {
			return Value{}, fmt.Errorf("invalid value")
		}
		return t, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("json number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case nil:
		return Value{}, fmt.Errorf("value is null")
	default:
		return Value{}, fmt.Errorf("value of type %T is neither numeric nor boolean", x)
	}
}

// Bindings maps variable names to values. Values are converted with FromAny
// when referenced, so a bad value only fails expressions that use it.
type Bindings map[string]any
