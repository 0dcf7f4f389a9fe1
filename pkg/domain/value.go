package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueType is the tag of a Value.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeBoolean ValueType = "boolean"
	TypeInteger ValueType = "integer"
	TypeDouble  ValueType = "double"
)

// ParseValueType accepts the canonical tags plus the names used by the
// container getters ("bool", "long", "int", "float").
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "string", "":
		return TypeString, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "integer", "int", "long":
		return TypeInteger, nil
	case "double", "float", "number":
		return TypeDouble, nil
	}
	return "", InvalidArgument("unsupported value type %q", s)
}

// Value is a tagged union over string, boolean, integer and double.
type Value struct {
	Type ValueType
	Str  string
	Bool bool
	Int  int64
	Dbl  float64
}

func String(s string) Value  { return Value{Type: TypeString, Str: s} }
func Bool(b bool) Value      { return Value{Type: TypeBoolean, Bool: b} }
func Int(i int64) Value      { return Value{Type: TypeInteger, Int: i} }
func Double(f float64) Value { return Value{Type: TypeDouble, Dbl: f} }

// Interface returns the underlying Go value.
func (v Value) Interface() any {
	switch v.Type {
	case TypeString:
		return v.Str
	case TypeBoolean:
		return v.Bool
	case TypeInteger:
		return v.Int
	case TypeDouble:
		return v.Dbl
	}
	return nil
}

// String renders the value the way the SDK expects configuration values.
func (v Value) String() string {
	switch v.Type {
	case TypeString:
		return v.Str
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeDouble:
		return strconv.FormatFloat(v.Dbl, 'f', -1, 64)
	}
	return ""
}

type wireValue struct {
	Type  ValueType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON emits the self-describing form {"type": ..., "value": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: v.Type, Value: raw})
}

// UnmarshalJSON accepts the self-describing form only.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(w.Value))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	out, err := coerce(w.Type, raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// ValueFrom converts an argument decoded from JSON into a Value.
// It accepts Go scalars, json.Number, Value itself and the self-describing
// map form. Anything else is a TypeMismatch.
func ValueFrom(arg any) (Value, error) {
	switch x := arg.(type) {
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return numberValue(float64(x)), nil
	case float64:
		return numberValue(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, TypeMismatch("malformed number %q", x.String())
		}
		return Double(f), nil
	case map[string]any:
		t, ok := x["type"].(string)
		raw, hasValue := x["value"]
		if !ok || !hasValue || len(x) != 2 {
			return Value{}, TypeMismatch("unsupported value: object")
		}
		vt, err := ParseValueType(t)
		if err != nil {
			return Value{}, TypeMismatch("unsupported value type %q", t)
		}
		return coerce(vt, raw)
	case nil:
		return Value{}, TypeMismatch("unsupported value: null")
	}
	return Value{}, TypeMismatch("unsupported value of type %T", arg)
}

func numberValue(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Double(f)
}

// coerce builds a Value of type t from a decoded JSON value.
func coerce(t ValueType, raw any) (Value, error) {
	switch t {
	case TypeString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
	case TypeBoolean:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
	case TypeInteger:
		v, err := ValueFrom(raw)
		if err == nil && v.Type == TypeInteger {
			return v, nil
		}
	case TypeDouble:
		v, err := ValueFrom(raw)
		if err == nil {
			switch v.Type {
			case TypeDouble:
				return v, nil
			case TypeInteger:
				return Double(float64(v.Int)), nil
			}
		}
	default:
		return Value{}, TypeMismatch("unsupported value type %q", t)
	}
	return Value{}, TypeMismatch("value %v is not a %s", raw, t)
}
