package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueFrom(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want domain.Value
	}{
		{"string", "hello", domain.String("hello")},
		{"bool", false, domain.Bool(false)},
		{"int", 7, domain.Int(7)},
		{"integral float", 12.0, domain.Int(12)},
		{"fractional float", 1.25, domain.Double(1.25)},
		{"json integer", json.Number("-3"), domain.Int(-3)},
		{"json fraction", json.Number("2.5"), domain.Double(2.5)},
		{"tagged double", map[string]any{"type": "double", "value": 4}, domain.Double(4)},
		{"tagged long alias", map[string]any{"type": "long", "value": json.Number("9")}, domain.Int(9)},
		{"value passthrough", domain.Bool(true), domain.Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ValueFrom(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueFrom_Unsupported(t *testing.T) {
	for _, in := range []any{
		nil,
		[]any{1, 2},
		map[string]any{"a": 1},
		map[string]any{"type": "integer", "value": "x"},
		map[string]any{"type": "uuid", "value": "x"},
		struct{}{},
	} {
		_, err := domain.ValueFrom(in)
		assert.ErrorIs(t, err, domain.ErrTypeMismatch, "input %#v", in)
	}
}

func TestValue_JSON(t *testing.T) {
	for _, v := range []domain.Value{
		domain.String("x"),
		domain.Bool(true),
		domain.Int(1 << 40),
		domain.Double(0.5),
		domain.Double(2),
	} {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var back domain.Value
		require.NoError(t, json.Unmarshal(data, &back), string(data))
		assert.Equal(t, v, back, string(data))
	}

	data, err := json.Marshal(domain.Int(5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"integer","value":5}`, string(data))

	var v domain.Value
	assert.Error(t, json.Unmarshal([]byte(`{"type":"boolean","value":"yes"}`), &v))
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "true", domain.Bool(true).String())
	assert.Equal(t, "42", domain.Int(42).String())
	assert.Equal(t, "0.1", domain.Double(0.1).String())
	assert.Equal(t, "x", domain.String("x").String())
}

func TestParseValueType(t *testing.T) {
	aliases := map[string]domain.ValueType{
		"":        domain.TypeString,
		"string":  domain.TypeString,
		"bool":    domain.TypeBoolean,
		"boolean": domain.TypeBoolean,
		"long":    domain.TypeInteger,
		"int":     domain.TypeInteger,
		"integer": domain.TypeInteger,
		"float":   domain.TypeDouble,
		"double":  domain.TypeDouble,
	}
	for in, want := range aliases {
		got, err := domain.ParseValueType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := domain.ParseValueType("date")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
