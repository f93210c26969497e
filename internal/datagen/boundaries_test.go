package datagen

import (
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/spec"
)

func intPtr(f float64) *float64 { return &f }

func TestBoundariesIntegerRange(t *testing.T) {
	min := 0.0
	max := 100.0
	schema := &spec.Schema{Type: spec.TypeInteger, Minimum: &min, Maximum: &max}

	values := Boundaries(schema, nil)

	for _, want := range []int64{-1, 0, 1, 99, 100, 101} {
		assert.Contains(t, values, want)
	}
}

func TestBoundariesIntegerDeterministic(t *testing.T) {
	schema := &spec.Schema{Type: spec.TypeInteger}
	assert.Equal(t, Boundaries(schema, nil), Boundaries(schema, nil))
}

func TestBoundariesStringWithoutFormat(t *testing.T) {
	schema := &spec.Schema{Type: spec.TypeString}
	values := Boundaries(schema, nil)

	assert.Contains(t, values, "")
	assert.Contains(t, values, "\x00")
	assert.Contains(t, values, "value\r\nX-Injected: true")
	assert.Contains(t, values, "{{7*7}}")

	found10k := false
	for _, v := range values {
		if s, ok := v.(string); ok && len(s) == 10000 {
			found10k = true
		}
	}
	assert.True(t, found10k, "expected a 10000-char boundary value")
}

func TestBoundariesEnum(t *testing.T) {
	schema := &spec.Schema{Enum: []interface{}{"active", "inactive"}}
	values := Boundaries(schema, nil)

	assert.Contains(t, values, "active")
	assert.Contains(t, values, "inactive")
	assert.Contains(t, values, "ACTIVE")
	assert.Contains(t, values, "Active")
	assert.Contains(t, values, " active")
	assert.Contains(t, values, "__INVALID_ENUM_VALUE__")
}

func TestBoundariesResolvesRef(t *testing.T) {
	components := Components{
		"Widget": {Type: spec.TypeInteger, Minimum: intPtr(1), Maximum: intPtr(2)},
	}
	schema := &spec.Schema{Ref: "#/components/schemas/Widget"}

	values := Boundaries(schema, components)
	assert.Contains(t, values, int64(1))
	assert.Contains(t, values, int64(2))
}

func TestObjectPropertyBoundaries(t *testing.T) {
	schema := &spec.Schema{
		Type: spec.TypeObject,
		Properties: map[string]*spec.Schema{
			"quantity": {Type: spec.TypeInteger},
		},
		Required: []string{"quantity"},
	}

	out := ObjectPropertyBoundaries(schema, nil)
	assert.NotEmpty(t, out["quantity"])
}
