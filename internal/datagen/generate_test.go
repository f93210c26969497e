package datagen

import (
	"math/rand"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/spec"
)

func TestGenerateObjectIncludesRequired(t *testing.T) {
	schema := &spec.Schema{
		Type: spec.TypeObject,
		Properties: map[string]*spec.Schema{
			"id":   {Type: spec.TypeString},
			"name": {Type: spec.TypeString},
		},
		Required: []string{"id"},
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		v := Generate(schema, nil, rng)
		obj, ok := v.(map[string]interface{})
		assert.True(t, ok)
		assert.Contains(t, obj, "id")
	}
}

func TestGenerateEnumSamplesDeclaredValues(t *testing.T) {
	schema := &spec.Schema{Enum: []interface{}{"a", "b", "c"}}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		v := Generate(schema, nil, rng)
		assert.Contains(t, []interface{}{"a", "b", "c"}, v)
	}
}

func TestGenerateArrayRespectsLengthBounds(t *testing.T) {
	minItems := 2
	maxItems := 2
	schema := &spec.Schema{
		Type:     spec.TypeArray,
		Items:    &spec.Schema{Type: spec.TypeString},
		MinItems: &minItems,
		MaxItems: &maxItems,
	}
	rng := rand.New(rand.NewSource(1))
	v := Generate(schema, nil, rng).([]interface{})
	assert.Len(t, v, 2)
}

func TestNearBoundaryFallsBackToGenerate(t *testing.T) {
	// An object schema has no boundary values, so NearBoundary generates
	// one instead.
	schema := &spec.Schema{
		Type:       spec.TypeObject,
		Properties: map[string]*spec.Schema{"id": {Type: spec.TypeString}},
		Required:   []string{"id"},
	}
	rng := rand.New(rand.NewSource(1))
	v := NearBoundary(schema, nil, rng)
	obj, ok := v.(map[string]interface{})
	assert.True(t, ok)
	assert.Contains(t, obj, "id")
}
