package datagen

import (
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/spec"
)

func TestTypeConfusionExcludesOwnType(t *testing.T) {
	schema := &spec.Schema{Type: spec.TypeString}
	for _, v := range TypeConfusion(schema, nil) {
		_, isString := v.(string)
		assert.False(t, isString, "string schema should not include a string confusion value")
	}
}

func TestTypeConfusionIntegerIncludesFloat(t *testing.T) {
	schema := &spec.Schema{Type: spec.TypeInteger}
	values := TypeConfusion(schema, nil)

	assert.Contains(t, values, 3.14)
	for _, v := range values {
		_, isInt := v.(int64)
		assert.False(t, isInt, "integer schema should not include an int64 confusion value")
	}
}

func TestTypeConfusionEnumSkipped(t *testing.T) {
	schema := &spec.Schema{Type: spec.TypeString, Enum: []interface{}{"a", "b"}}
	assert.Nil(t, TypeConfusion(schema, nil))
}

func TestTypeConfusionDeterministic(t *testing.T) {
	schema := &spec.Schema{Type: spec.TypeObject}
	assert.Equal(t, TypeConfusion(schema, nil), TypeConfusion(schema, nil))
}
