package datagen

import (
	"math/rand"
	"strings"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/spec"
)

func TestPerturbIntegerStaysWithinTenOfBoundary(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		got := perturb(int64(100), &spec.Schema{Type: spec.TypeInteger}, rng).(int64)
		assert.True(t, got >= 90 && got <= 110, "got %d", got)
	}
}

func TestPerturbFloatStaysWithinTenOfBoundary(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		got := perturb(100.0, &spec.Schema{Type: spec.TypeNumber}, rng).(float64)
		assert.True(t, got >= 90.0 && got <= 110.0, "got %v", got)
	}
}

func TestPerturbStringGrowsOrShrinksByAtMostThree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := "hello"
	for i := 0; i < 50; i++ {
		got := perturb(base, &spec.Schema{Type: spec.TypeString}, rng).(string)
		delta := len(got) - len(base)
		assert.True(t, delta >= -3 && delta <= 3, "got %q (delta %d)", got, delta)
	}
}

func TestPerturbStringPreservesEmailShape(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	schema := &spec.Schema{Type: spec.TypeString, Format: "email"}
	for i := 0; i < 50; i++ {
		got := perturb("user@example.com", schema, rng).(string)
		assert.True(t, strings.HasSuffix(got, "@example.com"), "got %q", got)
		assert.Contains(t, got, "@")
	}
}

func TestPerturbBooleanReroll(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := map[bool]bool{}
	for i := 0; i < 50; i++ {
		got := perturb(true, &spec.Schema{Type: spec.TypeBoolean}, rng).(bool)
		seen[got] = true
	}
	assert.True(t, seen[true] && seen[false])
}
