package fuzzmodel

import (
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestExpectationFromPhaseRandomFallsBackTo200(t *testing.T) {
	op := &Operation{ExpectedStatuses: []int{400, 404}}
	exp := ExpectationFromPhase(op, PhaseRandom)
	assert.Equal(t, SuccessExpected, exp.Kind)
	assert.Equal(t, []int{200}, exp.Codes)
}

func TestExpectationFromPhaseRandomUsesDeclared2xx(t *testing.T) {
	op := &Operation{ExpectedStatuses: []int{201, 400}}
	exp := ExpectationFromPhase(op, PhaseRandom)
	assert.Equal(t, []int{201}, exp.Codes)
}

func TestExpectationFromPhaseBoundaryIsAnyDeclared(t *testing.T) {
	op := &Operation{ExpectedStatuses: []int{200, 404}}
	exp := ExpectationFromPhase(op, PhaseBoundary)
	assert.Equal(t, AnyDeclared, exp.Kind)
	assert.ElementsMatch(t, []int{200, 404}, exp.Codes)
}

func TestExpectationFromPhaseTypeConfusionIsRejection(t *testing.T) {
	op := &Operation{}
	exp := ExpectationFromPhase(op, PhaseTypeConfusion)
	assert.Equal(t, Rejection, exp.Kind)
}

func TestProbeToValuesOrder(t *testing.T) {
	p := Probe{
		Int:    []int64{0, -1, 999999},
		Float:  []float64{1.5},
		String: []string{"x"},
		Bool:   []bool{true},
		Null:   true,
	}
	values := p.ToValues()
	assert.Equal(t, []interface{}{int64(0), int64(-1), int64(999999), 1.5, "x", true, nil}, values)
}

func TestOverridesIsEmpty(t *testing.T) {
	assert.True(t, Overrides{}.IsEmpty())
	assert.False(t, Overrides{Params: map[string]interface{}{"a": 1}}.IsEmpty())
}
