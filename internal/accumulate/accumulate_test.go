package accumulate

import (
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/internal/httpexec"
)

func TestRecordSuccessIncrementsBoth(t *testing.T) {
	acc := New(false, 0)
	acc.Record("GET /health", httpexec.Result{
		Interaction: &fuzzmodel.RawInteraction{Case: fuzzmodel.RawCase{ID: "1"}},
	})
	assert.Equal(t, 1, acc.Total)
	assert.Equal(t, 1, acc.Success)
	assert.Empty(t, acc.Failures)
}

func TestRecordFailureAppendsAndTripsStop(t *testing.T) {
	acc := New(true, 0)
	acc.Record("POST /orders", httpexec.Result{
		Interaction: &fuzzmodel.RawInteraction{
			Case:     fuzzmodel.RawCase{ID: "1"},
			Failures: []fuzzmodel.RawFailure{{Kind: "ServerError", Severity: "critical"}},
		},
	})
	assert.Equal(t, 1, acc.Total)
	assert.Equal(t, 0, acc.Success)
	assert.Len(t, acc.Failures, 1)
	assert.Len(t, acc.Interactions, 1)
	assert.True(t, acc.Stopped())
}

func TestRecordTransportErrorCountsTotalNotSuccess(t *testing.T) {
	acc := New(false, 0)
	acc.Record("GET /health", httpexec.Result{TransportError: "dial tcp: connection refused"})
	assert.Equal(t, 1, acc.Total)
	assert.Equal(t, 0, acc.Success)
	assert.Len(t, acc.Errors, 1)
	assert.Empty(t, acc.Failures)
}

func TestOperationExhaustedRespectsLimit(t *testing.T) {
	acc := New(false, 2)
	op := "GET /health"
	assert.False(t, acc.OperationExhausted(op))

	acc.Record(op, httpexec.Result{Interaction: &fuzzmodel.RawInteraction{Case: fuzzmodel.RawCase{ID: "1"}}})
	assert.False(t, acc.OperationExhausted(op))

	acc.Record(op, httpexec.Result{Interaction: &fuzzmodel.RawInteraction{Case: fuzzmodel.RawCase{ID: "2"}}})
	assert.True(t, acc.OperationExhausted(op))
}

func TestOperationExhaustedUnlimitedByDefault(t *testing.T) {
	acc := New(false, 0)
	for i := 0; i < 50; i++ {
		acc.Record("GET /health", httpexec.Result{Interaction: &fuzzmodel.RawInteraction{Case: fuzzmodel.RawCase{ID: "x"}}})
	}
	assert.False(t, acc.OperationExhausted("GET /health"))
}

func TestPerOperationCounts(t *testing.T) {
	acc := New(false, 0)
	acc.Record("GET /a", httpexec.Result{Interaction: &fuzzmodel.RawInteraction{Case: fuzzmodel.RawCase{ID: "1"}}})
	acc.Record("GET /a", httpexec.Result{Interaction: &fuzzmodel.RawInteraction{Case: fuzzmodel.RawCase{ID: "2"}}})
	acc.Record("GET /b", httpexec.Result{Interaction: &fuzzmodel.RawInteraction{Case: fuzzmodel.RawCase{ID: "3"}}})

	counts := acc.PerOperationCounts()
	assert.Equal(t, 2, counts["GET /a"])
	assert.Equal(t, 1, counts["GET /b"])
}

func TestStopOnFailureFalseNeverStops(t *testing.T) {
	acc := New(false, 0)
	acc.Record("GET /health", httpexec.Result{
		Interaction: &fuzzmodel.RawInteraction{
			Case:     fuzzmodel.RawCase{ID: "1"},
			Failures: []fuzzmodel.RawFailure{{Kind: "ServerError", Severity: "critical"}},
		},
	})
	assert.False(t, acc.Stopped())
}
