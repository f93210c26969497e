package classify

import (
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/internal/fuzzmodel"
)

func statusP(v int) *int { return &v }

func TestClassifyJoinsInteractionByCaseID(t *testing.T) {
	raws := []fuzzmodel.RawFailure{
		{Kind: "ServerError", Operation: "GET /health", CaseID: "abc", Severity: "critical", StatusCode: statusP(500)},
	}
	interactions := []fuzzmodel.RawInteraction{
		{
			Case:     fuzzmodel.RawCase{ID: "abc", Method: "GET", Path: "/health"},
			Response: fuzzmodel.RawResponse{StatusCode: 500, Elapsed: 0.25},
		},
	}

	out := Classify(raws, interactions)
	assert.Len(t, out, 1)
	assert.Equal(t, "GET", out[0].Method)
	assert.Equal(t, "/health", out[0].Path)
	assert.Equal(t, 500, out[0].StatusCode)
	assert.Equal(t, TypeServerError, out[0].FailureType)
	assert.Equal(t, Critical, out[0].Severity)
	assert.NotNil(t, out[0].Response)
	assert.Equal(t, 250.0, out[0].Response.LatencyMs)
}

func TestClassifyFallsBackWhenInteractionMissing(t *testing.T) {
	raws := []fuzzmodel.RawFailure{
		{Kind: "ServerError", Operation: "GET /health", CaseID: "missing", Severity: "critical"},
	}
	out := Classify(raws, nil)
	assert.Len(t, out, 1)
	assert.Equal(t, "GET", out[0].Method)
	assert.Equal(t, "/health", out[0].Path)
	assert.Nil(t, out[0].Response)
}

func TestSeverityOfUsesRawStringFirst(t *testing.T) {
	assert.Equal(t, Critical, severityOf("critical", TypeUnexpectedError))
	assert.Equal(t, Error, severityOf("high", TypeUnexpectedError))
	assert.Equal(t, Warning, severityOf("medium", TypeUnexpectedError))
	assert.Equal(t, Info, severityOf("low", TypeUnexpectedError))
}

func TestSeverityOfFallsBackToFailureType(t *testing.T) {
	assert.Equal(t, Critical, severityOf("", TypeServerError))
	assert.Equal(t, Error, severityOf("", TypeAuthError))
	assert.Equal(t, Warning, severityOf("", TypeSchemaViolation))
}

func TestStatusBasedTypeMapping(t *testing.T) {
	assert.Equal(t, TypeTimeout, statusBasedType(408))
	assert.Equal(t, TypeTimeout, statusBasedType(504))
	assert.Equal(t, TypeAuthError, statusBasedType(401))
	assert.Equal(t, TypeAuthError, statusBasedType(403))
	assert.Equal(t, TypeRateLimit, statusBasedType(429))
	assert.Equal(t, TypeServerError, statusBasedType(503))
	assert.Equal(t, TypeUnexpectedError, statusBasedType(418))
}

func TestSeverityExitCode(t *testing.T) {
	assert.Equal(t, 2, Critical.ExitCode(true))
	assert.Equal(t, 1, Error.ExitCode(true))
	assert.Equal(t, 1, Warning.ExitCode(true))
	assert.Equal(t, 0, Warning.ExitCode(false))
	assert.Equal(t, 0, Info.ExitCode(true))
}

func TestBuildContextPreservesValidationMessage(t *testing.T) {
	msg := "expected string, got number"
	raw := fuzzmodel.RawFailure{
		Kind:              "BodySatisfyExpectation",
		Title:             "Response body failed schema validation",
		Message:           "mismatch",
		ValidationMessage: &msg,
	}
	ctx := buildContext(raw)
	assert.Equal(t, msg, ctx["validation_message"])
	assert.Equal(t, "BodySatisfyExpectation", ctx["failure_type"])
}
