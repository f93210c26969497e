package verdict

import (
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/internal/classify"
)

func TestDecidePassWhenAllSucceed(t *testing.T) {
	v := Decide(nil, 100, 100, 0, DefaultPolicy())
	assert.Equal(t, Pass, v.Status)
	assert.Equal(t, 0, v.ExitCode)
}

func TestDecideCriticalFailureExitCode2(t *testing.T) {
	failures := []classify.Failure{{Severity: classify.Critical, FailureType: classify.TypeServerError}}
	v := Decide(failures, 10, 9, 0, DefaultPolicy())
	assert.Equal(t, Fail, v.Status)
	assert.Equal(t, 2, v.ExitCode)
}

func TestDecideWarningStrictVsLenient(t *testing.T) {
	failures := []classify.Failure{{Severity: classify.Warning, FailureType: classify.TypeSchemaViolation}}

	strict := DefaultPolicy()
	strict.Strict = true
	v := Decide(failures, 10, 9, 0, strict)
	assert.Equal(t, 1, v.ExitCode)

	lenient := DefaultPolicy()
	lenient.Strict = false
	v = Decide(failures, 10, 9, 0, lenient)
	assert.Equal(t, 0, v.ExitCode)
}

func TestDecideTransportErrorsGiveExitCode3WhenNoFailures(t *testing.T) {
	v := Decide(nil, 10, 0, 10, DefaultPolicy())
	assert.Equal(t, 3, v.ExitCode)
	assert.Equal(t, Fail, v.Status)
}

func TestDecideNoRequestsIsFail(t *testing.T) {
	v := Decide(nil, 0, 0, 0, DefaultPolicy())
	assert.Equal(t, Fail, v.Status)
	assert.Equal(t, 0, v.ExitCode)
	assert.Equal(t, "No requests were made", v.Reason)
}

func TestFilterDropsBelowMinSeverity(t *testing.T) {
	failures := []classify.Failure{
		{Severity: classify.Info},
		{Severity: classify.Critical},
	}
	policy := Policy{MinSeverity: classify.Warning}
	kept := filter(failures, policy)
	assert.Len(t, kept, 1)
	assert.Equal(t, classify.Critical, kept[0].Severity)
}

func TestFilterDropsIgnoredStatusAndType(t *testing.T) {
	failures := []classify.Failure{
		{Severity: classify.Error, StatusCode: 429, FailureType: classify.TypeRateLimit},
		{Severity: classify.Error, StatusCode: 500, FailureType: classify.TypeServerError},
	}
	policy := Policy{IgnoreStatusCodes: []int{429}}
	kept := filter(failures, policy)
	assert.Len(t, kept, 1)
	assert.Equal(t, 500, kept[0].StatusCode)

	policy2 := Policy{IgnoreFailureTypes: []string{string(classify.TypeServerError)}}
	kept2 := filter(failures, policy2)
	assert.Len(t, kept2, 1)
	assert.Equal(t, 429, kept2[0].StatusCode)
}

func TestDecidePriorityFailureOverTransportError(t *testing.T) {
	failures := []classify.Failure{{Severity: classify.Critical, FailureType: classify.TypeServerError}}
	v := Decide(failures, 10, 5, 3, DefaultPolicy())
	assert.Equal(t, 2, v.ExitCode)
}
