// Package verdict implements the Verdict Policy: it filters classified
// Failures by ignore-lists and a minimum severity, reduces what survives
// to an exit code, and renders the three-state verdict (pass / fail-checks
// / tool-error) spec.md §4.H describes.
package verdict

import (
	"fmt"
	"strings"

	"github.com/ynishi/apifuzz/internal/classify"
)

// Status is the coarse pass/fail outcome of a run.
type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
)

// Verdict is the final, reportable outcome of a run.
type Verdict struct {
	Status   Status
	ExitCode int
	Reason   string
}

// Policy configures how failures are filtered and how exit codes are
// derived from what survives. Defaults, per spec.md §4.H: Strict=true,
// MinSeverity=Warning.
type Policy struct {
	Strict             bool
	IgnoreStatusCodes  []int
	IgnoreFailureTypes []string
	MinSeverity        classify.Severity
}

// DefaultPolicy returns the spec-mandated default: strict mode, no
// ignore-lists, minimum severity Warning.
func DefaultPolicy() Policy {
	return Policy{Strict: true, MinSeverity: classify.Warning}
}

// Decide filters failures per policy, then reduces what's kept plus the
// run's total/success/error counts to a Verdict.
func Decide(failures []classify.Failure, total, success, errorCount int, policy Policy) Verdict {
	kept := filter(failures, policy)

	failureCode := 0
	for _, f := range kept {
		if c := f.Severity.ExitCode(policy.Strict); c > failureCode {
			failureCode = c
		}
	}

	status := Pass
	if !(total > 0 && success == total) {
		status = Fail
	}

	var exitCode int
	var reason string

	switch {
	case failureCode > 0:
		exitCode = failureCode
		reason = composeFailureReason(kept, errorCount)
	case errorCount > 0:
		exitCode = 3
		reason = fmt.Sprintf("%d errors (connection/transport)", errorCount)
	case total == 0:
		exitCode = 0
		status = Fail
		reason = "No requests were made"
	default:
		exitCode = 0
		reason = "All requests passed"
	}

	return Verdict{Status: status, ExitCode: exitCode, Reason: reason}
}

func filter(failures []classify.Failure, policy Policy) []classify.Failure {
	ignoreStatus := make(map[int]bool, len(policy.IgnoreStatusCodes))
	for _, c := range policy.IgnoreStatusCodes {
		ignoreStatus[c] = true
	}
	ignoreType := make(map[string]bool, len(policy.IgnoreFailureTypes))
	for _, t := range policy.IgnoreFailureTypes {
		ignoreType[t] = true
	}

	out := make([]classify.Failure, 0, len(failures))
	for _, f := range failures {
		if ignoreStatus[f.StatusCode] {
			continue
		}
		if ignoreType[string(f.FailureType)] {
			continue
		}
		if f.Severity < policy.MinSeverity {
			continue
		}
		out = append(out, f)
	}
	return out
}

func composeFailureReason(kept []classify.Failure, errorCount int) string {
	var critical, errorCt, warning int
	for _, f := range kept {
		switch f.Severity {
		case classify.Critical:
			critical++
		case classify.Error:
			errorCt++
		case classify.Warning:
			warning++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d failures (%d critical, %d error, %d warning)", len(kept), critical, errorCt, warning)
	if errorCount > 0 {
		fmt.Fprintf(&b, "; %d errors (connection/transport)", errorCount)
	}
	return b.String()
}
