// Package checks implements the Response Validator: five pure checks run
// in order over one case's (status, body, headers, elapsed) against the
// Operation's declared spec and the case's StatusExpectation. No check
// performs I/O; the only mutable state a caller threads through is the
// SeenSpecGaps dedup set, so a spec-gap warning fires at most once per
// (operation, status, check) for the whole run.
//
// Grounded on the Rust reference implementation's validator module for
// check ordering and severity assignment, and on team-telnyx/telnyx-mock's
// use of lestrrat/go-jsval + lestrrat/go-jsschema (response header value
// validation) and xeipuuv/gojsonschema (response body validation).
package checks

import "github.com/ynishi/apifuzz/internal/fuzzmodel"

// Input bundles everything the five checks need for one interaction.
type Input struct {
	Operation   *fuzzmodel.Operation
	CaseID      string
	Expectation fuzzmodel.StatusExpectation

	StatusCode  int
	ContentType string
	Headers     map[string]string
	Body        *string
	Elapsed     float64

	// ResponseTimeLimit is the configured latency deadline in seconds; 0
	// disables Check H2.
	ResponseTimeLimit float64
}

// SeenSpecGaps is the run-wide dedup set keyed "{operation}:{status}:{check}".
type SeenSpecGaps map[string]bool

// Validate runs all five checks in order (H1, H2, E1, E2, E3) and returns
// every finding they produced, in that order.
func Validate(in Input, seen SeenSpecGaps) []fuzzmodel.RawFailure {
	var out []fuzzmodel.RawFailure

	isServerError := in.StatusCode >= 500 && in.StatusCode < 600

	if f, ok := checkServerError(in); ok {
		out = append(out, f)
	}
	if f, ok := checkResponseTime(in); ok {
		out = append(out, f)
	}

	// Invariant 3 (spec.md §3): a 5xx response yields exactly the one
	// ServerError health finding above; it never also yields a
	// StatusSatisfyExpectation finding, so E1 is skipped entirely.
	if !isServerError {
		if f, ok := checkStatusExpectation(in); ok {
			out = append(out, f)
		}
	}

	out = append(out, checkResponseHeaders(in, seen)...)
	out = append(out, checkResponseBody(in, seen)...)

	return out
}

func checkServerError(in Input) (fuzzmodel.RawFailure, bool) {
	if in.StatusCode < 500 || in.StatusCode >= 600 {
		return fuzzmodel.RawFailure{}, false
	}
	status := in.StatusCode
	return fuzzmodel.RawFailure{
		Kind:       "ServerError",
		Operation:  in.Operation.Label(),
		Title:      "Server error",
		Message:    "the server returned a 5xx status code",
		CaseID:     in.CaseID,
		Severity:   "critical",
		StatusCode: &status,
	}, true
}

func checkResponseTime(in Input) (fuzzmodel.RawFailure, bool) {
	if in.ResponseTimeLimit <= 0 || in.Elapsed <= in.ResponseTimeLimit {
		return fuzzmodel.RawFailure{}, false
	}
	elapsed := in.Elapsed
	deadline := in.ResponseTimeLimit
	return fuzzmodel.RawFailure{
		Kind:      "ResponseTimeExceeded",
		Operation: in.Operation.Label(),
		Title:     "Response time exceeded",
		Message:   "the response took longer than the configured deadline",
		CaseID:    in.CaseID,
		Severity:  "medium",
		Elapsed:   &elapsed,
		Deadline:  &deadline,
	}, true
}
