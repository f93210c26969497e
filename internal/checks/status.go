package checks

import "github.com/ynishi/apifuzz/internal/fuzzmodel"

// checkStatusExpectation is Check E1. Already skipped by the caller for
// 5xx responses (handled by H1 instead, per invariant 3).
func checkStatusExpectation(in Input) (fuzzmodel.RawFailure, bool) {
	status := in.StatusCode
	exp := in.Expectation

	switch exp.Kind {
	case fuzzmodel.SuccessExpected:
		if containsInt(exp.Codes, status) {
			return fuzzmodel.RawFailure{}, false
		}
		if status >= 200 && status < 300 {
			return newStatusFailure(in, "medium", "Unexpected success status",
				"the server returned a declared-undeclared 2xx status for inputs expected to succeed"), true
		}
		return newStatusFailure(in, "high", "Valid input rejected",
			"the server rejected a request built from schema-conforming input"), true

	case fuzzmodel.AnyDeclared:
		if containsInt(exp.Codes, status) {
			return fuzzmodel.RawFailure{}, false
		}
		return newStatusFailure(in, "medium", "Undeclared status code",
			"the server returned a status code the spec does not declare for this operation"), true

	case fuzzmodel.Rejection:
		if status >= 200 && status < 300 {
			return newStatusFailure(in, "medium", "Invalid input accepted",
				"the server accepted a request built from a type-confused value"), true
		}
		return fuzzmodel.RawFailure{}, false

	default:
		panic("checks: unknown StatusExpectationKind")
	}
}

func newStatusFailure(in Input, severity, title, message string) fuzzmodel.RawFailure {
	status := in.StatusCode
	return fuzzmodel.RawFailure{
		Kind:       "StatusSatisfyExpectation",
		Operation:  in.Operation.Label(),
		Title:      title,
		Message:    message,
		CaseID:     in.CaseID,
		Severity:   severity,
		StatusCode: &status,
	}
}

func containsInt(list []int, v int) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}
