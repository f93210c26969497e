// Package classify implements the Failure Classifier: it converts each
// RawFailure, joined back to its Interaction by case id, into a
// severity-tagged Failure with request/response snapshots suitable for a
// triaged report.
package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ynishi/apifuzz/internal/fuzzmodel"
)

// FailureType classifies the nature of a Failure for grouping/reporting.
type FailureType string

const (
	TypeServerError             FailureType = "ServerError"
	TypeCrash                   FailureType = "Crash"
	TypeTimeout                 FailureType = "Timeout"
	TypeSchemaViolation         FailureType = "SchemaViolation"
	TypeAuthError               FailureType = "AuthError"
	TypeRateLimit               FailureType = "RateLimit"
	TypeStatusCodeConformance   FailureType = "StatusCodeConformance"
	TypeNegativeTestAccepted    FailureType = "NegativeTestAccepted"
	TypeContentTypeMismatch     FailureType = "ContentTypeMismatch"
	TypeUnexpectedError         FailureType = "UnexpectedError"
)

// Severity is totally ordered: Info < Warning < Error < Critical.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ExitCode maps this severity to an exit code; strict governs whether
// Warning contributes 1 (strict) or 0 (lenient).
func (s Severity) ExitCode(strict bool) int {
	switch s {
	case Critical:
		return 2
	case Error:
		return 1
	case Warning:
		if strict {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// RequestSnapshot captures what was sent, reconstructed from the case.
type RequestSnapshot struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// ResponseSnapshot captures what came back.
type ResponseSnapshot struct {
	StatusCode int
	LatencyMs  float64
	Body       string
}

// Failure is one classified finding, ready for the Verdict Policy and for
// a human-readable report.
type Failure struct {
	ID          string
	Method      string
	Path        string
	StatusCode  int
	FailureType FailureType
	Severity    Severity

	Request  RequestSnapshot
	Response *ResponseSnapshot

	Context map[string]string
}

// Classify converts every RawFailure in raws into a Failure, looking up
// its Interaction by case id. A RawFailure whose case id has no matching
// Interaction (shouldn't happen per invariant 2, but defended against)
// falls back to a synthesized snapshot built from its operation label.
func Classify(raws []fuzzmodel.RawFailure, interactions []fuzzmodel.RawInteraction) []Failure {
	byCaseID := make(map[string]*fuzzmodel.RawInteraction, len(interactions))
	for i := range interactions {
		byCaseID[interactions[i].Case.ID] = &interactions[i]
	}

	out := make([]Failure, 0, len(raws))
	for _, raw := range raws {
		out = append(out, classifyOne(raw, byCaseID[raw.CaseID]))
	}
	return out
}

func classifyOne(raw fuzzmodel.RawFailure, interaction *fuzzmodel.RawInteraction) Failure {
	method, path := splitOperationLabel(raw.Operation)

	status := 0
	if raw.StatusCode != nil {
		status = *raw.StatusCode
	}

	ftype := failureType(raw.Kind, status)
	severity := severityOf(raw.Severity, ftype)

	f := Failure{
		ID:          raw.CaseID,
		Method:      method,
		Path:        path,
		StatusCode:  status,
		FailureType: ftype,
		Severity:    severity,
		Context:     buildContext(raw),
	}

	if interaction != nil {
		f.Method = interaction.Case.Method
		f.Path = interaction.Case.Path
		f.StatusCode = interaction.Response.StatusCode
		f.Request = RequestSnapshot{
			Method:  interaction.Case.Method,
			URL:     reconstructURL(interaction.Case),
			Headers: interaction.Case.Headers,
			Body:    stringifyBody(interaction.Case.Body),
		}
		body := ""
		if interaction.Response.Body != nil {
			body = *interaction.Response.Body
		}
		f.Response = &ResponseSnapshot{
			StatusCode: interaction.Response.StatusCode,
			LatencyMs:  latencyMs(interaction.Response.Elapsed),
			Body:       body,
		}
	} else {
		f.Request = RequestSnapshot{Method: method, URL: path}
	}

	return f
}

func splitOperationLabel(label string) (method, path string) {
	parts := strings.SplitN(label, " ", 2)
	if len(parts) != 2 {
		return label, ""
	}
	return parts[0], parts[1]
}

// failureType maps a RawFailure's check kind to a FailureType, falling
// back to the observed status code for StatusSatisfyExpectation and for
// any kind not listed here.
func failureType(kind string, status int) FailureType {
	switch kind {
	case "ServerError":
		return TypeServerError
	case "ResponseTimeExceeded":
		return TypeTimeout
	case "SchemaViolation", "MalformedJson", "BodySatisfyExpectation", "HeaderSatisfyExpectation":
		return TypeSchemaViolation
	case "StatusCodeConformance":
		return TypeStatusCodeConformance
	case "NegativeTestAccepted":
		return TypeNegativeTestAccepted
	case "ContentTypeMismatch":
		return TypeContentTypeMismatch
	case "StatusSatisfyExpectation":
		return statusBasedType(status)
	default:
		return statusBasedType(status)
	}
}

func statusBasedType(status int) FailureType {
	switch status {
	case 408, 504:
		return TypeTimeout
	case 401, 403:
		return TypeAuthError
	case 429:
		return TypeRateLimit
	}
	if status >= 500 && status < 600 {
		return TypeServerError
	}
	return TypeUnexpectedError
}

// severityOf maps the validator's severity string to a Severity, falling
// back to the FailureType's default when the string is unrecognized.
func severityOf(raw string, ftype FailureType) Severity {
	switch raw {
	case "critical":
		return Critical
	case "high":
		return Error
	case "medium":
		return Warning
	case "low":
		return Info
	}
	switch ftype {
	case TypeServerError, TypeCrash, TypeTimeout:
		return Critical
	case TypeAuthError, TypeUnexpectedError:
		return Error
	default:
		return Warning
	}
}

func buildContext(raw fuzzmodel.RawFailure) map[string]string {
	ctx := map[string]string{
		"failure_type": raw.Kind,
		"title":        raw.Title,
		"message":      raw.Message,
	}
	if raw.Elapsed != nil {
		ctx["elapsed_s"] = strconv.FormatFloat(*raw.Elapsed, 'f', 3, 64)
	}
	if raw.Deadline != nil {
		ctx["deadline_s"] = strconv.FormatFloat(*raw.Deadline, 'f', 3, 64)
	}
	if raw.ValidationMessage != nil {
		ctx["validation_message"] = *raw.ValidationMessage
	}
	return ctx
}

func reconstructURL(c fuzzmodel.RawCase) string {
	path := c.Path
	for name, v := range c.PathParameters {
		path = strings.ReplaceAll(path, "{"+name+"}", fmt.Sprintf("%v", v))
	}
	return path
}

func stringifyBody(body interface{}) string {
	if body == nil {
		return ""
	}
	if s, ok := body.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", body)
}

func latencyMs(elapsedSeconds float64) float64 {
	ms := elapsedSeconds * 1000
	if ms < 0 {
		return 0
	}
	return ms
}
