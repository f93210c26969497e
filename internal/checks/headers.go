package checks

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lestrrat/go-jsschema"
	"github.com/lestrrat/go-jsval/builder"

	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/spec"
)

// checkResponseHeaders is Check E2: Content-Type conformance plus declared
// response-header presence and value-schema conformance.
func checkResponseHeaders(in Input, seen SeenSpecGaps) []fuzzmodel.RawFailure {
	var out []fuzzmodel.RawFailure
	out = append(out, checkContentType(in, seen)...)
	out = append(out, checkDeclaredHeaders(in)...)
	return out
}

func checkContentType(in Input, seen SeenSpecGaps) []fuzzmodel.RawFailure {
	declared := in.Operation.ResponseContentTypes[in.StatusCode]

	if len(declared) == 0 {
		if in.StatusCode >= 200 && in.StatusCode < 300 {
			key := gapKey(in.Operation, in.StatusCode, "ct_missing")
			if !seen[key] {
				seen[key] = true
				return []fuzzmodel.RawFailure{{
					Kind:      "HeaderSatisfyExpectation",
					Operation: in.Operation.Label(),
					Title:     "Response content-types are not declared",
					Message:   "the spec declares no content-types for this status code",
					CaseID:    in.CaseID,
					Severity:  "low",
				}}
			}
		}
		return nil
	}

	if in.ContentType == "" {
		return []fuzzmodel.RawFailure{newHeaderFailure(in, "medium",
			"Missing Content-Type header",
			"the response declares content-types but sent no Content-Type header")}
	}

	media := strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0])
	for _, d := range declared {
		if strings.EqualFold(media, d) {
			return nil
		}
	}

	return []fuzzmodel.RawFailure{newHeaderFailure(in, "medium",
		"Content-Type mismatch",
		"the response Content-Type \""+media+"\" matches none of the spec-declared content-types for this status")}
}

func checkDeclaredHeaders(in Input) []fuzzmodel.RawFailure {
	var out []fuzzmodel.RawFailure

	for _, h := range in.Operation.ResponseHeaders[in.StatusCode] {
		raw, present := lookupHeader(in.Headers, h.Name)
		if !present {
			if h.Required {
				out = append(out, newHeaderFailure(in, "medium",
					"Missing required response header",
					"required response header \""+h.Name+"\" is absent"))
			}
			continue
		}

		if h.Schema == nil {
			continue
		}

		coerced, err := coerceHeaderValue(raw, h.Schema.Type)
		if err != nil {
			out = append(out, newHeaderFailure(in, "medium",
				"Response header type mismatch",
				"header \""+h.Name+"\": "+err.Error()))
			continue
		}

		if errs := validateAgainstSchema(h.Schema, coerced); len(errs) > 0 {
			if len(errs) > 3 {
				errs = errs[:3]
			}
			out = append(out, newHeaderFailure(in, "medium",
				"Response header value does not conform to schema",
				"header \""+h.Name+"\": "+strings.Join(errs, "; ")))
		}
	}

	return out
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func coerceHeaderValue(raw, schemaType string) (interface{}, error) {
	switch schemaType {
	case spec.TypeInteger:
		return strconv.ParseInt(raw, 10, 64)
	case spec.TypeNumber:
		return strconv.ParseFloat(raw, 64)
	case spec.TypeBoolean:
		switch raw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, strconvErr(raw, "boolean")
		}
	default:
		return raw, nil
	}
}

func strconvErr(raw, want string) error {
	return &strconvError{raw: raw, want: want}
}

type strconvError struct {
	raw  string
	want string
}

func (e *strconvError) Error() string {
	return "cannot coerce \"" + e.raw + "\" to " + e.want
}

// validateAgainstSchema builds a jsval validator from a response header's
// declared JSON Schema and validates value against it, returning up to a
// handful of human-readable error strings. Schema/builder round-trip
// through encoding/json because spec.Schema and jsschema.Schema share the
// same JSON Schema field names, matching the pattern the teacher's own
// (unexported in this pack) spec.GetValidatorForOpenAPI3Schema follows for
// request validators.
func validateAgainstSchema(sch *spec.Schema, value interface{}) []string {
	raw, err := json.Marshal(sch)
	if err != nil {
		return nil
	}

	var js schema.Schema
	if err := json.Unmarshal(raw, &js); err != nil {
		return nil
	}

	b := builder.New()
	v, err := b.Build(&js)
	if err != nil {
		return nil
	}

	if err := v.Validate(value); err != nil {
		return []string{err.Error()}
	}
	return nil
}

func newHeaderFailure(in Input, severity, title, message string) fuzzmodel.RawFailure {
	status := in.StatusCode
	return fuzzmodel.RawFailure{
		Kind:       "HeaderSatisfyExpectation",
		Operation:  in.Operation.Label(),
		Title:      title,
		Message:    message,
		CaseID:     in.CaseID,
		Severity:   severity,
		StatusCode: &status,
	}
}

func gapKey(op *fuzzmodel.Operation, status int, check string) string {
	return op.Label() + ":" + strconv.Itoa(status) + ":" + check
}
