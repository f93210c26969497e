package checks

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/spec"
)

// checkResponseBody is Check E3. MIME-compliance is checked first
// (non-empty declared-JSON bodies must actually parse); only then is the
// body validated against the declared schema, with spec-gap fallbacks for
// an empty or missing schema.
func checkResponseBody(in Input, seen SeenSpecGaps) []fuzzmodel.RawFailure {
	bodyText := ""
	if in.Body != nil {
		bodyText = *in.Body
	}

	isJSONContentType := strings.HasPrefix(strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0]), "application/json")

	var parsed interface{}
	if strings.TrimSpace(bodyText) != "" {
		if isJSONContentType {
			if err := json.Unmarshal([]byte(bodyText), &parsed); err != nil {
				return []fuzzmodel.RawFailure{newBodyFailure(in, "high",
					"Response body is not valid JSON",
					"Content-Type declares application/json but the body did not parse: "+err.Error())}
			}
		} else {
			// Best-effort parse when the Content-Type header doesn't say
			// JSON; a parse failure here isn't itself a finding
			// (checkContentType already covers Content-Type conformance).
			// The parsed value is not used further: validateBodySchema
			// loads bodyText itself.
			_ = json.Unmarshal([]byte(bodyText), &parsed)
		}
	}

	schema := in.Operation.ResponseSchemas[in.StatusCode]
	nonEmptySchema := schema != nil && !isEmptySchema(schema)

	switch {
	case nonEmptySchema && strings.TrimSpace(bodyText) != "":
		return validateBodySchema(in, schema, bodyText)

	case schema != nil && isEmptySchema(schema) && in.StatusCode >= 200 && in.StatusCode < 300:
		key := gapKey(in.Operation, in.StatusCode, "schema_empty")
		if seen[key] {
			return nil
		}
		seen[key] = true
		return []fuzzmodel.RawFailure{{
			Kind:      "BodySatisfyExpectation",
			Operation: in.Operation.Label(),
			Title:     "Response schema is empty",
			Message:   "the spec declares an empty body schema for this status",
			CaseID:    in.CaseID,
			Severity:  "low",
		}}

	case schema == nil && in.StatusCode >= 200 && in.StatusCode < 300 && strings.TrimSpace(bodyText) != "":
		key := gapKey(in.Operation, in.StatusCode, "schema_missing")
		if seen[key] {
			return nil
		}
		seen[key] = true
		return []fuzzmodel.RawFailure{{
			Kind:      "BodySatisfyExpectation",
			Operation: in.Operation.Label(),
			Title:     "Response schema is not declared",
			Message:   "the spec declares no body schema for this status",
			CaseID:    in.CaseID,
			Severity:  "low",
		}}
	}

	return nil
}

func isEmptySchema(s *spec.Schema) bool {
	return s.Type == "" && len(s.Properties) == 0 && len(s.Enum) == 0 &&
		len(s.AllOf) == 0 && len(s.AnyOf) == 0 && len(s.OneOf) == 0 && s.Ref == ""
}

func validateBodySchema(in Input, schema *spec.Schema, bodyText string) []fuzzmodel.RawFailure {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader([]byte(bodyText))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		// An error here means the already-resolved schema isn't valid
		// JSON Schema, or the body text isn't JSON at all; treat as a
		// schema violation rather than panicking mid-run.
		return []fuzzmodel.RawFailure{newBodyFailure(in, "medium",
			"Response body failed schema validation",
			"schema could not be evaluated: "+err.Error())}
	}
	if result.Valid() {
		return nil
	}

	resultErrors := result.Errors()
	limit := len(resultErrors)
	if limit > 5 {
		limit = 5
	}
	messages := make([]string, 0, limit)
	for _, e := range resultErrors[:limit] {
		messages = append(messages, e.String())
	}
	joined := strings.Join(messages, "; ")

	f := newBodyFailure(in, "medium", "Response body failed schema validation", joined)
	f.ValidationMessage = &joined
	return []fuzzmodel.RawFailure{f}
}

func newBodyFailure(in Input, severity, title, message string) fuzzmodel.RawFailure {
	status := in.StatusCode
	return fuzzmodel.RawFailure{
		Kind:       "BodySatisfyExpectation",
		Operation:  in.Operation.Label(),
		Title:      title,
		Message:    message,
		CaseID:     in.CaseID,
		Severity:   severity,
		StatusCode: &status,
	}
}
