package spec

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/lestrrat/go-jsref"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// MaxRefDepth bounds the dereference pre-pass. Its depth counter grows by
// one for every level of nesting walked as well as for every `$ref`
// followed; a node reached past the cap is left as-is, with any `$ref`
// inside it unresolved.
const MaxRefDepth = 20

// ParseError wraps a failure to parse an OpenAPI document as JSON or YAML.
type ParseError struct {
	cause error
}

func (e *ParseError) Error() string { return "invalid OpenAPI document: " + e.cause.Error() }
func (e *ParseError) Unwrap() error { return e.cause }

// Parse decodes an OpenAPI 3.x document from raw bytes into a Spec.
//
// Detection strategy mirrors the rest of the pack: sniff by file extension
// first (".yaml"/".yml"forces YAML), then fall back to a leading-character
// heuristic (a `{` means JSON, anything else is tried as YAML).
func Parse(path string, content []byte) (*Spec, error) {
	ext := strings.ToLower(filepath.Ext(path))

	raw, err := decodeDocument(ext, content)
	if err != nil {
		return nil, &ParseError{cause: err}
	}

	raw, err = dereference(raw)
	if err != nil {
		return nil, &ParseError{cause: errors.Wrap(err, "resolving $ref")}
	}

	reencoded, err := json.Marshal(raw)
	if err != nil {
		return nil, &ParseError{cause: err}
	}

	var s Spec
	if err := json.Unmarshal(reencoded, &s); err != nil {
		return nil, &ParseError{cause: err}
	}

	s.Flatten()

	return &s, nil
}

func decodeDocument(ext string, content []byte) (interface{}, error) {
	switch ext {
	case ".yaml", ".yml":
		return decodeYAML(content)
	case ".json":
		return decodeJSON(content)
	default:
		trimmed := strings.TrimSpace(string(content))
		if strings.HasPrefix(trimmed, "{") {
			return decodeJSON(content)
		}
		return decodeYAML(content)
	}
}

func decodeJSON(content []byte) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, errors.Wrap(err, "invalid JSON")
	}
	return v, nil
}

func decodeYAML(content []byte) (interface{}, error) {
	var v interface{}
	if err := yaml.Unmarshal(content, &v); err != nil {
		return nil, errors.Wrap(err, "invalid YAML")
	}
	return normalizeYAML(v), nil
}

// normalizeYAML converts the map[interface{}]interface{} that gopkg.in/yaml.v2
// produces into map[string]interface{}, recursively, so the document can be
// round-tripped through encoding/json the same way a JSON document would be.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[toString(k)] = normalizeYAML(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(jsonStringOf(v))
}

func jsonStringOf(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// dereference walks the decoded document and resolves every local ("#/...")
// `$ref` pointer it finds, depth-capped at MaxRefDepth. This is a generic
// pre-pass over the raw document using lestrrat/go-jsref's resolver, which
// reaches `$ref`s nested inside `items`, inside nested `properties`, and so
// on, that the teacher's original one-level, string-split `ResolveRef`
// methods on Schema/Response do not reach on their own. Those methods are
// kept as a second line of defense for a reference this pre-pass leaves
// unresolved (such as the remaining link of a cycle); they only look names
// up under #/components/schemas/ and #/components/responses/.
func dereference(doc interface{}) (interface{}, error) {
	resolver := jsref.New()
	return dereferenceAt(resolver, doc, doc, 0)
}

func dereferenceAt(resolver *jsref.Resolver, root, node interface{}, depth int) (interface{}, error) {
	if depth > MaxRefDepth {
		return node, nil
	}

	switch t := node.(type) {
	case map[string]interface{}:
		if refVal, ok := t["$ref"]; ok {
			if refStr, ok := refVal.(string); ok && strings.HasPrefix(refStr, "#/") {
				resolved, err := resolver.Resolve(root, refStr)
				if err != nil {
					// Leave the $ref as-is; Schema/Response.ResolveRef
					// remain as a fallback at decode time.
					return node, nil
				}
				return dereferenceAt(resolver, root, resolved, depth+1)
			}
		}
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			resolvedChild, err := dereferenceAt(resolver, root, v, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = resolvedChild
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, v := range t {
			resolvedChild, err := dereferenceAt(resolver, root, v, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = resolvedChild
		}
		return out, nil
	default:
		return node, nil
	}
}
