package datagen

import (
	"math"
	"strings"

	"github.com/ynishi/apifuzz/spec"
)

// Boundaries returns a deterministic set of high-signal values for schema:
// the same list every time, independent of any RNG. Order matters for
// reproducibility, so callers must treat the returned slice as ordered,
// not as a set.
func Boundaries(schema *spec.Schema, components Components) []interface{} {
	return boundaries(schema, components, 0)
}

func boundaries(schema *spec.Schema, components Components, depth int) []interface{} {
	if schema == nil || depth > MaxDepth {
		return nil
	}

	if schema.Ref != "" {
		resolved, err := schema.ResolveRef(components)
		if err != nil {
			return nil
		}
		return boundaries(resolved, components, depth+1)
	}

	if len(schema.Enum) > 0 {
		return enumBoundaries(schema.Enum)
	}

	if len(schema.AnyOf) > 0 {
		return variantBoundaries(schema.AnyOf, components, depth)
	}
	if len(schema.OneOf) > 0 {
		return variantBoundaries(schema.OneOf, components, depth)
	}

	switch schema.Type {
	case spec.TypeInteger:
		return integerBoundaries(schema)
	case spec.TypeNumber:
		return numberBoundaries(schema)
	case spec.TypeString:
		return stringBoundaries(schema)
	case spec.TypeArray:
		return arrayBoundaries(schema)
	case spec.TypeBoolean:
		return []interface{}{true, false}
	case "null":
		return []interface{}{nil}
	default:
		return nil
	}
}

func variantBoundaries(variants []*spec.Schema, components Components, depth int) []interface{} {
	var out []interface{}
	for _, v := range variants {
		if v.Type == "null" {
			continue
		}
		out = append(out, boundaries(v, components, depth+1)...)
	}
	return dedupeValues(out)
}

// integerBoundaries returns the dense off-by-one band around zero, the
// application-level thresholds that tend to trip naive size/flag checks,
// the 32-bit and 64-bit signed/unsigned overflow edges, the JavaScript
// safe-integer edges (cross-language precision loss is one of the most
// common classes this tool exists to catch), and the schema's own declared
// minimum/maximum with their immediate neighbors.
func integerBoundaries(schema *spec.Schema) []interface{} {
	var out []interface{}

	for i := int64(-10); i <= 10; i++ {
		out = append(out, i)
	}

	for _, t := range []int64{100, 255, 256, 1000, 1024, 4096, 10000, 65535, 65536} {
		out = append(out, t)
	}

	out = append(out,
		int64(math.MinInt32), int64(math.MinInt32)-1,
		int64(math.MaxInt32), int64(math.MaxInt32)+1,
		int64(math.MaxUint32), int64(math.MaxUint32)+1,
	)

	out = append(out, int64(math.MinInt64), int64(math.MaxInt64))

	const jsSafeInt = int64(1) << 53
	out = append(out, jsSafeInt-1, jsSafeInt)

	if schema.Minimum != nil {
		min := int64(*schema.Minimum)
		out = append(out, min-1, min, min+1)
	}
	if schema.Maximum != nil {
		max := int64(*schema.Maximum)
		out = append(out, max-1, max, max+1)
	}

	return dedupeSortValues(out)
}

func numberBoundaries(schema *spec.Schema) []interface{} {
	out := []interface{}{
		0.0, math.Copysign(0, -1),
		1.0, -1.0,
		0.1, 0.5, 0.001, 0.005,
		99.99, 99.999,
		math.SmallestNonzeroFloat64,
		1e38, 1e39,
		1e308, -1e308,
	}

	if schema.Minimum != nil {
		min := *schema.Minimum
		out = append(out, min, min-1, min-math.SmallestNonzeroFloat64)
	}
	if schema.Maximum != nil {
		max := *schema.Maximum
		out = append(out, max, max+1, max+math.SmallestNonzeroFloat64)
	}

	return dedupeValues(out)
}

// stringBoundaries targets three bug classes at once: parser coercion
// (values that look numeric/boolean but arrive as a string), injection
// (template syntax, CRLF header splitting, path traversal), and encoding
// edge cases (embedded NUL, BOM, zero-width space, RTL override, the
// Unicode replacement character, a 10 KiB run). minLength/maxLength
// boundaries are appended when the schema declares them.
func stringBoundaries(schema *spec.Schema) []interface{} {
	out := []interface{}{
		"",
		" ",
		" \t\n ",
		"0", "1", "true", "false", "null", "undefined", "NaN", "Infinity", "None",
		"\x00",
		"﻿",
		"​",
		"‮",
		"�",
		"value\r\nX-Injected: true",
		"{{7*7}}", "${7*7}", "#{7*7}",
		"../../../../etc/passwd",
		strings.Repeat("a", capLen(10000)),
		`{"injected":true}`,
	}

	switch schema.Format {
	case "email":
		out = append(out, "not-an-email", "@missing-local.com", "missing-domain@", "double@@at.com")
	case "uri", "url":
		out = append(out, "not a uri", "://missing-scheme", "http://")
	case "date":
		out = append(out, "2024-13-40", "not-a-date", "2024/01/15")
	case "date-time":
		out = append(out, "2024-01-15", "not-a-date-time", "2024-13-40T99:99:99Z")
	case "uuid":
		out = append(out, "not-a-uuid", "00000000-0000-0000-0000-00000000000g")
	}

	if schema.MinLength != nil {
		min := capLen(*schema.MinLength)
		if min > 0 {
			out = append(out, strings.Repeat("a", min-1))
		}
		out = append(out, strings.Repeat("a", min), strings.Repeat("a", min+1))
	}
	if schema.MaxLength != nil {
		max := capLen(*schema.MaxLength)
		if max > 0 {
			out = append(out, strings.Repeat("a", max-1))
		}
		out = append(out, strings.Repeat("a", max), strings.Repeat("a", capLen(max+1)))
	}

	return dedupeValues(out)
}

func arrayBoundaries(schema *spec.Schema) []interface{} {
	out := []interface{}{[]interface{}{}}

	min := 0
	if schema.MinItems != nil {
		min = *schema.MinItems
	}
	max := 3
	if schema.MaxItems != nil {
		max = *schema.MaxItems
	}

	if min > 0 {
		out = append(out, make([]interface{}, min-1))
	}
	out = append(out, make([]interface{}, min), make([]interface{}, max), make([]interface{}, max+1))

	return out
}

// enumBoundaries returns every declared value plus, for the first string
// value found, a set of casing variants and leading/trailing whitespace
// variants, and a deliberately-invalid sentinel — together these catch
// enum validation that's case-sensitive in the wrong direction, trims
// unexpectedly, or accepts values outside the declared set.
func enumBoundaries(values []interface{}) []interface{} {
	out := append([]interface{}{}, values...)

	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, casingVariants(s)...)
			break
		}
	}
	out = append(out, "__INVALID_ENUM_VALUE__")

	return out
}

func casingVariants(s string) []interface{} {
	variants := []string{
		strings.ToUpper(s),
		strings.ToLower(s),
		strings.Title(strings.ToLower(s)),
		" " + s,
		s + " ",
	}
	out := make([]interface{}, 0, len(variants))
	seen := map[string]bool{s: true}
	for _, v := range variants {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func dedupeValues(values []interface{}) []interface{} {
	out := make([]interface{}, 0, len(values))
	seen := map[interface{}]bool{}
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func dedupeSortValues(values []interface{}) []interface{} {
	deduped := dedupeValues(values)
	ints := make([]int64, 0, len(deduped))
	for _, v := range deduped {
		ints = append(ints, v.(int64))
	}
	// Simple insertion sort: these lists are small (a few dozen entries)
	// and this keeps the function dependency-free.
	for i := 1; i < len(ints); i++ {
		v := ints[i]
		j := i - 1
		for j >= 0 && ints[j] > v {
			ints[j+1] = ints[j]
			j--
		}
		ints[j+1] = v
	}
	out := make([]interface{}, len(ints))
	for i, v := range ints {
		out[i] = v
	}
	return out
}

// ObjectPropertyBoundaries returns, for each top-level property of an
// object schema, the list of boundary values for that property alone;
// properties with no boundary values are left out of the map.
func ObjectPropertyBoundaries(schema *spec.Schema, components Components) map[string][]interface{} {
	props := ResolveObjectPropertySchemas(schema, components)
	if len(props) == 0 {
		return nil
	}

	out := map[string][]interface{}{}
	for name, propSchema := range props {
		if b := boundaries(propSchema, components, 0); len(b) > 0 {
			out[name] = b
		}
	}
	return out
}

// ResolveObjectPropertySchemas resolves schema's own $ref (if any) and
// returns its declared properties by name, required or not: the Phase
// Planner's boundary and type-confusion phases cover every top-level body
// property.
func ResolveObjectPropertySchemas(schema *spec.Schema, components Components) map[string]*spec.Schema {
	if schema == nil {
		return nil
	}
	if schema.Ref != "" {
		resolved, err := schema.ResolveRef(components)
		if err != nil {
			return nil
		}
		schema = resolved
	}
	if schema.Type != spec.TypeObject && len(schema.Properties) == 0 {
		return nil
	}
	return schema.Properties
}
