package datagen

import "github.com/ynishi/apifuzz/spec"

// TypeConfusion returns values whose JSON type does not match schema's
// declared type, so the Phase Planner can probe whether an endpoint
// actually validates types or merely coerces them.
func TypeConfusion(schema *spec.Schema, components Components) []interface{} {
	return typeConfusion(schema, components, 0)
}

func typeConfusion(schema *spec.Schema, components Components, depth int) []interface{} {
	if schema == nil || depth > MaxDepth {
		return nil
	}

	if schema.Ref != "" {
		resolved, err := schema.ResolveRef(components)
		if err != nil {
			return nil
		}
		return typeConfusion(resolved, components, depth+1)
	}

	if len(schema.Enum) > 0 {
		// An enum already constrains the value set beyond its JSON type;
		// type-confusion probes would just rediscover "not in the enum",
		// which the boundary phase's sentinel value already covers.
		return nil
	}

	wrongType := []interface{}{
		"a-string",
		int64(42),
		3.14,
		true,
		false,
		nil,
		[]interface{}{1, 2, 3},
		map[string]interface{}{"unexpected": "object"},
	}

	switch schema.Type {
	case spec.TypeString:
		return filterOutType(wrongType, isString)
	case spec.TypeInteger:
		// 3.14 is a deliberate probe here even though it's numeric: it is
		// the wrong numeric subtype for an integer schema (a fractional
		// value), which is exactly the coercion bug this phase targets.
		return filterOutType(wrongType, isInt64)
	case spec.TypeNumber:
		return filterOutType(wrongType, isNumeric)
	case spec.TypeBoolean:
		return filterOutType(wrongType, isBool)
	case spec.TypeArray:
		return filterOutType(wrongType, isArray)
	case spec.TypeObject:
		return filterOutType(wrongType, isObject)
	default:
		return nil
	}
}

func filterOutType(values []interface{}, matches func(interface{}) bool) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		if !matches(v) {
			out = append(out, v)
		}
	}
	return out
}

func isString(v interface{}) bool { _, ok := v.(string); return ok }
func isBool(v interface{}) bool   { _, ok := v.(bool); return ok }
func isArray(v interface{}) bool  { _, ok := v.([]interface{}); return ok }
func isObject(v interface{}) bool { _, ok := v.(map[string]interface{}); return ok }
func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}
func isInt64(v interface{}) bool { _, ok := v.(int64); return ok }
