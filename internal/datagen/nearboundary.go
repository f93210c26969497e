package datagen

import (
	"math/rand"
	"strings"

	"github.com/ynishi/apifuzz/spec"
)

// NearBoundary perturbs a Boundaries() value by a small random amount, for
// the neighborhood phase: it picks one boundary value and nudges it,
// landing somewhere between "on the line" and "clearly valid" — exactly
// the region naive range checks miss.
func NearBoundary(schema *spec.Schema, components Components, rng *rand.Rand) interface{} {
	return nearBoundary(schema, components, rng, 0)
}

func nearBoundary(schema *spec.Schema, components Components, rng *rand.Rand, depth int) interface{} {
	if schema == nil || depth > MaxDepth {
		return nil
	}

	if schema.Ref != "" {
		resolved, err := schema.ResolveRef(components)
		if err != nil {
			return nil
		}
		return nearBoundary(resolved, components, rng, depth+1)
	}

	base := boundaries(schema, components, depth)
	if len(base) == 0 {
		return generate(schema, components, rng, depth)
	}

	pick := base[rng.Intn(len(base))]
	return perturb(pick, schema, rng)
}

// perturb nudges a single boundary value by a small amount, per §4.A: "add
// small noise (numbers: ±10 for int, ±10.0 for float; strings: grow/shrink
// length by 0..3; booleans: reroll)", without necessarily staying in-range
// — the point is to land just off the boundary, not to stay valid. String
// perturbation preserves an email schema's "local@domain" shape instead of
// corrupting the domain half.
func perturb(value interface{}, schema *spec.Schema, rng *rand.Rand) interface{} {
	switch v := value.(type) {
	case int64:
		return v + int64(rng.Intn(21)-10)
	case float64:
		return v + (rng.Float64()*20 - 10)
	case string:
		return perturbString(v, schema, rng)
	case []interface{}:
		delta := rng.Intn(3) - 1
		if delta > 0 {
			return append(append([]interface{}{}, v...), nil)
		}
		if delta < 0 && len(v) > 0 {
			return v[:len(v)-1]
		}
		return v
	case bool:
		return rng.Intn(2) == 0
	default:
		return value
	}
}

// perturbString grows or shrinks v's length by 0..3 characters. When
// schema declares the "email" format, the local part (before "@") is what
// grows or shrinks so the result still looks like an email address rather
// than a mangled domain.
func perturbString(v string, schema *spec.Schema, rng *rand.Rand) string {
	delta := rng.Intn(4) // 0, 1, 2, or 3
	if delta == 0 {
		return v
	}
	grow := rng.Intn(2) == 0

	if schema != nil && schema.Format == "email" {
		return perturbEmailLocalPart(v, delta, grow, rng)
	}

	if grow {
		return v + randomAlnum(rng, delta)
	}
	if delta > len(v) {
		delta = len(v)
	}
	return v[:len(v)-delta]
}

func perturbEmailLocalPart(v string, delta int, grow bool, rng *rand.Rand) string {
	at := strings.IndexByte(v, '@')
	if at < 0 {
		if grow {
			return v + randomAlnum(rng, delta)
		}
		if delta > len(v) {
			delta = len(v)
		}
		return v[:len(v)-delta]
	}

	local, domain := v[:at], v[at:]
	if grow {
		return local + randomAlnum(rng, delta) + domain
	}
	if delta >= len(local) {
		return "a" + domain
	}
	return local[:len(local)-delta] + domain
}

// ResolveObjectProperties fills in every required property of an object
// schema with a generated value (each optional property is included with
// probability 0.5), then applies overrides on top — used to build a full
// request body around a single overridden field so the rest of the object
// stays well-formed.
func ResolveObjectProperties(schema *spec.Schema, components Components, rng *rand.Rand, overrides map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	if schema == nil {
		schema = &spec.Schema{}
	}

	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}

	for name, propSchema := range schema.Properties {
		if required[name] || rng.Float64() < 0.5 {
			out[name] = generate(propSchema, components, rng, 0)
		}
	}

	for name, v := range overrides {
		out[name] = v
	}

	return out
}

// IdentifierSafe reports whether s is safe to splice directly into a URL
// path segment without additional escaping — used by the Executor when
// substituting a generated or boundary string value into a path template.
func IdentifierSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-._~!$&'()*+,;=:@", r):
		default:
			return false
		}
	}
	return true
}
