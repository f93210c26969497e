// Package datagen maps a JSON Schema fragment to concrete request values:
// one random conforming value, a deterministic set of boundary values, a
// set of type-confusion values, and a near-boundary perturbation. It is
// pure — no I/O, no mutation of the schema it's given.
//
// Grounded on team-telnyx/telnyx-mock's generator.go for the general shape
// of a schema-walking Go generator (recursive descent, panics only for
// states the schema format guarantees cannot happen), and on the Rust
// reference implementation's datagen.rs for the exact algorithms and the
// specific boundary-value catalogs below.
package datagen

import (
	"math"
	"math/rand"
	"strings"

	"github.com/ynishi/apifuzz/spec"
)

// MaxDepth bounds schema recursion so a cyclic $ref graph can't blow the
// stack.
const MaxDepth = 20

// MaxStringLen caps generated/boundary string length so a pathological
// maxLength in the spec can't exhaust memory.
const MaxStringLen = 10_000

// Components is the components.schemas map used to resolve a $ref that
// survives the Spec Extractor's up-front dereference pass (such as the
// remaining link of a cycle). Only #/components/schemas/ references are
// resolved from it.
type Components = map[string]*spec.Schema

// Generate returns one random value conforming to schema.
func Generate(schema *spec.Schema, components Components, rng *rand.Rand) interface{} {
	return generate(schema, components, rng, 0)
}

func generate(schema *spec.Schema, components Components, rng *rand.Rand, depth int) interface{} {
	if schema == nil || depth > MaxDepth {
		return nil
	}

	if schema.Ref != "" {
		resolved, err := schema.ResolveRef(components)
		if err != nil {
			return nil
		}
		return generate(resolved, components, rng, depth+1)
	}

	if len(schema.Enum) > 0 {
		return schema.Enum[rng.Intn(len(schema.Enum))]
	}

	if len(schema.AnyOf) > 0 {
		return generateVariant(schema.AnyOf, components, rng, depth)
	}
	if len(schema.OneOf) > 0 {
		return generateVariant(schema.OneOf, components, rng, depth)
	}

	if len(schema.AllOf) > 0 {
		merged := map[string]interface{}{}
		for _, sub := range schema.AllOf {
			if obj, ok := generate(sub, components, rng, depth+1).(map[string]interface{}); ok {
				for k, v := range obj {
					merged[k] = v
				}
			}
		}
		return merged
	}

	switch schema.Type {
	case spec.TypeString:
		return genString(schema, rng)
	case spec.TypeInteger:
		return genInteger(schema, rng)
	case spec.TypeNumber:
		return genNumber(schema, rng)
	case spec.TypeBoolean:
		return rng.Intn(2) == 0
	case spec.TypeArray:
		return genArray(schema, components, rng, depth+1)
	case spec.TypeObject:
		return genObject(schema, components, rng, depth+1)
	case "null":
		return nil
	default:
		if len(schema.Properties) > 0 {
			return genObject(schema, components, rng, depth+1)
		}
		if schema.Items != nil {
			return genArray(schema, components, rng, depth+1)
		}
		return randomAlnum(rng, 8)
	}
}

func generateVariant(variants []*spec.Schema, components Components, rng *rand.Rand, depth int) interface{} {
	nonNull := make([]*spec.Schema, 0, len(variants))
	for _, v := range variants {
		if v.Type != "null" {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) == 0 {
		return nil
	}
	return generate(nonNull[rng.Intn(len(nonNull))], components, rng, depth+1)
}

func genString(schema *spec.Schema, rng *rand.Rand) interface{} {
	switch schema.Format {
	case "email":
		return "user" + itoa(rng.Intn(9999)+1) + "@example.com"
	case "uri", "url":
		return "https://example.com"
	case "date":
		return "2024-01-15"
	case "date-time":
		return "2024-01-15T12:00:00Z"
	case "uuid":
		return randomUUID(rng)
	default:
		min := 1
		if schema.MinLength != nil {
			min = capLen(*schema.MinLength)
		}
		max := 20
		if schema.MaxLength != nil {
			max = capLen(*schema.MaxLength)
		}
		if max < min {
			max = min
		}
		length := min + rng.Intn(max-min+1)
		return randomAlnum(rng, length)
	}
}

func genInteger(schema *spec.Schema, rng *rand.Rand) interface{} {
	hasMin := schema.Minimum != nil
	hasMax := schema.Maximum != nil
	min := int64(-1000)
	max := int64(1000)
	if hasMin {
		min = int64(*schema.Minimum)
	}
	if hasMax {
		max = int64(*schema.Maximum)
	}

	// 20% chance: inject a small edge value, same ratio as the reference
	// generator, because uniform random alone almost never lands exactly
	// on an off-by-one boundary within a reasonable case budget.
	if rng.Float64() < 0.2 {
		edges := []int64{0, -1, 1, math.MinInt64, math.MaxInt64}
		if hasMin && hasMax {
			edges = []int64{min, max}
			if min <= 0 && 0 <= max {
				edges = append(edges, 0)
			}
		}
		return edges[rng.Intn(len(edges))]
	}

	if max < min {
		max = min
	}
	span := max - min
	if span < 0 {
		return min
	}
	return min + int64(rng.Int63n(span+1))
}

func genNumber(schema *spec.Schema, rng *rand.Rand) interface{} {
	min := 0.0
	max := 1000.0
	if schema.Minimum != nil {
		min = *schema.Minimum
	}
	if schema.Maximum != nil {
		max = *schema.Maximum
	}
	if max < min {
		max = min
	}
	return min + rng.Float64()*(max-min)
}

func genArray(schema *spec.Schema, components Components, rng *rand.Rand, depth int) interface{} {
	min := 0
	if schema.MinItems != nil {
		min = *schema.MinItems
	}
	max := 3
	if schema.MaxItems != nil {
		max = *schema.MaxItems
	}
	if max < min {
		max = min
	}
	count := min + rng.Intn(max-min+1)

	itemSchema := schema.Items
	if itemSchema == nil {
		itemSchema = &spec.Schema{Type: spec.TypeString}
	}

	out := make([]interface{}, count)
	for i := range out {
		out[i] = generate(itemSchema, components, rng, depth)
	}
	return out
}

func genObject(schema *spec.Schema, components Components, rng *rand.Rand, depth int) interface{} {
	out := map[string]interface{}{}
	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}

	for key, propSchema := range schema.Properties {
		if required[key] || rng.Float64() < 0.5 {
			out[key] = generate(propSchema, components, rng, depth)
		}
	}
	return out
}

func capLen(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxStringLen {
		return MaxStringLen
	}
	return n
}

func randomAlnum(rng *rand.Rand, length int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(chars[rng.Intn(len(chars))])
	}
	return b.String()
}

func randomUUID(rng *rand.Rand) string {
	var b [16]byte
	rng.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return hexJoin(b)
}

func hexJoin(b [16]byte) string {
	const hexdigits = "0123456789abcdef"
	var out strings.Builder
	out.Grow(36)
	writeHex := func(bs []byte) {
		for _, v := range bs {
			out.WriteByte(hexdigits[v>>4])
			out.WriteByte(hexdigits[v&0xf])
		}
	}
	writeHex(b[0:4])
	out.WriteByte('-')
	writeHex(b[4:6])
	out.WriteByte('-')
	writeHex(b[6:8])
	out.WriteByte('-')
	writeHex(b[8:10])
	out.WriteByte('-')
	writeHex(b[10:16])
	return out.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
