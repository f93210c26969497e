package phases

import (
	"math/rand"
	"sort"

	"github.com/ynishi/apifuzz/internal/datagen"
	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/spec"
)

// fuzzTarget names one place in a request a phase can inject a value: a
// parameter, or a top-level request-body property.
type fuzzTarget struct {
	name      string
	isBody    bool
	boundary  []interface{}
	confusion []interface{}
}

func (t fuzzTarget) override(value interface{}) fuzzmodel.Overrides {
	if t.isBody {
		return fuzzmodel.Overrides{BodyProps: map[string]interface{}{t.name: value}}
	}
	return fuzzmodel.Overrides{Params: map[string]interface{}{t.name: value}}
}

// targets enumerates every parameter and top-level request-body property
// of op, paired with their precomputed boundary and type-confusion value
// lists, in the fixed order parameters-then-body-properties — the same
// order the Boundary and TypeConfusion phases iterate in, so two runs
// against the same spec produce the same case sequence.
func targets(op *fuzzmodel.Operation, components datagen.Components) []fuzzTarget {
	var out []fuzzTarget

	for _, p := range op.Parameters {
		out = append(out, fuzzTarget{
			name:      p.Name,
			boundary:  datagen.Boundaries(p.Schema, components),
			confusion: datagen.TypeConfusion(p.Schema, components),
		})
	}

	if op.RequestBody != nil {
		props := datagen.ResolveObjectPropertySchemas(op.RequestBody, components)
		for _, name := range sortedSchemaKeys(props) {
			out = append(out, fuzzTarget{
				name:      name,
				isBody:    true,
				boundary:  datagen.Boundaries(props[name], components),
				confusion: datagen.TypeConfusion(props[name], components),
			})
		}
	}

	return out
}

func sortedSchemaKeys(m map[string]*spec.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Boundary enumerates one FuzzCase per (target, boundary value) pair, in
// target order then value order — deterministic for a fixed spec.
func Boundary(op *fuzzmodel.Operation, components datagen.Components) []fuzzmodel.FuzzCase {
	expectation := fuzzmodel.ExpectationFromPhase(op, fuzzmodel.PhaseBoundary)

	var cases []fuzzmodel.FuzzCase
	for _, t := range targets(op, components) {
		for _, v := range t.boundary {
			cases = append(cases, fuzzmodel.FuzzCase{
				Phase:       fuzzmodel.PhaseBoundary,
				Overrides:   t.override(v),
				Expectation: expectation,
			})
		}
	}
	return cases
}

// TypeConfusion enumerates one FuzzCase per (target, wrong-type value)
// pair. Every case expects Rejection: the server must reject a value
// whose JSON type doesn't match the schema.
func TypeConfusion(op *fuzzmodel.Operation, components datagen.Components) []fuzzmodel.FuzzCase {
	expectation := fuzzmodel.ExpectationFromPhase(op, fuzzmodel.PhaseTypeConfusion)

	var cases []fuzzmodel.FuzzCase
	for _, t := range targets(op, components) {
		for _, v := range t.confusion {
			cases = append(cases, fuzzmodel.FuzzCase{
				Phase:       fuzzmodel.PhaseTypeConfusion,
				Overrides:   t.override(v),
				Expectation: expectation,
			})
		}
	}
	return cases
}

// Neighborhood repeats n times: uniformly pick one target that has a
// non-empty boundary list, inject a single near_boundary perturbation of
// one of its boundary values. Deterministic given rng's seed and prior
// draws, per the determinism contract in spec.md §6.
func Neighborhood(op *fuzzmodel.Operation, components datagen.Components, rng *rand.Rand, n int) []fuzzmodel.FuzzCase {
	expectation := fuzzmodel.ExpectationFromPhase(op, fuzzmodel.PhaseNeighborhood)

	var eligible []fuzzTarget
	for _, t := range targets(op, components) {
		if len(t.boundary) > 0 {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	cases := make([]fuzzmodel.FuzzCase, 0, n)
	for i := 0; i < n; i++ {
		t := eligible[rng.Intn(len(eligible))]
		sch := paramOrBodySchema(op, t, components)
		value := datagen.NearBoundary(sch, components, rng)
		cases = append(cases, fuzzmodel.FuzzCase{
			Phase:       fuzzmodel.PhaseNeighborhood,
			Overrides:   t.override(value),
			Expectation: expectation,
		})
	}
	return cases
}

func paramOrBodySchema(op *fuzzmodel.Operation, t fuzzTarget, components datagen.Components) *spec.Schema {
	if t.isBody {
		props := datagen.ResolveObjectPropertySchemas(op.RequestBody, components)
		if props != nil {
			return props[t.name]
		}
		return nil
	}
	for _, p := range op.Parameters {
		if p.Name == t.name {
			return p.Schema
		}
	}
	return nil
}

// Random repeats n times with empty Overrides: every field is generated
// fresh by the Executor at send time via datagen.Generate.
func Random(op *fuzzmodel.Operation, n int) []fuzzmodel.FuzzCase {
	expectation := fuzzmodel.ExpectationFromPhase(op, fuzzmodel.PhaseRandom)

	cases := make([]fuzzmodel.FuzzCase, 0, n)
	for i := 0; i < n; i++ {
		cases = append(cases, fuzzmodel.FuzzCase{
			Phase:       fuzzmodel.PhaseRandom,
			Expectation: expectation,
		})
	}
	return cases
}

// Probe builds one FuzzCase per value declared by every probe targeting
// op's "METHOD /path" label. Target resolution: a probe's target matches
// a parameter name, a request-body property name, or both — in which case
// both injection cases are emitted (intentional coverage; see spec.md §9
// Open Questions). A target matching neither is treated as a parameter
// name, respecting user intent over silently dropping the probe.
func Probe(op *fuzzmodel.Operation, probes []fuzzmodel.Probe, components datagen.Components) []fuzzmodel.FuzzCase {
	expectation := fuzzmodel.ExpectationFromPhase(op, fuzzmodel.PhaseProbe)

	var cases []fuzzmodel.FuzzCase
	for _, probe := range probes {
		if !probe.MatchesOperation(op.Method, op.Path) {
			continue
		}

		matchesParam := false
		for _, p := range op.Parameters {
			if p.Name == probe.Target {
				matchesParam = true
				break
			}
		}

		var bodyProps map[string]*spec.Schema
		if op.RequestBody != nil {
			bodyProps = datagen.ResolveObjectPropertySchemas(op.RequestBody, components)
		}
		_, matchesBody := bodyProps[probe.Target]

		for _, v := range probe.ToValues() {
			if matchesParam {
				cases = append(cases, fuzzmodel.FuzzCase{
					Phase: fuzzmodel.PhaseProbe,
					Overrides: fuzzmodel.Overrides{
						Params: map[string]interface{}{probe.Target: v},
					},
					Expectation: expectation,
				})
			}
			if matchesBody {
				cases = append(cases, fuzzmodel.FuzzCase{
					Phase: fuzzmodel.PhaseProbe,
					Overrides: fuzzmodel.Overrides{
						BodyProps: map[string]interface{}{probe.Target: v},
					},
					Expectation: expectation,
				})
			}
			if !matchesParam && !matchesBody {
				cases = append(cases, fuzzmodel.FuzzCase{
					Phase: fuzzmodel.PhaseProbe,
					Overrides: fuzzmodel.Overrides{
						Params: map[string]interface{}{probe.Target: v},
					},
					Expectation: expectation,
				})
			}
		}
	}
	return cases
}

// Plan builds all five phase collections for one Operation, in the fixed
// execution order Probe, Boundary, TypeConfusion, Neighborhood, Random.
func Plan(op *fuzzmodel.Operation, probes []fuzzmodel.Probe, components datagen.Components, level Level, rng *rand.Rand) []fuzzmodel.FuzzCase {
	n1, n2 := level.Split()

	var all []fuzzmodel.FuzzCase
	all = append(all, Probe(op, probes, components)...)
	all = append(all, Boundary(op, components)...)
	all = append(all, TypeConfusion(op, components)...)
	all = append(all, Neighborhood(op, components, rng, n1)...)
	all = append(all, Random(op, n2)...)
	return all
}
