// Package fuzzmodel holds the engine-wide data model: the Operation the
// Spec Extractor produces, the fuzz-phase case/expectation types the Phase
// Planner produces, and the interchange types (RawCase/RawResponse/
// RawInteraction/RawFailure) that the Executor and Response Validator pass
// between each other and the Accumulator.
//
// It depends only on the spec package (for *spec.Schema) so every other
// component can share one vocabulary without import cycles.
package fuzzmodel

import "github.com/ynishi/apifuzz/spec"

// ParamLocation is where a Parameter is carried on the wire.
type ParamLocation string

const (
	ParamPath   ParamLocation = "path"
	ParamQuery  ParamLocation = "query"
	ParamHeader ParamLocation = "header"
)

// Parameter is one request parameter of an Operation.
type Parameter struct {
	Name     string
	Location ParamLocation
	Schema   *spec.Schema
	Required bool
}

// ResponseHeader is one declared response header for a given status.
type ResponseHeader struct {
	Name     string
	Required bool
	Schema   *spec.Schema
}

// Operation is one (method, path) endpoint, fully extracted and resolved.
// Built once by the Spec Extractor; immutable thereafter.
type Operation struct {
	Method      string
	Path        string
	Parameters  []Parameter
	RequestBody *spec.Schema

	ExpectedStatuses     []int
	ResponseSchemas      map[int]*spec.Schema
	ResponseContentTypes map[int][]string
	ResponseHeaders      map[int][]ResponseHeader
}

// Label is the "METHOD /path" string used throughout the pipeline to
// identify an operation in logs, dedup keys, and classified failures.
func (o *Operation) Label() string {
	return o.Method + " " + o.Path
}

// FuzzPhase identifies which of the five phases produced a FuzzCase.
type FuzzPhase int

const (
	PhaseProbe FuzzPhase = iota
	PhaseBoundary
	PhaseTypeConfusion
	PhaseNeighborhood
	PhaseRandom
)

func (p FuzzPhase) String() string {
	switch p {
	case PhaseProbe:
		return "probe"
	case PhaseBoundary:
		return "boundary"
	case PhaseTypeConfusion:
		return "type-confusion"
	case PhaseNeighborhood:
		return "neighborhood"
	case PhaseRandom:
		return "random"
	default:
		panic("fuzzmodel: unknown FuzzPhase")
	}
}

// StatusExpectationKind tags a StatusExpectation's variant.
type StatusExpectationKind int

const (
	SuccessExpected StatusExpectationKind = iota
	AnyDeclared
	Rejection
)

// StatusExpectation carries what status codes a case's response is allowed
// to have. Codes is unused for Rejection.
type StatusExpectation struct {
	Kind  StatusExpectationKind
	Codes []int
}

// ExpectationFromPhase derives a StatusExpectation from an operation's
// declared statuses and the phase that built the case.
func ExpectationFromPhase(op *Operation, phase FuzzPhase) StatusExpectation {
	declared := op.ExpectedStatuses
	switch phase {
	case PhaseRandom:
		var success []int
		for _, c := range declared {
			if c >= 200 && c < 300 {
				success = append(success, c)
			}
		}
		if len(success) == 0 {
			return StatusExpectation{Kind: SuccessExpected, Codes: []int{200}}
		}
		return StatusExpectation{Kind: SuccessExpected, Codes: success}
	case PhaseProbe, PhaseBoundary, PhaseNeighborhood:
		if len(declared) == 0 {
			return StatusExpectation{Kind: AnyDeclared, Codes: []int{200}}
		}
		return StatusExpectation{Kind: AnyDeclared, Codes: declared}
	case PhaseTypeConfusion:
		return StatusExpectation{Kind: Rejection}
	default:
		panic("fuzzmodel: unknown FuzzPhase in ExpectationFromPhase")
	}
}

// Overrides pins specific values for named parameters and/or body
// properties; an empty Overrides means "fully randomized inputs."
type Overrides struct {
	Params    map[string]interface{}
	BodyProps map[string]interface{}
}

func (o Overrides) IsEmpty() bool {
	return len(o.Params) == 0 && len(o.BodyProps) == 0
}

// FuzzCase is one concrete request to send, derived from an operation and a
// phase: what to override plus what status is acceptable.
type FuzzCase struct {
	Phase       FuzzPhase
	Overrides   Overrides
	Expectation StatusExpectation
}

// Probe is a user-supplied targeted value injection, matched against an
// operation by its "METHOD /path" label.
type Probe struct {
	Operation string
	Target    string
	Int       []int64
	Float     []float64
	String    []string
	Bool      []bool
	Null      bool
}

// MatchesOperation reports whether this probe targets the given operation.
func (p Probe) MatchesOperation(method, path string) bool {
	return p.Operation == method+" "+path
}

// ToValues flattens the probe's per-type value arrays into one ordered list
// of generic values, in the fixed order int, float, string, bool, null —
// matching the declaration order of the Probe struct itself.
func (p Probe) ToValues() []interface{} {
	var out []interface{}
	for _, v := range p.Int {
		out = append(out, v)
	}
	for _, v := range p.Float {
		out = append(out, v)
	}
	for _, v := range p.String {
		out = append(out, v)
	}
	for _, v := range p.Bool {
		out = append(out, v)
	}
	if p.Null {
		out = append(out, nil)
	}
	return out
}

// RawCase is the request half of an Interaction, captured exactly as sent.
type RawCase struct {
	Method         string
	Path           string
	ID             string
	PathParameters map[string]interface{}
	Headers        map[string]string
	Query          map[string]interface{}
	Body           interface{}
	MediaType      string
}

// RawResponse is the response half of an Interaction.
type RawResponse struct {
	StatusCode    int
	Elapsed       float64
	Message       string
	ContentLength int64
	Body          *string
}

// RawFailure is a single Response Validator finding, identified by the kind
// of check that produced it.
type RawFailure struct {
	Kind      string
	Operation string
	Title     string
	Message   string
	CaseID    string
	Severity  string // "critical", "high", "medium", "low"

	StatusCode *int

	Elapsed  *float64
	Deadline *float64

	ValidationMessage *string
}

// RawInteraction is one case+response pair plus whatever failures the
// Response Validator produced for it.
type RawInteraction struct {
	Case      RawCase
	Response  RawResponse
	Operation string
	Failures  []RawFailure
}
