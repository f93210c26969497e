// Package accumulate implements the Accumulator & Progress component: it
// aggregates interactions, failures, and transport errors across the
// whole run, enforces the per-operation request limit and the global
// stop-on-failure cooperative bound, and owns the shared spec-gap dedup
// set that the Response Validator writes into.
//
// Grounded on the Rust reference implementation's record_and_check_stop
// helper (spec.md's Supplemented Features), expressed here in the
// teacher's style of a small mutable struct with no locking, since the
// run is single-threaded by design (spec.md §5).
package accumulate

import (
	"github.com/ynishi/apifuzz/internal/checks"
	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/internal/httpexec"
)

// Accumulator owns the run-wide counters and the spec-gap dedup set.
// Not safe for concurrent use — the run is single-threaded by design.
type Accumulator struct {
	Total   int
	Success int

	Failures     []fuzzmodel.RawFailure
	Interactions []fuzzmodel.RawInteraction
	Errors       []string

	SeenSpecGaps checks.SeenSpecGaps

	// StopOnFailure, when set, makes Record trip Stopped() the moment
	// any recorded interaction carries at least one failure.
	StopOnFailure bool

	// Limit caps the number of requests recorded per operation, 0 means
	// unlimited. opCounts tracks how many requests each operation has
	// sent so far across all phases.
	Limit    int
	opCounts map[string]int

	stopped bool
}

// New builds an empty Accumulator.
func New(stopOnFailure bool, limit int) *Accumulator {
	return &Accumulator{
		SeenSpecGaps:  checks.SeenSpecGaps{},
		StopOnFailure: stopOnFailure,
		Limit:         limit,
		opCounts:      map[string]int{},
	}
}

// Stopped reports whether a prior Record call tripped StopOnFailure.
func (a *Accumulator) Stopped() bool { return a.stopped }

// OperationExhausted reports whether operation has already hit the
// per-operation Limit (0 means no limit) and should send no more cases.
func (a *Accumulator) OperationExhausted(operation string) bool {
	if a.Limit <= 0 {
		return false
	}
	return a.opCounts[operation] >= a.Limit
}

// Record folds one Executor result into the run totals, per spec.md §4.F:
//   - a transport error increments Total but not Success, and is appended
//     to Errors (never becomes a failure);
//   - an interaction with zero failures increments both Total and Success;
//   - an interaction with >=1 failure increments Total, appends to
//     Failures and Interactions, and — if StopOnFailure is set — trips the
//     cooperative stop bound for the caller's next iteration to observe.
func (a *Accumulator) Record(operation string, result httpexec.Result) {
	a.opCounts[operation]++
	a.Total++

	if result.TransportError != "" {
		a.Errors = append(a.Errors, result.TransportError)
		return
	}

	interaction := *result.Interaction
	if len(interaction.Failures) == 0 {
		a.Success++
		return
	}

	a.Failures = append(a.Failures, interaction.Failures...)
	a.Interactions = append(a.Interactions, interaction)

	if a.StopOnFailure {
		a.stopped = true
	}
}

// PerOperationCounts reports, for each operation label seen so far, how
// many requests were sent — used for the per-operation pass/fail summary
// in the user-visible run report.
func (a *Accumulator) PerOperationCounts() map[string]int {
	out := make(map[string]int, len(a.opCounts))
	for k, v := range a.opCounts {
		out[k] = v
	}
	return out
}
