// Package apifuzz is the library surface of a deterministic, spec-driven
// API fuzzer: given an OpenAPI 3.x description and a base URL, Run
// synthesizes a structured population of HTTP requests against every
// declared operation, executes them, and classifies each response to
// produce a triaged list of failures and a pass/fail verdict suitable for
// CI exit codes.
//
// Run wires the eight fuzz-engine components (Data Generator, Spec
// Extractor, Phase Planner, Executor, Response Validator, Accumulator,
// Failure Classifier, Verdict Policy) the way team-telnyx/telnyx-mock's
// StubServer wires its own request/response pipeline into one
// orchestration object — renamed Runner here since this module runs
// requests rather than serving them. No cmd/ entrypoint ships with this
// module, matching the teacher repo: it's wired into a larger binary
// elsewhere.
package apifuzz

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/pkg/errors"

	"github.com/ynishi/apifuzz/internal/accumulate"
	"github.com/ynishi/apifuzz/internal/classify"
	"github.com/ynishi/apifuzz/internal/config"
	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/internal/httpexec"
	"github.com/ynishi/apifuzz/internal/phases"
	"github.com/ynishi/apifuzz/internal/verdict"
	"github.com/ynishi/apifuzz/spec"
)

// Output is the full result of a run: the verdict, every classified
// failure (unfiltered; the Verdict applies the policy built from Config,
// and a caller wanting a different policy can call verdict.Decide on
// Failures), and the raw accumulation for custom reporting.
type Output struct {
	Verdict verdict.Verdict

	Failures     []classify.Failure
	Interactions []fuzzmodel.RawInteraction
	Errors       []string

	Total, Success int
	PerOperation   map[string]int
}

// Config re-exports internal/config.Config so callers only need to import
// this root package for the whole library surface.
type Config = config.Config

// Runner is the single orchestration object for one run: one HTTP client
// (via its Executor), one RNG, one Accumulator, and the shared spec-gap
// dedup set. Per spec.md §5 there's no locking because the run is
// single-threaded by design.
type Runner struct {
	cfg config.Config
	ops []*fuzzmodel.Operation
	rng *rand.Rand
	exec *httpexec.Executor
	acc  *accumulate.Accumulator
}

// Run parses cfg.SpecPath, extracts its Operations, and fuzzes every one
// of them in the order Extract returns them (sorted by path, then method;
// the document's own key order is not kept), honoring cfg.StopOnFailure
// and cfg.Limit.
// It returns a tool error (mapped by the caller to exit code 3) for a
// spec that can't be read or parsed, or whose extraction yields zero
// operations; per-request transport errors never abort the run.
func Run(ctx context.Context, cfg config.Config) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(cfg.SpecPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading spec %q", cfg.SpecPath)
	}

	parsedSpec, err := spec.Parse(cfg.SpecPath, content)
	if err != nil {
		return nil, errors.Wrap(err, "parsing spec")
	}

	ops, err := fuzzmodel.Extract(parsedSpec)
	if err != nil {
		return nil, errors.Wrap(err, "extracting operations")
	}
	if len(ops) == 0 {
		return nil, errors.New("spec declares no operations")
	}

	components := parsedSpec.Components.Schemas
	rng := rand.New(rand.NewSource(cfg.Seed))

	runner := &Runner{
		cfg: cfg,
		ops: ops,
		rng: rng,
		exec: httpexec.New(cfg.BaseURL, cfg.Headers, cfg.PathParams, components, cfg.ResponseTimeLimit, rng),
		acc:  accumulate.New(cfg.StopOnFailure, cfg.Limit),
	}

	runner.run(ctx, components)

	failures := classify.Classify(runner.acc.Failures, runner.acc.Interactions)

	policy := verdict.Policy{
		Strict:             cfg.Strict,
		IgnoreStatusCodes:  cfg.IgnoreStatusCodes,
		IgnoreFailureTypes: cfg.IgnoreFailureTypes,
		MinSeverity:        parseMinSeverity(cfg.MinSeverity),
	}
	v := verdict.Decide(failures, runner.acc.Total, runner.acc.Success, len(runner.acc.Errors), policy)

	return &Output{
		Verdict:      v,
		Failures:     failures,
		Interactions: runner.acc.Interactions,
		Errors:       runner.acc.Errors,
		Total:        runner.acc.Total,
		Success:      runner.acc.Success,
		PerOperation: runner.acc.PerOperationCounts(),
	}, nil
}

func (r *Runner) run(ctx context.Context, components map[string]*spec.Schema) {
	for _, op := range r.ops {
		if ctx.Err() != nil {
			return
		}

		label := op.Label()
		cases := phases.Plan(op, r.cfg.Probes, components, r.cfg.Level, r.rng)

		opFailuresBefore := len(r.acc.Failures)

		for _, fc := range cases {
			if ctx.Err() != nil {
				return
			}
			if r.acc.OperationExhausted(label) {
				break
			}

			result := r.exec.Execute(op, fc, r.acc.SeenSpecGaps)
			r.acc.Record(label, result)

			if r.acc.Stopped() {
				r.logProgress(label, opFailuresBefore)
				return
			}
		}

		r.logProgress(label, opFailuresBefore)
	}
}

// logProgress emits the ambient per-operation summary line described in
// spec.md's supplemented features (from the Rust original's end-of-
// operation progress report): "OK" or "N failures", gated by cfg.Verbose.
func (r *Runner) logProgress(label string, failuresBefore int) {
	if !r.cfg.Verbose {
		return
	}
	count := len(r.acc.Failures) - failuresBefore
	if count == 0 {
		fmt.Fprintf(os.Stderr, "%s: OK\n", label)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %d failures\n", label, count)
}

func parseMinSeverity(s string) classify.Severity {
	switch s {
	case "info":
		return classify.Info
	case "error":
		return classify.Error
	case "critical":
		return classify.Critical
	case "warning", "":
		return classify.Warning
	default:
		return classify.Warning
	}
}
