// Package config holds the run-level Config accepted by Run: the spec
// location, target base URL, static headers, path-parameter overrides,
// probes, and verdict policy knobs. Loading a Config from a file or CLI
// flags is out of scope for this module (see spec.md §1); this package
// only defines the struct and its validation.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/internal/phases"
)

// sensitiveHeaders is masked out by Config.Masked so a caller can log or
// print a Config without leaking credentials.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,
}

// Config is the library surface's run configuration. A CLI or config-file
// loader (out of scope here) is responsible for producing one of these.
type Config struct {
	// SpecPath is the path to the OpenAPI document to fuzz.
	SpecPath string `validate:"required"`

	// BaseURL is the target server, e.g. "https://api.example.com".
	BaseURL string `validate:"required,url"`

	// Headers are static headers sent with every request, merged with any
	// spec-declared header parameters per operation.
	Headers map[string]string

	// PathParams supplies a value for a path parameter name when no
	// FuzzCase override and no probe targets it — e.g. a real resource ID
	// the target server expects in place of a generated one.
	PathParams map[string]interface{}

	// Probes are user-supplied targeted value injections (spec.md §6).
	Probes []fuzzmodel.Probe

	// Level selects the fuzz intensity tier (Quick/Normal/Heavy).
	Level phases.Level

	// ResponseTimeLimit, if non-zero, is the seconds threshold Check H2
	// (ResponseTimeExceeded) compares each interaction's elapsed time
	// against. Zero disables the check.
	ResponseTimeLimit float64

	// Seed seeds the run's single RNG; required for the determinism
	// contract in spec.md §6 — a caller that wants reproducible
	// Neighborhood/Random phases across runs must pass the same Seed.
	Seed int64

	// Limit, if non-zero, caps the number of requests sent per operation
	// across all phases.
	Limit int

	// StopOnFailure aborts the whole run the moment any request records
	// at least one failure.
	StopOnFailure bool

	// Strict selects the exit-code mapping for Warning-severity failures:
	// strict maps Warning to exit 1, lenient maps it to exit 0.
	Strict bool

	// IgnoreStatusCodes and IgnoreFailureTypes are Verdict Policy filters;
	// see internal/verdict.
	IgnoreStatusCodes []int
	IgnoreFailureTypes []string

	// MinSeverity is the Verdict Policy's floor; failures below it are
	// dropped before exit-code reduction. Defaults to "warning".
	MinSeverity string

	// Verbose gates the ambient per-operation progress lines.
	Verbose bool
}

var validate = validator.New()

// Validate checks the required fields are set and well-formed, wrapping
// go-playground/validator's field errors the way the rest of the module
// wraps errors — with github.com/pkg/errors context, never a bare string.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Errorf("base_url must start with http:// or https://, got %q", c.BaseURL)
	}
	return nil
}

// Masked returns Headers with sensitive values replaced by "***", safe to
// print or log. This is glue supporting the (out-of-scope) dump feature,
// not a feature in its own right.
func (c *Config) Masked() map[string]string {
	out := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}
