package apifuzz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ynishi/apifuzz/internal/classify"
)

// Summary renders the human-readable run report described in spec.md §7:
// "STATUS: reason" followed by one "METHOD path: N requests" line per
// operation (a count only; responses are not broken down by status) and,
// when failures exist, a list "[severity] METHOD path → status
// (failure_type)" ordered by descending severity, then path. Report
// emission itself (writing to a file, a dump directory) is out of scope;
// this only formats the string.
func (o *Output) Summary() string {
	var b strings.Builder

	status := "PASS"
	if o.Verdict.Status == "fail" {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s: %s\n", status, o.Verdict.Reason)

	ops := make([]string, 0, len(o.PerOperation))
	for op := range o.PerOperation {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(&b, "  %s: %d requests\n", op, o.PerOperation[op])
	}

	if len(o.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range bySeverityThenPath(o.Failures) {
			fmt.Fprintf(&b, "[%s] %s %s → %d (%s)\n",
				f.Severity, f.Method, f.Path, f.StatusCode, f.FailureType)
		}
	}

	return b.String()
}

// bySeverityThenPath orders failures for a stable, most-severe-first
// report: descending severity, then path, for readability when many
// failures share a severity.
func bySeverityThenPath(failures []classify.Failure) []classify.Failure {
	out := append([]classify.Failure{}, failures...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].Path < out[j].Path
	})
	return out
}
