package httpexec

import (
	"math/rand"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/ynishi/apifuzz/internal/fuzzmodel"
	"github.com/ynishi/apifuzz/spec"
)

func newExecutor() *Executor {
	return New("http://example.invalid", map[string]string{"X-Static": "yes"}, nil, nil, 0, rand.New(rand.NewSource(1)))
}

func TestSubstitutePathReplacesAllParams(t *testing.T) {
	got := substitutePath("/widgets/{id}/items/{itemId}", map[string]interface{}{
		"id":     int64(5),
		"itemId": "abc",
	})
	assert.Equal(t, "/widgets/5/items/abc", got)
}

func TestToPathSegmentEscapesUnsafeValues(t *testing.T) {
	assert.Equal(t, "plain", toPathSegment("plain"))
	assert.Equal(t, "a%2Fb", toPathSegment("a/b"))
}

func TestResolvePathParamsPrefersOverride(t *testing.T) {
	e := newExecutor()
	op := &fuzzmodel.Operation{
		Parameters: []fuzzmodel.Parameter{
			{Name: "id", Location: fuzzmodel.ParamPath, Schema: &spec.Schema{Type: spec.TypeInteger}},
		},
	}
	fc := fuzzmodel.FuzzCase{Overrides: fuzzmodel.Overrides{Params: map[string]interface{}{"id": int64(42)}}}

	params := e.resolvePathParams(op, fc)
	assert.Equal(t, int64(42), params["id"])
}

func TestBuildQueryAlwaysIncludesRequired(t *testing.T) {
	e := newExecutor()
	op := &fuzzmodel.Operation{
		Parameters: []fuzzmodel.Parameter{
			{Name: "q", Location: fuzzmodel.ParamQuery, Required: true, Schema: &spec.Schema{Type: spec.TypeString}},
		},
	}
	query := e.buildQuery(op, fuzzmodel.FuzzCase{})
	assert.Contains(t, query, "q")
}

func TestBuildHeadersMergesStaticAndDropsInvalidValues(t *testing.T) {
	e := newExecutor()
	op := &fuzzmodel.Operation{
		Parameters: []fuzzmodel.Parameter{
			{Name: "X-Trace", Location: fuzzmodel.ParamHeader, Schema: &spec.Schema{Type: spec.TypeString}},
		},
	}
	fc := fuzzmodel.FuzzCase{Overrides: fuzzmodel.Overrides{Params: map[string]interface{}{
		"X-Trace": "value\r\nX-Injected: true",
	}}}

	headers := e.buildHeaders(op, fc)
	assert.Equal(t, "yes", headers["X-Static"])
	_, present := headers["X-Trace"]
	assert.False(t, present, "a header value containing CRLF must be dropped, not sent")
}

func TestBuildBodyAppliesOverridesOnTopOfGenerated(t *testing.T) {
	e := newExecutor()
	op := &fuzzmodel.Operation{
		RequestBody: &spec.Schema{
			Type: spec.TypeObject,
			Properties: map[string]*spec.Schema{
				"quantity": {Type: spec.TypeInteger},
				"note":     {Type: spec.TypeString},
			},
			Required: []string{"quantity"},
		},
	}
	fc := fuzzmodel.FuzzCase{Overrides: fuzzmodel.Overrides{BodyProps: map[string]interface{}{"quantity": int64(-1)}}}

	body, mediaType := e.buildBody(op, fc)
	assert.Equal(t, "application/json", mediaType)
	assert.Contains(t, string(body), `"quantity":-1`)
}

func TestBuildBodyNilWhenNoRequestBody(t *testing.T) {
	e := newExecutor()
	body, mediaType := e.buildBody(&fuzzmodel.Operation{}, fuzzmodel.FuzzCase{})
	assert.Nil(t, body)
	assert.Equal(t, "", mediaType)
}

func TestCaptureBodyTruncatesOnRuneBoundary(t *testing.T) {
	big := make([]byte, MaxBodyCapture+10)
	for i := range big {
		big[i] = 'a'
	}
	text, truncated := captureBody(big)
	assert.True(t, truncated)
	assert.Len(t, text, MaxBodyCapture)
}

func TestCaptureBodyNoTruncationUnderLimit(t *testing.T) {
	text, truncated := captureBody([]byte("short"))
	assert.False(t, truncated)
	assert.Equal(t, "short", text)
}

func TestQueryEscapeEncodesReserved(t *testing.T) {
	assert.Equal(t, "a%2Fb%3Fc", queryEscape("a/b?c"))
	assert.Equal(t, "simple-_.~", queryEscape("simple-_.~"))
}

// TestQueryEscapeZeroPadsLowBytes guards against a one-digit regression
// for escaped bytes below 0x10 (NUL, LF, ...) - those appear throughout the
// string boundary catalog, so an unpadded "%0"/"%A" would corrupt the query
// string's percent-encoding for common boundary and probe cases.
func TestQueryEscapeZeroPadsLowBytes(t *testing.T) {
	assert.Equal(t, "%00", queryEscape("\x00"))
	assert.Equal(t, "%0A", queryEscape("\n"))
	assert.Equal(t, "%0D%0A", queryEscape("\r\n"))
}

func TestRandomCaseIDIsSixteenHexChars(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	id := randomCaseID(rng)
	assert.Len(t, id, 16)
	for _, c := range id {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
	}
}
