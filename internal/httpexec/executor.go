// Package httpexec implements the Executor: for one FuzzCase it builds a
// concrete URL/query/headers/body, sends it through a single fasthttp
// client with a 10-second timeout, captures the response, and hands the
// result to the Response Validator.
//
// Grounded on team-telnyx/telnyx-mock's server.go for the request-shaping
// idiom (path-parameter substitution, query building, header merging) —
// that file plays the server side of the same wire contract this Executor
// plays the client side of — adapted here to send rather than serve. The
// HTTP transport itself is valyala/fasthttp, the pack's pluggable blocking
// client with a built-in per-call timeout.
package httpexec

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/ynishi/apifuzz/internal/checks"
	"github.com/ynishi/apifuzz/internal/datagen"
	"github.com/ynishi/apifuzz/internal/fuzzmodel"
)

// Timeout is the fixed per-request deadline from spec.md §4.D.
const Timeout = 10 * time.Second

// MaxBodyCapture is the number of bytes an Interaction's captured
// response body text is truncated to.
const MaxBodyCapture = 4096

// Executor sends one FuzzCase at a time against a fixed base URL. It owns
// one fasthttp.Client (connection pool) and the run's single RNG, per the
// single-threaded, reproducible execution model in spec.md §5.
type Executor struct {
	Client            *fasthttp.Client
	BaseURL           string
	StaticHeaders     map[string]string
	PathParams        map[string]interface{}
	Components        datagen.Components
	ResponseTimeLimit float64
	Rng               *rand.Rand
}

// New builds an Executor with its own fasthttp.Client.
func New(baseURL string, staticHeaders map[string]string, pathParams map[string]interface{}, components datagen.Components, responseTimeLimit float64, rng *rand.Rand) *Executor {
	return &Executor{
		Client:            &fasthttp.Client{},
		BaseURL:           strings.TrimRight(baseURL, "/"),
		StaticHeaders:     staticHeaders,
		PathParams:        pathParams,
		Components:        components,
		ResponseTimeLimit: responseTimeLimit,
		Rng:               rng,
	}
}

// Result is the outcome of sending one case: either a captured Interaction
// (possibly with validator failures) or a transport-level error string.
// Exactly one of the two is populated, per spec.md §3 (RawInteraction vs.
// a per-request error string that never becomes a failure).
type Result struct {
	Interaction    *fuzzmodel.RawInteraction
	TransportError string
}

// Execute sends one FuzzCase against op and validates the response.
func (e *Executor) Execute(op *fuzzmodel.Operation, fc fuzzmodel.FuzzCase, seen checks.SeenSpecGaps) Result {
	caseID := randomCaseID(e.Rng)

	pathParams := e.resolvePathParams(op, fc)
	resolvedPath := substitutePath(op.Path, pathParams)

	query := e.buildQuery(op, fc)
	headers := e.buildHeaders(op, fc)
	body, mediaType := e.buildBody(op, fc)

	url := e.BaseURL + resolvedPath
	if len(query) > 0 {
		url += "?" + encodeQuery(query)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(op.Method)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType(mediaType)
		req.SetBody(body)
	}

	start := time.Now()
	err := e.Client.DoTimeout(req, resp, Timeout)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		return Result{TransportError: errors.Wrapf(err, "%s %s", op.Method, url).Error()}
	}

	statusCode := resp.StatusCode()
	contentType := string(resp.Header.ContentType())
	bodyText, truncated := captureBody(resp.Body())

	respHeaders := map[string]string{}
	resp.Header.VisitAll(func(k, v []byte) {
		respHeaders[string(k)] = string(v)
	})

	var bodyPtr *string
	if bodyText != "" {
		bodyPtr = &bodyText
	}

	rawCase := fuzzmodel.RawCase{
		Method:         op.Method,
		Path:           op.Path,
		ID:             caseID,
		PathParameters: pathParams,
		Headers:        headers,
		Query:          query,
		Body:           bodyAsValue(body),
		MediaType:      mediaType,
	}

	rawResp := fuzzmodel.RawResponse{
		StatusCode:    statusCode,
		Elapsed:       elapsed,
		ContentLength: int64(len(resp.Body())),
		Body:          bodyPtr,
	}
	if truncated {
		rawResp.Message = "body truncated to 4096 bytes"
	}

	failures := checks.Validate(checks.Input{
		Operation:         op,
		CaseID:            caseID,
		Expectation:       fc.Expectation,
		StatusCode:        statusCode,
		ContentType:       contentType,
		Headers:           respHeaders,
		Body:              bodyPtr,
		Elapsed:           elapsed,
		ResponseTimeLimit: e.ResponseTimeLimit,
	}, seen)

	return Result{Interaction: &fuzzmodel.RawInteraction{
		Case:      rawCase,
		Response:  rawResp,
		Operation: op.Label(),
		Failures:  failures,
	}}
}

func (e *Executor) resolvePathParams(op *fuzzmodel.Operation, fc fuzzmodel.FuzzCase) map[string]interface{} {
	out := map[string]interface{}{}
	for _, p := range op.Parameters {
		if p.Location != fuzzmodel.ParamPath {
			continue
		}
		if v, ok := fc.Overrides.Params[p.Name]; ok {
			out[p.Name] = v
			continue
		}
		if v, ok := e.PathParams[p.Name]; ok {
			out[p.Name] = v
			continue
		}
		out[p.Name] = datagen.Generate(p.Schema, e.Components, e.Rng)
	}
	return out
}

func substitutePath(template string, params map[string]interface{}) string {
	out := template
	for name, v := range params {
		out = strings.ReplaceAll(out, "{"+name+"}", toPathSegment(v))
	}
	return out
}

func toPathSegment(v interface{}) string {
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	if datagen.IdentifierSafe(s) {
		return s
	}
	return queryEscape(s)
}

// buildQuery builds the set of query parameters to send: overridden
// params are always included, required params are always included,
// optional params are included with probability 0.3 (spec.md §4.D).
func (e *Executor) buildQuery(op *fuzzmodel.Operation, fc fuzzmodel.FuzzCase) map[string]interface{} {
	out := map[string]interface{}{}
	for _, p := range op.Parameters {
		if p.Location != fuzzmodel.ParamQuery {
			continue
		}
		if v, ok := fc.Overrides.Params[p.Name]; ok {
			out[p.Name] = v
			continue
		}
		if p.Required || e.Rng.Float64() < 0.3 {
			out[p.Name] = datagen.Generate(p.Schema, e.Components, e.Rng)
		}
	}
	return out
}

// buildHeaders merges static config headers with spec header-parameters
// (override or random), dropping any value that violates HTTP framing —
// those values exist to exercise boundary coverage of string schemas, not
// to be sent over the wire (spec.md §4.D step 3, §9 design notes).
func (e *Executor) buildHeaders(op *fuzzmodel.Operation, fc fuzzmodel.FuzzCase) map[string]string {
	out := map[string]string{}
	for k, v := range e.StaticHeaders {
		out[k] = v
	}

	for _, p := range op.Parameters {
		if p.Location != fuzzmodel.ParamHeader {
			continue
		}
		var value interface{}
		if v, ok := fc.Overrides.Params[p.Name]; ok {
			value = v
		} else if p.Required || e.Rng.Float64() < 0.3 {
			value = datagen.Generate(p.Schema, e.Components, e.Rng)
		} else {
			continue
		}

		str := toHeaderString(value)
		if !isValidHeaderValue(str) {
			continue
		}
		out[p.Name] = str
	}

	return out
}

func toHeaderString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func isValidHeaderValue(s string) bool {
	return !strings.ContainsAny(s, "\r\n\x00")
}

// buildBody generates a request body conforming to the operation's
// request-body schema, then applies body-property overrides on top of
// the top level. Returns nil, "" if the operation declares no body.
func (e *Executor) buildBody(op *fuzzmodel.Operation, fc fuzzmodel.FuzzCase) ([]byte, string) {
	if op.RequestBody == nil {
		return nil, ""
	}

	obj := datagen.ResolveObjectProperties(op.RequestBody, e.Components, e.Rng, fc.Overrides.BodyProps)

	encoded, err := json.Marshal(obj)
	if err != nil {
		return nil, ""
	}
	return encoded, "application/json"
}

func bodyAsValue(body []byte) interface{} {
	if body == nil {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

// captureBody truncates a response body to MaxBodyCapture bytes on a
// valid UTF-8 character boundary.
func captureBody(body []byte) (string, bool) {
	if len(body) <= MaxBodyCapture {
		return string(body), false
	}
	cut := MaxBodyCapture
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]), true
}

func encodeQuery(params map[string]interface{}) string {
	var b strings.Builder
	first := true
	for k, v := range params {
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(queryEscape(k))
		b.WriteByte('=')
		b.WriteString(queryEscape(toHeaderString(v)))
	}
	return b.String()
}

func queryEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_' || r == '.' || r == '~':
			b.WriteRune(r)
		default:
			for _, c := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02X", c)
			}
		}
	}
	return b.String()
}

func randomCaseID(rng *rand.Rand) string {
	var b [8]byte
	rng.Read(b[:])
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i, v := range b {
		out[i*2] = hexdigits[v>>4]
		out[i*2+1] = hexdigits[v&0xf]
	}
	return string(out)
}
