package fuzzmodel

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ynishi/apifuzz/spec"
)

var supportedVerbs = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
}

// Extract walks a parsed OpenAPI Spec and builds one Operation per declared
// (method, path). Iteration order is sorted by path then method so that,
// together with the deterministic phases built from each Operation, the
// overall run order is reproducible without depending on Go's randomized
// map iteration.
func Extract(s *spec.Spec) ([]*Operation, error) {
	var ops []*Operation

	paths := make([]string, 0, len(s.Paths))
	for p := range s.Paths {
		paths = append(paths, string(p))
	}
	sort.Strings(paths)

	for _, pathStr := range paths {
		item := s.Paths[spec.Path(pathStr)]
		if item == nil {
			continue
		}

		verbs := item.Operations()
		verbNames := make([]string, 0, len(verbs))
		for v := range verbs {
			verbNames = append(verbNames, v)
		}
		sort.Strings(verbNames)

		for _, method := range verbNames {
			if !supportedVerbs[method] {
				continue
			}

			rawOp := verbs[method]
			if rawOp == nil {
				continue
			}

			op, err := extractOperation(s, pathStr, method, item.Parameters, rawOp)
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s", method, pathStr)
			}
			ops = append(ops, op)
		}
	}

	return ops, nil
}

func extractOperation(s *spec.Spec, path, method string, pathParams []*spec.Parameter, rawOp *spec.Operation) (*Operation, error) {
	op := &Operation{
		Method:               method,
		Path:                 path,
		ResponseSchemas:      map[int]*spec.Schema{},
		ResponseContentTypes: map[int][]string{},
		ResponseHeaders:      map[int][]ResponseHeader{},
	}

	// §4.B: "Parameters are the concatenation of path-item-level and
	// operation-level parameters" - path-item parameters come first.
	allParams := make([]*spec.Parameter, 0, len(pathParams)+len(rawOp.Parameters))
	allParams = append(allParams, pathParams...)
	allParams = append(allParams, rawOp.Parameters...)

	for _, p := range allParams {
		param := p
		if param.Ref != "" {
			name := strings.TrimPrefix(param.Ref, "#/components/parameters/")
			resolved, ok := s.Components.Parameters[name]
			if !ok {
				return nil, errors.Errorf("invalid $ref '%s'", param.Ref)
			}
			param = resolved
		}

		loc := ParamLocation(strings.ToLower(param.In))
		if loc != ParamPath && loc != ParamQuery && loc != ParamHeader {
			continue
		}

		sch := param.Schema
		if sch != nil && sch.Ref != "" {
			if resolved, err := sch.ResolveRef(s.Components.Schemas); err == nil {
				sch = resolved
			}
		}

		op.Parameters = append(op.Parameters, Parameter{
			Name:     param.Name,
			Location: loc,
			Schema:   sch,
			Required: param.Required,
		})
	}

	if rawOp.RequestBody != nil {
		if mt, ok := rawOp.RequestBody.Content["application/json"]; ok && mt.Schema != nil {
			sch := mt.Schema
			if sch.Ref != "" {
				if resolved, err := sch.ResolveRef(s.Components.Schemas); err == nil {
					sch = resolved
				}
			}
			op.RequestBody = sch.FlattenAllOf()
		}
	}

	codes := make([]int, 0, len(rawOp.Responses))
	for codeStr := range rawOp.Responses {
		code, err := strconv.Atoi(string(codeStr))
		if err != nil {
			// "default" and similar non-numeric keys aren't a declared
			// status code the executor can ever observe; skip them.
			continue
		}
		codes = append(codes, code)
	}
	sort.Ints(codes)

	for _, code := range codes {
		resp := rawOp.Responses[spec.StatusCode(strconv.Itoa(code))]

		if resp.Ref != "" {
			name := strings.TrimPrefix(resp.Ref, "#/components/responses/")
			if resolved, ok := s.Components.Responses[name]; ok {
				resp = *resolved
			}
		}

		contentTypes := make([]string, 0, len(resp.Content))
		for ct := range resp.Content {
			contentTypes = append(contentTypes, ct)
		}
		sort.Strings(contentTypes)
		op.ResponseContentTypes[code] = contentTypes

		if mt, ok := resp.Content["application/json"]; ok && mt.Schema != nil {
			sch := mt.Schema
			if sch.Ref != "" {
				if resolved, err := sch.ResolveRef(s.Components.Schemas); err == nil {
					sch = resolved
				}
			}
			op.ResponseSchemas[code] = sch.FlattenAllOf()
		}

		headerNames := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			headerNames = append(headerNames, name)
		}
		sort.Strings(headerNames)
		for _, name := range headerNames {
			h := resp.Headers[name]
			hs := h.Schema
			if hs != nil && hs.Ref != "" {
				if resolved, err := hs.ResolveRef(s.Components.Schemas); err == nil {
					hs = resolved
				}
			}
			op.ResponseHeaders[code] = append(op.ResponseHeaders[code], ResponseHeader{
				Name:     name,
				Required: h.Required,
				Schema:   hs,
			})
		}

		op.ExpectedStatuses = append(op.ExpectedStatuses, code)
	}

	return op, nil
}
