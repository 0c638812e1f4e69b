package matching

import (
	"github.com/getmockd/stubby/pkg/stub"
)

// Field names used in match breakdowns.
const (
	FieldMethod  = "method"
	FieldURL     = "url"
	FieldQuery   = "query"
	FieldHeaders = "headers"
	FieldBody    = "body"
)

// Match reports whether req satisfies every dimension of stored.
func Match(stored *stub.Request, req *Request) bool {
	return MethodsIntersect(stored.Methods, req.Method) &&
		URLMatches(stored, req.Path) &&
		QueryMatches(stored.Query, req.Query) &&
		HeadersMatch(stored.Headers, req.Header) &&
		BodyMatches(stored.Body(), req)
}

// FieldResult describes whether a single dimension matched the request.
type FieldResult struct {
	Field    string `json:"field"`
	Matched  bool   `json:"matched"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
}

// Breakdown evaluates every dimension without short-circuiting.
type Breakdown struct {
	Fields []FieldResult `json:"fields"`
}

// Matched reports whether all fields matched.
func (b *Breakdown) Matched() bool {
	return b.Failed() == 0
}

// Failed counts the fields that did not match.
func (b *Breakdown) Failed() int {
	n := 0
	for _, f := range b.Fields {
		if !f.Matched {
			n++
		}
	}
	return n
}

// Explain returns the per-dimension outcome of matching req against stored.
// Only dimensions the stub constrains are listed, method and url always are.
func Explain(stored *stub.Request, req *Request) *Breakdown {
	b := &Breakdown{}
	b.Fields = append(b.Fields,
		FieldResult{Field: FieldMethod, Matched: MethodsIntersect(stored.Methods, req.Method), Expected: stored.Methods, Actual: req.Method},
		FieldResult{Field: FieldURL, Matched: URLMatches(stored, req.Path), Expected: stored.URL, Actual: req.Path},
	)
	if len(stored.Query) > 0 {
		b.Fields = append(b.Fields, FieldResult{
			Field: FieldQuery, Matched: QueryMatches(stored.Query, req.Query), Expected: stored.Query, Actual: req.Query,
		})
	}
	if len(stored.Headers) > 0 {
		b.Fields = append(b.Fields, FieldResult{
			Field: FieldHeaders, Matched: HeadersMatch(stored.Headers, req.Header), Expected: stored.Headers,
		})
	}
	if body := stored.Body(); body != "" {
		b.Fields = append(b.Fields, FieldResult{
			Field: FieldBody, Matched: BodyMatches(body, req), Expected: body, Actual: req.Body,
		})
	}
	return b
}
