package matching

import (
	"net/http"
	"net/url"
)

// Request is the asserted side of a comparison.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// NewRequest captures r and its already-read body.
func NewRequest(r *http.Request, body []byte) *Request {
	return &Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header,
		Body:   string(body),
	}
}

// ContentType returns the lower-cased Content-Type header.
func (r *Request) ContentType() string {
	return lower(r.Header.Get("Content-Type"))
}
