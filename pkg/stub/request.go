package stub

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// urlMetaChars are the characters that turn a stubbed url into a pattern.
// The dot is left out on purpose so that paths like /file.json stay literal.
const urlMetaChars = `^$*+?()[]{}|\`

// Request holds the criteria an incoming HTTP request is matched against.
type Request struct {
	// Methods is the upper-cased set of accepted methods. Never empty once
	// built through NewRequest.
	Methods []string
	// URL is a literal path or a regular expression.
	URL string
	// Query maps parameter names to expected values.
	Query map[string]string
	// Headers maps lower-cased header names to expected values. The
	// authorization-* properties keep their property name as key and hold
	// the materialized Authorization value.
	Headers map[string]string
	// Post is the expected request body.
	Post string
	// File holds the bytes of the 'file' reference, when one was configured.
	File []byte
	// RawFile is the 'file' reference as written in YAML.
	RawFile string
}

// NewRequest normalizes r into an immutable Request: methods are upper-cased
// and default to GET, header keys are lower-cased and authorization
// properties are materialized into literal Authorization values.
func NewRequest(r Request) *Request {
	out := &Request{
		URL:     r.URL,
		Post:    r.Post,
		File:    r.File,
		RawFile: r.RawFile,
	}

	for _, m := range r.Methods {
		for _, part := range strings.Split(m, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out.Methods = append(out.Methods, part)
			}
		}
	}
	if len(out.Methods) == 0 {
		out.Methods = []string{http.MethodGet}
	}

	if len(r.Query) > 0 {
		out.Query = make(map[string]string, len(r.Query))
		for k, v := range r.Query {
			out.Query[k] = v
		}
	}

	if len(r.Headers) > 0 {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			key := strings.ToLower(k)
			if kind, err := ParseAuthKind(key); err == nil {
				v = kind.Materialize(v)
			}
			out.Headers[key] = v
		}
	}
	return out
}

// Materialize turns a configured credential into the literal Authorization
// header value for this kind.
func (k AuthKind) Materialize(value string) string {
	switch k {
	case AuthBasic:
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(value))
	case AuthBearer:
		return "Bearer " + value
	default:
		return value
	}
}

// Body returns the stored body: the file content when a non-empty file was
// loaded, the post value otherwise.
func (r *Request) Body() string {
	if len(r.File) > 0 {
		return string(r.File)
	}
	return r.Post
}

// IsURLLiteral reports whether URL contains no regular expression syntax.
func (r *Request) IsURLLiteral() bool {
	return !strings.ContainsAny(r.URL, urlMetaChars)
}

// Authorization returns the materialized Authorization value when one of the
// authorization properties was configured.
func (r *Request) Authorization() (string, bool) {
	for _, kind := range []AuthKind{AuthBasic, AuthBearer, AuthCustom} {
		if v, ok := r.Headers[string(kind)]; ok {
			return v, true
		}
	}
	return "", false
}
