package matching

import (
	"strconv"
	"strings"

	"github.com/getmockd/stubby/pkg/stub"
)

// Captures collects the capturing groups of every pattern dimension of stored
// against req, keyed for response templating:
//
//	url.N                 group N of the url pattern
//	query.<param>.N       group N of a query parameter pattern
//	headers.<name>.N      group N of a header pattern
//	post.N                group N of the post pattern
//
// Named groups are also keyed by name in place of N. Group 0 is the whole
// match. Dimensions that matched literally contribute only group 0.
func Captures(stored *stub.Request, req *Request) map[string]string {
	tokens := make(map[string]string)
	collect(tokens, "url", stored.URL, req.Path, false)
	for name, pattern := range stored.Query {
		collect(tokens, "query."+name, CanonicalArray(pattern), NormalizeQueryValue(req.Query.Get(name)), false)
	}
	for name, pattern := range stored.Headers {
		header := name
		if stub.IsAuthKind(name) {
			header = "Authorization"
		}
		collect(tokens, "headers."+name, pattern, req.Header.Get(header), false)
	}
	if body := stored.Body(); body != "" {
		collect(tokens, "post", strings.TrimSpace(body), strings.TrimSpace(req.Body), true)
	}
	return tokens
}

func collect(tokens map[string]string, prefix, pattern, value string, dotAll bool) {
	if pattern == "" || value == "" {
		return
	}
	re := compileFull(pattern, dotAll)
	if re == nil {
		if pattern == value {
			tokens[prefix+".0"] = value
		}
		return
	}
	groups := re.FindStringSubmatch(value)
	if groups == nil {
		if pattern == value {
			tokens[prefix+".0"] = value
		}
		return
	}
	names := re.SubexpNames()
	for i, g := range groups {
		tokens[prefix+"."+strconv.Itoa(i)] = g
		if names[i] != "" {
			tokens[prefix+"."+names[i]] = g
		}
	}
}
