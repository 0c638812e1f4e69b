package template

import (
	"bytes"
	"regexp"
	"strings"
)

// TokenLeft and TokenRight delimit a token.
const (
	TokenLeft  = "<%"
	TokenRight = "%>"
)

// tokenRegex matches <% key %> patterns with optional whitespace.
var tokenRegex = regexp.MustCompile(`<%\s*([^%\s]+?)\s*%>`)

// IsTokenized reports whether s contains a token opening.
func IsTokenized(s string) bool {
	return strings.Contains(s, TokenLeft)
}

// Process replaces every token in template with its value from ctx.
func Process(template string, ctx *Context) string {
	if !IsTokenized(template) {
		return template
	}
	return tokenRegex.ReplaceAllStringFunc(template, func(match string) string {
		inner := tokenRegex.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		if v, ok := ctx.Lookup(inner[1]); ok {
			return v
		}
		return match
	})
}

// ProcessBytes is Process for a body. The input is returned as is when it
// holds no tokens.
func ProcessBytes(body []byte, ctx *Context) []byte {
	if !bytes.Contains(body, []byte(TokenLeft)) {
		return body
	}
	return []byte(Process(string(body), ctx))
}

// ProcessHeaders returns headers with tokens replaced in every value. The
// input map is not modified.
func ProcessHeaders(headers map[string]string, ctx *Context) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = Process(v, ctx)
	}
	return out
}
