package matching

import (
	"net/url"
	"strings"
)

var queryDecoder = strings.NewReplacer(
	"%22", `"`,
	"%27", "'",
	"%5B", "[", "%5b", "[",
	"%5D", "]", "%5d", "]",
	"%20", " ",
	"%2B", " ", "%2b", " ",
	"+", " ",
)

// NormalizeQueryValue decodes an asserted query value and canonicalizes
// bracketed array values so that quoting and spacing do not matter:
// ['a', 'b'], ["a","b"] and [a,b] all become [a,b].
func NormalizeQueryValue(v string) string {
	return CanonicalArray(queryDecoder.Replace(v))
}

// CanonicalArray trims v and canonicalizes it when it is a bracketed array.
// Stored values go through this alone so regex syntax such as '+' survives.
func CanonicalArray(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < 2 || v[0] != '[' || v[len(v)-1] != ']' {
		return v
	}

	parts := strings.Split(v[1:len(v)-1], ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// QueryMatches reports whether every stored parameter is present in asserted
// with a comparable value. Repeated asserted parameters compare as an array.
func QueryMatches(stored map[string]string, asserted url.Values) bool {
	for key, want := range stored {
		values, ok := asserted[key]
		if !ok {
			return false
		}

		got := ""
		switch len(values) {
		case 0:
		case 1:
			got = values[0]
		default:
			got = "[" + strings.Join(values, ",") + "]"
		}

		if !StringsMatch(CanonicalArray(want), NormalizeQueryValue(got)) {
			return false
		}
	}
	return true
}
