package matching

import (
	"regexp"
	"strings"
	"sync"
)

// patternCache holds compiled full-match patterns, including failures as nil,
// keyed by flags and source.
var patternCache sync.Map

func compileFull(pattern string, dotAll bool) *regexp.Regexp {
	key := pattern
	src := `^(?:` + pattern + `)$`
	if dotAll {
		key = "s:" + pattern
		src = `(?s)` + src
	} else {
		key = "-:" + pattern
	}

	if cached, ok := patternCache.Load(key); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}

	re, err := regexp.Compile(src)
	if err != nil {
		re = nil
	}
	patternCache.Store(key, re)
	return re
}

// fullMatch reports whether pattern matches all of s. ok is false when the
// pattern does not compile.
func fullMatch(pattern, s string, dotAll bool) (matched, ok bool) {
	re := compileFull(pattern, dotAll)
	if re == nil {
		return false, false
	}
	return re.MatchString(s), true
}

// StringsMatch compares a stored value with an asserted one. An empty stored
// value matches anything; an empty asserted value matches nothing else. The
// stored value matches when equal or when it fully matches as a pattern.
func StringsMatch(stored, asserted string) bool {
	if stored == "" {
		return true
	}
	if asserted == "" {
		return false
	}
	if stored == asserted {
		return true
	}
	matched, _ := fullMatch(stored, asserted, false)
	return matched
}

func lower(s string) string {
	return strings.ToLower(s)
}
