package matching

import "github.com/getmockd/stubby/pkg/stub"

// URLEquals reports whether the stored url is literally the asserted path.
func URLEquals(stored *stub.Request, path string) bool {
	return stored.URL == path
}

// URLMatches compares the stored url with the asserted path. Literal urls
// require equality; anything else is a pattern that must match the whole path.
func URLMatches(stored *stub.Request, path string) bool {
	if URLEquals(stored, path) {
		return true
	}
	if stored.IsURLLiteral() {
		return false
	}
	matched, _ := fullMatch(stored.URL, path, false)
	return matched
}
