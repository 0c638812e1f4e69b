package matching

import "strings"

// MethodsIntersect reports whether method is one of stored. An empty stored
// set never matches.
func MethodsIntersect(stored []string, method string) bool {
	for _, m := range stored {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
