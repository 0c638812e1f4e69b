package matching

import "strings"

// BodyMatches compares the stored body with the asserted request body. The
// asserted Content-Type picks the comparison: JSON equivalence for json
// types, XML equivalence for xml types, a full pattern match otherwise. The
// structural comparisons fall back to the pattern match when they fail.
func BodyMatches(stored string, req *Request) bool {
	if stored == "" {
		return true
	}
	if strings.TrimSpace(req.Body) == "" {
		return false
	}

	contentType := req.ContentType()
	switch {
	case strings.Contains(contentType, "json"):
		if JSONEquivalent(stored, req.Body) {
			return true
		}
	case strings.Contains(contentType, "xml"):
		if XMLEquivalent(stored, req.Body) {
			return true
		}
	}
	return PatternOrLiteral(stored, req.Body)
}

// PatternOrLiteral trims both values and reports whether stored fully matches
// asserted as a pattern (dot matching newlines) or equals it literally.
func PatternOrLiteral(stored, asserted string) bool {
	stored = strings.TrimSpace(stored)
	asserted = strings.TrimSpace(asserted)
	if stored == asserted {
		return true
	}
	matched, _ := fullMatch(stored, asserted, true)
	return matched
}
