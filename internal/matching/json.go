package matching

import (
	"reflect"

	"github.com/ohler55/ojg/oj"
)

// JSONEquivalent reports whether both documents parse and hold the same
// values. Object key order and array element order are ignored, and numbers
// compare by value. Unparsable input is simply not equivalent.
func JSONEquivalent(stored, asserted string) bool {
	want, err := oj.ParseString(stored)
	if err != nil {
		return false
	}
	got, err := oj.ParseString(asserted)
	if err != nil {
		return false
	}
	return jsonEqual(want, got)
}

func jsonEqual(want, got any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok || len(w) != len(g) {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !jsonEqual(wv, gv) {
				return false
			}
		}
		return true

	case []any:
		g, ok := got.([]any)
		if !ok || len(w) != len(g) {
			return false
		}
		used := make([]bool, len(g))
	next:
		for _, wv := range w {
			for i, gv := range g {
				if !used[i] && jsonEqual(wv, gv) {
					used[i] = true
					continue next
				}
			}
			return false
		}
		return true
	}

	if wf, ok := number(want); ok {
		gf, ok := number(got)
		return ok && wf == gf
	}
	return reflect.DeepEqual(want, got)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
