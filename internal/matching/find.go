package matching

import "github.com/getmockd/stubby/pkg/stub"

// RankMatches returns every lifecycle that answers req. Lifecycles whose url
// equals the path exactly come first, then pattern matches; each group keeps
// declaration order.
func RankMatches(lifecycles []*stub.Lifecycle, req *Request) []*stub.Lifecycle {
	var exact, pattern []*stub.Lifecycle
	for _, lc := range lifecycles {
		if !Match(lc.Request, req) {
			continue
		}
		if URLEquals(lc.Request, req.Path) {
			exact = append(exact, lc)
		} else {
			pattern = append(pattern, lc)
		}
	}
	return append(exact, pattern...)
}

// FindMatch returns the best ranked lifecycle for req, or nil.
func FindMatch(lifecycles []*stub.Lifecycle, req *Request) *stub.Lifecycle {
	if ranked := RankMatches(lifecycles, req); len(ranked) > 0 {
		return ranked[0]
	}
	return nil
}
