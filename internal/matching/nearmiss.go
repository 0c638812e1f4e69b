package matching

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/getmockd/stubby/pkg/stub"
)

// NearMiss is the stub that came closest to matching an unmatched request.
type NearMiss struct {
	ResourceID int           `json:"resourceId"`
	UUID       string        `json:"uuid,omitempty"`
	URL        string        `json:"url"`
	Distance   int           `json:"distance"`
	Fields     []FieldResult `json:"fields"`
	Reason     string        `json:"reason"`
}

// ClosestMiss ranks lifecycles by the number of failed dimensions, then by
// edit distance between the stored url and the asserted path, then by
// declaration order. It returns nil when there are no lifecycles.
func ClosestMiss(lifecycles []*stub.Lifecycle, req *Request) *NearMiss {
	var (
		best       *NearMiss
		bestFailed int
	)
	for _, lc := range lifecycles {
		b := Explain(lc.Request, req)
		failed := b.Failed()
		distance := levenshtein.ComputeDistance(lc.Request.URL, req.Path)

		if best != nil && (failed > bestFailed || (failed == bestFailed && distance >= best.Distance)) {
			continue
		}
		best = &NearMiss{
			ResourceID: lc.ResourceID,
			UUID:       lc.UUID,
			URL:        lc.Request.URL,
			Distance:   distance,
			Fields:     b.Fields,
			Reason:     reason(b),
		}
		bestFailed = failed
	}
	return best
}

func reason(b *Breakdown) string {
	var failed []string
	for _, f := range b.Fields {
		if !f.Matched {
			failed = append(failed, f.Field)
		}
	}
	if len(failed) == 0 {
		return "all fields matched"
	}
	return fmt.Sprintf("%s did not match", strings.Join(failed, ", "))
}
