package matching

import (
	"net/http"

	"github.com/getmockd/stubby/pkg/stub"
)

// HeadersMatch reports whether every stored header is present in asserted.
// Header names are case-insensitive. Authorization properties compare their
// materialized value against the Authorization header.
func HeadersMatch(stored map[string]string, asserted http.Header) bool {
	for name, want := range stored {
		if stub.IsAuthKind(name) {
			name = "Authorization"
		}
		if len(asserted.Values(name)) == 0 || !StringsMatch(want, asserted.Get(name)) {
			return false
		}
	}
	return true
}
