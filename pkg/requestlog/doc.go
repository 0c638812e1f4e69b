// Package requestlog keeps a journal of the requests the stub server saw,
// for inspection through the admin API.
//
// It is distinct from operational logging (which uses log/slog): entries
// record what came in, whether a stub matched, was proxied or missed, and
// what status went back.
//
//	store := requestlog.NewMemoryStore(1000)
//	store.Log(&requestlog.Entry{
//	    Protocol: requestlog.ProtocolHTTP,
//	    Method:   "GET",
//	    Path:     "/invoice/42",
//	    Outcome:  requestlog.OutcomeMatched,
//	})
//	recent := store.List(&requestlog.Filter{Limit: 10})
//
// This is a leaf package with no internal dependencies.
package requestlog
