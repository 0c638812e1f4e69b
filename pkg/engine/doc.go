// Package engine serves configured stubs over HTTP.
//
// Every request is matched against the current repository snapshot. A
// matching stub answers with its next response, an unmatched request is
// forwarded when a proxy config applies, and anything else gets a 404 that
// names the closest stub. Upgrade requests whose path is a configured web
// socket url are handed to the websocket package.
//
// Operational endpoints live under /__stubby:
//
//	GET /__stubby/health                 liveness and load summary
//	GET /__stubby/metrics                Prometheus metrics
//	GET /__stubby/config                 the loaded configuration as YAML
//	GET /__stubby/config/{resourceID}    one stub as YAML
//	GET /__stubby/proxy-config/{uuid}    one proxy config as YAML
//	GET /__stubby/requests               recent requests, newest first
//	GET /__stubby/requests/{id}          one request by X-Request-Id
//	DELETE /__stubby/requests            clear the request journal
package engine
