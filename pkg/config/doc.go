// Package config loads stubby YAML into the model defined in pkg/stub.
//
// A stubs file is a YAML sequence. Each entry is one of:
//
//	- request: {...}            an HTTP stub lifecycle
//	  response: {...} | [...]
//	- proxy-config: {...}       an upstream for unmatched requests
//	- web-socket: {...}         a scripted web socket exchange
//
// Alternatively the root may be a mapping with a single 'includes' key
// listing further stubs files (doublestar globs are accepted):
//
//	includes:
//	  - stubs/http/*.yaml
//	  - stubs/ws/**/*.yaml
//
// Every property is checked against the set allowed for its container, so a
// typo or a misplaced key fails the whole load. Missing 'file' references are
// not fatal: they are reported as FileWarning values and logged.
//
// Watcher reloads the configuration when the main file or any of its includes
// change on disk.
package config
