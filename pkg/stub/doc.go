// Package stub defines the configuration model served by stubby: HTTP stub
// lifecycles, proxy configs and web socket configs.
//
// Values in this package are built once by the YAML loader in pkg/config and
// treated as read-only afterwards. Mutable runtime state (sequence cursors,
// per-connection web socket progress) lives in internal/storage and
// pkg/websocket and refers back to these values by identity.
package stub
