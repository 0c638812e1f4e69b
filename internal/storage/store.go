package storage

import "github.com/getmockd/stubby/pkg/config"

// Store provides the active configuration snapshot.
type Store interface {
	// Snapshot returns the active snapshot. It never returns nil.
	Snapshot() *Snapshot

	// Replace installs cfg as the active configuration and returns the new
	// snapshot. Cursors start over.
	Replace(cfg *config.Configuration) *Snapshot
}

// Ensure Repository implements Store.
var _ Store = (*Repository)(nil)
