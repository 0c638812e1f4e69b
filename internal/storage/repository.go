package storage

import (
	"sync/atomic"

	"github.com/getmockd/stubby/pkg/config"
)

// Repository holds the active Snapshot behind an atomic pointer. Readers
// never block and never see a partially installed configuration.
type Repository struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewRepository creates a repository serving cfg. A nil cfg serves nothing.
func NewRepository(cfg *config.Configuration) *Repository {
	r := &Repository{}
	r.Replace(cfg)
	return r
}

// Snapshot returns the active snapshot.
func (r *Repository) Snapshot() *Snapshot {
	return r.current.Load()
}

// Replace installs cfg with fresh cursors.
func (r *Repository) Replace(cfg *config.Configuration) *Snapshot {
	s := newSnapshot(cfg, r.version.Add(1))
	r.current.Store(s)
	return s
}
