// Package storage holds the active stub configuration and the mutable state
// attached to it.
//
// A Snapshot is an immutable view of one loaded configuration plus one
// response Cursor per lifecycle. Repository swaps snapshots atomically on
// reload; requests keep using the snapshot they started with, so a reload
// never tears a match or a sequence in progress.
package storage
