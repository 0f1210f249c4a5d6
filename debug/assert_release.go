//go:build !debug

// Package debug checks driver invariants in builds with the debug tag.  In
// release builds the checks compile to nothing, which keeps them out of the
// interrupt handlers.
package debug

// Enabled is true in debug builds.  Checks that walk a packet or otherwise
// cost more than a comparison go behind `if debug.Enabled { ... }`.
const Enabled = false

// Assert panics with message if b is false.
func Assert(b bool, message string) {}
