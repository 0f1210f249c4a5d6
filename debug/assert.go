//go:build debug

package debug

// Enabled is true in debug builds.  Checks that walk a packet or otherwise
// cost more than a comparison go behind `if debug.Enabled { ... }`.
const Enabled = true

func Assert(b bool, message string) {
	if !b {
		panic(message)
	}
}
