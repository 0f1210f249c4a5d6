package mobile

// Generation distinguishes successive link or call attempts.  A pending
// result holding an old generation is stale.
type Generation uint16

// Increment returns the next generation, wrapping around after 0xffff.
func (g Generation) Increment() Generation {
	return g + 1
}
