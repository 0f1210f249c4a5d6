package gba

var handlers [14]func()

// index returns the handler slot of the lowest flag in int, or -1.
func index(int InterruptFlag) int {
	irq := 0
	for flag := InterruptFlag(1); flag != InterruptFlagLast; flag = flag << 1 {
		if flag&int != 0 {
			return irq
		}
		irq += 1
	}
	return -1
}

// SetHandler sets the function called by Dispatch for the interrupt source
// int.  Only the lowest flag in int is used.  Interrupts are masked while
// the table is written.
func SetHandler(int InterruptFlag, handler func()) {
	irq := index(int)
	if irq < 0 {
		return
	}
	state := disableMaster()
	handlers[irq] = handler
	restoreMaster(state)
}

// Dispatch calls the handlers of all pending interrupts, lowest flag first.
// It panics if a pending interrupt has no handler.
func Dispatch(pending InterruptFlag) {
	irq := 0
	for flag := InterruptFlag(1); flag != InterruptFlagLast; flag = flag << 1 {
		if flag&pending != 0 {
			handler := handlers[irq]
			if handler == nil {
				panic("unhandled interrupt")
			}
			handler()
		}
		irq += 1
	}
}
