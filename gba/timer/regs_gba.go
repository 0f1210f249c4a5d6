//go:build gameboyadvance

package timer

import (
	"runtime/volatile"
	"unsafe"
)

const baseAddr uintptr = 0x0400_0100

type registers struct {
	counter volatile.Register16 // reload value when written
	control volatile.Register16
}

type timer struct {
	id   ID
	regs *registers
}

// New returns the register-backed timer id.
func New(id ID) Timer {
	return timer{id, (*registers)(unsafe.Pointer(baseAddr + 4*uintptr(id)))}
}

func (t timer) ID() ID               { return t.id }
func (t timer) SetReload(v uint16)   { t.regs.counter.Set(v) }
func (t timer) SetControl(c Control) { t.regs.control.Set(uint16(c)) }
