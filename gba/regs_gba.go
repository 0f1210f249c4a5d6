//go:build gameboyadvance

package gba

import (
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

var regs *registers = (*registers)(unsafe.Pointer(baseAddr))

const baseAddr uintptr = 0x0400_0200

type registers struct {
	enable  volatile.Register16 // IE
	pending volatile.Register16 // IF, writing a bit acknowledges it
	waitcnt volatile.Register16
	_       volatile.Register16
	master  volatile.Register16 // IME
}

// DISPSTAT, its vblank IRQ bit gates the vblank interrupt.
var dispstat = (*volatile.Register16)(unsafe.Pointer(uintptr(0x0400_0004)))

const dispstatVBlankIRQ = 1 << 3

// Controller is the console's interrupt controller.
var Controller Interrupts = controller{}

type controller struct{}

func (controller) EnableInterrupts(mask InterruptFlag) {
	if mask&VBlank != 0 {
		dispstat.SetBits(dispstatVBlankIRQ)
	}
	regs.enable.SetBits(uint16(mask))
	regs.master.Set(1)
}

func (controller) DisableInterrupts(mask InterruptFlag) {
	regs.enable.ClearBits(uint16(mask))
}

func disableMaster() uint16 {
	s := regs.master.Get()
	regs.master.Set(0)
	return s
}

func restoreMaster(s uint16) { regs.master.Set(s) }

// The runtime acknowledges the interrupts and calls these for every pending
// flag, enabled or not.
func init() {
	interrupt.New(machine.IRQ_VBLANK, func(interrupt.Interrupt) { dispatch(VBlank) })
	interrupt.New(machine.IRQ_TIMER0, func(interrupt.Interrupt) { dispatch(Timer0) })
	interrupt.New(machine.IRQ_TIMER1, func(interrupt.Interrupt) { dispatch(Timer1) })
	interrupt.New(machine.IRQ_TIMER2, func(interrupt.Interrupt) { dispatch(Timer2) })
	interrupt.New(machine.IRQ_TIMER3, func(interrupt.Interrupt) { dispatch(Timer3) })
	interrupt.New(machine.IRQ_COM, func(interrupt.Interrupt) { dispatch(Serial) })
}

func dispatch(flag InterruptFlag) {
	Dispatch(flag & InterruptFlag(regs.enable.Get()))
}
