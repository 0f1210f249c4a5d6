// Package timer gives access to the four 16-bit hardware timers.  A timer
// counts up from its reload value and raises an interrupt on overflow.
package timer

import "github.com/clktmr/mobile/gba"

// ID selects one of the hardware timers.
type ID uint8

const (
	Timer0 ID = iota
	Timer1
	Timer2
	Timer3
)

// Interrupt returns the interrupt flag raised by the timer's overflow.
func (id ID) Interrupt() gba.InterruptFlag {
	return gba.Timer0 << id
}

// Prescaler selects the number of system clock cycles per timer tick.
type Prescaler uint16

const (
	Freq1 Prescaler = iota
	Freq64
	Freq256
	Freq1024
)

// Cycles returns the number of system clock cycles per tick.
func (p Prescaler) Cycles() int {
	return [...]int{1, 64, 256, 1024}[p&3]
}

// Control is the TMxCNT register.
type Control uint16

const (
	PrescalerMask Control = 0x3
	Cascade       Control = 1 << 2
	IRQEnable     Control = 1 << 6
	Enable        Control = 1 << 7
)

// Timer gives access to the registers of a single timer.
type Timer interface {
	ID() ID
	SetReload(v uint16)
	SetControl(c Control)
}

// Schedule restarts t so that it overflows after 0x10000-reload ticks.
func Schedule(t Timer, reload uint16, p Prescaler) {
	t.SetControl(0)
	t.SetReload(reload)
	t.SetControl(Control(p) | IRQEnable | Enable)
}

// Stop halts t, a pending overflow won't fire.
func Stop(t Timer) {
	t.SetControl(0)
}
