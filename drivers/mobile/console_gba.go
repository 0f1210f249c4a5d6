//go:build gameboyadvance

package mobile

import (
	"github.com/clktmr/mobile/gba"
	"github.com/clktmr/mobile/gba/serial"
	"github.com/clktmr/mobile/gba/timer"
)

// NewConsole returns a driver for the adapter on the link port, paced by the
// hardware timer id.  Its interrupt handlers are installed in the gba
// dispatcher, replacing any handler set for those sources before.
func NewConsole(id timer.ID, opts ...Option) *Driver {
	d := New(Hardware{
		Serial:     serial.Link,
		Timer:      timer.New(id),
		Interrupts: gba.Controller,
	}, opts...)
	gba.SetHandler(gba.VBlank, d.VBlank)
	gba.SetHandler(id.Interrupt(), d.Timer)
	gba.SetHandler(gba.Serial, d.Serial)
	return d
}
