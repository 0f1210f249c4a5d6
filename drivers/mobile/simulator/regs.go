package simulator

import (
	"github.com/clktmr/mobile/gba/serial"
	"github.com/clktmr/mobile/gba/timer"
)

// port implements serial.Port.
type port struct {
	sim  *Sim
	mode serial.Mode
	ctrl serial.Control

	out uint32 // written by the console
	in  uint32 // received by the last transfer

	busy      bool
	width     serial.Width
	latched   uint32
	remaining int
}

func (p *port) SetMode(m serial.Mode)   { p.mode = m }
func (p *port) Control() serial.Control { return p.ctrl }

func (p *port) SetControl(c serial.Control) {
	p.ctrl = c
	if c&serial.Start == 0 {
		p.busy = false
		return
	}
	if p.busy || c&serial.InternalClock == 0 || p.mode != serial.ModeNormal {
		return
	}
	p.busy = true
	p.width = serial.Width8
	bits := 8
	if c&serial.Transfer32 != 0 {
		p.width = serial.Width32
		bits = 32
	}
	p.latched = p.out
	p.remaining = bits * cyclesPerBit
}

func (p *port) complete() {
	p.busy = false
	p.ctrl &^= serial.Start
	p.in = p.sim.transfer(p.width, p.latched)
}

func (p *port) Data8() uint8       { return uint8(p.in) }
func (p *port) SetData8(v uint8)   { p.out = uint32(v) }
func (p *port) Data32() uint32     { return p.in }
func (p *port) SetData32(v uint32) { p.out = v }

// timerRegs implements timer.Timer.
type timerRegs struct {
	sim       *Sim
	id        timer.ID
	reload    uint16
	ctrl      timer.Control
	remaining int
}

func (t *timerRegs) ID() timer.ID       { return t.id }
func (t *timerRegs) SetReload(v uint16) { t.reload = v }

func (t *timerRegs) SetControl(c timer.Control) {
	wasEnabled := t.enabled()
	t.ctrl = c
	if t.enabled() && !wasEnabled {
		t.remaining = t.period()
	}
}

func (t *timerRegs) enabled() bool { return t.ctrl&timer.Enable != 0 }

// period is the number of cycles between two overflows.
func (t *timerRegs) period() int {
	p := timer.Prescaler(t.ctrl & timer.PrescalerMask)
	return (0x10000 - int(t.reload)) * p.Cycles()
}
