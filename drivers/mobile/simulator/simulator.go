// Package simulator emulates a Mobile Adapter GB and the console hardware the
// driver talks to: the serial port, a timer and the interrupt controller.
//
// Time advances frame by frame.  Frame raises the vertical blank interrupt
// and then runs the serial port and timer for the cycles of one frame,
// raising their interrupts on a Handler.
package simulator

import (
	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/gba"
	"github.com/clktmr/mobile/gba/serial"
	"github.com/clktmr/mobile/gba/timer"
)

// CyclesPerFrame is the number of system clock cycles of a single frame.
const CyclesPerFrame = 280896

// Cycles per bit at the 256KHz serial clock.
const cyclesPerBit = 64

// Config describes the simulated adapter's behaviour.
type Config struct {
	Device adapter.Device
	Timer  timer.ID

	// Latency is the number of transfers the adapter answers with idle bytes
	// before sending a response.
	Latency int

	// IncomingCallAfter is the number of WaitForTelephoneCall commands after
	// which a call arrives.  No call arrives if it's zero.
	IncomingCallAfter int

	// RejectDial makes DialTelephone fail with DialErrorCode.
	RejectDial    bool
	DialErrorCode byte

	// Faults injected into the next packets.
	CorruptChecksums int // responses with a wrong checksum
	RejectPackets    int // commands answered with an internal error

	// Disconnected simulates a missing adapter, reading as 0xff.
	Disconnected bool

	// SessionActive starts the adapter with a session left over from an
	// earlier connection.
	SessionActive bool
}

// DefaultConfig is a blue adapter which never receives calls.
var DefaultConfig = Config{Device: adapter.Blue, Timer: timer.Timer3}

// Handler receives the interrupts raised by the simulator.
type Handler interface {
	VBlank()
	Timer()
	Serial()
}

// Exchange is a single serial transfer.
type Exchange struct {
	Frame   int
	Width   serial.Width
	Console uint32
	Adapter uint32
}

// Sim is a simulated adapter connected to simulated console hardware.
type Sim struct {
	cfg Config

	ie    gba.InterruptFlag
	port  port
	timer timerRegs
	frame int

	width      serial.Width
	session    bool
	inCall     bool
	polls      int
	rx         listener
	tx         responder
	responding bool

	// Received holds every complete packet sent by the console.
	Received []Received

	// Dialed is the last number dialed by the console.
	Dialed string

	// OnExchange is called after every transfer if set.
	OnExchange func(Exchange)
}

func New(cfg Config) *Sim {
	s := &Sim{cfg: cfg, session: cfg.SessionActive}
	s.port.sim = s
	s.timer.sim = s
	s.timer.id = cfg.Timer
	return s
}

// Serial returns the console's serial port.
func (s *Sim) Serial() serial.Port { return &s.port }

// Timer returns the console timer selected by the config.
func (s *Sim) Timer() timer.Timer { return &s.timer }

func (s *Sim) EnableInterrupts(mask gba.InterruptFlag)  { s.ie |= mask }
func (s *Sim) DisableInterrupts(mask gba.InterruptFlag) { s.ie &^= mask }

// Interrupts returns the enabled interrupts.
func (s *Sim) Interrupts() gba.InterruptFlag { return s.ie }

// Frame returns the number of frames simulated so far.
func (s *Sim) Frame() int { return s.frame }

func (s *Sim) Width() serial.Width { return s.width }
func (s *Sim) SessionActive() bool { return s.session }
func (s *Sim) InCall() bool        { return s.inCall }

// Configure changes the adapter's behaviour.
func (s *Sim) Configure(fn func(*Config)) {
	fn(&s.cfg)
}

// Commands returns the commands of all received packets.
func (s *Sim) Commands() []adapter.Command {
	cmds := make([]adapter.Command, len(s.Received))
	for i, r := range s.Received {
		cmds[i] = r.Command
	}
	return cmds
}

// RunFrame simulates a single frame.
func (s *Sim) RunFrame(h Handler) {
	s.frame++
	if s.ie&gba.VBlank != 0 {
		h.VBlank()
	}
	for budget := CyclesPerFrame; budget > 0; {
		step := budget
		if s.port.busy && s.port.remaining < step {
			step = s.port.remaining
		}
		if s.timer.enabled() && s.timer.remaining < step {
			step = s.timer.remaining
		}
		budget -= step
		if s.port.busy {
			s.port.remaining -= step
		}
		if s.timer.enabled() {
			s.timer.remaining -= step
		}

		if s.port.busy && s.port.remaining == 0 {
			s.port.complete()
			if s.port.ctrl&serial.IRQEnable != 0 && s.ie&gba.Serial != 0 {
				h.Serial()
			}
		}
		if s.timer.enabled() && s.timer.remaining == 0 {
			s.timer.remaining = s.timer.period()
			if s.timer.ctrl&timer.IRQEnable != 0 && s.ie&s.timer.id.Interrupt() != 0 {
				h.Timer()
			}
		}
	}
}

// Run simulates n frames.
func (s *Sim) Run(h Handler, n int) {
	for range n {
		s.RunFrame(h)
	}
}

// RunUntil simulates frames until cond returns true, at most n.  It returns
// false if cond never returned true.
func (s *Sim) RunUntil(h Handler, n int, cond func() bool) bool {
	for range n {
		if cond() {
			return true
		}
		s.RunFrame(h)
	}
	return cond()
}

// exchange shifts a single byte in both directions.  The adapter's byte is
// determined before it sees the console's.
func (s *Sim) exchange(in byte) byte {
	out := s.output()
	s.consume(in)
	return out
}

func (s *Sim) transfer(w serial.Width, in uint32) uint32 {
	var out uint32
	if w == serial.Width8 {
		out = uint32(s.exchange(byte(in)))
	} else {
		for shift := 24; shift >= 0; shift -= 8 {
			out = out<<8 | uint32(s.exchange(byte(in>>shift)))
		}
	}
	if s.OnExchange != nil {
		s.OnExchange(Exchange{Frame: s.frame, Width: w, Console: in, Adapter: out})
	}
	return out
}
