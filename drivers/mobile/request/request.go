// Package request schedules the activity on the serial line: a packet, a
// wait for the adapter to become idle, or a single idle keep-alive transfer.
//
// A request is advanced by the three interrupts.  Timeouts are counted in
// frames, so VBlank must be called once per frame while a request is in
// flight.
package request

import (
	"github.com/clktmr/mobile/drivers/mobile/packet"
	"github.com/clktmr/mobile/gba/serial"
	"github.com/clktmr/mobile/gba/timer"
)

// Durations in frames.
const (
	HundredMilliseconds = 7
	OneSecond           = 60
	ThreeSeconds        = 180
	FifteenSeconds      = 900
)

// Timer reloads giving the adapter time to prepare the next transfer, about
// 200us in 8-bit and 400us in 32-bit mode.
const (
	reload8  = 0x10000 - 4
	reload32 = 0x10000 - 7
)

// Bus is the hardware a request operates on.
type Bus struct {
	Serial serial.Port
	Timer  timer.Timer
}

func (b Bus) schedule(w serial.Width) {
	reload := uint16(reload8)
	if w == serial.Width32 {
		reload = reload32
	}
	timer.Schedule(b.Timer, reload, timer.Freq1024)
}

type Kind uint8

const (
	KindPacket Kind = iota
	KindWaitForIdle
	KindIdle
)

func (k Kind) String() string {
	return [...]string{"packet", "wait for idle", "idle"}[k]
}

// Request is a single activity on the serial line.
type Request struct {
	kind   Kind
	width  serial.Width
	packet packet.Packet
	frame  int // frames since the last transfer or since the request started
	wait   int // frames waited for the adapter's response
}

// NewPacket starts exchanging src with the adapter.
func NewPacket(bus Bus, w serial.Width, src packet.Source) Request {
	bus.schedule(w)
	return Request{kind: KindPacket, width: w, packet: packet.New(w, src)}
}

// NewWaitForIdle starts polling the adapter every 100ms until it's idle.
func NewWaitForIdle(w serial.Width) Request {
	return Request{kind: KindWaitForIdle, width: w}
}

// NewIdle starts a single transfer which expects the adapter to be idle.
func NewIdle(bus Bus, w serial.Width) Request {
	bus.schedule(w)
	return Request{kind: KindIdle, width: w}
}

func (r *Request) Kind() Kind { return r.kind }

// Packet returns the packet of a KindPacket request.
func (r *Request) Packet() *packet.Packet { return &r.packet }

func (r *Request) poll(bus Bus) {
	serial.Write(bus.Serial, r.width, packet.Filler(r.width))
	serial.StartTransfer(bus.Serial, r.width)
}

// VBlank counts a frame.  It returns a *TimeoutError if the request took
// too long.
func (r *Request) VBlank(bus Bus) error {
	switch r.kind {
	case KindPacket:
		if r.packet.AwaitingResponse() {
			r.wait++
			if r.wait > FifteenSeconds {
				return &TimeoutError{KindPacket, packet.ErrResponseTimeout}
			}
			if (r.wait-1)%HundredMilliseconds == 0 {
				r.packet.Push(bus.Serial)
				serial.StartTransfer(bus.Serial, r.width)
			}
			return nil
		}
		r.frame++
		if r.frame > ThreeSeconds {
			return &TimeoutError{KindPacket, packet.ErrSerialTimeout}
		}
	case KindWaitForIdle:
		r.frame++
		if r.frame > ThreeSeconds {
			return &TimeoutError{Kind: KindWaitForIdle}
		}
		if (r.frame-1)%HundredMilliseconds == 0 {
			r.poll(bus)
		}
	case KindIdle:
		r.frame++
		if r.frame > ThreeSeconds {
			return &TimeoutError{Kind: KindIdle}
		}
	}
	return nil
}

// Timer starts the next transfer.  The timer must already be stopped.
func (r *Request) Timer(bus Bus) {
	switch r.kind {
	case KindPacket:
		r.packet.Push(bus.Serial)
		serial.StartTransfer(bus.Serial, r.width)
	case KindIdle:
		r.poll(bus)
	}
}

// Serial handles a finished transfer.  It returns done when the request is
// complete, the result is only meaningful for packets.  A non-nil error is
// final.
func (r *Request) Serial(bus Bus) (done bool, fin packet.Finished, err error) {
	switch r.kind {
	case KindPacket:
		r.frame = 0
		awaiting := r.packet.AwaitingResponse()
		done, fin, err = r.packet.Pull(bus.Serial)
		if err != nil {
			return false, fin, &Error{err}
		}
		if done {
			if fin.SetWidth {
				serial.SetWidth(bus.Serial, fin.Width)
			}
			return true, fin, nil
		}
		if r.packet.AwaitingResponse() {
			if !awaiting {
				r.wait = 0
			}
		} else {
			bus.schedule(r.width)
		}
	case KindWaitForIdle:
		if serial.Read(bus.Serial, r.width) == packet.Idle(r.width) {
			return true, fin, nil
		}
	case KindIdle:
		if v := serial.Read(bus.Serial, r.width); v != packet.Idle(r.width) {
			return false, fin, &NotIdleError{r.width, v}
		}
		return true, fin, nil
	}
	return false, fin, nil
}
