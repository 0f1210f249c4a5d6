package packet

import (
	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/gba/serial"
)

const maxPayload = 1 + adapter.MaxDigits

// Source is a command sent to the adapter.  It's a plain value so packets
// can be built from interrupt handlers.
type Source struct {
	cmd     adapter.Command
	n       uint8
	payload [maxPayload]byte
	expect  Expect
	width   serial.Width
}

func BeginSession() Source {
	s := Source{cmd: adapter.BeginSession, expect: ExpectBeginSession}
	s.n = uint8(copy(s.payload[:], adapter.Handshake))
	return s
}

// EnableSio32 switches the adapter to 32-bit transfers.
func EnableSio32() Source {
	return Source{cmd: adapter.Sio32Mode, n: 1, payload: [maxPayload]byte{1},
		expect: ExpectSio32, width: serial.Width32}
}

// DisableSio32 switches the adapter back to 8-bit transfers.
func DisableSio32() Source {
	return Source{cmd: adapter.Sio32Mode, n: 1, expect: ExpectSio32, width: serial.Width8}
}

func WaitForCall() Source {
	return Source{cmd: adapter.WaitForTelephoneCall, expect: ExpectWaitForCall}
}

// Dial calls number.  The payload starts with the dial byte of the adapter
// doing the call.
func Dial(dev adapter.Device, number adapter.PhoneNumber) Source {
	s := Source{cmd: adapter.DialTelephone, expect: ExpectDial}
	s.payload[0] = dev.DialByte()
	for i := range number.Len() {
		s.payload[1+i] = number.Digit(i)
	}
	s.n = uint8(1 + number.Len())
	return s
}

func HangUp() Source {
	return Source{cmd: adapter.HangUpTelephone, expect: ExpectHangUp}
}

func Reset() Source {
	return Source{cmd: adapter.Reset, expect: ExpectReset}
}

func EndSession() Source {
	return Source{cmd: adapter.EndSession, expect: ExpectEndSession}
}

func (s *Source) Command() adapter.Command { return s.cmd }

// Len returns the payload length.
func (s *Source) Len() int { return int(s.n) }

// Byte returns the payload byte at index i.
func (s *Source) Byte(i int) byte { return s.payload[i] }

// Sink returns a sink for the command's response.
func (s *Source) Sink() Sink {
	return Sink{expect: s.expect, width: s.width}
}

// Checksum returns the checksum of the packet carrying s.
func (s *Source) Checksum() uint16 {
	// the reserved byte and the high byte of the length are always zero
	sum := uint16(s.cmd) + uint16(s.n)
	for _, b := range s.payload[:s.n] {
		sum += uint16(b)
	}
	return sum
}
