package packet

import (
	"fmt"

	"github.com/clktmr/mobile/debug"
	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/gba/serial"
)

// Expect is the command family a Sink accepts as response.
type Expect uint8

const (
	ExpectBeginSession Expect = iota
	ExpectSio32
	ExpectWaitForCall
	ExpectDial
	ExpectHangUp
	ExpectReset
	ExpectEndSession
)

var accepted = [...][]adapter.Command{
	ExpectBeginSession: {adapter.BeginSession, adapter.CommandError},
	ExpectSio32:        {adapter.Sio32Mode, adapter.Reset, adapter.CommandError},
	ExpectWaitForCall:  {adapter.WaitForTelephoneCall, adapter.CommandError},
	ExpectDial:         {adapter.DialTelephone, adapter.CommandError},
	ExpectHangUp:       {adapter.HangUpTelephone, adapter.CommandError},
	ExpectReset:        {adapter.Reset, adapter.CommandError},
	ExpectEndSession:   {adapter.EndSession, adapter.CommandError},
}

type stage uint8

const (
	stageCommand stage = iota
	stageLength
	stageData
	stageParsed
)

// Sink parses the response to a single command.  It is fed the command,
// length and payload of the response in order.  Each stage checks its input
// against the expected response and returns an error if it doesn't match,
// leaving it to the caller to drain the rest of the packet.
type Sink struct {
	expect Expect
	width  serial.Width // requested by ExpectSio32
	stage  stage
	got    adapter.Command
	length int
	failed adapter.Failure
}

// NewSink returns a sink waiting for the response command.
func NewSink(e Expect) Sink {
	return Sink{expect: e}
}

// Command consumes the response's command ID.
func (s *Sink) Command(c adapter.Command) error {
	debug.Assert(s.stage == stageCommand, "sink: command out of order")
	for _, want := range accepted[s.expect] {
		if c == want {
			s.got = c
			s.stage = stageLength
			return nil
		}
	}
	return &UnexpectedCommandError{Got: c, Want: accepted[s.expect]}
}

func (s *Sink) wantLength() int {
	switch s.got {
	case adapter.CommandError:
		return 2
	case adapter.BeginSession:
		return len(adapter.Handshake)
	}
	return 0
}

// Length consumes the response's payload length.
func (s *Sink) Length(n int) error {
	debug.Assert(s.stage == stageLength, "sink: length out of order")
	if want := s.wantLength(); n != want {
		return &UnexpectedLengthError{Got: n, Want: want}
	}
	s.length = n
	s.stage = stageData
	if n == 0 {
		s.stage = stageParsed
	}
	return nil
}

// Data consumes the payload byte at index i.
func (s *Sink) Data(i int, b byte) error {
	debug.Assert(s.stage == stageData && i < s.length, "sink: data out of order")
	switch s.got {
	case adapter.BeginSession:
		if b != adapter.Handshake[i] {
			return &HandshakeError{Index: i, Got: b}
		}
	case adapter.CommandError:
		// Any defined command and any code is accepted, Failure.Error
		// describes codes missing from the tables.
		if i == 0 {
			cmd, err := adapter.ParseCommand(b)
			if err != nil {
				return fmt.Errorf("command error parsing failure: %w", err)
			}
			s.failed.Command = cmd
		} else {
			s.failed.Code = b
		}
	}
	if i == s.length-1 {
		s.stage = stageParsed
	}
	return nil
}

// Finish returns the parsed response.  The sink must have consumed a
// complete packet.
func (s *Sink) Finish() Finished {
	debug.Assert(s.stage == stageParsed, "sink: finished before parsed")
	switch s.got {
	case adapter.CommandError:
		failed := s.failed
		return Finished{Err: &failed}
	case adapter.Sio32Mode:
		return Finished{Width: s.width, SetWidth: true}
	case adapter.Reset, adapter.EndSession:
		return Finished{Width: serial.Width8, SetWidth: true}
	}
	return Finished{}
}

// Revert resets the sink for a retransmission of the response.
func (s *Sink) Revert() {
	*s = Sink{expect: s.expect, width: s.width}
}

// Finished is the outcome of a successfully exchanged packet.
type Finished struct {
	// Device is the adapter which acknowledged the response.
	Device adapter.Device

	// Width is the transfer width to use from now on if SetWidth is true.
	Width    serial.Width
	SetWidth bool

	// Err is the error reported by the adapter for the command.
	Err *adapter.Failure
}
