// Package packet implements the packet codec of the mobile adapter protocol.
// A Packet sends one command and receives its response, one byte or word per
// serial transfer.  Both transfer widths use the same logical byte stream:
//
//	[0x99] [0x66] [cmd] [0x00] [len_hi] [len_lo] [data...] [chk_hi] [chk_lo] [ack] [ack]
//
// In 32-bit mode the stream is packed into big-endian words and zero padding
// is inserted before the checksum, so the checksum always ends a word.  The
// two acknowledgement bytes then share a single word.
//
// The codec doesn't know about frames or timers.  The caller pushes the next
// value before each transfer and pulls the received value after it.
package packet

import (
	"fmt"

	"github.com/clktmr/mobile/debug"
	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/gba/serial"
)

// MaxRetries is the number of attempts to send or receive a packet.
const MaxRetries = 5

const (
	magic1    = 0x99
	magic2    = 0x66
	headerLen = 6
	ackDevice = 0x81 // console's acknowledgement byte

	adapterIdle = 0xd2
	consoleIdle = 0x4b
)

// Idle returns the value the adapter shifts out while it's idle.
func Idle(w serial.Width) uint32 {
	if w == serial.Width32 {
		return 0xd2d2d2d2
	}
	return adapterIdle
}

// Filler returns the value the console shifts out while it waits for the
// adapter.
func Filler(w serial.Width) uint32 {
	if w == serial.Width32 {
		return 0x4b4b4b4b
	}
	return consoleIdle
}

type mode uint8

const (
	modeSend mode = iota
	modeReceive
	modeDrain // receiving a packet which already failed
)

func (m mode) String() string {
	return [...]string{"send", "receive", "drain"}[m]
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s %s at %d, attempt %d", p.mode, p.src.Command(), p.pos, p.attempt)
}

// Packet is the state of a single command and response exchange.
type Packet struct {
	mode    mode
	width   serial.Width
	src     Source
	sink    Sink
	pos     int // stream position of the next transfer
	attempt int

	sum    uint16 // precomputed when sending, running when receiving
	length int    // declared length of the received packet
	raw    byte   // received command byte
	got    uint16 // received checksum
	device adapter.Device

	err    error // why the packet is drained
	errCmd adapter.Command
}

// New returns a packet sending src.
func New(w serial.Width, src Source) Packet {
	if debug.Enabled {
		debug.Assert(src.Len() <= maxPayload, "packet: payload too long")
	}
	return Packet{
		mode:  modeSend,
		width: w,
		src:   src,
		sum:   src.Checksum(),
	}
}

// Command returns the command sent by the packet.
func (p *Packet) Command() adapter.Command {
	return p.src.Command()
}

// Attempt returns the number of failed attempts of the current direction.
func (p *Packet) Attempt() int {
	return p.attempt
}

// AwaitingResponse reports whether the next transfer is the first one of the
// response.  The adapter isn't synchronized to our clock at this point, so
// the caller should pace these transfers by frames instead of the timer.
func (p *Packet) AwaitingResponse() bool {
	return p.mode == modeReceive && p.pos == 0
}

func (p *Packet) payloadLen() int {
	if p.mode == modeSend {
		return p.src.Len()
	}
	return p.length
}

func (p *Packet) checksumPos() int {
	n := p.payloadLen()
	pad := 0
	if p.width == serial.Width32 {
		pad = (4 - n%4) % 4
	}
	return headerLen + n + pad
}

func (p *Packet) ackPos() int {
	return p.checksumPos() + 2
}

// Push loads the data register with the value of the next transfer.
func (p *Packet) Push(port serial.Port) {
	if p.width == serial.Width8 {
		port.SetData8(p.byteAt(p.pos))
		return
	}
	debug.Assert(p.pos%4 == 0, "packet: unaligned word transfer")
	var w uint32
	for i := range 4 {
		w = w<<8 | uint32(p.byteAt(p.pos+i))
	}
	port.SetData32(w)
}

func (p *Packet) byteAt(pos int) byte {
	if p.mode == modeSend {
		return p.sendByteAt(pos)
	}
	if pos < headerLen {
		return consoleIdle
	}
	switch ack := p.ackPos(); {
	case pos < ack:
		return consoleIdle
	case pos == ack:
		return ackDevice
	case pos == ack+1:
		return p.reply()
	}
	return 0
}

func (p *Packet) sendByteAt(pos int) byte {
	n := p.src.Len()
	ck := p.checksumPos()
	switch {
	case pos == 0:
		return magic1
	case pos == 1:
		return magic2
	case pos == 2:
		return byte(p.src.Command())
	case pos == 3:
		return 0x00
	case pos == 4:
		return byte(n >> 8)
	case pos == 5:
		return byte(n)
	case pos < headerLen+n:
		return p.src.Byte(pos - headerLen)
	case pos < ck:
		return 0x00
	case pos == ck:
		return byte(p.sum >> 8)
	case pos == ck+1:
		return byte(p.sum)
	case pos == ck+2:
		return ackDevice
	}
	return 0x00
}

// reply is the command byte of the receive acknowledgement.
func (p *Packet) reply() byte {
	if p.mode == modeDrain {
		if p.attempt+1 < MaxRetries {
			return byte(p.errCmd) | 0x80
		}
		return byte(adapter.Empty) | 0x80
	}
	return p.raw ^ 0x80
}

// Pull processes the value received by the last transfer.  It returns done
// when the response was received and acknowledged.  A non-nil error is final,
// the packet must not be used anymore.
func (p *Packet) Pull(port serial.Port) (done bool, fin Finished, err error) {
	v := serial.Read(port, p.width)
	if p.mode == modeSend {
		return p.pullSend(v)
	}
	if p.width == serial.Width8 {
		return p.receiveByte(byte(v))
	}
	return p.receiveWord(v)
}

func (p *Packet) pullSend(v uint32) (bool, Finished, error) {
	pos, ack := p.pos, p.ackPos()
	p.pos += p.width.Bytes()

	if p.width == serial.Width8 {
		switch pos {
		case ack:
			p.setDevice(byte(v))
		case ack + 1:
			return p.acknowledged(byte(v))
		}
		return false, Finished{}, nil
	}

	if pos == ack {
		p.setDevice(byte(v >> 24))
		return p.acknowledged(byte(v >> 16))
	}
	return false, Finished{}, nil
}

func (p *Packet) setDevice(b byte) {
	if dev, err := adapter.ParseDevice(b); err == nil {
		p.device = dev
	}
}

// acknowledged handles the adapter's echo of the sent command.
func (p *Packet) acknowledged(b byte) (bool, Finished, error) {
	var err error
	switch adapter.Command(b ^ 0x80) {
	case adapter.NotSupportedError:
		err = &UnsupportedCommandError{p.src.Command()}
	case adapter.MalformedError:
		err = ErrMalformed
	case adapter.InternalError:
		err = ErrAdapterInternal
	default:
		p.sink = p.src.Sink()
		p.receive(0)
		return false, Finished{}, nil
	}

	if p.attempt+1 < MaxRetries {
		p.attempt++
		p.pos = 0
		return false, Finished{}, nil
	}
	return false, Finished{}, &SendError{err}
}

// receive starts (or restarts) receiving the response.
func (p *Packet) receive(attempt int) {
	p.mode = modeReceive
	p.pos = 0
	p.attempt = attempt
	p.sum = 0
	p.length = 0
	p.raw = 0
	p.got = 0
	p.err = nil
}

func (p *Packet) drain(err error) {
	p.mode = modeDrain
	p.err = err
	p.errCmd = errorCommand(err)
}

func (p *Packet) retry() (bool, Finished, error) {
	if p.attempt+1 < MaxRetries {
		p.sink.Revert()
		p.receive(p.attempt + 1)
		return false, Finished{}, nil
	}
	return false, Finished{}, &ReceiveError{p.err}
}

func (p *Packet) finish() Finished {
	fin := p.sink.Finish()
	fin.Device = p.device
	return fin
}

func (p *Packet) receiveWord(v uint32) (bool, Finished, error) {
	if p.AwaitingResponse() && byte(v>>24) == adapterIdle {
		return false, Finished{}, nil
	}

	if p.pos >= headerLen && p.pos == p.ackPos() {
		if p.mode == modeDrain {
			return p.retry()
		}
		dev, err := adapter.ParseDevice(byte(v >> 24))
		if err != nil {
			return false, Finished{}, &ReceiveError{err}
		}
		if b := byte(v >> 16); b != 0 {
			return false, Finished{}, &ReceiveError{NonZeroAckError(b)}
		}
		p.device = dev
		return true, p.finish(), nil
	}

	for shift := 24; shift >= 0; shift -= 8 {
		if _, _, err := p.receiveByte(byte(v >> shift)); err != nil {
			return false, Finished{}, err
		}
	}
	return false, Finished{}, nil
}

func (p *Packet) receiveByte(b byte) (bool, Finished, error) {
	pos := p.pos
	if p.mode == modeDrain {
		switch {
		case pos == 4:
			p.length = int(b) << 8
		case pos == 5:
			p.length |= int(b)
		case pos > 5 && pos == p.ackPos()+1:
			return p.retry()
		}
		p.pos++
		return false, Finished{}, nil
	}

	var err error
	switch {
	case pos == 0:
		if b == adapterIdle {
			return false, Finished{}, nil
		}
		if b != magic1 {
			err = &MagicValueError{0, b, magic1}
		}
	case pos == 1:
		if b != magic2 {
			err = &MagicValueError{1, b, magic2}
		}
	case pos == 2:
		p.raw = b
		p.sum += uint16(b)
		var cmd adapter.Command
		if cmd, err = adapter.ParseCommand(b & 0x7f); err == nil {
			err = p.sink.Command(cmd)
		}
	case pos == 3:
		p.sum += uint16(b)
	case pos == 4:
		p.sum += uint16(b)
		p.length = int(b) << 8
	case pos == 5:
		p.sum += uint16(b)
		p.length |= int(b)
		err = p.sink.Length(p.length)
	case pos < headerLen+p.length:
		p.sum += uint16(b)
		if e := p.sink.Data(pos-headerLen, b); e != nil {
			err = &MalformedDataError{pos - headerLen, e}
		}
	case pos < p.checksumPos():
		// padding
	case pos == p.checksumPos():
		p.got = uint16(b) << 8
	case pos == p.checksumPos()+1:
		p.got |= uint16(b)
		if p.got != p.sum {
			err = &ChecksumError{Calculated: p.sum, Received: p.got}
		}
	case pos == p.ackPos():
		var dev adapter.Device
		if dev, err = adapter.ParseDevice(b); err == nil {
			p.device = dev
		}
	default:
		if b != 0 {
			return false, Finished{}, &ReceiveError{NonZeroAckError(b)}
		}
		return true, p.finish(), nil
	}

	if err != nil {
		p.drain(err)
	}
	p.pos++
	return false, Finished{}, nil
}
