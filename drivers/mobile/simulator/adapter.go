package simulator

import (
	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/gba/serial"
)

const (
	magic1    = 0x99
	magic2    = 0x66
	headerLen = 6
	idle      = 0xd2
)

// Received is a packet sent by the console.
type Received struct {
	Command adapter.Command
	Data    []byte
	Raw     []byte // every byte from the first magic byte to the acknowledgement
	Echo    byte
}

// listener parses a packet from the console.
type listener struct {
	pos    int
	width  serial.Width
	cmd    byte
	length int
	data   []byte
	raw    []byte
	sum    uint16
	got    uint16
	echo   byte
}

func (l *listener) checksumPos() int {
	pad := 0
	if l.width == serial.Width32 {
		pad = (4 - l.length%4) % 4
	}
	return headerLen + l.length + pad
}

func (l *listener) ackPos() int { return l.checksumPos() + 2 }

// lastPos is the position of the last byte of the acknowledgement.
func (l *listener) lastPos() int {
	if l.width == serial.Width32 {
		return l.ackPos() + 3
	}
	return l.ackPos() + 1
}

type effect uint8

const (
	effectNone effect = iota
	effectWidth8
	effectWidth32
)

// responder sends a response to the console.
type responder struct {
	out    []byte
	i      int
	ack    int // index of the acknowledgement
	cmd    adapter.Command
	reply  byte
	effect effect

	payload []byte // for retransmissions
}

func (s *Sim) output() byte {
	if s.cfg.Disconnected {
		return 0xff
	}
	if s.responding {
		return s.tx.out[s.tx.i]
	}
	l := &s.rx
	if l.pos < headerLen {
		return idle
	}
	switch ack := l.ackPos(); {
	case l.pos < ack:
		return idle
	case l.pos == ack:
		return byte(s.cfg.Device)
	case l.pos == ack+1:
		return l.echo
	}
	return 0x00
}

func (s *Sim) consume(b byte) {
	if s.cfg.Disconnected {
		return
	}
	if s.responding {
		s.respondByte(b)
		return
	}
	s.listenByte(b)
}

func (s *Sim) listenByte(b byte) {
	l := &s.rx
	pos := l.pos
	l.pos++
	if pos > 0 {
		l.raw = append(l.raw, b)
	}
	switch {
	case pos == 0:
		l.pos = 0
		if b == magic1 {
			l.pos = 1
			l.width = s.width
			l.sum, l.length = 0, 0
			l.data = l.data[:0]
			l.raw = append(l.raw[:0], b)
		}
	case pos == 1:
		if b != magic2 {
			l.pos = 0
		}
	case pos == 2:
		l.cmd = b
		l.sum += uint16(b)
	case pos == 3:
		l.sum += uint16(b)
	case pos == 4:
		l.sum += uint16(b)
		l.length = int(b) << 8
	case pos == 5:
		l.sum += uint16(b)
		l.length |= int(b)
	case pos < headerLen+l.length:
		l.sum += uint16(b)
		l.data = append(l.data, b)
	case pos < l.checksumPos():
	case pos == l.checksumPos():
		l.got = uint16(b) << 8
	case pos == l.checksumPos()+1:
		l.got |= uint16(b)
	case pos == l.ackPos():
		l.echo = s.echo()
	case pos == l.lastPos():
		l.pos = 0
		s.Received = append(s.Received, Received{
			Command: adapter.Command(l.cmd),
			Data:    append([]byte(nil), l.data...),
			Raw:     append([]byte(nil), l.raw...),
			Echo:    l.echo,
		})
		if l.echo == l.cmd^0x80 {
			s.execute(adapter.Command(l.cmd), l.data)
		}
	}
}

// echo is the adapter's answer to the packet just received.
func (s *Sim) echo() byte {
	l := &s.rx
	switch {
	case l.got != l.sum:
		return byte(adapter.MalformedError) ^ 0x80
	case s.cfg.RejectPackets > 0:
		s.cfg.RejectPackets--
		return byte(adapter.InternalError) ^ 0x80
	case !supported(adapter.Command(l.cmd)):
		return byte(adapter.NotSupportedError) ^ 0x80
	}
	return l.cmd ^ 0x80
}

func supported(c adapter.Command) bool {
	switch c {
	case adapter.BeginSession, adapter.EndSession, adapter.Sio32Mode, adapter.Reset,
		adapter.WaitForTelephoneCall, adapter.DialTelephone, adapter.HangUpTelephone:
		return true
	}
	return false
}

func (s *Sim) execute(c adapter.Command, data []byte) {
	switch c {
	case adapter.BeginSession:
		switch {
		case s.session:
			s.fail(c, 1)
		case string(data) != adapter.Handshake:
			s.fail(c, 2)
		default:
			s.session = true
			s.respond(c, effectNone, []byte(adapter.Handshake)...)
		}
	case adapter.EndSession:
		s.session = false
		s.inCall = false
		s.respond(c, effectWidth8)
	case adapter.Sio32Mode:
		switch {
		case len(data) != 1 || data[0] > 1:
			s.fail(c, 2)
		case data[0] == 1:
			s.respond(c, effectWidth32)
		default:
			s.respond(c, effectWidth8)
		}
	case adapter.Reset:
		s.inCall = false
		s.respond(c, effectWidth8)
	case adapter.WaitForTelephoneCall:
		s.polls++
		switch {
		case s.inCall:
			s.fail(c, 1)
		case s.cfg.IncomingCallAfter > 0 && s.polls >= s.cfg.IncomingCallAfter:
			s.inCall = true
			s.respond(c, effectNone)
		default:
			s.fail(c, 0)
		}
	case adapter.DialTelephone:
		if len(data) > 0 {
			s.Dialed = string(data[1:])
		}
		switch {
		case s.inCall:
			s.fail(c, 1)
		case s.cfg.RejectDial:
			s.fail(c, s.cfg.DialErrorCode)
		default:
			s.inCall = true
			s.respond(c, effectNone)
		}
	case adapter.HangUpTelephone:
		if !s.inCall {
			s.fail(c, 1)
			return
		}
		s.inCall = false
		s.respond(c, effectNone)
	}
}

func (s *Sim) fail(c adapter.Command, code byte) {
	s.respond(adapter.CommandError, effectNone, byte(c), code)
}

func (s *Sim) respond(c adapter.Command, e effect, payload ...byte) {
	s.tx = responder{cmd: c, effect: e, payload: payload}
	s.encode()
	s.responding = true
}

// encode builds the response stream, preceded by the configured latency.
func (s *Sim) encode() {
	t := &s.tx
	n := len(t.payload)
	out := t.out[:0]
	for range s.cfg.Latency * s.width.Bytes() {
		out = append(out, idle)
	}
	start := len(out)
	out = append(out, magic1, magic2, byte(t.cmd)|0x80, 0x00, byte(n>>8), byte(n))
	out = append(out, t.payload...)
	var sum uint16
	for _, b := range out[start+2:] {
		sum += uint16(b)
	}
	if s.width == serial.Width32 {
		for range (4 - n%4) % 4 {
			out = append(out, 0x00)
		}
	}
	if s.cfg.CorruptChecksums > 0 {
		s.cfg.CorruptChecksums--
		sum = ^sum
	}
	out = append(out, byte(sum>>8), byte(sum))
	t.ack = len(out)
	out = append(out, byte(s.cfg.Device), 0x00)
	if s.width == serial.Width32 {
		out = append(out, 0x00, 0x00)
	}
	t.out, t.i, t.reply = out, 0, 0
}

func (s *Sim) respondByte(b byte) {
	t := &s.tx
	if t.i == t.ack+1 {
		t.reply = b
	}
	t.i++
	if t.i < len(t.out) {
		return
	}

	switch t.reply {
	case byte(t.cmd):
		s.responding = false
		switch t.effect {
		case effectWidth8:
			s.width = serial.Width8
		case effectWidth32:
			s.width = serial.Width32
		}
	case byte(adapter.MalformedError) | 0x80, byte(adapter.NotSupportedError) | 0x80:
		s.encode()
	default:
		// the console gave up
		s.responding = false
	}
}
