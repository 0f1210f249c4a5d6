package trace

import (
	"fmt"
	"strings"

	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/gba/serial"
)

const (
	magic1    = 0x99
	magic2    = 0x66
	headerLen = 6
)

// Side is the sender of a packet.
type Side uint8

const (
	Console Side = iota
	Adapter
)

func (s Side) String() string {
	if s == Adapter {
		return "adapter"
	}
	return "console"
}

// Packet is a packet found in a trace.
type Packet struct {
	Frame int
	From  Side
	Width serial.Width

	// Raw is the command byte as sent.  Responses have bit 7 set.
	Raw  byte
	Data []byte

	Checksum uint16 // as sent
	Sum      uint16 // computed over the header and data

	// Ack holds the sender's two acknowledgement bytes and Reply the bytes
	// the receiver shifted out at the same time: its device ID and the echo
	// of the command.
	Ack, Reply [2]byte
}

// Command returns the command of the packet.
func (p *Packet) Command() adapter.Command {
	return adapter.Command(p.Raw &^ 0x80)
}

func (p *Packet) Valid() bool { return p.Checksum == p.Sum }

func (p *Packet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%6d  %-7s  %s", p.Frame, p.From, p.Command())
	if p.Raw&0x80 != 0 {
		sb.WriteString(" response")
	}
	if len(p.Data) > 0 {
		fmt.Fprintf(&sb, " [% x]", p.Data)
	}
	if !p.Valid() {
		fmt.Fprintf(&sb, " checksum %#04x, expected %#04x", p.Checksum, p.Sum)
	}
	fmt.Fprintf(&sb, "  reply % x", p.Reply[:])
	return sb.String()
}

// stream reassembles the packets shifted out by one side.
type stream struct {
	from   Side
	frame  int
	width  serial.Width
	pos    int
	length int
	pkt    Packet
}

func (s *stream) reset() {
	s.pos = 0
	s.pkt = Packet{}
}

func (s *stream) checksumPos() int {
	pad := 0
	if s.width == serial.Width32 {
		pad = (4 - s.length%4) % 4
	}
	return headerLen + s.length + pad
}

func (s *stream) lastPos() int {
	if s.width == serial.Width32 {
		return s.checksumPos() + 5
	}
	return s.checksumPos() + 3
}

// feed consumes the sender's byte b and the peer's byte peer of the same
// transfer.  It returns a packet once its last byte was seen.
func (s *stream) feed(b, peer byte) (Packet, bool) {
	pos := s.pos
	s.pos++
	switch {
	case pos == 0:
		if b != magic1 {
			s.pos = 0
			return Packet{}, false
		}
		s.pkt = Packet{Frame: s.frame, From: s.from, Width: s.width}
	case pos == 1:
		if b != magic2 {
			s.reset()
			if b == magic1 {
				return s.feed(b, peer)
			}
		}
	case pos == 2:
		s.pkt.Raw = b
		s.pkt.Sum += uint16(b)
	case pos == 3:
		s.pkt.Sum += uint16(b)
	case pos == 4:
		s.pkt.Sum += uint16(b)
		s.length = int(b) << 8
	case pos == 5:
		s.pkt.Sum += uint16(b)
		s.length |= int(b)
		s.pkt.Data = make([]byte, 0, s.length)
	case pos < headerLen+s.length:
		s.pkt.Sum += uint16(b)
		s.pkt.Data = append(s.pkt.Data, b)
	case pos < s.checksumPos():
		// padding
	case pos == s.checksumPos():
		s.pkt.Checksum = uint16(b) << 8
	case pos == s.checksumPos()+1:
		s.pkt.Checksum |= uint16(b)
	case pos == s.checksumPos()+2, pos == s.checksumPos()+3:
		i := pos - s.checksumPos() - 2
		s.pkt.Ack[i], s.pkt.Reply[i] = b, peer
	}
	if pos == s.lastPos() {
		pkt := s.pkt
		s.reset()
		return pkt, true
	}
	return Packet{}, false
}

// Decoder finds the packets in a sequence of records.
type Decoder struct {
	streams [2]stream
}

func NewDecoder() *Decoder {
	return &Decoder{streams: [2]stream{{from: Console}, {from: Adapter}}}
}

// Feed consumes a record and appends the packets completed by it to pkts.
func (d *Decoder) Feed(pkts []Packet, r Record) []Packet {
	n := r.Width.Bytes()
	for i := range n {
		shift := 8 * (n - 1 - i)
		c, a := byte(r.Console>>shift), byte(r.Adapter>>shift)
		for side, pair := range [2][2]byte{{c, a}, {a, c}} {
			s := &d.streams[side]
			if s.pos == 0 {
				s.frame, s.width = r.Frame, r.Width
			}
			if pkt, ok := s.feed(pair[0], pair[1]); ok {
				pkts = append(pkts, pkt)
			}
		}
	}
	return pkts
}

// Decode returns the packets of a trace.
func Decode(recs []Record) []Packet {
	d := NewDecoder()
	var pkts []Packet
	for _, r := range recs {
		pkts = d.Feed(pkts, r)
	}
	return pkts
}
