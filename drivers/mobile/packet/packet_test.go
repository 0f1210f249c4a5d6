package packet

import (
	"errors"
	"slices"
	"testing"

	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/gba/serial"
)

type testPort struct {
	ctrl serial.Control
	tx   []uint32 // values shifted out by the console
	rx   uint32   // value shifted in by the next transfer
}

func (p *testPort) SetMode(serial.Mode)         {}
func (p *testPort) Control() serial.Control     { return p.ctrl }
func (p *testPort) SetControl(c serial.Control) { p.ctrl = c }
func (p *testPort) Data8() uint8                { return uint8(p.rx) }
func (p *testPort) SetData8(v uint8)            { p.tx = append(p.tx, uint32(v)) }
func (p *testPort) Data32() uint32              { return p.rx }
func (p *testPort) SetData32(v uint32)          { p.tx = append(p.tx, v) }

func exchange(p *Packet, port *testPort, rx uint32) (bool, Finished, error) {
	p.Push(port)
	port.rx = rx
	return p.Pull(port)
}

// stream returns the logical bytes of a packet up to the checksum.  A sum of
// -1 is replaced by the correct checksum.
func stream(w serial.Width, raw byte, payload []byte, sum int) []byte {
	b := []byte{0x99, 0x66, raw, 0x00, byte(len(payload) >> 8), byte(len(payload))}
	b = append(b, payload...)
	if w == serial.Width32 {
		for len(b)%4 != 2 {
			b = append(b, 0)
		}
	}
	if sum < 0 {
		sum = 0
		for _, v := range b[2 : 6+len(payload)] {
			sum += int(v)
		}
	}
	return append(b, byte(sum>>8), byte(sum))
}

// response packs a response with its acknowledgement into transfers.
func response(w serial.Width, raw byte, payload []byte, sum int, dev byte) []uint32 {
	b := stream(w, raw, payload, sum)
	var v []uint32
	if w == serial.Width8 {
		for _, x := range b {
			v = append(v, uint32(x))
		}
		return append(v, uint32(dev), 0)
	}
	for i := 0; i < len(b); i += 4 {
		v = append(v, uint32(b[i])<<24|uint32(b[i+1])<<16|uint32(b[i+2])<<8|uint32(b[i+3]))
	}
	return append(v, uint32(dev)<<24)
}

// send answers the send phase of p, echoing echo in the acknowledgement.  It
// returns the number of attempts used.
func send(t *testing.T, p *Packet, port *testPort, echo byte) (attempts int, err error) {
	t.Helper()
	for p.mode == modeSend {
		if p.pos == 0 {
			attempts++
		}
		rx, ack := Idle(p.width), p.ackPos()
		if p.width == serial.Width8 {
			switch p.pos {
			case ack:
				rx = uint32(adapter.Blue)
			case ack + 1:
				rx = uint32(echo)
			}
		} else if p.pos == ack {
			rx = uint32(adapter.Blue)<<24 | uint32(echo)<<16
		}
		done, _, err := exchange(p, port, rx)
		if done {
			t.Fatalf("packet finished while sending")
		}
		if err != nil {
			return attempts, err
		}
	}
	return attempts, nil
}

func receive(p *Packet, port *testPort, values []uint32) (done bool, fin Finished, err error) {
	for _, v := range values {
		if done {
			return false, fin, errors.New("transfers after packet was finished")
		}
		done, fin, err = exchange(p, port, v)
		if err != nil {
			return
		}
	}
	return
}

func TestSendBytes(t *testing.T) {
	tests := map[string]struct {
		width serial.Width
		src   Source
		want  []uint32
	}{
		"beginSession8": {serial.Width8, BeginSession(), []uint32{
			0x99, 0x66, 0x10, 0x00, 0x00, 0x08,
			'N', 'I', 'N', 'T', 'E', 'N', 'D', 'O',
			0x02, 0x77, 0x81, 0x00,
		}},
		"endSession8": {serial.Width8, EndSession(), []uint32{
			0x99, 0x66, 0x11, 0x00, 0x00, 0x00, 0x00, 0x11, 0x81, 0x00,
		}},
		"endSession32": {serial.Width32, EndSession(), []uint32{
			0x99661100, 0x00000011, 0x81000000,
		}},
		"sio32": {serial.Width32, EnableSio32(), []uint32{
			0x99661800, 0x00010100, 0x0000001a, 0x81000000,
		}},
		"disableSio32": {serial.Width8, DisableSio32(), []uint32{
			0x99, 0x66, 0x18, 0x00, 0x00, 0x01, 0x00, 0x00, 0x19, 0x81, 0x00,
		}},
		"beginSession32": {serial.Width32, BeginSession(), []uint32{
			0x99661000, 0x00084e49, 0x4e54454e, 0x444f0277, 0x81000000,
		}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p := New(tc.width, tc.src)
			port := &testPort{}
			if _, err := send(t, &p, port, byte(tc.src.Command())^0x80); err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(port.tx, tc.want) {
				t.Fatalf("expected %x, got %x", tc.want, port.tx)
			}
			if !p.AwaitingResponse() {
				t.Fatalf("expected packet to await response, got %v", &p)
			}
		})
	}
}

func TestDialPayload(t *testing.T) {
	number, err := adapter.ParsePhoneNumber("0755")
	if err != nil {
		t.Fatal(err)
	}
	src := Dial(adapter.Yellow, number)
	want := []byte{2, '0', '7', '5', '5'}
	if src.Len() != len(want) {
		t.Fatalf("expected length %d, got %d", len(want), src.Len())
	}
	for i, b := range want {
		if src.Byte(i) != b {
			t.Fatalf("expected 0x%02x at %d, got 0x%02x", b, i, src.Byte(i))
		}
	}
}

// TestChecksumRoundTrip feeds the stream of a sent packet back into a
// receiving packet of the same command.
func TestChecksumRoundTrip(t *testing.T) {
	sources := map[string]Source{
		"beginSession": BeginSession(),
		"waitForCall":  WaitForCall(),
		"hangUp":       HangUp(),
		"reset":        Reset(),
		"endSession":   EndSession(),
	}
	for name, src := range sources {
		for _, w := range []serial.Width{serial.Width8, serial.Width32} {
			t.Run(name+w.String(), func(t *testing.T) {
				tx := New(w, src)
				txPort := &testPort{}
				if _, err := send(t, &tx, txPort, byte(src.Command())|0x80); err != nil {
					t.Fatal(err)
				}
				sent := txPort.tx[:len(txPort.tx)-2]
				if w == serial.Width32 {
					sent = txPort.tx[:len(txPort.tx)-1]
				}

				rx := New(w, src)
				rx.sink = src.Sink()
				rx.receive(0)
				ack := []uint32{uint32(adapter.Blue), 0}
				if w == serial.Width32 {
					ack = []uint32{uint32(adapter.Blue) << 24}
				}
				done, fin, err := receive(&rx, &testPort{}, append(slices.Clone(sent), ack...))
				if err != nil {
					t.Fatal(err)
				}
				if !done {
					t.Fatalf("expected packet to be finished, got %v", &rx)
				}
				if rx.sum != src.Checksum() {
					t.Fatalf("expected checksum 0x%04x, got 0x%04x", src.Checksum(), rx.sum)
				}
				if fin.Err != nil || fin.Device != adapter.Blue {
					t.Fatalf("unexpected result %+v", fin)
				}
			})
		}
	}
}

func TestSendRetry(t *testing.T) {
	tests := map[string]struct {
		echo adapter.Command
		err  error
	}{
		"notSupported": {adapter.NotSupportedError, &UnsupportedCommandError{adapter.BeginSession}},
		"malformed":    {adapter.MalformedError, ErrMalformed},
		"internal":     {adapter.InternalError, ErrAdapterInternal},
	}
	for name, tc := range tests {
		for _, w := range []serial.Width{serial.Width8, serial.Width32} {
			t.Run(name+w.String(), func(t *testing.T) {
				p := New(w, BeginSession())
				attempts, err := send(t, &p, &testPort{}, byte(tc.echo)|0x80)
				if attempts != MaxRetries {
					t.Fatalf("expected %d attempts, got %d", MaxRetries, attempts)
				}
				var sendErr *SendError
				if !errors.As(err, &sendErr) {
					t.Fatalf("expected SendError, got %v", err)
				}
				if sendErr.Err.Error() != tc.err.Error() {
					t.Fatalf("expected %v, got %v", tc.err, sendErr.Err)
				}
			})
		}
	}
}

func TestReceive(t *testing.T) {
	var (
		handshake = []byte(adapter.Handshake)
		blue      = byte(adapter.Blue)
	)
	tests := map[string]struct {
		width   serial.Width
		src     Source
		rx      []uint32
		fin     Finished
		err     error // compared by message
		replies []byte
	}{
		"beginSession8": {
			width: serial.Width8, src: BeginSession(),
			rx:      response(serial.Width8, 0x90, handshake, -1, blue),
			fin:     Finished{Device: adapter.Blue},
			replies: []byte{0x10},
		},
		"beginSession32": {
			width: serial.Width32, src: BeginSession(),
			rx:      response(serial.Width32, 0x90, handshake, -1, byte(adapter.Red)),
			fin:     Finished{Device: adapter.Red},
			replies: []byte{0x10},
		},
		"idleBeforeResponse": {
			width: serial.Width32, src: EndSession(),
			rx: append([]uint32{0xd2d2d2d2, 0xd2d2d2d2},
				response(serial.Width32, 0x91, nil, -1, blue)...),
			fin:     Finished{Device: adapter.Blue, Width: serial.Width8, SetWidth: true},
			replies: []byte{0x11},
		},
		"enableSio32": {
			width: serial.Width8, src: EnableSio32(),
			rx:      append([]uint32{0xd2}, response(serial.Width8, 0x98, nil, -1, blue)...),
			fin:     Finished{Device: adapter.Blue, Width: serial.Width32, SetWidth: true},
			replies: []byte{0x18},
		},
		"sio32Reset": {
			width: serial.Width8, src: EnableSio32(),
			rx:      response(serial.Width8, 0x96, nil, -1, blue),
			fin:     Finished{Device: adapter.Blue, Width: serial.Width8, SetWidth: true},
			replies: []byte{0x16},
		},
		"alreadyActive": {
			width: serial.Width8, src: BeginSession(),
			rx:      response(serial.Width8, 0xee, []byte{0x10, 0x01}, -1, blue),
			fin:     Finished{Device: adapter.Blue, Err: adapter.ErrSessionAlreadyActive},
			replies: []byte{0x6e},
		},
		"alreadyActive32": {
			width: serial.Width32, src: BeginSession(),
			rx:      response(serial.Width32, 0xee, []byte{0x10, 0x01}, -1, blue),
			fin:     Finished{Device: adapter.Blue, Err: adapter.ErrSessionAlreadyActive},
			replies: []byte{0x6e},
		},
		"undefinedCode": {
			width: serial.Width8, src: WaitForCall(),
			rx:      response(serial.Width8, 0xee, []byte{0x14, 0x09}, -1, blue),
			fin:     Finished{Device: adapter.Blue, Err: &adapter.Failure{Command: adapter.WaitForTelephoneCall, Code: 0x09}},
			replies: []byte{0x6e},
		},
		"otherCommandFailed": {
			width: serial.Width32, src: WaitForCall(),
			rx:      response(serial.Width32, 0xee, []byte{0x16, 0x00}, -1, blue),
			fin:     Finished{Device: adapter.Blue, Err: adapter.ErrResetFailed},
			replies: []byte{0x6e},
		},
		"checksumRetry": {
			width: serial.Width8, src: WaitForCall(),
			rx: append(response(serial.Width8, 0x94, nil, 0x1234, blue),
				response(serial.Width8, 0x94, nil, -1, blue)...),
			fin:     Finished{Device: adapter.Blue},
			replies: []byte{0xf1, 0x14},
		},
		"unexpectedCommand": {
			width: serial.Width8, src: BeginSession(),
			rx: append(response(serial.Width8, 0x91, nil, -1, blue),
				response(serial.Width8, 0x90, handshake, -1, blue)...),
			fin:     Finished{Device: adapter.Blue},
			replies: []byte{0xf0, 0x10},
		},
		"unexpectedLength32": {
			width: serial.Width32, src: EndSession(),
			rx: append(response(serial.Width32, 0x91, []byte{1, 2, 3}, -1, blue),
				response(serial.Width32, 0x91, nil, -1, blue)...),
			fin:     Finished{Device: adapter.Blue, Width: serial.Width8, SetWidth: true},
			replies: []byte{0xf1, 0x11},
		},
		"handshake": {
			width: serial.Width8, src: BeginSession(),
			rx: append(response(serial.Width8, 0x90, []byte("NINTENDX"), -1, blue),
				response(serial.Width8, 0x90, handshake, -1, blue)...),
			fin:     Finished{Device: adapter.Blue},
			replies: []byte{0xf1, 0x10},
		},
		"unknownDevice8": {
			width: serial.Width8, src: Reset(),
			rx: append(response(serial.Width8, 0x96, nil, -1, 0x42),
				response(serial.Width8, 0x96, nil, -1, blue)...),
			fin:     Finished{Device: adapter.Blue, Width: serial.Width8, SetWidth: true},
			replies: []byte{0xf1, 0x16},
		},
		"unknownDevice32": {
			width: serial.Width32, src: Reset(),
			rx:  response(serial.Width32, 0x96, nil, -1, 0x42),
			err: &ReceiveError{adapter.UnknownDeviceError(0x42)},
		},
		"magic": {
			width: serial.Width8, src: Reset(),
			rx:  []uint32{0x99, 0x67},
			fin: Finished{},
		},
		"nonZeroAck": {
			width: serial.Width8, src: Reset(),
			rx:  append(response(serial.Width8, 0x96, nil, -1, blue)[:9], 0x05),
			err: &ReceiveError{NonZeroAckError(0x05)},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p := New(tc.width, tc.src)
			port := &testPort{}
			if _, err := send(t, &p, port, byte(tc.src.Command())|0x80); err != nil {
				t.Fatal(err)
			}
			port.tx = nil
			done, fin, err := receive(&p, port, tc.rx)
			if tc.err != nil {
				if err == nil || err.Error() != tc.err.Error() {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tc.replies == nil {
				if done {
					t.Fatalf("expected packet to be pending")
				}
				return
			}
			if !done {
				t.Fatalf("expected packet to be finished, got %v", &p)
			}
			if fin.Device != tc.fin.Device || fin.Width != tc.fin.Width || fin.SetWidth != tc.fin.SetWidth {
				t.Fatalf("expected %+v, got %+v", tc.fin, fin)
			}
			if (fin.Err == nil) != (tc.fin.Err == nil) || fin.Err != nil && !errors.Is(fin.Err, tc.fin.Err) {
				t.Fatalf("expected %v, got %v", tc.fin.Err, fin.Err)
			}
			if got := replies(tc.width, port.tx); !slices.Equal(got, tc.replies) {
				t.Fatalf("expected replies %x, got %x", tc.replies, got)
			}
		})
	}
}

// replies extracts the command bytes of the console's receive
// acknowledgements.
func replies(w serial.Width, tx []uint32) []byte {
	var r []byte
	for i, v := range tx {
		if w == serial.Width8 {
			if v == 0x81 && i+1 < len(tx) {
				r = append(r, byte(tx[i+1]))
			}
		} else if byte(v>>24) == 0x81 {
			r = append(r, byte(v>>16))
		}
	}
	return r
}

func TestReceiveRetryBound(t *testing.T) {
	p := New(serial.Width8, WaitForCall())
	port := &testPort{}
	if _, err := send(t, &p, port, byte(adapter.WaitForTelephoneCall)|0x80); err != nil {
		t.Fatal(err)
	}
	port.tx = nil

	var rx []uint32
	for range MaxRetries {
		rx = append(rx, response(serial.Width8, 0x94, nil, 0xbeef, byte(adapter.Blue))...)
	}
	_, _, err := receive(&p, port, rx)
	var checksum *ChecksumError
	if !errors.As(err, &checksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
	if checksum.Received != 0xbeef || checksum.Calculated != 0x94 {
		t.Fatalf("unexpected checksums %v", checksum)
	}
	want := []byte{0xf1, 0xf1, 0xf1, 0xf1, 0x8f}
	if got := replies(serial.Width8, port.tx); !slices.Equal(got, want) {
		t.Fatalf("expected replies %x, got %x", want, got)
	}
}

func TestErrorCommand(t *testing.T) {
	tests := map[string]struct {
		err  error
		want adapter.Command
	}{
		"unknown":    {adapter.UnknownCommandError(0x30), adapter.NotSupportedError},
		"unexpected": {&UnexpectedCommandError{Got: adapter.Reset}, adapter.NotSupportedError},
		"checksum":   {&ChecksumError{}, adapter.MalformedError},
		"magic":      {&MagicValueError{}, adapter.MalformedError},
		"length":     {&UnexpectedLengthError{}, adapter.MalformedError},
		"device":     {adapter.UnknownDeviceError(0), adapter.MalformedError},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := errorCommand(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestUnexpectedCommandMessage(t *testing.T) {
	s := NewSink(ExpectReset)
	err := s.Command(adapter.BeginSession)
	want := "received command Begin Session (0x10), but expected one of [Reset (0x16), Command Error (0x6e)]"
	if err == nil || err.Error() != want {
		t.Fatalf("expected %q, got %v", want, err)
	}
}
