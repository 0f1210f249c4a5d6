// Package serial describes the serial I/O port of the link connector in
// normal (SPI-like) mode.  Every transfer is full duplex: the value written
// to the data register is shifted out while the peer's value is shifted in.
//
// Drivers access the port through the Port interface.  On hardware it is
// backed by the SIO registers, on the host by a simulated peer.
package serial

// Width is the number of bits shifted per transfer.
type Width uint8

const (
	Width8 Width = iota
	Width32
)

func (w Width) String() string {
	if w == Width32 {
		return "32-bit"
	}
	return "8-bit"
}

// Bytes returns the number of bytes per transfer.
func (w Width) Bytes() int {
	if w == Width32 {
		return 4
	}
	return 1
}

// Control is the SIOCNT register in normal mode.
type Control uint16

const (
	InternalClock Control = 1 << 0 // we are the master
	Clock2MHz     Control = 1 << 1 // 256KHz otherwise
	SIState       Control = 1 << 2 // read only
	SOInactive    Control = 1 << 3
	Start         Control = 1 << 7 // set to start, cleared when finished
	Transfer32    Control = 1 << 12
	IRQEnable     Control = 1 << 14
)

// Mode is the RCNT register selecting the port's operating mode.
type Mode uint16

const (
	ModeNormal  Mode = 0x0000
	ModeGeneral Mode = 0x8000
	ModeJoybus  Mode = 0xc000
)

// Port gives access to the serial registers.
type Port interface {
	SetMode(m Mode)
	Control() Control
	SetControl(c Control)
	Data8() uint8
	SetData8(v uint8)
	Data32() uint32
	SetData32(v uint32)
}

// SetWidth changes the transfer width without starting a transfer.
func SetWidth(p Port, w Width) {
	c := p.Control() &^ (Transfer32 | Start)
	if w == Width32 {
		c |= Transfer32
	}
	p.SetControl(c)
}

// StartTransfer starts a transfer as master and requests an interrupt when
// it is finished.
func StartTransfer(p Port, w Width) {
	c := InternalClock | Start | IRQEnable
	if w == Width32 {
		c |= Transfer32
	}
	p.SetControl(c)
}

// Write loads the next value to be shifted out.
func Write(p Port, w Width, v uint32) {
	if w == Width32 {
		p.SetData32(v)
	} else {
		p.SetData8(uint8(v))
	}
}

// Read returns the value shifted in by the last transfer.
func Read(p Port, w Width) uint32 {
	if w == Width32 {
		return p.Data32()
	}
	return uint32(p.Data8())
}
