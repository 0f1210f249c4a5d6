//go:build gameboyadvance

package serial

import (
	"runtime/volatile"
	"unsafe"
)

var regs *registers = (*registers)(unsafe.Pointer(baseAddr))

const baseAddr uintptr = 0x0400_0120

type registers struct {
	data32  volatile.Register32 // shared with SIOMULTI0/1
	_       [2]volatile.Register16
	control volatile.Register16
	data8   volatile.Register16
	_       [4]volatile.Register16 // keypad registers
	mode    volatile.Register16    // RCNT
}

// Link is the port of the link connector.
var Link Port = port{}

type port struct{}

func (port) SetMode(m Mode)       { regs.mode.Set(uint16(m)) }
func (port) Control() Control     { return Control(regs.control.Get()) }
func (port) SetControl(c Control) { regs.control.Set(uint16(c)) }
func (port) Data8() uint8         { return uint8(regs.data8.Get()) }
func (port) SetData8(v uint8)     { regs.data8.Set(uint16(v)) }
func (port) Data32() uint32       { return regs.data32.Get() }
func (port) SetData32(v uint32)   { regs.data32.Set(v) }
