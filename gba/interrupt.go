// Package gba provides access to the interrupt controller of the Game Boy
// Advance.  Peripherals used by drivers are in the subpackages, each of them
// exposing its registers through a small interface so drivers can be tested
// on the host.
package gba

import "strings"

// InterruptFlag is a bit in the IE and IF registers.
type InterruptFlag uint16

const (
	VBlank  InterruptFlag = 1 << iota // vertical blank started
	HBlank                            // horizontal blank started
	VCount                            // scanline matched DISPSTAT
	Timer0                            // timer overflow
	Timer1                            //
	Timer2                            //
	Timer3                            //
	Serial                            // serial transfer finished
	DMA0                              //
	DMA1                              //
	DMA2                              //
	DMA3                              //
	Keypad                            //
	GamePak                           // cartridge removed

	InterruptFlagLast
)

var interruptNames = [...]string{
	"VBlank",
	"HBlank",
	"VCount",
	"Timer0",
	"Timer1",
	"Timer2",
	"Timer3",
	"Serial",
	"DMA0",
	"DMA1",
	"DMA2",
	"DMA3",
	"Keypad",
	"GamePak",
}

func (f InterruptFlag) String() string {
	var sb strings.Builder
	for i, v := range interruptNames {
		if f&(1<<i) != 0 {
			if sb.Len() != 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(v)
		}
	}
	return sb.String()
}

// Interrupts masks and unmasks interrupt sources.
type Interrupts interface {
	EnableInterrupts(mask InterruptFlag)
	DisableInterrupts(mask InterruptFlag)
}
