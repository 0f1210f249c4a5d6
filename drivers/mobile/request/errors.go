package request

import (
	"fmt"

	"github.com/clktmr/mobile/gba/serial"
)

// Error is a packet that failed to be exchanged with the adapter.
type Error struct{ Err error }

func (e *Error) Error() string { return "packet communication error: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// TimeoutError is a request that didn't complete in time.  Err is only set
// for packets, telling whether the line or the adapter stalled.
type TimeoutError struct {
	Kind Kind
	Err  error
}

func (e *TimeoutError) Error() string {
	switch e.Kind {
	case KindPacket:
		return "timeout in packet communication: " + e.Err.Error()
	case KindWaitForIdle:
		return "timeout while waiting for the adapter to return an idle byte (0xd2)"
	}
	return "timeout while waiting for idle response (0xd2)"
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NotIdleError is a non-idle value received while no packet was in flight.
type NotIdleError struct {
	Width serial.Width
	Got   uint32
}

func (e *NotIdleError) Error() string {
	const msg = "adapter did not respond with idle byte while no packet was being processed; "
	if e.Width == serial.Width32 {
		return fmt.Sprintf(msg+"received 0x%08x, expected 0xd2d2d2d2", e.Got)
	}
	return fmt.Sprintf(msg+"received 0x%02x, expected 0xd2", e.Got)
}
