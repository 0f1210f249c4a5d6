package packet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clktmr/mobile/drivers/mobile/adapter"
)

var (
	ErrMalformed       = errors.New("adapter reported a malformed packet")
	ErrAdapterInternal = errors.New("adapter reported an internal error")
	ErrSerialTimeout   = errors.New("serial transfer timed out")
	ErrResponseTimeout = errors.New("adapter did not respond")
)

// SendError is a failure to deliver a command to the adapter after all
// retries were used up.
type SendError struct{ Err error }

func (e *SendError) Error() string { return "send: " + e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }

// ReceiveError is a failure to receive the adapter's response after all
// retries were used up.
type ReceiveError struct{ Err error }

func (e *ReceiveError) Error() string { return "receive: " + e.Err.Error() }
func (e *ReceiveError) Unwrap() error { return e.Err }

// UnsupportedCommandError means the adapter kept answering a command with
// NotSupportedError.
type UnsupportedCommandError struct{ Command adapter.Command }

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("adapter does not support command %s", e.Command)
}

// UnexpectedCommandError is a response for a command that wasn't requested.
type UnexpectedCommandError struct {
	Got  adapter.Command
	Want []adapter.Command
}

func (e *UnexpectedCommandError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "received command %s, but expected one of [", e.Got)
	for i, c := range e.Want {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
	}
	sb.WriteString("]")
	return sb.String()
}

type MagicValueError struct {
	Index     int
	Got, Want byte
}

func (e *MagicValueError) Error() string {
	return fmt.Sprintf("invalid magic byte %d: received 0x%02x, expected 0x%02x",
		e.Index+1, e.Got, e.Want)
}

type UnexpectedLengthError struct{ Got, Want int }

func (e *UnexpectedLengthError) Error() string {
	return fmt.Sprintf("unexpected length: received %d; expected %d", e.Got, e.Want)
}

// MalformedDataError is a payload byte rejected by the response's sink.
type MalformedDataError struct {
	Index int
	Err   error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data at index %d: %v", e.Index, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

type HandshakeError struct {
	Index int
	Got   byte
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("begin session handshake error: unexpected byte 0x%02x at index %d",
		e.Got, e.Index)
}

type ChecksumError struct{ Calculated, Received uint16 }

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: calculated 0x%04x, received 0x%04x",
		e.Calculated, e.Received)
}

// NonZeroAckError is a receive acknowledgement with a command byte other than
// zero.
type NonZeroAckError byte

func (e NonZeroAckError) Error() string {
	return fmt.Sprintf("nonzero acknowledgement command 0x%02x", byte(e))
}

// errorCommand is reported to the adapter in the acknowledgement of a packet
// which couldn't be received.
func errorCommand(err error) adapter.Command {
	var unknown adapter.UnknownCommandError
	var unexpected *UnexpectedCommandError
	if errors.As(err, &unknown) || errors.As(err, &unexpected) {
		return adapter.NotSupportedError
	}
	return adapter.MalformedError
}
