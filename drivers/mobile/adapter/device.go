package adapter

import "fmt"

// Device identifies the adapter model.  It's sent by the adapter in every
// acknowledgement.
type Device uint8

const (
	Blue   Device = 0x88 // PDC
	Yellow Device = 0x89 // cdmaOne
	Green  Device = 0x8a // PHS, unreleased
	Red    Device = 0x8b // DDI
)

// ParseDevice returns the adapter identified by b.
func ParseDevice(b byte) (Device, error) {
	switch d := Device(b); d {
	case Blue, Yellow, Green, Red:
		return d, nil
	}
	return 0, UnknownDeviceError(b)
}

// Valid reports whether d is a known adapter.
func (d Device) Valid() bool {
	_, err := ParseDevice(byte(d))
	return err == nil
}

// DialByte is the first byte of the DialTelephone payload.
func (d Device) DialByte() byte {
	switch d {
	case Yellow:
		return 2
	case Green, Red:
		return 1
	}
	return 0
}

func (d Device) String() string {
	switch d {
	case Blue:
		return "Blue"
	case Yellow:
		return "Yellow"
	case Green:
		return "Green"
	case Red:
		return "Red"
	}
	return fmt.Sprintf("Device(0x%02x)", uint8(d))
}

// UnknownDeviceError is an adapter ID not defined by the protocol.
type UnknownDeviceError byte

func (e UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown adapter ID: 0x%02x", byte(e))
}
