// Package adapter contains the vocabulary of the mobile adapter protocol:
// command IDs, adapter identities, the errors the adapter reports for
// commands and phone numbers.  It doesn't handle the exchange of packets on
// the serial line.
package adapter

import "fmt"

type Command uint8

const (
	Empty                  Command = 0x0f
	BeginSession           Command = 0x10
	EndSession             Command = 0x11
	DialTelephone          Command = 0x12
	HangUpTelephone        Command = 0x13
	WaitForTelephoneCall   Command = 0x14
	TransferData           Command = 0x15
	Reset                  Command = 0x16
	TelephoneStatus        Command = 0x17
	Sio32Mode              Command = 0x18
	ReadConfigurationData  Command = 0x19
	WriteConfigurationData Command = 0x1a
	ConnectionClosed       Command = 0x1f
	IspLogin               Command = 0x21
	IspLogout              Command = 0x22
	OpenTcpConnection      Command = 0x23
	CloseTcpConnection     Command = 0x24
	OpenUdpConnection      Command = 0x25
	CloseUdpConnection     Command = 0x26
	DnsQuery               Command = 0x28
	FirmwareVersion        Command = 0x3f
	CommandError           Command = 0x6e
	NotSupportedError      Command = 0x70
	MalformedError         Command = 0x71
	InternalError          Command = 0x72
)

var commandNames = map[Command]string{
	Empty:                  "Empty",
	BeginSession:           "Begin Session",
	EndSession:             "End Session",
	DialTelephone:          "Dial Telephone",
	HangUpTelephone:        "Hang Up Telephone",
	WaitForTelephoneCall:   "Wait For Telephone Call",
	TransferData:           "Transfer Data",
	Reset:                  "Reset",
	TelephoneStatus:        "Telephone Status",
	Sio32Mode:              "SIO32 Mode",
	ReadConfigurationData:  "Read Configuration Data",
	WriteConfigurationData: "Write Configuration Data",
	ConnectionClosed:       "Connection Closed",
	IspLogin:               "ISP Login",
	IspLogout:              "ISP Logout",
	OpenTcpConnection:      "Open TCP Connection",
	CloseTcpConnection:     "Close TCP Connection",
	OpenUdpConnection:      "Open UDP Connection",
	CloseUdpConnection:     "Close UDP Connection",
	DnsQuery:               "DNS Query",
	FirmwareVersion:        "Firmware Version",
	CommandError:           "Command Error",
	NotSupportedError:      "Not Supported Error",
	MalformedError:         "Malformed Error",
	InternalError:          "Internal Error",
}

// ParseCommand returns the command with the wire value b.
func ParseCommand(b byte) (Command, error) {
	c := Command(b)
	if !c.Valid() {
		return 0, UnknownCommandError(b)
	}
	return c, nil
}

// Valid reports whether c is a command defined by the protocol.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

func (c Command) String() string {
	name, ok := commandNames[c]
	if !ok {
		return fmt.Sprintf("Unknown (0x%02x)", uint8(c))
	}
	return fmt.Sprintf("%s (0x%02x)", name, uint8(c))
}

// UnknownCommandError is a command ID not defined by the protocol.
type UnknownCommandError byte

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command ID: 0x%02x", byte(e))
}

// Handshake is the payload of BeginSession, echoed by the adapter.
const Handshake = "NINTENDO"
