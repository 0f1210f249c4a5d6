package adapter

import "fmt"

// Failure is the payload of a CommandError response: the adapter failed to
// execute Command and reported Code.
//
// Use errors.Is with the Err* values to test for a specific failure.
type Failure struct {
	Command Command
	Code    byte
}

type errorKey struct {
	cmd  Command
	code byte
}

var errorDescriptions = map[errorKey]string{
	{BeginSession, 1}: "session already active",
	{BeginSession, 2}: "incorrect payload contents",

	{EndSession, 0}: "session not active",

	{DialTelephone, 0}: "the phone line is busy",
	{DialTelephone, 1}: "a call is already connected",
	{DialTelephone, 2}: "invalid contents",
	{DialTelephone, 3}: "could not connect",
	{DialTelephone, 4}: "call not established",

	{HangUpTelephone, 1}: "not in a call",

	{WaitForTelephoneCall, 0}: "no call received",
	{WaitForTelephoneCall, 1}: "already calling",
	{WaitForTelephoneCall, 3}: "adapter internal error",

	{TransferData, 0}: "failed to transfer data",
	{TransferData, 1}: "no connection",

	{Reset, 0}: "failed to reset adapter",

	{Sio32Mode, 2}: "invalid contents; expected to receive a `0` or a `1`",

	{ReadConfigurationData, 0}: "failed to read configuration data",
	{ReadConfigurationData, 2}: "invalid read parameters",

	{WriteConfigurationData, 0}: "failed to write configuration data",
	{WriteConfigurationData, 2}: "invalid write parameters",

	{IspLogin, 1}: "not in a call",
	{IspLogin, 2}: "timeout",
	{IspLogin, 3}: "adapter internal error",

	{IspLogout, 0}: "not logged in",
	{IspLogout, 1}: "not in a call",
	{IspLogout, 2}: "timeout",

	{OpenTcpConnection, 0}: "too many connections",
	{OpenTcpConnection, 1}: "not logged in",
	{OpenTcpConnection, 3}: "failed to open connection",

	{CloseTcpConnection, 0}: "not connected",
	{CloseTcpConnection, 1}: "not logged in",

	{OpenUdpConnection, 0}: "too many connections",
	{OpenUdpConnection, 1}: "not logged in",
	{OpenUdpConnection, 3}: "failed to open connection",

	{CloseUdpConnection, 0}: "not connected",
	{CloseUdpConnection, 1}: "not logged in",

	{DnsQuery, 1}: "not logged in",
	{DnsQuery, 2}: "lookup failed",
}

var (
	ErrSessionAlreadyActive = &Failure{BeginSession, 1}
	ErrHandshakeRejected    = &Failure{BeginSession, 2}
	ErrSessionNotActive     = &Failure{EndSession, 0}
	ErrLineBusy             = &Failure{DialTelephone, 0}
	ErrAlreadyConnected     = &Failure{DialTelephone, 1}
	ErrDialFailed           = &Failure{DialTelephone, 3}
	ErrCallNotEstablished   = &Failure{DialTelephone, 4}
	ErrNotInCall            = &Failure{HangUpTelephone, 1}
	ErrNoCallReceived       = &Failure{WaitForTelephoneCall, 0}
	ErrAlreadyCalling       = &Failure{WaitForTelephoneCall, 1}
	ErrResetFailed          = &Failure{Reset, 0}
	ErrInvalidSio32Mode     = &Failure{Sio32Mode, 2}
)

// Description returns the meaning of the error code for the command.  ok is
// false if the code isn't defined for the command.
func (e *Failure) Description() (desc string, ok bool) {
	desc, ok = errorDescriptions[errorKey{e.Command, e.Code}]
	return
}

func (e *Failure) Error() string {
	if !e.Command.Valid() {
		return fmt.Sprintf("unknown command failed with error 0x%02x", e.Code)
	}
	if desc, ok := e.Description(); ok {
		return fmt.Sprintf("command %s failed: %s", e.Command, desc)
	}
	return fmt.Sprintf("command %s failed with unknown error 0x%02x", e.Command, e.Code)
}

func (e *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Command == e.Command && t.Code == e.Code
}
