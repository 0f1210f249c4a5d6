// Package mobile drives the Mobile Adapter GB, a cellular modem attached to
// the link port.
//
// The driver is run entirely from interrupts.  Once Link was called, the
// application must call VBlank, Timer and Serial from the respective
// interrupt handlers.  The handlers must not preempt each other.
//
// Operations started by the application return pending values, which are
// polled with their Status method.  Every new link or call attempt
// supersedes the pending values of older attempts.
package mobile

import (
	"errors"
	"log/slog"

	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/drivers/mobile/request"
	"github.com/clktmr/mobile/gba"
	"github.com/clktmr/mobile/gba/serial"
	"github.com/clktmr/mobile/gba/timer"
)

// Hardware is the hardware owned by the driver after the first call to
// Link.  Nothing else may access the serial port or the timer.
type Hardware struct {
	Serial     serial.Port
	Timer      timer.Timer
	Interrupts gba.Interrupts
}

type state uint8

const (
	stateNotConnected state = iota
	stateActive
	stateCommandError
	stateRequestTimeout
	stateRequestError
)

func (s state) String() string {
	return [...]string{"not connected", "active", "command error", "request timeout", "request error"}[s]
}

type Driver struct {
	hw     Hardware
	log    *slog.Logger
	device adapter.Device

	state  state
	active active
	err    error // cause of the error states
	closed error // reported in stateNotConnected
	gen    Generation
}

type Option func(*Driver)

// WithLogger sets the logger for state changes and errors.  Logging is
// disabled by default.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithDevice sets the adapter assumed until the adapter identified itself.
// It defaults to adapter.Blue.
func WithDevice(dev adapter.Device) Option {
	return func(d *Driver) { d.device = dev }
}

func New(hw Hardware, opts ...Option) *Driver {
	d := &Driver{
		hw:     hw,
		log:    slog.New(slog.DiscardHandler),
		device: adapter.Blue,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) bus() request.Bus {
	return request.Bus{Serial: d.hw.Serial, Timer: d.hw.Timer}
}

func (d *Driver) enableCommunication() {
	d.hw.Serial.SetMode(serial.ModeNormal)
	d.hw.Serial.SetControl(0) // 8-bit, external clock
	d.hw.Interrupts.EnableInterrupts(gba.VBlank | d.hw.Timer.ID().Interrupt() | gba.Serial)
}

func (d *Driver) setState(s state, err error) {
	if err != nil {
		d.log.Warn("mobile: session failed", "state", s, "err", err)
	} else {
		d.log.Debug("mobile: state", "from", d.state, "to", s)
	}
	d.state, d.err = s, err
}

// Link establishes a session with the adapter or resets the current one.
// It always starts a new link generation.
func (d *Driver) Link() LinkPending {
	if d.state == stateActive {
		d.active.resetLink()
	} else {
		d.enableCommunication()
		d.active = newActive(d.bus(), d.device, d.log)
		d.setState(stateActive, nil)
	}
	d.gen = d.gen.Increment()
	return LinkPending{gen: d.gen}
}

// failure returns the error reported while no session is active.
func (d *Driver) failure() error {
	switch d.state {
	case stateCommandError:
		return &LinkError{LinkCommand, d.err}
	case stateRequestTimeout:
		return &LinkError{LinkTimeout, d.err}
	case stateRequestError:
		return &LinkError{LinkRequest, d.err}
	}
	if d.closed == nil {
		return ErrLinkClosed
	}
	return d.closed
}

func (d *Driver) linkingStatus(gen Generation) (bool, error) {
	if gen != d.gen {
		return false, ErrLinkSuperseded
	}
	if d.state != stateActive {
		return false, d.failure()
	}
	return d.active.linkingStatus()
}

func (d *Driver) waitForCall(gen Generation) (Generation, error) {
	if gen != d.gen {
		return 0, ErrLinkSuperseded
	}
	if d.state != stateActive {
		return 0, d.failure()
	}
	return d.active.waitForCall()
}

func (d *Driver) call(gen Generation, number adapter.PhoneNumber) (Generation, error) {
	if gen != d.gen {
		return 0, ErrLinkSuperseded
	}
	if d.state != stateActive {
		return 0, d.failure()
	}
	return d.active.call(number)
}

func (d *Driver) p2pStatus(gen, callGen Generation) (bool, error) {
	if gen != d.gen {
		return false, errP2PLinkSuperseded
	}
	if d.state != stateActive {
		return false, p2pLinkError(d.failure())
	}
	return d.active.p2pStatus(callGen)
}

func (d *Driver) hangUp(gen, callGen Generation) error {
	if gen != d.gen {
		return errP2PLinkSuperseded
	}
	if d.state != stateActive {
		return p2pLinkError(d.failure())
	}
	return d.active.hangUp(callGen)
}

// endSession ends the session of generation gen.  Requests of older
// generations are ignored, their session already ended.
func (d *Driver) endSession(gen Generation) {
	if gen != d.gen {
		return
	}
	if d.state == stateActive {
		d.active.endLink()
	} else {
		// the failed session already ended, only its error is cleared
		d.closed = ErrLinkClosed
		d.setState(stateNotConnected, nil)
	}
}

// VBlank must be called once per frame from the vertical blank interrupt.
func (d *Driver) VBlank() {
	if d.state != stateActive {
		return
	}
	if err := d.active.vblank(); err != nil {
		d.setState(stateRequestTimeout, err)
	}
}

// Timer must be called from the interrupt of the driver's timer.
func (d *Driver) Timer() {
	timer.Stop(d.hw.Timer)
	if d.state == stateActive {
		d.active.timer()
	}
}

// Serial must be called from the serial interrupt.
func (d *Driver) Serial() {
	if d.state != stateActive {
		return
	}
	ended, err := d.active.serial()
	switch {
	case err != nil:
		var cmdErr *adapter.Failure
		if errors.As(err, &cmdErr) {
			d.setState(stateCommandError, err)
		} else {
			d.setState(stateRequestError, err)
		}
	case ended:
		d.closed = d.active.closedErr()
		d.setState(stateNotConnected, nil)
	}
}
