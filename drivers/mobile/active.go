package mobile

import (
	"errors"
	"log/slog"

	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/drivers/mobile/packet"
	"github.com/clktmr/mobile/drivers/mobile/request"
	"github.com/clktmr/mobile/gba/serial"
)

type phase uint8

const (
	phaseLinking phase = iota
	phaseLinked
	phaseWaitingForCall
	phaseCall
	phaseConnected
	phaseHangUp
	phaseResetLink
	phaseEndLink
	phaseRecoverLink
)

func (p phase) String() string {
	return [...]string{
		"linking", "linked", "waiting for call", "call", "connected",
		"hang up", "reset link", "end link", "recover link",
	}[p]
}

type step uint8

const (
	stepWaitForIdle step = iota
	stepBeginSession
	stepEnableSio32
	stepReset
	stepEndSession
)

// Fixed command sequences of the phases which (re)establish or end a
// session.
var sequences = [...][]step{
	phaseLinking:     {stepWaitForIdle, stepBeginSession, stepEnableSio32, stepWaitForIdle},
	phaseResetLink:   {stepReset, stepWaitForIdle, stepEnableSio32, stepWaitForIdle},
	phaseEndLink:     {stepEndSession, stepWaitForIdle},
	phaseRecoverLink: {stepWaitForIdle, stepBeginSession, stepEnableSio32, stepWaitForIdle},
}

// job is the request in flight.  A previous job was issued by a phase that
// was left before the request completed.  It must still run to completion to
// keep the line synchronized, but its command errors are ignored.
type job struct {
	req      request.Request
	busy     bool
	previous bool
	from     phase
}

// active is the state of a session between Link and its end.
type active struct {
	bus    request.Bus
	log    *slog.Logger
	device adapter.Device
	width  serial.Width

	phase  phase
	job    job
	step   int // position in the phase's sequence
	frames int // frames since the last keep-alive

	established bool

	callGen Generation
	callErr *adapter.Failure // outcome of the last call attempt
	number  adapter.PhoneNumber
}

func newActive(bus request.Bus, dev adapter.Device, log *slog.Logger) active {
	a := active{bus: bus, log: log, device: dev, width: serial.Width8, phase: phaseLinking}
	a.issue()
	return a
}

func (a *active) enter(p phase) {
	if a.phase != p {
		a.log.Debug("mobile: phase", "from", a.phase, "to", p)
	}
	a.phase = p
	a.step = 0
	a.frames = 0
}

// issue starts the current step of the phase's sequence.
func (a *active) issue() {
	var req request.Request
	switch sequences[a.phase][a.step] {
	case stepWaitForIdle:
		req = request.NewWaitForIdle(a.width)
	case stepBeginSession:
		req = request.NewPacket(a.bus, a.width, packet.BeginSession())
	case stepEnableSio32:
		req = request.NewPacket(a.bus, a.width, packet.EnableSio32())
	case stepReset:
		req = request.NewPacket(a.bus, a.width, packet.Reset())
	case stepEndSession:
		req = request.NewPacket(a.bus, a.width, packet.EndSession())
	}
	a.job = job{req: req, busy: true}
}

func (a *active) send(src packet.Source) {
	a.job = job{req: request.NewPacket(a.bus, a.width, src), busy: true}
}

// retire demotes the current job to a previous one.  A job which already is
// a previous one keeps its origin.
func (a *active) retire() {
	if a.job.busy && !a.job.previous {
		a.job.previous = true
		a.job.from = a.phase
	}
}

// keepAlive counts a frame and reports whether a second has passed.
func (a *active) keepAlive() bool {
	if a.frames >= request.OneSecond {
		a.frames = 0
		return true
	}
	a.frames++
	return false
}

func (a *active) vblank() error {
	if a.job.busy {
		return a.job.req.VBlank(a.bus)
	}
	switch a.phase {
	case phaseLinked, phaseConnected:
		if a.keepAlive() {
			a.job = job{req: request.NewIdle(a.bus, a.width), busy: true}
		}
	case phaseWaitingForCall:
		if a.keepAlive() {
			a.send(packet.WaitForCall())
		}
	}
	return nil
}

func (a *active) timer() {
	if a.job.busy {
		a.job.req.Timer(a.bus)
	}
}

// serial handles a finished transfer.  It returns ended when the session was
// closed.  Errors are fatal for the session.
func (a *active) serial() (ended bool, err error) {
	if !a.job.busy {
		return false, nil
	}
	done, fin, err := a.job.req.Serial(a.bus)
	if err != nil || !done {
		return false, err
	}
	if fin.Device.Valid() {
		a.device = fin.Device
	}
	if fin.SetWidth {
		a.width = fin.Width
	}

	if a.job.previous {
		if fin.Err != nil {
			a.log.Debug("mobile: ignoring error of previous request", "phase", a.job.from, "err", fin.Err)
		}
		a.job = job{}
		a.resume()
		return false, nil
	}
	a.job = job{}
	return a.advance(fin.Err)
}

// resume issues the first request of the phase after a previous job was
// drained.
func (a *active) resume() {
	switch a.phase {
	case phaseCall:
		a.send(packet.Dial(a.device, a.number))
	case phaseHangUp:
		a.send(packet.HangUp())
	case phaseResetLink, phaseEndLink, phaseRecoverLink:
		a.issue()
	}
}

// advance handles the outcome of the current job.
func (a *active) advance(failed *adapter.Failure) (ended bool, err error) {
	switch a.phase {
	case phaseLinking, phaseResetLink, phaseEndLink, phaseRecoverLink:
		if failed != nil {
			return false, failed
		}
		a.step++
		if a.step < len(sequences[a.phase]) {
			a.issue()
			return false, nil
		}
		if a.phase == phaseEndLink {
			a.log.Debug("mobile: session ended")
			return true, nil
		}
		a.established = true
		a.linked(0, nil)

	case phaseWaitingForCall:
		switch {
		case failed == nil:
			a.enter(phaseConnected)
		case errors.Is(failed, adapter.ErrNoCallReceived):
			// polled again by the keep-alive counter
		default:
			a.linked(a.callGen, failed)
		}

	case phaseCall:
		if failed != nil {
			a.linked(a.callGen, failed)
		} else {
			a.enter(phaseConnected)
		}

	case phaseHangUp:
		if failed != nil && errors.Is(failed, adapter.ErrNotInCall) {
			failed = nil
		}
		a.linked(a.callGen, failed)
	}
	return false, nil
}

func (a *active) linked(gen Generation, failed *adapter.Failure) {
	a.enter(phaseLinked)
	a.callGen = gen
	a.callErr = failed
}

func (a *active) resetLink() {
	switch a.phase {
	case phaseLinking, phaseResetLink, phaseRecoverLink:
		return
	case phaseEndLink:
		// The adapter can't be stopped from ending the session, so it's
		// started again afterwards.
		if !a.job.previous || a.job.from == phaseEndLink {
			a.retire()
			a.enter(phaseRecoverLink)
			return
		}
	}
	a.retire()
	a.enter(phaseResetLink)
	if !a.job.busy {
		a.issue()
	}
}

func (a *active) endLink() {
	if a.phase == phaseEndLink {
		return
	}
	a.retire()
	a.enter(phaseEndLink)
	if !a.job.busy {
		a.issue()
	}
}

// acceptsCalls returns an error if the session can't start a call attempt.
func (a *active) acceptsCalls() error {
	switch a.phase {
	case phaseLinking, phaseResetLink, phaseEndLink, phaseRecoverLink:
		return ErrLinkSuperseded
	}
	return nil
}

func (a *active) waitForCall() (Generation, error) {
	if err := a.acceptsCalls(); err != nil {
		return 0, err
	}
	a.retire()
	a.enter(phaseWaitingForCall)
	a.callGen = a.callGen.Increment()
	return a.callGen, nil
}

func (a *active) call(number adapter.PhoneNumber) (Generation, error) {
	if err := a.acceptsCalls(); err != nil {
		return 0, err
	}
	a.retire()
	a.enter(phaseCall)
	a.callGen = a.callGen.Increment()
	a.number = number
	if !a.job.busy {
		a.send(packet.Dial(a.device, number))
	}
	return a.callGen, nil
}

func (a *active) hangUp(gen Generation) error {
	switch a.phase {
	case phaseWaitingForCall, phaseCall, phaseConnected:
		if gen != a.callGen {
			return ErrP2PSuperseded
		}
		a.retire()
		a.enter(phaseHangUp)
		if !a.job.busy {
			a.send(packet.HangUp())
		}
		return nil
	}
	_, err := a.p2pStatus(gen)
	return err
}

// closedErr is the error reported once the session is ending.
func (a *active) closedErr() error {
	if !a.established {
		return ErrLinkAborted
	}
	return ErrLinkClosed
}

func (a *active) linkingStatus() (bool, error) {
	switch a.phase {
	case phaseLinking, phaseResetLink, phaseRecoverLink:
		return false, nil
	case phaseEndLink:
		return false, a.closedErr()
	}
	return true, nil
}

func (a *active) p2pStatus(gen Generation) (bool, error) {
	switch a.phase {
	case phaseLinking, phaseResetLink, phaseRecoverLink:
		return false, errP2PLinkSuperseded
	case phaseEndLink:
		return false, p2pLinkError(a.closedErr())
	}
	if gen != a.callGen {
		return false, ErrP2PSuperseded
	}
	switch a.phase {
	case phaseLinked:
		if a.callErr != nil {
			return false, &P2PError{P2PCommand, a.callErr}
		}
		return false, ErrP2PClosed
	case phaseConnected:
		return true, nil
	case phaseHangUp:
		return false, ErrP2PClosed
	}
	return false, nil
}
