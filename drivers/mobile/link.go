package mobile

import "github.com/clktmr/mobile/drivers/mobile/adapter"

// LinkPending is a link attempt started by Driver.Link.
type LinkPending struct {
	gen Generation
}

// Status returns the link once it's established, or nil while it's still
// being established.
func (p LinkPending) Status(d *Driver) (*Link, error) {
	ok, err := d.linkingStatus(p.gen)
	if err != nil || !ok {
		return nil, err
	}
	return &Link{gen: p.gen}, nil
}

// Cancel ends the session of the link attempt.
func (p LinkPending) Cancel(d *Driver) {
	d.endSession(p.gen)
}

// Link is an established session with the adapter.
type Link struct {
	gen Generation
}

func (l *Link) Generation() Generation { return l.gen }

// Accept waits for an incoming call.
func (l *Link) Accept(d *Driver) (P2PPending, error) {
	callGen, err := d.waitForCall(l.gen)
	if err != nil {
		return P2PPending{}, err
	}
	return P2PPending{gen: l.gen, callGen: callGen}, nil
}

// Connect calls another adapter.
func (l *Link) Connect(d *Driver, number adapter.PhoneNumber) (P2PPending, error) {
	callGen, err := d.call(l.gen, number)
	if err != nil {
		return P2PPending{}, err
	}
	return P2PPending{gen: l.gen, callGen: callGen}, nil
}

// Disconnect ends the session.
func (l *Link) Disconnect(d *Driver) {
	d.endSession(l.gen)
}

// P2PPending is a call attempt started by Link.Accept or Link.Connect.
type P2PPending struct {
	gen, callGen Generation
}

// Status returns the connection once the call is established, or nil while
// the call is still in progress.
func (p P2PPending) Status(d *Driver) (*P2P, error) {
	ok, err := d.p2pStatus(p.gen, p.callGen)
	if err != nil || !ok {
		return nil, err
	}
	return &P2P{gen: p.gen, callGen: p.callGen}, nil
}

// HangUp cancels the call attempt.
func (p P2PPending) HangUp(d *Driver) error {
	return d.hangUp(p.gen, p.callGen)
}

// P2P is an established call with another adapter.
type P2P struct {
	gen, callGen Generation
}

// Status returns nil while the call is connected.
func (p *P2P) Status(d *Driver) error {
	_, err := d.p2pStatus(p.gen, p.callGen)
	return err
}

// HangUp ends the call.  The session stays linked.
func (p *P2P) HangUp(d *Driver) error {
	return d.hangUp(p.gen, p.callGen)
}
