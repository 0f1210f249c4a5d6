package mobile

import (
	"errors"
)

type LinkErrorKind uint8

const (
	LinkRequest LinkErrorKind = iota
	LinkTimeout
	LinkCommand
	LinkAborted
	LinkSuperseded
	LinkClosed
)

var linkErrorText = [...]string{
	LinkRequest:    "an error occurred while processing the request",
	LinkTimeout:    "the request timed out",
	LinkCommand:    "the adapter responded with an error",
	LinkAborted:    "the link attempt was aborted",
	LinkSuperseded: "the link attempt was superseded",
	LinkClosed:     "the link was closed",
}

func (k LinkErrorKind) String() string { return linkErrorText[k] }

// LinkError is returned by operations on a link.  Err holds the cause for
// the Request, Timeout and Command kinds.
//
// errors.Is matches a LinkError with the sentinel of the same kind.
type LinkError struct {
	Kind LinkErrorKind
	Err  error
}

var (
	ErrLinkAborted    = &LinkError{Kind: LinkAborted}
	ErrLinkSuperseded = &LinkError{Kind: LinkSuperseded}
	ErrLinkClosed     = &LinkError{Kind: LinkClosed}
)

func (e *LinkError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *LinkError) Unwrap() error { return e.Err }

func (e *LinkError) Is(target error) bool {
	t, ok := target.(*LinkError)
	return ok && t.Err == nil && t.Kind == e.Kind
}

type P2PErrorKind uint8

const (
	P2PCommand P2PErrorKind = iota
	P2PClosed
	P2PSuperseded
	P2PLink
)

var p2pErrorText = [...]string{
	P2PCommand:    "the adapter responded with an error",
	P2PClosed:     "the connection was closed",
	P2PSuperseded: "the connection attempt was superseded",
	P2PLink:       "link connection error",
}

func (k P2PErrorKind) String() string { return p2pErrorText[k] }

// P2PError is returned by operations on a connection to another adapter.
// Err is the adapter's *adapter.Failure for the Command kind and the
// *LinkError for the Link kind.
type P2PError struct {
	Kind P2PErrorKind
	Err  error
}

var (
	ErrP2PClosed     = &P2PError{Kind: P2PClosed}
	ErrP2PSuperseded = &P2PError{Kind: P2PSuperseded}

	errP2PLinkSuperseded = &P2PError{P2PLink, ErrLinkSuperseded}
	errP2PLinkClosed     = &P2PError{P2PLink, ErrLinkClosed}
	errP2PLinkAborted    = &P2PError{P2PLink, ErrLinkAborted}
)

func (e *P2PError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *P2PError) Unwrap() error { return e.Err }

func (e *P2PError) Is(target error) bool {
	t, ok := target.(*P2PError)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// p2pLinkError lifts a link level error into a P2PError.
func p2pLinkError(err error) error {
	switch {
	case err == ErrLinkSuperseded:
		return errP2PLinkSuperseded
	case err == ErrLinkClosed:
		return errP2PLinkClosed
	case err == ErrLinkAborted:
		return errP2PLinkAborted
	}
	var linkErr *LinkError
	if errors.As(err, &linkErr) {
		return &P2PError{P2PLink, linkErr}
	}
	return err
}
