// Package errors defines the proxy's wire-facing error type.
//
// It is returned by components that can fail in a way the client is
// meant to see (a 400 for an unparsable request, a 502 for an
// unreachable origin); everything else is a plain error that ends the
// connection silently per spec §7.
package errors

import "fmt"

// Error carries everything the error responder (package respond) needs
// to render spec §4.H's HTML error page.
type Error struct {
	Code     int
	ShortMsg string
	LongMsg  string
	Cause    string
	wrapped  error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Code, e.ShortMsg, e.Cause, e.wrapped)
	}
	return fmt.Sprintf("%d %s: %s", e.Code, e.ShortMsg, e.Cause)
}

func (e *Error) Unwrap() error { return e.wrapped }

// WithCause attaches the underlying error for logging; it is never
// written to the wire.
func (e *Error) WithCause(err error) *Error {
	e.wrapped = err
	return e
}

// BadRequest builds the spec §4.H "400 Bad Request" error (malformed
// request line or URI).
func BadRequest(cause string) *Error {
	return &Error{
		Code:     400,
		ShortMsg: "Bad Request",
		LongMsg:  "URI parse failed",
		Cause:    cause,
	}
}

// BadGateway builds the spec §4.H "502 Bad Gateway" error (origin
// unreachable).
func BadGateway(cause string) *Error {
	return &Error{
		Code:     502,
		ShortMsg: "Bad Gateway",
		LongMsg:  "Proxy couldn't connect to the origin server",
		Cause:    cause,
	}
}
