// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"errors"
	"fmt"

	"github.com/gomumble/mumble/message"
)

var (
	// ErrConnectionClosed is reported by operations on a connection after it
	// has been closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrNotConnected is reported by operations that require a connection
	// before one has been established.
	ErrNotConnected = errors.New("not connected")

	// ErrTimeout is reported when the deadline of an operation elapses.
	ErrTimeout = errors.New("operation timed out")

	// ErrProtocol is reported for malformed or inconsistent frames and
	// payloads. It is fatal to the session.
	ErrProtocol = errors.New("protocol error")

	// ErrUnauthorized is reported when the server refuses a request.
	// The concrete error has type *DeniedError.
	ErrUnauthorized = errors.New("permission denied")

	// ErrAuthenticationRejected is reported when the server rejects the
	// handshake. The concrete error has type *RejectError.
	ErrAuthenticationRejected = errors.New("authentication rejected")

	// ErrCanceled is reported to a request that was still waiting for its
	// response when the session ended or its context was cancelled.
	ErrCanceled = errors.New("request canceled")
)

// TransportError reports a failure of the underlying stream: the server is
// unreachable, the TLS handshake failed, or the connection was reset.
type TransportError struct {
	Op  string // the operation that failed, e.g. "connect", "read"
	Err error  // the underlying error
}

func (t *TransportError) Error() string { return fmt.Sprintf("%s: %v", t.Op, t.Err) }

func (t *TransportError) Unwrap() error { return t.Err }

// RejectError is the concrete type of an ErrAuthenticationRejected error.
type RejectError struct {
	*message.Reject
}

func (r *RejectError) Error() string {
	kind := message.Get(r.Kind)
	if reason := message.Get(r.Reason); reason != "" {
		return fmt.Sprintf("%v (%v): %s", ErrAuthenticationRejected, kind, reason)
	}
	return fmt.Sprintf("%v (%v)", ErrAuthenticationRejected, kind)
}

func (*RejectError) Unwrap() error { return ErrAuthenticationRejected }

// DeniedError is the concrete type of an ErrUnauthorized error.
type DeniedError struct {
	*message.PermissionDenied
}

func (d *DeniedError) Error() string {
	kind := message.Get(d.Kind)
	if reason := message.Get(d.Reason); reason != "" {
		return fmt.Sprintf("%v (%v): %s", ErrUnauthorized, kind, reason)
	}
	return fmt.Sprintf("%v (%v)", ErrUnauthorized, kind)
}

func (*DeniedError) Unwrap() error { return ErrUnauthorized }

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
