// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gomumble/mumble/channel"
	"github.com/gomumble/mumble/message"
	"golang.org/x/sync/semaphore"
)

// WriteTimeout bounds the time to write one frame, independent of any
// deadline imposed by the caller.
const WriteTimeout = 30 * time.Second

// ConnState is the lifecycle state of a [Conn].
type ConnState int32

const (
	StateDisconnected ConnState = iota // initial
	StateConnecting                    // dial and TLS handshake in progress
	StateConnected                     // ready to read and write frames
	StateClosed                        // terminal
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("ConnState(%d)", int32(s))
}

// aLongTimeAgo is a deadline in the past, used to abort blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// A Conn is a framed connection to a server. It reads and writes whole
// messages, one frame at a time.
//
// Reads must be issued by a single goroutine. Writes may be issued
// concurrently: they are serialized so that frames are never interleaved on
// the wire. A write that fails leaves the stream in an unknown state, so the
// failure is sticky and all later writes report it (see Broken).
type Conn struct {
	host   string
	port   int
	dialer channel.Dialer

	wsem *semaphore.Weighted // held while a frame is being written

	μ     sync.Mutex
	state ConnState
	nc    net.Conn
	r     *bufio.Reader
	w     *bufio.Writer // must hold wsem to write
	werr  error         // sticky write failure
}

// NewConn constructs a disconnected Conn for host and port. If d == nil,
// the connection uses TLS with a default configuration.
func NewConn(host string, port int, d channel.Dialer) *Conn {
	if d == nil {
		d = channel.TLS(nil)
	}
	return &Conn{host: host, port: port, dialer: d, wsem: semaphore.NewWeighted(1)}
}

// State reports the current state of c.
func (c *Conn) State() ConnState {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.state
}

// Connect dials the server and completes the transport handshake. It is a
// no-op if c is already connected. Failures to reach the server are reported
// as *TransportError, and c returns to the disconnected state.
func (c *Conn) Connect(ctx context.Context) error {
	c.μ.Lock()
	switch c.state {
	case StateConnected:
		c.μ.Unlock()
		return nil
	case StateClosed:
		c.μ.Unlock()
		return ErrConnectionClosed
	case StateConnecting:
		c.μ.Unlock()
		return errors.New("connect already in progress")
	}
	c.state = StateConnecting
	c.μ.Unlock()

	nc, err := c.dialer.Dial(ctx, c.host, c.port)

	c.μ.Lock()
	defer c.μ.Unlock()
	if c.state == StateClosed {
		// Closed while we were dialing.
		if nc != nil {
			nc.Close()
		}
		return ErrConnectionClosed
	}
	if err != nil {
		c.state = StateDisconnected
		return &TransportError{Op: "connect", Err: err}
	}
	c.nc, c.r, c.w = nc, bufio.NewReader(nc), bufio.NewWriter(nc)
	c.werr = nil
	c.state = StateConnected
	return nil
}

// Close closes the connection. Any blocked read or write is aborted. After
// Close, all operations on c report ErrConnectionClosed. Close is safe to call
// more than once.
func (c *Conn) Close() error {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	if c.nc != nil {
		return c.nc.Close()
	}
	return nil
}

// stream returns the network connection and reader if c is connected.
func (c *Conn) stream() (net.Conn, *bufio.Reader, error) {
	c.μ.Lock()
	defer c.μ.Unlock()
	switch c.state {
	case StateConnected:
		return c.nc, c.r, nil
	case StateClosed:
		return nil, nil, ErrConnectionClosed
	default:
		return nil, nil, ErrNotConnected
	}
}

func (c *Conn) isClosed() bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.state == StateClosed
}

// ReadMessage reads the next frame and decodes its payload. A frame of type
// TypeUDPTunnel is returned as a *message.Tunnel without parsing.
//
// The header and the payload are each read within their own window of
// length timeout; if timeout is zero there is no per-read limit. The read is
// also aborted if ctx ends, in which case the error from ctx is reported.
//
// A declared length over MaxPayloadLen, or a payload cut short by the end of
// the stream or its window, is reported as ErrProtocol.
func (c *Conn) ReadMessage(ctx context.Context, timeout time.Duration) (message.Message, error) {
	nc, r, err := c.stream()
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { nc.SetReadDeadline(aLongTimeAgo) })
	defer stop()

	var hdr [HeaderLen]byte
	if err := c.readWindow(ctx, nc, r, hdr[:], timeout); err != nil {
		return nil, err
	}
	typ, size := parseHeader(hdr[:])
	if size > MaxPayloadLen {
		return nil, protocolError("%v payload length %d exceeds limit %d", typ, size, MaxPayloadLen)
	}
	payload := make([]byte, int(size))
	if err := c.readWindow(ctx, nc, r, payload, timeout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("%w: %v payload truncated (want %d bytes): %w", ErrProtocol, typ, size, err)
		}
		return nil, err
	}
	m, err := message.Decode(typ, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return m, nil
}

// readWindow fills buf from r, allowing at most timeout for the whole read.
func (c *Conn) readWindow(ctx context.Context, nc net.Conn, r *bufio.Reader, buf []byte, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	nc.SetReadDeadline(deadline)

	// If ctx ended before the deadline was installed, the AfterFunc may have
	// been overridden; check explicitly.
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return c.ioError(ctx, "read", err)
	}
	return nil
}

// ioError classifies an error from the underlying stream.
func (c *Conn) ioError(ctx context.Context, op string, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case c.isClosed():
		return ErrConnectionClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return &TransportError{Op: op, Err: err}
}

// SendMessage encodes m and writes it as a single frame.
func (c *Conn) SendMessage(ctx context.Context, m message.Message) error {
	pkt, err := NewPacket(m)
	if err != nil {
		return err
	}
	return c.writePacket(ctx, pkt)
}

// SendTunnel writes data as a single TypeUDPTunnel frame.
func (c *Conn) SendTunnel(ctx context.Context, data []byte) error {
	return c.writePacket(ctx, &Packet{Type: message.TypeUDPTunnel, Payload: data})
}

// Broken reports the failure of an earlier write, or nil. Once a write has
// failed the stream may end in a partial frame, and c cannot be written again.
func (c *Conn) Broken() error {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.werr
}

// errInterrupted is recorded when a write is abandoned partway through a
// frame because its caller gave up.
var errInterrupted = errors.New("frame interrupted")

// writePacket writes pkt to the stream. Writers are mutually exclusive, and
// each write must complete within WriteTimeout. A writer waiting for its turn
// gives up when ctx ends, without affecting the stream.
func (c *Conn) writePacket(ctx context.Context, pkt *Packet) error {
	if len(pkt.Payload) > MaxPayloadLen {
		return fmt.Errorf("%v payload length %d exceeds limit %d", pkt.Type, len(pkt.Payload), MaxPayloadLen)
	}
	if err := c.wsem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.wsem.Release(1)

	nc, w, err := c.writer()
	if err != nil {
		return err
	}
	nc.SetWriteDeadline(time.Now().Add(WriteTimeout))
	stop := context.AfterFunc(ctx, func() { nc.SetWriteDeadline(aLongTimeAgo) })
	defer stop()
	if err := ctx.Err(); err != nil {
		return err // nothing has been written
	}

	_, err = pkt.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		broken := c.writeFailure(ctx, err)
		c.μ.Lock()
		c.werr = broken
		c.μ.Unlock()

		// The caller sees its own cancellation; later writers see the
		// recorded failure.
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return broken
	}
	return nil
}

// writer returns the network connection and buffered writer if c is
// connected and no earlier write has failed.
func (c *Conn) writer() (net.Conn, *bufio.Writer, error) {
	c.μ.Lock()
	defer c.μ.Unlock()
	switch {
	case c.state == StateClosed:
		return nil, nil, ErrConnectionClosed
	case c.state != StateConnected:
		return nil, nil, ErrNotConnected
	case c.werr != nil:
		return nil, nil, c.werr
	}
	return c.nc, c.w, nil
}

// writeFailure classifies a failed write independently of the context of
// the caller that issued it.
func (c *Conn) writeFailure(ctx context.Context, err error) error {
	switch {
	case c.isClosed():
		return ErrConnectionClosed
	case ctx.Err() != nil:
		return &TransportError{Op: "write", Err: errInterrupted}
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("write: %w", ErrTimeout)
	}
	return &TransportError{Op: "write", Err: err}
}
