// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Package channel provides transports for a Mumble client connection.
//
// A [Dialer] opens the byte stream that a connection frames messages onto.
// Use [TLS] to reach a real server, and [Direct] to connect a client to an
// in-process server without touching the network.
package channel

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
)

// A Dialer opens a reliable, ordered byte stream to a server.
//
// The returned connection must support read and write deadlines.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (net.Conn, error)
}

// DialFunc adapts a function to the [Dialer] interface.
type DialFunc func(ctx context.Context, host string, port int) (net.Conn, error)

// Dial implements the [Dialer] interface.
func (f DialFunc) Dial(ctx context.Context, host string, port int) (net.Conn, error) {
	return f(ctx, host, port)
}

// TLS returns a [Dialer] that opens a TCP connection and performs a TLS
// client handshake on it. If cfg is nil a default configuration is used.
// If cfg does not set a ServerName, the host being dialed is used to verify
// the server's certificate.
func TLS(cfg *tls.Config) Dialer {
	return DialFunc(func(ctx context.Context, host string, port int) (net.Conn, error) {
		c := cfg.Clone()
		if c == nil {
			c = new(tls.Config)
		}
		if c.ServerName == "" {
			c.ServerName = host
		}
		d := &tls.Dialer{Config: c}
		return d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	})
}

// Direct constructs a connected pair of in-memory endpoints. Each call to
// Dial on D creates a synchronous pipe, delivers the server end to Accept on
// L, and returns the client end. The host and port are ignored.
//
// Closing L causes pending and subsequent dials to fail with net.ErrClosed.
func Direct() (D Dialer, L net.Listener) {
	p := &pipeListener{
		conns:  make(chan net.Conn),
		closed: make(chan struct{}),
	}
	return p, p
}

type pipeListener struct {
	conns  chan net.Conn
	closed chan struct{}
	once   sync.Once
}

// Dial implements the [Dialer] interface.
func (p *pipeListener) Dial(ctx context.Context, _ string, _ int) (net.Conn, error) {
	cli, srv := net.Pipe()
	select {
	case p.conns <- srv:
		return cli, nil
	case <-p.closed:
	case <-ctx.Done():
		cli.Close()
		srv.Close()
		return nil, ctx.Err()
	}
	cli.Close()
	srv.Close()
	return nil, net.ErrClosed
}

// Accept implements a method of the [net.Listener] interface.
func (p *pipeListener) Accept() (net.Conn, error) {
	select {
	case <-p.closed:
		return nil, net.ErrClosed
	case c := <-p.conns:
		return c, nil
	}
}

// Close implements a method of the [net.Listener] interface.
func (p *pipeListener) Close() (err error) {
	err = net.ErrClosed
	p.once.Do(func() { close(p.closed); err = nil })
	return
}

// Addr implements a method of the [net.Listener] interface.
func (*pipeListener) Addr() net.Addr { return pipeAddr{} }

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }
