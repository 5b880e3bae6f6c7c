// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Package mumbletest provides support code for testing clients against a
// scripted server.
package mumbletest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/creachadair/taskgroup"
	"github.com/gomumble/mumble"
	"github.com/gomumble/mumble/message"
)

// A Script handles one client connection to a Server. The connection is
// closed when the script returns.
type Script func(ctx context.Context, sc *ServerConn) error

// Server accepts connections from a listener and runs a script for each one.
type Server struct {
	lst    net.Listener
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start starts a server that accepts connections from lst and runs script
// for each one, until Close is called.
func Start(lst net.Listener, script Script) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{lst: lst, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		s.err = Loop(ctx, lst, script)
	}()
	return s
}

// Addr returns the address of the server's listener.
func (s *Server) Addr() net.Addr { return s.lst.Addr() }

// Close stops the server, closes any active connections, and blocks until
// all scripts have exited. It returns the first error reported by a script.
func (s *Server) Close() error {
	s.cancel()
	<-s.done
	return s.err
}

// Loop accepts connections from lst and runs script for each one in a
// goroutine. Loop continues until lst closes or ctx ends.
//
// When ctx terminates, all running connections are closed. When lst closes,
// the loop waits for running scripts to exit before returning. Loop reports
// the first error returned by a script.
func Loop(ctx context.Context, lst net.Listener, script Script) error {
	var μ sync.Mutex
	var first error
	g := taskgroup.New(nil)
	for {
		conn, err := accept(ctx, lst)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				err = nil
			}
			g.Wait()
			if err == nil {
				μ.Lock()
				err = first
				μ.Unlock()
			}
			return err
		}

		g.Go(func() error {
			sctx, cancel := context.WithCancel(ctx)
			defer cancel()

			sc := NewServerConn(conn)
			defer sc.Close()
			stop := context.AfterFunc(sctx, func() { sc.Close() })
			defer stop()

			if err := script(sctx, sc); err != nil {
				μ.Lock()
				if first == nil {
					first = err
				}
				μ.Unlock()
			}
			return nil
		})
	}
}

// accept waits for a connection from lst. A net.Listener does not obey a
// context, so simulate it by closing the listener if ctx ends.
func accept(ctx context.Context, lst net.Listener) (net.Conn, error) {
	ok := make(chan struct{})
	defer close(ok)
	taskgroup.Go(func() error {
		select {
		case <-ctx.Done():
			lst.Close()
		case <-ok:
			// release the waiter
		}
		return nil
	})
	return lst.Accept()
}

// A ServerConn is the server side of a client connection. Sends may be
// issued concurrently with receives.
type ServerConn struct {
	net.Conn
	r  *bufio.Reader
	wμ sync.Mutex
}

// NewServerConn wraps conn for use by a script.
func NewServerConn(conn net.Conn) *ServerConn {
	return &ServerConn{Conn: conn, r: bufio.NewReader(conn)}
}

// Send sends each of the messages to the client, in order.
func (sc *ServerConn) Send(ms ...message.Message) error {
	for _, m := range ms {
		pkt, err := mumble.NewPacket(m)
		if err != nil {
			return err
		}
		if err := sc.write(pkt); err != nil {
			return err
		}
	}
	return nil
}

// SendTunnel sends data to the client as an audio tunnel frame.
func (sc *ServerConn) SendTunnel(data []byte) error {
	return sc.write(&mumble.Packet{Type: message.TypeUDPTunnel, Payload: data})
}

// WriteRaw writes data to the client without framing.
func (sc *ServerConn) WriteRaw(data []byte) error {
	sc.wμ.Lock()
	defer sc.wμ.Unlock()
	_, err := sc.Conn.Write(data)
	return err
}

func (sc *ServerConn) write(pkt *mumble.Packet) error {
	sc.wμ.Lock()
	defer sc.wμ.Unlock()
	_, err := pkt.WriteTo(sc.Conn)
	return err
}

// Recv reads the next message from the client.
func (sc *ServerConn) Recv() (message.Message, error) {
	var pkt mumble.Packet
	if _, err := pkt.ReadFrom(sc.r); err != nil {
		return nil, err
	}
	return pkt.Decode()
}

// Expect reads messages from sc until one of type T arrives, and returns it.
// Messages of other types are discarded.
func Expect[T message.Message](sc *ServerConn) (T, error) {
	for {
		m, err := sc.Recv()
		if err != nil {
			var zero T
			return zero, err
		}
		if v, ok := m.(T); ok {
			return v, nil
		}
	}
}

// ServerVersion is the version announced by Handshake.
var ServerVersion = mumble.Version{Major: 1, Minor: 4, Patch: 0}

// Handshake performs the server side of the handshake. It waits for the
// client's version and authentication, then announces the server version and
// codec, sends each of the setup messages, and finally synchronizes the
// client with the given session id. It returns the client's authentication.
func (sc *ServerConn) Handshake(session uint32, setup ...message.Message) (*message.Authenticate, error) {
	if _, err := Expect[*message.Version](sc); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	auth, err := Expect[*message.Authenticate](sc)
	if err != nil {
		return nil, fmt.Errorf("read authenticate: %w", err)
	}
	if err := sc.Send(
		&message.Version{
			Version: message.Ptr(ServerVersion.Encode()),
			Release: message.Ptr("mumbletest"),
			OS:      message.Ptr("test"),
		},
		&message.CodecVersion{
			Alpha:       message.Ptr(int32(-2147483637)),
			Beta:        message.Ptr(int32(0)),
			PreferAlpha: message.Ptr(true),
			Opus:        message.Ptr(true),
		},
	); err != nil {
		return nil, err
	}
	if err := sc.Send(setup...); err != nil {
		return nil, err
	}
	if err := sc.Send(&message.ServerSync{
		Session:      &session,
		MaxBandwidth: message.Ptr(uint32(72000)),
		WelcomeText:  message.Ptr("Welcome"),
	}); err != nil {
		return nil, err
	}
	return auth, nil
}

// Idle discards messages from the client until the connection closes or ctx
// ends. It reports nil in either case.
func (sc *ServerConn) Idle(ctx context.Context) error {
	for ctx.Err() == nil {
		if _, err := sc.Recv(); err != nil {
			return nil
		}
	}
	return nil
}
