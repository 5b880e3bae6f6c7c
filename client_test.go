// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/creachadair/mds/mtest"
	"github.com/fortytw2/leaktest"
	"github.com/gomumble/mumble"
	"github.com/gomumble/mumble/channel"
	"github.com/gomumble/mumble/message"
	"github.com/gomumble/mumble/mumbletest"
	"github.com/gomumble/mumble/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// startServer starts a scripted server and returns a client configured to
// reach it. The caller must close the server.
func startServer(t *testing.T, script mumbletest.Script) (*mumble.Client, *mumbletest.Server) {
	t.Helper()
	d, lst := channel.Direct()
	srv := mumbletest.Start(lst, script)
	c := mumble.NewClient("pipe", 0).SetDialer(d).LogMessages(logMessage(t))
	return c, srv
}

func closeServer(t *testing.T, srv *mumbletest.Server) {
	t.Helper()
	if err := srv.Close(); err != nil {
		t.Errorf("Server: %v", err)
	}
}

func logMessage(t *testing.T) mumble.MessageLogger {
	return func(mi mumble.MessageInfo) { t.Logf("Client: %v", mi) }
}

var testSetup = []message.Message{
	&message.ChannelState{ChannelID: message.Ptr(uint32(0)), Name: message.Ptr("Root")},
	&message.ChannelState{ChannelID: message.Ptr(uint32(1)), Parent: message.Ptr(uint32(0)), Name: message.Ptr("Lobby")},
	&message.ChannelState{ChannelID: message.Ptr(uint32(2)), Parent: message.Ptr(uint32(0)), Name: message.Ptr("AFK"), Links: []uint32{1}},
	&message.UserState{Session: message.Ptr(uint32(7)), Name: message.Ptr("tester"), ChannelID: message.Ptr(uint32(1))},
	&message.UserState{Session: message.Ptr(uint32(9)), Name: message.Ptr("other"), ChannelID: message.Ptr(uint32(1)), UserID: message.Ptr(uint32(44))},
	&message.ServerConfig{AllowHTML: message.Ptr(true), MessageLength: message.Ptr(uint32(5000)), MaxUsers: message.Ptr(uint32(100))},
}

// serve returns a script that completes the handshake with the test setup,
// then calls each request handler for the messages it receives until the
// client disconnects.
func serve(reply func(sc *mumbletest.ServerConn, m message.Message) error) mumbletest.Script {
	return func(ctx context.Context, sc *mumbletest.ServerConn) error {
		if _, err := sc.Handshake(7, testSetup...); err != nil {
			return err
		}
		for {
			m, err := sc.Recv()
			if err != nil {
				return nil // client went away
			}
			if _, ok := m.(*message.Ping); ok || reply == nil {
				continue
			}
			if err := reply(sc, m); err != nil {
				return err
			}
		}
	}
}

func TestConnect(t *testing.T) {
	defer leaktest.Check(t)()

	var auth *message.Authenticate
	c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
		var err error
		auth, err = sc.Handshake(7, testSetup...)
		if err != nil {
			return err
		}
		return sc.Idle(ctx)
	})
	defer closeServer(t, srv)

	if got := c.State(); got != mumble.SessionIdle {
		t.Errorf("State before connect: got %v, want %v", got, mumble.SessionIdle)
	}
	if err := c.Connect(t.Context(), "tester", "hunter2"); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	if !c.Connected() {
		t.Error("Connected: got false, want true")
	}
	if got := c.Session(); got != 7 {
		t.Errorf("Session: got %d, want 7", got)
	}

	// Connecting again is a no-op.
	if err := c.Connect(t.Context(), "tester", "hunter2"); err != nil {
		t.Errorf("Connect again: unexpected error: %v", err)
	}

	if diff := cmp.Diff(&message.Authenticate{
		Username: message.Ptr("tester"),
		Password: message.Ptr("hunter2"),
		Opus:     message.Ptr(true),
	}, auth, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Authenticate (-want, +got):\n%s", diff)
	}

	info := c.ServerInfo()
	if diff := cmp.Diff(mumble.ServerInfo{
		Host:          "pipe",
		Port:          mumble.DefaultPort,
		Version:       mumbletest.ServerVersion,
		Release:       "mumbletest",
		OS:            "test",
		WelcomeText:   "Welcome",
		MaxBandwidth:  72000,
		MaxUsers:      100,
		MessageLength: 5000,
		AllowHTML:     true,
	}, info); diff != "" {
		t.Errorf("ServerInfo (-want, +got):\n%s", diff)
	}
	if codec := c.Codec(); codec == nil || !message.Get(codec.Opus) {
		t.Errorf("Codec: got %+v, want opus", codec)
	}

	self, ok := c.Self()
	if !ok || self.Name != "tester" || self.ChannelID != 1 {
		t.Errorf("Self: got %+v, %v; want tester in channel 1", self, ok)
	}
	if got := c.Channels().Len(); got != 3 {
		t.Errorf("Channels: got %d, want 3", got)
	}
	if p, ok, err := c.Parent(2); err != nil || !ok || p.Name != "Root" {
		t.Errorf("Parent(2): got %+v, %v, %v; want Root", p, ok, err)
	}
	var names []string
	for _, u := range c.Members(1) {
		names = append(names, u.Name)
	}
	if diff := cmp.Diff([]string{"tester", "other"}, names, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("Members(1) (-want, +got):\n%s", diff)
	}

	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect: unexpected error: %v", err)
	}
}

func TestConnectReject(t *testing.T) {
	defer leaktest.Check(t)()

	c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
		if _, err := mumbletest.Expect[*message.Authenticate](sc); err != nil {
			return err
		}
		if err := sc.Send(&message.Reject{
			Kind:   message.Ptr(message.RejectWrongUserPassword),
			Reason: message.Ptr("Wrong password"),
		}); err != nil {
			return err
		}
		return sc.Idle(ctx)
	})
	defer closeServer(t, srv)

	var exitErr error
	c.OnExit(func(err error) { exitErr = err })

	err := c.Connect(t.Context(), "tester", "wrong")
	if !errors.Is(err, mumble.ErrAuthenticationRejected) {
		t.Fatalf("Connect: got %v, want %v", err, mumble.ErrAuthenticationRejected)
	}
	var rerr *mumble.RejectError
	if !errors.As(err, &rerr) {
		t.Fatalf("Connect: got %T, want *RejectError", err)
	}
	if got := message.Get(rerr.Kind); got != message.RejectWrongUserPassword {
		t.Errorf("Reject kind: got %v, want %v", got, message.RejectWrongUserPassword)
	}
	if c.Connected() {
		t.Error("Connected: got true, want false")
	}
	if got := c.State(); got != mumble.SessionDisconnected {
		t.Errorf("State: got %v, want %v", got, mumble.SessionDisconnected)
	}
	if exitErr != err {
		t.Errorf("OnExit: got %v, want %v", exitErr, err)
	}
	if err := c.SendMessage(t.Context(), &message.Ping{}); !errors.Is(err, mumble.ErrAuthenticationRejected) {
		t.Errorf("SendMessage: got %v, want %v", err, mumble.ErrAuthenticationRejected)
	}
}

func TestConnectUnreachable(t *testing.T) {
	defer leaktest.Check(t)()

	c := mumble.NewClient("nowhere", 1).SetDialer(channel.DialFunc(
		func(context.Context, string, int) (net.Conn, error) {
			return nil, errors.New("no route to host")
		}))
	err := c.Connect(t.Context(), "tester", "")
	var terr *mumble.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Connect: got %v, want *TransportError", err)
	}
	if err := c.Wait(); err != terr {
		t.Errorf("Wait: got %v, want %v", err, terr)
	}
	if err := c.SendMessage(t.Context(), &message.Ping{}); err == nil {
		t.Error("SendMessage: got nil, want error")
	}
}

func TestConnectCanceled(t *testing.T) {
	defer leaktest.Check(t)()

	c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
		return sc.Idle(ctx) // never complete the handshake
	})
	defer closeServer(t, srv)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	err := c.Connect(ctx, "tester", "")
	if !errors.Is(err, mumble.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect: got %v, want %v", err, mumble.ErrTimeout)
	}
	if c.Connected() {
		t.Error("Connected: got true, want false")
	}
}

func TestDisconnect(t *testing.T) {
	defer leaktest.Check(t)()

	c, srv := startServer(t, serve(nil))
	defer closeServer(t, srv)

	var exits int
	c.OnExit(func(err error) {
		exits++
		if err != nil {
			t.Errorf("OnExit: unexpected error: %v", err)
		}
	})
	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	if c.Channels().Len() == 0 || c.Users().Len() == 0 {
		t.Fatal("State is empty after connect")
	}

	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect: unexpected error: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect again: unexpected error: %v", err)
	}
	if exits != 1 {
		t.Errorf("OnExit called %d times, want 1", exits)
	}
	if n := c.Channels().Len(); n != 0 {
		t.Errorf("Channels after disconnect: got %d, want 0", n)
	}
	if n := c.Users().Len(); n != 0 {
		t.Errorf("Users after disconnect: got %d, want 0", n)
	}
	if got := c.State(); got != mumble.SessionDisconnected {
		t.Errorf("State: got %v, want %v", got, mumble.SessionDisconnected)
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done channel is not closed")
	}
	if err := c.SendMessage(t.Context(), &message.Ping{}); !errors.Is(err, mumble.ErrConnectionClosed) {
		t.Errorf("SendMessage: got %v, want %v", err, mumble.ErrConnectionClosed)
	}
	if err := c.SendTunnel(t.Context(), []byte("audio")); !errors.Is(err, mumble.ErrConnectionClosed) {
		t.Errorf("SendTunnel: got %v, want %v", err, mumble.ErrConnectionClosed)
	}
	if _, err := c.MoveUser(t.Context(), 7, 2); !errors.Is(err, mumble.ErrNotConnected) {
		t.Errorf("MoveUser: got %v, want %v", err, mumble.ErrNotConnected)
	}

	// The client can connect again.
	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Reconnect: unexpected error: %v", err)
	}
	if got := c.Users().Len(); got != 2 {
		t.Errorf("Users after reconnect: got %d, want 2", got)
	}
	c.Disconnect()
}

func TestServerFailure(t *testing.T) {
	defer leaktest.Check(t)()

	t.Run("Closed", func(t *testing.T) {
		c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
			_, err := sc.Handshake(7, testSetup...)
			return err // hang up
		})
		defer closeServer(t, srv)

		exited := make(chan error, 1)
		c.OnExit(func(err error) { exited <- err })
		if err := c.Connect(t.Context(), "tester", ""); err != nil {
			t.Fatalf("Connect: unexpected error: %v", err)
		}

		err := c.Wait()
		if err == nil {
			t.Fatal("Wait: got nil, want error")
		}
		if got := <-exited; got != err {
			t.Errorf("OnExit: got %v, want %v", got, err)
		}
		if got := c.Err(); got != err {
			t.Errorf("Err: got %v, want %v", got, err)
		}
		if c.Channels().Len() != 0 || c.Users().Len() != 0 {
			t.Error("State was not cleared after failure")
		}
		if got := c.SendMessage(t.Context(), &message.Ping{}); got != err {
			t.Errorf("SendMessage: got %v, want %v", got, err)
		}
		if got := c.Disconnect(); got != err {
			t.Errorf("Disconnect: got %v, want %v", got, err)
		}
	})

	t.Run("Protocol", func(t *testing.T) {
		var hdr [mumble.HeaderLen]byte
		hdr[1] = byte(message.TypeTextMessage)
		hdr[2] = 0xff // length over the limit

		c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
			if _, err := sc.Handshake(7); err != nil {
				return err
			}
			if err := sc.WriteRaw(hdr[:]); err != nil {
				return err
			}
			return sc.Idle(ctx)
		})
		defer closeServer(t, srv)

		if err := c.Connect(t.Context(), "tester", ""); err != nil {
			t.Fatalf("Connect: unexpected error: %v", err)
		}
		if err := c.Wait(); !errors.Is(err, mumble.ErrProtocol) {
			t.Errorf("Wait: got %v, want %v", err, mumble.ErrProtocol)
		}
	})

	t.Run("Inconsistent", func(t *testing.T) {
		c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
			if _, err := sc.Handshake(7); err != nil {
				return err
			}
			if err := sc.Send(&message.ChannelState{Name: message.Ptr("no id")}); err != nil {
				return err
			}
			return sc.Idle(ctx)
		})
		defer closeServer(t, srv)

		if err := c.Connect(t.Context(), "tester", ""); err != nil {
			t.Fatalf("Connect: unexpected error: %v", err)
		}
		err := c.Wait()
		if !errors.Is(err, mumble.ErrProtocol) || !errors.Is(err, state.ErrMissingID) {
			t.Errorf("Wait: got %v, want %v and %v", err, mumble.ErrProtocol, state.ErrMissingID)
		}
	})

	t.Run("HandlerPanic", func(t *testing.T) {
		c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
			if _, err := sc.Handshake(7); err != nil {
				return err
			}
			if err := sc.Send(&message.TextMessage{Message: message.Ptr("boom")}); err != nil {
				return err
			}
			return sc.Idle(ctx)
		})
		defer closeServer(t, srv)

		c.Handle(mumble.Handlers{
			TextMessage: func(*message.TextMessage) { panic("kaboom") },
		})
		if err := c.Connect(t.Context(), "tester", ""); err != nil {
			t.Fatalf("Connect: unexpected error: %v", err)
		}
		if err := c.Wait(); err == nil || !strings.Contains(err.Error(), "kaboom") {
			t.Errorf("Wait: got %v, want handler panic", err)
		}
	})
}

func TestWriteFailure(t *testing.T) {
	defer leaktest.Check(t)()

	pinged := make(chan struct{})
	c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
		if _, err := sc.Handshake(7, testSetup...); err != nil {
			return err
		}
		if _, err := mumbletest.Expect[*message.Ping](sc); err != nil {
			return err
		}
		close(pinged)
		<-ctx.Done() // stop reading
		return nil
	})
	defer closeServer(t, srv)

	var exit error
	c.OnExit(func(err error) { exit = err })
	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	select {
	case <-pinged:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the first ping")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	if err := c.SendTextMessage(ctx, "anyone there?", mumble.ToChannel(1)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SendTextMessage: got %v, want %v", err, context.DeadlineExceeded)
	}

	// The interrupted write ends the session.
	if c.Connected() {
		t.Error("Client is still connected after a failed write")
	}
	werr := c.Err()
	var terr *mumble.TransportError
	if !errors.As(werr, &terr) {
		t.Fatalf("Err: got %v, want *TransportError", werr)
	}
	if errors.Is(werr, context.DeadlineExceeded) {
		t.Errorf("Err: %v should not match %v", werr, context.DeadlineExceeded)
	}
	if exit != werr {
		t.Errorf("OnExit: got %v, want %v", exit, werr)
	}
	if err := c.SendMessage(context.Background(), &message.Ping{}); err != werr {
		t.Errorf("SendMessage after failure: got %v, want %v", err, werr)
	}
	if err := c.Disconnect(); err != werr {
		t.Errorf("Disconnect: got %v, want %v", err, werr)
	}
}

func TestHandlers(t *testing.T) {
	defer leaktest.Check(t)()

	c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
		if _, err := sc.Handshake(7, testSetup...); err != nil {
			return err
		}
		if err := sc.Send(
			&message.UserState{Session: message.Ptr(uint32(9)), ChannelID: message.Ptr(uint32(2))},
			&message.TextMessage{Actor: message.Ptr(uint32(9)), Message: message.Ptr("hello")},
			&message.UserRemove{Session: message.Ptr(uint32(9)), Reason: message.Ptr("bye")},
		); err != nil {
			return err
		}
		return sc.Idle(ctx)
	})
	defer closeServer(t, srv)

	var μ sync.Mutex
	var events []string
	record := func(s string) {
		μ.Lock()
		defer μ.Unlock()
		events = append(events, s)
	}
	done := make(chan struct{})
	c.Handle(mumble.Handlers{
		UserState: func(m *message.UserState) {
			if message.Get(m.Session) != 9 {
				return
			}
			// The handler observes the updated state.
			u, _ := c.Users().Get(9)
			ch, _ := c.Channels().Get(u.ChannelID)
			record("moved " + u.Name + " to " + ch.Name)
		},
		TextMessage: func(m *message.TextMessage) {
			record("text " + message.Get(m.Message))
		},
		UserRemove: func(m *message.UserRemove) {
			if _, ok := c.Users().Get(9); ok {
				t.Error("User 9 still present in remove handler")
			}
			record("removed " + message.Get(m.Reason))
			close(done)
		},
	})

	var seen []message.Type
	unregister := c.OnMessage(func(m message.Message) {
		if m.Type() == message.TypeTextMessage {
			μ.Lock()
			seen = append(seen, m.Type())
			μ.Unlock()
		}
	})
	defer unregister()

	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for handlers")
	}
	c.Disconnect()

	if diff := cmp.Diff([]string{"moved other to AFK", "text hello", "removed bye"}, events); diff != "" {
		t.Errorf("Events (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]message.Type{message.TypeTextMessage}, seen); diff != "" {
		t.Errorf("Observed (-want, +got):\n%s", diff)
	}
}

func TestRequestFromHandler(t *testing.T) {
	defer leaktest.Check(t)()

	c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
		if _, err := sc.Handshake(7, testSetup...); err != nil {
			return err
		}
		if err := sc.Send(&message.TextMessage{
			Actor: message.Ptr(uint32(9)), Message: message.Ptr("what can I do?"),
		}); err != nil {
			return err
		}
		for {
			m, err := sc.Recv()
			if err != nil {
				return nil // client went away
			}
			if q, ok := m.(*message.PermissionQuery); ok {
				q.Permissions = message.Ptr(uint32(0x1))
				if err := sc.Send(q); err != nil {
					return nil
				}
			}
		}
	})
	defer closeServer(t, srv)

	inline := make(chan error, 1)
	async := make(chan error, 1)
	c.SetRequestTimeout(250 * time.Millisecond).Handle(mumble.Handlers{
		TextMessage: func(*message.TextMessage) {
			// The reply cannot be read while this handler holds the receive loop.
			_, err := c.QueryPermissions(context.Background(), 0)
			inline <- err

			go func() {
				_, err := c.QueryPermissions(context.Background(), 0)
				async <- err
			}()
		},
	})
	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	defer c.Disconnect()

	for _, tc := range []struct {
		name string
		ch   chan error
		want error
	}{
		{"Inline", inline, mumble.ErrTimeout},
		{"Async", async, nil},
	} {
		select {
		case err := <-tc.ch:
			if !errors.Is(err, tc.want) {
				t.Errorf("%s request: got %v, want %v", tc.name, err, tc.want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for the %s request", tc.name)
		}
	}
	if !c.Connected() {
		t.Errorf("Session ended: %v", c.Err())
	}
}

func TestOnMessageNil(t *testing.T) {
	c := mumble.NewClient("pipe", 0)
	got := mtest.MustPanic(t, func() { c.OnMessage(nil) }).(string)
	if !strings.Contains(got, "nil message observer") {
		t.Errorf("Panic: got %q, want nil observer", got)
	}
}

func TestRequest(t *testing.T) {
	defer leaktest.Check(t)()

	// The test server grants moves into channel 1 and 2, denies moves into
	// channel 3, and ignores all other requests.
	c, srv := startServer(t, serve(func(sc *mumbletest.ServerConn, m message.Message) error {
		switch m := m.(type) {
		case *message.UserState:
			switch message.Get(m.ChannelID) {
			case 1, 2:
				// Send an unrelated update first, to check that it is not
				// mistaken for the response.
				return sc.Send(
					&message.UserState{Session: message.Ptr(uint32(9)), SelfMute: message.Ptr(true)},
					&message.UserState{Session: m.Session, ChannelID: m.ChannelID, Actor: message.Ptr(uint32(7))},
				)
			case 3:
				return sc.Send(&message.PermissionDenied{
					Kind:      message.Ptr(message.DenyPermission),
					ChannelID: message.Ptr(uint32(3)),
					Session:   m.Session,
				})
			}
			if m.SelfMute != nil {
				return sc.Send(&message.UserState{Session: m.Session, SelfMute: m.SelfMute})
			}
		case *message.PermissionQuery:
			return sc.Send(&message.PermissionQuery{ChannelID: m.ChannelID, Permissions: message.Ptr(uint32(0x0e))})
		}
		return nil
	}))
	defer closeServer(t, srv)

	c.SetRequestTimeout(100 * time.Millisecond)
	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	defer c.Disconnect()

	t.Run("Match", func(t *testing.T) {
		u, err := c.JoinChannel(t.Context(), 2)
		if err != nil {
			t.Fatalf("JoinChannel: unexpected error: %v", err)
		}
		if u.Session != 7 || u.ChannelID != 2 {
			t.Errorf("JoinChannel: got %+v, want session 7 in channel 2", u)
		}
		if other, _ := c.Users().Get(9); !other.SelfMute {
			t.Errorf("User 9: got %+v, want self-muted", other)
		}
	})

	t.Run("Generic", func(t *testing.T) {
		rsp, err := mumble.Request(t.Context(), c, &message.UserState{
			Session:   message.Ptr(uint32(7)),
			ChannelID: message.Ptr(uint32(1)),
		}, func(m *message.UserState) bool {
			return message.Get(m.Session) == 7 && m.ChannelID != nil
		})
		if err != nil {
			t.Fatalf("Request: unexpected error: %v", err)
		}
		if got := message.Get(rsp.Actor); got != 7 {
			t.Errorf("Response actor: got %d, want 7", got)
		}
	})

	t.Run("SelfMute", func(t *testing.T) {
		u, err := c.SetSelfMute(t.Context(), true)
		if err != nil {
			t.Fatalf("SetSelfMute: unexpected error: %v", err)
		}
		if !u.SelfMute {
			t.Errorf("SetSelfMute: got %+v, want self-muted", u)
		}
	})

	t.Run("Permissions", func(t *testing.T) {
		perm, err := c.QueryPermissions(t.Context(), 1)
		if err != nil {
			t.Fatalf("QueryPermissions: unexpected error: %v", err)
		}
		if perm != 0x0e {
			t.Errorf("QueryPermissions: got %#x, want %#x", perm, 0x0e)
		}
	})

	t.Run("Denied", func(t *testing.T) {
		_, err := c.MoveUser(t.Context(), 7, 3)
		if !errors.Is(err, mumble.ErrUnauthorized) {
			t.Fatalf("MoveUser: got %v, want %v", err, mumble.ErrUnauthorized)
		}
		var derr *mumble.DeniedError
		if !errors.As(err, &derr) {
			t.Fatalf("MoveUser: got %T, want *DeniedError", err)
		}
		if got := message.Get(derr.Kind); got != message.DenyPermission {
			t.Errorf("Deny kind: got %v, want %v", got, message.DenyPermission)
		}
		if !c.Connected() {
			t.Error("Session ended after a denied request")
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		_, err := c.MoveUser(t.Context(), 7, 4) // ignored by the server
		if !errors.Is(err, mumble.ErrTimeout) {
			t.Errorf("MoveUser: got %v, want %v", err, mumble.ErrTimeout)
		}
		if errors.Is(err, mumble.ErrCanceled) || errors.Is(err, mumble.ErrUnauthorized) {
			t.Errorf("MoveUser: got %v, want only %v", err, mumble.ErrTimeout)
		}
		if !c.Connected() {
			t.Error("Session ended after a request timed out")
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		time.AfterFunc(10*time.Millisecond, cancel)
		_, err := c.MoveUser(ctx, 7, 4)
		if !errors.Is(err, mumble.ErrCanceled) || !errors.Is(err, context.Canceled) {
			t.Errorf("MoveUser: got %v, want %v", err, mumble.ErrCanceled)
		}
	})

	if v := c.Metrics().Get("requests_pending").String(); v != "0" {
		t.Errorf("Pending requests: got %s, want 0", v)
	}
}

func TestRequestDisconnect(t *testing.T) {
	defer leaktest.Check(t)()

	received := make(chan struct{})
	c, srv := startServer(t, serve(func(sc *mumbletest.ServerConn, m message.Message) error {
		if _, ok := m.(*message.UserState); ok {
			close(received) // never answer
		}
		return nil
	}))
	defer closeServer(t, srv)

	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	go func() {
		<-received
		c.Disconnect()
	}()

	_, err := c.MoveUser(t.Context(), 7, 2)
	if !errors.Is(err, mumble.ErrCanceled) {
		t.Errorf("MoveUser: got %v, want %v", err, mumble.ErrCanceled)
	}
	if errors.Is(err, mumble.ErrTimeout) || errors.Is(err, mumble.ErrUnauthorized) {
		t.Errorf("MoveUser: got %v, want only %v", err, mumble.ErrCanceled)
	}
	c.Wait()
}

func TestRequestDefaultTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, srv := startServer(t, serve(nil))
		defer closeServer(t, srv)

		if err := c.Connect(t.Context(), "tester", ""); err != nil {
			t.Fatalf("Connect: unexpected error: %v", err)
		}
		defer c.Disconnect()

		start := time.Now()
		_, err := c.SetComment(t.Context(), "unanswered")
		if !errors.Is(err, mumble.ErrTimeout) {
			t.Errorf("SetComment: got %v, want %v", err, mumble.ErrTimeout)
		}
		if elapsed := time.Since(start); elapsed != mumble.RequestTimeout {
			t.Errorf("SetComment: gave up after %v, want %v", elapsed, mumble.RequestTimeout)
		}
	})
}

func TestKeepAlive(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		pings := make(chan time.Time, 10)
		c, srv := startServer(t, func(ctx context.Context, sc *mumbletest.ServerConn) error {
			if _, err := sc.Handshake(7); err != nil {
				return err
			}
			for {
				if _, err := mumbletest.Expect[*message.Ping](sc); err != nil {
					return nil
				}
				pings <- time.Now()
			}
		})
		defer closeServer(t, srv)

		if err := c.Connect(t.Context(), "tester", ""); err != nil {
			t.Fatalf("Connect: unexpected error: %v", err)
		}
		start := time.Now()
		time.Sleep(2*mumble.PingInterval + time.Second)
		c.Disconnect()

		var got []time.Duration
		for len(pings) > 0 {
			got = append(got, (<-pings).Sub(start))
		}
		want := []time.Duration{0, mumble.PingInterval, 2 * mumble.PingInterval}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Ping times (-want, +got):\n%s", diff)
		}
	})
}

func TestSendTextMessage(t *testing.T) {
	defer leaktest.Check(t)()

	got := make(chan *message.TextMessage, 1)
	c, srv := startServer(t, serve(func(sc *mumbletest.ServerConn, m message.Message) error {
		if tm, ok := m.(*message.TextMessage); ok {
			got <- tm
		}
		return nil
	}))
	defer closeServer(t, srv)

	if err := c.SendTextMessage(t.Context(), "early", mumble.ToUser(9)); !errors.Is(err, mumble.ErrNotConnected) {
		t.Errorf("SendTextMessage before connect: got %v, want %v", err, mumble.ErrNotConnected)
	}
	if err := c.Connect(t.Context(), "tester", ""); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}
	defer c.Disconnect()

	if err := c.SendTextMessage(t.Context(), "nobody", mumble.Target{}); err == nil {
		t.Error("SendTextMessage with no recipients: got nil, want error")
	}
	to := mumble.ToUser(9).Add(mumble.ToChannel(1)).Add(mumble.ToTree(0))
	if err := c.SendTextMessage(t.Context(), "<b>hi</b>", to); err != nil {
		t.Fatalf("SendTextMessage: unexpected error: %v", err)
	}
	if diff := cmp.Diff(&message.TextMessage{
		Actor:      message.Ptr(uint32(7)),
		Sessions:   []uint32{9},
		ChannelIDs: []uint32{1},
		TreeIDs:    []uint32{0},
		Message:    message.Ptr("<b>hi</b>"),
	}, <-got); diff != "" {
		t.Errorf("TextMessage (-want, +got):\n%s", diff)
	}
}
