// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/gomumble/mumble/channel"
	"github.com/gomumble/mumble/message"
	"github.com/gomumble/mumble/state"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultPort is the standard server port.
	DefaultPort = 64738

	// RequestTimeout is the default time a correlated request waits for its
	// response.
	RequestTimeout = 5 * time.Second

	// PingInterval is the default idle time between keep-alive pings.
	PingInterval = 20 * time.Second
)

// SessionState is the lifecycle state of a [Client] session.
type SessionState int32

const (
	SessionIdle         SessionState = iota // never connected
	SessionHandshaking                      // connect in progress
	SessionConnected                        // handshake complete
	SessionDisconnected                     // ended by Disconnect or failure
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionHandshaking:
		return "handshaking"
	case SessionConnected:
		return "connected"
	case SessionDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// A Client is a session with a Mumble server. It owns a framed connection
// and a mirror of the server's channels and users, which it keeps current
// from the server's updates.
//
// Call Connect to perform the handshake. Once connected, the client runs a
// receive loop and a keep-alive loop in the background until Disconnect is
// called, the server closes the connection, or a protocol error occurs. Use
// Wait to wait for the session to end and report its status.
//
// The configuration methods (SetDialer, Handle, OnExit, and so on) return the
// client to permit chaining, and should be called before Connect.
type Client struct {
	host string
	port int

	μ sync.Mutex

	// Configuration.
	dialer      channel.Dialer
	log         zerolog.Logger
	mlog        MessageLogger
	onExit      func(error)
	handlers    Handlers
	limiter     *rate.Limiter
	reqTimeout  time.Duration
	pingEvery   time.Duration
	readTimeout time.Duration

	// Observers of received messages.
	watchers map[int]func(message.Message)
	nextw    int
	waiters  map[*waiter]struct{} // pending correlated requests

	// Session state.
	state   SessionState
	conn    *Conn
	cancel  context.CancelFunc
	tasks   *taskgroup.Group
	done    chan struct{}
	err     error // the failure that ended the session, if any
	session uint32
	info    ServerInfo
	codec   *message.CodecVersion

	channels state.Channels
	users    state.Users
}

// NewClient constructs an unconnected client for the server at host and port.
// If port is 0, DefaultPort is used.
func NewClient(host string, port int) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		host:       host,
		port:       port,
		log:        zerolog.Nop(),
		reqTimeout: RequestTimeout,
		pingEvery:  PingInterval,
		info:       ServerInfo{Host: host, Port: port},
	}
}

// SetDialer sets the transport used to reach the server. By default the
// client dials TCP and verifies the server's certificate against host.
func (c *Client) SetDialer(d channel.Dialer) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.dialer = d
	return c
}

// SetTLSConfig sets the TLS configuration used to reach the server. It is a
// shorthand for SetDialer(channel.TLS(cfg)).
func (c *Client) SetTLSConfig(cfg *tls.Config) *Client { return c.SetDialer(channel.TLS(cfg)) }

// SetLogger sets the logger for session lifecycle events. By default nothing
// is logged.
func (c *Client) SetLogger(log zerolog.Logger) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.log = log
	return c
}

// LogMessages registers a callback that will be invoked for each message
// exchanged with the server, regardless of type. Passing nil disables message
// logging. The logger is invoked synchronously, before a message is sent or
// dispatched.
func (c *Client) LogMessages(log MessageLogger) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.mlog = log
	return c
}

// OnExit registers a callback to be invoked when a session ends. The
// callback is executed synchronously during shutdown, with the error that
// ended the session, or nil if it was ended by Disconnect. It must not call
// Connect or Disconnect.
//
// Only one exit callback can be registered at a time; if f == nil the
// callback is removed.
func (c *Client) OnExit(f func(error)) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.onExit = f
	return c
}

// Handle sets the typed message handlers for the client, replacing any
// previously set. See [Handlers].
func (c *Client) Handle(h Handlers) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.handlers = h
	return c
}

// SetMessageRate limits the rate at which SendTextMessage sends, to r
// messages per second with bursts of up to burst. If r is rate.Inf, or burst
// is zero, text messages are not limited.
func (c *Client) SetMessageRate(r rate.Limit, burst int) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	if r == rate.Inf || burst <= 0 {
		c.limiter = nil
	} else {
		c.limiter = rate.NewLimiter(r, burst)
	}
	return c
}

// SetRequestTimeout sets the time a correlated request waits for a response.
// If d <= 0, RequestTimeout is used.
func (c *Client) SetRequestTimeout(d time.Duration) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.reqTimeout = cmpOr(d, RequestTimeout)
	return c
}

// SetPingInterval sets the idle time between keep-alive pings.
// If d <= 0, PingInterval is used.
func (c *Client) SetPingInterval(d time.Duration) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.pingEvery = cmpOr(d, PingInterval)
	return c
}

// SetReadTimeout sets the window for each read of a frame header or payload.
// Zero, the default, means reads wait until the session ends.
func (c *Client) SetReadTimeout(d time.Duration) *Client {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.readTimeout = max(d, 0)
	return c
}

func cmpOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// OnMessage registers f to be called with every message received from the
// server, after it has been applied to the client's state and passed to the
// typed handlers. It returns a function that unregisters f.
//
// Observers run on the receive loop, with the same restrictions as Handlers:
// they must not block, and must not wait for a reply from the server.
func (c *Client) OnMessage(f func(message.Message)) (unregister func()) {
	if f == nil {
		panic("mumble: nil message observer")
	}
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.watchers == nil {
		c.watchers = make(map[int]func(message.Message))
	}
	id := c.nextw
	c.nextw++
	c.watchers[id] = f
	return func() {
		c.μ.Lock()
		defer c.μ.Unlock()
		delete(c.watchers, id)
	}
}

// Connect dials the server and performs the handshake as username. It
// returns once the server has synchronized the session, or the handshake has
// failed. Connect is a no-op if the client is already connected.
//
// If ctx ends before the handshake completes, Connect gives up and reports
// the error from ctx. Once connected, the session is not governed by ctx.
func (c *Client) Connect(ctx context.Context, username, password string) error {
	c.μ.Lock()
	switch c.state {
	case SessionConnected:
		c.μ.Unlock()
		return nil
	case SessionHandshaking:
		c.μ.Unlock()
		return errors.New("handshake already in progress")
	}
	prev := c.tasks
	c.μ.Unlock()

	// Let the loops of a previous session finish before starting over.
	if prev != nil {
		prev.Wait()
	}

	c.μ.Lock()
	if c.state == SessionHandshaking || c.state == SessionConnected {
		c.μ.Unlock()
		return errors.New("handshake already in progress")
	}
	sctx, cancel := context.WithCancel(context.Background())
	conn := NewConn(c.host, c.port, c.dialer)
	c.state = SessionHandshaking
	c.conn, c.cancel, c.tasks = conn, cancel, nil
	c.done = make(chan struct{})
	c.err = nil
	c.session = 0
	c.info = ServerInfo{Host: c.host, Port: c.port}
	c.codec = nil
	log := c.log
	readTimeout, pingEvery := c.readTimeout, c.pingEvery
	c.μ.Unlock()

	// The handshake ends if either the caller or the session gives up.
	hctx, hcancel := context.WithCancel(sctx)
	defer hcancel()
	stop := context.AfterFunc(ctx, hcancel)
	defer stop()

	log.Debug().Str("server", c.info.Address()).Str("user", username).Msg("connecting")
	err := c.handshake(hctx, conn, username, password, readTimeout)
	if err == nil {
		c.μ.Lock()
		if c.conn == conn && c.state == SessionConnected {
			g := taskgroup.New(nil)
			c.tasks = g
			g.Go(c.receiveLoop(sctx, conn, readTimeout))
			g.Go(c.pingLoop(sctx, conn, pingEvery))
		} else {
			err = fmt.Errorf("%w: disconnected during handshake", ErrCanceled)
		}
		c.μ.Unlock()
	}
	if err != nil {
		if cerr := ctx.Err(); errors.Is(cerr, context.DeadlineExceeded) {
			err = fmt.Errorf("handshake: %w: %w", ErrTimeout, cerr)
		} else if cerr != nil {
			err = fmt.Errorf("handshake: %w", cerr)
		}
		log.Warn().Err(err).Msg("handshake failed")
		c.shutdown(conn, err)
		c.clearState()
		return err
	}
	metrics.sessions.Add(1)
	info := c.ServerInfo()
	log.Info().
		Uint32("session", c.Session()).
		Str("server_version", info.Version.String()).
		Str("server_release", info.Release).
		Int("channels", c.channels.Len()).
		Int("users", c.users.Len()).
		Msg("connected")
	return nil
}

// handshake opens conn, announces the client and authenticates, then reads
// and dispatches messages until the server synchronizes the session.
func (c *Client) handshake(ctx context.Context, conn *Conn, username, password string, readTimeout time.Duration) error {
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	if err := c.send(ctx, conn, &message.Version{
		Version:   message.Ptr(ClientVersion.Encode()),
		Release:   message.Ptr("gomumble " + ClientVersion.String()),
		OS:        message.Ptr(runtime.GOOS),
		OSVersion: message.Ptr(runtime.GOARCH + "; " + runtime.Version()),
	}); err != nil {
		return err
	}
	if err := c.send(ctx, conn, &message.Authenticate{
		Username: &username,
		Password: &password,
		Opus:     message.Ptr(true),
	}); err != nil {
		return err
	}
	for c.State() != SessionConnected {
		m, err := conn.ReadMessage(ctx, readTimeout)
		if err != nil {
			return err
		}
		if rej, ok := m.(*message.Reject); ok {
			c.logMessage(m, false)
			return &RejectError{Reject: rej}
		}
		if err := c.dispatch(m); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect ends the session, if any, and blocks until its background loops
// have exited. It cancels any pending requests, closes the connection, and
// clears the channel and user state. Disconnect reports the error that ended
// the session, or nil; it is safe to call more than once.
//
// Disconnect must not be called from a message handler.
func (c *Client) Disconnect() error {
	c.μ.Lock()
	conn, log := c.conn, c.log
	c.μ.Unlock()

	if c.shutdown(conn, nil) {
		log.Info().Msg("disconnected")
	}
	err := c.Wait()
	c.clearState()
	return err
}

// Wait blocks until the current session has ended, and reports the error
// that ended it. It returns nil if the session was ended by Disconnect, or if
// the client has never connected.
func (c *Client) Wait() error {
	c.μ.Lock()
	t := c.tasks
	c.μ.Unlock()
	if t != nil {
		t.Wait()
	}
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.err
}

// Err reports the error that ended the most recent session, or nil.
func (c *Client) Err() error {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.err
}

// Done returns a channel that is closed when the current session ends. It
// returns nil if the client has never connected.
func (c *Client) Done() <-chan struct{} {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.done
}

// State reports the state of the session.
func (c *Client) State() SessionState {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.state
}

// Connected reports whether the handshake has completed and the session is
// still active.
func (c *Client) Connected() bool { return c.State() == SessionConnected }

// Session reports the session id assigned by the server, or 0.
func (c *Client) Session() uint32 {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.session
}

// ServerInfo reports what is known about the server.
func (c *Client) ServerInfo() ServerInfo {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.info
}

// Codec reports the most recent codec announcement from the server, or nil.
func (c *Client) Codec() *message.CodecVersion {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.codec == nil {
		return nil
	}
	cp := *c.codec
	return &cp
}

// Channels returns the channels of the session. The caller must not modify
// the collection; it is updated by the client.
func (c *Client) Channels() *state.Channels { return &c.channels }

// Users returns the users of the session. The caller must not modify the
// collection; it is updated by the client.
func (c *Client) Users() *state.Users { return &c.users }

// Self returns the user entry for this client's own session.
func (c *Client) Self() (state.User, bool) { return c.users.Get(c.Session()) }

// Parent returns the parent of channel id, reporting false for the root
// channel. A parent that cannot be resolved is reported as ErrProtocol.
func (c *Client) Parent(id uint32) (state.Channel, bool, error) {
	p, ok, err := c.channels.Parent(id)
	if errors.Is(err, state.ErrInconsistent) {
		err = fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return p, ok, err
}

// Members returns the users currently in channel id.
func (c *Client) Members(id uint32) []state.User { return c.users.InChannel(id) }

// SendMessage sends m to the server.
func (c *Client) SendMessage(ctx context.Context, m message.Message) error {
	conn, err := c.activeConn()
	if err != nil {
		return err
	}
	return c.send(ctx, conn, m)
}

// SendTunnel sends data to the server as a raw audio tunnel packet.
func (c *Client) SendTunnel(ctx context.Context, data []byte) error {
	conn, err := c.activeConn()
	if err != nil {
		return err
	}
	t := message.Tunnel(data)
	c.logMessage(&t, true)
	if err := conn.SendTunnel(ctx, data); err != nil {
		c.checkBroken(conn)
		return err
	}
	metrics.tunnelSent.Add(1)
	return nil
}

// activeConn returns the connection of the current session. If the session
// ended in failure, that failure is reported.
func (c *Client) activeConn() (*Conn, error) {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.state == SessionDisconnected && c.err != nil {
		return nil, c.err
	} else if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *Client) send(ctx context.Context, conn *Conn, m message.Message) error {
	c.logMessage(m, true)
	if err := conn.SendMessage(ctx, m); err != nil {
		c.checkBroken(conn)
		return err
	}
	metrics.msgSent.Add(1)
	return nil
}

// checkBroken ends the session using conn if a write has left its stream
// unusable.
func (c *Client) checkBroken(conn *Conn) {
	if err := conn.Broken(); err != nil {
		c.fail(conn, err)
	}
}

func (c *Client) logMessage(m message.Message, sent bool) {
	c.μ.Lock()
	mlog := c.mlog
	c.μ.Unlock()
	if mlog != nil {
		mlog(MessageInfo{Message: m, Sent: sent})
	}
}

// receiveLoop reads and dispatches messages until the session ends.
func (c *Client) receiveLoop(ctx context.Context, conn *Conn, timeout time.Duration) func() error {
	return func() error {
		defer c.clearState()
		for {
			m, err := conn.ReadMessage(ctx, timeout)
			if err != nil {
				if ctx.Err() == nil {
					c.fail(conn, err)
				}
				return nil
			}
			if err := c.dispatch(m); err != nil {
				c.fail(conn, err)
				return nil
			}
		}
	}
}

// pingLoop sends a keep-alive ping, then idles for every, until the session
// ends.
func (c *Client) pingLoop(ctx context.Context, conn *Conn, every time.Duration) func() error {
	return func() error {
		for {
			ping := &message.Ping{Timestamp: message.Ptr(uint64(time.Now().UnixMilli()))}
			if err := c.send(ctx, conn, ping); err != nil {
				if ctx.Err() == nil {
					c.fail(conn, fmt.Errorf("keep-alive: %w", err))
				}
				return nil
			}
			metrics.pingSent.Add(1)

			t := time.NewTimer(every)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}
	}
}

// fail ends the session using conn because of err.
func (c *Client) fail(conn *Conn, err error) {
	c.μ.Lock()
	log := c.log
	c.μ.Unlock()
	if c.shutdown(conn, err) {
		metrics.sessionsErr.Add(1)
		log.Error().Err(err).Msg("session failed")
	}
}

// shutdown ends the session using conn, if it is still current, recording
// cause as the reason. It reports whether the session was ended by this call.
func (c *Client) shutdown(conn *Conn, cause error) bool {
	c.μ.Lock()
	if conn == nil || c.conn != conn || c.state == SessionIdle || c.state == SessionDisconnected {
		c.μ.Unlock()
		return false
	}
	c.state = SessionDisconnected
	c.err = cause
	cancel, onExit := c.cancel, c.onExit
	waiters := c.waiters
	c.waiters = nil
	close(c.done)
	c.μ.Unlock()

	cancel()
	conn.Close()

	// Terminate all pending requests.
	werr := cause
	if werr == nil {
		werr = fmt.Errorf("%w: %w", ErrCanceled, context.Canceled)
	}
	for w := range waiters {
		w.deliver(nil, werr)
	}
	if onExit != nil {
		onExit(cause)
	}
	return true
}

func (c *Client) clearState() {
	c.channels.Clear()
	c.users.Clear()
}

// dispatch applies m to the session state, then passes it to the typed
// handlers, and finally to the observers and pending requests.
// Any error it reports is fatal to the session.
func (c *Client) dispatch(m message.Message) error {
	metrics.msgRecv.Add(1)
	c.logMessage(m, false)

	if err := c.apply(m); err != nil {
		return err
	}

	c.μ.Lock()
	h := c.handlers
	watchers := make([]func(message.Message), 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	waiters := make([]*waiter, 0, len(c.waiters))
	for w := range c.waiters {
		waiters = append(waiters, w)
	}
	c.μ.Unlock()

	if err := h.dispatch(m); err != nil {
		return err
	}
	if err := notify(watchers, m); err != nil {
		return err
	}
	for _, w := range waiters {
		w.offer(m)
	}
	return nil
}

func notify(watchers []func(message.Message), m message.Message) (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("message observer panicked (recovered): %v", x)
		}
	}()
	for _, w := range watchers {
		w(m)
	}
	return nil
}

// apply updates the session state from m.
func (c *Client) apply(m message.Message) error {
	switch m := m.(type) {
	case *message.Tunnel:
		metrics.tunnelRecv.Add(1)

	case *message.Version:
		c.μ.Lock()
		c.info.applyVersion(m)
		c.μ.Unlock()

	case *message.ServerSync:
		if m.Session == nil {
			return protocolError("server sync without a session id")
		}
		c.μ.Lock()
		c.info.applySync(m)
		c.session = *m.Session
		if c.state == SessionHandshaking {
			c.state = SessionConnected
		}
		c.μ.Unlock()

	case *message.ServerConfig:
		c.μ.Lock()
		c.info.applyConfig(m)
		c.μ.Unlock()

	case *message.CodecVersion:
		c.μ.Lock()
		c.codec = m
		c.μ.Unlock()

	case *message.ChannelState:
		if _, err := c.channels.Apply(m); err != nil {
			return fmt.Errorf("%w: channel state: %w", ErrProtocol, err)
		}

	case *message.ChannelRemove:
		if m.ChannelID == nil {
			return protocolError("channel remove without a channel id")
		}
		c.channels.Remove(*m.ChannelID)

	case *message.UserState:
		if _, err := c.users.Apply(m); err != nil {
			return fmt.Errorf("%w: user state: %w", ErrProtocol, err)
		}

	case *message.UserRemove:
		if m.Session == nil {
			return protocolError("user remove without a session id")
		}
		c.users.Remove(*m.Session)
	}
	return nil
}
