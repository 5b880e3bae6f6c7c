// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Package mumble implements a client for the Mumble voice chat control
// protocol.
//
// Clients and servers exchange framed messages over a TLS stream. Each frame
// carries a 2-byte message type and a 4-byte payload length, both big-endian,
// followed by the payload. The payload of most message types is a protocol
// buffer encoding of the corresponding type in the [message] package; audio
// tunnel frames carry opaque bytes.
//
// # Clients
//
// The core type defined by this package is the [Client]. A client performs
// the handshake with a server, then keeps a mirror of the server's channels
// and users current in the background, dispatching each message it receives
// to the caller's handlers.
//
// To create a new, unconnected client:
//
//	c := mumble.NewClient("voice.example.com", mumble.DefaultPort)
//
// To connect and authenticate:
//
//	if err := c.Connect(ctx, "alice", ""); err != nil {
//	   log.Fatalf("Connect: %v", err)
//	}
//
// The session runs until [Client.Disconnect] is called, the server closes the
// connection, or a protocol fatal error occurs. Call [Client.Wait] to wait for
// the session to end and return its status:
//
//	if err := c.Wait(); err != nil {
//	   log.Fatalf("Session failed: %v", err)
//	}
//
// A rejected handshake reports an error with concrete type [*RejectError].
//
// # State
//
// Use [Client.Channels] and [Client.Users] to look up the channels and users
// of the session. Lookups return copies; an entry may be replaced or removed
// by the next update from the server, so refer to entries by id rather than
// holding on to them. Both collections are emptied when the session ends.
//
// # Handlers
//
// To observe messages from the server, set typed callbacks with
// [Client.Handle]:
//
//	c.Handle(mumble.Handlers{
//	   TextMessage: func(m *message.TextMessage) {
//	      log.Printf("Message: %s", message.Get(m.Message))
//	   },
//	})
//
// Handlers are called after the message has been applied to the channel and
// user state, so a UserState handler sees the user's updated entry.
//
// # Requests
//
// Most protocol actions have no explicit response. The server signals
// success by broadcasting the resulting state change, and failure with a
// PermissionDenied notice. [Request] turns such an action into a call: it
// sends a message, then waits for a matching response, a refusal, or a
// timeout, whichever comes first:
//
//	u, err := mumble.Request(ctx, c, &message.UserState{
//	   Session:   &session,
//	   ChannelID: &target,
//	}, func(m *message.UserState) bool {
//	   return message.Get(m.Session) == session
//	})
//
// A refusal is reported as an error with concrete type [*DeniedError].
// Common actions such as [Client.MoveUser] and [Client.SetSelfMute] are
// built this way.
//
// # Metrics
//
// Clients maintain a collection of metrics while running. Use
// [Client.Metrics] to obtain an [expvar.Map] containing the metrics exported
// by all clients in the process:
//
//   - messages_received: counter of messages received
//   - messages_sent: counter of messages sent
//   - tunnel_packets_received: counter of audio tunnel frames received
//   - tunnel_packets_sent: counter of audio tunnel frames sent
//   - pings_sent: counter of keep-alive pings sent
//   - sessions: counter of handshakes completed
//   - sessions_failed: counter of sessions ended by an error
//   - requests_out: counter of correlated requests issued
//   - requests_failed: counter of correlated requests resulting in errors
//   - requests_denied: counter of correlated requests refused by the server
//   - requests_timed_out: counter of correlated requests that timed out
//   - requests_pending: gauge of correlated requests awaiting a response
package mumble
