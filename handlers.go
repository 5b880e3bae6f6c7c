// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"fmt"

	"github.com/gomumble/mumble/message"
)

// Handlers are typed callbacks for messages received from the server. Each
// non-nil field is called with every message of its type, after the message
// has been applied to the client's channel and user state. Handlers run
// synchronously on the receive loop, in wire order; a handler that blocks
// stalls the session.
//
// Because the receive loop is busy while a handler runs, a handler must not
// wait for a reply from the server. A Request (or an action built on it,
// such as MoveUser or QueryPermissions) issued from a handler cannot see its
// response and fails with ErrTimeout once the request timeout elapses. Issue
// such calls from another goroutine. Likewise a handler must not call
// Disconnect.
//
// A handler that panics ends the session with an error.
type Handlers struct {
	Version             func(*message.Version)
	Tunnel              func(*message.Tunnel)
	Authenticate        func(*message.Authenticate)
	Ping                func(*message.Ping)
	Reject              func(*message.Reject)
	ServerSync          func(*message.ServerSync)
	ChannelRemove       func(*message.ChannelRemove)
	ChannelState        func(*message.ChannelState)
	UserRemove          func(*message.UserRemove)
	UserState           func(*message.UserState)
	BanList             func(*message.BanList)
	TextMessage         func(*message.TextMessage)
	PermissionDenied    func(*message.PermissionDenied)
	ACL                 func(*message.ACL)
	QueryUsers          func(*message.QueryUsers)
	CryptSetup          func(*message.CryptSetup)
	ContextActionModify func(*message.ContextActionModify)
	ContextAction       func(*message.ContextAction)
	UserList            func(*message.UserList)
	VoiceTarget         func(*message.VoiceTarget)
	PermissionQuery     func(*message.PermissionQuery)
	CodecVersion        func(*message.CodecVersion)
	UserStats           func(*message.UserStats)
	RequestBlob         func(*message.RequestBlob)
	ServerConfig        func(*message.ServerConfig)
	SuggestConfig       func(*message.SuggestConfig)
}

func (h *Handlers) dispatch(m message.Message) (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("%v handler panicked (recovered): %v", m.Type(), x)
		}
	}()
	switch m := m.(type) {
	case *message.Version:
		call(h.Version, m)
	case *message.Tunnel:
		call(h.Tunnel, m)
	case *message.Authenticate:
		call(h.Authenticate, m)
	case *message.Ping:
		call(h.Ping, m)
	case *message.Reject:
		call(h.Reject, m)
	case *message.ServerSync:
		call(h.ServerSync, m)
	case *message.ChannelRemove:
		call(h.ChannelRemove, m)
	case *message.ChannelState:
		call(h.ChannelState, m)
	case *message.UserRemove:
		call(h.UserRemove, m)
	case *message.UserState:
		call(h.UserState, m)
	case *message.BanList:
		call(h.BanList, m)
	case *message.TextMessage:
		call(h.TextMessage, m)
	case *message.PermissionDenied:
		call(h.PermissionDenied, m)
	case *message.ACL:
		call(h.ACL, m)
	case *message.QueryUsers:
		call(h.QueryUsers, m)
	case *message.CryptSetup:
		call(h.CryptSetup, m)
	case *message.ContextActionModify:
		call(h.ContextActionModify, m)
	case *message.ContextAction:
		call(h.ContextAction, m)
	case *message.UserList:
		call(h.UserList, m)
	case *message.VoiceTarget:
		call(h.VoiceTarget, m)
	case *message.PermissionQuery:
		call(h.PermissionQuery, m)
	case *message.CodecVersion:
		call(h.CodecVersion, m)
	case *message.UserStats:
		call(h.UserStats, m)
	case *message.RequestBlob:
		call(h.RequestBlob, m)
	case *message.ServerConfig:
		call(h.ServerConfig, m)
	case *message.SuggestConfig:
		call(h.SuggestConfig, m)
	}
	return nil
}

func call[T any](f func(T), v T) {
	if f != nil {
		f(v)
	}
}
