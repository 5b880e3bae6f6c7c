// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Package message implements the payload codec for the Mumble control
// protocol.
//
// Each structured message shape is a Go struct whose optional scalar fields
// are pointers, so that the presence of a field is preserved across a round
// trip through the wire encoding. The payloads use the protobuf binary
// format; repeated scalars are written unpacked and accepted in either form.
//
// The raw audio tunnel (TypeUDPTunnel) is not parsed: its payload is carried
// as an opaque [Tunnel] value.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Type is the wire identifier of a message shape.
type Type uint16

const (
	TypeVersion             Type = 0
	TypeUDPTunnel           Type = 1
	TypeAuthenticate        Type = 2
	TypePing                Type = 3
	TypeReject              Type = 4
	TypeServerSync          Type = 5
	TypeChannelRemove       Type = 6
	TypeChannelState        Type = 7
	TypeUserRemove          Type = 8
	TypeUserState           Type = 9
	TypeBanList             Type = 10
	TypeTextMessage         Type = 11
	TypePermissionDenied    Type = 12
	TypeACL                 Type = 13
	TypeQueryUsers          Type = 14
	TypeCryptSetup          Type = 15
	TypeContextActionModify Type = 16
	TypeContextAction       Type = 17
	TypeUserList            Type = 18
	TypeVoiceTarget         Type = 19
	TypePermissionQuery     Type = 20
	TypeCodecVersion        Type = 21
	TypeUserStats           Type = 22
	TypeRequestBlob         Type = 23
	TypeServerConfig        Type = 24
	TypeSuggestConfig       Type = 25

	maxType = TypeSuggestConfig
)

var typeNames = [...]string{
	TypeVersion:             "Version",
	TypeUDPTunnel:           "UDPTunnel",
	TypeAuthenticate:        "Authenticate",
	TypePing:                "Ping",
	TypeReject:              "Reject",
	TypeServerSync:          "ServerSync",
	TypeChannelRemove:       "ChannelRemove",
	TypeChannelState:        "ChannelState",
	TypeUserRemove:          "UserRemove",
	TypeUserState:           "UserState",
	TypeBanList:             "BanList",
	TypeTextMessage:         "TextMessage",
	TypePermissionDenied:    "PermissionDenied",
	TypeACL:                 "ACL",
	TypeQueryUsers:          "QueryUsers",
	TypeCryptSetup:          "CryptSetup",
	TypeContextActionModify: "ContextActionModify",
	TypeContextAction:       "ContextAction",
	TypeUserList:            "UserList",
	TypeVoiceTarget:         "VoiceTarget",
	TypePermissionQuery:     "PermissionQuery",
	TypeCodecVersion:        "CodecVersion",
	TypeUserStats:           "UserStats",
	TypeRequestBlob:         "RequestBlob",
	TypeServerConfig:        "ServerConfig",
	TypeSuggestConfig:       "SuggestConfig",
}

func (t Type) String() string {
	if t <= maxType {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Known reports whether t has a registered message shape.
func (t Type) Known() bool { return t <= maxType }

// A Message is a decoded control message. The set of implementations is
// closed: it consists of the pointer types of the shapes in this package.
type Message interface {
	// Type reports the wire identifier for the message.
	Type() Type

	// UnmarshalBinary replaces the contents of the message with the decoding
	// of data.
	UnmarshalBinary(data []byte) error

	appender
}

// registry maps each wire identifier to a constructor for its shape.
var registry = [...]func() Message{
	TypeVersion:             func() Message { return new(Version) },
	TypeUDPTunnel:           func() Message { return new(Tunnel) },
	TypeAuthenticate:        func() Message { return new(Authenticate) },
	TypePing:                func() Message { return new(Ping) },
	TypeReject:              func() Message { return new(Reject) },
	TypeServerSync:          func() Message { return new(ServerSync) },
	TypeChannelRemove:       func() Message { return new(ChannelRemove) },
	TypeChannelState:        func() Message { return new(ChannelState) },
	TypeUserRemove:          func() Message { return new(UserRemove) },
	TypeUserState:           func() Message { return new(UserState) },
	TypeBanList:             func() Message { return new(BanList) },
	TypeTextMessage:         func() Message { return new(TextMessage) },
	TypePermissionDenied:    func() Message { return new(PermissionDenied) },
	TypeACL:                 func() Message { return new(ACL) },
	TypeQueryUsers:          func() Message { return new(QueryUsers) },
	TypeCryptSetup:          func() Message { return new(CryptSetup) },
	TypeContextActionModify: func() Message { return new(ContextActionModify) },
	TypeContextAction:       func() Message { return new(ContextAction) },
	TypeUserList:            func() Message { return new(UserList) },
	TypeVoiceTarget:         func() Message { return new(VoiceTarget) },
	TypePermissionQuery:     func() Message { return new(PermissionQuery) },
	TypeCodecVersion:        func() Message { return new(CodecVersion) },
	TypeUserStats:           func() Message { return new(UserStats) },
	TypeRequestBlob:         func() Message { return new(RequestBlob) },
	TypeServerConfig:        func() Message { return new(ServerConfig) },
	TypeSuggestConfig:       func() Message { return new(SuggestConfig) },
}

// ErrUnknownType is reported when a wire identifier has no registered shape.
var ErrUnknownType = errors.New("unknown message type")

// DecodeError is the concrete type of errors reported when a payload is
// malformed for the shape selected by its type.
type DecodeError struct {
	Type Type
	Err  error
}

func (d *DecodeError) Error() string {
	return fmt.Sprintf("decode %v: %v", d.Type, d.Err)
}

func (d *DecodeError) Unwrap() error { return d.Err }

// New returns a new empty message of the shape registered for t.
func New(t Type) (Message, error) {
	if !t.Known() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	return registry[t](), nil
}

// Decode decodes data as a message of type t. For TypeUDPTunnel the result is
// a *Tunnel holding a copy of data.
func Decode(t Type, data []byte) (Message, error) {
	m, err := New(t)
	if err != nil {
		return nil, err
	}
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, &DecodeError{Type: t, Err: err}
	}
	return m, nil
}

// Marshal returns the payload encoding of m.
func Marshal(m Message) []byte {
	var b builder
	m.appendTo(&b)
	return b.Bytes()
}

// Encode returns the wire identifier and payload encoding of m.
func Encode(m Message) (Type, []byte, error) {
	if m == nil {
		return 0, nil, errors.New("encode: nil message")
	}
	return m.Type(), Marshal(m), nil
}

// A Tunnel is the opaque payload of a TypeUDPTunnel frame.
type Tunnel []byte

func (*Tunnel) Type() Type { return TypeUDPTunnel }

func (t *Tunnel) UnmarshalBinary(data []byte) error {
	*t = bytes.Clone(data)
	if *t == nil {
		*t = Tunnel{}
	}
	return nil
}

func (t *Tunnel) appendTo(b *builder) { b.buf = append(b.buf, *t...) }

// Ptr returns a pointer to a copy of v. It is a convenience for populating
// the optional fields of a message.
func Ptr[T any](v T) *T { return &v }

// Get returns the value of an optional field, or the zero value of T if the
// field is absent.
func Get[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
