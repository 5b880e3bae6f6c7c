// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"fmt"

	"github.com/gomumble/mumble/message"
)

// A Version is a three-part protocol version.
type Version struct {
	Major, Minor, Patch uint8
}

// ClientVersion is the protocol version announced by a Client.
var ClientVersion = Version{Major: 1, Minor: 2, Patch: 8}

// Encode packs v into its 32-bit wire form.
func (v Version) Encode() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8 | uint32(v.Patch)&0xFF
}

// DecodeVersion unpacks the 32-bit wire form of a version.
func DecodeVersion(w uint32) Version {
	return Version{
		Major: uint8((w >> 16) & 0xFF),
		Minor: uint8((w >> 8) & 0xFF),
		Patch: uint8(w & 0xFF),
	}
}

func (v Version) String() string { return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch) }

// ServerInfo describes the server a client is connected to. Host and Port are
// set when the client is constructed; the other fields are filled in from the
// server's announcements during and after the handshake.
type ServerInfo struct {
	Host string
	Port int

	// From the server's version announcement.
	Version   Version
	Release   string
	OS        string
	OSVersion string

	// From the session sync.
	WelcomeText  string
	MaxBandwidth uint32
	Permissions  uint64

	// From the server configuration.
	MaxUsers           uint32
	MessageLength      uint32
	ImageMessageLength uint32
	AllowHTML          bool
	RecordingAllowed   bool
}

// Address returns the host:port address of the server.
func (s ServerInfo) Address() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// applyVersion updates s from a version announcement. Only the fields present
// in m are changed.
func (s *ServerInfo) applyVersion(m *message.Version) {
	if m.Version != nil {
		s.Version = DecodeVersion(*m.Version)
	}
	setIf(&s.Release, m.Release)
	setIf(&s.OS, m.OS)
	setIf(&s.OSVersion, m.OSVersion)
}

func (s *ServerInfo) applySync(m *message.ServerSync) {
	setIf(&s.WelcomeText, m.WelcomeText)
	setIf(&s.MaxBandwidth, m.MaxBandwidth)
	setIf(&s.Permissions, m.Permissions)
}

func (s *ServerInfo) applyConfig(m *message.ServerConfig) {
	setIf(&s.MaxBandwidth, m.MaxBandwidth)
	setIf(&s.WelcomeText, m.WelcomeText)
	setIf(&s.AllowHTML, m.AllowHTML)
	setIf(&s.MessageLength, m.MessageLength)
	setIf(&s.ImageMessageLength, m.ImageMessageLength)
	setIf(&s.MaxUsers, m.MaxUsers)
	setIf(&s.RecordingAllowed, m.RecordingAllowed)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
