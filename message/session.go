// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package message

import "strconv"

// Version announces the protocol version and platform of the sender.
type Version struct {
	Version   *uint32 // packed as (major<<16)|(minor<<8)|build
	Release   *string
	OS        *string
	OSVersion *string
}

func (*Version) Type() Type { return TypeVersion }

func (m *Version) appendTo(b *builder) {
	putVarint(b, 1, m.Version)
	putString(b, 2, m.Release)
	putString(b, 3, m.OS)
	putString(b, 4, m.OSVersion)
}

func (m *Version) UnmarshalBinary(data []byte) error {
	*m = Version{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Version)
		case 2:
			return scanString(s, &m.Release)
		case 3:
			return scanString(s, &m.OS)
		case 4:
			return scanString(s, &m.OSVersion)
		}
		return nil
	})
}

// Authenticate carries the client credentials and codec capabilities.
type Authenticate struct {
	Username     *string
	Password     *string
	Tokens       []string
	CeltVersions []int32
	Opus         *bool
}

func (*Authenticate) Type() Type { return TypeAuthenticate }

func (m *Authenticate) appendTo(b *builder) {
	putString(b, 1, m.Username)
	putString(b, 2, m.Password)
	putStrings(b, 3, m.Tokens)
	putVarints(b, 4, m.CeltVersions)
	putBool(b, 5, m.Opus)
}

func (m *Authenticate) UnmarshalBinary(data []byte) error {
	*m = Authenticate{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanString(s, &m.Username)
		case 2:
			return scanString(s, &m.Password)
		case 3:
			return scanStrings(s, &m.Tokens)
		case 4:
			return scanVarints(s, &m.CeltVersions)
		case 5:
			return scanBool(s, &m.Opus)
		}
		return nil
	})
}

// Ping is the keep-alive message. Either side may send it; the statistics
// fields are optional.
type Ping struct {
	Timestamp  *uint64
	Good       *uint32
	Late       *uint32
	Lost       *uint32
	Resync     *uint32
	UDPPackets *uint32
	TCPPackets *uint32
	UDPPingAvg *float32
	UDPPingVar *float32
	TCPPingAvg *float32
	TCPPingVar *float32
}

func (*Ping) Type() Type { return TypePing }

func (m *Ping) appendTo(b *builder) {
	putVarint(b, 1, m.Timestamp)
	putVarint(b, 2, m.Good)
	putVarint(b, 3, m.Late)
	putVarint(b, 4, m.Lost)
	putVarint(b, 5, m.Resync)
	putVarint(b, 6, m.UDPPackets)
	putVarint(b, 7, m.TCPPackets)
	putFloat(b, 8, m.UDPPingAvg)
	putFloat(b, 9, m.UDPPingVar)
	putFloat(b, 10, m.TCPPingAvg)
	putFloat(b, 11, m.TCPPingVar)
}

func (m *Ping) UnmarshalBinary(data []byte) error {
	*m = Ping{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Timestamp)
		case 2:
			return scanVarint(s, &m.Good)
		case 3:
			return scanVarint(s, &m.Late)
		case 4:
			return scanVarint(s, &m.Lost)
		case 5:
			return scanVarint(s, &m.Resync)
		case 6:
			return scanVarint(s, &m.UDPPackets)
		case 7:
			return scanVarint(s, &m.TCPPackets)
		case 8:
			return scanFloat(s, &m.UDPPingAvg)
		case 9:
			return scanFloat(s, &m.UDPPingVar)
		case 10:
			return scanFloat(s, &m.TCPPingAvg)
		case 11:
			return scanFloat(s, &m.TCPPingVar)
		}
		return nil
	})
}

// RejectKind classifies a connection rejection.
type RejectKind int32

const (
	RejectNone RejectKind = iota
	RejectWrongVersion
	RejectInvalidUsername
	RejectWrongUserPassword
	RejectWrongServerPassword
	RejectUsernameInUse
	RejectServerFull
	RejectNoCertificate
	RejectAuthenticatorFail
)

var rejectNames = [...]string{
	"None", "WrongVersion", "InvalidUsername", "WrongUserPW", "WrongServerPW",
	"UsernameInUse", "ServerFull", "NoCertificate", "AuthenticatorFail",
}

func (k RejectKind) String() string {
	if k >= 0 && int(k) < len(rejectNames) {
		return rejectNames[k]
	}
	return "RejectKind(" + strconv.Itoa(int(k)) + ")"
}

// Reject is sent by the server when it refuses a connection.
type Reject struct {
	Kind   *RejectKind
	Reason *string
}

func (*Reject) Type() Type { return TypeReject }

func (m *Reject) appendTo(b *builder) {
	putVarint(b, 1, m.Kind)
	putString(b, 2, m.Reason)
}

func (m *Reject) UnmarshalBinary(data []byte) error {
	*m = Reject{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Kind)
		case 2:
			return scanString(s, &m.Reason)
		}
		return nil
	})
}

// ServerSync completes the handshake and reports the session id assigned to
// the client.
type ServerSync struct {
	Session      *uint32
	MaxBandwidth *uint32
	WelcomeText  *string
	Permissions  *uint64
}

func (*ServerSync) Type() Type { return TypeServerSync }

func (m *ServerSync) appendTo(b *builder) {
	putVarint(b, 1, m.Session)
	putVarint(b, 2, m.MaxBandwidth)
	putString(b, 3, m.WelcomeText)
	putVarint(b, 4, m.Permissions)
}

func (m *ServerSync) UnmarshalBinary(data []byte) error {
	*m = ServerSync{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Session)
		case 2:
			return scanVarint(s, &m.MaxBandwidth)
		case 3:
			return scanString(s, &m.WelcomeText)
		case 4:
			return scanVarint(s, &m.Permissions)
		}
		return nil
	})
}

// CryptSetup carries the voice crypto parameters.
type CryptSetup struct {
	Key         []byte
	ClientNonce []byte
	ServerNonce []byte
}

func (*CryptSetup) Type() Type { return TypeCryptSetup }

func (m *CryptSetup) appendTo(b *builder) {
	putBytes(b, 1, m.Key)
	putBytes(b, 2, m.ClientNonce)
	putBytes(b, 3, m.ServerNonce)
}

func (m *CryptSetup) UnmarshalBinary(data []byte) error {
	*m = CryptSetup{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanBytes(s, &m.Key)
		case 2:
			return scanBytes(s, &m.ClientNonce)
		case 3:
			return scanBytes(s, &m.ServerNonce)
		}
		return nil
	})
}

// CodecVersion reports the audio codecs the server expects.
type CodecVersion struct {
	Alpha       *int32
	Beta        *int32
	PreferAlpha *bool
	Opus        *bool
}

func (*CodecVersion) Type() Type { return TypeCodecVersion }

func (m *CodecVersion) appendTo(b *builder) {
	putVarint(b, 1, m.Alpha)
	putVarint(b, 2, m.Beta)
	putBool(b, 3, m.PreferAlpha)
	putBool(b, 4, m.Opus)
}

func (m *CodecVersion) UnmarshalBinary(data []byte) error {
	*m = CodecVersion{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Alpha)
		case 2:
			return scanVarint(s, &m.Beta)
		case 3:
			return scanBool(s, &m.PreferAlpha)
		case 4:
			return scanBool(s, &m.Opus)
		}
		return nil
	})
}

// ServerConfig reports server-wide limits.
type ServerConfig struct {
	MaxBandwidth       *uint32
	WelcomeText        *string
	AllowHTML          *bool
	MessageLength      *uint32
	ImageMessageLength *uint32
	MaxUsers           *uint32
	RecordingAllowed   *bool
}

func (*ServerConfig) Type() Type { return TypeServerConfig }

func (m *ServerConfig) appendTo(b *builder) {
	putVarint(b, 1, m.MaxBandwidth)
	putString(b, 2, m.WelcomeText)
	putBool(b, 3, m.AllowHTML)
	putVarint(b, 4, m.MessageLength)
	putVarint(b, 5, m.ImageMessageLength)
	putVarint(b, 6, m.MaxUsers)
	putBool(b, 7, m.RecordingAllowed)
}

func (m *ServerConfig) UnmarshalBinary(data []byte) error {
	*m = ServerConfig{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.MaxBandwidth)
		case 2:
			return scanString(s, &m.WelcomeText)
		case 3:
			return scanBool(s, &m.AllowHTML)
		case 4:
			return scanVarint(s, &m.MessageLength)
		case 5:
			return scanVarint(s, &m.ImageMessageLength)
		case 6:
			return scanVarint(s, &m.MaxUsers)
		case 7:
			return scanBool(s, &m.RecordingAllowed)
		}
		return nil
	})
}

// SuggestConfig carries configuration hints from the server.
type SuggestConfig struct {
	Version    *uint32
	Positional *bool
	PushToTalk *bool
}

func (*SuggestConfig) Type() Type { return TypeSuggestConfig }

func (m *SuggestConfig) appendTo(b *builder) {
	putVarint(b, 1, m.Version)
	putBool(b, 2, m.Positional)
	putBool(b, 3, m.PushToTalk)
}

func (m *SuggestConfig) UnmarshalBinary(data []byte) error {
	*m = SuggestConfig{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Version)
		case 2:
			return scanBool(s, &m.Positional)
		case 3:
			return scanBool(s, &m.PushToTalk)
		}
		return nil
	})
}
