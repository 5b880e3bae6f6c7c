// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package message

import "strconv"

// BanEntry is a single ban record.
type BanEntry struct {
	Address  []byte
	Mask     *uint32
	Name     *string
	Hash     *string
	Reason   *string
	Start    *string
	Duration *uint32
}

func (m *BanEntry) appendTo(b *builder) {
	putBytes(b, 1, m.Address)
	putVarint(b, 2, m.Mask)
	putString(b, 3, m.Name)
	putString(b, 4, m.Hash)
	putString(b, 5, m.Reason)
	putString(b, 6, m.Start)
	putVarint(b, 7, m.Duration)
}

func (m *BanEntry) UnmarshalBinary(data []byte) error {
	*m = BanEntry{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanBytes(s, &m.Address)
		case 2:
			return scanVarint(s, &m.Mask)
		case 3:
			return scanString(s, &m.Name)
		case 4:
			return scanString(s, &m.Hash)
		case 5:
			return scanString(s, &m.Reason)
		case 6:
			return scanString(s, &m.Start)
		case 7:
			return scanVarint(s, &m.Duration)
		}
		return nil
	})
}

// BanList queries or replaces the server ban list.
type BanList struct {
	Bans  []BanEntry
	Query *bool
}

func (*BanList) Type() Type { return TypeBanList }

func (m *BanList) appendTo(b *builder) {
	putMessages(b, 1, m.Bans)
	putBool(b, 2, m.Query)
}

func (m *BanList) UnmarshalBinary(data []byte) error {
	*m = BanList{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanMessages(s, &m.Bans)
		case 2:
			return scanBool(s, &m.Query)
		}
		return nil
	})
}

// TextMessage is a chat message addressed to users, channels, or channel
// trees.
type TextMessage struct {
	Actor      *uint32
	Sessions   []uint32
	ChannelIDs []uint32
	TreeIDs    []uint32
	Message    *string
}

func (*TextMessage) Type() Type { return TypeTextMessage }

func (m *TextMessage) appendTo(b *builder) {
	putVarint(b, 1, m.Actor)
	putVarints(b, 2, m.Sessions)
	putVarints(b, 3, m.ChannelIDs)
	putVarints(b, 4, m.TreeIDs)
	putString(b, 5, m.Message)
}

func (m *TextMessage) UnmarshalBinary(data []byte) error {
	*m = TextMessage{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Actor)
		case 2:
			return scanVarints(s, &m.Sessions)
		case 3:
			return scanVarints(s, &m.ChannelIDs)
		case 4:
			return scanVarints(s, &m.TreeIDs)
		case 5:
			return scanString(s, &m.Message)
		}
		return nil
	})
}

// DenyKind classifies a refused action.
type DenyKind int32

const (
	DenyText DenyKind = iota
	DenyPermission
	DenySuperUser
	DenyChannelName
	DenyTextTooLong
	DenyH9K
	DenyTemporaryChannel
	DenyMissingCertificate
	DenyUserName
	DenyChannelFull
	DenyNestingLimit
	DenyChannelCountLimit
	DenyChannelListenerLimit
	DenyUserListenerLimit
)

var denyNames = [...]string{
	"Text", "Permission", "SuperUser", "ChannelName", "TextTooLong", "H9K",
	"TemporaryChannel", "MissingCertificate", "UserName", "ChannelFull",
	"NestingLimit", "ChannelCountLimit", "ChannelListenerLimit", "UserListenerLimit",
}

func (k DenyKind) String() string {
	if k >= 0 && int(k) < len(denyNames) {
		return denyNames[k]
	}
	return "DenyKind(" + strconv.Itoa(int(k)) + ")"
}

// PermissionDenied reports that the server refused an action requested by
// the client.
type PermissionDenied struct {
	Permission *uint32
	ChannelID  *uint32
	Session    *uint32
	Reason     *string
	Kind       *DenyKind
	Name       *string
}

func (*PermissionDenied) Type() Type { return TypePermissionDenied }

func (m *PermissionDenied) appendTo(b *builder) {
	putVarint(b, 1, m.Permission)
	putVarint(b, 2, m.ChannelID)
	putVarint(b, 3, m.Session)
	putString(b, 4, m.Reason)
	putVarint(b, 5, m.Kind)
	putString(b, 6, m.Name)
}

func (m *PermissionDenied) UnmarshalBinary(data []byte) error {
	*m = PermissionDenied{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Permission)
		case 2:
			return scanVarint(s, &m.ChannelID)
		case 3:
			return scanVarint(s, &m.Session)
		case 4:
			return scanString(s, &m.Reason)
		case 5:
			return scanVarint(s, &m.Kind)
		case 6:
			return scanString(s, &m.Name)
		}
		return nil
	})
}

// ChanGroup is a group definition within an ACL message.
type ChanGroup struct {
	Name             *string
	Inherited        *bool
	Inherit          *bool
	Inheritable      *bool
	Add              []uint32
	Remove           []uint32
	InheritedMembers []uint32
}

func (m *ChanGroup) appendTo(b *builder) {
	putString(b, 1, m.Name)
	putBool(b, 2, m.Inherited)
	putBool(b, 3, m.Inherit)
	putBool(b, 4, m.Inheritable)
	putVarints(b, 5, m.Add)
	putVarints(b, 6, m.Remove)
	putVarints(b, 7, m.InheritedMembers)
}

func (m *ChanGroup) UnmarshalBinary(data []byte) error {
	*m = ChanGroup{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanString(s, &m.Name)
		case 2:
			return scanBool(s, &m.Inherited)
		case 3:
			return scanBool(s, &m.Inherit)
		case 4:
			return scanBool(s, &m.Inheritable)
		case 5:
			return scanVarints(s, &m.Add)
		case 6:
			return scanVarints(s, &m.Remove)
		case 7:
			return scanVarints(s, &m.InheritedMembers)
		}
		return nil
	})
}

// ChanACL is an access rule within an ACL message.
type ChanACL struct {
	ApplyHere *bool
	ApplySubs *bool
	Inherited *bool
	UserID    *uint32
	Group     *string
	Grant     *uint32
	Deny      *uint32
}

func (m *ChanACL) appendTo(b *builder) {
	putBool(b, 1, m.ApplyHere)
	putBool(b, 2, m.ApplySubs)
	putBool(b, 3, m.Inherited)
	putVarint(b, 4, m.UserID)
	putString(b, 5, m.Group)
	putVarint(b, 6, m.Grant)
	putVarint(b, 7, m.Deny)
}

func (m *ChanACL) UnmarshalBinary(data []byte) error {
	*m = ChanACL{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanBool(s, &m.ApplyHere)
		case 2:
			return scanBool(s, &m.ApplySubs)
		case 3:
			return scanBool(s, &m.Inherited)
		case 4:
			return scanVarint(s, &m.UserID)
		case 5:
			return scanString(s, &m.Group)
		case 6:
			return scanVarint(s, &m.Grant)
		case 7:
			return scanVarint(s, &m.Deny)
		}
		return nil
	})
}

// ACL queries or replaces the access control list of a channel.
type ACL struct {
	ChannelID   *uint32
	InheritACLs *bool
	Groups      []ChanGroup
	ACLs        []ChanACL
	Query       *bool
}

func (*ACL) Type() Type { return TypeACL }

func (m *ACL) appendTo(b *builder) {
	putVarint(b, 1, m.ChannelID)
	putBool(b, 2, m.InheritACLs)
	putMessages(b, 3, m.Groups)
	putMessages(b, 4, m.ACLs)
	putBool(b, 5, m.Query)
}

func (m *ACL) UnmarshalBinary(data []byte) error {
	*m = ACL{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.ChannelID)
		case 2:
			return scanBool(s, &m.InheritACLs)
		case 3:
			return scanMessages(s, &m.Groups)
		case 4:
			return scanMessages(s, &m.ACLs)
		case 5:
			return scanBool(s, &m.Query)
		}
		return nil
	})
}

// QueryUsers resolves registered user ids to names and vice versa.
type QueryUsers struct {
	IDs   []uint32
	Names []string
}

func (*QueryUsers) Type() Type { return TypeQueryUsers }

func (m *QueryUsers) appendTo(b *builder) {
	putVarints(b, 1, m.IDs)
	putStrings(b, 2, m.Names)
}

func (m *QueryUsers) UnmarshalBinary(data []byte) error {
	*m = QueryUsers{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarints(s, &m.IDs)
		case 2:
			return scanStrings(s, &m.Names)
		}
		return nil
	})
}

// ContextOperation says whether a context action is added or removed.
type ContextOperation int32

const (
	ContextAdd ContextOperation = iota
	ContextRemove
)

// ContextActionModify adds or removes a server-defined context menu action.
type ContextActionModify struct {
	Action    *string
	Text      *string
	Context   *uint32
	Operation *ContextOperation
}

func (*ContextActionModify) Type() Type { return TypeContextActionModify }

func (m *ContextActionModify) appendTo(b *builder) {
	putString(b, 1, m.Action)
	putString(b, 2, m.Text)
	putVarint(b, 3, m.Context)
	putVarint(b, 4, m.Operation)
}

func (m *ContextActionModify) UnmarshalBinary(data []byte) error {
	*m = ContextActionModify{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanString(s, &m.Action)
		case 2:
			return scanString(s, &m.Text)
		case 3:
			return scanVarint(s, &m.Context)
		case 4:
			return scanVarint(s, &m.Operation)
		}
		return nil
	})
}

// ContextAction invokes a context menu action on a user or channel.
type ContextAction struct {
	Session   *uint32
	ChannelID *uint32
	Action    *string
}

func (*ContextAction) Type() Type { return TypeContextAction }

func (m *ContextAction) appendTo(b *builder) {
	putVarint(b, 1, m.Session)
	putVarint(b, 2, m.ChannelID)
	putString(b, 3, m.Action)
}

func (m *ContextAction) UnmarshalBinary(data []byte) error {
	*m = ContextAction{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Session)
		case 2:
			return scanVarint(s, &m.ChannelID)
		case 3:
			return scanString(s, &m.Action)
		}
		return nil
	})
}

// RegisteredUser is an entry of a UserList.
type RegisteredUser struct {
	UserID      *uint32
	Name        *string
	LastSeen    *string
	LastChannel *uint32
}

func (m *RegisteredUser) appendTo(b *builder) {
	putVarint(b, 1, m.UserID)
	putString(b, 2, m.Name)
	putString(b, 3, m.LastSeen)
	putVarint(b, 4, m.LastChannel)
}

func (m *RegisteredUser) UnmarshalBinary(data []byte) error {
	*m = RegisteredUser{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.UserID)
		case 2:
			return scanString(s, &m.Name)
		case 3:
			return scanString(s, &m.LastSeen)
		case 4:
			return scanVarint(s, &m.LastChannel)
		}
		return nil
	})
}

// UserList lists the registered users of the server.
type UserList struct {
	Users []RegisteredUser
}

func (*UserList) Type() Type { return TypeUserList }

func (m *UserList) appendTo(b *builder) { putMessages(b, 1, m.Users) }

func (m *UserList) UnmarshalBinary(data []byte) error {
	*m = UserList{}
	return decodeFields(data, func(s *scanner) error {
		if s.num == 1 {
			return scanMessages(s, &m.Users)
		}
		return nil
	})
}

// VoiceTargetEntry selects the recipients of a voice target.
type VoiceTargetEntry struct {
	Sessions  []uint32
	ChannelID *uint32
	Group     *string
	Links     *bool
	Children  *bool
}

func (m *VoiceTargetEntry) appendTo(b *builder) {
	putVarints(b, 1, m.Sessions)
	putVarint(b, 2, m.ChannelID)
	putString(b, 3, m.Group)
	putBool(b, 4, m.Links)
	putBool(b, 5, m.Children)
}

func (m *VoiceTargetEntry) UnmarshalBinary(data []byte) error {
	*m = VoiceTargetEntry{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarints(s, &m.Sessions)
		case 2:
			return scanVarint(s, &m.ChannelID)
		case 3:
			return scanString(s, &m.Group)
		case 4:
			return scanBool(s, &m.Links)
		case 5:
			return scanBool(s, &m.Children)
		}
		return nil
	})
}

// VoiceTarget registers a whisper/shout target.
type VoiceTarget struct {
	ID      *uint32
	Targets []VoiceTargetEntry
}

func (*VoiceTarget) Type() Type { return TypeVoiceTarget }

func (m *VoiceTarget) appendTo(b *builder) {
	putVarint(b, 1, m.ID)
	putMessages(b, 2, m.Targets)
}

func (m *VoiceTarget) UnmarshalBinary(data []byte) error {
	*m = VoiceTarget{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.ID)
		case 2:
			return scanMessages(s, &m.Targets)
		}
		return nil
	})
}

// PermissionQuery asks for, or reports, the permissions of the client in a
// channel.
type PermissionQuery struct {
	ChannelID   *uint32
	Permissions *uint32
	Flush       *bool
}

func (*PermissionQuery) Type() Type { return TypePermissionQuery }

func (m *PermissionQuery) appendTo(b *builder) {
	putVarint(b, 1, m.ChannelID)
	putVarint(b, 2, m.Permissions)
	putBool(b, 3, m.Flush)
}

func (m *PermissionQuery) UnmarshalBinary(data []byte) error {
	*m = PermissionQuery{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.ChannelID)
		case 2:
			return scanVarint(s, &m.Permissions)
		case 3:
			return scanBool(s, &m.Flush)
		}
		return nil
	})
}

// PacketStats counts voice packets in one direction.
type PacketStats struct {
	Good   *uint32
	Late   *uint32
	Lost   *uint32
	Resync *uint32
}

func (m *PacketStats) appendTo(b *builder) {
	putVarint(b, 1, m.Good)
	putVarint(b, 2, m.Late)
	putVarint(b, 3, m.Lost)
	putVarint(b, 4, m.Resync)
}

func (m *PacketStats) UnmarshalBinary(data []byte) error {
	*m = PacketStats{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Good)
		case 2:
			return scanVarint(s, &m.Late)
		case 3:
			return scanVarint(s, &m.Lost)
		case 4:
			return scanVarint(s, &m.Resync)
		}
		return nil
	})
}

// UserStats requests, or reports, connection statistics for a user.
type UserStats struct {
	Session           *uint32
	StatsOnly         *bool
	Certificates      [][]byte
	FromClient        *PacketStats
	FromServer        *PacketStats
	UDPPackets        *uint32
	TCPPackets        *uint32
	UDPPingAvg        *float32
	UDPPingVar        *float32
	TCPPingAvg        *float32
	TCPPingVar        *float32
	Version           *Version
	CeltVersions      []int32
	Address           []byte
	Bandwidth         *uint32
	OnlineSecs        *uint32
	IdleSecs          *uint32
	StrongCertificate *bool
	Opus              *bool
}

func (*UserStats) Type() Type { return TypeUserStats }

func (m *UserStats) appendTo(b *builder) {
	putVarint(b, 1, m.Session)
	putBool(b, 2, m.StatsOnly)
	putBytesList(b, 3, m.Certificates)
	putMessage(b, 4, m.FromClient)
	putMessage(b, 5, m.FromServer)
	putVarint(b, 6, m.UDPPackets)
	putVarint(b, 7, m.TCPPackets)
	putFloat(b, 8, m.UDPPingAvg)
	putFloat(b, 9, m.UDPPingVar)
	putFloat(b, 10, m.TCPPingAvg)
	putFloat(b, 11, m.TCPPingVar)
	putMessage(b, 12, m.Version)
	putVarints(b, 13, m.CeltVersions)
	putBytes(b, 14, m.Address)
	putVarint(b, 15, m.Bandwidth)
	putVarint(b, 16, m.OnlineSecs)
	putVarint(b, 17, m.IdleSecs)
	putBool(b, 18, m.StrongCertificate)
	putBool(b, 19, m.Opus)
}

func (m *UserStats) UnmarshalBinary(data []byte) error {
	*m = UserStats{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Session)
		case 2:
			return scanBool(s, &m.StatsOnly)
		case 3:
			return scanBytesList(s, &m.Certificates)
		case 4:
			return scanMessage(s, &m.FromClient)
		case 5:
			return scanMessage(s, &m.FromServer)
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
		case 12:
			return scanMessage(s, &m.Version)
		case 13:
			return scanVarints(s, &m.CeltVersions)
		case 14:
			return scanBytes(s, &m.Address)
		case 15:
			return scanVarint(s, &m.Bandwidth)
		case 16:
			return scanVarint(s, &m.OnlineSecs)
		case 17:
			return scanVarint(s, &m.IdleSecs)
		case 18:
			return scanBool(s, &m.StrongCertificate)
		case 19:
			return scanBool(s, &m.Opus)
		}
		return nil
	})
}

// RequestBlob asks the server for large fields that were sent as hashes.
type RequestBlob struct {
	SessionTexture     []uint32
	SessionComment     []uint32
	ChannelDescription []uint32
}

func (*RequestBlob) Type() Type { return TypeRequestBlob }

func (m *RequestBlob) appendTo(b *builder) {
	putVarints(b, 1, m.SessionTexture)
	putVarints(b, 2, m.SessionComment)
	putVarints(b, 3, m.ChannelDescription)
}

func (m *RequestBlob) UnmarshalBinary(data []byte) error {
	*m = RequestBlob{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarints(s, &m.SessionTexture)
		case 2:
			return scanVarints(s, &m.SessionComment)
		case 3:
			return scanVarints(s, &m.ChannelDescription)
		}
		return nil
	})
}
