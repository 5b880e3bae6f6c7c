// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package message

import (
	"bytes"
	"slices"
)

// ChannelRemove reports that a channel no longer exists.
type ChannelRemove struct {
	ChannelID *uint32
}

func (*ChannelRemove) Type() Type { return TypeChannelRemove }

func (m *ChannelRemove) appendTo(b *builder) { putVarint(b, 1, m.ChannelID) }

func (m *ChannelRemove) UnmarshalBinary(data []byte) error {
	*m = ChannelRemove{}
	return decodeFields(data, func(s *scanner) error {
		if s.num == 1 {
			return scanVarint(s, &m.ChannelID)
		}
		return nil
	})
}

// ChannelState describes a channel, or a change to one. Only the fields that
// changed are present in an update.
//
// A channel's links may be described three ways: Links replaces the whole
// set, while LinksAdd and LinksRemove adjust it.
type ChannelState struct {
	ChannelID         *uint32
	Parent            *uint32
	Name              *string
	Links             []uint32
	Description       *string
	LinksAdd          []uint32
	LinksRemove       []uint32
	Temporary         *bool
	Position          *int32
	DescriptionHash   []byte
	MaxUsers          *uint32
	IsEnterRestricted *bool
	CanEnter          *bool
}

func (*ChannelState) Type() Type { return TypeChannelState }

func (m *ChannelState) appendTo(b *builder) {
	putVarint(b, 1, m.ChannelID)
	putVarint(b, 2, m.Parent)
	putString(b, 3, m.Name)
	putVarints(b, 4, m.Links)
	putString(b, 5, m.Description)
	putVarints(b, 6, m.LinksAdd)
	putVarints(b, 7, m.LinksRemove)
	putBool(b, 8, m.Temporary)
	putVarint(b, 9, m.Position)
	putBytes(b, 10, m.DescriptionHash)
	putVarint(b, 11, m.MaxUsers)
	putBool(b, 12, m.IsEnterRestricted)
	putBool(b, 13, m.CanEnter)
}

func (m *ChannelState) UnmarshalBinary(data []byte) error {
	*m = ChannelState{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.ChannelID)
		case 2:
			return scanVarint(s, &m.Parent)
		case 3:
			return scanString(s, &m.Name)
		case 4:
			return scanVarints(s, &m.Links)
		case 5:
			return scanString(s, &m.Description)
		case 6:
			return scanVarints(s, &m.LinksAdd)
		case 7:
			return scanVarints(s, &m.LinksRemove)
		case 8:
			return scanBool(s, &m.Temporary)
		case 9:
			return scanVarint(s, &m.Position)
		case 10:
			return scanBytes(s, &m.DescriptionHash)
		case 11:
			return scanVarint(s, &m.MaxUsers)
		case 12:
			return scanBool(s, &m.IsEnterRestricted)
		case 13:
			return scanBool(s, &m.CanEnter)
		}
		return nil
	})
}

// Clone returns a deep copy of m.
func (m *ChannelState) Clone() *ChannelState {
	if m == nil {
		return nil
	}
	return &ChannelState{
		ChannelID:         clonePtr(m.ChannelID),
		Parent:            clonePtr(m.Parent),
		Name:              clonePtr(m.Name),
		Links:             slices.Clone(m.Links),
		Description:       clonePtr(m.Description),
		LinksAdd:          slices.Clone(m.LinksAdd),
		LinksRemove:       slices.Clone(m.LinksRemove),
		Temporary:         clonePtr(m.Temporary),
		Position:          clonePtr(m.Position),
		DescriptionHash:   bytes.Clone(m.DescriptionHash),
		MaxUsers:          clonePtr(m.MaxUsers),
		IsEnterRestricted: clonePtr(m.IsEnterRestricted),
		CanEnter:          clonePtr(m.CanEnter),
	}
}

// Merge updates m in place with the fields present in src. Present scalar
// fields of src replace those of m; repeated fields of src are appended to
// those of m. Fields absent from src are not modified.
func (m *ChannelState) Merge(src *ChannelState) {
	mergePtr(&m.ChannelID, src.ChannelID)
	mergePtr(&m.Parent, src.Parent)
	mergePtr(&m.Name, src.Name)
	m.Links = append(m.Links, src.Links...)
	mergePtr(&m.Description, src.Description)
	m.LinksAdd = append(m.LinksAdd, src.LinksAdd...)
	m.LinksRemove = append(m.LinksRemove, src.LinksRemove...)
	mergePtr(&m.Temporary, src.Temporary)
	mergePtr(&m.Position, src.Position)
	mergeBytes(&m.DescriptionHash, src.DescriptionHash)
	mergePtr(&m.MaxUsers, src.MaxUsers)
	mergePtr(&m.IsEnterRestricted, src.IsEnterRestricted)
	mergePtr(&m.CanEnter, src.CanEnter)
}

// UserRemove reports that a user left the server, or was kicked or banned.
type UserRemove struct {
	Session *uint32
	Actor   *uint32
	Reason  *string
	Ban     *bool
}

func (*UserRemove) Type() Type { return TypeUserRemove }

func (m *UserRemove) appendTo(b *builder) {
	putVarint(b, 1, m.Session)
	putVarint(b, 2, m.Actor)
	putString(b, 3, m.Reason)
	putBool(b, 4, m.Ban)
}

func (m *UserRemove) UnmarshalBinary(data []byte) error {
	*m = UserRemove{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Session)
		case 2:
			return scanVarint(s, &m.Actor)
		case 3:
			return scanString(s, &m.Reason)
		case 4:
			return scanBool(s, &m.Ban)
		}
		return nil
	})
}

// UserState describes a connected user, or a change to one.
type UserState struct {
	Session                *uint32
	Actor                  *uint32
	Name                   *string
	UserID                 *uint32
	ChannelID              *uint32
	Mute                   *bool
	Deaf                   *bool
	Suppress               *bool
	SelfMute               *bool
	SelfDeaf               *bool
	Texture                []byte
	PluginContext          []byte
	PluginIdentity         *string
	Comment                *string
	Hash                   *string
	CommentHash            []byte
	TextureHash            []byte
	PrioritySpeaker        *bool
	Recording              *bool
	TemporaryAccessTokens  []string
	ListeningChannelAdd    []uint32
	ListeningChannelRemove []uint32
}

func (*UserState) Type() Type { return TypeUserState }

func (m *UserState) appendTo(b *builder) {
	putVarint(b, 1, m.Session)
	putVarint(b, 2, m.Actor)
	putString(b, 3, m.Name)
	putVarint(b, 4, m.UserID)
	putVarint(b, 5, m.ChannelID)
	putBool(b, 6, m.Mute)
	putBool(b, 7, m.Deaf)
	putBool(b, 8, m.Suppress)
	putBool(b, 9, m.SelfMute)
	putBool(b, 10, m.SelfDeaf)
	putBytes(b, 11, m.Texture)
	putBytes(b, 12, m.PluginContext)
	putString(b, 13, m.PluginIdentity)
	putString(b, 14, m.Comment)
	putString(b, 15, m.Hash)
	putBytes(b, 16, m.CommentHash)
	putBytes(b, 17, m.TextureHash)
	putBool(b, 18, m.PrioritySpeaker)
	putBool(b, 19, m.Recording)
	putStrings(b, 20, m.TemporaryAccessTokens)
	putVarints(b, 21, m.ListeningChannelAdd)
	putVarints(b, 22, m.ListeningChannelRemove)
}

func (m *UserState) UnmarshalBinary(data []byte) error {
	*m = UserState{}
	return decodeFields(data, func(s *scanner) error {
		switch s.num {
		case 1:
			return scanVarint(s, &m.Session)
		case 2:
			return scanVarint(s, &m.Actor)
		case 3:
			return scanString(s, &m.Name)
		case 4:
			return scanVarint(s, &m.UserID)
		case 5:
			return scanVarint(s, &m.ChannelID)
		case 6:
			return scanBool(s, &m.Mute)
		case 7:
			return scanBool(s, &m.Deaf)
		case 8:
			return scanBool(s, &m.Suppress)
		case 9:
			return scanBool(s, &m.SelfMute)
		case 10:
			return scanBool(s, &m.SelfDeaf)
		case 11:
			return scanBytes(s, &m.Texture)
		case 12:
			return scanBytes(s, &m.PluginContext)
		case 13:
			return scanString(s, &m.PluginIdentity)
		case 14:
			return scanString(s, &m.Comment)
		case 15:
			return scanString(s, &m.Hash)
		case 16:
			return scanBytes(s, &m.CommentHash)
		case 17:
			return scanBytes(s, &m.TextureHash)
		case 18:
			return scanBool(s, &m.PrioritySpeaker)
		case 19:
			return scanBool(s, &m.Recording)
		case 20:
			return scanStrings(s, &m.TemporaryAccessTokens)
		case 21:
			return scanVarints(s, &m.ListeningChannelAdd)
		case 22:
			return scanVarints(s, &m.ListeningChannelRemove)
		}
		return nil
	})
}

// Clone returns a deep copy of m.
func (m *UserState) Clone() *UserState {
	if m == nil {
		return nil
	}
	return &UserState{
		Session:                clonePtr(m.Session),
		Actor:                  clonePtr(m.Actor),
		Name:                   clonePtr(m.Name),
		UserID:                 clonePtr(m.UserID),
		ChannelID:              clonePtr(m.ChannelID),
		Mute:                   clonePtr(m.Mute),
		Deaf:                   clonePtr(m.Deaf),
		Suppress:               clonePtr(m.Suppress),
		SelfMute:               clonePtr(m.SelfMute),
		SelfDeaf:               clonePtr(m.SelfDeaf),
		Texture:                bytes.Clone(m.Texture),
		PluginContext:          bytes.Clone(m.PluginContext),
		PluginIdentity:         clonePtr(m.PluginIdentity),
		Comment:                clonePtr(m.Comment),
		Hash:                   clonePtr(m.Hash),
		CommentHash:            bytes.Clone(m.CommentHash),
		TextureHash:            bytes.Clone(m.TextureHash),
		PrioritySpeaker:        clonePtr(m.PrioritySpeaker),
		Recording:              clonePtr(m.Recording),
		TemporaryAccessTokens:  slices.Clone(m.TemporaryAccessTokens),
		ListeningChannelAdd:    slices.Clone(m.ListeningChannelAdd),
		ListeningChannelRemove: slices.Clone(m.ListeningChannelRemove),
	}
}

// Merge updates m in place with the fields present in src, with the same
// rules as [ChannelState.Merge].
func (m *UserState) Merge(src *UserState) {
	mergePtr(&m.Session, src.Session)
	mergePtr(&m.Actor, src.Actor)
	mergePtr(&m.Name, src.Name)
	mergePtr(&m.UserID, src.UserID)
	mergePtr(&m.ChannelID, src.ChannelID)
	mergePtr(&m.Mute, src.Mute)
	mergePtr(&m.Deaf, src.Deaf)
	mergePtr(&m.Suppress, src.Suppress)
	mergePtr(&m.SelfMute, src.SelfMute)
	mergePtr(&m.SelfDeaf, src.SelfDeaf)
	mergeBytes(&m.Texture, src.Texture)
	mergeBytes(&m.PluginContext, src.PluginContext)
	mergePtr(&m.PluginIdentity, src.PluginIdentity)
	mergePtr(&m.Comment, src.Comment)
	mergePtr(&m.Hash, src.Hash)
	mergeBytes(&m.CommentHash, src.CommentHash)
	mergeBytes(&m.TextureHash, src.TextureHash)
	mergePtr(&m.PrioritySpeaker, src.PrioritySpeaker)
	mergePtr(&m.Recording, src.Recording)
	m.TemporaryAccessTokens = append(m.TemporaryAccessTokens, src.TemporaryAccessTokens...)
	m.ListeningChannelAdd = append(m.ListeningChannelAdd, src.ListeningChannelAdd...)
	m.ListeningChannelRemove = append(m.ListeningChannelRemove, src.ListeningChannelRemove...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		*dst = clonePtr(src)
	}
}

func mergeBytes(dst *[]byte, src []byte) {
	if src != nil {
		*dst = append([]byte{}, src...)
	}
}
