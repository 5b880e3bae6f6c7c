// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package state

import (
	"fmt"

	"github.com/gomumble/mumble/message"
)

// A User is a snapshot of the state of one connected user.
type User struct {
	Session         uint32
	Name            string
	UserID          uint32 // 0 if the user is not registered
	ChannelID       uint32
	Comment         string
	Hash            string // certificate hash
	Mute            bool   // muted by an administrator
	Deaf            bool   // deafened by an administrator
	Suppress        bool
	SelfMute        bool
	SelfDeaf        bool
	PrioritySpeaker bool
	Recording       bool
	Listening       []uint32 // channels the user listens to, sorted
}

// Registered reports whether u has a registered account.
func (u User) Registered() bool { return u.UserID != 0 }

type userEntry struct {
	state     *message.UserState
	listening []uint32
}

func (e *userEntry) user() User {
	m := e.state
	return User{
		Session:         message.Get(m.Session),
		Name:            message.Get(m.Name),
		UserID:          message.Get(m.UserID),
		ChannelID:       message.Get(m.ChannelID),
		Comment:         message.Get(m.Comment),
		Hash:            message.Get(m.Hash),
		Mute:            message.Get(m.Mute),
		Deaf:            message.Get(m.Deaf),
		Suppress:        message.Get(m.Suppress),
		SelfMute:        message.Get(m.SelfMute),
		SelfDeaf:        message.Get(m.SelfDeaf),
		PrioritySpeaker: message.Get(m.PrioritySpeaker),
		Recording:       message.Get(m.Recording),
		Listening:       append([]uint32(nil), e.listening...),
	}
}

// Users is the collection of connected users, keyed by session id. A zero
// Users is empty and ready for use. It must not be copied after first use.
type Users struct {
	t table[userEntry]
}

// Apply merges delta into the entry for its session, creating the entry if
// necessary, and returns the resulting snapshot. Fields present in delta
// replace those of the entry. The listening channels are kept as a set,
// adjusted by delta.ListeningChannelAdd and delta.ListeningChannelRemove.
func (u *Users) Apply(delta *message.UserState) (User, error) {
	if delta == nil || delta.Session == nil {
		return User{}, ErrMissingID
	}
	e := u.t.update(*delta.Session, func(old *userEntry) *userEntry {
		next := &userEntry{state: new(message.UserState)}
		if old != nil {
			next.state = old.state.Clone()
			next.listening = old.listening
		}
		next.listening = reconcile(next.listening, delta.ListeningChannelAdd, delta.ListeningChannelRemove)

		d := *delta
		d.ListeningChannelAdd, d.ListeningChannelRemove = nil, nil
		next.state.Merge(&d)
		return next
	})
	return e.user(), nil
}

// Remove deletes the user with the given session, and reports whether it
// was present.
func (u *Users) Remove(session uint32) bool { return u.t.remove(session) }

// Clear removes all users.
func (u *Users) Clear() { u.t.clear() }

// Len reports the number of known users.
func (u *Users) Len() int { return u.t.len() }

// Get returns the user with the given session, if it exists.
func (u *Users) Get(session uint32) (User, bool) {
	if e := u.t.get(session); e != nil {
		return e.user(), true
	}
	return User{}, false
}

// ByName returns the unique user with the given name. It reports ErrNotFound
// if no user, or more than one, has that name.
func (u *Users) ByName(name string) (User, error) {
	return byName(u.All(), name, func(v User) string { return v.Name })
}

// All returns all known users in order of session.
func (u *Users) All() []User {
	snap := u.t.snapshot()
	out := make([]User, len(snap))
	for i, e := range snap {
		out[i] = e.user()
	}
	return out
}

// InChannel returns the users whose current channel is id, in order of
// session.
func (u *Users) InChannel(id uint32) []User {
	var out []User
	for _, v := range u.All() {
		if v.ChannelID == id {
			out = append(out, v)
		}
	}
	return out
}

// Channel returns the channel of the user with the given session, resolved
// in chans.
func (u *Users) Channel(session uint32, chans *Channels) (Channel, error) {
	v, ok := u.Get(session)
	if !ok {
		return Channel{}, fmt.Errorf("user %d: %w", session, ErrNotFound)
	}
	ch, ok := chans.Get(v.ChannelID)
	if !ok {
		return Channel{}, fmt.Errorf("user %d: channel %d: %w", session, v.ChannelID, ErrInconsistent)
	}
	return ch, nil
}
