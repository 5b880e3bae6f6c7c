// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"context"
	"errors"

	"github.com/gomumble/mumble/message"
	"github.com/gomumble/mumble/state"
)

// A Target addresses a text message to users, channels, or channel trees.
// Targets combine with Add.
type Target struct {
	Users    []uint32 // session ids
	Channels []uint32 // channel ids
	Trees    []uint32 // channel ids, including all sub-channels
}

// ToUser addresses the users with the given session ids.
func ToUser(sessions ...uint32) Target { return Target{Users: sessions} }

// ToChannel addresses the members of the given channels.
func ToChannel(ids ...uint32) Target { return Target{Channels: ids} }

// ToTree addresses the members of the given channels and their descendants.
func ToTree(ids ...uint32) Target { return Target{Trees: ids} }

// Add returns a target addressing the recipients of both t and u.
func (t Target) Add(u Target) Target {
	return Target{
		Users:    append(t.Users[:len(t.Users):len(t.Users)], u.Users...),
		Channels: append(t.Channels[:len(t.Channels):len(t.Channels)], u.Channels...),
		Trees:    append(t.Trees[:len(t.Trees):len(t.Trees)], u.Trees...),
	}
}

func (t Target) isEmpty() bool { return len(t.Users)+len(t.Channels)+len(t.Trees) == 0 }

// SendTextMessage sends text to the recipients of to. If a message rate is
// set (see SetMessageRate), SendTextMessage waits for its turn, or until ctx
// ends.
func (c *Client) SendTextMessage(ctx context.Context, text string, to Target) error {
	if to.isEmpty() {
		return errors.New("text message has no recipients")
	}
	c.μ.Lock()
	lim := c.limiter
	c.μ.Unlock()
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}
	return c.SendMessage(ctx, &message.TextMessage{
		Actor:      message.Ptr(c.Session()),
		Sessions:   to.Users,
		ChannelIDs: to.Channels,
		TreeIDs:    to.Trees,
		Message:    &text,
	})
}

// MoveUser asks the server to move the user with the given session into
// channel id, and waits for the server to confirm the move. It returns the
// updated user.
func (c *Client) MoveUser(ctx context.Context, session, channel uint32) (state.User, error) {
	_, err := Request(ctx, c, &message.UserState{
		Session:   &session,
		ChannelID: &channel,
	}, func(m *message.UserState) bool {
		return message.Get(m.Session) == session && m.ChannelID != nil && *m.ChannelID == channel
	})
	if err != nil {
		return state.User{}, err
	}
	return c.lookupUser(session)
}

// JoinChannel moves this client into channel id.
func (c *Client) JoinChannel(ctx context.Context, channel uint32) (state.User, error) {
	return c.MoveUser(ctx, c.Session(), channel)
}

// SetSelfMute sets or clears the self-mute flag of this client.
func (c *Client) SetSelfMute(ctx context.Context, mute bool) (state.User, error) {
	return c.updateSelf(ctx, &message.UserState{SelfMute: &mute}, func(m *message.UserState) bool {
		return m.SelfMute != nil && *m.SelfMute == mute
	})
}

// SetSelfDeaf sets or clears the self-deafen flag of this client. Deafening
// also mutes; the server reports both.
func (c *Client) SetSelfDeaf(ctx context.Context, deaf bool) (state.User, error) {
	return c.updateSelf(ctx, &message.UserState{SelfDeaf: &deaf}, func(m *message.UserState) bool {
		return m.SelfDeaf != nil && *m.SelfDeaf == deaf
	})
}

// SetComment sets the comment of this client.
func (c *Client) SetComment(ctx context.Context, comment string) (state.User, error) {
	return c.updateSelf(ctx, &message.UserState{Comment: &comment}, func(m *message.UserState) bool {
		return m.Comment != nil
	})
}

func (c *Client) updateSelf(ctx context.Context, req *message.UserState, match func(*message.UserState) bool) (state.User, error) {
	self := c.Session()
	req.Session = &self
	_, err := Request(ctx, c, req, func(m *message.UserState) bool {
		return message.Get(m.Session) == self && match(m)
	})
	if err != nil {
		return state.User{}, err
	}
	return c.lookupUser(self)
}

func (c *Client) lookupUser(session uint32) (state.User, error) {
	if u, ok := c.users.Get(session); ok {
		return u, nil
	}
	return state.User{}, state.ErrNotFound
}

// QueryPermissions asks the server for the permissions this client holds in
// channel id, and returns the permission bit mask.
func (c *Client) QueryPermissions(ctx context.Context, channel uint32) (uint32, error) {
	rsp, err := Request(ctx, c, &message.PermissionQuery{ChannelID: &channel}, func(m *message.PermissionQuery) bool {
		return message.Get(m.ChannelID) == channel && m.Permissions != nil
	})
	if err != nil {
		return 0, err
	}
	return *rsp.Permissions, nil
}

// RequestUserStats asks the server for connection statistics about the user
// with the given session. If statsOnly is true, the server omits the user's
// certificates and version details.
func (c *Client) RequestUserStats(ctx context.Context, session uint32, statsOnly bool) (*message.UserStats, error) {
	return Request(ctx, c, &message.UserStats{
		Session:   &session,
		StatsOnly: &statsOnly,
	}, func(m *message.UserStats) bool {
		return message.Get(m.Session) == session
	})
}
