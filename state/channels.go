// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package state

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/gomumble/mumble/message"
)

// RootID is the id of the root channel, the only channel without a parent.
const RootID = 0

// A Channel is a snapshot of the state of one channel.
type Channel struct {
	ID              uint32
	Name            string
	Description     string
	DescriptionHash []byte
	Temporary       bool
	Position        int32
	Parent          uint32 // meaningful only if HasParent is true
	HasParent       bool
	Links           []uint32 // sorted, without duplicates
	MaxUsers        uint32
	EnterRestricted bool
	CanEnter        bool
}

func channelOf(m *message.ChannelState) Channel {
	return Channel{
		ID:              message.Get(m.ChannelID),
		Name:            message.Get(m.Name),
		Description:     message.Get(m.Description),
		DescriptionHash: bytes.Clone(m.DescriptionHash),
		Temporary:       message.Get(m.Temporary),
		Position:        message.Get(m.Position),
		Parent:          message.Get(m.Parent),
		HasParent:       m.Parent != nil,
		Links:           slices.Clone(m.Links),
		MaxUsers:        message.Get(m.MaxUsers),
		EnterRestricted: message.Get(m.IsEnterRestricted),
		CanEnter:        message.Get(m.CanEnter),
	}
}

// Channels is the collection of known channels. A zero Channels is empty and
// ready for use. It must not be copied after first use.
type Channels struct {
	t table[message.ChannelState]
}

// Apply merges delta into the entry for its channel, creating the entry if
// necessary, and returns the resulting snapshot.
//
// Fields present in delta replace the corresponding fields of the entry;
// absent fields are unchanged. The link set is resolved separately: the base
// set is delta.Links if that is non-empty, otherwise the current links; then
// delta.LinksAdd is added and delta.LinksRemove removed.
func (c *Channels) Apply(delta *message.ChannelState) (Channel, error) {
	if delta == nil || delta.ChannelID == nil {
		return Channel{}, ErrMissingID
	}
	e := c.t.update(*delta.ChannelID, func(old *message.ChannelState) *message.ChannelState {
		var next *message.ChannelState
		var base []uint32
		if old != nil {
			next, base = old.Clone(), old.Links
		} else {
			next = new(message.ChannelState)
		}
		if len(delta.Links) != 0 {
			base = delta.Links
		}
		links := reconcile(base, delta.LinksAdd, delta.LinksRemove)

		d := *delta
		d.Links, d.LinksAdd, d.LinksRemove = nil, nil, nil
		next.Merge(&d)
		next.Links = links
		return next
	})
	return channelOf(e), nil
}

// Remove deletes the channel with the given id, and reports whether it was
// present.
func (c *Channels) Remove(id uint32) bool { return c.t.remove(id) }

// Clear removes all channels.
func (c *Channels) Clear() { c.t.clear() }

// Len reports the number of known channels.
func (c *Channels) Len() int { return c.t.len() }

// Get returns the channel with the given id, if it exists.
func (c *Channels) Get(id uint32) (Channel, bool) {
	if m := c.t.get(id); m != nil {
		return channelOf(m), true
	}
	return Channel{}, false
}

// ByName returns the unique channel with the given name. It reports
// ErrNotFound if no channel, or more than one, has that name.
func (c *Channels) ByName(name string) (Channel, error) {
	return byName(c.All(), name, func(ch Channel) string { return ch.Name })
}

// All returns all known channels in order of id.
func (c *Channels) All() []Channel {
	snap := c.t.snapshot()
	out := make([]Channel, len(snap))
	for i, m := range snap {
		out[i] = channelOf(m)
	}
	return out
}

// Parent returns the parent of channel id. It reports false if id is the
// root channel. A parent that cannot be resolved, or a non-root channel with
// no parent, is reported as ErrInconsistent.
func (c *Channels) Parent(id uint32) (Channel, bool, error) {
	ch, ok := c.Get(id)
	if !ok {
		return Channel{}, false, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	if !ch.HasParent {
		if id == RootID {
			return Channel{}, false, nil
		}
		return Channel{}, false, fmt.Errorf("channel %d has no parent: %w", id, ErrInconsistent)
	}
	p, ok := c.Get(ch.Parent)
	if !ok {
		return Channel{}, false, fmt.Errorf("channel %d: parent %d: %w", id, ch.Parent, ErrInconsistent)
	}
	return p, true, nil
}

// Children returns the channels whose parent is id, ordered by position and
// then by name.
func (c *Channels) Children(id uint32) []Channel {
	var out []Channel
	for _, ch := range c.All() {
		if ch.HasParent && ch.Parent == id && ch.ID != id {
			out = append(out, ch)
		}
	}
	slices.SortFunc(out, func(a, b Channel) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.Name, b.Name))
	})
	return out
}

// Linked returns the channels linked to id. Links to channels that are no
// longer known are skipped.
func (c *Channels) Linked(id uint32) ([]Channel, error) {
	ch, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	var out []Channel
	for _, lid := range ch.Links {
		if lc, ok := c.Get(lid); ok {
			out = append(out, lc)
		}
	}
	return out, nil
}
