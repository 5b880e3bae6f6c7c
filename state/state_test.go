// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package state_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/creachadair/taskgroup"
	"github.com/gomumble/mumble/message"
	"github.com/gomumble/mumble/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var p = message.Ptr[uint32]

func str(s string) *string { return &s }

func mustApply(t *testing.T, c *state.Channels, delta *message.ChannelState) state.Channel {
	t.Helper()
	ch, err := c.Apply(delta)
	if err != nil {
		t.Fatalf("Apply %+v: unexpected error: %v", delta, err)
	}
	return ch
}

func TestLinkReconciliation(t *testing.T) {
	tests := []struct {
		name  string
		delta *message.ChannelState
		want  []uint32
	}{
		{"AddRemove", &message.ChannelState{LinksAdd: []uint32{4}, LinksRemove: []uint32{2}}, []uint32{1, 3, 4}},
		{"FullListDedup", &message.ChannelState{Links: []uint32{9, 9, 10}}, []uint32{9, 10}},
		{"FullListWithAdjust", &message.ChannelState{
			Links: []uint32{7, 8}, LinksAdd: []uint32{8, 2}, LinksRemove: []uint32{7},
		}, []uint32{2, 8}},
		{"NoLinkFields", &message.ChannelState{Name: str("renamed")}, []uint32{1, 2, 3}},
		{"EmptyLists", &message.ChannelState{Links: []uint32{}, LinksAdd: []uint32{}, LinksRemove: []uint32{}}, []uint32{1, 2, 3}},
		{"RemoveAll", &message.ChannelState{LinksRemove: []uint32{1, 2, 3}}, nil},
		{"RemoveAbsent", &message.ChannelState{LinksRemove: []uint32{99}}, []uint32{1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var c state.Channels
			mustApply(t, &c, &message.ChannelState{ChannelID: p(5), Name: str("five"), Links: []uint32{3, 1, 2}})

			tc.delta.ChannelID = p(5)
			got := mustApply(t, &c, tc.delta)
			if diff := cmp.Diff(tc.want, got.Links, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Links (-want, +got):\n%s", diff)
			}

			// The stored entry agrees with the returned snapshot.
			stored, ok := c.Get(5)
			if !ok {
				t.Fatal("Get(5): not found")
			}
			if diff := cmp.Diff(got, stored, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Stored (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestMergeByPresence(t *testing.T) {
	var c state.Channels
	mustApply(t, &c, &message.ChannelState{
		ChannelID: p(2), Parent: p(0), Name: str("old"), Description: str("desc"),
		Temporary: message.Ptr(true), Position: message.Ptr[int32](4), Links: []uint32{1},
	})
	got := mustApply(t, &c, &message.ChannelState{ChannelID: p(2), Name: str("new")})

	want := state.Channel{
		ID: 2, Parent: 0, HasParent: true, Name: "new", Description: "desc",
		Temporary: true, Position: 4, Links: []uint32{1},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Merged (-want, +got):\n%s", diff)
	}

	// An explicit false or zero is present, and overwrites.
	got = mustApply(t, &c, &message.ChannelState{ChannelID: p(2), Temporary: message.Ptr(false), Position: message.Ptr[int32](0)})
	if got.Temporary || got.Position != 0 || got.Name != "new" {
		t.Errorf("Explicit zero merge: got %+v", got)
	}
}

func TestNewEntryDefaults(t *testing.T) {
	var u state.Users
	got, err := u.Apply(&message.UserState{Session: p(9), Name: str("zed")})
	if err != nil {
		t.Fatalf("Apply: unexpected error: %v", err)
	}
	if diff := cmp.Diff(state.User{Session: 9, Name: "zed"}, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("New user (-want, +got):\n%s", diff)
	}
	if got.Registered() {
		t.Error("Anonymous user reports Registered")
	}

	var c state.Channels
	ch := mustApply(t, &c, &message.ChannelState{ChannelID: p(0), Name: str("Root")})
	if diff := cmp.Diff(state.Channel{Name: "Root"}, ch, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("New channel (-want, +got):\n%s", diff)
	}
}

func TestMissingID(t *testing.T) {
	var c state.Channels
	if _, err := c.Apply(&message.ChannelState{Name: str("x")}); !errors.Is(err, state.ErrMissingID) {
		t.Errorf("Channel Apply: got %v, want %v", err, state.ErrMissingID)
	}
	var u state.Users
	if _, err := u.Apply(&message.UserState{Name: str("x")}); !errors.Is(err, state.ErrMissingID) {
		t.Errorf("User Apply: got %v, want %v", err, state.ErrMissingID)
	}
	if c.Len() != 0 || u.Len() != 0 {
		t.Errorf("Failed updates changed state: %d channels, %d users", c.Len(), u.Len())
	}
}

func TestUserUpdates(t *testing.T) {
	var u state.Users
	u.Apply(&message.UserState{
		Session: p(3), Name: str("amy"), UserID: p(44), ChannelID: p(0),
		SelfMute: message.Ptr(true), ListeningChannelAdd: []uint32{4, 5},
	})
	got, err := u.Apply(&message.UserState{
		Session: p(3), ChannelID: p(7), SelfMute: message.Ptr(false), Deaf: message.Ptr(true),
		ListeningChannelAdd: []uint32{6}, ListeningChannelRemove: []uint32{4},
	})
	if err != nil {
		t.Fatalf("Apply: unexpected error: %v", err)
	}
	want := state.User{
		Session: 3, Name: "amy", UserID: 44, ChannelID: 7, Deaf: true, Listening: []uint32{5, 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("User (-want, +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	var c state.Channels
	var u state.Users
	for _, d := range []*message.ChannelState{
		{ChannelID: p(0), Name: str("Root")},
		{ChannelID: p(1), Parent: p(0), Name: str("Lobby"), Position: message.Ptr[int32](2)},
		{ChannelID: p(2), Parent: p(0), Name: str("Games"), Position: message.Ptr[int32](1)},
		{ChannelID: p(3), Parent: p(2), Name: str("Chess"), Links: []uint32{1, 42}},
		{ChannelID: p(4), Parent: p(2), Name: str("Lobby")},
		{ChannelID: p(5), Parent: p(99), Name: str("Orphan")},
		{ChannelID: p(6), Name: str("Floating")},
	} {
		mustApply(t, &c, d)
	}
	for _, d := range []*message.UserState{
		{Session: p(10), Name: str("ann"), ChannelID: p(1)},
		{Session: p(11), Name: str("ben"), ChannelID: p(3)},
		{Session: p(12), Name: str("cat"), ChannelID: p(1)},
	} {
		if _, err := u.Apply(d); err != nil {
			t.Fatalf("Apply user: %v", err)
		}
	}

	ids := func(chs []state.Channel) (out []uint32) {
		for _, ch := range chs {
			out = append(out, ch.ID)
		}
		return
	}

	t.Run("ByName", func(t *testing.T) {
		if ch, err := c.ByName("Games"); err != nil || ch.ID != 2 {
			t.Errorf("ByName(Games): got (%+v, %v), want id 2", ch, err)
		}
		if ch, err := c.ByName("Lobby"); !errors.Is(err, state.ErrNotFound) {
			t.Errorf("ByName(Lobby): got (%+v, %v), want ambiguous", ch, err)
		}
		if ch, err := c.ByName("nonesuch"); !errors.Is(err, state.ErrNotFound) {
			t.Errorf("ByName(nonesuch): got (%+v, %v), want %v", ch, err, state.ErrNotFound)
		}
		if v, err := u.ByName("cat"); err != nil || v.Session != 12 {
			t.Errorf("User ByName(cat): got (%+v, %v), want session 12", v, err)
		}
	})

	t.Run("Parent", func(t *testing.T) {
		if _, ok, err := c.Parent(0); ok || err != nil {
			t.Errorf("Parent(root): got (%v, %v), want no parent", ok, err)
		}
		if pc, ok, err := c.Parent(3); err != nil || !ok || pc.ID != 2 {
			t.Errorf("Parent(3): got (%+v, %v, %v), want 2", pc, ok, err)
		}
		if _, _, err := c.Parent(5); !errors.Is(err, state.ErrInconsistent) {
			t.Errorf("Parent(5): got %v, want %v", err, state.ErrInconsistent)
		}
		if _, _, err := c.Parent(6); !errors.Is(err, state.ErrInconsistent) {
			t.Errorf("Parent(6): got %v, want %v", err, state.ErrInconsistent)
		}
		if _, _, err := c.Parent(100); !errors.Is(err, state.ErrNotFound) {
			t.Errorf("Parent(100): got %v, want %v", err, state.ErrNotFound)
		}
	})

	t.Run("Children", func(t *testing.T) {
		if diff := cmp.Diff([]uint32{2, 1}, ids(c.Children(0))); diff != "" {
			t.Errorf("Children(0) (-want, +got):\n%s", diff)
		}
		if diff := cmp.Diff([]uint32{3, 4}, ids(c.Children(2))); diff != "" {
			t.Errorf("Children(2) (-want, +got):\n%s", diff)
		}
		if got := c.Children(3); len(got) != 0 {
			t.Errorf("Children(3): got %v, want none", got)
		}
	})

	t.Run("Linked", func(t *testing.T) {
		got, err := c.Linked(3)
		if err != nil {
			t.Fatalf("Linked(3): %v", err)
		}
		if diff := cmp.Diff([]uint32{1}, ids(got)); diff != "" {
			t.Errorf("Linked(3) (-want, +got):\n%s", diff)
		}
	})

	t.Run("Members", func(t *testing.T) {
		var got []string
		for _, v := range u.InChannel(1) {
			got = append(got, v.Name)
		}
		if diff := cmp.Diff([]string{"ann", "cat"}, got); diff != "" {
			t.Errorf("InChannel(1) (-want, +got):\n%s", diff)
		}
		ch, err := u.Channel(11, &c)
		if err != nil || ch.Name != "Chess" {
			t.Errorf("Channel(11): got (%+v, %v), want Chess", ch, err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if !c.Remove(4) {
			t.Error("Remove(4): not present")
		}
		if c.Remove(4) {
			t.Error("Remove(4) twice: reported present")
		}
		if ch, err := c.ByName("Lobby"); err != nil || ch.ID != 1 {
			t.Errorf("ByName(Lobby) after remove: got (%+v, %v)", ch, err)
		}
		c.Clear()
		u.Clear()
		if c.Len() != 0 || u.Len() != 0 || len(c.All()) != 0 {
			t.Errorf("After Clear: %d channels, %d users", c.Len(), u.Len())
		}
	})
}

func TestSnapshotIsolation(t *testing.T) {
	var c state.Channels
	ch := mustApply(t, &c, &message.ChannelState{ChannelID: p(1), Links: []uint32{2, 3}})
	ch.Links[0] = 100

	got, _ := c.Get(1)
	if diff := cmp.Diff([]uint32{2, 3}, got.Links); diff != "" {
		t.Errorf("Caller modified stored links (-want, +got):\n%s", diff)
	}
}

func TestConcurrentApply(t *testing.T) {
	var c state.Channels
	mustApply(t, &c, &message.ChannelState{ChannelID: p(1)})

	const writers = 8
	const each = 50
	g := taskgroup.New(nil)
	for w := range writers {
		g.Go(func() error {
			for i := range each {
				link := uint32(1000 + w*each + i)
				if _, err := c.Apply(&message.ChannelState{ChannelID: p(1), LinksAdd: []uint32{link}}); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for range each {
				ch, ok := c.Get(1)
				if !ok {
					return fmt.Errorf("channel 1 missing")
				}
				for i := 1; i < len(ch.Links); i++ {
					if ch.Links[i-1] >= ch.Links[i] {
						return fmt.Errorf("links not a sorted set: %v", ch.Links)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	ch, _ := c.Get(1)
	if got, want := len(ch.Links), writers*each; got != want {
		t.Errorf("Links: got %d, want %d", got, want)
	}
}
