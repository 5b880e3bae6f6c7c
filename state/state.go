// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Package state implements the client-side mirror of the channels and users
// known to a Mumble server.
//
// The collections are updated from the server's state deltas by the session
// that owns them, and may be read concurrently by any number of goroutines.
// Each entry is an immutable snapshot: an update builds a new snapshot and
// swaps it in, so readers never observe a partially merged entry.
//
// Relationships among entries (parent, children, links, members) are not
// stored; they are computed from the current snapshots when requested.
package state

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/creachadair/mds/mapset"
)

var (
	// ErrNotFound is reported by lookups that match no entry, or by name
	// lookups that match more than one.
	ErrNotFound = errors.New("not found")

	// ErrMissingID is reported when an update does not identify its entry.
	ErrMissingID = errors.New("update has no id")

	// ErrInconsistent is reported when a relationship refers to an entry
	// that does not exist.
	ErrInconsistent = errors.New("inconsistent state")
)

// A table is a concurrent map of immutable snapshots keyed by id.
type table[E any] struct {
	μ sync.RWMutex
	m map[uint32]*E
}

func (t *table[E]) get(id uint32) *E {
	t.μ.RLock()
	defer t.μ.RUnlock()
	return t.m[id]
}

// update replaces the entry for id with the result of f applied to the
// current entry (nil if there is none).
func (t *table[E]) update(id uint32, f func(old *E) *E) *E {
	t.μ.Lock()
	defer t.μ.Unlock()
	if t.m == nil {
		t.m = make(map[uint32]*E)
	}
	e := f(t.m[id])
	t.m[id] = e
	return e
}

func (t *table[E]) remove(id uint32) bool {
	t.μ.Lock()
	defer t.μ.Unlock()
	_, ok := t.m[id]
	delete(t.m, id)
	return ok
}

func (t *table[E]) clear() {
	t.μ.Lock()
	defer t.μ.Unlock()
	t.m = nil
}

func (t *table[E]) len() int {
	t.μ.RLock()
	defer t.μ.RUnlock()
	return len(t.m)
}

// snapshot returns the current entries in increasing order of id.
func (t *table[E]) snapshot() []*E {
	t.μ.RLock()
	ids := make([]uint32, 0, len(t.m))
	for id := range t.m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*E, len(ids))
	for i, id := range ids {
		out[i] = t.m[id]
	}
	t.μ.RUnlock()
	return out
}

// reconcile returns the sorted set base ∪ add − remove.
// The result is nil if the set is empty.
func reconcile(base, add, remove []uint32) []uint32 {
	s := mapset.New(base...)
	s.Add(add...)
	s.Remove(remove...)
	if s.Len() == 0 {
		return nil
	}
	out := s.Slice()
	slices.Sort(out)
	return out
}

// byName returns the single element of all whose name is name.
func byName[T any](all []T, name string, nameOf func(T) string) (T, error) {
	var match []T
	for _, v := range all {
		if nameOf(v) == name {
			match = append(match, v)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		var zero T
		return zero, fmt.Errorf("name %q: %w", name, ErrNotFound)
	default:
		var zero T
		return zero, fmt.Errorf("name %q is ambiguous (%d matches): %w", name, len(match), ErrNotFound)
	}
}
