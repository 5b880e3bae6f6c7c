// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gomumble/mumble/message"
)

// A waiter is a pending correlated request. It is resolved exactly once.
type waiter struct {
	// accept reports whether m resolves the request, and with what outcome.
	accept func(m message.Message) (message.Message, error, bool)

	once sync.Once
	ch   chan waitResult // buffered, holds at most one result
}

type waitResult struct {
	msg message.Message
	err error
}

func newWaiter(accept func(message.Message) (message.Message, error, bool)) *waiter {
	return &waiter{accept: accept, ch: make(chan waitResult, 1)}
}

// offer resolves w if m is an acceptable outcome.
func (w *waiter) offer(m message.Message) {
	if rsp, err, ok := w.accept(m); ok {
		w.deliver(rsp, err)
	}
}

func (w *waiter) deliver(m message.Message, err error) {
	w.once.Do(func() { w.ch <- waitResult{msg: m, err: err} })
}

// addWaiter registers w to observe incoming messages.
func (c *Client) addWaiter(w *waiter) error {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.state != SessionConnected {
		if c.state == SessionDisconnected && c.err != nil {
			return c.err
		}
		return ErrNotConnected
	}
	if c.waiters == nil {
		c.waiters = make(map[*waiter]struct{})
	}
	c.waiters[w] = struct{}{}
	return nil
}

func (c *Client) removeWaiter(w *waiter) {
	c.μ.Lock()
	defer c.μ.Unlock()
	delete(c.waiters, w)
}

// Request sends req to the server and waits for the first response of type T
// for which match reports true. If match == nil, any message of type T is
// accepted. The waiter is registered before req is sent, so a response that
// arrives immediately is not missed.
//
// If the server sends a PermissionDenied notice first, Request reports an
// error satisfying errors.Is(err, ErrUnauthorized) with concrete type
// *DeniedError. If no response arrives within the request timeout of c, or
// before the deadline of ctx, it reports ErrTimeout. If the session ends or
// ctx is cancelled while waiting, it reports ErrCanceled.
//
// Responses are read by the receive loop, so Request must not be called from
// a handler or message observer: it would time out.
func Request[T message.Message](ctx context.Context, c *Client, req message.Message, match func(T) bool) (_ T, err error) {
	var zero T
	metrics.reqOut.Add(1)
	defer func() {
		if err != nil {
			metrics.reqErr.Add(1)
		}
	}()

	w := newWaiter(func(m message.Message) (message.Message, error, bool) {
		switch v := m.(type) {
		case T:
			if match == nil || match(v) {
				return v, nil, true
			}
		case *message.PermissionDenied:
			return nil, &DeniedError{PermissionDenied: v}, true
		}
		return nil, nil, false
	})
	if err := c.addWaiter(w); err != nil {
		return zero, err
	}
	defer c.removeWaiter(w)
	metrics.reqPending.Add(1)
	defer metrics.reqPending.Add(-1)

	c.μ.Lock()
	timeout := c.reqTimeout
	c.μ.Unlock()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if err := c.SendMessage(ctx, req); err != nil {
		return zero, err
	}

	select {
	case r := <-w.ch:
		if r.err != nil {
			if errors.Is(r.err, ErrUnauthorized) {
				metrics.reqDenied.Add(1)
			}
			return zero, r.err
		}
		return r.msg.(T), nil

	case <-timer.C:
		metrics.reqTimeout.Add(1)
		return zero, fmt.Errorf("%v request: no response after %v: %w", req.Type(), timeout, ErrTimeout)

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.reqTimeout.Add(1)
			return zero, fmt.Errorf("%v request: %w: %w", req.Type(), ErrTimeout, ctx.Err())
		}
		return zero, fmt.Errorf("%v request: %w: %w", req.Type(), ErrCanceled, ctx.Err())
	}
}
