// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const defaultWorkers = 4

// Listener is called for every committed transition of every registered state.
type Listener func(t Transition)

type registeredListener struct {
	id ListenerID
	fn Listener
}

// Observer receives hub activity, e.g. for metrics.
type Observer interface {
	ActionScheduled()
	ActionFired()
	ActionCancelled()
	WaitersPending(n int)
}

type nopObserver struct{}

func (nopObserver) ActionScheduled()   {}
func (nopObserver) ActionFired()       {}
func (nopObserver) ActionCancelled()   {}
func (nopObserver) WaitersPending(int) {}

// Option configures a CCS.
type Option func(*CCS)

// WithWorkers bounds the number of scheduled actions that may run at once.
func WithWorkers(n int) Option {
	return func(c *CCS) {
		if n > 0 {
			c.workers = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithObserver installs an observer of hub activity.
func WithObserver(o Observer) Option {
	return func(c *CCS) {
		if o != nil {
			c.observer = o
		}
	}
}

// CCS routes state change notifications, resolves waiters and runs delayed actions.
type CCS struct {
	status   *AggregateStatus
	workers  *semaphore.Weighted
	observer Observer

	// mu guards waiters, actions and closed. Waiter registration and waiter
	// resolution both happen under mu, so a waiter is either seen by the
	// satisfying notification or sees the satisfied status when it registers.
	mu      sync.Mutex
	waiters []*Waiter
	actions map[*ScheduledAction]struct{}
	closed  bool
	running sync.WaitGroup

	listenerMu sync.RWMutex
	listeners  []registeredListener
}

// NewCCS returns a new hub with an empty aggregate status.
func NewCCS(opts ...Option) *CCS {
	c := &CCS{
		status:   NewAggregateStatus(),
		workers:  semaphore.NewWeighted(defaultWorkers),
		observer: nopObserver{},
		actions:  make(map[*ScheduledAction]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the aggregate status of all registered states.
func (c *CCS) Status() *AggregateStatus {
	return c.status
}

// AddListener registers fn to be called on every transition of every state.
func (c *CCS) AddListener(fn Listener) ListenerID {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	id := nextListenerID()
	listeners := make([]registeredListener, len(c.listeners), len(c.listeners)+1)
	copy(listeners, c.listeners)
	c.listeners = append(listeners, registeredListener{id: id, fn: fn})
	return id
}

// RemoveListener unregisters a listener. Unknown ids are ignored.
func (c *CCS) RemoveListener(id ListenerID) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	listeners := make([]registeredListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		if l.id != id {
			listeners = append(listeners, l)
		}
	}
	c.listeners = listeners
}

// WaitForStatus returns a waiter released once the aggregate status holds all of vs.
// If it already does, the returned waiter is complete and is not registered.
func (c *CCS) WaitForStatus(vs ...Variant) *Waiter {
	w := newWaiter(c, vs)

	c.mu.Lock()
	if c.closed {
		w.cancelUnsafe(ErrSchedulerClosed)
		c.mu.Unlock()
		return w
	}
	if c.status.HasAll(vs...) {
		w.completeUnsafe()
		c.mu.Unlock()
		return w
	}
	c.waiters = append(c.waiters, w)
	pending := len(c.waiters)
	c.mu.Unlock()

	c.observer.WaitersPending(pending)
	return w
}

// PendingWaiters returns the number of registered, unresolved waiters.
func (c *CCS) PendingWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *CCS) notifyStateChanged(t Transition) {
	c.listenerMu.RLock()
	listeners := c.listeners
	c.listenerMu.RUnlock()

	for _, l := range listeners {
		c.callListener(l, t)
	}

	c.mu.Lock()
	remaining := make([]*Waiter, 0, len(c.waiters))
	for _, w := range c.waiters {
		if c.status.HasAll(w.targets...) {
			w.completeUnsafe()
		} else {
			remaining = append(remaining, w)
		}
	}
	resolved := len(remaining) != len(c.waiters)
	c.waiters = remaining
	pending := len(remaining)
	c.mu.Unlock()

	if resolved {
		c.observer.WaitersPending(pending)
	}
}

func (c *CCS) callListener(l registeredListener, t Transition) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Status listener panicked handling %s: %s->%s: %v", t.Kind, t.Old, t.New, r)
		}
	}()
	l.fn(t)
}

func (c *CCS) removeWaiterUnsafe(w *Waiter) {
	for i, p := range c.waiters {
		if p == w {
			c.waiters = append(c.waiters[:i:i], c.waiters[i+1:]...)
			return
		}
	}
}

// Shutdown cancels every pending action and waiter, refuses new ones, and
// waits for running actions to return or for ctx to expire.
func (c *CCS) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	actions := make([]*ScheduledAction, 0, len(c.actions))
	for a := range c.actions {
		actions = append(actions, a)
	}
	for _, w := range c.waiters {
		w.cancelUnsafe(ErrSchedulerClosed)
	}
	c.waiters = nil
	c.mu.Unlock()

	for _, a := range actions {
		a.Cancel()
	}
	c.observer.WaitersPending(0)

	finished := make(chan struct{})
	go func() {
		c.running.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Debug("CCS shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
