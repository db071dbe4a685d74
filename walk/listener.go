/*
 * treewalk walk listeners
 *
 * Copyright (c) 2026 Telenor Norge AS
 *
 * This library is free software; you can redistribute it and/or
 * modify it under the terms of the GNU Lesser General Public
 * License as published by the Free Software Foundation; either
 * version 2.1 of the License, or (at your option) any later version.
 *
 * This library is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public
 * License along with this library; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA
 * 02110-1301  USA
 */

package walk

import (
	"sync"
)

// Listener receives the events of a walk. Both methods are called on
// the session's callback goroutine, one at a time and in order.
//
// Next gets every non-terminal page and decides whether the walk goes
// on. Returning false ends the walk quietly: Finished is NOT called
// afterwards. Finished is called exactly once for a walk that runs to
// its end, with the terminal event.
type Listener interface {
	Next(ev *TreeEvent) bool
	Finished(ev *TreeEvent)
}

// ListenerFuncs adapts a pair of functions to a Listener. A nil OnNext
// continues the walk, a nil OnFinished does nothing.
type ListenerFuncs struct {
	OnNext     func(ev *TreeEvent) bool
	OnFinished func(ev *TreeEvent)
}

func (l ListenerFuncs) Next(ev *TreeEvent) bool {
	if l.OnNext == nil {
		return true
	}
	return l.OnNext(ev)
}

func (l ListenerFuncs) Finished(ev *TreeEvent) {
	if l.OnFinished != nil {
		l.OnFinished(ev)
	}
}

// collector is the listener behind the blocking WalkSubtree. It keeps
// every event and closes done when the terminal one arrives.
type collector struct {
	mu        sync.Mutex
	events    []*TreeEvent
	abandoned bool
	done      chan struct{}
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) Next(ev *TreeEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *collector) Finished(ev *TreeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		return
	}
	c.events = append(c.events, ev)
	close(c.done)
}

// abandon stops the walk at its next page and returns what was
// collected so far.
func (c *collector) abandon() []*TreeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandoned = true
	return c.snapshot()
}

func (c *collector) collected() []*TreeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *collector) snapshot() []*TreeEvent {
	ret := make([]*TreeEvent, len(c.events))
	copy(ret, c.events)
	return ret
}
