/*
 * treewalk subtree walker
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

/*
Package walk retrieves a MIB subtree from an agent.

A walk is a sequence of GETNEXT (SNMPv1) or GETBULK (v2c/v3) rounds. Each
response is checked binding by binding: the walk ends when the agent
leaves the subtree or returns an exception value (endOfMibView and
friends), and it fails if the agent stops moving forward, since a
misbehaving agent could otherwise keep us going in circles forever.
GETBULK happily returns bindings from beyond the subtree, so that check
has to happen here.

There is exactly one request in flight per walk. Walks started on the
same Walker are independent of each other and can run concurrently.

Progress is reported to a Listener as TreeEvents. WalkSubtree wraps that
in a blocking call that returns every event at once.
*/
package walk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/smi"
)

// DefaultMaxRepetitions is the GETBULK repetition count of a new Walker.
const DefaultMaxRepetitions = 10

// Walker starts subtree walks over a Session. It is safe for concurrent
// use.
type Walker struct {
	session Session

	mu                       sync.RWMutex
	maxRepetitions           int
	ignoreLexicographicOrder bool

	walks atomic.Uint64
}

// New returns a Walker sending through sess.
func New(sess Session) *Walker {
	return &Walker{
		session:        sess,
		maxRepetitions: DefaultMaxRepetitions,
	}
}

// SetMaxRepetitions sets the repetition count of GETBULK requests for
// walks started after the call. It has no effect on SNMPv1 walks, where
// GETNEXT implicitly fetches one binding per round.
func (w *Walker) SetMaxRepetitions(n int) error {
	if n < 1 {
		return fmt.Errorf("max repetitions must be positive, got %d", n)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxRepetitions = n
	return nil
}

func (w *Walker) MaxRepetitions() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.maxRepetitions
}

// SetIgnoreLexicographicOrder turns off the ordering check for walks
// started after the call. Out of order bindings are then accepted as
// they are, which some broken agents need.
func (w *Walker) SetIgnoreLexicographicOrder(ignore bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignoreLexicographicOrder = ignore
}

func (w *Walker) IgnoreLexicographicOrder() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ignoreLexicographicOrder
}

// WalkSubtree walks the subtree below root and blocks until the walk is
// over. The returned events are the pages in order followed by the
// terminal event, which may be an error: inspect it to tell success
// from failure.
//
// The error return is only used when ctx ends first. The walk is then
// abandoned at its next page and the events collected so far are
// returned along with ctx.Err().
func (w *Walker) WalkSubtree(ctx context.Context, target *Target, root smi.OID) ([]*TreeEvent, error) {
	c := newCollector()
	w.WalkSubtreeAsync(target, root, nil, c)
	select {
	case <-c.done:
		return c.collected(), nil
	case <-ctx.Done():
		select {
		case <-c.done:
			return c.collected(), nil
		default:
		}
		return c.abandon(), ctx.Err()
	}
}

// WalkSubtreeAsync starts a walk of the subtree below root and returns
// immediately. Events go to l on whatever goroutine the session uses to
// deliver responses. handle is passed through untouched in every event.
func (w *Walker) WalkSubtreeAsync(target *Target, root smi.OID, handle any, l Listener) {
	w.mu.RLock()
	reps := w.maxRepetitions
	ignore := w.ignoreLexicographicOrder
	w.mu.RUnlock()

	t := &treeRequest{
		walker:      w,
		id:          w.walks.Add(1),
		listener:    l,
		handle:      handle,
		target:      target,
		root:        append(smi.OID(nil), root...),
		frontier:    append(smi.OID(nil), root...),
		ignoreOrder: ignore,
	}
	if target == nil {
		t.finish(&TreeEvent{Status: StatusTransportError, Cause: &TransportError{Err: errors.New("no target")}})
		return
	}
	if len(root) == 0 {
		t.finish(&TreeEvent{Status: StatusTransportError, Cause: &TransportError{Err: errors.New("empty root oid")}})
		return
	}
	t.request = newRequest(target, root, reps)
	treewalk.Debugf("walk %d: %s from %s, %s", t.id, target, root, requestKind(t.request))
	t.send()
}

func newRequest(target *Target, start smi.OID, reps int) *Request {
	req := &Request{
		Variables: []gosnmp.SnmpPDU{{Name: start.Dotted(), Type: gosnmp.Null}},
	}
	if target.Version == gosnmp.Version1 {
		req.Type = gosnmp.GetNextRequest
	} else {
		req.Type = gosnmp.GetBulkRequest
		req.MaxRepetitions = uint32(reps)
	}
	return req
}

func requestKind(r *Request) string {
	if r.Type == gosnmp.GetBulkRequest {
		return fmt.Sprintf("GETBULK x%d", r.MaxRepetitions)
	}
	return "GETNEXT"
}

// treeRequest is the state of one walk. It's owned by the walk alone
// and only touched from one goroutine at a time, since there is never
// more than one request outstanding.
type treeRequest struct {
	walker      *Walker
	id          uint64
	listener    Listener
	handle      any
	target      *Target
	request     *Request
	root        smi.OID
	frontier    smi.OID // last accepted OID, or root before the first page
	ignoreOrder bool
	rounds      int
	accepted    int
}

func (t *treeRequest) send() {
	t.rounds++
	err := t.walker.session.Send(t.request, t.target, t.handle, t)
	if err != nil {
		t.finish(&TreeEvent{Status: StatusTransportError, Cause: &TransportError{Err: err}})
	}
}

func (t *treeRequest) finish(ev *TreeEvent) {
	ev.Terminal = true
	ev.Handle = t.handle
	if ev.IsError() {
		treewalk.Debugf("walk %d: failed after %d rounds and %d bindings: %v", t.id, t.rounds, t.accepted, ev.Err())
	} else {
		treewalk.Debugf("walk %d: done after %d rounds with %d bindings", t.id, t.rounds, t.accepted+len(ev.Bindings))
	}
	t.listener.Finished(ev)
}

// OnResponse implements ResponseListener. It runs one step of the walk.
func (t *treeRequest) OnResponse(ev ResponseEvent) {
	t.walker.session.Cancel(ev.Request, t)
	if ev.Err != nil {
		t.finish(&TreeEvent{Status: StatusTransportError, Cause: &TransportError{Err: ev.Err}})
		return
	}
	resp := ev.Response
	if resp == nil {
		t.finish(&TreeEvent{Status: StatusTimeout, Cause: ErrTimeout})
		return
	}
	if resp.Error != gosnmp.NoError {
		t.finish(&TreeEvent{Status: StatusProtocolError, Cause: &ProtocolError{Status: resp.Error, Index: resp.ErrorIndex}})
		return
	}
	if resp.PDUType == gosnmp.Report {
		t.finish(&TreeEvent{Status: StatusReport, Report: resp, Cause: &ReportError{Report: resp}})
		return
	}

	page := make([]gosnmp.SnmpPDU, 0, len(resp.Variables))
	last := t.frontier
	finished := len(resp.Variables) == 0
	for _, vb := range resp.Variables {
		oid, err := smi.ParseOID(vb.Name)
		if err != nil || !oid.HasPrefix(t.root) {
			finished = true
			break
		}
		if smi.IsExceptionSyntax(vb.Type) {
			finished = true
			break
		}
		if !t.ignoreOrder && oid.Compare(last) <= 0 {
			treewalk.Debugf("walk %d: %s does not follow %s", t.id, oid, last)
			t.finish(&TreeEvent{Status: StatusWrongOrder, Cause: fmt.Errorf("%w: %s after %s", ErrWrongOrder, oid, last)})
			return
		}
		last = oid
		page = append(page, vb)
	}
	if finished {
		t.finish(&TreeEvent{Status: StatusOK, Bindings: page})
		return
	}

	t.accepted += len(page)
	if !t.listener.Next(&TreeEvent{Status: StatusOK, Bindings: page, Handle: t.handle}) {
		treewalk.Debugf("walk %d: listener stopped after %d bindings", t.id, t.accepted)
		return
	}
	t.frontier = last
	t.request.Variables = []gosnmp.SnmpPDU{{Name: last.Dotted(), Type: gosnmp.Null}}
	t.request.ID = 0
	t.send()
}
