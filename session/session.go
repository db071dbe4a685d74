/*
 * treewalk gosnmp session
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
Package session is the gosnmp-backed transport for the walker.

A gosnmp connection does one exchange at a time, so the session keeps one
connection per target and serializes exchanges on it. Walks against
different targets run in parallel; walks against the same target take
turns, one request at a time.

gosnmp does its own timeouts and retries. When it gives up, the walker
gets a nil response, which it reports as a timeout.
*/
package session

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/smi"
	"github.com/telenornms/treewalk/walk"
)

type conn struct {
	mu sync.Mutex
	gs *gosnmp.GoSNMP
}

// Session implements walk.Session.
type Session struct {
	Community string // used for targets without a community of their own

	mu      sync.Mutex
	conns   map[string]*conn
	pending map[*walk.Request]walk.ResponseListener
	lastID  smi.Integer32

	connect  func(gs *gosnmp.GoSNMP) error
	exchange func(gs *gosnmp.GoSNMP, req *walk.Request) (*gosnmp.SnmpPacket, error)
}

var _ walk.Session = (*Session)(nil)

// NewSession returns a session with no open connections. They are
// opened on first use.
func NewSession(community string) *Session {
	return &Session{
		Community: community,
		conns:     make(map[string]*conn),
		pending:   make(map[*walk.Request]walk.ResponseListener),
		connect:   func(gs *gosnmp.GoSNMP) error { return gs.Connect() },
		exchange:  request,
	}
}

func request(gs *gosnmp.GoSNMP, req *walk.Request) (*gosnmp.SnmpPacket, error) {
	oids := []string{req.Seed()}
	switch req.Type {
	case gosnmp.GetNextRequest:
		return gs.GetNext(oids)
	case gosnmp.GetBulkRequest:
		return gs.GetBulk(oids, 0, req.MaxRepetitions)
	}
	return nil, fmt.Errorf("unsupported pdu type %v", req.Type)
}

// Send implements walk.Session. Errors opening the connection are
// returned right away; everything after that is delivered to cb.
func (s *Session) Send(req *walk.Request, target *walk.Target, handle any, cb walk.ResponseListener) error {
	if req == nil || len(req.Variables) != 1 {
		return fmt.Errorf("request must carry exactly one binding")
	}
	if req.Type != gosnmp.GetNextRequest && req.Type != gosnmp.GetBulkRequest {
		return fmt.Errorf("unsupported pdu type %v", req.Type)
	}
	c, err := s.conn(target)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if req.ID == 0 {
		req.ID = s.nextID()
	}
	s.pending[req] = cb
	s.mu.Unlock()

	go func() {
		c.mu.Lock()
		st := time.Now()
		resp, err := s.exchange(c.gs, req)
		c.mu.Unlock()
		if err != nil && isTimeout(err) {
			treewalk.Debugf("request %s to %s timed out after %s: %v", req.ID, target, time.Since(st).Round(time.Millisecond), err)
			err = nil
			resp = nil
		}
		s.mu.Lock()
		_, ok := s.pending[req]
		s.mu.Unlock()
		if !ok {
			treewalk.Debugf("request %s to %s was cancelled, dropping response", req.ID, target)
			return
		}
		cb.OnResponse(walk.ResponseEvent{Request: req, Response: resp, Err: err, Handle: handle})
	}()
	return nil
}

// Cancel implements walk.Session.
func (s *Session) Cancel(req *walk.Request, cb walk.ResponseListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, req)
}

// Pending returns the number of requests that are sent but neither
// answered nor cancelled.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// nextID hands out request IDs, skipping 0 which means "unassigned".
// Must be called with s.mu held.
func (s *Session) nextID() smi.Integer32 {
	s.lastID++
	if s.lastID == 0 {
		s.lastID++
	}
	return s.lastID
}

func (s *Session) conn(target *walk.Target) (*conn, error) {
	if target == nil {
		return nil, fmt.Errorf("no target")
	}
	key := connKey(target)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[key]; ok {
		return c, nil
	}
	gs, err := NewGoSNMP(target, s.Community)
	if err != nil {
		return nil, err
	}
	if err := s.connect(gs); err != nil {
		return nil, fmt.Errorf("snmp connect to %s: %w", target, err)
	}
	c := &conn{gs: gs}
	s.conns[key] = c
	return c, nil
}

func connKey(t *walk.Target) string {
	return fmt.Sprintf("%s|%d|%d|%s|%s", t.Address, t.Port, t.Version, t.Community, t.User.Username)
}

// Close closes every connection. Outstanding requests fail on their
// own.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.conns {
		if c.gs.Conn != nil {
			c.gs.Conn.Close()
		}
		delete(s.conns, k)
	}
}

// isTimeout tells a gosnmp "gave up waiting" apart from real I/O
// errors. gosnmp reports it as a plain formatted error, so we have to
// look at the text.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "timeout")
}
