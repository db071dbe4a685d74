/*
 * treewalk walk transport contract
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
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/smi"
)

// Target identifies the agent a walk runs against. The walker only
// reads it; the caller must not change it while a walk is running.
type Target struct {
	Address   string
	Port      uint16
	Version   gosnmp.SnmpVersion
	Community string
	Timeout   time.Duration
	Retries   int
	User      treewalk.UserConfig // SNMPv3 only
}

func (t *Target) String() string {
	return fmt.Sprintf("%s:%d", t.Address, t.Port)
}

// Request is a single GETNEXT or GETBULK. Variables holds exactly one
// seed binding with a Null value. An ID of 0 asks the session to assign
// a fresh one.
type Request struct {
	Type           gosnmp.PDUType
	ID             smi.Integer32
	MaxRepetitions uint32
	Variables      []gosnmp.SnmpPDU
}

// Seed returns the name of the seed binding, or "" if there is none.
func (r *Request) Seed() string {
	if len(r.Variables) == 0 {
		return ""
	}
	return r.Variables[0].Name
}

// ResponseEvent is what a Session hands back for a Request. A nil
// Response with a nil Err means the request timed out. Err is set for
// I/O failures that happened after Send returned.
type ResponseEvent struct {
	Request  *Request
	Response *gosnmp.SnmpPacket
	Err      error
	Handle   any
}

// ResponseListener receives the outcome of a sent request.
type ResponseListener interface {
	OnResponse(ev ResponseEvent)
}

// Session is the transport the walker sends requests through. It must
// allow outstanding requests from several walks at once, and it owns
// timeouts and retries: the walker never retries anything itself.
//
// Send may fail synchronously, in which case the listener is never
// called for that request. Otherwise OnResponse is called exactly once,
// unless the request is cancelled first. Cancel releases whatever the
// session keeps for an outstanding request and is safe to call after
// the response has been delivered.
type Session interface {
	Send(req *Request, target *Target, handle any, cb ResponseListener) error
	Cancel(req *Request, cb ResponseListener)
}
