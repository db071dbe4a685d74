/*
 * treewalk walk events
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
	"errors"
	"fmt"

	"github.com/gosnmp/gosnmp"
)

// Status is the outcome carried by a TreeEvent.
type Status int

const (
	StatusOK             Status = iota // a page, or normal end of the subtree
	StatusTimeout                      // no response before the session gave up
	StatusTransportError               // the request could not be sent/received
	StatusProtocolError                // non-zero error-status in the response
	StatusReport                       // the agent answered with a REPORT PDU
	StatusWrongOrder                   // the agent went backwards in the OID space
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusTransportError:
		return "transport error"
	case StatusProtocolError:
		return "protocol error"
	case StatusReport:
		return "report"
	case StatusWrongOrder:
		return "wrong order"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

var (
	ErrTimeout    = errors.New("request timed out")
	ErrWrongOrder = errors.New("agent returned OIDs out of lexicographic order")
)

// TransportError wraps an I/O failure while sending or receiving.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a response with a non-zero error-status. We don't
// interpret it, that's the caller's business.
type ProtocolError struct {
	Status gosnmp.SNMPError
	Index  uint8
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("agent returned error-status %v (index %d)", e.Status, e.Index)
}

// ReportError is a REPORT PDU received instead of a response.
type ReportError struct {
	Report *gosnmp.SnmpPacket
}

func (e *ReportError) Error() string {
	if e.Report != nil && len(e.Report.Variables) > 0 {
		return fmt.Sprintf("agent returned a report: %s", e.Report.Variables[0].Name)
	}
	return "agent returned a report"
}

// TreeEvent is one unit of walk progress. Non-terminal events always
// carry a page of bindings with Status OK. The terminal event either
// carries the last (possibly empty) page with Status OK, or an error
// status with Cause set.
type TreeEvent struct {
	Status   Status
	Bindings []gosnmp.SnmpPDU
	Report   *gosnmp.SnmpPacket // set for StatusReport
	Cause    error
	Handle   any
	Terminal bool
}

// IsError is true for every status except OK.
func (e *TreeEvent) IsError() bool {
	return e.Status != StatusOK
}

// Err returns the error carried by the event, nil for OK events.
func (e *TreeEvent) Err() error {
	if !e.IsError() {
		return nil
	}
	if e.Cause != nil {
		return e.Cause
	}
	return fmt.Errorf("walk failed: %s", e.Status)
}

func (e *TreeEvent) String() string {
	if e.IsError() {
		return fmt.Sprintf("TreeEvent{%s: %v}", e.Status, e.Err())
	}
	return fmt.Sprintf("TreeEvent{%d bindings, terminal: %v}", len(e.Bindings), e.Terminal)
}
