/*
 * treewalk alert traps
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

// Package trap renders alert records as SNMP notifications and sends
// them to the configured receivers.
package trap

import (
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/alert"
	"github.com/telenornms/treewalk/session"
	"github.com/telenornms/treewalk/smi"
)

var (
	sysUpTime   = smi.MustParseOID("1.3.6.1.2.1.1.3.0")
	snmpTrapOID = smi.MustParseOID("1.3.6.1.6.3.1.1.4.1.0")
)

// engineID is our authoritative engine ID for SNMPv3 traps: enterprise
// 40684, text format, "treewalk".
const engineID = "\x80\x00\x9e\xec\x04treewalk"

// SysUptime converts an uptime in milliseconds to TimeTicks. Uptimes
// that don't fit in 32 bits are truncated first, and a negative result
// is flipped, so a long running process never reports zero by overflow.
func SysUptime(ms int64) uint32 {
	up := int64(int32(ms))
	if up < 0 {
		up = -up
	}
	return uint32(up / 10)
}

// Notification is the OID of the notification for a mib version:
// enterprise.0.<version>.
func Notification(enterprise smi.OID, mibVersion int) smi.OID {
	if mibVersion < 1 {
		mibVersion = 1
	}
	return enterprise.Append(0, uint32(mibVersion))
}

// Render builds the trap for a record. Every record field becomes an
// OctetString under the enterprise OID, sub-indexed by its position. For
// SNMPv1 the notification goes in the trap header, otherwise sysUpTime.0
// and snmpTrapOID.0 lead the bindings.
func Render(rec alert.Record, cfg treewalk.TrapConfig, version gosnmp.SnmpVersion, uptime uint32) (gosnmp.SnmpTrap, error) {
	enterprise, err := smi.ParseOID(cfg.Enterprise)
	if err != nil {
		return gosnmp.SnmpTrap{}, fmt.Errorf("invalid enterprise oid: %w", err)
	}
	fields := rec.Fields()
	t := gosnmp.SnmpTrap{IsInform: cfg.Inform}
	if version == gosnmp.Version1 {
		if cfg.Inform {
			return t, fmt.Errorf("informs need SNMPv2c or SNMPv3")
		}
		t.Enterprise = enterprise.Dotted()
		t.AgentAddress = cfg.SenderHost
		t.GenericTrap = 6
		t.SpecificTrap = cfg.MibVersion
		if t.SpecificTrap < 1 {
			t.SpecificTrap = 1
		}
		t.Timestamp = uint(uptime)
	} else {
		t.Variables = append(t.Variables,
			gosnmp.SnmpPDU{Name: sysUpTime.Dotted(), Type: gosnmp.TimeTicks, Value: uptime},
			gosnmp.SnmpPDU{Name: snmpTrapOID.Dotted(), Type: gosnmp.ObjectIdentifier, Value: Notification(enterprise, cfg.MibVersion).Dotted()},
		)
	}
	for i, f := range fields {
		idx := smi.Integer32(i + 1).ToSubIndex()
		t.Variables = append(t.Variables, gosnmp.SnmpPDU{
			Name:  enterprise.Append(idx...).Dotted(),
			Type:  gosnmp.OctetString,
			Value: f.Value,
		})
	}
	return t, nil
}

// Sender sends records to every receiver. It is safe for concurrent use
// as long as nobody changes its fields.
type Sender struct {
	Config    treewalk.TrapConfig
	Receivers []treewalk.Receiver
	Started   time.Time // sysUpTime counts from here
	Timeout   time.Duration
	Retries   int

	version gosnmp.SnmpVersion
	send    func(gs *gosnmp.GoSNMP, t gosnmp.SnmpTrap) error
}

// NewSender validates the configuration and returns a sender whose
// uptime starts now.
func NewSender(cfg treewalk.TrapConfig, receivers []treewalk.Receiver) (*Sender, error) {
	v, err := session.ParseVersion(cfg.SnmpVersion)
	if err != nil {
		return nil, err
	}
	if _, err := smi.ParseOID(cfg.Enterprise); err != nil {
		return nil, fmt.Errorf("invalid enterprise oid: %w", err)
	}
	if len(receivers) == 0 {
		return nil, fmt.Errorf("no trap receivers configured")
	}
	return &Sender{
		Config:    cfg,
		Receivers: receivers,
		Started:   time.Now(),
		Timeout:   treewalk.Config.Timeout,
		Retries:   treewalk.Config.Retries,
		version:   v,
		send:      sendTrap,
	}, nil
}

func sendTrap(gs *gosnmp.GoSNMP, t gosnmp.SnmpTrap) error {
	if err := gs.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer gs.Conn.Close()
	_, err := gs.SendTrap(t)
	return err
}

// client builds the gosnmp client for one receiver.
func (s *Sender) client(r treewalk.Receiver) (*gosnmp.GoSNMP, error) {
	gs := &gosnmp.GoSNMP{
		Target:    r.Host,
		Port:      r.Port,
		Transport: "udp",
		Version:   s.version,
		Community: s.Config.Community,
		Timeout:   s.Timeout,
		Retries:   s.Retries,
		MaxOids:   gosnmp.MaxOids,
	}
	if gs.Port == 0 {
		gs.Port = 162
	}
	if s.version == gosnmp.Version3 {
		flags, usp, err := session.Security(s.Config.User)
		if err != nil {
			return nil, fmt.Errorf("snmpv3 trap user: %w", err)
		}
		if !s.Config.Inform {
			usp.AuthoritativeEngineID = engineID
		}
		gs.SecurityModel = gosnmp.UserSecurityModel
		gs.MsgFlags = flags
		gs.SecurityParameters = usp
	}
	return gs, nil
}

// Send renders the record once and sends it to every receiver. A failing
// receiver doesn't stop the others; all failures are returned together.
func (s *Sender) Send(rec alert.Record) error {
	t, err := Render(rec, s.Config, s.version, SysUptime(time.Since(s.Started).Milliseconds()))
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range s.Receivers {
		gs, err := s.client(r)
		if err == nil {
			err = s.send(gs, t)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("trap to %s:%d: %w", r.Host, r.Port, err))
			continue
		}
		treewalk.Debugf("sent %d bindings to %s:%d (inform: %v)", len(t.Variables), r.Host, r.Port, t.IsInform)
	}
	return errors.Join(errs...)
}
