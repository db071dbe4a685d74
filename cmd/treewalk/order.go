/*
 * treewalk orders
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

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Order is the central object for kicking treewalk into action. An order
// always operates on a target (a host/switch, either IP address or
// hostname) and using a mode. Depending on the mode, treewalk either
// walks the subtrees below the given OIDs, builds an index map or
// clears the map cache.
//
// OIDs can be numeric (.1.3.6.1.2.1.2.2.1.2) or symbolic (ifDescr,
// IF-MIB::ifDescr, sysName.0).
//
// If Key is provided, a map is built by walking that column, and table
// indexes in the result are replaced by the mapped value. ifName is
// the typical key.
//
// Community and Version override the configured defaults. ID is not
// used by treewalk at all, but is included in the result to let a
// caller match the order to the result.
//
// Result determines how the result is formatted. By default it follows
// the input: numeric OIDs in gives numeric OIDs out, symbolic names in
// gives names out. "OID" and "Resolve" force either.
type Order struct {
	Target    string   // Host/target
	Oids      []string // Subtree roots, also accepts logical names (e.g.: ifName)
	Key       string   // Map key to use for naming elements
	Mode      Mode     // What mode to use
	Community string   `json:",omitempty"` // blank == use the default
	Version   string   `json:",omitempty"` // 1, 2c or 3, blank == 2c
	ID        string   `json:",omitempty"`
	Result    ResolveM // Auto (default) = resolve based on input, OID = leave OIDs unresolved, Resolve = try to resolve
	delivery  amqp.Delivery
}

func (o Order) String() string {
	return o.Target
}

type ResolveM int

const (
	Auto ResolveM = iota
	OID
	Resolve
)

func (r *ResolveM) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "auto", "":
		*r = Auto
	case "oid":
		*r = OID
	case "resolve":
		*r = Resolve
	default:
		return fmt.Errorf("invalid resolver mode: %s", s)
	}
	return nil
}

func (r ResolveM) MarshalJSON() ([]byte, error) {
	switch r {
	case Auto:
		return []byte(`"Auto"`), nil
	case OID:
		return []byte(`"OID"`), nil
	case Resolve:
		return []byte(`"Resolve"`), nil
	}
	return nil, fmt.Errorf("invalid resolve mode %d", r)
}

type Mode int

const (
	Walk     Mode = iota // Walk the subtrees
	BuildMap             // (Re)build an OMap
	ClearMap             // Clear the OMap cache
)

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "walk", "":
		*m = Walk
	case "buildmap":
		*m = BuildMap
	case "clearmap":
		*m = ClearMap
	default:
		return fmt.Errorf("invalid mode: %s", s)
	}
	return nil
}

func (m Mode) MarshalJSON() ([]byte, error) {
	switch m {
	case Walk:
		return []byte(`"Walk"`), nil
	case BuildMap:
		return []byte(`"BuildMap"`), nil
	case ClearMap:
		return []byte(`"ClearMap"`), nil
	}
	return nil, fmt.Errorf("invalid mode %d", m)
}
