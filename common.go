/*
 * treewalk shared types
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
package treewalk

import (
	"github.com/gosnmp/gosnmp"
)

// Node is a rendered SMI node, e.g.: the result of a lookup. Usually
// handled by the smierte sub-package, but needs to be defined up here to
// avoid circular dependencies
type Node struct {
	Key       string // original input key, kept for posterity
	Name      string
	Numeric   string // numeric OID of the MIB node, no leading dot
	Qualified string // Numeric plus any instance suffix from the input
	Lookedup  bool   // true if Key was symbolic and had to be resolved
}

// OID returns the most specific numeric form of the node.
func (n Node) OID() string {
	if n.Qualified != "" {
		return n.Qualified
	}
	return n.Numeric
}

// Walker is an interface for walking one or more subtrees without having
// to worry about the underlying session or target. walk.Bound implements
// it. The callback is called once per binding, in increasing OID order
// within each node, and a callback error aborts the walk.
type Walker interface {
	BulkWalk(nodes []Node, cb func(pdu gosnmp.SnmpPDU) error) error
}
