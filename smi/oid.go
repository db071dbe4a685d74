/*
 * treewalk OID primitive
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
Package smi holds the small SMI primitives the walker and the trap code
share: numeric OIDs with lexicographic ordering, and the Integer32 codec.

gosnmp hands us OIDs as dotted strings, which is fine for printing but
useless for ordering: "1.3.6.1.10" sorts before "1.3.6.1.9" as a string.
So anything that compares OIDs parses them into an OID first.
*/
package smi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
	"github.com/sleepinggenius2/gosmi/types"
)

// OID is a numeric object identifier. Treat it as immutable: methods
// that produce a new OID never share the backing array with the
// receiver.
type OID []uint32

// ParseOID parses a dotted OID, with or without the leading dot gosnmp
// likes to use.
func ParseOID(s string) (OID, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), ".")
	if trimmed == "" {
		return nil, fmt.Errorf("empty oid")
	}
	o, err := types.OidFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid oid %q: %w", s, err)
	}
	ret := make(OID, len(o))
	for i, sub := range o {
		ret[i] = uint32(sub)
	}
	return ret, nil
}

// MustParseOID is ParseOID for constants. It panics on malformed input.
func MustParseOID(s string) OID {
	o, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return o
}

// Compare orders OIDs lexicographically by component. When one OID is a
// strict prefix of the other, the shorter one is smaller. Returns -1, 0
// or 1.
func (o OID) Compare(p OID) int {
	n := len(o)
	if len(p) < n {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		if o[i] < p[i] {
			return -1
		}
		if o[i] > p[i] {
			return 1
		}
	}
	switch {
	case len(o) < len(p):
		return -1
	case len(o) > len(p):
		return 1
	}
	return 0
}

func (o OID) Equal(p OID) bool {
	return o.Compare(p) == 0
}

// HasPrefix is true if root is a prefix of o, including o == root.
func (o OID) HasPrefix(root OID) bool {
	if len(o) < len(root) {
		return false
	}
	for i := range root {
		if o[i] != root[i] {
			return false
		}
	}
	return true
}

// DescendantOf is true if root is a strict prefix of o.
func (o OID) DescendantOf(root OID) bool {
	return len(o) > len(root) && o.HasPrefix(root)
}

// Related is true if either OID is a prefix of the other.
func (o OID) Related(p OID) bool {
	return o.HasPrefix(p) || p.HasPrefix(o)
}

// Append returns a new OID with sub appended.
func (o OID) Append(sub ...uint32) OID {
	ret := make(OID, 0, len(o)+len(sub))
	ret = append(ret, o...)
	return append(ret, sub...)
}

// Suffix returns the components of o below root, or nil if o is not
// under root.
func (o OID) Suffix(root OID) OID {
	if !o.DescendantOf(root) {
		return nil
	}
	ret := make(OID, len(o)-len(root))
	copy(ret, o[len(root):])
	return ret
}

// String renders the OID dotted, without a leading dot.
func (o OID) String() string {
	var sb strings.Builder
	for i, sub := range o {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatUint(uint64(sub), 10))
	}
	return sb.String()
}

// Dotted renders the OID with a leading dot, the way gosnmp sends and
// returns names.
func (o OID) Dotted() string {
	return "." + o.String()
}

// IsExceptionSyntax is true for the value types an agent uses to say
// there is no data, rather than returning a value.
func IsExceptionSyntax(t gosnmp.Asn1BER) bool {
	switch t {
	case gosnmp.EndOfMibView, gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
		return true
	}
	return false
}
