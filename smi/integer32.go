/*
 * treewalk Integer32
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

package smi

import (
	"fmt"
	"strconv"

	"github.com/gosnmp/gosnmp"
)

// Integer32 is the SMI signed 32-bit integer. It is used for request IDs
// and as a single-component table sub-index.
type Integer32 int32

// FormatError is returned when decoding meets something that isn't a
// well-formed Integer32.
type FormatError struct {
	Tag gosnmp.Asn1BER
	Msg string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("integer32 format error (tag 0x%02x): %s", byte(e.Tag), e.Msg)
}

// contentLength is the minimal number of two's-complement bytes that
// hold v without losing the sign.
func (v Integer32) contentLength() int {
	switch {
	case v < 0x80 && v >= -0x80:
		return 1
	case v < 0x8000 && v >= -0x8000:
		return 2
	case v < 0x800000 && v >= -0x800000:
		return 3
	}
	return 4
}

// Encode returns the minimal big-endian two's-complement content bytes
// of v, without tag or length.
func (v Integer32) Encode() []byte {
	n := v.contentLength()
	b := make([]byte, n)
	x := uint32(v)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(x)
		x >>= 8
	}
	return b
}

// BERLength is the length of EncodeBER's output: tag, length, content.
func (v Integer32) BERLength() int {
	return 2 + v.contentLength()
}

// EncodeBER returns the full INTEGER TLV.
func (v Integer32) EncodeBER() []byte {
	content := v.Encode()
	b := make([]byte, 0, 2+len(content))
	b = append(b, byte(gosnmp.Integer), byte(len(content)))
	return append(b, content...)
}

// DecodeInteger32 decodes content bytes that were declared with the
// given tag. Anything but an INTEGER tag is refused, as is content that
// is empty or wider than 32 bits.
func DecodeInteger32(b []byte, tag gosnmp.Asn1BER) (Integer32, error) {
	if tag != gosnmp.Integer {
		return 0, &FormatError{Tag: tag, Msg: "wrong type, expected INTEGER"}
	}
	if len(b) == 0 {
		return 0, &FormatError{Tag: tag, Msg: "empty content"}
	}
	if len(b) > 4 {
		return 0, &FormatError{Tag: tag, Msg: fmt.Sprintf("content length %d exceeds 4 bytes", len(b))}
	}
	var x int32
	if b[0]&0x80 != 0 {
		x = -1
	}
	for _, c := range b {
		x = x<<8 | int32(c)
	}
	return Integer32(x), nil
}

// DecodeInteger32BER decodes a full TLV from the start of b and returns
// the value and the number of bytes consumed.
func DecodeInteger32BER(b []byte) (Integer32, int, error) {
	if len(b) < 2 {
		return 0, 0, &FormatError{Msg: "truncated header"}
	}
	tag := gosnmp.Asn1BER(b[0])
	length, lenBytes, err := parseLength(b[1:])
	if err != nil {
		return 0, 0, &FormatError{Tag: tag, Msg: err.Error()}
	}
	start := 1 + lenBytes
	if start+length > len(b) {
		return 0, 0, &FormatError{Tag: tag, Msg: fmt.Sprintf("need %d content bytes, have %d", length, len(b)-start)}
	}
	v, err := DecodeInteger32(b[start:start+length], tag)
	if err != nil {
		return 0, 0, err
	}
	return v, start + length, nil
}

// parseLength reads a BER definite length, short or long form.
func parseLength(b []byte) (int, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("missing length")
	}
	if b[0] < 0x80 {
		return int(b[0]), 1, nil
	}
	n := int(b[0] & 0x7f)
	if n == 0 {
		return 0, 0, fmt.Errorf("indefinite length not supported")
	}
	if n > 4 || 1+n > len(b) {
		return 0, 0, fmt.Errorf("bad long-form length of %d bytes", n)
	}
	length := 0
	for _, c := range b[1 : 1+n] {
		length = length<<8 | int(c)
	}
	return length, 1 + n, nil
}

// ToSubIndex renders v as a single-component OID. The component carries
// the 32-bit pattern of v, so negative values survive the round trip.
func (v Integer32) ToSubIndex() OID {
	return OID{uint32(v)}
}

// Integer32FromSubIndex is the inverse of ToSubIndex. Only the first
// component is used.
func Integer32FromSubIndex(o OID) (Integer32, error) {
	if len(o) == 0 {
		return 0, &FormatError{Tag: gosnmp.ObjectIdentifier, Msg: "empty sub-index"}
	}
	return Integer32(int32(o[0])), nil
}

// ParseInteger32 parses decimal text.
func ParseInteger32(s string) (Integer32, error) {
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing integer32: %w", err)
	}
	return Integer32(i), nil
}

// Compare returns -1, 0 or 1.
func (v Integer32) Compare(o Integer32) int {
	switch {
	case v < o:
		return -1
	case v > o:
		return 1
	}
	return 0
}

func (v Integer32) Equal(o Integer32) bool {
	return v == o
}

func (v Integer32) String() string {
	return strconv.FormatInt(int64(v), 10)
}
