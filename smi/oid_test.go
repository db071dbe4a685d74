package smi

import (
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOID(t *testing.T) {
	o, err := ParseOID(".1.3.6.1.2.1.1.5.0")
	require.NoError(t, err)
	assert.Equal(t, OID{1, 3, 6, 1, 2, 1, 1, 5, 0}, o)
	assert.Equal(t, "1.3.6.1.2.1.1.5.0", o.String())
	assert.Equal(t, ".1.3.6.1.2.1.1.5.0", o.Dotted())

	_, err = ParseOID("")
	assert.Error(t, err)
	_, err = ParseOID(".")
	assert.Error(t, err)
	_, err = ParseOID("1.3.six")
	assert.Error(t, err)
}

func TestOIDCompare(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"1.3.6.1", "1.3.6.1", 0},
		{"1.3.6.1", "1.3.6.1.2", -1},
		{"1.3.6.1.2", "1.3.6.1", 1},
		{"1.3.6.1.9", "1.3.6.1.10", -1},
		{"1.3.6.2", "1.3.6.1.99", 1},
		{"1.3.6.1.2.1.1.1", "1.3.6.1.2.1.1.2", -1},
	}
	for _, tt := range tests {
		a := MustParseOID(tt.a)
		b := MustParseOID(tt.b)
		assert.Equal(t, tt.expected, a.Compare(b), "%s <=> %s", tt.a, tt.b)
		assert.Equal(t, -tt.expected, b.Compare(a), "%s <=> %s", tt.b, tt.a)
	}
}

func TestOIDPrefixes(t *testing.T) {
	root := MustParseOID("1.3.6.1.2.1.1")
	child := MustParseOID("1.3.6.1.2.1.1.5.0")
	sibling := MustParseOID("1.3.6.1.2.1.2.1")

	assert.True(t, child.HasPrefix(root))
	assert.True(t, root.HasPrefix(root))
	assert.False(t, sibling.HasPrefix(root))

	assert.True(t, child.DescendantOf(root))
	assert.False(t, root.DescendantOf(root))
	assert.False(t, root.DescendantOf(child))

	assert.True(t, root.Related(child))
	assert.True(t, child.Related(root))
	assert.False(t, sibling.Related(child))

	assert.Equal(t, OID{5, 0}, child.Suffix(root))
	assert.Nil(t, sibling.Suffix(root))
}

func TestOIDAppendDoesNotAlias(t *testing.T) {
	base := make(OID, 3, 10)
	copy(base, OID{1, 3, 6})
	a := base.Append(1)
	b := base.Append(2)
	assert.Equal(t, OID{1, 3, 6, 1}, a)
	assert.Equal(t, OID{1, 3, 6, 2}, b)
}

func TestIsExceptionSyntax(t *testing.T) {
	assert.True(t, IsExceptionSyntax(gosnmp.EndOfMibView))
	assert.True(t, IsExceptionSyntax(gosnmp.NoSuchObject))
	assert.True(t, IsExceptionSyntax(gosnmp.NoSuchInstance))
	assert.False(t, IsExceptionSyntax(gosnmp.Null))
	assert.False(t, IsExceptionSyntax(gosnmp.OctetString))
}
