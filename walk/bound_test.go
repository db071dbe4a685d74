package walk

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/smi"
)

func TestEach(t *testing.T) {
	a := testAgent()
	w := New(&fakeSession{respond: a.respond})
	require.NoError(t, w.SetMaxRepetitions(4))

	var names []string
	err := w.Each(context.Background(), v2c, smi.MustParseOID("1.3.6.1.2.1.1.9"), func(pdu gosnmp.SnmpPDU) error {
		names = append(names, pdu.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{".1.3.6.1.2.1.1.9.1.2.1", ".1.3.6.1.2.1.1.9.1.2.2", ".1.3.6.1.2.1.1.9.1.2.10"}, names)
}

func TestEachCallbackError(t *testing.T) {
	a := testAgent()
	sess := &fakeSession{respond: a.respond}
	w := New(sess)
	require.NoError(t, w.SetMaxRepetitions(2))

	stop := fmt.Errorf("enough")
	seen := 0
	err := w.Each(context.Background(), v2c, system, func(pdu gosnmp.SnmpPDU) error {
		seen++
		if seen == 3 {
			return stop
		}
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, stop))
	assert.Equal(t, 3, seen)
	assert.Len(t, sess.sent(), 2)
}

func TestEachTerminalError(t *testing.T) {
	w := New(&fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		return nil, nil
	}})
	err := w.Each(context.Background(), v2c, system, func(pdu gosnmp.SnmpPDU) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestBoundBulkWalk(t *testing.T) {
	a := testAgent()
	b := &Bound{Walker: New(&fakeSession{respond: a.respond}), Target: v1}

	var names []string
	err := b.BulkWalk([]treewalk.Node{
		{Key: "sysORID", Numeric: "1.3.6.1.2.1.1.9"},
		{Key: "ifNumber", Numeric: "1.3.6.1.2.1.2", Qualified: "1.3.6.1.2.1.2.1"},
	}, func(pdu gosnmp.SnmpPDU) error {
		names = append(names, pdu.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		".1.3.6.1.2.1.1.9.1.2.1",
		".1.3.6.1.2.1.1.9.1.2.2",
		".1.3.6.1.2.1.1.9.1.2.10",
		".1.3.6.1.2.1.2.1.0",
	}, names)
}

func TestBoundBulkWalkBadNode(t *testing.T) {
	b := &Bound{Walker: New(&fakeSession{}), Target: v2c}
	err := b.BulkWalk([]treewalk.Node{{Key: "garbage", Numeric: "not.an.oid"}}, func(pdu gosnmp.SnmpPDU) error {
		return nil
	})
	assert.Error(t, err)
}
