package walk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telenornms/treewalk/smi"
)

var (
	system = smi.MustParseOID("1.3.6.1.2.1.1")
	v1     = &Target{Address: "192.0.2.1", Port: 161, Version: gosnmp.Version1, Community: "public"}
	v2c    = &Target{Address: "192.0.2.1", Port: 161, Version: gosnmp.Version2c, Community: "public"}
	v3     = &Target{Address: "192.0.2.1", Port: 161, Version: gosnmp.Version3}
)

func testAgent() *agent {
	return newAgent(
		"1.3.6.1.2.1.1.1.0",
		"1.3.6.1.2.1.1.2.0",
		"1.3.6.1.2.1.1.3.0",
		"1.3.6.1.2.1.1.4.0",
		"1.3.6.1.2.1.1.5.0",
		"1.3.6.1.2.1.1.6.0",
		"1.3.6.1.2.1.1.7.0",
		"1.3.6.1.2.1.1.9.1.2.1",
		"1.3.6.1.2.1.1.9.1.2.10",
		"1.3.6.1.2.1.1.9.1.2.2",
		"1.3.6.1.2.1.2.1.0",
		"1.3.6.1.2.1.2.2.1.1.1",
	)
}

func walkAll(t *testing.T, w *Walker, target *Target, root smi.OID) []*TreeEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := w.WalkSubtree(ctx, target, root)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	for i, ev := range events {
		assert.Equal(t, i == len(events)-1, ev.Terminal, "event %d terminal flag", i)
	}
	return events
}

func assertConformant(t *testing.T, events []*TreeEvent, root smi.OID) {
	t.Helper()
	var prev smi.OID
	for _, name := range bindingNames(events) {
		o := smi.MustParseOID(name)
		assert.True(t, o.DescendantOf(root), "%s not below %s", o, root)
		if prev != nil {
			assert.Equal(t, 1, o.Compare(prev), "%s does not follow %s", o, prev)
		}
		prev = o
	}
}

func TestWalkConformantBulk(t *testing.T) {
	a := testAgent()
	sess := &fakeSession{respond: a.respond}
	w := New(sess)
	require.NoError(t, w.SetMaxRepetitions(3))

	events := walkAll(t, w, v2c, system)
	last := events[len(events)-1]
	assert.False(t, last.IsError())
	assertConformant(t, events, system)
	assert.Equal(t, []string{
		".1.3.6.1.2.1.1.1.0",
		".1.3.6.1.2.1.1.2.0",
		".1.3.6.1.2.1.1.3.0",
		".1.3.6.1.2.1.1.4.0",
		".1.3.6.1.2.1.1.5.0",
		".1.3.6.1.2.1.1.6.0",
		".1.3.6.1.2.1.1.7.0",
		".1.3.6.1.2.1.1.9.1.2.1",
		".1.3.6.1.2.1.1.9.1.2.2",
		".1.3.6.1.2.1.1.9.1.2.10",
	}, bindingNames(events))

	reqs := sess.sent()
	assert.Len(t, reqs, 4)
	assert.Equal(t, len(reqs), sess.cancelled(), "every response releases its request")
	assert.Equal(t, ".1.3.6.1.2.1.1", reqs[0].Seed())
	assert.Equal(t, ".1.3.6.1.2.1.1.3.0", reqs[1].Seed())
	assert.Equal(t, ".1.3.6.1.2.1.1.6.0", reqs[2].Seed())
	assert.Equal(t, ".1.3.6.1.2.1.1.9.1.2.2", reqs[3].Seed())
	for _, r := range reqs {
		assert.Equal(t, smi.Integer32(0), r.ID)
		require.Len(t, r.Variables, 1)
		assert.Equal(t, gosnmp.Null, r.Variables[0].Type)
	}
}

func TestWalkConformantGetNext(t *testing.T) {
	a := testAgent()
	sess := &fakeSession{respond: a.respond}
	w := New(sess)

	events := walkAll(t, w, v1, system)
	assertConformant(t, events, system)
	assert.Len(t, bindingNames(events), 10)
	// one page per binding, and a terminal empty page when the agent
	// leaves the subtree
	assert.Len(t, events, 11)
	assert.Empty(t, events[10].Bindings)
	assert.Len(t, sess.sent(), 11)
}

func TestWalkLeavesSubtreeImmediately(t *testing.T) {
	sess := &fakeSession{respond: scripted([]string{".1.3.6.1.2.1.2.1.0", ".1.3.6.1.2.1.2.2.1.1.1"})}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.False(t, events[0].IsError())
	assert.Empty(t, events[0].Bindings)
	assert.Len(t, sess.sent(), 1)
}

func TestWalkStopsAtBoundaryMidPage(t *testing.T) {
	sess := &fakeSession{respond: scripted(
		[]string{".1.3.6.1.2.1.1.1.0", ".1.3.6.1.2.1.1.2.0"},
		[]string{".1.3.6.1.2.1.1.3.0", ".1.3.6.1.2.1.2.1.0", ".1.3.6.1.2.1.1.4.0"},
	)}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 2)
	assert.Equal(t, []string{".1.3.6.1.2.1.1.3.0"}, bindingNames(events[1:]))
	assert.Len(t, sess.sent(), 2)
}

func TestWalkOrderViolation(t *testing.T) {
	pages := [][]string{
		{".1.3.6.1.2.1.1.1", ".1.3.6.1.2.1.1.2"},
		{".1.3.6.1.2.1.1.1"},
	}
	sess := &fakeSession{respond: scripted(pages...)}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 2)
	assert.Len(t, events[0].Bindings, 2)
	last := events[1]
	assert.Equal(t, StatusWrongOrder, last.Status)
	assert.True(t, errors.Is(last.Err(), ErrWrongOrder))
	assert.Len(t, sess.sent(), 2)
}

func TestWalkOrderViolationIgnored(t *testing.T) {
	pages := [][]string{
		{".1.3.6.1.2.1.1.1", ".1.3.6.1.2.1.1.2"},
		{".1.3.6.1.2.1.1.1"},
	}
	sess := &fakeSession{respond: scripted(pages...)}
	w := New(sess)
	w.SetIgnoreLexicographicOrder(true)
	assert.True(t, w.IgnoreLexicographicOrder())

	events := walkAll(t, w, v2c, system)
	for _, ev := range events {
		assert.NotEqual(t, StatusWrongOrder, ev.Status)
		assert.False(t, ev.IsError())
	}
	assert.Equal(t, []string{".1.3.6.1.2.1.1.1", ".1.3.6.1.2.1.1.2", ".1.3.6.1.2.1.1.1"}, bindingNames(events))
	reqs := sess.sent()
	require.Len(t, reqs, 3)
	assert.Equal(t, ".1.3.6.1.2.1.1.1", reqs[2].Seed())
}

func TestWalkRepeatedOIDInOnePage(t *testing.T) {
	sess := &fakeSession{respond: scripted([]string{".1.3.6.1.2.1.1.1.0", ".1.3.6.1.2.1.1.1.0"})}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusWrongOrder, events[0].Status)
}

func TestWalkRootItselfIsOutOfOrder(t *testing.T) {
	sess := &fakeSession{respond: scripted([]string{".1.3.6.1.2.1.1"})}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusWrongOrder, events[0].Status)
}

func TestWalkEndOfMibViewOnly(t *testing.T) {
	sess := &fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		return &gosnmp.SnmpPacket{
			PDUType:   gosnmp.GetResponse,
			Variables: []gosnmp.SnmpPDU{{Name: ".1.3.6.1.2.1.1.1.0", Type: gosnmp.EndOfMibView}},
		}, nil
	}}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusOK, events[0].Status)
	assert.Empty(t, events[0].Bindings)
	assert.Nil(t, events[0].Err())
}

func TestWalkNoSuchObjectEndsWalk(t *testing.T) {
	sess := &fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		return &gosnmp.SnmpPacket{
			PDUType: gosnmp.GetResponse,
			Variables: []gosnmp.SnmpPDU{
				{Name: ".1.3.6.1.2.1.1.1.0", Type: gosnmp.OctetString, Value: []byte("descr")},
				{Name: ".1.3.6.1.2.1.1.2.0", Type: gosnmp.NoSuchObject},
			},
		}, nil
	}}
	w := New(sess)

	events := walkAll(t, w, v1, system)
	require.Len(t, events, 1)
	assert.Equal(t, []string{".1.3.6.1.2.1.1.1.0"}, bindingNames(events))
}

func TestWalkEmptyResponse(t *testing.T) {
	sess := &fakeSession{respond: scripted()}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.False(t, events[0].IsError())
	assert.Empty(t, events[0].Bindings)
}

func TestWalkTimeout(t *testing.T) {
	sess := &fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		return nil, nil
	}}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusTimeout, events[0].Status)
	assert.True(t, errors.Is(events[0].Err(), ErrTimeout))
	assert.Len(t, sess.sent(), 1)
}

func TestWalkSendFailure(t *testing.T) {
	sess := &fakeSession{sendErr: fmt.Errorf("connection refused")}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusTransportError, events[0].Status)
	var te *TransportError
	require.True(t, errors.As(events[0].Err(), &te))
	assert.EqualError(t, te.Err, "connection refused")
}

func TestWalkReceiveFailure(t *testing.T) {
	sess := &fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		return nil, fmt.Errorf("read: connection reset")
	}}
	w := New(sess)

	events := walkAll(t, w, v2c, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusTransportError, events[0].Status)
}

func TestWalkErrorStatus(t *testing.T) {
	sess := &fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		return &gosnmp.SnmpPacket{PDUType: gosnmp.GetResponse, Error: gosnmp.NoSuchName, ErrorIndex: 1}, nil
	}}
	w := New(sess)

	events := walkAll(t, w, v1, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusProtocolError, events[0].Status)
	var pe *ProtocolError
	require.True(t, errors.As(events[0].Err(), &pe))
	assert.Equal(t, gosnmp.NoSuchName, pe.Status)
	assert.Equal(t, uint8(1), pe.Index)
}

func TestWalkReport(t *testing.T) {
	report := &gosnmp.SnmpPacket{
		PDUType:   gosnmp.Report,
		Variables: []gosnmp.SnmpPDU{{Name: ".1.3.6.1.6.3.15.1.1.4.0", Type: gosnmp.Counter32, Value: uint(1)}},
	}
	sess := &fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		return report, nil
	}}
	w := New(sess)

	events := walkAll(t, w, v3, system)
	require.Len(t, events, 1)
	assert.Equal(t, StatusReport, events[0].Status)
	assert.Same(t, report, events[0].Report)
}

func TestMaxRepetitions(t *testing.T) {
	w := New(&fakeSession{})
	assert.Equal(t, DefaultMaxRepetitions, w.MaxRepetitions())
	assert.Error(t, w.SetMaxRepetitions(0))
	assert.Error(t, w.SetMaxRepetitions(-3))
	assert.Equal(t, DefaultMaxRepetitions, w.MaxRepetitions())

	for _, target := range []*Target{v2c, v3} {
		a := testAgent()
		sess := &fakeSession{respond: a.respond}
		w := New(sess)
		require.NoError(t, w.SetMaxRepetitions(25))
		walkAll(t, w, target, system)
		for _, r := range sess.sent() {
			assert.Equal(t, gosnmp.GetBulkRequest, r.Type)
			assert.Equal(t, uint32(25), r.MaxRepetitions)
		}
	}

	a := testAgent()
	sess := &fakeSession{respond: a.respond}
	w = New(sess)
	require.NoError(t, w.SetMaxRepetitions(25))
	walkAll(t, w, v1, system)
	for _, r := range sess.sent() {
		assert.Equal(t, gosnmp.GetNextRequest, r.Type)
		assert.Equal(t, uint32(0), r.MaxRepetitions)
	}
}

func TestListenerDeclines(t *testing.T) {
	a := testAgent()
	sess := &fakeSession{respond: a.respond}
	w := New(sess)
	require.NoError(t, w.SetMaxRepetitions(2))

	pages := make(chan *TreeEvent, 10)
	finished := make(chan *TreeEvent, 1)
	w.WalkSubtreeAsync(v2c, system, "handle", ListenerFuncs{
		OnNext: func(ev *TreeEvent) bool {
			pages <- ev
			return false
		},
		OnFinished: func(ev *TreeEvent) {
			finished <- ev
		},
	})
	select {
	case ev := <-pages:
		assert.Len(t, ev.Bindings, 2)
		assert.Equal(t, "handle", ev.Handle)
	case <-time.After(5 * time.Second):
		t.Fatal("no page delivered")
	}
	select {
	case ev := <-finished:
		t.Fatalf("unexpected terminal event after decline: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Len(t, sess.sent(), 1)
}

func TestConcurrentWalks(t *testing.T) {
	a := testAgent()
	sess := &fakeSession{respond: a.respond}
	w := New(sess)
	require.NoError(t, w.SetMaxRepetitions(2))

	roots := []smi.OID{
		system,
		smi.MustParseOID("1.3.6.1.2.1.1.9"),
		smi.MustParseOID("1.3.6.1.2.1.2"),
	}
	expected := []int{10, 3, 2}
	var wg sync.WaitGroup
	results := make([][]*TreeEvent, len(roots)*4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			events, err := w.WalkSubtree(context.Background(), v2c, roots[i%len(roots)])
			if err == nil {
				results[i] = events
			}
		}(i)
	}
	wg.Wait()
	for i, events := range results {
		root := roots[i%len(roots)]
		require.NotEmpty(t, events, "walk %d", i)
		assertConformant(t, events, root)
		assert.Len(t, bindingNames(events), expected[i%len(roots)], "walk of %s", root)
	}
}

func TestWalkSubtreeContextCancelled(t *testing.T) {
	// An agent that never runs out of data.
	var mu sync.Mutex
	n := uint32(0)
	sess := &fakeSession{respond: func(req *Request) (*gosnmp.SnmpPacket, error) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		n++
		return &gosnmp.SnmpPacket{
			PDUType:   gosnmp.GetResponse,
			Variables: []gosnmp.SnmpPDU{{Name: system.Append(n).Dotted(), Type: gosnmp.Integer, Value: int(n)}},
		}, nil
	}}
	w := New(sess)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	events, err := w.WalkSubtree(ctx, v2c, system)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	for _, ev := range events {
		assert.False(t, ev.Terminal)
	}
	assertConformant(t, events, system)
}

func TestWalkInvalidArguments(t *testing.T) {
	w := New(&fakeSession{})
	events := walkAll(t, w, nil, system)
	assert.Equal(t, StatusTransportError, events[0].Status)
	events = walkAll(t, w, v2c, smi.OID{})
	assert.Equal(t, StatusTransportError, events[0].Status)
}
