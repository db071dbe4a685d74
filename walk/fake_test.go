package walk

import (
	"sort"
	"sync"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk/smi"
)

// fakeSession answers requests on a fresh goroutine, like a real
// transport would, using respond to produce the response.
type fakeSession struct {
	mu       sync.Mutex
	respond  func(req *Request) (*gosnmp.SnmpPacket, error)
	sendErr  error
	requests []Request
	cancels  int
}

func (f *fakeSession) Send(req *Request, target *Target, handle any, cb ResponseListener) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	cp := *req
	cp.Variables = append([]gosnmp.SnmpPDU(nil), req.Variables...)
	f.mu.Lock()
	f.requests = append(f.requests, cp)
	f.mu.Unlock()
	go func() {
		resp, err := f.respond(&cp)
		cb.OnResponse(ResponseEvent{Request: req, Response: resp, Err: err, Handle: handle})
	}()
	return nil
}

func (f *fakeSession) Cancel(req *Request, cb ResponseListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeSession) sent() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func (f *fakeSession) cancelled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

// agent is a well-behaved responder over a fixed set of OIDs.
type agent struct {
	oids []smi.OID
}

func newAgent(oids ...string) *agent {
	a := &agent{}
	for _, o := range oids {
		a.oids = append(a.oids, smi.MustParseOID(o))
	}
	sort.Slice(a.oids, func(i, j int) bool { return a.oids[i].Compare(a.oids[j]) < 0 })
	return a
}

func (a *agent) respond(req *Request) (*gosnmp.SnmpPacket, error) {
	seed := smi.MustParseOID(req.Seed())
	n := 1
	if req.Type == gosnmp.GetBulkRequest {
		n = int(req.MaxRepetitions)
	}
	resp := &gosnmp.SnmpPacket{PDUType: gosnmp.GetResponse}
	last := seed
	for _, o := range a.oids {
		if len(resp.Variables) == n {
			break
		}
		if o.Compare(seed) > 0 {
			resp.Variables = append(resp.Variables, gosnmp.SnmpPDU{Name: o.Dotted(), Type: gosnmp.Integer, Value: len(resp.Variables)})
			last = o
		}
	}
	for len(resp.Variables) < n {
		resp.Variables = append(resp.Variables, gosnmp.SnmpPDU{Name: last.Dotted(), Type: gosnmp.EndOfMibView})
	}
	return resp, nil
}

// scripted returns the given pages in order, then empty responses.
func scripted(pages ...[]string) func(req *Request) (*gosnmp.SnmpPacket, error) {
	var mu sync.Mutex
	i := 0
	return func(req *Request) (*gosnmp.SnmpPacket, error) {
		mu.Lock()
		defer mu.Unlock()
		resp := &gosnmp.SnmpPacket{PDUType: gosnmp.GetResponse}
		if i < len(pages) {
			for _, name := range pages[i] {
				resp.Variables = append(resp.Variables, gosnmp.SnmpPDU{Name: name, Type: gosnmp.OctetString, Value: []byte(name)})
			}
		}
		i++
		return resp, nil
	}
}

func bindingNames(events []*TreeEvent) []string {
	var ret []string
	for _, ev := range events {
		for _, pdu := range ev.Bindings {
			ret = append(ret, pdu.Name)
		}
	}
	return ret
}
