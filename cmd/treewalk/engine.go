/*
 * treewalk engine
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
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/skogul"
	sconfig "github.com/telenornms/skogul/config"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/inventory"
	"github.com/telenornms/treewalk/omap"
	"github.com/telenornms/treewalk/session"
	"github.com/telenornms/treewalk/smi"
	"github.com/telenornms/treewalk/smierte"
	"github.com/telenornms/treewalk/walk"
)

// Task is tied to a single walk run and a single host
type Task struct {
	OMap   *omap.OMap    // Engine populates uniquely for each target
	Metric skogul.Metric // New metric for each run.
	Result ResolveM
}

// Engine is the state shared by every worker: the walker, its session
// and the map cache.
type Engine struct {
	Skogul  *sconfig.Config // output, nil means Output must be set
	Handler string          // skogul handler to send results to
	Output  func(c *skogul.Container) error
	Session *session.Session
	Walker  *walk.Walker
	OMaps   omap.Cache
}

// NewEngine sets up the walker from the global config and, if sc is
// set, loads the skogul config used for output.
func NewEngine(sc string, handler string) (*Engine, error) {
	e := &Engine{Handler: handler}
	if sc != "" {
		var err error
		e.Skogul, err = sconfig.Path(sc)
		if err != nil {
			return nil, fmt.Errorf("skogul-config failed loading: %w", err)
		}
		h := e.Skogul.Handlers[handler]
		if h == nil {
			return nil, fmt.Errorf("missing %s handler in skogul config", handler)
		}
		e.Output = h.Handler.TransformAndSend
	}
	e.Session = session.NewSession(treewalk.Config.DefaultCommunity)
	e.Walker = walk.New(e.Session)
	if err := e.Walker.SetMaxRepetitions(treewalk.Config.MaxRepetitions); err != nil {
		return nil, err
	}
	e.Walker.SetIgnoreLexicographicOrder(treewalk.Config.IgnoreLexicographicOrder)
	e.OMaps.MaxAge = treewalk.Config.MaxMapAge
	if err := smierte.Init(treewalk.Config.MibModules, treewalk.Config.MibPaths); err != nil {
		return nil, fmt.Errorf("failed to load mibs: %w", err)
	}
	return e, nil
}

// Run executes one order against its target.
func (e *Engine) Run(ctx context.Context, o Order) error {
	host, err := inventory.LockHost(o.Target)
	if err != nil {
		return fmt.Errorf("unable to acquire host lock: %w", err)
	}
	defer host.Unlock()
	if o.Mode == ClearMap {
		e.OMaps.Clear(host.Address, o.Key)
		return nil
	}
	version := gosnmp.Version2c
	if o.Version != "" {
		version, err = session.ParseVersion(o.Version)
		if err != nil {
			return err
		}
	}
	w := &walk.Bound{Walker: e.Walker, Target: host.Target(version, o.Community), Context: ctx}
	treewalk.Debugf("%s - starting run", o.Target)

	if o.Mode == BuildMap {
		if o.Key == "" {
			treewalk.Debugf("Requested building of a map, but no key provided. Assuming ifName")
			o.Key = "ifName"
		}
		e.OMaps.Clear(host.Address, o.Key)
		_, err := e.OMaps.Get(host.Address, o.Key, w)
		return err
	}

	t := Task{}
	if o.Key != "" {
		t.OMap, err = e.OMaps.Get(host.Address, o.Key, w)
		if err != nil {
			return err
		}
	}
	nodes, lookedup, err := lookup(o.Oids)
	if err != nil {
		return err
	}
	t.Result = o.Result
	if t.Result == Auto {
		t.Result = OID
		if lookedup {
			t.Result = Resolve
		}
	}
	t.Metric.Metadata = map[string]interface{}{"target": o.Target}
	if o.ID != "" {
		t.Metric.Metadata["id"] = o.ID
	}
	t.Metric.Data = make(map[string]interface{})
	if err := w.BulkWalk(nodes, t.save); err != nil {
		return fmt.Errorf("snmp walk failed: %w", err)
	}
	now := time.Now()
	t.Metric.Time = &now
	return e.send(&t.Metric)
}

func (e *Engine) send(m *skogul.Metric) error {
	if e.Output == nil {
		return fmt.Errorf("no output configured")
	}
	c := skogul.Container{Metrics: []*skogul.Metric{m}}
	if err := e.Output(&c); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func lookup(oids []string) ([]treewalk.Node, bool, error) {
	if len(oids) == 0 {
		return nil, false, fmt.Errorf("no oids to walk")
	}
	lookedup := false
	nodes := make([]treewalk.Node, 0, len(oids))
	for _, arg := range oids {
		n, err := smierte.Lookup(arg)
		if err != nil {
			return nil, false, fmt.Errorf("unable to look up oid: %w", err)
		}
		nodes = append(nodes, n)
		lookedup = lookedup || n.Lookedup
	}
	return nodes, lookedup, nil
}

// value makes octet strings readable and leaves everything else alone.
func value(pdu gosnmp.SnmpPDU) interface{} {
	if b, ok := pdu.Value.([]byte); ok {
		return string(b)
	}
	return pdu.Value
}

// save stores a result. OID results are stored flat by name; resolved
// results are grouped by element (the table index, or its mapped name)
// and then by object name.
func (t *Task) save(pdu gosnmp.SnmpPDU) error {
	v := value(pdu)
	if t.Result == OID {
		t.Metric.Data[pdu.Name] = v
		return nil
	}
	name, element := pdu.Name, "0"
	n, err := smierte.Lookup(pdu.Name)
	if err != nil {
		treewalk.Logf("lookup failed: %s", err)
	} else {
		if n.Name != "" {
			name = n.Name
		}
		o, err1 := smi.ParseOID(pdu.Name)
		base, err2 := smi.ParseOID(n.Numeric)
		if err1 == nil && err2 == nil {
			if idx := o.Suffix(base); len(idx) > 0 {
				element = idx.String()
			}
		}
		if t.OMap != nil && t.OMap.IdxToName[element] != "" {
			element = t.OMap.IdxToName[element]
		}
	}
	if t.Metric.Data[element] == nil {
		t.Metric.Data[element] = make(map[string]interface{})
	}
	(t.Metric.Data[element].(map[string]interface{}))[name] = v
	return nil
}
