/*
 * treewalk map
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

// Package omap builds two-way maps between table indexes and the values
// of one column, the typical case being ifIndex and ifName.
package omap

import (
	"fmt"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/smi"
	"github.com/telenornms/treewalk/smierte"
)

// OMap is a two-way map of index to name, the typical case is ifIndex to
// ifName, but can be anything.
type OMap struct {
	IdxToName map[string]string
	NameToIdx map[string]string
	Oid       treewalk.Node // OID used to build the map, e.g.: ifName
	Timestamp time.Time     // When was the map created?

	root smi.OID
}

// BuildOMap walks the column named by oid and maps every row index to
// the value found there. Rows with duplicate values map the value to the
// last index seen.
func BuildOMap(w treewalk.Walker, oid string) (*OMap, error) {
	m := &OMap{
		IdxToName: make(map[string]string),
		NameToIdx: make(map[string]string),
		Timestamp: time.Now(),
	}
	var err error
	m.Oid, err = smierte.Lookup(oid)
	if err != nil {
		return nil, fmt.Errorf("lookup of oid %s failed: %w", oid, err)
	}
	m.root, err = smi.ParseOID(m.Oid.OID())
	if err != nil {
		return nil, fmt.Errorf("lookup of %s gave unusable oid %q: %w", oid, m.Oid.OID(), err)
	}
	err = w.BulkWalk([]treewalk.Node{m.Oid}, m.walkCB)
	if err != nil {
		return nil, err
	}
	treewalk.Debugf("omap for %s built with %d elements in %s", oid, len(m.IdxToName), time.Since(m.Timestamp).Round(time.Millisecond*100))
	return m, nil
}

func (m *OMap) walkCB(pdu gosnmp.SnmpPDU) error {
	o, err := smi.ParseOID(pdu.Name)
	if err != nil {
		return fmt.Errorf("agent returned unparsable name %q: %w", pdu.Name, err)
	}
	idx := o.Suffix(m.root)
	if len(idx) == 0 {
		return nil
	}
	var name string
	switch v := pdu.Value.(type) {
	case string:
		name = v
	case []byte:
		name = string(v)
	default:
		name = fmt.Sprint(v)
	}
	m.IdxToName[idx.String()] = name
	m.NameToIdx[name] = idx.String()
	return nil
}

// Age is how long ago the map was built.
func (m *OMap) Age() time.Duration {
	return time.Since(m.Timestamp)
}

// Cache keeps built maps per target and key until they are older than
// MaxAge. It is safe for concurrent use.
type Cache struct {
	MaxAge time.Duration

	mu   sync.Mutex
	maps map[string]map[string]*OMap
}

// Get returns the cached map for target and key, building it with w if
// it is missing or too old.
func (c *Cache) Get(target string, key string, w treewalk.Walker) (*OMap, error) {
	c.mu.Lock()
	m := c.maps[target][key]
	c.mu.Unlock()
	if m != nil {
		if c.MaxAge <= 0 || m.Age() <= c.MaxAge {
			return m, nil
		}
		treewalk.Logf("Deleting aged out `%s'-map for %s", key, target)
	}
	m, err := BuildOMap(w, key)
	if err != nil {
		return nil, fmt.Errorf("failed to build `%s'-map: %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maps == nil {
		c.maps = make(map[string]map[string]*OMap)
	}
	if c.maps[target] == nil {
		c.maps[target] = make(map[string]*OMap)
	}
	c.maps[target][key] = m
	return m, nil
}

// Clear drops the map for a target/key combo. A blank key drops every
// map for the target.
func (c *Cache) Clear(target string, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		treewalk.Debugf("Deleting all maps for %s on request", target)
		delete(c.maps, target)
		return
	}
	if c.maps[target] == nil {
		treewalk.Debugf("No `%s'-map for %s to clear", key, target)
		return
	}
	treewalk.Debugf("Deleting `%s'-map for %s on request", key, target)
	delete(c.maps[target], key)
}
