/*
 * treewalk smi-pain
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
Package smierte handles loading MIB files and modules (SMI)-stuff. The name
is a play on SMI and smerte (pain), because this is such a painful process.

It is based on gosmi, which works on global state, so this package does
too. Keep gosmi types out of the API so it can be swapped.
*/
package smierte

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sleepinggenius2/gosmi"
	"github.com/sleepinggenius2/gosmi/types"
	"github.com/telenornms/treewalk"
)

// cache maps lookup keys to Nodes. Only successful lookups are stored.
var cache sync.Map

var loaded atomic.Bool

var numeric = regexp.MustCompile(`^\.?[0-9]+(\.[0-9]+)*$`)

// Init loads MIB modules from the given paths. It can be called again to
// reload, which also clears the lookup cache.
func Init(modules []string, paths []string) error {
	gosmi.Init()
	Reset()
	for _, path := range paths {
		treewalk.Logf("mib path added: %s", path)
		gosmi.AppendPath(path)
	}
	for _, module := range modules {
		name, err := gosmi.LoadModule(module)
		if err != nil {
			return fmt.Errorf("module load failed: %w", err)
		}
		treewalk.Debugf("loaded SMI module %s", name)
	}
	loaded.Store(true)
	return nil
}

// Reset forgets every cached lookup.
func Reset() {
	cache.Range(func(k, v any) bool {
		cache.Delete(k)
		return true
	})
}

// Lookup resolves a symbolic name such as "sysName", "sysName.0" or
// "IF-MIB::ifDescr", or a numeric OID, to a Node. Numeric OIDs work
// without any MIBs loaded; they just don't get a name.
func Lookup(item string) (treewalk.Node, error) {
	item = strings.TrimSpace(item)
	if c, ok := cache.Load(item); ok {
		return c.(treewalk.Node), nil
	}
	var ret treewalk.Node
	var err error
	if numeric.MatchString(item) {
		ret, err = lookupNumeric(item)
	} else {
		ret, err = lookupName(item)
	}
	if err != nil {
		return ret, err
	}
	cache.Store(item, ret)
	return ret, nil
}

func lookupNumeric(item string) (treewalk.Node, error) {
	plain := strings.TrimPrefix(item, ".")
	ret := treewalk.Node{Key: item, Numeric: plain, Qualified: plain}
	oid, err := types.OidFromString(plain)
	if err != nil {
		return ret, fmt.Errorf("unable to parse OID %q: %w", item, err)
	}
	if !loaded.Load() {
		return ret, nil
	}
	n, err := gosmi.GetNodeByOID(oid)
	if err != nil {
		// Unknown to every loaded MIB is fine for a numeric OID.
		treewalk.Debugf("no SMI node for %s: %v", item, err)
		return ret, nil
	}
	ret.Numeric = n.RenderNumeric()
	ret.Name = n.Render(types.RenderName)
	return ret, nil
}

func lookupName(item string) (treewalk.Node, error) {
	ret := treewalk.Node{Key: item, Lookedup: true}
	if !loaded.Load() {
		return ret, fmt.Errorf("can't resolve %q, no MIB modules loaded", item)
	}
	name, suffix := item, ""
	// Module qualified names have "::" and no dots before it.
	start := strings.LastIndex(name, "::") + 1
	if i := strings.Index(name[start:], "."); i >= 0 {
		name, suffix = item[:start+i], item[start+i:]
	}
	if suffix != "" && !numeric.MatchString(suffix) {
		return ret, fmt.Errorf("invalid instance suffix %q in %q", suffix, item)
	}
	var n gosmi.SmiNode
	var err error
	if mod, sym, ok := strings.Cut(name, "::"); ok {
		var m gosmi.SmiModule
		m, err = gosmi.GetModule(mod)
		if err != nil {
			return ret, fmt.Errorf("unknown module in %q: %w", item, err)
		}
		n, err = gosmi.GetNode(sym, m)
	} else {
		n, err = gosmi.GetNode(name)
	}
	if err != nil {
		return ret, fmt.Errorf("gosmi.GetNode(%q) failed: %w", name, err)
	}
	ret.Numeric = n.RenderNumeric()
	ret.Name = n.Render(types.RenderName)
	ret.Qualified = ret.Numeric + suffix
	return ret, nil
}
