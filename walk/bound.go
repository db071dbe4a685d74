/*
 * treewalk callback-style walking
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

package walk

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/smi"
)

// Each walks the subtree below root and calls cb for every binding, in
// order. A callback error stops the walk and is returned. A terminal
// error event is returned as its error.
func (w *Walker) Each(ctx context.Context, target *Target, root smi.OID, cb func(pdu gosnmp.SnmpPDU) error) error {
	var cbErr, walkErr error
	done := make(chan struct{})
	deliver := func(ev *TreeEvent) bool {
		for _, pdu := range ev.Bindings {
			if err := cb(pdu); err != nil {
				cbErr = fmt.Errorf("callback returned error: %w", err)
				return false
			}
		}
		return true
	}
	l := ListenerFuncs{
		OnNext: func(ev *TreeEvent) bool {
			if ctx.Err() != nil || !deliver(ev) {
				close(done)
				return false
			}
			return true
		},
		OnFinished: func(ev *TreeEvent) {
			if ev.IsError() {
				walkErr = ev.Err()
			} else {
				deliver(ev)
			}
			close(done)
		},
	}
	w.WalkSubtreeAsync(target, root, nil, l)
	select {
	case <-done:
	case <-ctx.Done():
		// The walk notices at its next page. We can't return before it
		// does, cb may still be running.
		<-done
		return ctx.Err()
	}
	if cbErr != nil {
		return cbErr
	}
	if walkErr == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return walkErr
}

// Bound ties a Walker to one target, and implements treewalk.Walker.
type Bound struct {
	Walker  *Walker
	Target  *Target
	Context context.Context // nil means context.Background()
}

var _ treewalk.Walker = (*Bound)(nil)

// BulkWalk walks each node's subtree in turn, stopping at the first
// error.
func (b *Bound) BulkWalk(nodes []treewalk.Node, cb func(pdu gosnmp.SnmpPDU) error) error {
	ctx := b.Context
	if ctx == nil {
		ctx = context.Background()
	}
	for _, n := range nodes {
		root, err := smi.ParseOID(n.OID())
		if err != nil {
			return fmt.Errorf("node %q: %w", n.Key, err)
		}
		hits := 0
		st := time.Now()
		err = b.Walker.Each(ctx, b.Target, root, func(pdu gosnmp.SnmpPDU) error {
			hits++
			return cb(pdu)
		})
		if err != nil {
			return fmt.Errorf("walk of %s failed after %d bindings: %w", root, hits, err)
		}
		treewalk.Debugf("walk of %s on %s: %d bindings in %s", root, b.Target, hits, time.Since(st).Round(time.Millisecond))
	}
	return nil
}
