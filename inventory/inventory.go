/*
 * treewalk inventory
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
Package inventory deals with per-host locking and credentials.

Only one run per host is allowed at a time. Credentials come from the
global configuration; there is no central inventory database behind it.
*/
package inventory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/walk"
)

var targets sync.Map

// Host is a locked host and the credentials to use for it.
type Host struct {
	Address   string
	Community string
}

// LockHost acquires a host-level lock and relevant credentials. Must call
// h.Unlock() when done.
func LockHost(address string) (Host, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Host{}, fmt.Errorf("no host address")
	}
	if _, loaded := targets.LoadOrStore(address, struct{}{}); loaded {
		return Host{}, fmt.Errorf("%s still locked, refusing to start more runs", address)
	}
	return Host{Address: address, Community: treewalk.Config.DefaultCommunity}, nil
}

// Unlock releases the host-level lock.
func (h *Host) Unlock() {
	targets.Delete(h.Address)
}

// Target describes the host as a walk target. A non-empty community
// overrides the configured one.
func (h *Host) Target(version gosnmp.SnmpVersion, community string) *walk.Target {
	t := &walk.Target{
		Address:   h.Address,
		Port:      161,
		Version:   version,
		Community: h.Community,
		Timeout:   treewalk.Config.Timeout,
		Retries:   treewalk.Config.Retries,
	}
	if community != "" {
		t.Community = community
	}
	if version == gosnmp.Version3 {
		t.User = treewalk.Config.User
	}
	return t
}
