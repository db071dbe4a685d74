/*
 * treewalk documentation-dummy
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
Package treewalk retrieves MIB subtrees from SNMP agents and turns alerts
into SNMP traps.

The interesting bits live in sub-packages. The walk package is the
subtree retrieval engine: it pages through an agent with GETNEXT (v1) or
GETBULK (v2c/v3), checks that the agent behaves, and stops at the subtree
boundary. The session package provides the gosnmp-backed transport it
runs on, and smi carries the OID and Integer32 primitives both of them
share.

Around that sits the glue: smierte for MIB lookups, omap for index maps,
alert, controller and trap for turning monitoring alerts into traps, and
the commands under cmd/.

This root package holds what everything else needs without creating
import cycles: configuration, log-wrappers and a couple of shared types.
*/
package treewalk
