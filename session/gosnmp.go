/*
 * treewalk gosnmp session
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

package session

import (
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/walk"
)

// NewGoSNMP builds an unconnected gosnmp client for the target.
// community is used when the target has none. Zero timeouts, retries
// and ports fall back to the global configuration and 161.
func NewGoSNMP(t *walk.Target, community string) (*gosnmp.GoSNMP, error) {
	if t.Address == "" {
		return nil, fmt.Errorf("target has no address")
	}
	gs := &gosnmp.GoSNMP{
		Target:             t.Address,
		Port:               t.Port,
		Transport:          "udp",
		Version:            t.Version,
		Timeout:            t.Timeout,
		Retries:            t.Retries,
		ExponentialTimeout: true,
		MaxOids:            gosnmp.MaxOids,
	}
	if gs.Port == 0 {
		gs.Port = 161
	}
	if gs.Timeout == 0 {
		gs.Timeout = treewalk.Config.Timeout
	}
	if gs.Retries == 0 {
		gs.Retries = treewalk.Config.Retries
	}
	switch t.Version {
	case gosnmp.Version1, gosnmp.Version2c:
		gs.Community = t.Community
		if gs.Community == "" {
			gs.Community = community
		}
		if gs.Community == "" {
			return nil, fmt.Errorf("no community for %s", t)
		}
	case gosnmp.Version3:
		flags, usp, err := Security(t.User)
		if err != nil {
			return nil, fmt.Errorf("snmpv3 user for %s: %w", t, err)
		}
		gs.SecurityModel = gosnmp.UserSecurityModel
		gs.MsgFlags = flags
		gs.SecurityParameters = usp
	default:
		return nil, fmt.Errorf("unsupported snmp version %v", t.Version)
	}
	return gs, nil
}

// ParseVersion accepts "1", "2c" and "3", with or without a leading
// "v".
func ParseVersion(s string) (gosnmp.SnmpVersion, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v") {
	case "1":
		return gosnmp.Version1, nil
	case "2", "2c":
		return gosnmp.Version2c, nil
	case "3":
		return gosnmp.Version3, nil
	}
	return 0, fmt.Errorf("invalid snmp version %q, expected 1, 2c or 3", s)
}

// Security maps a configured SNMPv3 user to gosnmp's USM parameters.
func Security(u treewalk.UserConfig) (gosnmp.SnmpV3MsgFlags, *gosnmp.UsmSecurityParameters, error) {
	if u.Username == "" {
		return 0, nil, fmt.Errorf("no username")
	}
	usp := &gosnmp.UsmSecurityParameters{UserName: u.Username}
	var flags gosnmp.SnmpV3MsgFlags
	auth, priv := false, false
	switch strings.ToLower(u.SecurityLevel) {
	case "noauthnopriv", "":
		flags = gosnmp.NoAuthNoPriv
	case "authnopriv":
		flags = gosnmp.AuthNoPriv
		auth = true
	case "authpriv":
		flags = gosnmp.AuthPriv
		auth = true
		priv = true
	default:
		return 0, nil, fmt.Errorf("invalid security level %q, expected noAuthNoPriv, authNoPriv or authPriv", u.SecurityLevel)
	}
	if auth {
		usp.AuthenticationPassphrase = u.AuthPassphrase
		switch strings.ToLower(u.AuthProtocol) {
		case "md5":
			usp.AuthenticationProtocol = gosnmp.MD5
		case "sha", "":
			usp.AuthenticationProtocol = gosnmp.SHA
		case "sha-224", "sha224":
			usp.AuthenticationProtocol = gosnmp.SHA224
		case "sha-256", "sha256":
			usp.AuthenticationProtocol = gosnmp.SHA256
		case "sha-384", "sha384":
			usp.AuthenticationProtocol = gosnmp.SHA384
		case "sha-512", "sha512":
			usp.AuthenticationProtocol = gosnmp.SHA512
		default:
			return 0, nil, fmt.Errorf("invalid auth protocol %q", u.AuthProtocol)
		}
	}
	if priv {
		usp.PrivacyPassphrase = u.PrivPassphrase
		switch strings.ToLower(u.PrivProtocol) {
		case "des":
			usp.PrivacyProtocol = gosnmp.DES
		case "aes", "aes128", "":
			usp.PrivacyProtocol = gosnmp.AES
		case "aes192":
			usp.PrivacyProtocol = gosnmp.AES192
		case "aes192c":
			usp.PrivacyProtocol = gosnmp.AES192C
		case "aes256":
			usp.PrivacyProtocol = gosnmp.AES256
		case "aes256c":
			usp.PrivacyProtocol = gosnmp.AES256C
		default:
			return 0, nil, fmt.Errorf("invalid privacy protocol %q", u.PrivProtocol)
		}
	}
	return flags, usp, nil
}
