/*
 * treewalk controller client
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
Package controller talks to the REST API of the application monitoring
controller that raises the alerts we turn into traps. We only ask it
about nodes, tiers and business transactions, to find out which machines
an alert is about.
*/
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/telenornms/treewalk"
	"golang.org/x/net/http2"
)

// Node is an application node as the controller describes it.
type Node struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	TierID      int       `json:"tierId"`
	TierName    string    `json:"tierName"`
	MachineID   int       `json:"machineId"`
	MachineName string    `json:"machineName"`
	IPAddresses Addresses `json:"ipAddresses"`
}

// Addresses is a list of IP addresses. The controller sends it either as
// a plain list or wrapped in an object with an "ipAddresses" list.
type Addresses []string

func (a *Addresses) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*a = list
		return nil
	}
	var wrapped struct {
		IPAddresses []string `json:"ipAddresses"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return fmt.Errorf("ip addresses are neither a list nor a wrapped list: %w", err)
	}
	*a = wrapped.IPAddresses
	return nil
}

// BusinessTransaction as the controller describes it.
type BusinessTransaction struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	InternalName   string `json:"internalName"`
	EntryPointType string `json:"entryPointType"`
	TierID         int    `json:"tierId"`
	TierName       string `json:"tierName"`
	Background     bool   `json:"background"`
}

// Client is a controller REST client. It is safe for concurrent use.
type Client struct {
	cfg  treewalk.ControllerConfig
	base *url.URL
	http *http.Client
}

// New returns a client for the configured controller.
func New(cfg treewalk.ControllerConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("no controller host configured")
	}
	scheme := "http"
	if cfg.UseSsl {
		scheme = "https"
	}
	host := cfg.Host
	if cfg.Port != 0 {
		host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.SocketTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("unable to enable http2 on controller transport: %w", err)
	}
	return &Client{
		cfg:  cfg,
		base: &url.URL{Scheme: scheme, Host: host, Path: "/controller/rest/applications/"},
		http: &http.Client{Transport: tr, Timeout: cfg.ConnectTimeout + cfg.SocketTimeout},
	}, nil
}

// UserAccount is the basic auth user name, user@account.
func (c *Client) UserAccount() string {
	if c.cfg.Account == "" {
		return c.cfg.User
	}
	return c.cfg.User + "@" + c.cfg.Account
}

// Endpoint builds the URL for a path below an application. Every path
// element is escaped on its own.
func (c *Client) Endpoint(appID int, elems ...string) string {
	var sb strings.Builder
	sb.WriteString(c.base.String())
	sb.WriteString(strconv.Itoa(appID))
	for _, e := range elems {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(e))
	}
	sb.WriteString("?output=JSON")
	return sb.String()
}

// NodesInTier lists the nodes of a tier.
func (c *Client) NodesInTier(ctx context.Context, appID int, tier string) ([]Node, error) {
	var ret []Node
	err := c.get(ctx, c.Endpoint(appID, "tiers", tier, "nodes"), &ret)
	return ret, err
}

// Node looks up a node by name. The controller answers with a list.
func (c *Client) Node(ctx context.Context, appID int, name string) ([]Node, error) {
	var ret []Node
	err := c.get(ctx, c.Endpoint(appID, "nodes", name), &ret)
	return ret, err
}

// BusinessTransactions lists every business transaction of an
// application.
func (c *Client) BusinessTransactions(ctx context.Context, appID int) ([]BusinessTransaction, error) {
	var ret []BusinessTransaction
	err := c.get(ctx, c.Endpoint(appID, "business-transactions"), &ret)
	return ret, err
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("unable to build request for %s: %w", endpoint, err)
	}
	req.SetBasicAuth(c.UserAccount(), c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	st := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controller request failed: %w", err)
	}
	defer resp.Body.Close()
	treewalk.Debugf("GET %s: %s in %s (%s)", endpoint, resp.Status, time.Since(st).Round(time.Millisecond), resp.Proto)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("controller returned %s for %s: %s", resp.Status, endpoint, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("unable to decode controller response from %s: %w", endpoint, err)
	}
	return nil
}
