package controller

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telenornms/treewalk"
)

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	c, err := New(treewalk.ControllerConfig{
		Host:           host,
		Port:           p,
		Account:        "customer1",
		User:           "trapper",
		Password:       "hunter2",
		ConnectTimeout: time.Second,
		SocketTimeout:  time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestEndpoint(t *testing.T) {
	c, err := New(treewalk.ControllerConfig{Host: "ctrl.example.com", Port: 8090, UseSsl: true})
	require.NoError(t, err)
	assert.Equal(t, "https://ctrl.example.com:8090/controller/rest/applications/7/tiers/web%2Ffront/nodes?output=JSON", c.Endpoint(7, "tiers", "web/front", "nodes"))
	assert.Equal(t, "https://ctrl.example.com:8090/controller/rest/applications/7/business-transactions?output=JSON", c.Endpoint(7, "business-transactions"))

	c, err = New(treewalk.ControllerConfig{Host: "ctrl"})
	require.NoError(t, err)
	assert.Equal(t, "http://ctrl/controller/rest/applications/1/nodes/node%201?output=JSON", c.Endpoint(1, "nodes", "node 1"))

	_, err = New(treewalk.ControllerConfig{})
	assert.Error(t, err)
}

func TestUserAccount(t *testing.T) {
	c := &Client{cfg: treewalk.ControllerConfig{User: "trapper", Account: "customer1"}}
	assert.Equal(t, "trapper@customer1", c.UserAccount())
	c.cfg.Account = ""
	assert.Equal(t, "trapper", c.UserAccount())
}

func TestNodesInTier(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "trapper@customer1" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/controller/rest/applications/12/tiers/checkout/nodes", r.URL.Path)
		assert.Equal(t, "JSON", r.URL.Query().Get("output"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "node1", "machineName": "host-a", "ipAddresses": map[string]any{"ipAddresses": []string{"10.0.0.1", "fe80::1"}}},
			{"id": 2, "name": "node2", "machineName": "host-b", "ipAddresses": []string{"10.0.0.2"}},
		})
	}))
	nodes, err := c.NodesInTier(context.Background(), 12, "checkout")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "host-a", nodes[0].MachineName)
	assert.Equal(t, Addresses{"10.0.0.1", "fe80::1"}, nodes[0].IPAddresses)
	assert.Equal(t, Addresses{"10.0.0.2"}, nodes[1].IPAddresses)
}

func TestNodeAndBusinessTransactions(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/controller/rest/applications/3/nodes/node1":
			w.Write([]byte(`[{"id": 9, "name": "node1", "tierName": "web", "machineName": "host-c"}]`))
		case "/controller/rest/applications/3/business-transactions":
			w.Write([]byte(`[{"id": 41, "name": "/checkout", "tierName": "web", "tierId": 5}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	nodes, err := c.Node(context.Background(), 3, "node1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "web", nodes[0].TierName)
	assert.Empty(t, nodes[0].IPAddresses)

	bts, err := c.BusinessTransactions(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, bts, 1)
	assert.Equal(t, 41, bts[0].ID)
	assert.Equal(t, "web", bts[0].TierName)

	_, err = c.Node(context.Background(), 4, "node1")
	assert.ErrorContains(t, err, "404")
}

func TestBadResponse(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"`))
	}))
	_, err := c.BusinessTransactions(context.Background(), 1)
	assert.Error(t, err)
}
