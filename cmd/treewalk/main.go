/*
 * treewalk command line
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
	"os"
	"os/signal"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/spf13/cobra"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/inventory"
	"github.com/telenornms/treewalk/session"
	"github.com/telenornms/treewalk/smi"
	"github.com/telenornms/treewalk/smierte"
	"github.com/telenornms/treewalk/walk"
)

var (
	configFile string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:           "treewalk",
		Short:         "Walk SNMP subtrees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := treewalk.ParseConfig(configFile); err != nil {
				return fmt.Errorf("couldn't parse config: %w", err)
			}
			if debug {
				treewalk.Config.Debug = true
			}
			treewalk.Init()
			treewalk.Debugf("Read config file: %s", configFile)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "f", "", "treewalk config file (yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug")
	root.AddCommand(walkCmd(), serveCmd())
	if err := root.ExecuteContext(context.Background()); err != nil {
		treewalk.Fatalf("%s", err)
	}
}

type walkOpts struct {
	version     string
	community   string
	port        uint16
	timeout     time.Duration
	retries     int
	reps        int
	ignoreOrder bool
	skogul      string
	handler     string
	events      bool
}

func walkCmd() *cobra.Command {
	o := walkOpts{}
	cmd := &cobra.Command{
		Use:   "walk <target> <oid>...",
		Short: "Walk one or more subtrees on a target and print or ship the result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWalk(cmd.Context(), o, args[0], args[1:])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.version, "version", "v", "2c", "snmp version: 1, 2c or 3")
	f.StringVarP(&o.community, "community", "c", "", "community, default from config")
	f.Uint16VarP(&o.port, "port", "p", 161, "agent port")
	f.DurationVar(&o.timeout, "timeout", 0, "request timeout, default from config")
	f.IntVar(&o.retries, "retries", -1, "retries per request, default from config")
	f.IntVar(&o.reps, "max-repetitions", 0, "GETBULK max-repetitions, default from config")
	f.BoolVar(&o.ignoreOrder, "ignore-order", false, "accept agents that return OIDs out of order")
	f.StringVar(&o.skogul, "skogul", "", "skogul config; ship the result instead of printing it")
	f.StringVar(&o.handler, "handler", "treewalk", "skogul handler to use")
	f.BoolVar(&o.events, "events", false, "print every tree event instead of the bindings")
	return cmd
}

func runWalk(ctx context.Context, o walkOpts, address string, oids []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if o.reps > 0 {
		treewalk.Config.MaxRepetitions = o.reps
	}
	if o.ignoreOrder {
		treewalk.Config.IgnoreLexicographicOrder = true
	}
	if o.timeout > 0 {
		treewalk.Config.Timeout = o.timeout
	}
	if o.retries >= 0 {
		treewalk.Config.Retries = o.retries
	}
	version, err := session.ParseVersion(o.version)
	if err != nil {
		return err
	}
	if o.skogul != "" {
		e, err := NewEngine(o.skogul, o.handler)
		if err != nil {
			return err
		}
		defer e.Session.Close()
		return e.Run(ctx, Order{Target: address, Oids: oids, Community: o.community, Version: o.version})
	}
	if err := smierte.Init(treewalk.Config.MibModules, treewalk.Config.MibPaths); err != nil {
		treewalk.Logf("failed to load mibs, only numeric oids will work: %s", err)
	}
	host, err := inventory.LockHost(address)
	if err != nil {
		return err
	}
	defer host.Unlock()
	target := host.Target(version, o.community)
	target.Port = o.port
	sess := session.NewSession(treewalk.Config.DefaultCommunity)
	defer sess.Close()
	w := walk.New(sess)
	if err := w.SetMaxRepetitions(treewalk.Config.MaxRepetitions); err != nil {
		return err
	}
	w.SetIgnoreLexicographicOrder(treewalk.Config.IgnoreLexicographicOrder)
	nodes, _, err := lookup(oids)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if o.events {
			if err := printEvents(ctx, w, target, n); err != nil {
				return err
			}
			continue
		}
		b := &walk.Bound{Walker: w, Target: target, Context: ctx}
		err := b.BulkWalk([]treewalk.Node{n}, func(pdu gosnmp.SnmpPDU) error {
			fmt.Printf("%s = %s: %v\n", pdu.Name, pdu.Type, value(pdu))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func printEvents(ctx context.Context, w *walk.Walker, target *walk.Target, n treewalk.Node) error {
	root, err := smi.ParseOID(n.OID())
	if err != nil {
		return err
	}
	events, err := w.WalkSubtree(ctx, target, root)
	for _, ev := range events {
		fmt.Println(ev)
	}
	return err
}
