/*
 * snmptrap-alert: alert notifications to SNMP traps
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

// snmptrap-alert reads an alert notification as JSON, from a file or
// stdin, and sends it as a trap to every configured receiver.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gosnmp/gosnmp"
	"github.com/spf13/cobra"
	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/alert"
	"github.com/telenornms/treewalk/controller"
	"github.com/telenornms/treewalk/session"
	"github.com/telenornms/treewalk/trap"
)

func main() {
	var configFile string
	var debug, dryRun bool
	cmd := &cobra.Command{
		Use:           "snmptrap-alert [event.json]",
		Short:         "Send an alert notification as an SNMP trap",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := treewalk.ParseConfig(configFile); err != nil {
				return fmt.Errorf("couldn't parse config: %w", err)
			}
			if debug {
				treewalk.Config.Debug = true
			}
			treewalk.Init()
			in := io.Reader(os.Stdin)
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return run(cmd.Context(), in, dryRun)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "f", "", "config file (yaml)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the trap bindings instead of sending them")
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		treewalk.Fatalf("%s", err)
	}
}

func run(ctx context.Context, in io.Reader, dryRun bool) error {
	ev, err := alert.Decode(in)
	if err != nil {
		return err
	}
	b := &alert.Builder{Config: treewalk.Config.Controller}
	if treewalk.Config.Controller.Host != "" {
		c, err := controller.New(treewalk.Config.Controller)
		if err != nil {
			return err
		}
		b.Resolver = c
	}
	ctx, cancel := context.WithTimeout(ctx, treewalk.Config.Controller.ConnectTimeout+treewalk.Config.Controller.SocketTimeout)
	defer cancel()
	rec, err := b.Build(ctx, ev)
	if err != nil {
		return fmt.Errorf("unable to build trap data: %w", err)
	}
	if dryRun {
		v, err := session.ParseVersion(treewalk.Config.Trap.SnmpVersion)
		if err != nil {
			return err
		}
		t, err := trap.Render(rec, treewalk.Config.Trap, v, 0)
		if err != nil {
			return err
		}
		if v == gosnmp.Version1 {
			fmt.Printf("enterprise %s agent %s generic %d specific %d\n", t.Enterprise, t.AgentAddress, t.GenericTrap, t.SpecificTrap)
		}
		for _, pdu := range t.Variables {
			fmt.Printf("%s = %s: %v\n", pdu.Name, pdu.Type, pdu.Value)
		}
		return nil
	}
	s, err := trap.NewSender(treewalk.Config.Trap, treewalk.Config.Receivers)
	if err != nil {
		return err
	}
	if err := s.Send(rec); err != nil {
		return err
	}
	treewalk.Logf("sent %s trap for %s to %d receivers", rec.Severity, rec.TriggeredBy, len(s.Receivers))
	return nil
}
