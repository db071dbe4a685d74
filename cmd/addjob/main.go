/*
 * treewalk addjob
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

// addjob publishes walk orders read from files to the treewalk queue,
// either once or repeatedly with a delay in between.
//
// Usage: addjob [-f config] <delay> <order.json>...
//
// A negative delay publishes once and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/telenornms/treewalk"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "f", "", "treewalk config file (yaml)")
	flag.BoolVar(&treewalk.Config.Debug, "debug", false, "enable debug")
	flag.Parse()
	if err := treewalk.ParseConfig(configFile); err != nil {
		treewalk.Fatalf("couldn't parse config: %s", err)
	}
	treewalk.Init()
	args := flag.Args()
	if len(args) < 2 {
		treewalk.Fatalf("usage: addjob [-f config] <delay> <order.json>...")
	}
	sleeptime, err := time.ParseDuration(args[0])
	if err != nil {
		treewalk.Fatalf("unable to parse delay-time: %s", err)
	}
	var bs [][]byte
	for _, fn := range args[1:] {
		b, err := os.ReadFile(fn)
		if err != nil {
			treewalk.Fatalf("failed to read %s: %s", fn, err)
		}
		if !json.Valid(b) {
			treewalk.Fatalf("%s is not valid json", fn)
		}
		bs = append(bs, b)
	}

	conn, err := amqp.Dial(treewalk.Config.Broker)
	if err != nil {
		treewalk.Fatalf("failed to connect to broker: %s", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		treewalk.Fatalf("failed to open a channel: %s", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		treewalk.Config.Queue, // name
		false,                 // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		treewalk.Fatalf("failed to declare a queue: %s", err)
	}
	for {
		for _, b := range bs {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = ch.PublishWithContext(ctx,
				"",     // exchange
				q.Name, // routing key
				false,  // mandatory
				false,  // immediate
				amqp.Publishing{
					ContentType: "application/json",
					Expiration:  "10000",
					Body:        b,
				})
			cancel()
			if err != nil {
				treewalk.Fatalf("failed to publish a message: %s", err)
			}
			treewalk.Debugf("Sent %d bytes", len(b))
		}
		if sleeptime < 0 {
			treewalk.Logf("negative sleeptime, exiting after 1 publish")
			return
		}
		treewalk.Logf("Published %d orders, sleeping %s", len(bs), sleeptime)
		time.Sleep(sleeptime)
	}
}
