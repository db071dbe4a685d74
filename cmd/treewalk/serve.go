/*
 * treewalk queue worker
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
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"github.com/telenornms/treewalk"
)

func serveCmd() *cobra.Command {
	handler := "treewalk"
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Take walk orders from the broker and ship results to skogul",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), handler)
		},
	}
	cmd.Flags().StringVar(&handler, "handler", handler, "skogul handler to use")
	return cmd
}

// Listener runs orders from c until it is closed, acking or nacking each
// delivery. Failed orders are requeued once, after a random delay.
func (e *Engine) Listener(ctx context.Context, c chan Order, name string) {
	treewalk.Debugf("Starting listener %s...", name)
	for order := range c {
		now := time.Now()
		err := e.Run(ctx, order)
		since := time.Since(now).Round(time.Millisecond * 10)
		if err != nil {
			requeue := !order.delivery.Redelivered
			treewalk.Logf("[%2s]: %-15s FAIL %s: %s (requeue: %v)", name, order, since.String(), err, requeue)
			if requeue {
				d := time.Second + time.Second*time.Duration(rand.Intn(10))
				treewalk.Debugf("Sleeping %v before NACK/requeue", d)
				time.Sleep(d)
			}
			if err2 := order.delivery.Nack(false, requeue); err2 != nil {
				treewalk.Logf("NAck failed: %s", err2)
			}
			continue
		}
		treewalk.Logf("[%2s]: %-15s OK %s", name, order, since.String())
		if err2 := order.delivery.Ack(false); err2 != nil {
			treewalk.Logf("Ack failed: %s", err2)
		}
	}
}

// decodeOrder parses a delivery body into an Order.
func decodeOrder(b []byte) (Order, error) {
	o := Order{}
	if err := json.Unmarshal(b, &o); err != nil {
		return o, fmt.Errorf("order json unmarshal: %w", err)
	}
	if o.Target == "" {
		return o, fmt.Errorf("order has no target")
	}
	if o.Mode == Walk && len(o.Oids) == 0 {
		return o, fmt.Errorf("walk order for %s has no oids", o.Target)
	}
	return o, nil
}

func serve(ctx context.Context, handler string) error {
	e, err := NewEngine(treewalk.Config.OutputConfig, handler)
	if err != nil {
		return fmt.Errorf("couldn't initialize engine: %w", err)
	}
	defer e.Session.Close()
	c := make(chan Order)
	defer close(c)
	for i := 0; i < treewalk.Config.Workers; i++ {
		go e.Listener(ctx, c, fmt.Sprintf("%d", i))
	}
	treewalk.Logf("Started %d workers", treewalk.Config.Workers)
	amURL, err := url.Parse(treewalk.Config.Broker)
	if err != nil {
		return fmt.Errorf("can't parse broker url: %w", err)
	}
	treewalk.Debugf("Connecting to broker: %v", amURL.Redacted())
	conn, err := amqp.Dial(treewalk.Config.Broker)
	if err != nil {
		return fmt.Errorf("can't connect to broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("can't get channel: %w", err)
	}
	defer ch.Close()
	if err := ch.Qos(treewalk.Config.Workers+1, 0, true); err != nil {
		return fmt.Errorf("can't set qos: %w", err)
	}

	q, err := ch.QueueDeclare(
		treewalk.Config.Queue, // name
		false,                 // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("can't declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("can't register consumer: %w", err)
	}
	treewalk.Logf("Listening for orders on %s", q.Name)
	for d := range msgs {
		order, err := decodeOrder(d.Body)
		if err != nil {
			treewalk.Logf("rejecting order: %s", err)
			d.Reject(false)
			continue
		}
		order.delivery = d
		c <- order
	}
	return fmt.Errorf("delivery channel closed, broker connection probably lost")
}
