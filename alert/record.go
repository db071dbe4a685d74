/*
 * treewalk alert records
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

package alert

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/telenornms/treewalk"
	"github.com/telenornms/treewalk/controller"
)

// Record is the flat payload of one trap. Lists are comma separated.
type Record struct {
	Application string
	TriggeredBy string
	Nodes       string
	Txns        string
	Machines    string
	IPAddresses string
	Tiers       string
	EventTime   string
	Severity    string
	Type        string
	Subtype     string
	Summary     string
	Link        string
	Tag         string
	EventType   string
	IncidentID  string
	AccountID   string
}

// Field is a named record value.
type Field struct {
	Name  string
	Value string
}

// Fields returns the record in trap order. The position, counting from
// 1, is the sub-identifier of the field under the enterprise OID, so
// the order must never change.
func (r Record) Fields() []Field {
	return []Field{
		{"application", r.Application},
		{"triggeredBy", r.TriggeredBy},
		{"nodes", r.Nodes},
		{"txns", r.Txns},
		{"machines", r.Machines},
		{"ipAddresses", r.IPAddresses},
		{"tiers", r.Tiers},
		{"eventTime", r.EventTime},
		{"severity", r.Severity},
		{"type", r.Type},
		{"subtype", r.Subtype},
		{"summary", r.Summary},
		{"link", r.Link},
		{"tag", r.Tag},
		{"eventType", r.EventType},
		{"incidentId", r.IncidentID},
		{"accountId", r.AccountID},
	}
}

// Resolver answers questions about the application topology.
// controller.Client implements it.
type Resolver interface {
	NodesInTier(ctx context.Context, appID int, tier string) ([]controller.Node, error)
	Node(ctx context.Context, appID int, name string) ([]controller.Node, error)
	BusinessTransactions(ctx context.Context, appID int) ([]controller.BusinessTransaction, error)
}

var _ Resolver = (*controller.Client)(nil)

// Builder turns events into records. Resolver may be nil, in which case
// nothing is looked up and machine info is left blank.
type Builder struct {
	Config   treewalk.ControllerConfig
	Resolver Resolver
}

// FromHealthRuleViolation builds the record for a health rule violation.
// Lookup failures are logged and leave the affected fields short; only an
// application id that isn't a number is an error, and only when a lookup
// is needed.
func (b *Builder) FromHealthRuleViolation(ctx context.Context, ev *HealthRuleViolationEvent) (Record, error) {
	r := Record{
		Application: ev.AppName,
		TriggeredBy: ev.HealthRuleName,
		EventTime:   ev.PvnAlertTime,
		Severity:    ev.Severity,
		Type:        ev.AffectedEntityType,
		Subtype:     " ",
		Summary:     ev.SummaryMessage,
		Tag:         ev.Tag,
		EventType:   ev.EventType,
		IncidentID:  ev.IncidentID,
		AccountID:   CleanAccount(ev.AccountID),
	}
	if b.Config.Host != "" {
		r.Link = alertURL(ev.DeepLinkURL, ev.IncidentID)
	}
	bts := entities(ev, EntityBusinessTransaction)
	nodes := entities(ev, EntityNode)
	tiers := entities(ev, EntityTier)
	if len(tiers) == 0 && strings.EqualFold(ev.AffectedEntityType, EntityBusinessTransaction) && b.Resolver != nil {
		// A BT rule evaluated on the average over a tier only names the
		// application, so the tier has to come from the BT itself.
		tier, err := b.tierOfBT(ctx, ev)
		if err != nil {
			return r, err
		}
		if tier != "" {
			tiers = append(tiers, tier)
		}
	}
	r.Txns = strings.Join(bts, ",")
	r.Nodes = strings.Join(nodes, ",")
	r.Tiers = strings.Join(tiers, ",")

	if !b.Config.FetchMachineInfo || b.Resolver == nil {
		r.Machines = " "
		r.IPAddresses = " "
		return r, nil
	}
	appID, err := strconv.Atoi(strings.TrimSpace(ev.AppID))
	if err != nil {
		return r, fmt.Errorf("invalid application id %q: %w", ev.AppID, err)
	}
	var machines, addrs []string
	collect := func(ns []controller.Node) {
		for _, n := range ns {
			machines = append(machines, n.MachineName)
			addrs = append(addrs, n.IPAddresses...)
		}
	}
	treewalk.Debugf("affected tiers: %v, affected nodes: %v", tiers, nodes)
	for _, tier := range tiers {
		ns, err := b.Resolver.NodesInTier(ctx, appID, tier)
		if err != nil {
			treewalk.Logf("unable to get nodes in tier %s: %v", tier, err)
			continue
		}
		collect(ns)
	}
	for _, node := range nodes {
		ns, err := b.Resolver.Node(ctx, appID, node)
		if err != nil {
			treewalk.Logf("unable to get node %s: %v", node, err)
			continue
		}
		collect(ns)
	}
	r.Machines = strings.Join(machines, ",")
	r.IPAddresses = strings.Join(addrs, ",")
	return r, nil
}

func (b *Builder) tierOfBT(ctx context.Context, ev *HealthRuleViolationEvent) (string, error) {
	appID, err := strconv.Atoi(strings.TrimSpace(ev.AppID))
	if err != nil {
		return "", fmt.Errorf("invalid application id %q: %w", ev.AppID, err)
	}
	btID, err := strconv.Atoi(strings.TrimSpace(ev.AffectedEntityID))
	if err != nil {
		return "", fmt.Errorf("invalid business transaction id %q: %w", ev.AffectedEntityID, err)
	}
	bts, err := b.Resolver.BusinessTransactions(ctx, appID)
	if err != nil {
		treewalk.Logf("unable to get business transactions for application %d: %v", appID, err)
		return "", nil
	}
	for _, bt := range bts {
		if bt.ID == btID {
			return bt.TierName, nil
		}
	}
	return "", nil
}

// entities returns the affected entity if it has the given type,
// otherwise the evaluation entities of that type.
func entities(ev *HealthRuleViolationEvent, typ string) []string {
	if strings.EqualFold(ev.AffectedEntityType, typ) {
		return []string{ev.AffectedEntityName}
	}
	var ret []string
	for _, e := range ev.EvaluationEntities {
		if strings.EqualFold(e.Type, typ) {
			ret = append(ret, e.Name)
		}
	}
	return ret
}

// FromOther builds the record for any other notification.
func (b *Builder) FromOther(ev *OtherEvent) Record {
	r := Record{
		Application: ev.AppName,
		TriggeredBy: ev.EventNotificationName,
		Nodes:       " ",
		Txns:        " ",
		EventTime:   ev.EventNotificationTime,
		Severity:    ev.Severity,
		Subtype:     " ",
		Tag:         ev.Tag,
		EventType:   "NON_POLICY_EVENT",
		IncidentID:  ev.EventNotificationID,
		AccountID:   CleanAccount(ev.AccountID),
	}
	var sb strings.Builder
	for _, t := range ev.EventTypes {
		sb.WriteString(t.EventType)
		sb.WriteByte(' ')
	}
	r.Type = sb.String()
	sb.Reset()
	for _, s := range ev.EventSummaries {
		sb.WriteString(s.EventSummaryString)
		sb.WriteByte(' ')
	}
	r.Summary = sb.String()
	if b.Config.Host != "" {
		r.Link = alertURL(ev.DeepLinkURL, ev.EventNotificationID)
	}
	return r
}

// Build dispatches on the kind of event returned by Decode.
func (b *Builder) Build(ctx context.Context, ev any) (Record, error) {
	switch e := ev.(type) {
	case *HealthRuleViolationEvent:
		return b.FromHealthRuleViolation(ctx, e)
	case *OtherEvent:
		return b.FromOther(e), nil
	}
	return Record{}, fmt.Errorf("unsupported event type %T", ev)
}

// CleanAccount strips surrounding white space and quotes from an account
// id.
func CleanAccount(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// alertURL appends the id to a deep link that ends in a query parameter
// waiting for its value, and returns other links unchanged.
func alertURL(link string, id string) string {
	if link == "" {
		return ""
	}
	if strings.HasSuffix(link, "=") {
		return link + id
	}
	return link
}
