/*
 * treewalk alert events
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
Package alert turns alert notifications from the application monitoring
controller into flat records that can be sent as SNMP traps.

There are two kinds of notification: health rule violations, which point
at an affected entity (a node, a tier or a business transaction), and
everything else, which only carries summaries.
*/
package alert

import (
	"encoding/json"
	"fmt"
	"io"
)

// Entity types as the controller names them. Matching is case
// insensitive.
const (
	EntityNode                = "APPLICATION_COMPONENT_NODE"
	EntityTier                = "APPLICATION_COMPONENT"
	EntityBusinessTransaction = "BUSINESS_TRANSACTION"
)

// EvaluationEntity is one of the entities a health rule was evaluated
// against.
type EvaluationEntity struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// HealthRuleViolationEvent is sent when a health rule changes state.
type HealthRuleViolationEvent struct {
	AppName            string             `json:"appName"`
	AppID              string             `json:"appID"`
	HealthRuleName     string             `json:"healthRuleName"`
	HealthRuleID       string             `json:"healthRuleID"`
	PvnAlertTime       string             `json:"pvnAlertTime"`
	Severity           string             `json:"severity"`
	AffectedEntityType string             `json:"affectedEntityType"`
	AffectedEntityName string             `json:"affectedEntityName"`
	AffectedEntityID   string             `json:"affectedEntityID"`
	SummaryMessage     string             `json:"summaryMessage"`
	Tag                string             `json:"tag"`
	EventType          string             `json:"eventType"`
	IncidentID         string             `json:"incidentID"`
	AccountID          string             `json:"accountId"`
	DeepLinkURL        string             `json:"deepLinkUrl"`
	EvaluationEntities []EvaluationEntity `json:"evaluationEntity"`
}

// EventType is a type tag on an OtherEvent.
type EventType struct {
	EventType    string `json:"eventType"`
	EventTypeNum int    `json:"eventTypeNum"`
}

// EventSummary is one of the events an OtherEvent notifies about.
type EventSummary struct {
	EventSummaryID       string `json:"eventSummaryId"`
	EventSummaryTime     string `json:"eventSummaryTime"`
	EventSummaryType     string `json:"eventSummaryType"`
	EventSummarySeverity string `json:"eventSummarySeverity"`
	EventSummaryString   string `json:"eventSummaryString"`
}

// OtherEvent covers every notification that isn't a health rule
// violation.
type OtherEvent struct {
	AppName               string         `json:"appName"`
	AppID                 string         `json:"appID"`
	EventNotificationName string         `json:"eventNotificationName"`
	EventNotificationID   string         `json:"eventNotificationId"`
	EventNotificationTime string         `json:"eventNotificationTime"`
	Severity              string         `json:"severity"`
	EventTypes            []EventType    `json:"eventTypes"`
	EventSummaries        []EventSummary `json:"eventSummaries"`
	Tag                   string         `json:"tag"`
	AccountID             string         `json:"accountId"`
	DeepLinkURL           string         `json:"deepLinkUrl"`
}

// Decode reads one notification and returns either a
// *HealthRuleViolationEvent or an *OtherEvent.
func Decode(r io.Reader) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read event: %w", err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, fmt.Errorf("event is not a json object: %w", err)
	}
	if _, ok := probe["healthRuleName"]; ok {
		ev := &HealthRuleViolationEvent{}
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, fmt.Errorf("malformed health rule violation event: %w", err)
		}
		return ev, nil
	}
	if _, ok := probe["eventNotificationName"]; ok {
		ev := &OtherEvent{}
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, fmt.Errorf("malformed event: %w", err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("unknown event kind, neither healthRuleName nor eventNotificationName is present")
}
