// Package classifier turns raw Pipedrive change notifications into
// semantic events. Pipedrive has shipped several webhook schemas over
// the years (v1 top-level current/previous, v2 nested under data,
// bare deal objects), so every probe below follows a fixed precedence
// instead of ad-hoc lookups.
package classifier

import (
	"context"
	"strings"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

const trackedEntity = "deal"

const (
	actionAdded   = "added"
	actionUpdated = "updated"
)

// Classify decides whether body represents a deal creation, a stage
// transition, or nothing actionable. Creation is checked before stage
// change so a first-ever notification is never read as a transition.
func Classify(ctx context.Context, body map[string]any) domain.Event {
	if len(body) == 0 || !isDealNotification(body) {
		return domain.Ignored()
	}

	current, previous := snapshots(body)
	if current == nil {
		return domain.Ignored()
	}

	action := notificationAction(body)

	if action == actionAdded || (action == "" && previous == nil) {
		return domain.Created(current)
	}

	if (action == actionUpdated || previous != nil) &&
		current.StageID != "" && previous != nil && previous.StageID != "" &&
		previous.StageID != current.StageID {
		return domain.StageChanged(current, previous.StageID, current.StageID)
	}

	observability.LoggerFromContext(ctx).Debug("deal notification without actionable change",
		"deal_id", current.ID, "action", action)
	return domain.Ignored()
}

func isDealNotification(body map[string]any) bool {
	if meta := asMap(body["meta"]); meta != nil {
		for _, key := range []string{"object", "entity", "type"} {
			if strings.EqualFold(domain.ScalarString(meta[key]), trackedEntity) {
				return true
			}
		}
	}
	if strings.EqualFold(domain.ScalarString(body["object"]), trackedEntity) {
		return true
	}
	if strings.HasPrefix(eventName(body), trackedEntity+".") {
		return true
	}
	if asMap(body["current"]) != nil || asMap(body["data"]) != nil {
		return true
	}
	return false
}

// snapshots extracts the current and previous deal states. First
// matching location wins: top-level current/previous, then the data
// wrapper (data.current/data.previous, data.deal, data itself), then
// a bare deal field.
func snapshots(body map[string]any) (current, previous *domain.Deal) {
	if cur := asMap(body["current"]); cur != nil {
		return domain.DealFromMap(cur), domain.DealFromMap(asMap(body["previous"]))
	}

	if data := asMap(body["data"]); data != nil {
		if cur := asMap(data["current"]); cur != nil {
			return domain.DealFromMap(cur), domain.DealFromMap(asMap(data["previous"]))
		}
		if deal := asMap(data["deal"]); deal != nil {
			return domain.DealFromMap(deal), domain.DealFromMap(asMap(data["previous"]))
		}
		return domain.DealFromMap(data), domain.DealFromMap(asMap(body["previous"]))
	}

	if deal := asMap(body["deal"]); deal != nil {
		return domain.DealFromMap(deal), domain.DealFromMap(asMap(body["previous"]))
	}

	return nil, nil
}

// notificationAction normalizes the declared or inferred action to
// "added", "updated" or "".
func notificationAction(body map[string]any) string {
	if meta := asMap(body["meta"]); meta != nil {
		switch strings.ToLower(domain.ScalarString(meta["action"])) {
		case "added":
			return actionAdded
		case "updated", "change":
			return actionUpdated
		}
	}

	ev := strings.ToLower(eventName(body))
	if strings.Contains(ev, "added") || strings.Contains(ev, "created") {
		return actionAdded
	}
	if strings.Contains(ev, "updated") || strings.Contains(ev, "changed") {
		return actionUpdated
	}
	return ""
}

func eventName(body map[string]any) string {
	if ev, ok := body["event"].(string); ok && ev != "" {
		return ev
	}
	ev, _ := body["event_type"].(string)
	return ev
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	if len(m) == 0 {
		return nil
	}
	return m
}
