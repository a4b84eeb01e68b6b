// Package payload normalizes raw inbound POST bodies. Slack delivers
// slash commands and interactions as urlencoded forms (interactions
// wrapped in a `payload` JSON field), Pipedrive delivers webhooks as
// bare JSON; the dispatcher should not care which arrived.
package payload

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/slack-go/slack"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

// Normalized is the canonical reading of one inbound body. Absent
// parts stay zero: routing simply finds no match.
type Normalized struct {
	Command     string
	TriggerID   string
	Interaction *slack.InteractionCallback
	Webhook     map[string]any
}

// Normalize parses raw into its canonical shape. Parse failures are
// logged and degrade to an empty body; nothing here has side effects.
func Normalize(ctx context.Context, raw []byte) Normalized {
	body := parseBody(ctx, raw)

	n := Normalized{Webhook: body}
	n.Command, _ = body["command"].(string)
	n.TriggerID, _ = body["trigger_id"].(string)

	if p, ok := body["payload"].(string); ok && p != "" {
		var cb slack.InteractionCallback
		if err := json.Unmarshal([]byte(p), &cb); err != nil {
			observability.LoggerFromContext(ctx).Warn("interaction payload not parseable", "error", err)
		} else {
			n.Interaction = &cb
		}
	}

	return n
}

func parseBody(ctx context.Context, raw []byte) map[string]any {
	log := observability.LoggerFromContext(ctx)

	s := strings.TrimSpace(string(raw))
	if s == "" {
		return map[string]any{}
	}

	if strings.HasPrefix(s, "{") {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			log.Warn("body looked like JSON but did not parse", "error", err)
			return map[string]any{}
		}
		return m
	}

	vals, err := url.ParseQuery(s)
	if err != nil {
		log.Warn("body did not parse as form data", "error", err)
		return map[string]any{}
	}
	m := make(map[string]any, len(vals))
	for k, vs := range vals {
		if len(vs) > 0 {
			m[k] = vs[0]
		}
	}
	return m
}
