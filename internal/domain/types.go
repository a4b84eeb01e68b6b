package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Stage is one step of the Pipedrive pipeline. Ids are opaque; the
// name is the human-facing key notification rules match on.
type Stage struct {
	ID   string
	Name string
}

// Deal is a partial or full view of a Pipedrive deal. Webhook
// snapshots carry fewer fields than a direct fetch; ID is the only
// field an actionable reference is guaranteed to have.
type Deal struct {
	ID              string
	Title           string
	OwnerID         string
	StageID         string
	StageName       string
	StageChangeTime string

	// Custom keeps the full decoded object so hash-keyed custom
	// fields stay reachable.
	Custom map[string]any
}

// Label returns the deal title, falling back to an id-based label
// when the title is absent.
func (d *Deal) Label() string {
	if d == nil {
		return "不明"
	}
	if d.Title != "" {
		return d.Title
	}
	return fmt.Sprintf("案件 %s", d.ID)
}

// CustomField returns the custom-field value for key as a string.
// Pipedrive delivers custom fields either as a bare scalar or wrapped
// in {"value": ...}; both forms are unwrapped. Empty string means
// absent.
func (d *Deal) CustomField(key string) string {
	if d == nil || key == "" || d.Custom == nil {
		return ""
	}
	v, ok := d.Custom[key]
	if !ok {
		return ""
	}
	if wrapped, ok := v.(map[string]any); ok {
		return ScalarString(wrapped["value"])
	}
	return ScalarString(v)
}

// DealFromMap builds a Deal from a decoded JSON object, tolerating
// the shape differences between webhook snapshots and REST responses.
// Returns nil for an empty object.
func DealFromMap(m map[string]any) *Deal {
	if len(m) == 0 {
		return nil
	}
	d := &Deal{Custom: m}
	d.ID = ScalarString(m["id"])
	if t, ok := m["title"].(string); ok {
		d.Title = strings.TrimSpace(t)
	}
	d.OwnerID = ownerIDFrom(m)
	d.StageID = ScalarString(m["stage_id"])
	if n, ok := m["stage_name"].(string); ok {
		d.StageName = n
	}
	if t, ok := m["stage_change_time"].(string); ok {
		d.StageChangeTime = t
	}
	return d
}

// Owner info arrives as a bare id under owner_id or user_id, or as an
// embedded user object carrying its own id.
func ownerIDFrom(m map[string]any) string {
	for _, key := range []string{"owner_id", "user_id"} {
		switch v := m[key].(type) {
		case map[string]any:
			if id := ScalarString(v["id"]); id != "" {
				return id
			}
		default:
			if id := ScalarString(v); id != "" {
				return id
			}
		}
	}
	return ""
}

// ScalarString renders a decoded JSON scalar as a string. Numeric ids
// come off the wire as float64; integral values must not grow a
// decimal point.
func ScalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
