// Package ownermap resolves Pipedrive owner ids to Slack member ids
// from a YAML file of the form `owner_id: slack_member_id`.
package ownermap

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

// Directory loads the mapping lazily on first lookup and never
// reloads it for the process lifetime; a stale mapping is accepted
// over mid-request churn. A missing file or a parse error yields an
// empty mapping, so every lookup just misses.
type Directory struct {
	path string
	once sync.Once
	m    map[string]string
}

func New(path string) *Directory {
	return &Directory{path: path}
}

func (d *Directory) SlackID(ownerID string) (string, bool) {
	d.once.Do(d.load)
	id, ok := d.m[ownerID]
	return id, ok && id != ""
}

func (d *Directory) load() {
	d.m = map[string]string{}

	if d.path == "" {
		return
	}

	log := observability.Logger()

	raw, err := os.ReadFile(d.path)
	if err != nil {
		log.Warn("owner map not readable, mentions fall back to raw ids", "path", d.path, "error", err)
		return
	}

	// owner ids are numeric, so keys usually arrive unquoted as YAML
	// ints; decode loosely and stringify both sides
	var parsed map[any]any
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		log.Warn("owner map not parseable, mentions fall back to raw ids", "path", d.path, "error", err)
		return
	}

	for k, v := range parsed {
		key := strings.TrimSpace(fmt.Sprint(k))
		val := strings.TrimSpace(fmt.Sprint(v))
		if key != "" && val != "" {
			d.m[key] = val
		}
	}
	log.Info("owner map loaded", "path", d.path, "entries", len(d.m))
}
