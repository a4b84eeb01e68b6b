package classifier_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/app/classifier"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
)

func classify(t *testing.T, raw string) domain.Event {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	return classifier.Classify(context.Background(), body)
}

func TestNonDealBodiesAreIgnored(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":            `{}`,
		"other entity":     `{"meta":{"object":"person","action":"added"}}`,
		"unrelated fields": `{"command":"/move-deal","trigger_id":"t"}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, domain.EventIgnored, classify(t, raw).Kind)
		})
	}
}

func TestMissingCurrentSnapshotIsIgnored(t *testing.T) {
	// recognized as a deal notification but nothing to act on
	ev := classify(t, `{"meta":{"object":"deal","action":"updated"},"previous":{"id":1,"stage_id":2}}`)
	assert.Equal(t, domain.EventIgnored, ev.Kind)
}

func TestAddedActionAlwaysClassifiesAsCreated(t *testing.T) {
	// a coincidentally-present previous must not turn this into a transition
	ev := classify(t, `{
		"meta": {"object": "deal", "action": "added"},
		"current": {"id": 555, "title": "Acme", "owner_id": 321},
		"previous": {"id": 555, "stage_id": 1}
	}`)

	require.Equal(t, domain.EventCreated, ev.Kind)
	assert.Equal(t, "555", ev.Deal.ID)
	assert.Equal(t, "Acme", ev.Deal.Title)
	assert.Equal(t, "321", ev.Deal.OwnerID)
}

func TestNoActionAndNoPreviousIsCreated(t *testing.T) {
	ev := classify(t, `{"meta":{"object":"deal"},"current":{"id":9,"title":"New"}}`)
	assert.Equal(t, domain.EventCreated, ev.Kind)
}

func TestStageChange(t *testing.T) {
	ev := classify(t, `{
		"current": {"id": 1, "stage_id": 2, "stage_name": "agent調整完了"},
		"previous": {"stage_id": 1}
	}`)

	require.Equal(t, domain.EventStageChanged, ev.Kind)
	assert.Equal(t, "1", ev.PreviousStageID)
	assert.Equal(t, "2", ev.CurrentStageID)
	assert.Equal(t, "agent調整完了", ev.Deal.StageName)
}

func TestEqualStageIDsNeverClassifyAsStageChange(t *testing.T) {
	ev := classify(t, `{
		"meta": {"object": "deal", "action": "updated"},
		"current": {"id": 1, "stage_id": 3},
		"previous": {"id": 1, "stage_id": 3}
	}`)
	assert.Equal(t, domain.EventIgnored, ev.Kind)
}

func TestUpdateWithoutStageIDsIsIgnored(t *testing.T) {
	ev := classify(t, `{
		"meta": {"object": "deal", "action": "updated"},
		"current": {"id": 1, "title": "renamed"},
		"previous": {"id": 1, "title": "old"}
	}`)
	assert.Equal(t, domain.EventIgnored, ev.Kind)
}

func TestMetaActionChangeNormalizesToUpdated(t *testing.T) {
	ev := classify(t, `{
		"meta": {"entity": "deal", "action": "change"},
		"current": {"id": 1, "stage_id": 5},
		"previous": {"id": 1, "stage_id": 4}
	}`)
	assert.Equal(t, domain.EventStageChanged, ev.Kind)
}

func TestEventNameRecognitionAndInference(t *testing.T) {
	ev := classify(t, `{"event":"deal.added","current":{"id":7}}`)
	assert.Equal(t, domain.EventCreated, ev.Kind)

	ev = classify(t, `{"event_type":"deal.updated","current":{"id":7,"stage_id":2},"previous":{"stage_id":1}}`)
	assert.Equal(t, domain.EventStageChanged, ev.Kind)
}

func TestNestedDataShapes(t *testing.T) {
	ev := classify(t, `{"data":{"current":{"id":5,"stage_id":2},"previous":{"stage_id":1}}}`)
	require.Equal(t, domain.EventStageChanged, ev.Kind)

	ev = classify(t, `{"object":"deal","data":{"deal":{"id":6,"title":"Nested"}}}`)
	require.Equal(t, domain.EventCreated, ev.Kind)
	assert.Equal(t, "6", ev.Deal.ID)

	ev = classify(t, `{"object":"deal","data":{"id":8,"title":"Bare"}}`)
	require.Equal(t, domain.EventCreated, ev.Kind)
	assert.Equal(t, "8", ev.Deal.ID)
}

func TestBareDealField(t *testing.T) {
	ev := classify(t, `{"object":"deal","deal":{"id":11}}`)
	require.Equal(t, domain.EventCreated, ev.Kind)
	assert.Equal(t, "11", ev.Deal.ID)
}
