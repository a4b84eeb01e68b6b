package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestDealFromMapRESTShape(t *testing.T) {
	m := decode(t, `{
		"id": 42,
		"title": "  Acme Hotel ",
		"owner_id": {"id": 321, "name": "Tanaka"},
		"stage_id": 7,
		"stage_change_time": "2025-06-01 09:00:00",
		"b459bec642f11294904272a4fe6273d3591b9566": "2025-07-01"
	}`)

	d := domain.DealFromMap(m)
	require.NotNil(t, d)
	assert.Equal(t, "42", d.ID)
	assert.Equal(t, "Acme Hotel", d.Title)
	assert.Equal(t, "321", d.OwnerID)
	assert.Equal(t, "7", d.StageID)
	assert.Equal(t, "2025-06-01 09:00:00", d.StageChangeTime)
	assert.Equal(t, "2025-07-01", d.CustomField("b459bec642f11294904272a4fe6273d3591b9566"))
}

func TestDealFromMapWebhookShape(t *testing.T) {
	m := decode(t, `{"id": 555, "title": "Acme", "owner_id": 321}`)

	d := domain.DealFromMap(m)
	require.NotNil(t, d)
	assert.Equal(t, "555", d.ID)
	assert.Equal(t, "321", d.OwnerID)
	assert.Empty(t, d.StageID)
}

func TestDealFromMapUserIDFallback(t *testing.T) {
	d := domain.DealFromMap(decode(t, `{"id": 1, "user_id": 99}`))
	require.NotNil(t, d)
	assert.Equal(t, "99", d.OwnerID)
}

func TestDealFromMapEmpty(t *testing.T) {
	assert.Nil(t, domain.DealFromMap(nil))
	assert.Nil(t, domain.DealFromMap(map[string]any{}))
}

func TestLabelFallsBackToID(t *testing.T) {
	d := &domain.Deal{ID: "10"}
	assert.Equal(t, "案件 10", d.Label())

	d.Title = "Acme"
	assert.Equal(t, "Acme", d.Label())
}

func TestCustomFieldUnwrapsValueWrapper(t *testing.T) {
	d := domain.DealFromMap(decode(t, `{"id": 1, "field_a": {"value": "1718000000.123456"}, "field_b": "plain"}`))
	require.NotNil(t, d)

	assert.Equal(t, "1718000000.123456", d.CustomField("field_a"))
	assert.Equal(t, "plain", d.CustomField("field_b"))
	assert.Empty(t, d.CustomField("missing"))
	assert.Empty(t, d.CustomField(""))
}

func TestScalarStringNumbers(t *testing.T) {
	assert.Equal(t, "555", domain.ScalarString(float64(555)))
	assert.Equal(t, "1.5", domain.ScalarString(1.5))
	assert.Equal(t, "x", domain.ScalarString(" x "))
	assert.Empty(t, domain.ScalarString(nil))
	assert.Empty(t, domain.ScalarString([]any{}))
}
