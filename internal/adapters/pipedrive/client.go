// Package pipedrive implements the CRM port against the Pipedrive
// REST API v1. Every response arrives in a {success, data, error}
// envelope; a false success flag is treated the same as a transport
// error.
package pipedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/observability"
)

const defaultBaseURL = "https://api.pipedrive.com/v1"

// listLimit matches the page size the origin jobs request; the
// pipelines involved stay far below it, so no pagination.
const listLimit = 500

type Client struct {
	baseURL  string
	apiToken string
	httpc    *http.Client
}

func New(apiToken string) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		apiToken: apiToken,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithBaseURL points the client at a different API root, used by
// tests against httptest servers.
func NewWithBaseURL(apiToken, baseURL string) *Client {
	c := New(apiToken)
	c.baseURL = baseURL
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_token", c.apiToken)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%s %s: pipedrive error: %s (status %d)", method, path, env.Error, resp.StatusCode)
	}
	if len(env.Data) == 0 {
		// some endpoints omit data entirely on success
		return json.RawMessage("null"), nil
	}
	return env.Data, nil
}

// ListStages fetches the stages of a pipeline, sorted by order_nr.
// The pipeline detail endpoint embeds them; when it does not, the
// /stages endpoint filtered by pipeline id is the fallback.
func (c *Client) ListStages(ctx context.Context, pipelineID string) ([]domain.Stage, error) {
	data, err := c.call(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(pipelineID), nil, nil)
	if err != nil {
		return nil, err
	}

	var pipeline struct {
		Stages []map[string]any `json:"stages"`
	}
	if err := json.Unmarshal(data, &pipeline); err != nil {
		return nil, fmt.Errorf("decoding pipeline %s: %w", pipelineID, err)
	}

	raw := pipeline.Stages
	if len(raw) == 0 {
		observability.LoggerFromContext(ctx).Info("pipeline detail carried no stages, falling back to /stages", "pipeline_id", pipelineID)
		raw, err = c.listStagesFallback(ctx, pipelineID)
		if err != nil {
			return nil, err
		}
	}

	return stagesFromMaps(raw), nil
}

func (c *Client) listStagesFallback(ctx context.Context, pipelineID string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("pipeline_id", pipelineID)
	data, err := c.call(ctx, http.MethodGet, "/stages", q, nil)
	if err != nil {
		return nil, err
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding stages of pipeline %s: %w", pipelineID, err)
	}
	return raw, nil
}

func stagesFromMaps(raw []map[string]any) []domain.Stage {
	sort.SliceStable(raw, func(i, j int) bool {
		return orderNr(raw[i]) < orderNr(raw[j])
	})
	stages := make([]domain.Stage, 0, len(raw))
	for _, m := range raw {
		name, _ := m["name"].(string)
		stages = append(stages, domain.Stage{
			ID:   domain.ScalarString(m["id"]),
			Name: name,
		})
	}
	return stages
}

func orderNr(m map[string]any) float64 {
	n, _ := m["order_nr"].(float64)
	return n
}

// ListOpenDeals fetches open deals of a pipeline. stageID may be
// empty to fetch across all stages.
func (c *Client) ListOpenDeals(ctx context.Context, pipelineID, stageID string) ([]*domain.Deal, error) {
	q := url.Values{}
	q.Set("pipeline_id", pipelineID)
	if stageID != "" {
		q.Set("stage_id", stageID)
	}
	q.Set("status", "open")
	q.Set("limit", strconv.Itoa(listLimit))

	data, err := c.call(ctx, http.MethodGet, "/deals", q, nil)
	if err != nil {
		return nil, err
	}

	// data is null when the stage holds nothing.
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding deals: %w", err)
	}

	deals := make([]*domain.Deal, 0, len(raw))
	for _, m := range raw {
		if d := domain.DealFromMap(m); d != nil {
			deals = append(deals, d)
		}
	}
	return deals, nil
}

func (c *Client) GetDeal(ctx context.Context, id string) (*domain.Deal, error) {
	data, err := c.call(ctx, http.MethodGet, "/deals/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding deal %s: %w", id, err)
	}
	return domain.DealFromMap(m), nil
}

func (c *Client) GetStage(ctx context.Context, id string) (*domain.Stage, error) {
	data, err := c.call(ctx, http.MethodGet, "/stages/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding stage %s: %w", id, err)
	}
	name, _ := m["name"].(string)
	return &domain.Stage{ID: domain.ScalarString(m["id"]), Name: name}, nil
}

// UpdateDealStage moves a deal to another stage. Pipedrive expects a
// numeric stage id; non-numeric ids are passed through as-is.
func (c *Client) UpdateDealStage(ctx context.Context, id, stageID string) error {
	return c.updateDeal(ctx, id, map[string]any{"stage_id": numericIfPossible(stageID)})
}

// UpdateDealField writes one field (typically the thread_ts custom
// field) back onto a deal.
func (c *Client) UpdateDealField(ctx context.Context, id, fieldKey, value string) error {
	return c.updateDeal(ctx, id, map[string]any{fieldKey: value})
}

func (c *Client) updateDeal(ctx context.Context, id string, fields map[string]any) error {
	_, err := c.call(ctx, http.MethodPut, "/deals/"+url.PathEscape(id), nil, fields)
	return err
}

func numericIfPossible(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
