package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to a Supabase project's PostgREST interface. Every durable
// entity lives behind it; the application keeps no SQL connection at all.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func New(baseURL, apiKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// APIError carries the upstream PostgREST status and raw error body so
// handlers can pass both through to the caller.
type APIError struct {
	Status int
	Table  string
	Body   json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %s returned %d: %s", e.Table, e.Status, string(e.Body))
}

// Eq formats a PostgREST equality filter value, e.g. params.Set("id", Eq(7)).
func Eq(v interface{}) string {
	return fmt.Sprintf("eq.%v", v)
}

func (c *Client) do(ctx context.Context, method, table string, params url.Values, payload interface{}, prefer string) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL + "/rest/v1/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	c.log.Debug("supabase request",
		zap.String("method", method),
		zap.String("table", table),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Table: table, Body: data}
	}
	if resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Select fetches rows into dest (a pointer to a slice).
func (c *Client) Select(ctx context.Context, table string, params url.Values, dest interface{}) error {
	data, err := c.do(ctx, http.MethodGet, table, params, nil, "")
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// SelectOne fetches at most one row into dest. The boolean reports whether a
// row was found.
func (c *Client) SelectOne(ctx context.Context, table string, params url.Values, dest interface{}) (bool, error) {
	p := url.Values{}
	for k, vs := range params {
		p[k] = vs
	}
	p.Set("limit", "1")

	var rows []json.RawMessage
	if err := c.Select(ctx, table, p, &rows); err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	return true, json.Unmarshal(rows[0], dest)
}

// Insert creates rows and, when dest is non-nil, decodes the representation
// returned by PostgREST into it (dest must be a pointer to a slice).
func (c *Client) Insert(ctx context.Context, table string, payload, dest interface{}) error {
	prefer := ""
	if dest != nil {
		prefer = "return=representation"
	}
	data, err := c.do(ctx, http.MethodPost, table, nil, payload, prefer)
	if err != nil {
		return err
	}
	if dest == nil || data == nil {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// Upsert inserts rows, merging on conflict with the given comma-separated
// column list.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, payload interface{}) error {
	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	_, err := c.do(ctx, http.MethodPost, table, params, payload, "resolution=merge-duplicates")
	return err
}

// Update patches rows matching params and optionally decodes the returned
// representation into dest (a pointer to a slice).
func (c *Client) Update(ctx context.Context, table string, params url.Values, payload, dest interface{}) error {
	prefer := ""
	if dest != nil {
		prefer = "return=representation"
	}
	data, err := c.do(ctx, http.MethodPatch, table, params, payload, prefer)
	if err != nil {
		return err
	}
	if dest == nil || data == nil {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// Delete removes rows matching params.
func (c *Client) Delete(ctx context.Context, table string, params url.Values) error {
	_, err := c.do(ctx, http.MethodDelete, table, params, nil, "")
	return err
}
