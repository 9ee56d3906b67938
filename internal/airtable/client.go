package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guanago/guanago/pkg/metrics"
)

const (
	defaultBaseURL = "https://api.airtable.com/v0"
	defaultTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read; Airtable
	// pages are small and anything larger indicates a broken upstream.
	maxResponseBytes = 4 << 20
)

// ErrNotConfigured is returned when the client is missing an API key or base ID.
var ErrNotConfigured = errors.New("airtable: api key and base id are required")

// Config holds the connection parameters for an Airtable base.
type Config struct {
	APIKey  string
	BaseID  string
	BaseURL string // override for tests
	Timeout time.Duration
}

// Record is a single row of an Airtable table.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime time.Time      `json:"createdTime"`
}

// ListOptions narrows a table listing.
type ListOptions struct {
	FilterByFormula string
	MaxRecords      int
}

type listResponse struct {
	Records []Record `json:"records"`
}

// Client is a thin REST client for an Airtable base. The base is treated as
// an opaque table store: callers get ordered flat records back and own any
// field interpretation.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client. A client with missing credentials is still
// usable for Configured checks; ListRecords will fail fast.
func NewClient(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseID = strings.TrimSpace(cfg.BaseID)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether remote access is possible at all. Absence of
// credentials gates every remote strategy in the application.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.BaseID != ""
}

// ListRecords fetches records from the named table, applying the optional
// server-side formula filter and record cap.
func (c *Client) ListRecords(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if ctx == nil {
		ctx = context.Background()
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("airtable: table name is required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.BaseID, url.PathEscape(table))

	query := url.Values{}
	if opts.FilterByFormula != "" {
		query.Set("filterByFormula", opts.FilterByFormula)
	}
	if opts.MaxRecords > 0 {
		query.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("airtable: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.AirtableRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("airtable: list %s: %w", table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.AirtableRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("airtable: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.AirtableRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("airtable: list %s: unexpected status %d", table, resp.StatusCode)
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.AirtableRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("airtable: decode response: %w", err)
	}

	metrics.AirtableRequests.WithLabelValues(table, "ok").Inc()
	return parsed.Records, nil
}

// QuoteFormulaString escapes a value for embedding into a filterByFormula
// string literal.
func QuoteFormulaString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "\\'") + "'"
}

// StringField returns the first matching field as a trimmed string, trying
// each name in order. Numeric values round-trip through a decimal rendering
// so a PIN stored as a number still compares as text.
func (r Record) StringField(names ...string) string {
	for _, name := range names {
		value, ok := r.Fields[name]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}

// BoolField interprets checkbox-style fields, accepting native booleans and
// the string spellings that show up in hand-edited tables.
func (r Record) BoolField(names ...string) bool {
	for _, name := range names {
		value, ok := r.Fields[name]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case string:
			lowered := strings.ToLower(strings.TrimSpace(v))
			return lowered == "true" || lowered == "si" || lowered == "sí" || lowered == "yes" || lowered == "1"
		case float64:
			return v != 0
		}
	}
	return false
}
