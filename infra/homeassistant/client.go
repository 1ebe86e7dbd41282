// Package homeassistant reads and writes long-term statistics through the
// Home Assistant REST API.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kilianp07/vbattery/core/stats"
	"github.com/kilianp07/vbattery/infra/logger"
)

const (
	statsPath  = "/api/long_term_stats"
	importPath = "/api/services/recorder/import_statistics"

	// TimeLayout is the timestamp format the statistics endpoints expect.
	TimeLayout = "2006-01-02 15:04:05-07:00"
)

// StatusError is returned when the API answers with an unexpected status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client implements stats.Source and stats.Sink.
type Client struct {
	baseURL string
	http    *http.Client
	loc     *time.Location
	source  string
	log     logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLogger overrides the default component logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSource sets the "source" field of imported statistics.
func WithSource(src string) Option {
	return func(c *Client) { c.source = src }
}

// NewClient creates a client for baseURL. httpClient is expected to carry the
// authentication; timestamps are sent and returned in loc.
func NewClient(baseURL string, httpClient *http.Client, loc *time.Location, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if loc == nil {
		loc = time.UTC
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		loc:     loc,
		source:  "recorder",
		log:     logger.New("homeassistant"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FormatTime renders t the way the statistics endpoints expect it.
func (c *Client) FormatTime(t time.Time) string {
	return t.In(c.loc).Format(TimeLayout)
}

type pointResponse struct {
	Message *stats.Point `json:"message"`
}

type rangeEntry struct {
	StartTS float64  `json:"start_ts"`
	Sum     *float64 `json:"sum"`
}

type rangeResponse struct {
	Message []rangeEntry `json:"message"`
}

// Point returns the statistic of sensorID at the given time. A non-200
// answer means the store has no value and yields (nil, nil).
func (c *Client) Point(ctx context.Context, sensorID string, at time.Time) (*stats.Point, error) {
	q := url.Values{}
	q.Set("entity_id", sensorID)
	q.Set("datetime", c.FormatTime(at))
	body, ok, err := c.get(ctx, q)
	if err != nil || !ok {
		return nil, err
	}
	var resp pointResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode statistic %s: %w", sensorID, err)
	}
	if resp.Message == nil {
		return nil, nil
	}
	c.log.Debugw("found previous statistic", map[string]any{"sensor": sensorID})
	return resp.Message, nil
}

// Range returns the hourly entries of sensorID between start and end
// inclusive, ordered by start time.
func (c *Client) Range(ctx context.Context, sensorID string, start, end time.Time) ([]stats.Entry, error) {
	q := url.Values{}
	q.Set("entity_id", sensorID)
	q.Set("datetime", c.FormatTime(start))
	q.Set("end_datetime", c.FormatTime(end))
	body, ok, err := c.get(ctx, q)
	if err != nil || !ok {
		return nil, err
	}
	var resp rangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode statistics %s: %w", sensorID, err)
	}
	out := make([]stats.Entry, 0, len(resp.Message))
	for i, e := range resp.Message {
		if e.Sum == nil {
			return nil, fmt.Errorf("statistics %s: entry %d has no sum", sensorID, i)
		}
		out = append(out, stats.Entry{Start: c.epoch(e.StartTS), Sum: *e.Sum})
	}
	return out, nil
}

func (c *Client) epoch(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).In(c.loc)
}

// get performs a statistics query. ok is false when the API reports no data.
func (c *Client) get(ctx context.Context, q url.Values) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Debugw("no statistic found", map[string]any{
			"entity_id": q.Get("entity_id"),
			"status":    resp.StatusCode,
		})
		return nil, false, nil
	}
	return body, true, nil
}

type importStat struct {
	Start string   `json:"start"`
	State *float64 `json:"state,omitempty"`
	Sum   *float64 `json:"sum,omitempty"`
}

type importPayload struct {
	HasMean     bool         `json:"has_mean"`
	HasSum      bool         `json:"has_sum"`
	Source      string       `json:"source"`
	Name        string       `json:"name"`
	StatisticID string       `json:"statistic_id"`
	Unit        string       `json:"unit_of_measurement"`
	Stats       []importStat `json:"stats"`
}

func (c *Client) payload(imp stats.Import) importPayload {
	p := importPayload{
		HasMean:     imp.HasMean,
		HasSum:      imp.Kind == stats.KindSum,
		Source:      c.source,
		Name:        imp.Name,
		StatisticID: imp.StatisticID,
		Unit:        imp.Unit,
		Stats:       make([]importStat, len(imp.Points)),
	}
	for i, pt := range imp.Points {
		v := pt.Value
		st := importStat{Start: c.FormatTime(pt.Start)}
		if imp.Kind == stats.KindSum {
			st.Sum = &v
		} else {
			st.State = &v
		}
		p.Stats[i] = st
	}
	return p
}

// Import submits a series through the recorder import service. Any status
// other than 200 or 201 is returned as a *StatusError.
func (c *Client) Import(ctx context.Context, imp stats.Import) error {
	data, err := json.Marshal(c.payload(imp))
	if err != nil {
		return fmt.Errorf("encode %s: %w", imp.StatisticID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+importPath, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
