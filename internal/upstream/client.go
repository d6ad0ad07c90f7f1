// Package upstream talks to the call-record API that stores captured legacy
// pages, and normalizes its loosely shaped payloads.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/dialwatch/internal/monitor"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

const maxBodyBytes = 10 * 1024 * 1024

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("unexpected status")

// ListParams selects a page of the call-record listing.
type ListParams struct {
	Page       int
	Limit      int
	RecordType string
}

// Client is a call-record API client.
type Client struct {
	baseURL     string
	token       string
	durationURL string
	http        *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDurationURL sets the live call-duration endpoint.
func WithDurationURL(u string) Option {
	return func(c *Client) { c.durationURL = u }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches one page of the call-record listing.
func (c *Client) List(ctx context.Context, p ListParams) ([]Entry, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.RecordType != "" {
		q.Set("recordType", p.RecordType)
	}
	u := c.baseURL + "/call-records"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("upstream: list: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("upstream: list: http %d: %w", status, ErrStatus)
	}
	return DecodeList(body), nil
}

// Latest fetches the newest record of recordType. A 404 yields nil, nil.
func (c *Client) Latest(ctx context.Context, recordType string) (*Entry, error) {
	u := c.baseURL + "/call-records/latest/" + url.PathEscape(recordType)
	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("upstream: latest %s: %w", recordType, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("upstream: latest %s: http %d: %w", recordType, status, ErrStatus)
	}

	var wrapped struct {
		Data *Entry `json:"data"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var e Entry
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("upstream: latest %s: decode: %w", recordType, err)
	}
	if e.ID == "" && e.URL == "" && e.Body() == "" {
		return nil, nil
	}
	return &e, nil
}

// FetchWorkingSet runs one full resync fetch: the first page of the call
// list plus the latest peer-status and campaign-controller records. Failing
// latest lookups are logged and skipped; a failing list fails the fetch.
func (c *Client) FetchWorkingSet(ctx context.Context, p ListParams) ([]monitor.CapturedPage, error) {
	latestTypes := []string{monitor.RecordTypePeerStatus, monitor.RecordTypeCampaignController}
	latest := make([]*Entry, len(latestTypes))

	var wg sync.WaitGroup
	for i, rt := range latestTypes {
		wg.Add(1)
		go func(i int, rt string) {
			defer wg.Done()
			e, err := c.Latest(ctx, rt)
			if err != nil {
				log.Printf("upstream: %v", err)
				return
			}
			latest[i] = e
		}(i, rt)
	}

	entries, err := c.List(ctx, p)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	pages := make([]monitor.CapturedPage, 0, len(entries)+len(latest))
	for _, e := range entries {
		pages = append(pages, e.ToPage())
	}
	for _, e := range latest {
		if e != nil {
			pages = append(pages, e.ToPage())
		}
	}
	return pages, nil
}

// durationSample is the loose wire shape of one live-duration entry.
type durationSample struct {
	CalledNumber string   `json:"calledNumber"`
	Agent        *FlexInt `json:"agent"`
	Duration     *FlexInt `json:"duration"`
	CreatedAt    FlexTime `json:"createdAt"`
}

// DurationSnapshot fetches the live call-duration snapshot. Without a
// configured endpoint it returns nil, nil.
func (c *Client) DurationSnapshot(ctx context.Context) ([]monitor.DurationSample, error) {
	if c.durationURL == "" {
		return nil, nil
	}
	body, status, err := c.get(ctx, c.durationURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: duration snapshot: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("upstream: duration snapshot: http %d: %w", status, ErrStatus)
	}

	var raw []durationSample
	for _, item := range listItems(body) {
		var s durationSample
		if json.Unmarshal(item, &s) == nil {
			raw = append(raw, s)
		}
	}

	out := make([]monitor.DurationSample, 0, len(raw))
	for _, s := range raw {
		if s.CalledNumber == "" || s.Agent == nil || s.Duration == nil {
			continue
		}
		d := int(*s.Duration)
		if d < 0 {
			d = 0
		}
		out = append(out, monitor.DurationSample{
			CalledNumber: s.CalledNumber,
			Agent:        int(*s.Agent),
			Duration:     d,
			CreatedAt:    s.CreatedAt.Time,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
