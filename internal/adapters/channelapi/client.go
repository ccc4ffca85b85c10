// internal/adapters/channelapi/client.go
package channelapi

import (
	"bytes"
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

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"flex_reviews/internal/adapters/observability"
)

// Config describes one remote review source of the priority chain.
type Config struct {
	Name     string // label in logs/metrics, e.g. "hostaway"
	URL      string // full reviews endpoint
	Token    string // bearer token; optional for mirrors
	RPS      int
	PageSize int // 0 fetches the endpoint once without paging params
	Workers  int // concurrent page requests after the first page
}

type Client struct {
	name     string
	endpoint *url.URL
	token    string
	hc       *http.Client
	rl       *rate.Limiter
	pageSize int
	workers  int
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%s: endpoint URL is required", cfg.Name)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: bad endpoint URL: %w", cfg.Name, err)
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Name == "" {
		cfg.Name = u.Host
	}
	return &Client{
		name:     cfg.Name,
		endpoint: u,
		token:    cfg.Token,
		// the resolver bounds each attempt; this only guards direct callers
		hc:       &http.Client{Timeout: 60 * time.Second},
		rl:       rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}, nil
}

func (c *Client) Name() string { return c.name }
func (c *Client) Remote() bool { return true }

var (
	ErrNotFound     = errors.New("channelapi: not found")
	ErrUnauthorized = errors.New("channelapi: unauthorized")
	ErrForbidden    = errors.New("channelapi: forbidden")
	ErrEmptyBody    = errors.New("channelapi: empty body")
)

// page is the subset of the envelope needed to drive paging.
type page struct {
	Result []json.RawMessage `json:"result"`
	Data   []json.RawMessage `json:"data"`
	Count  *int              `json:"count"`
}

func (p page) records() (string, []json.RawMessage) {
	if p.Result != nil {
		return "result", p.Result
	}
	return "data", p.Data
}

// Fetch returns the raw envelope. A single page is returned verbatim; when
// the source reports more records than one page holds, the remaining pages
// are fetched concurrently and joined into one envelope in offset order.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if c.pageSize <= 0 {
		return c.get(ctx, c.endpoint.String())
	}

	first, err := c.get(ctx, c.pageURL(0))
	if err != nil {
		return nil, err
	}
	var p page
	if err := json.Unmarshal(first, &p); err != nil {
		// let the envelope decoder report the body problem
		return first, nil
	}
	key, recs := p.records()
	if p.Count == nil || *p.Count <= len(recs) || len(recs) < c.pageSize {
		return first, nil
	}

	total := *p.Count
	offsets := make([]int, 0, total/c.pageSize)
	for off := c.pageSize; off < total; off += c.pageSize {
		offsets = append(offsets, off)
	}
	log.Debug().Str("source", c.name).Int("count", total).Int("pages", len(offsets)+1).Msg("fetching remaining pages")

	pages := make([][]json.RawMessage, len(offsets))
	errs := make([]error, len(offsets))
	sem := semaphore.NewWeighted(int64(c.workers))
	for i, off := range offsets {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(i, off int) {
			defer sem.Release(1)
			body, err := c.get(ctx, c.pageURL(off))
			if err != nil {
				errs[i] = fmt.Errorf("offset %d: %w", off, err)
				return
			}
			var pp page
			if err := json.Unmarshal(body, &pp); err != nil {
				errs[i] = fmt.Errorf("offset %d: %w", off, err)
				return
			}
			_, pages[i] = pp.records()
		}(i, off)
	}
	// wait for all workers by taking the whole weight
	if err := sem.Acquire(ctx, int64(c.workers)); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	all := append([]json.RawMessage(nil), recs...)
	for _, pr := range pages {
		all = append(all, pr...)
	}
	return joinEnvelope(key, all, total), nil
}

func joinEnvelope(key string, recs []json.RawMessage, count int) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"status":"success","`)
	buf.WriteString(key)
	buf.WriteString(`":[`)
	for i, r := range recs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r)
	}
	buf.WriteString(`],"count":`)
	buf.WriteString(strconv.Itoa(count))
	buf.WriteByte('}')
	return buf.Bytes()
}

func (c *Client) pageURL(offset int) string {
	u := *c.endpoint
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()
	return u.String()
}

// get performs one rate-limited GET. There are no retries: a failed source
// is left to the resolver's fallback chain.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "flex-reviews/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(c.name, c.endpoint.Path, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal(c.name, c.endpoint.Path, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(b)) == 0 {
			return nil, ErrEmptyBody
		}
		return b, nil
	case http.StatusNoContent:
		return nil, ErrEmptyBody
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusForbidden:
		return nil, ErrForbidden
	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}
