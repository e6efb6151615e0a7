// Package scrape collects the two source snapshots: a paginated break
// list and per-break detail pages. It hands the reconciliation engine
// a complete, static record set; all network concerns stop here.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1024 * 1024

// Config configures source fetching.
type Config struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Pages             int    `yaml:"pages" mapstructure:"pages"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit         int    `yaml:"rate_limit" mapstructure:"rate_limit"`
	DetailConcurrency int    `yaml:"detail_concurrency" mapstructure:"detail_concurrency"`
}

// Client fetches pages from the surf forecast site with a politeness
// rate limit shared across all requests.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     Config
}

// NewClient creates a Client with sensible defaults for zero-valued
// config fields.
func NewClient(cfg Config) *Client {
	if cfg.Pages <= 0 {
		cfg.Pages = 27
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 15
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 4
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 8
	}
	return &Client{
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		cfg:     cfg,
	}
}

// fetch GETs one URL, respecting the rate limit, and returns the body.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "scrape: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; SurfAtlasBot/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrape: status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}
	return body, nil
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// cleanText strips any remaining tags, decodes common entities, and
// collapses whitespace.
func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
