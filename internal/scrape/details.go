package scrape

import (
	"context"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/swellmap/surfatlas/internal/model"
)

var (
	regionRe  = regexp.MustCompile(`(?is)<select[^>]+id="region_id".*?<option[^>]+selected[^>]*>(.*?)</option>`)
	countryRe = regexp.MustCompile(`(?is)<select[^>]+id="country_id".*?<option[^>]+selected[^>]*>(.*?)</option>`)

	typeRe        = regexp.MustCompile(`(?is)guide-header__type-icon--break[^>]*>\s*([^<]+)`)
	ratingRe      = regexp.MustCompile(`(?is)guide-header__type-icon--stars[^>]*>\s*<span[^>]*>(.*?)</span>`)
	reliabilityRe = regexp.MustCompile(`(?is)guide-header__reliability[^>]*>(.*?)<`)
	swellRe       = regexp.MustCompile(`(?is)guide-header__swell[^>]*>(.*?)<`)
	windRe        = regexp.MustCompile(`(?is)guide-header__wind[^>]*>(.*?)<`)
	seasonRe      = regexp.MustCompile(`(?is)guide-header__season[^>]*>(.*?)<`)
	summaryRe     = regexp.MustCompile(`(?is)<div[^>]+class="guide-header__summary[^"]*"[^>]*>(.*?)</div>`)
)

// detailFields maps attribute keys to their page extractors, in output
// column order.
var detailFields = []struct {
	key string
	re  *regexp.Regexp
}{
	{"type", typeRe},
	{"rating", ratingRe},
	{"reliability", reliabilityRe},
	{"swell_direction", swellRe},
	{"wind_direction", windRe},
	{"best_season", seasonRe},
	{"summary", summaryRe},
}

// Details enriches break-list rows with per-page descriptive
// attributes, fetching detail pages with bounded concurrency. A failed
// page leaves that break's attributes empty; the error is logged, not
// returned. Records are enriched in place and order is preserved.
func (c *Client) Details(ctx context.Context, breaks []model.Break) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.DetailConcurrency)

	for i := range breaks {
		b := &breaks[i]
		if b.Link == "" {
			continue
		}
		g.Go(func() error {
			body, err := c.fetch(gCtx, c.cfg.BaseURL+b.Link)
			if err != nil {
				zap.L().Warn("detail page failed",
					zap.String("break", b.Name),
					zap.Error(err),
				)
				return nil // skip, never abort the batch
			}
			c.applyDetails(b, string(body))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	zap.L().Info("detail scrape complete", zap.Int("breaks", len(breaks)))
	return nil
}

// applyDetails extracts region, page-level country, and descriptive
// attributes from one detail page.
func (c *Client) applyDetails(b *model.Break, body string) {
	if m := regionRe.FindStringSubmatch(body); m != nil {
		b.Region = cleanText(m[1])
	}
	// The detail page's country selector is more reliable than the
	// list label; prefer it when present.
	if m := countryRe.FindStringSubmatch(body); m != nil {
		if country := cleanText(m[1]); country != "" {
			b.CountryRaw = country
		}
	}
	for _, f := range detailFields {
		if m := f.re.FindStringSubmatch(body); m != nil {
			if v := cleanText(m[1]); v != "" {
				b.Attributes.Set(f.key, v)
			}
		}
	}
}
