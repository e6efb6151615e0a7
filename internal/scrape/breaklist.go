package scrape

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/swellmap/surfatlas/internal/model"
)

// listCellRe matches one break-list table cell: a link to the break's
// detail page followed by a country label span.
var listCellRe = regexp.MustCompile(
	`(?is)<td[^>]*>\s*<a\s+href="([^"]+)"[^>]*>(.*?)</a>.*?<span\s+class="rem"[^>]*>(.*?)</span>.*?</td>`)

// BreakList scrapes the paginated list of surf breaks, producing the
// primary snapshot's skeleton rows (name, link, country). A failed
// page is logged and skipped; the scrape never aborts on one bad page.
func (c *Client) BreakList(ctx context.Context) ([]model.Break, error) {
	var breaks []model.Break

	for page := 1; page <= c.cfg.Pages; page++ {
		if ctx.Err() != nil {
			return breaks, eris.Wrap(ctx.Err(), "scrape: break list")
		}

		url := fmt.Sprintf("%s/breaks?page=%d", c.cfg.BaseURL, page)
		body, err := c.fetch(ctx, url)
		if err != nil {
			zap.L().Warn("break list page failed",
				zap.Int("page", page),
				zap.Error(err),
			)
			continue
		}

		found := 0
		for _, m := range listCellRe.FindAllStringSubmatch(string(body), -1) {
			name := cleanText(m[2])
			if name == "" {
				continue
			}
			breaks = append(breaks, model.Break{
				Name:       name,
				Link:       m[1],
				CountryRaw: cleanText(m[3]),
				Source:     model.SourcePrimary,
				Index:      len(breaks),
			})
			found++
		}

		zap.L().Debug("scraped break list page",
			zap.Int("page", page),
			zap.Int("breaks", found),
		)
	}

	zap.L().Info("break list scrape complete", zap.Int("breaks", len(breaks)))
	return breaks, nil
}
