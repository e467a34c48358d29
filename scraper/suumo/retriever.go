package suumo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"suumo-analysis/config"
	"suumo-analysis/models"
	"suumo-analysis/scraper"
	"suumo-analysis/utils"
)

// PagePlaceholder is replaced by the page number in listing URL templates.
const PagePlaceholder = "{}"

// Retriever walks a range of result pages and extracts every room offer.
type Retriever struct {
	fetcher   scraper.DocumentFetcher
	logger    *utils.Logger
	retry     *utils.RetryConfig
	pageDelay time.Duration
	now       func() time.Time
}

// New creates a Retriever using the retry and pacing settings from cfg.
func New(fetcher scraper.DocumentFetcher, cfg *config.Config, logger *utils.Logger) *Retriever {
	return &Retriever{
		fetcher: fetcher,
		logger:  logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
		pageDelay: cfg.PageDelay,
		now:       time.Now,
	}
}

// PageURL substitutes page into the first placeholder of template.
func PageURL(template string, page int) string {
	return strings.Replace(template, PagePlaceholder, strconv.Itoa(page), 1)
}

// Scrape retrieves pages startPage..endPage (inclusive) in order and returns
// the concatenated records. A page that still fails after all retries, or
// that breaks the expected layout, aborts the whole scrape.
func (r *Retriever) Scrape(ctx context.Context, urlTemplate string, startPage, endPage int) ([]*models.RawListing, error) {
	if !strings.Contains(urlTemplate, PagePlaceholder) {
		return nil, fmt.Errorf("suumo: url template %q has no %s placeholder", urlTemplate, PagePlaceholder)
	}

	r.logger.Info("[suumo] Starting scrape: pages %d..%d", startPage, endPage)

	var all []*models.RawListing
	for page := startPage; page <= endPage; page++ {
		pageURL := PageURL(urlTemplate, page)
		base, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("suumo: page %d url: %w", page, err)
		}

		var doc *goquery.Document
		err = r.retry.Do(ctx, fmt.Sprintf("fetch-page-%d", page), func() error {
			d, err := r.fetcher.Fetch(ctx, pageURL)
			if err != nil {
				return err
			}
			doc = d
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("suumo: page %d: %w", page, err)
		}

		records, err := Extract(doc, base, r.now())
		if err != nil {
			return nil, fmt.Errorf("suumo: page %d: %w", page, err)
		}
		all = append(all, records...)

		r.logger.Info("[suumo] Page %d done: %d listings so far", page, len(all))

		if err := utils.Sleep(ctx, r.pageDelay); err != nil {
			return nil, fmt.Errorf("suumo: interrupted after page %d: %w", page, err)
		}
	}

	r.logger.Info("[suumo] Scrape complete: %d raw listings", len(all))
	return all, nil
}
