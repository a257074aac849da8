package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

// HTTPFetcher uses Colly for plain HTTP fetching. Nitter renders its pages
// server-side, so no JavaScript is needed to read them.
type HTTPFetcher struct {
	collector *colly.Collector
	cfg       Config
	log       *slog.Logger
}

// NewHTTPFetcher creates a new Colly-based HTTP fetcher.
func NewHTTPFetcher(cfg Config, log *slog.Logger) *HTTPFetcher {
	if log == nil {
		log = slog.Default()
	}

	c := colly.NewCollector(
		colly.Async(false), // concurrency is controlled by the caller
		colly.AllowURLRevisit(),
	)

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	c.UserAgent = ua
	c.IgnoreRobotsTxt = true
	// The mirror answers missing accounts with an error page and a 4xx
	// status; the body is what tells the caller what happened.
	c.ParseHTTPErrorResponse = true

	if cfg.Proxy != "" {
		if err := c.SetProxy(cfg.Proxy); err != nil {
			log.Warn("ignoring proxy", "proxy", cfg.Proxy, "err", err)
		}
	}

	return &HTTPFetcher{
		collector: c,
		cfg:       cfg,
		log:       log.With("fetcher", "http"),
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string, wait plugin.WaitCondition) (*plugin.PageData, error) {
	start := time.Now()

	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: f.Name(),
		FetchedAt:   start,
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.timeout(wait.Timeout))
	defer cancel()

	// Clone the collector for this individual fetch so we get clean state
	c := f.collector.Clone()
	c.Context = ctx

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.HTML = string(r.Body)
		page.FinalURL = r.Request.URL.String()
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			page.StatusCode = r.StatusCode
		}
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	page.FetchDuration = time.Since(start)

	if fetchErr != nil {
		return nil, fmt.Errorf("get %s: %w", targetURL, classify(fetchErr))
	}

	if wait.Selector != "" && !present(page.HTML, wait.Selector) {
		return nil, fmt.Errorf("%w: %q not present in %s (status %d)", ErrPageLoadTimeout, wait.Selector, targetURL, page.StatusCode)
	}

	f.log.Debug("fetched", "url", targetURL, "status", page.StatusCode, "duration", page.FetchDuration)
	return page, nil
}

func (f *HTTPFetcher) Close() error {
	return nil
}

// present reports whether selector matches anything in markup. A static
// page cannot change after it arrives, so this is the whole wait.
func present(markup, selector string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}
