package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

// DefaultUserAgent is a realistic Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromedpFetcher starts an independent browser for every fetch, so
// concurrent fetches never share a session.
type ChromedpFetcher struct {
	opts []chromedp.ExecAllocatorOption
	cfg  Config
	log  *slog.Logger
}

// NewChromedpFetcher builds the allocator options; no browser is started
// until Fetch.
func NewChromedpFetcher(cfg Config, log *slog.Logger) *ChromedpFetcher {
	if log == nil {
		log = slog.Default()
	}
	return &ChromedpFetcher{
		opts: allocatorOptions(cfg),
		cfg:  cfg,
		log:  log.With("fetcher", "chromedp"),
	}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range chromeFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.BrowserBin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.BrowserBin))
	}
	return opts
}

// chromeFlags lists the command-line switches layered over chromedp's
// defaults.
func chromeFlags(cfg Config) map[string]any {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	flags := map[string]any{
		"headless":                 cfg.Headless,
		"disable-blink-features":   "AutomationControlled", // hides navigator.webdriver
		"user-agent":               ua,
		"window-size":              "1920,1080",
		"disable-extensions":       true,
		"no-first-run":             true,
		"no-default-browser-check": true,
		"no-sandbox":               true,
	}
	if cfg.Headless {
		flags["disable-gpu"] = true
		flags["enable-unsafe-swiftshader"] = true
	}
	if cfg.Proxy != "" {
		flags["proxy-server"] = cfg.Proxy
	}
	if cfg.BlockMedia {
		flags["blink-settings"] = "imagesEnabled=false"
	}
	return flags
}

func (f *ChromedpFetcher) Name() string { return "chromedp" }

func (f *ChromedpFetcher) Fetch(ctx context.Context, targetURL string, wait plugin.WaitCondition) (*plugin.PageData, error) {
	start := time.Now()

	// Cancelling the allocator kills the browser process, which covers
	// every return path below.
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, f.opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, f.cfg.timeout(wait.Timeout))
	defer timeoutCancel()

	var html, finalURL string
	actions := []chromedp.Action{chromedp.Navigate(targetURL)}
	if wait.Selector != "" {
		actions = append(actions, chromedp.WaitReady(wait.Selector, chromedp.ByQuery))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, fmt.Errorf("load %s: %w", targetURL, classify(err))
	}

	page := &plugin.PageData{
		URL:           targetURL,
		FinalURL:      finalURL,
		StatusCode:    200,
		HTML:          html,
		FetchedAt:     start,
		FetchDuration: time.Since(start),
		FetcherUsed:   f.Name(),
	}
	f.log.Debug("fetched", "url", targetURL, "duration", page.FetchDuration)
	return page, nil
}

func (f *ChromedpFetcher) Close() error { return nil }
