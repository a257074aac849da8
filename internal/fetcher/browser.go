package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

// BrowserFetcher uses Rod (headless Chrome). It shares one browser
// process and opens a fresh tab for every fetch.
type BrowserFetcher struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
	log      *slog.Logger
}

// NewBrowserFetcher launches Chromium and connects to it.
func NewBrowserFetcher(cfg Config, log *slog.Logger) (*BrowserFetcher, error) {
	if log == nil {
		log = slog.Default()
	}

	l := newLauncher(cfg)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &BrowserFetcher{
		browser:  browser,
		launcher: l,
		cfg:      cfg,
		log:      log.With("fetcher", "browser"),
	}, nil
}

func newLauncher(cfg Config) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	return l
}

func (f *BrowserFetcher) Name() string { return "browser" }

func (f *BrowserFetcher) Fetch(ctx context.Context, targetURL string, wait plugin.WaitCondition) (*plugin.PageData, error) {
	start := time.Now()

	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: f.Name(),
		FetchedAt:   start,
	}

	tab, err := f.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	// The tab is closed with the browser's own context so a cancelled
	// caller context cannot leave it open.
	defer func() {
		if err := tab.Close(); err != nil {
			f.log.Debug("close tab", "url", targetURL, "err", err)
		}
	}()

	if f.cfg.UserAgent != "" {
		if err := tab.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.cfg.UserAgent}); err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	if f.cfg.BlockMedia {
		router := tab.HijackRequests()
		router.MustAdd("*", func(h *rod.Hijack) {
			switch h.Request.Type() {
			case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia, proto.NetworkResourceTypeFont:
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			default:
				h.ContinueRequest(&proto.FetchContinueRequest{})
			}
		})
		go router.Run()
		defer func() { _ = router.Stop() }()
	}

	p := tab.Context(ctx).Timeout(f.cfg.timeout(wait.Timeout))

	if err := p.Navigate(targetURL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", targetURL, classify(err))
	}

	if wait.Selector != "" {
		if _, err := p.Element(wait.Selector); err != nil {
			return nil, fmt.Errorf("wait for %q: %w", wait.Selector, classify(err))
		}
	} else if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for load: %w", classify(err))
	}

	if info, err := p.Info(); err == nil {
		page.FinalURL = info.URL
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", classify(err))
	}
	page.HTML = html
	// Best effort: navigation succeeded and the wait condition holds.
	page.StatusCode = 200
	page.FetchDuration = time.Since(start)

	f.log.Debug("fetched", "url", targetURL, "duration", page.FetchDuration)
	return page, nil
}

func (f *BrowserFetcher) Close() error {
	var err error
	if f.browser != nil {
		err = f.browser.Close()
	}
	if f.launcher != nil {
		f.launcher.Kill()
	}
	return err
}
