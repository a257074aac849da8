package scraper

import (
	"time"

	"github.com/ramkansal/nitfang/internal/fetcher"
)

// Config holds all configuration for a scraper session.
type Config struct {
	// Mirror
	MirrorURL string
	// MirrorHosts lists extra hosts whose /pic/ links are rewritten to the
	// origin media host. The host of MirrorURL is always included.
	MirrorHosts []string

	// Fetching
	FetcherMode FetcherMode
	Timeout     time.Duration
	UserAgent   string
	Proxy       string
	Headless    bool
	BrowserBin  string
	BlockMedia  bool

	// Orchestration
	Parallelism int
	MaxPages    int
}

// FetcherMode controls which fetcher to use.
type FetcherMode string

const (
	FetcherHTTP     FetcherMode = "http"
	FetcherBrowser  FetcherMode = "browser"
	FetcherChromedp FetcherMode = "chromedp"
	// FetcherAuto tries the rod browser and falls back to HTTP when no
	// browser can be launched.
	FetcherAuto FetcherMode = "auto"
)

// Valid reports whether m names a known backend.
func (m FetcherMode) Valid() bool {
	switch m {
	case FetcherHTTP, FetcherBrowser, FetcherChromedp, FetcherAuto:
		return true
	}
	return false
}

// DefaultMirrorURL is the public Nitter instance.
const DefaultMirrorURL = "https://nitter.net"

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		MirrorURL:   DefaultMirrorURL,
		FetcherMode: FetcherBrowser,
		Timeout:     fetcher.DefaultTimeout,
		Headless:    true,
		Parallelism: 4,
		MaxPages:    50,
	}
}

func (c *Config) fetcherConfig() fetcher.Config {
	return fetcher.Config{
		Timeout:    c.Timeout,
		UserAgent:  c.UserAgent,
		Proxy:      c.Proxy,
		Headless:   c.Headless,
		BrowserBin: c.BrowserBin,
		BlockMedia: c.BlockMedia,
	}
}
