// Package fetcher retrieves mirror pages with a headless browser or a
// plain HTTP client. Every backend implements plugin.Fetcher.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrPageLoadTimeout means the page did not satisfy its wait condition
// before the timeout elapsed.
var ErrPageLoadTimeout = errors.New("page load timed out")

// DefaultTimeout bounds a fetch whose wait condition sets no timeout.
const DefaultTimeout = 30 * time.Second

// Config holds the options shared by all backends.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Proxy     string
	Headless  bool
	// BrowserBin overrides the Chromium binary for browser backends.
	BrowserBin string
	// BlockMedia stops browser backends from downloading images and fonts.
	// Image URLs are still present in the markup.
	BlockMedia bool
}

func (c Config) timeout(override time.Duration) time.Duration {
	switch {
	case override > 0:
		return override
	case c.Timeout > 0:
		return c.Timeout
	default:
		return DefaultTimeout
	}
}

// classify maps deadline errors onto ErrPageLoadTimeout, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %w", ErrPageLoadTimeout, err)
	}
	return err
}
