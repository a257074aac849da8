// Package scraper drives a Nitter mirror: it builds page URLs, fetches them
// through a plugin.Fetcher and hands the markup to the extractor.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ramkansal/nitfang/internal/extractor"
	"github.com/ramkansal/nitfang/internal/fetcher"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

var tracer = otel.Tracer("nitfang/internal/scraper")

var (
	// ErrInvalidHandle is returned for handles that cannot name an account.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrEmptyQuery is returned by Search for a blank query.
	ErrEmptyQuery = errors.New("empty search query")
)

// dateLayout is the form the mirror expects for since/until.
const dateLayout = "2006-01-02"

// SearchOptions narrows a user search. Zero times are omitted.
type SearchOptions struct {
	Since time.Time
	Until time.Time
}

// TweetOptions selects a timeline and how far to page through it.
type TweetOptions struct {
	Replies bool
	// Pages is the number of timeline pages to read; 0 means 1.
	Pages int
}

// LookupResult is the outcome for one handle of a Lookup.
type LookupResult struct {
	Handle string
	Page   *plugin.ProfilePage
	Err    error
}

// Scraper is the engine that orchestrates fetching and extracting.
type Scraper struct {
	config  *Config
	mirror  *url.URL
	fetcher plugin.Fetcher
	ext     *extractor.Extractor
	log     *slog.Logger
}

// New creates a Scraper over an existing fetcher. A nil config means
// DefaultConfig and a nil logger means slog.Default.
func New(config *Config, f plugin.Fetcher, log *slog.Logger) (*Scraper, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if f == nil {
		return nil, errors.New("scraper: nil fetcher")
	}
	if log == nil {
		log = slog.Default()
	}

	raw := config.MirrorURL
	if raw == "" {
		raw = DefaultMirrorURL
	}
	mirror, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid mirror URL: %w", err)
	}
	if (mirror.Scheme != "http" && mirror.Scheme != "https") || mirror.Host == "" {
		return nil, fmt.Errorf("invalid mirror URL %q: need an http(s) URL with a host", raw)
	}

	hosts := append([]string{mirror.Hostname(), extractor.DefaultMirrorHost}, config.MirrorHosts...)

	return &Scraper{
		config:  config,
		mirror:  mirror,
		fetcher: f,
		ext:     extractor.New(extractor.NewRewriter(hosts...)),
		log:     log,
	}, nil
}

// Open builds the fetcher named by config.FetcherMode and a Scraper over
// it. The caller owns the result and must Close it.
func Open(config *Config, log *slog.Logger) (*Scraper, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	f, err := NewFetcher(config, log)
	if err != nil {
		return nil, err
	}
	s, err := New(config, f, log)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// NewFetcher initializes the backend for config.FetcherMode.
func NewFetcher(config *Config, log *slog.Logger) (plugin.Fetcher, error) {
	fc := config.fetcherConfig()

	switch config.FetcherMode {
	case FetcherHTTP:
		return fetcher.NewHTTPFetcher(fc, log), nil
	case FetcherChromedp:
		return fetcher.NewChromedpFetcher(fc, log), nil
	case FetcherBrowser, "":
		return fetcher.NewBrowserFetcher(fc, log)
	case FetcherAuto:
		bf, err := fetcher.NewBrowserFetcher(fc, log)
		if err != nil {
			log.Warn("browser fetcher unavailable, falling back to HTTP", "err", err)
			return fetcher.NewHTTPFetcher(fc, log), nil
		}
		return bf, nil
	default:
		return nil, fmt.Errorf("unknown fetcher mode %q", config.FetcherMode)
	}
}

// Fetcher returns the backend in use.
func (s *Scraper) Fetcher() plugin.Fetcher { return s.fetcher }

// Close releases the fetcher.
func (s *Scraper) Close() error {
	return s.fetcher.Close()
}

// Search runs a user search and returns the first page of results.
func (s *Scraper) Search(ctx context.Context, query string, opts SearchOptions) (*plugin.UserPage, error) {
	ctx, span := tracer.Start(ctx, "Search", trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, fail(span, ErrEmptyQuery)
	}

	page, err := s.fetch(ctx, s.searchURL(query, opts), extractor.WaitForTimeline)
	if err != nil {
		return nil, fail(span, fmt.Errorf("search %q: %w", query, err))
	}

	users, err := s.ext.UserPage(page.HTML)
	if err != nil {
		return nil, fail(span, fmt.Errorf("search %q: %w", query, err))
	}

	span.SetAttributes(attribute.Int("users", len(users.Users)))
	s.log.Info("search", "query", query, "users", len(users.Users))
	return users, nil
}

// GetProfile fetches an account page and extracts its header, the first
// timeline page and the photo rail.
func (s *Scraper) GetProfile(ctx context.Context, handle string) (*plugin.ProfilePage, error) {
	ctx, span := tracer.Start(ctx, "GetProfile", trace.WithAttributes(attribute.String("handle", handle)))
	defer span.End()

	handle, err := validHandle(handle)
	if err != nil {
		return nil, fail(span, err)
	}

	page, err := s.fetch(ctx, s.timelineURL(handle, false, ""), extractor.WaitForProfile)
	if err != nil {
		return nil, fail(span, fmt.Errorf("profile %s: %w", handle, err))
	}

	profile, err := s.ext.ProfilePage(page.HTML)
	if err != nil {
		return nil, fail(span, fmt.Errorf("profile %s: %w", handle, err))
	}

	s.log.Info("profile", "handle", handle, "tweets", len(profile.Tweets), "media", len(profile.Media))
	return profile, nil
}

// GetTweets reads up to opts.Pages timeline pages, following the cursor,
// and concatenates them in order. Cursor is empty when the timeline ended.
func (s *Scraper) GetTweets(ctx context.Context, handle string, opts TweetOptions) (*plugin.TweetPage, error) {
	ctx, span := tracer.Start(ctx, "GetTweets", trace.WithAttributes(
		attribute.String("handle", handle),
		attribute.Bool("replies", opts.Replies),
	))
	defer span.End()

	handle, err := validHandle(handle)
	if err != nil {
		return nil, fail(span, err)
	}

	pages := max(opts.Pages, 1)
	if s.config.MaxPages > 0 {
		pages = min(pages, s.config.MaxPages)
	}

	out := &plugin.TweetPage{Tweets: []plugin.Tweet{}}
	cursor := ""
	for n := 0; n < pages; n++ {
		page, err := s.fetch(ctx, s.timelineURL(handle, opts.Replies, cursor), extractor.WaitForTimeline)
		if err != nil {
			return nil, fail(span, fmt.Errorf("tweets %s page %d: %w", handle, n+1, err))
		}

		tl, err := s.ext.TweetPage(page.HTML)
		if err != nil {
			return nil, fail(span, fmt.Errorf("tweets %s page %d: %w", handle, n+1, err))
		}

		// An empty first page is either a quiet account or no account.
		if n == 0 && len(tl.Tweets) == 0 {
			if _, err := s.ext.Profile(page.HTML); errors.Is(err, extractor.ErrMissingProfile) {
				return nil, fail(span, fmt.Errorf("tweets %s: %w", handle, err))
			}
		}

		out.Tweets = append(out.Tweets, tl.Tweets...)
		out.Cursor = tl.Cursor
		s.log.Debug("timeline page", "handle", handle, "page", n+1, "tweets", len(tl.Tweets))

		if tl.Cursor == "" || tl.Cursor == cursor {
			out.Cursor = ""
			break
		}
		cursor = tl.Cursor
	}

	span.SetAttributes(attribute.Int("tweets", len(out.Tweets)))
	s.log.Info("tweets", "handle", handle, "tweets", len(out.Tweets))
	return out, nil
}

// Lookup runs GetProfile for every handle, at most config.Parallelism at a
// time. Results keep the input order; a failed handle carries its error in
// its result. The returned error is set only when ctx ends first.
func (s *Scraper) Lookup(ctx context.Context, handles []string) ([]LookupResult, error) {
	ctx, span := tracer.Start(ctx, "Lookup", trace.WithAttributes(attribute.Int("handles", len(handles))))
	defer span.End()

	results := make([]LookupResult, len(handles))

	var g errgroup.Group
	g.SetLimit(max(s.config.Parallelism, 1))

	for i, handle := range handles {
		g.Go(func() error {
			results[i].Handle = handle
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			page, err := s.GetProfile(ctx, handle)
			results[i].Page = page
			results[i].Err = err
			if err != nil {
				s.log.Warn("lookup failed", "handle", handle, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, fail(span, err)
	}
	return results, nil
}

// fetch runs the fetcher off the caller's goroutine so a cancelled ctx
// returns immediately; the fetcher sees the same ctx and cleans up.
func (s *Scraper) fetch(ctx context.Context, target, selector string) (*plugin.PageData, error) {
	type result struct {
		page *plugin.PageData
		err  error
	}

	wait := plugin.WaitCondition{Selector: selector, Timeout: s.config.Timeout}
	done := make(chan result, 1)
	go func() {
		page, err := s.fetcher.Fetch(ctx, target, wait)
		done <- result{page, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.page == nil {
			return nil, fmt.Errorf("%s fetcher returned no page for %s", s.fetcher.Name(), target)
		}
		s.log.Debug("fetched", "url", target, "status", r.page.StatusCode, "fetcher", r.page.FetcherUsed)
		return r.page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Scraper) searchURL(query string, opts SearchOptions) string {
	q := url.Values{}
	q.Set("f", "users")
	q.Set("q", query)
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.Format(dateLayout))
	}
	if !opts.Until.IsZero() {
		q.Set("until", opts.Until.Format(dateLayout))
	}

	u := *s.mirror
	u.Path += "/search"
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Scraper) timelineURL(handle string, replies bool, cursor string) string {
	u := *s.mirror
	u.Path += "/" + handle
	if replies {
		u.Path += "/with_replies"
	}
	if cursor != "" {
		u.RawQuery = url.Values{"cursor": {cursor}}.Encode()
	}
	return u.String()
}

// validHandle strips whitespace and a leading @ and rejects anything that
// would change the shape of the URL.
func validHandle(handle string) (string, error) {
	h := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if h == "" || strings.ContainsAny(h, "/?#%") || strings.IndexFunc(h, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return h, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
