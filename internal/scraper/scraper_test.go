package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ramkansal/nitfang/internal/extractor"
	"github.com/ramkansal/nitfang/internal/fetcher"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

// fakeFetcher serves canned markup by URL.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
	waits []plugin.WaitCondition

	// block, when set, holds every fetch until it is closed or ctx ends.
	block chan struct{}
	delay time.Duration

	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context, url string, wait plugin.WaitCondition) (*plugin.PageData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.waits = append(f.waits, wait)
	html, ok := f.pages[url]
	f.mu.Unlock()

	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if !ok {
		return nil, fmt.Errorf("%w: no page for %s", fetcher.ErrPageLoadTimeout, url)
	}
	return &plugin.PageData{URL: url, FinalURL: url, StatusCode: 200, HTML: html, FetcherUsed: f.Name()}, nil
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const profileCard = `<div class="profile-card">
  <a class="profile-card-avatar" href="/pic/orig/profile_images%%2F1%%2Fa.jpg"><img src="/pic/profile_images%%2F1%%2Fa_400x400.jpg"></a>
  <a class="profile-card-fullname" title="%[1]s">%[1]s</a>
  <a class="profile-card-username" title="@%[1]s">@%[1]s</a>
  <ul class="profile-statlist"><li class="followers"><span class="profile-stat-num">1.5K</span></li></ul>
</div>`

const errorPanel = `<div class="error-panel"><span>User "%s" not found</span></div>`

func tweetItem(handle, id, body string) string {
	return fmt.Sprintf(`<div class="timeline-item" data-username="%[1]s"><a class="tweet-link" href="/%[1]s/status/%[2]s#m"></a><div class="tweet-body"><div class="tweet-content">%[3]s</div></div></div>`, handle, id, body)
}

func userItem(handle, avatar string) string {
	return fmt.Sprintf(`<div class="timeline-item"><div class="tweet-body profile-result"><a class="tweet-avatar"><img src="%[2]s"></a><a class="fullname">%[1]s</a><a class="username">@%[1]s</a></div></div>`, handle, avatar)
}

func page(handle, cursor string, items ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if handle != "" {
		fmt.Fprintf(&b, profileCard, handle)
	}
	b.WriteString(`<div class="timeline">`)
	for _, it := range items {
		b.WriteString(it)
	}
	if cursor != "" {
		fmt.Fprintf(&b, `<div class="show-more"><a href="?cursor=%s">Load more</a></div>`, cursor)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

// protectedPage is the mirror's markup for an account whose tweets are
// hidden: a profile card and a timeline header, with no .timeline block.
func protectedPage(handle string) string {
	return "<html><body>" + fmt.Sprintf(profileCard, handle) +
		`<div class="timeline-container"><div class="timeline-header timeline-protected">` +
		`<h2>This account's tweets are protected.</h2></div></div></body></html>`
}

// nilFetcher reports success without a page.
type nilFetcher struct{}

func (nilFetcher) Name() string { return "nil" }
func (nilFetcher) Fetch(context.Context, string, plugin.WaitCondition) (*plugin.PageData, error) {
	return nil, nil
}
func (nilFetcher) Close() error { return nil }

func newScraper(t *testing.T, f *fakeFetcher, mutate ...func(*Config)) *Scraper {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(cfg)
	}
	s, err := New(cfg, f, nil)
	require.NoError(t, err)
	return s
}

func TestNew_InvalidMirror(t *testing.T) {
	for _, raw := range []string{"nitter.net", "ftp://nitter.net", "https://", "://bad"} {
		t.Run(raw, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MirrorURL = raw
			_, err := New(cfg, &fakeFetcher{}, nil)
			assert.Error(t, err)
		})
	}

	_, err := New(nil, nil, nil)
	assert.Error(t, err)
}

func TestSearchURL(t *testing.T) {
	s := newScraper(t, &fakeFetcher{})

	assert.Equal(t, "https://nitter.net/search?f=users&q=jack+dorsey", s.searchURL("jack dorsey", SearchOptions{}))

	opts := SearchOptions{
		Since: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "https://nitter.net/search?f=users&q=jack&since=2024-01-02&until=2024-03-04", s.searchURL("jack", opts))

	opts.Since = time.Time{}
	assert.Equal(t, "https://nitter.net/search?f=users&q=jack&until=2024-03-04", s.searchURL("jack", opts))
}

func TestTimelineURL(t *testing.T) {
	s := newScraper(t, &fakeFetcher{}, func(c *Config) { c.MirrorURL = "https://nitter.example.org/" })

	assert.Equal(t, "https://nitter.example.org/jack", s.timelineURL("jack", false, ""))
	assert.Equal(t, "https://nitter.example.org/jack/with_replies", s.timelineURL("jack", true, ""))
	assert.Equal(t, "https://nitter.example.org/jack?cursor=DAAB%3D%3D", s.timelineURL("jack", false, "DAAB=="))
}

func TestValidHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"jack", "jack", true},
		{"  @jack ", "jack", true},
		{"Jack_Dorsey_2", "Jack_Dorsey_2", true},
		{"", "", false},
		{"@", "", false},
		{"   ", "", false},
		{"jack/with_replies", "", false},
		{"jack?x=1", "", false},
		{"jack#m", "", false},
		{"ja ck", "", false},
		{"jack\tdorsey", "", false},
		{"..%2F", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := validHandle(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidHandle)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearch(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/search?f=users&q=jack": page("", "scroll:abc",
			userItem("jack", "/pic/profile_images%2F1%2Fa_bigger.jpg"),
			userItem("jackjack", "https://nitter.net/pic/profile_images%2F2%2Fb_bigger.png"),
		),
	}}
	s := newScraper(t, f)

	res, err := s.Search(context.Background(), "jack", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, res.Users, 2)
	assert.Equal(t, "jack", res.Users[0].Handle)
	assert.Equal(t, "jackjack", res.Users[1].Handle)
	require.NotNil(t, res.Users[0].AvatarURL)
	assert.Equal(t, "https://pbs.twimg.com/profile_images/1/a_bigger.jpg", *res.Users[0].AvatarURL)
	assert.Equal(t, "https://pbs.twimg.com/profile_images/2/b_bigger.png", *res.Users[1].AvatarURL)
	assert.Equal(t, "scroll:abc", res.Cursor)

	require.Len(t, f.waits, 1)
	assert.Equal(t, extractor.WaitForTimeline, f.waits[0].Selector)
	assert.Equal(t, fetcher.DefaultTimeout, f.waits[0].Timeout)
}

func TestSearch_NoResults(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/search?f=users&q=zzzz": page("", ""),
	}}
	s := newScraper(t, f)

	res, err := s.Search(context.Background(), "zzzz", SearchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, res.Users)
	assert.Empty(t, res.Users)
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := &fakeFetcher{}
	s := newScraper(t, f)

	_, err := s.Search(context.Background(), "  ", SearchOptions{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, f.urls())
}

func TestGetProfile(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/jack": page("jack", "c1", tweetItem("jack", "20", "just setting up my twttr")),
	}}
	s := newScraper(t, f)

	res, err := s.GetProfile(context.Background(), "@jack")
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "jack", res.Profile.Handle)
	require.NotNil(t, res.Profile.Followers)
	assert.Equal(t, 1500, *res.Profile.Followers)
	require.NotNil(t, res.Profile.AvatarURL)
	assert.Equal(t, "https://pbs.twimg.com/profile_images/1/a_400x400.jpg", *res.Profile.AvatarURL)
	require.Len(t, res.Tweets, 1)
	assert.Equal(t, "20", res.Tweets[0].ID)
	assert.Equal(t, "c1", res.Cursor)

	assert.Equal(t, []string{"https://nitter.net/jack"}, f.urls())
	assert.Equal(t, extractor.WaitForProfile, f.waits[0].Selector)
}

func TestGetProfile_Missing(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/nobody": "<html><body>" + fmt.Sprintf(errorPanel, "nobody") + "</body></html>",
	}}
	s := newScraper(t, f)

	_, err := s.GetProfile(context.Background(), "nobody")
	require.ErrorIs(t, err, extractor.ErrMissingProfile)

	var mpe *extractor.MissingProfileError
	require.True(t, errors.As(err, &mpe))
	assert.Equal(t, `User "nobody" not found`, mpe.Reason)
}

func TestGetProfile_InvalidHandle(t *testing.T) {
	f := &fakeFetcher{}
	s := newScraper(t, f)

	_, err := s.GetProfile(context.Background(), "jack/status/1")
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.Empty(t, f.urls())
}

func TestGetProfile_FetchError(t *testing.T) {
	s := newScraper(t, &fakeFetcher{})

	_, err := s.GetProfile(context.Background(), "jack")
	assert.ErrorIs(t, err, fetcher.ErrPageLoadTimeout)
}

func TestGetProfile_CustomMirror(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.example.org/jack": page("jack", "",
			`<div class="timeline-item"><div class="tweet-body"><a class="username">@jack</a><div class="attachments"><div class="attachment image"><img src="https://nitter.example.org/pic/media%2FG1.jpg%3Fname%3Dsmall"></div></div></div></div>`,
		),
	}}
	s := newScraper(t, f, func(c *Config) { c.MirrorURL = "https://nitter.example.org" })

	res, err := s.GetProfile(context.Background(), "jack")
	require.NoError(t, err)
	require.Len(t, res.Tweets, 1)
	assert.Equal(t, []string{"https://pbs.twimg.com/media/G1.jpg?name=small"}, res.Tweets[0].Images)
}

func TestGetTweets_Pagination(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/jack":           page("jack", "c1", tweetItem("jack", "3", "three"), tweetItem("jack", "2", "two")),
		"https://nitter.net/jack?cursor=c1": page("jack", "c2", tweetItem("jack", "1", "one")),
		"https://nitter.net/jack?cursor=c2": page("jack", "", tweetItem("jack", "0", "zero")),
	}}
	s := newScraper(t, f)

	res, err := s.GetTweets(context.Background(), "jack", TweetOptions{Pages: 5})
	require.NoError(t, err)

	var ids []string
	for _, tw := range res.Tweets {
		ids = append(ids, tw.ID)
	}
	assert.Equal(t, []string{"3", "2", "1", "0"}, ids)
	assert.Empty(t, res.Cursor)
	assert.Len(t, f.urls(), 3)
}

func TestGetTweets_PageLimit(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/jack":           page("jack", "c1", tweetItem("jack", "3", "three")),
		"https://nitter.net/jack?cursor=c1": page("jack", "c2", tweetItem("jack", "2", "two")),
	}}
	s := newScraper(t, f)

	res, err := s.GetTweets(context.Background(), "jack", TweetOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Tweets, 1)
	assert.Equal(t, "c1", res.Cursor)

	res, err = s.GetTweets(context.Background(), "jack", TweetOptions{Pages: 2})
	require.NoError(t, err)
	assert.Len(t, res.Tweets, 2)
	assert.Equal(t, "c2", res.Cursor)

	s = newScraper(t, f, func(c *Config) { c.MaxPages = 1 })
	res, err = s.GetTweets(context.Background(), "jack", TweetOptions{Pages: 2})
	require.NoError(t, err)
	assert.Len(t, res.Tweets, 1)
}

func TestGetTweets_RepeatedCursorStops(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/jack":           page("jack", "c1", tweetItem("jack", "1", "one")),
		"https://nitter.net/jack?cursor=c1": page("jack", "c1", tweetItem("jack", "0", "zero")),
	}}
	s := newScraper(t, f)

	res, err := s.GetTweets(context.Background(), "jack", TweetOptions{Pages: 10})
	require.NoError(t, err)
	assert.Len(t, res.Tweets, 2)
	assert.Len(t, f.urls(), 2)
	assert.Empty(t, res.Cursor)
}

func TestGetTweets_Replies(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/jack/with_replies": page("jack", "", tweetItem("jack", "9", "a reply")),
	}}
	s := newScraper(t, f)

	res, err := s.GetTweets(context.Background(), "jack", TweetOptions{Replies: true})
	require.NoError(t, err)
	require.Len(t, res.Tweets, 1)
	assert.Equal(t, "9", res.Tweets[0].ID)
}

func TestGetTweets_EmptyTimeline(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/quiet": page("quiet", ""),
	}}
	s := newScraper(t, f)

	res, err := s.GetTweets(context.Background(), "quiet", TweetOptions{})
	require.NoError(t, err)
	assert.NotNil(t, res.Tweets)
	assert.Empty(t, res.Tweets)
}

func TestGetTweets_Protected(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/locked": protectedPage("locked"),
	}}
	s := newScraper(t, f)

	res, err := s.GetTweets(context.Background(), "locked", TweetOptions{Pages: 3})
	require.NoError(t, err)
	assert.NotNil(t, res.Tweets)
	assert.Empty(t, res.Tweets)
	assert.Empty(t, res.Cursor)
	assert.Len(t, f.urls(), 1)
}

func TestGetTweets_ProtectedOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/locked" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, protectedPage("locked"))
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.MirrorURL = srv.URL
	cfg.Timeout = 5 * time.Second
	s, err := New(cfg, fetcher.NewHTTPFetcher(cfg.fetcherConfig(), nil), nil)
	require.NoError(t, err)
	defer s.Close()

	res, err := s.GetTweets(context.Background(), "locked", TweetOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Tweets)

	page, err := s.GetProfile(context.Background(), "locked")
	require.NoError(t, err)
	assert.Equal(t, "locked", page.Profile.Handle)
	assert.Empty(t, page.Tweets)
}

func TestFetch_NilPage(t *testing.T) {
	s, err := New(DefaultConfig(), nilFetcher{}, nil)
	require.NoError(t, err)

	_, err = s.GetProfile(context.Background(), "jack")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned no page")

	_, err = s.GetTweets(context.Background(), "jack", TweetOptions{})
	require.Error(t, err)
}

func TestGetTweets_MissingAccount(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://nitter.net/nobody": "<html><body>" + fmt.Sprintf(errorPanel, "nobody") + "</body></html>",
	}}
	s := newScraper(t, f)

	_, err := s.GetTweets(context.Background(), "nobody", TweetOptions{})
	assert.ErrorIs(t, err, extractor.ErrMissingProfile)
}

func TestLookup(t *testing.T) {
	f := &fakeFetcher{
		delay: 20 * time.Millisecond,
		pages: map[string]string{
			"https://nitter.net/a": page("a", ""),
			"https://nitter.net/b": page("b", ""),
			"https://nitter.net/c": page("c", ""),
			"https://nitter.net/d": page("d", ""),
			"https://nitter.net/x": "<html><body>" + fmt.Sprintf(errorPanel, "x") + "</body></html>",
		},
	}
	s := newScraper(t, f, func(c *Config) { c.Parallelism = 2 })

	handles := []string{"a", "x", "b", "bad/handle", "c", "d"}
	results, err := s.Lookup(context.Background(), handles)
	require.NoError(t, err)
	require.Len(t, results, len(handles))

	for i, r := range results {
		assert.Equal(t, handles[i], r.Handle)
	}
	for _, i := range []int{0, 2, 4, 5} {
		require.NoError(t, results[i].Err, handles[i])
		assert.Equal(t, handles[i], results[i].Page.Profile.Handle)
	}
	assert.ErrorIs(t, results[1].Err, extractor.ErrMissingProfile)
	assert.ErrorIs(t, results[3].Err, ErrInvalidHandle)

	assert.LessOrEqual(t, f.peak.Load(), int32(2))
	assert.Len(t, f.urls(), 5)
}

func TestLookup_Canceled(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{}), pages: map[string]string{}}
	defer close(f.block)
	s := newScraper(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results, err := s.Lookup(ctx, []string{"a", "b"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestFetch_ReturnsOnCancel(t *testing.T) {
	// The fetcher ignores ctx here to prove the caller is not held up.
	f := &fakeFetcher{delay: 2 * time.Second, pages: map[string]string{"https://nitter.net/jack": page("jack", "")}}
	s := newScraper(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.GetProfile(ctx, "jack")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewFetcher(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FetcherMode = FetcherHTTP
	f, err := NewFetcher(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "http", f.Name())

	cfg.FetcherMode = FetcherChromedp
	f, err = NewFetcher(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "chromedp", f.Name())

	cfg.FetcherMode = "carrier-pigeon"
	_, err = NewFetcher(cfg, nil)
	assert.Error(t, err)
	assert.False(t, cfg.FetcherMode.Valid())
}

func TestSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := &fakeFetcher{pages: map[string]string{"https://nitter.net/jack": page("jack", "")}}
	s := newScraper(t, f)

	_, err := s.GetProfile(context.Background(), "jack")
	require.NoError(t, err)
	_, err = s.GetProfile(context.Background(), "no such")
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GetProfile", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
