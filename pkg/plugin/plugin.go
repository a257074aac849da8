// Package plugin defines the public types and interfaces for nitfang.
// External tools can import this package to plug in their own fetchers
// or output writers without forking the project.
package plugin

import (
	"context"
	"time"
)

// ---------- Page Types ----------

// PageData represents a fetched mirror page.
type PageData struct {
	URL           string        `json:"url"`
	FinalURL      string        `json:"final_url"`
	StatusCode    int           `json:"status_code"`
	HTML          string        `json:"-"`
	FetchedAt     time.Time     `json:"fetched_at"`
	FetchDuration time.Duration `json:"fetch_duration"`
	FetcherUsed   string        `json:"fetcher_used"`
}

// WaitCondition tells a fetcher when a page is ready.
type WaitCondition struct {
	// Selector is a CSS selector (or selector list) that must be present.
	Selector string
	// Timeout bounds the whole fetch. Zero uses the fetcher default.
	Timeout time.Duration
}

// ---------- Record Types ----------

// UserSummary is one entry of a user search result.
type UserSummary struct {
	Handle      string  `json:"handle"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
}

// Profile holds the header block of a profile page. Any field that could
// not be read from the markup is nil.
type Profile struct {
	Handle      string     `json:"handle"`
	DisplayName string     `json:"display_name"`
	Bio         *string    `json:"bio"`
	Location    *string    `json:"location"`
	Website     *string    `json:"website"`
	JoinDate    *string    `json:"join_date"`
	JoinedAt    *time.Time `json:"joined_at"`
	Tweets      *int       `json:"tweets"`
	Following   *int       `json:"following"`
	Followers   *int       `json:"followers"`
	Likes       *int       `json:"likes"`
	AvatarURL   *string    `json:"avatar_url"`
	BannerURL   *string    `json:"banner_url"`
	Verified    bool       `json:"verified"`
	Protected   bool       `json:"protected"`
}

// Tweet is one timeline entry.
type Tweet struct {
	ID          string     `json:"id,omitempty"`
	Author      string     `json:"author"`
	AuthorName  *string    `json:"author_name"`
	Text        *string    `json:"text"`
	ContentHTML string     `json:"-"`
	Date        *string    `json:"date"`
	Timestamp   *time.Time `json:"timestamp"`
	Replies     *int       `json:"replies"`
	Retweets    *int       `json:"retweets"`
	Quotes      *int       `json:"quotes"`
	Likes       *int       `json:"likes"`
	Images      []string   `json:"images"`
	Link        *string    `json:"link"`
	RetweetedBy *string    `json:"retweeted_by"`
	IsRetweet   bool       `json:"is_retweet"`
	IsReply     bool       `json:"is_reply"`
	ReplyingTo  []string   `json:"replying_to,omitempty"`
	Pinned      bool       `json:"pinned"`
}

// ProfilePage is everything read from a profile page.
type ProfilePage struct {
	Profile *Profile `json:"profile"`
	Tweets  []Tweet  `json:"tweets"`
	Media   []string `json:"media"`
	Cursor  string   `json:"cursor,omitempty"`
}

// TweetPage is a (possibly multi-page) timeline.
type TweetPage struct {
	Tweets []Tweet `json:"tweets"`
	Cursor string  `json:"cursor,omitempty"`
}

// UserPage is a user search result.
type UserPage struct {
	Users  []UserSummary `json:"users"`
	Cursor string        `json:"cursor,omitempty"`
}

// ---------- Plugin Interfaces ----------

// Fetcher defines how mirror pages are retrieved.
type Fetcher interface {
	// Name returns a human-readable identifier for this fetcher.
	Name() string

	// Fetch blocks until the page at url satisfies wait or the wait
	// timeout elapses. Implementations must release any per-fetch
	// resources on every return path.
	Fetch(ctx context.Context, url string, wait WaitCondition) (*PageData, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// OutputWriter renders results.
type OutputWriter interface {
	// Name returns a human-readable identifier for this writer.
	Name() string

	WriteUsers(page *UserPage) error
	WriteProfile(page *ProfilePage) error
	WriteTweets(page *TweetPage) error
}
