package extractor

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

// tweetDateLayout matches the tooltip on a tweet date, e.g.
// "Mar 21, 2006 · 8:50 PM UTC".
const tweetDateLayout = "Jan 2, 2006 · 3:04 PM MST"

// ExtractTweets reads a timeline with the Default extractor.
func ExtractTweets(markup string) ([]plugin.Tweet, error) {
	return Default.Tweets(markup)
}

// Tweets returns every tweet block on the page in document order. An
// empty timeline yields an empty slice.
func (e *Extractor) Tweets(markup string) ([]plugin.Tweet, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}
	return e.tweets(doc), nil
}

// TweetPage reads the tweets and the next-page cursor.
func (e *Extractor) TweetPage(markup string) (*plugin.TweetPage, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}
	return &plugin.TweetPage{
		Tweets: e.tweets(doc),
		Cursor: cursor(doc),
	}, nil
}

func (e *Extractor) tweets(doc *goquery.Document) []plugin.Tweet {
	tweets := []plugin.Tweet{}
	doc.Find(TimelineItem).Each(func(_ int, item *goquery.Selection) {
		if item.Find(TweetBody).Length() == 0 || item.Find(ProfileResult).Length() > 0 {
			return
		}
		tweets = append(tweets, e.tweet(item))
	})
	return tweets
}

func (e *Extractor) tweet(item *goquery.Selection) plugin.Tweet {
	own := func(sel string) *goquery.Selection { return outsideQuote(item.Find(sel)) }

	t := plugin.Tweet{
		Author:     cleanHandle(text(own(ItemUsername))),
		AuthorName: optional(text(own(ItemFullname))),
		Pinned:     own(PinnedMarker).Length() > 0,
		Images:     []string{},
	}
	if t.Author == "" {
		t.Author = cleanHandle(attr(item, "data-username"))
	}

	if content := own(ItemContent).First(); content.Length() > 0 {
		t.Text = optional(text(content))
		t.ContentHTML, _ = content.Html()
	}

	date := own(TweetDate).First()
	t.Date = optional(text(date))
	if ts, err := time.Parse(tweetDateLayout, attr(date, "title")); err == nil {
		t.Timestamp = &ts
	}

	href := attr(item.Find(TweetLink), "href")
	if href == "" {
		href = attr(date, "href")
	}
	t.ID, t.Link = statusLink(href)

	stats := own(TweetStat)
	t.Replies = stat(stats, IconReplies)
	t.Retweets = stat(stats, IconRetweets)
	t.Quotes = stat(stats, IconQuotes)
	t.Likes = stat(stats, IconLikes)

	own(TweetImages).Each(func(_ int, img *goquery.Selection) {
		if src := attr(img, "src"); src != "" {
			t.Images = append(t.Images, e.rw.Rewrite(src))
		}
	})

	if header := own(RetweetHeader).First(); header.Length() > 0 {
		t.IsRetweet = true
		by := text(header)
		if i := strings.LastIndex(strings.ToLower(by), " retweeted"); i > 0 {
			by = strings.TrimSpace(by[:i])
		}
		t.RetweetedBy = optional(by)
	}

	own(ReplyingTo).Each(func(_ int, a *goquery.Selection) {
		if h := cleanHandle(text(a)); h != "" {
			t.ReplyingTo = append(t.ReplyingTo, h)
		}
	})
	t.IsReply = len(t.ReplyingTo) > 0

	return t
}

// stat reads one engagement counter. The mirror leaves the number out when
// it is zero, so a present icon with no text counts as 0; a missing icon
// is nil.
func stat(stats *goquery.Selection, icon string) *int {
	var n *int
	stats.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find(icon).Length() == 0 {
			return true
		}
		shown := text(s)
		if shown == "" {
			zero := 0
			n = &zero
		} else {
			n = ParseCount(shown)
		}
		return false
	})
	return n
}

// statusLink turns "/jack/status/20#m" into its id and origin URL.
func statusLink(href string) (string, *string) {
	if href == "" {
		return "", nil
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", nil
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[1] != "status" || parts[2] == "" {
		return "", nil
	}
	link := (&url.URL{
		Scheme: "https",
		Host:   OriginHost,
		Path:   "/" + parts[0] + "/status/" + parts[2],
	}).String()
	return parts[2], &link
}

// outsideQuote drops matches that belong to an embedded quote tweet.
func outsideQuote(s *goquery.Selection) *goquery.Selection {
	return s.FilterFunction(func(_ int, n *goquery.Selection) bool {
		return n.Closest(QuoteContainer).Length() == 0
	})
}
