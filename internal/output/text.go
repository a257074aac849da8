package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ramkansal/nitfang/pkg/plugin"
)

// textWidth caps the tweet and bio columns; longer text wraps.
const textWidth = 60

// TextWriter renders results as terminal tables.
type TextWriter struct {
	out io.Writer
	mu  sync.Mutex
}

// NewTextWriter creates a new plain-text output writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{out: w}
}

func (w *TextWriter) Name() string { return "text" }

func (w *TextWriter) WriteUsers(page *plugin.UserPage) error {
	t := newTable()
	t.AppendHeader(table.Row{"Handle", "Name", "Bio"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: textWidth}})
	for _, u := range page.Users {
		t.AppendRow(table.Row{"@" + u.Handle, str(u.DisplayName), str(u.Bio)})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d users", len(page.Users))})

	return w.print(t.Render(), cursorLine(page.Cursor))
}

func (w *TextWriter) WriteProfile(page *plugin.ProfilePage) error {
	var blocks []string

	if p := page.Profile; p != nil {
		t := newTable()
		t.SetTitle("%s (@%s)", p.DisplayName, p.Handle)
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: textWidth}})
		rows := []table.Row{
			{"Bio", str(p.Bio)},
			{"Location", str(p.Location)},
			{"Website", str(p.Website)},
			{"Joined", str(p.JoinDate)},
			{"Tweets", count(p.Tweets)},
			{"Following", count(p.Following)},
			{"Followers", count(p.Followers)},
			{"Likes", count(p.Likes)},
			{"Verified", yesNo(p.Verified)},
			{"Protected", yesNo(p.Protected)},
			{"Avatar", str(p.AvatarURL)},
			{"Banner", str(p.BannerURL)},
		}
		for _, r := range rows {
			if r[1] == "" {
				continue
			}
			t.AppendRow(r)
		}
		blocks = append(blocks, t.Render())
	}

	blocks = append(blocks, tweetTable(page.Tweets))

	if len(page.Media) > 0 {
		t := newTable()
		t.AppendHeader(table.Row{"Media"})
		for _, m := range page.Media {
			t.AppendRow(table.Row{m})
		}
		blocks = append(blocks, t.Render())
	}

	return w.print(append(blocks, cursorLine(page.Cursor))...)
}

func (w *TextWriter) WriteTweets(page *plugin.TweetPage) error {
	return w.print(tweetTable(page.Tweets), cursorLine(page.Cursor))
}

func (w *TextWriter) print(blocks ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range blocks {
		if b == "" {
			continue
		}
		if _, err := fmt.Fprintln(w.out, b); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}
	return nil
}

// ---------- helpers ----------

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.Style().Title.Format = text.FormatDefault
	return t
}

func tweetTable(tweets []plugin.Tweet) string {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Date", "Author", "Text", "Replies", "Retweets", "Quotes", "Likes", "Notes"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: textWidth}})
	for _, tw := range tweets {
		body := str(tw.Text)
		if n := len(tw.Images); n > 0 {
			body += fmt.Sprintf(" [%d image%s]", n, plural(n))
		}
		t.AppendRow(table.Row{
			tw.ID,
			str(tw.Date),
			"@" + tw.Author,
			strings.TrimSpace(body),
			count(tw.Replies),
			count(tw.Retweets),
			count(tw.Quotes),
			count(tw.Likes),
			kind(tw),
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d tweets", len(tweets))})
	return t.Render()
}

func cursorLine(cursor string) string {
	if cursor == "" {
		return ""
	}
	return "next cursor: " + cursor
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
