package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/ramkansal/nitfang/pkg/plugin"
)

// MarkdownWriter renders results as a Markdown document. Tweet bodies are
// converted from their markup so links and emphasis survive.
type MarkdownWriter struct {
	out  io.Writer
	conv *md.Converter
	mu   sync.Mutex
}

// NewMarkdownWriter creates a Markdown writer on w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		out:  w,
		conv: md.NewConverter("", true, nil),
	}
}

func (w *MarkdownWriter) Name() string { return "markdown" }

func (w *MarkdownWriter) WriteUsers(page *plugin.UserPage) error {
	var b strings.Builder
	b.WriteString("# Users\n\n")
	if len(page.Users) == 0 {
		b.WriteString("_No users found._\n")
	}
	for _, u := range page.Users {
		fmt.Fprintf(&b, "- **@%s**", u.Handle)
		if name := str(u.DisplayName); name != "" {
			fmt.Fprintf(&b, " (%s)", name)
		}
		if bio := str(u.Bio); bio != "" {
			fmt.Fprintf(&b, ": %s", oneLine(bio))
		}
		b.WriteString("\n")
	}
	writeCursor(&b, page.Cursor)
	return w.write(b.String())
}

func (w *MarkdownWriter) WriteProfile(page *plugin.ProfilePage) error {
	var b strings.Builder

	if p := page.Profile; p != nil {
		fmt.Fprintf(&b, "# %s (@%s)\n\n", p.DisplayName, p.Handle)
		if p.AvatarURL != nil {
			fmt.Fprintf(&b, "![avatar](%s)\n\n", *p.AvatarURL)
		}
		if bio := str(p.Bio); bio != "" {
			b.WriteString(quote(bio) + "\n\n")
		}

		fields := []struct{ label, value string }{
			{"Location", str(p.Location)},
			{"Website", str(p.Website)},
			{"Joined", str(p.JoinDate)},
			{"Tweets", count(p.Tweets)},
			{"Following", count(p.Following)},
			{"Followers", count(p.Followers)},
			{"Likes", count(p.Likes)},
		}
		for _, f := range fields {
			if f.value == "" {
				continue
			}
			fmt.Fprintf(&b, "- **%s:** %s\n", f.label, f.value)
		}
		if p.Verified {
			b.WriteString("- **Verified**\n")
		}
		if p.Protected {
			b.WriteString("- **Protected**\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Tweets\n\n")
	if err := w.tweets(&b, page.Tweets); err != nil {
		return err
	}

	if len(page.Media) > 0 {
		b.WriteString("## Media\n\n")
		for _, m := range page.Media {
			fmt.Fprintf(&b, "- ![](%s)\n", m)
		}
		b.WriteString("\n")
	}

	writeCursor(&b, page.Cursor)
	return w.write(b.String())
}

func (w *MarkdownWriter) WriteTweets(page *plugin.TweetPage) error {
	var b strings.Builder
	b.WriteString("# Tweets\n\n")
	if err := w.tweets(&b, page.Tweets); err != nil {
		return err
	}
	writeCursor(&b, page.Cursor)
	return w.write(b.String())
}

func (w *MarkdownWriter) tweets(b *strings.Builder, tweets []plugin.Tweet) error {
	if len(tweets) == 0 {
		b.WriteString("_No tweets._\n\n")
		return nil
	}

	for _, t := range tweets {
		fmt.Fprintf(b, "### @%s", t.Author)
		if d := str(t.Date); d != "" {
			fmt.Fprintf(b, " - %s", d)
		}
		b.WriteString("\n\n")

		if k := kind(t); k != "" {
			fmt.Fprintf(b, "_%s_\n\n", k)
		}

		body, err := w.body(t)
		if err != nil {
			return fmt.Errorf("tweet %s: %w", t.ID, err)
		}
		if body != "" {
			b.WriteString(body + "\n\n")
		}

		for _, img := range t.Images {
			fmt.Fprintf(b, "![](%s)\n", img)
		}
		if len(t.Images) > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(b, "Replies %s | Retweets %s | Quotes %s | Likes %s",
			count(t.Replies), count(t.Retweets), count(t.Quotes), count(t.Likes))
		if t.Link != nil {
			fmt.Fprintf(b, " | [link](%s)", *t.Link)
		}
		b.WriteString("\n\n")
	}
	return nil
}

// body prefers the converted markup and falls back to the plain text.
func (w *MarkdownWriter) body(t plugin.Tweet) (string, error) {
	if t.ContentHTML == "" {
		return str(t.Text), nil
	}
	out, err := w.conv.ConvertString(t.ContentHTML)
	if err != nil {
		return "", fmt.Errorf("convert HTML to Markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (w *MarkdownWriter) write(doc string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, doc); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// ---------- helpers ----------

func writeCursor(b *strings.Builder, cursor string) {
	if cursor != "" {
		fmt.Fprintf(b, "Next cursor: `%s`\n", cursor)
	}
}

func quote(s string) string {
	return "> " + strings.ReplaceAll(s, "\n", "\n> ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
