// Package output renders scraper results as JSON, text tables or Markdown.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ramkansal/nitfang/pkg/plugin"
)

// Format names an output renderer.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted formats in help order.
var Formats = []Format{FormatJSON, FormatText, FormatMarkdown}

// New returns the writer for format, writing to w.
func New(format Format, w io.Writer) (plugin.OutputWriter, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON, "":
		return NewJSONWriter(w), nil
	case FormatText:
		return NewTextWriter(w), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// ---------- helpers ----------

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func count(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

// kind summarizes the flags of a tweet in a few words.
func kind(t plugin.Tweet) string {
	var parts []string
	if t.Pinned {
		parts = append(parts, "pinned")
	}
	if t.IsRetweet {
		if by := str(t.RetweetedBy); by != "" {
			parts = append(parts, "retweeted by "+by)
		} else {
			parts = append(parts, "retweet")
		}
	}
	if t.IsReply {
		parts = append(parts, "reply to @"+strings.Join(t.ReplyingTo, " @"))
	}
	return strings.Join(parts, ", ")
}
