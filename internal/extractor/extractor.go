// Package extractor turns Nitter markup into plugin records.
//
// Everything here is a pure function of its input markup. An Extractor
// holds only its immutable Rewriter, so one value can be shared by any
// number of goroutines.
package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extractor reads records out of mirror pages.
type Extractor struct {
	rw *Rewriter
}

// New creates an Extractor that rewrites media through rw.
// A nil rw uses DefaultRewriter.
func New(rw *Rewriter) *Extractor {
	if rw == nil {
		rw = DefaultRewriter
	}
	return &Extractor{rw: rw}
}

// Default is the Extractor behind the package-level functions.
var Default = New(nil)

// Rewriter returns the media rewriter used by e.
func (e *Extractor) Rewriter() *Rewriter { return e.rw }

func parse(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return doc, nil
}

// ---------- text helpers ----------

var innerWhitespace = regexp.MustCompile(`[ \t\r\f\v]+`)

// text returns the whitespace-collapsed text of the first matched node.
func text(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return collapse(nodeText(s.Get(0)))
}

// nodeText concatenates the text under n, turning <br> into newlines.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(innerWhitespace.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// optional maps "" to nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.First().Attr(name)
	return strings.TrimSpace(v)
}

// cleanHandle strips whitespace and a leading "@".
func cleanHandle(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
