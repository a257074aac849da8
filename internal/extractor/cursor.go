package extractor

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// ExtractCursor returns the cursor of the page's "load more" link, or ""
// when the page is the last one.
func ExtractCursor(markup string) string {
	doc, err := parse(markup)
	if err != nil {
		return ""
	}
	return cursor(doc)
}

// cursor takes the last show-more link carrying a cursor; the first one on
// later pages points back to the newest items.
func cursor(doc *goquery.Document) string {
	var c string
	doc.Find(ShowMore).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if v := u.Query().Get("cursor"); v != "" {
			c = v
		}
	})
	return c
}
