package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

// ExtractUsers reads a user search result page with the Default extractor.
func ExtractUsers(markup string) ([]plugin.UserSummary, error) {
	return Default.Users(markup)
}

// Users returns every user card on the page in document order. Cards
// without a handle are skipped; a page without cards yields an empty slice.
func (e *Extractor) Users(markup string) ([]plugin.UserSummary, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}
	return e.users(doc), nil
}

// UserPage reads the users and the next-page cursor.
func (e *Extractor) UserPage(markup string) (*plugin.UserPage, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}
	return &plugin.UserPage{
		Users:  e.users(doc),
		Cursor: cursor(doc),
	}, nil
}

func (e *Extractor) users(doc *goquery.Document) []plugin.UserSummary {
	users := []plugin.UserSummary{}

	doc.Find(TimelineItem).Each(func(_ int, item *goquery.Selection) {
		card := item.Find(ProfileResult).First()
		if card.Length() == 0 {
			return
		}

		handle := cleanHandle(text(card.Find(ItemUsername)))
		if handle == "" {
			return
		}

		u := plugin.UserSummary{
			Handle:      handle,
			DisplayName: optional(text(card.Find(ItemFullname))),
			Bio:         optional(text(card.Find(ItemContent))),
		}
		u.AvatarURL = e.media(attr(card.Find(ItemAvatar), "src"))
		users = append(users, u)
	})

	return users
}
