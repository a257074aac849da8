package extractor

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

// joinDateLayout matches the tooltip on the join date, e.g.
// "12:50 PM - 21 Mar 2006".
const joinDateLayout = "3:04 PM - 2 Jan 2006"

// ExtractProfile reads a profile header with the Default extractor.
func ExtractProfile(markup string) (*plugin.Profile, error) {
	return Default.Profile(markup)
}

// ExtractProfilePage reads a whole profile page with the Default extractor.
func ExtractProfilePage(markup string) (*plugin.ProfilePage, error) {
	return Default.ProfilePage(markup)
}

// Profile reads the profile header block. It fails with a
// *MissingProfileError only when the handle or display name is absent;
// every other field is nil when it cannot be read.
func (e *Extractor) Profile(markup string) (*plugin.Profile, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}
	return e.profile(doc)
}

// ProfilePage reads the header, the visible timeline, the photo rail and
// the next-page cursor.
func (e *Extractor) ProfilePage(markup string) (*plugin.ProfilePage, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}
	p, err := e.profile(doc)
	if err != nil {
		return nil, err
	}
	return &plugin.ProfilePage{
		Profile: p,
		Tweets:  e.tweets(doc),
		Media:   e.photoRail(doc),
		Cursor:  cursor(doc),
	}, nil
}

func (e *Extractor) profile(doc *goquery.Document) (*plugin.Profile, error) {
	card := doc.Find(ProfileCard).First()

	fullname := card.Find(ProfileFullname).First()
	username := card.Find(ProfileUsername).First()

	name := text(fullname)
	if name == "" {
		name = attr(fullname, "title")
	}
	handle := cleanHandle(text(username))
	if handle == "" {
		handle = cleanHandle(attr(username, "title"))
	}
	if card.Length() == 0 || name == "" || handle == "" {
		return nil, &MissingProfileError{Reason: text(doc.Find(ErrorPanel))}
	}

	p := &plugin.Profile{
		Handle:      handle,
		DisplayName: name,
		Bio:         optional(text(doc.Find(ProfileBio))),
		Location:    optional(text(doc.Find(ProfileLocation))),
		Tweets:      ParseCount(text(doc.Find(StatTweets))),
		Following:   ParseCount(text(doc.Find(StatFollowing))),
		Followers:   ParseCount(text(doc.Find(StatFollowers))),
		Likes:       ParseCount(text(doc.Find(StatLikes))),
		Verified:    fullname.Find(ProfileVerified).Length() > 0,
		Protected:   fullname.Find(ProfileProtected).Length() > 0,
	}

	if site := doc.Find(ProfileWebsite).First(); site.Length() > 0 {
		if href := attr(site, "href"); href != "" {
			p.Website = &href
		} else {
			p.Website = optional(text(site))
		}
	}

	joined := doc.Find(ProfileJoinDate).First()
	if shown := strings.TrimSpace(strings.TrimPrefix(text(joined), "Joined")); shown != "" {
		p.JoinDate = &shown
	}
	if t, err := time.Parse(joinDateLayout, attr(joined, "title")); err == nil {
		p.JoinedAt = &t
	}

	avatar := attr(card.Find(ProfileAvatar), "src")
	if avatar == "" {
		avatar = attr(card.Find(ProfileAvatarRef), "href")
	}
	p.AvatarURL = e.media(avatar)
	p.BannerURL = e.media(attr(doc.Find(ProfileBanner), "src"))

	return p, nil
}

func (e *Extractor) photoRail(doc *goquery.Document) []string {
	media := []string{}
	doc.Find(PhotoRail).Each(func(_ int, img *goquery.Selection) {
		if src := attr(img, "src"); src != "" {
			media = append(media, e.rw.Rewrite(src))
		}
	})
	return media
}

// media rewrites a non-empty src.
func (e *Extractor) media(src string) *string {
	if src == "" {
		return nil
	}
	u := e.rw.Rewrite(src)
	return &u
}
