package extractor

// Nitter DOM selectors.
// The mirror is a third party and changes its markup; keep every
// structural assumption in this file.

const (
	// Page-level
	ErrorPanel = `.error-panel`
	ShowMore   = `.show-more a[href]`

	// A protected account has a timeline header but no .timeline.
	TimelineProtected = `.timeline-protected`

	// Timeline blocks
	TimelineItem  = `.timeline-item`
	TweetBody     = `.tweet-body`
	ProfileResult = `.profile-result`

	// Shared tweet/user card fields
	ItemFullname = `.fullname`
	ItemUsername = `.username`
	ItemAvatar   = `.tweet-avatar img`
	ItemContent  = `.tweet-content`

	// Tweet fields
	TweetLink      = `.tweet-link`
	TweetDate      = `.tweet-date a`
	TweetStat      = `.tweet-stats .tweet-stat`
	TweetImages    = `.attachments .attachment.image img`
	RetweetHeader  = `.retweet-header`
	ReplyingTo     = `.replying-to a`
	PinnedMarker   = `.pinned`
	QuoteContainer = `.quote`

	// Stat icons inside TweetStat
	IconReplies  = `.icon-comment`
	IconRetweets = `.icon-retweet`
	IconQuotes   = `.icon-quote`
	IconLikes    = `.icon-heart`

	// Profile header
	ProfileCard      = `.profile-card`
	ProfileFullname  = `.profile-card-fullname`
	ProfileUsername  = `.profile-card-username`
	ProfileAvatar    = `.profile-card-avatar img`
	ProfileAvatarRef = `a.profile-card-avatar`
	ProfileBanner    = `.profile-banner img`
	ProfileBio       = `.profile-bio`
	ProfileLocation  = `.profile-location`
	ProfileWebsite   = `.profile-website a`
	ProfileJoinDate  = `.profile-joindate span`
	ProfileVerified  = `.verified-icon`
	ProfileProtected = `.icon-lock`
	StatTweets       = `.profile-statlist .posts .profile-stat-num`
	StatFollowing    = `.profile-statlist .following .profile-stat-num`
	StatFollowers    = `.profile-statlist .followers .profile-stat-num`
	StatLikes        = `.profile-statlist .likes .profile-stat-num`
	PhotoRail        = `.photo-rail-grid a img`
)

// Wait conditions for fetchers.
const (
	WaitForProfile  = ProfileCard + `, ` + ErrorPanel
	WaitForTimeline = `.timeline, ` + TimelineProtected + `, ` + ErrorPanel
)
