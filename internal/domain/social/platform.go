package social

import "strings"

// Platform identifies one of the supported social networks.
type Platform string

const (
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Instagram Platform = "instagram"
)

// Platforms lists every supported platform.
func Platforms() []Platform {
	return []Platform{Facebook, Twitter, LinkedIn, Instagram}
}

// ParsePlatform validates a path/query value against the closed platform set.
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := profiles[p]; !ok {
		return "", ErrUnsupportedPlatform
	}
	return p, nil
}

// RefreshGrant selects the wire shape of a provider's refresh request.
type RefreshGrant string

const (
	// RefreshGrantStandard is the regular refresh_token grant with client
	// credentials in the form body.
	RefreshGrantStandard RefreshGrant = "refresh_token"
	// RefreshGrantInstagram is Instagram's ig_refresh_token grant, which
	// drops client_secret and carries the old token as access_token.
	RefreshGrantInstagram RefreshGrant = "ig_refresh_token"
)

// Profile is one row of the provider table: every endpoint and wire quirk a
// platform needs. New platforms are added as rows, not as branch logic.
type Profile struct {
	AuthorizeURL  string
	TokenURL      string
	RefreshURL    string
	Scope         string
	ClientIDParam string
	BasicAuth     bool
	RefreshGrant  RefreshGrant
}

var profiles = map[Platform]Profile{
	Facebook: {
		AuthorizeURL:  "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:      "https://graph.facebook.com/v19.0/oauth/access_token",
		RefreshURL:    "https://graph.facebook.com/v19.0/oauth/access_token",
		Scope:         "pages_manage_posts,pages_read_engagement,publish_to_groups",
		ClientIDParam: "client_id",
		RefreshGrant:  RefreshGrantStandard,
	},
	Twitter: {
		AuthorizeURL:  "https://twitter.com/i/oauth2/authorize",
		TokenURL:      "https://api.twitter.com/2/oauth2/token",
		RefreshURL:    "https://api.twitter.com/2/oauth2/token",
		Scope:         "tweet.read tweet.write users.read offline.access",
		ClientIDParam: "client_id",
		BasicAuth:     true,
		RefreshGrant:  RefreshGrantStandard,
	},
	LinkedIn: {
		AuthorizeURL:  "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:      "https://www.linkedin.com/oauth/v2/accessToken",
		RefreshURL:    "https://www.linkedin.com/oauth/v2/accessToken",
		Scope:         "r_liteprofile w_member_social",
		ClientIDParam: "client_id",
		RefreshGrant:  RefreshGrantStandard,
	},
	Instagram: {
		AuthorizeURL:  "https://api.instagram.com/oauth/authorize",
		TokenURL:      "https://api.instagram.com/oauth/access_token",
		RefreshURL:    "https://graph.instagram.com/refresh_access_token",
		Scope:         "instagram_basic,instagram_content_publish",
		ClientIDParam: "app_id",
		RefreshGrant:  RefreshGrantInstagram,
	},
}

// ProfileFor returns the provider table row for a platform.
func ProfileFor(p Platform) (Profile, error) {
	profile, ok := profiles[p]
	if !ok {
		return Profile{}, ErrUnsupportedPlatform
	}
	return profile, nil
}
