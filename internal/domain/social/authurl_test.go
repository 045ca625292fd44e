package social

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildAuthorizeURLFacebook(t *testing.T) {
	authURL, err := BuildAuthorizeURL(Facebook, Credentials{
		Platform:     Facebook,
		ClientID:     "123",
		ClientSecret: "abc",
		RedirectURI:  "https://x.test/cb",
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(authURL, "https://www.facebook.com/v19.0/dialog/oauth?"))
	require.Contains(t, authURL, "client_id=123")
	require.Contains(t, authURL, "redirect_uri=https%3A%2F%2Fx.test%2Fcb")
	require.Contains(t, authURL, "response_type=code")
	require.Contains(t, authURL, "state=facebook")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "pages_manage_posts,pages_read_engagement,publish_to_groups", parsed.Query().Get("scope"))
}

func TestBuildAuthorizeURLInstagramUsesAppID(t *testing.T) {
	authURL, err := BuildAuthorizeURL(Instagram, Credentials{
		Platform:     Instagram,
		ClientID:     "1234567890",
		ClientSecret: "abc",
		RedirectURI:  "https://x.test/cb",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "api.instagram.com", parsed.Host)

	query := parsed.Query()
	require.Equal(t, "1234567890", query.Get("app_id"))
	require.Empty(t, query.Get("client_id"))
	require.Equal(t, "instagram_basic,instagram_content_publish", query.Get("scope"))
	require.Equal(t, "instagram", query.Get("state"))
}

func TestBuildAuthorizeURLPerPlatformEndpoints(t *testing.T) {
	hosts := map[Platform]string{
		Facebook:  "www.facebook.com",
		Twitter:   "twitter.com",
		LinkedIn:  "www.linkedin.com",
		Instagram: "api.instagram.com",
	}
	for p, host := range hosts {
		authURL, err := BuildAuthorizeURL(p, Credentials{
			Platform:     p,
			ClientID:     "1",
			ClientSecret: "s",
			RedirectURI:  "https://x.test/cb",
		})
		require.NoError(t, err)
		parsed, err := url.Parse(authURL)
		require.NoError(t, err)
		require.Equal(t, host, parsed.Host, string(p))
		require.Equal(t, string(p), parsed.Query().Get("state"))
	}
}

func TestBuildAuthorizeURLUnsupportedPlatform(t *testing.T) {
	_, err := BuildAuthorizeURL(Platform("tiktok"), Credentials{})
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}
