package social

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	for _, p := range Platforms() {
		parsed, err := ParsePlatform(string(p))
		require.NoError(t, err)
		require.Equal(t, p, parsed)
	}

	parsed, err := ParsePlatform("  Facebook ")
	require.NoError(t, err)
	require.Equal(t, Facebook, parsed)

	for _, raw := range []string{"", "myspace", "face book", "twitter2"} {
		_, err := ParsePlatform(raw)
		require.ErrorIs(t, err, ErrUnsupportedPlatform, raw)
	}
}

func TestProfileTable(t *testing.T) {
	fb, err := ProfileFor(Facebook)
	require.NoError(t, err)
	require.Equal(t, "client_id", fb.ClientIDParam)
	require.False(t, fb.BasicAuth)
	require.Equal(t, RefreshGrantStandard, fb.RefreshGrant)
	require.Contains(t, fb.Scope, "pages_manage_posts")

	tw, err := ProfileFor(Twitter)
	require.NoError(t, err)
	require.True(t, tw.BasicAuth)
	require.Contains(t, tw.Scope, "offline.access")

	ig, err := ProfileFor(Instagram)
	require.NoError(t, err)
	require.Equal(t, "app_id", ig.ClientIDParam)
	require.Equal(t, RefreshGrantInstagram, ig.RefreshGrant)
	require.NotEqual(t, ig.TokenURL, ig.RefreshURL)

	_, err = ProfileFor(Platform("tiktok"))
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}
