package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/postloom/social-auth/internal/adapter/cache"
	"github.com/postloom/social-auth/internal/domain/social"
	"github.com/postloom/social-auth/internal/secrets"
	"github.com/postloom/social-auth/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *cache.MemoryStateStore) {
	t.Helper()
	cipher, err := secrets.NewCipher("0123456789abcdef0123456789abcdef", "", zap.NewNop())
	require.NoError(t, err)
	state := cache.NewMemoryStateStore()
	return store.New(state, cipher, zap.NewNop()), state
}

func testCredentials(p social.Platform) social.Credentials {
	id := "client-id"
	if p == social.Instagram {
		id = "1234567890"
	}
	return social.Credentials{
		Platform:     p,
		ClientID:     id,
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.test/auth/callback/" + string(p),
	}
}

func TestStoreCredentialsRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := s.HasCredentials(ctx, social.Facebook)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.LoadCredentials(ctx, social.Facebook)
	require.ErrorIs(t, err, social.ErrNotConfigured)

	saved := testCredentials(social.Facebook)
	require.NoError(t, s.SaveCredentials(ctx, social.Facebook, saved))

	ok, err = s.HasCredentials(ctx, social.Facebook)
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := s.LoadCredentials(ctx, social.Facebook)
	require.NoError(t, err)
	require.Equal(t, saved, *loaded)
}

func TestStoreCredentialsStoredEncrypted(t *testing.T) {
	s, state := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCredentials(ctx, social.Twitter, testCredentials(social.Twitter)))

	raw, ok, err := state.Get(ctx, "twitter_credentials")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, raw, "client-secret")
}

func TestStoreCorruptCredentialsSelfHeal(t *testing.T) {
	s, state := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, state.Set(ctx, "facebook_credentials", "not-encrypted-data", 0))

	_, err := s.LoadCredentials(ctx, social.Facebook)
	require.ErrorIs(t, err, secrets.ErrDecrypt)

	// The corrupted entry is gone, so the next load reports not configured.
	_, err = s.LoadCredentials(ctx, social.Facebook)
	require.ErrorIs(t, err, social.ErrNotConfigured)

	diags, err := s.Diagnostics(ctx, social.Facebook)
	require.NoError(t, err)
	require.Contains(t, diags, store.SlotDecryptError)

	var record map[string]any
	require.NoError(t, json.Unmarshal(diags[store.SlotDecryptError], &record))
	require.Equal(t, "credentials", record["slot"])
	require.NotEmpty(t, record["message"])
}

func TestStoreTokenRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	loaded, err := s.LoadToken(ctx, social.LinkedIn)
	require.NoError(t, err)
	require.Nil(t, loaded)

	saved := social.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    0,
		TokenType:    "bearer",
	}
	require.NoError(t, s.SaveToken(ctx, social.LinkedIn, saved))

	loaded, err = s.LoadToken(ctx, social.LinkedIn)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, saved, *loaded)
}

func TestStoreCorruptTokenSelfHeal(t *testing.T) {
	s, state := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, state.Set(ctx, "instagram_token", "garbage:AAAA", 0))

	_, err := s.LoadToken(ctx, social.Instagram)
	require.ErrorIs(t, err, social.ErrTokenInvalid)

	loaded, err := s.LoadToken(ctx, social.Instagram)
	require.NoError(t, err)
	require.Nil(t, loaded)

	diags, err := s.Diagnostics(ctx, social.Instagram)
	require.NoError(t, err)
	require.Contains(t, diags, store.SlotDecryptError)
}

func TestStoreClearToken(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCredentials(ctx, social.Twitter, testCredentials(social.Twitter)))
	require.NoError(t, s.SaveToken(ctx, social.Twitter, social.Token{AccessToken: "access"}))

	require.NoError(t, s.ClearToken(ctx, social.Twitter))

	loaded, err := s.LoadToken(ctx, social.Twitter)
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Credentials survive a token clear.
	ok, err := s.HasCredentials(ctx, social.Twitter)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.ClearToken(ctx, social.Twitter))
}

func TestStoreClearAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCredentials(ctx, social.Facebook, testCredentials(social.Facebook)))
	require.NoError(t, s.SaveToken(ctx, social.Facebook, social.Token{AccessToken: "access"}))
	s.WriteDiagnostic(ctx, social.Facebook, store.SlotAuthError, map[string]string{"error": "denied"})

	require.NoError(t, s.ClearAll(ctx, social.Facebook))

	ok, err := s.HasCredentials(ctx, social.Facebook)
	require.NoError(t, err)
	require.False(t, ok)

	loaded, err := s.LoadToken(ctx, social.Facebook)
	require.NoError(t, err)
	require.Nil(t, loaded)

	diags, err := s.Diagnostics(ctx, social.Facebook)
	require.NoError(t, err)
	require.Empty(t, diags)

	// Clearing an already-empty platform is fine.
	require.NoError(t, s.ClearAll(ctx, social.Facebook))
}

func TestStorePlatformIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCredentials(ctx, social.Facebook, testCredentials(social.Facebook)))
	require.NoError(t, s.SaveCredentials(ctx, social.Twitter, testCredentials(social.Twitter)))

	require.NoError(t, s.ClearAll(ctx, social.Facebook))

	ok, err := s.HasCredentials(ctx, social.Twitter)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStoreDiagnostics(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	diags, err := s.Diagnostics(ctx, social.LinkedIn)
	require.NoError(t, err)
	require.Empty(t, diags)

	s.WriteDiagnostic(ctx, social.LinkedIn, store.SlotAuthDebug, map[string]string{"auth_url": "https://example.test"})
	s.WriteDiagnostic(ctx, social.LinkedIn, store.SlotAuthSuccess, map[string]string{"message": "connected"})

	diags, err = s.Diagnostics(ctx, social.LinkedIn)
	require.NoError(t, err)
	require.Len(t, diags, 2)
	require.Contains(t, diags, store.SlotAuthDebug)
	require.Contains(t, diags, store.SlotAuthSuccess)
}
