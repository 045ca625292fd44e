// Package provider performs the outbound OAuth calls: authorization-code
// exchange and token refresh against each platform's endpoints.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/postloom/social-auth/internal/domain/social"
)

const instagramTokenLifetime = 60 * 24 * time.Hour

// Client encapsulates the provider-facing token operations.
type Client interface {
	Exchange(ctx context.Context, p social.Platform, code string, creds social.Credentials) (*social.Token, error)
	Refresh(ctx context.Context, p social.Platform, refreshToken string, creds social.Credentials) (*social.Token, error)
}

// HTTPClient is the default HTTP implementation. Each call is a single
// round trip; nothing is cached or retried.
type HTTPClient struct {
	httpClient *http.Client
	// Profiles overrides the provider table lookup; tests point it at
	// local endpoints. Nil means social.ProfileFor.
	Profiles func(social.Platform) (social.Profile, error)
	now      func() time.Time
}

// NewHTTPClient constructs the default Client.
func NewHTTPClient(client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{httpClient: client, now: time.Now}
}

func (c *HTTPClient) profileFor(p social.Platform) (social.Profile, error) {
	if c.Profiles != nil {
		return c.Profiles(p)
	}
	return social.ProfileFor(p)
}

// Exchange swaps an authorization code for a token. All four platforms post
// the same form fields; Twitter adds HTTP Basic auth and Instagram uses its
// own endpoint and gets a synthesized 60-day expiry when the response
// carries none (Instagram tokens are long-lived but the response omits it).
func (c *HTTPClient) Exchange(ctx context.Context, p social.Platform, code string, creds social.Credentials) (*social.Token, error) {
	profile, err := c.profileFor(p)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", creds.RedirectURI)
	form.Set("grant_type", "authorization_code")

	raw, err := c.postForm(ctx, p, "exchange", profile.TokenURL, form, profile.BasicAuth, creds)
	if err != nil {
		return nil, err
	}

	token := c.tokenFromResponse(raw)
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, &social.ProviderError{Platform: p, Op: "exchange", Status: http.StatusOK, Message: "response missing access_token"}
	}
	if p == social.Instagram && token.ExpiresAt == 0 {
		token.ExpiresAt = c.now().Add(instagramTokenLifetime).UnixMilli()
	}
	return token, nil
}

// Refresh obtains a new token from a stored refresh token. Facebook and
// LinkedIn use the standard refresh_token grant, Twitter the same grant
// behind Basic auth. Instagram diverges completely: no client_secret, grant
// ig_refresh_token, and the old token travels as access_token.
func (c *HTTPClient) Refresh(ctx context.Context, p social.Platform, refreshToken string, creds social.Credentials) (*social.Token, error) {
	profile, err := c.profileFor(p)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	switch profile.RefreshGrant {
	case social.RefreshGrantInstagram:
		form.Set("grant_type", "ig_refresh_token")
		form.Set("access_token", refreshToken)
	default:
		form.Set("client_id", creds.ClientID)
		form.Set("client_secret", creds.ClientSecret)
		form.Set("refresh_token", refreshToken)
		form.Set("grant_type", "refresh_token")
	}

	raw, err := c.postForm(ctx, p, "refresh", profile.RefreshURL, form, profile.BasicAuth, creds)
	if err != nil {
		return nil, err
	}

	token := c.tokenFromResponse(raw)
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, &social.ProviderError{Platform: p, Op: "refresh", Status: http.StatusOK, Message: "response missing access_token"}
	}
	// Providers may omit the refresh token on rotation; keep the old one.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func (c *HTTPClient) postForm(ctx context.Context, p social.Platform, op, endpoint string, form url.Values, basicAuth bool, creds social.Credentials) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicAuth {
		req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s request: %w", p, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &social.ProviderError{
			Platform: p,
			Op:       op,
			Status:   resp.StatusCode,
			Message:  providerMessage(body),
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &social.ProviderError{Platform: p, Op: op, Status: resp.StatusCode, Message: "malformed response body"}
	}
	return raw, nil
}

// tokenFromResponse normalizes a provider token payload. An expires_in
// duration (seconds) becomes an absolute expires_at in epoch milliseconds
// when the response has no absolute value of its own.
func (c *HTTPClient) tokenFromResponse(raw map[string]any) *social.Token {
	token := &social.Token{
		AccessToken:  stringValue(raw["access_token"]),
		RefreshToken: stringValue(raw["refresh_token"]),
		TokenType:    stringValue(raw["token_type"]),
		ExpiresAt:    int64Value(raw["expires_at"]),
	}
	if token.ExpiresAt == 0 {
		if expiresIn := int64Value(raw["expires_in"]); expiresIn > 0 {
			token.ExpiresAt = c.now().UnixMilli() + expiresIn*1000
		}
	}
	return token
}

// providerMessage pulls a human-readable error out of an OAuth error body.
func providerMessage(body []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		if msg := stringValue(raw["error_description"]); msg != "" {
			return msg
		}
		if nested, ok := raw["error"].(map[string]any); ok {
			if msg := stringValue(nested["message"]); msg != "" {
				return msg
			}
		}
		if msg := stringValue(raw["error"]); msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func int64Value(input any) int64 {
	switch v := input.(type) {
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
