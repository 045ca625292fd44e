package social

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

var numericClientID = regexp.MustCompile(`^\d+$`)

// Credentials are the per-platform developer app credentials a user submits.
type Credentials struct {
	Platform     Platform `json:"platform"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURI  string   `json:"redirect_uri"`
}

// Normalize trims surrounding whitespace from every field.
func (c *Credentials) Normalize() {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.RedirectURI = strings.TrimSpace(c.RedirectURI)
}

// Validate checks the credential invariants. Callers must Normalize first.
func (c *Credentials) Validate() error {
	if _, ok := profiles[c.Platform]; !ok {
		return ErrUnsupportedPlatform
	}
	if c.ClientID == "" {
		return &ValidationError{Field: "client_id", Reason: "required"}
	}
	if c.ClientSecret == "" {
		return &ValidationError{Field: "client_secret", Reason: "required"}
	}
	if c.RedirectURI == "" {
		return &ValidationError{Field: "redirect_uri", Reason: "required"}
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "redirect_uri", Reason: "must be an absolute http(s) URL"}
	}
	if c.Platform == Instagram && !numericClientID.MatchString(c.ClientID) {
		return &ValidationError{Field: "client_id", Reason: "Instagram App ID must be numeric"}
	}
	return nil
}

// Token is the provider-issued token record stored per platform.
// ExpiresAt is epoch milliseconds; zero means the token does not expire.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// Expired reports whether the token has an expiry in the past.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != 0 && t.ExpiresAt < now.UnixMilli()
}

// TTL returns how long the stored record should live: until expiry when the
// token expires, otherwise the supplied default.
func (t *Token) TTL(now time.Time, def time.Duration) time.Duration {
	if t.ExpiresAt == 0 {
		return def
	}
	ttl := time.UnixMilli(t.ExpiresAt).Sub(now)
	if ttl < time.Minute {
		return time.Minute
	}
	return ttl
}
