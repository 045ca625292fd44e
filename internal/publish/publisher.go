// Package publish is the boundary to the per-platform posting APIs. The
// token lifecycle core only resolves a token and hands off; the actual
// platform call shapes live behind the Publisher interface.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/postloom/social-auth/internal/domain/social"
)

// Post is the content to publish.
type Post struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// Publisher posts content to a platform on the user's behalf and returns
// the created post's ID.
type Publisher interface {
	Publish(ctx context.Context, p social.Platform, accessToken string, post Post) (string, error)
}

type endpointRow struct {
	url       string
	textField string
}

var publishEndpoints = map[social.Platform]endpointRow{
	social.Facebook:  {url: "https://graph.facebook.com/v19.0/me/feed", textField: "message"},
	social.Twitter:   {url: "https://api.twitter.com/2/tweets", textField: "text"},
	social.LinkedIn:  {url: "https://api.linkedin.com/v2/ugcPosts", textField: "commentary"},
	social.Instagram: {url: "https://graph.facebook.com/v19.0/me/media", textField: "caption"},
}

// HTTPPublisher is a thin JSON poster against each platform's publish
// endpoint.
type HTTPPublisher struct {
	httpClient *http.Client
	// Endpoints overrides the endpoint table; tests point it at local
	// servers.
	Endpoints map[social.Platform]string
}

var _ Publisher = (*HTTPPublisher)(nil)

// NewHTTPPublisher constructs the default Publisher.
func NewHTTPPublisher(client *http.Client) *HTTPPublisher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPPublisher{httpClient: client}
}

// Publish posts the content with a bearer token and returns the new post ID.
func (h *HTTPPublisher) Publish(ctx context.Context, p social.Platform, accessToken string, post Post) (string, error) {
	row, ok := publishEndpoints[p]
	if !ok {
		return "", social.ErrUnsupportedPlatform
	}
	endpoint := row.url
	if override, ok := h.Endpoints[p]; ok {
		endpoint = override
	}

	body := map[string]any{row.textField: post.Text}
	if post.ImageURL != "" {
		body["image_url"] = post.ImageURL
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s publish request: %w", p, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read publish response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &social.ProviderError{Platform: p, Op: "publish", Status: resp.StatusCode, Message: string(respBody)}
	}

	var raw struct {
		ID   string `json:"id"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return "", fmt.Errorf("decode publish response: %w", err)
	}
	if raw.ID != "" {
		return raw.ID, nil
	}
	return raw.Data.ID, nil
}
