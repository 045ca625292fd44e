// Package auth orchestrates the credential and token lifecycle: saving
// credentials, building authorization URLs, handling callbacks, and
// resolving a valid access token for the publishing layer.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/postloom/social-auth/internal/adapter/provider"
	"github.com/postloom/social-auth/internal/domain/social"
	"github.com/postloom/social-auth/internal/store"
)

// Status is the authentication state reported to the UI.
type Status struct {
	Authenticated bool   `json:"authenticated"`
	Reason        string `json:"reason,omitempty"`
}

// TokenService is the single entry point for token lifecycle operations.
// The publishing layer obtains tokens only through GetAccessToken.
type TokenService struct {
	store    *store.Store
	provider provider.Client
	logger   *zap.Logger
	now      func() time.Time

	// Concurrent refreshes for the same platform coalesce into one
	// provider call instead of racing last-write-wins.
	refreshGroup singleflight.Group
}

// NewTokenService wires the service.
func NewTokenService(st *store.Store, client provider.Client, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.L()
	}
	return &TokenService{store: st, provider: client, logger: logger, now: time.Now}
}

// HasCredentials reports whether credentials are stored for the platform.
func (s *TokenService) HasCredentials(ctx context.Context, p social.Platform) (bool, error) {
	return s.store.HasCredentials(ctx, p)
}

// SaveCredentials validates, normalizes, and persists user-submitted
// credentials. Validation failures never reach the store.
func (s *TokenService) SaveCredentials(ctx context.Context, p social.Platform, creds social.Credentials) (*social.Credentials, error) {
	creds.Platform = p
	creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SaveCredentials(ctx, p, creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// LoginURL builds the platform authorization URL from stored credentials and
// leaves an auth_debug breadcrumb for troubleshooting.
func (s *TokenService) LoginURL(ctx context.Context, p social.Platform) (string, error) {
	creds, err := s.store.LoadCredentials(ctx, p)
	if err != nil {
		return "", err
	}

	authURL, err := social.BuildAuthorizeURL(p, *creds)
	if err != nil {
		return "", err
	}

	s.store.WriteDiagnostic(ctx, p, store.SlotAuthDebug, map[string]any{
		"timestamp":    s.now().UTC().Format(time.RFC3339),
		"redirect_uri": creds.RedirectURI,
		"auth_url":     truncate(authURL, 100),
	})
	return authURL, nil
}

// HandleCallback exchanges the authorization code and persists the token.
func (s *TokenService) HandleCallback(ctx context.Context, p social.Platform, code string) error {
	creds, err := s.store.LoadCredentials(ctx, p)
	if err != nil {
		return err
	}

	token, err := s.provider.Exchange(ctx, p, code, *creds)
	if err != nil {
		s.store.WriteDiagnostic(ctx, p, store.SlotAuthError, map[string]any{
			"timestamp": s.now().UTC().Format(time.RFC3339),
			"stage":     "exchange",
			"message":   err.Error(),
		})
		return err
	}

	if err := s.store.SaveToken(ctx, p, *token); err != nil {
		return err
	}
	s.store.WriteDiagnostic(ctx, p, store.SlotAuthSuccess, map[string]any{
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
	s.logger.Info("authenticated", zap.String("platform", string(p)))
	return nil
}

// RecordCallbackError stores the provider's callback error for display.
func (s *TokenService) RecordCallbackError(ctx context.Context, p social.Platform, errCode, description string, query map[string]string) {
	s.logger.Warn("oauth callback error",
		zap.String("platform", string(p)),
		zap.String("error", errCode),
		zap.String("description", description))

	record := map[string]any{
		"timestamp":         s.now().UTC().Format(time.RFC3339),
		"error":             errCode,
		"error_description": description,
	}
	s.store.WriteDiagnostic(ctx, p, store.SlotAuthError, record)

	callbackRecord := map[string]any{
		"timestamp":         s.now().UTC().Format(time.RFC3339),
		"error":             errCode,
		"error_description": description,
		"query":             query,
	}
	s.store.WriteDiagnostic(ctx, p, store.SlotCallbackError, callbackRecord)
}

// Statuses for the Status call.
const (
	ReasonExpired = "expired"
	ReasonInvalid = "invalid"
)

// Status reports whether a usable token is stored. It never triggers a
// refresh; an expired token reports expired even when refreshable.
func (s *TokenService) Status(ctx context.Context, p social.Platform) (Status, error) {
	token, err := s.store.LoadToken(ctx, p)
	if err != nil {
		if errors.Is(err, social.ErrTokenInvalid) {
			return Status{Authenticated: false, Reason: ReasonInvalid}, nil
		}
		return Status{}, err
	}
	if token == nil {
		return Status{Authenticated: false}, nil
	}
	if token.Expired(s.now()) {
		return Status{Authenticated: false, Reason: ReasonExpired}, nil
	}
	return Status{Authenticated: true}, nil
}

// GetAccessToken resolves a valid access token for the platform:
//
//  1. no credentials stored      -> ErrNotConfigured, no network call
//  2. no token stored            -> ErrNotAuthenticated, no network call
//  3. expired with refresh token -> one refresh call, persist, return new
//  4. expired without refresh    -> ErrNotAuthenticated, no refresh attempt
//  5. otherwise                  -> stored access token unchanged
//
// A failed refresh clears the stored token so the user is asked to
// reconnect instead of hitting the same dead token again.
func (s *TokenService) GetAccessToken(ctx context.Context, p social.Platform) (string, error) {
	creds, err := s.store.LoadCredentials(ctx, p)
	if err != nil {
		if errors.Is(err, social.ErrNotConfigured) {
			return "", social.ErrNotConfigured
		}
		return "", err
	}

	token, err := s.store.LoadToken(ctx, p)
	if err != nil {
		if errors.Is(err, social.ErrTokenInvalid) {
			return "", social.ErrNotAuthenticated
		}
		return "", err
	}
	if token == nil {
		return "", social.ErrNotAuthenticated
	}

	if !token.Expired(s.now()) {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" {
		return "", social.ErrNotAuthenticated
	}

	refreshed, err, _ := s.refreshGroup.Do(string(p), func() (any, error) {
		return s.refresh(ctx, p, token.RefreshToken, *creds)
	})
	if err != nil {
		return "", err
	}
	return refreshed.(*social.Token).AccessToken, nil
}

func (s *TokenService) refresh(ctx context.Context, p social.Platform, refreshToken string, creds social.Credentials) (*social.Token, error) {
	token, err := s.provider.Refresh(ctx, p, refreshToken, creds)
	if err != nil {
		s.logger.Warn("token refresh failed", zap.String("platform", string(p)), zap.Error(err))
		if clearErr := s.store.ClearToken(ctx, p); clearErr != nil {
			s.logger.Warn("clear token after failed refresh", zap.String("platform", string(p)), zap.Error(clearErr))
		}
		return nil, social.ErrNotAuthenticated
	}
	if err := s.store.SaveToken(ctx, p, *token); err != nil {
		return nil, err
	}
	s.logger.Info("token refreshed", zap.String("platform", string(p)))
	return token, nil
}

// Logout clears only the stored token; credentials survive.
func (s *TokenService) Logout(ctx context.Context, p social.Platform) error {
	return s.store.ClearToken(ctx, p)
}

// Reset clears credentials, token, and every diagnostic slot.
func (s *TokenService) Reset(ctx context.Context, p social.Platform) error {
	return s.store.ClearAll(ctx, p)
}

// Diagnostics exposes the advisory slots for the debug route.
func (s *TokenService) Diagnostics(ctx context.Context, p social.Platform) (map[string]json.RawMessage, error) {
	return s.store.Diagnostics(ctx, p)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
