// Package store owns every persisted per-platform entry: the encrypted
// credential and token blobs plus the plaintext diagnostic slots. No other
// component touches the state store directly.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/postloom/social-auth/internal/domain/social"
	"github.com/postloom/social-auth/internal/secrets"
)

// StateStore is the keyed persisted-state capability the store writes
// through: per-entry TTL, opaque string values.
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const (
	slotCredentials = "credentials"
	slotToken       = "token"

	// Diagnostic slots hold plaintext advisory JSON, never secrets.
	SlotAuthDebug     = "auth_debug"
	SlotAuthError     = "auth_error"
	SlotCallbackError = "callback_error"
	SlotDecryptError  = "decrypt_error"
	SlotAuthSuccess   = "auth_success"
)

// DiagnosticSlots lists every advisory slot, in reset/display order.
var DiagnosticSlots = []string{
	SlotAuthDebug,
	SlotAuthError,
	SlotCallbackError,
	SlotDecryptError,
	SlotAuthSuccess,
}

const (
	credentialTTL = 30 * 24 * time.Hour
	tokenTTL      = 30 * 24 * time.Hour
	diagnosticTTL = 30 * time.Minute
	successTTL    = 5 * time.Minute
)

// Store persists and retrieves per-platform secrets and diagnostics.
type Store struct {
	state  StateStore
	cipher *secrets.Cipher
	logger *zap.Logger
	now    func() time.Time
}

// New wires the credential store.
func New(state StateStore, cipher *secrets.Cipher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.L()
	}
	return &Store{state: state, cipher: cipher, logger: logger, now: time.Now}
}

func key(p social.Platform, slot string) string {
	return string(p) + "_" + slot
}

// HasCredentials reports whether a credential blob exists for the platform.
func (s *Store) HasCredentials(ctx context.Context, p social.Platform) (bool, error) {
	_, ok, err := s.state.Get(ctx, key(p, slotCredentials))
	return ok, err
}

// SaveCredentials encrypts and persists the credentials with a 30-day TTL.
func (s *Store) SaveCredentials(ctx context.Context, p social.Platform, creds social.Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	encrypted, err := s.cipher.Encrypt(string(payload))
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}
	return s.state.Set(ctx, key(p, slotCredentials), encrypted, credentialTTL)
}

// LoadCredentials decrypts and parses the stored credentials. When the blob
// cannot be decrypted the corrupted entry is cleared, a decrypt_error
// diagnostic is recorded, and the failure is reported; defaults are never
// silently substituted.
func (s *Store) LoadCredentials(ctx context.Context, p social.Platform) (*social.Credentials, error) {
	encrypted, ok, err := s.state.Get(ctx, key(p, slotCredentials))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, social.ErrNotConfigured
	}

	plaintext, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		s.selfHeal(ctx, p, slotCredentials, len(encrypted), err)
		return nil, fmt.Errorf("load %s credentials: %w", p, err)
	}

	var creds social.Credentials
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		s.selfHeal(ctx, p, slotCredentials, len(encrypted), err)
		return nil, fmt.Errorf("load %s credentials: %w: %v", p, secrets.ErrDecrypt, err)
	}
	return &creds, nil
}

// SaveToken encrypts and persists the token. The entry's TTL follows the
// token expiry when one is set, else a 30-day default.
func (s *Store) SaveToken(ctx context.Context, p social.Platform, token social.Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	encrypted, err := s.cipher.Encrypt(string(payload))
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	return s.state.Set(ctx, key(p, slotToken), encrypted, token.TTL(s.now(), tokenTTL))
}

// LoadToken returns the stored token, nil when absent, or ErrTokenInvalid
// when the blob exists but cannot be read back; an unreadable token is
// cleared (equivalent to logging the user out) rather than thrown raw.
func (s *Store) LoadToken(ctx context.Context, p social.Platform) (*social.Token, error) {
	encrypted, ok, err := s.state.Get(ctx, key(p, slotToken))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	plaintext, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		s.selfHeal(ctx, p, slotToken, len(encrypted), err)
		return nil, social.ErrTokenInvalid
	}
	var token social.Token
	if err := json.Unmarshal([]byte(plaintext), &token); err != nil {
		s.selfHeal(ctx, p, slotToken, len(encrypted), err)
		return nil, social.ErrTokenInvalid
	}
	return &token, nil
}

// ClearToken removes only the token entry; idempotent.
func (s *Store) ClearToken(ctx context.Context, p social.Platform) error {
	return s.state.Delete(ctx, key(p, slotToken))
}

// ClearAll removes credentials, token, and every diagnostic slot; idempotent.
func (s *Store) ClearAll(ctx context.Context, p social.Platform) error {
	var errs []error
	errs = append(errs,
		s.state.Delete(ctx, key(p, slotCredentials)),
		s.state.Delete(ctx, key(p, slotToken)))
	for _, slot := range DiagnosticSlots {
		errs = append(errs, s.state.Delete(ctx, key(p, slot)))
	}
	return errors.Join(errs...)
}

// WriteDiagnostic stores an advisory plaintext JSON record. Diagnostics are
// for display only and never read back into business logic.
func (s *Store) WriteDiagnostic(ctx context.Context, p social.Platform, slot string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal diagnostic", zap.String("platform", string(p)), zap.Error(err))
		return
	}
	ttl := diagnosticTTL
	if slot == SlotAuthSuccess {
		ttl = successTTL
	}
	if err := s.state.Set(ctx, key(p, slot), string(data), ttl); err != nil {
		s.logger.Warn("persist diagnostic",
			zap.String("platform", string(p)), zap.String("slot", slot), zap.Error(err))
	}
}

// Diagnostics returns every present diagnostic slot for the platform.
func (s *Store) Diagnostics(ctx context.Context, p social.Platform) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)
	for _, slot := range DiagnosticSlots {
		value, ok, err := s.state.Get(ctx, key(p, slot))
		if err != nil {
			return nil, err
		}
		if ok {
			out[slot] = json.RawMessage(value)
		}
	}
	return out, nil
}

func (s *Store) selfHeal(ctx context.Context, p social.Platform, slot string, storedLen int, cause error) {
	s.logger.Warn("clearing unreadable entry",
		zap.String("platform", string(p)), zap.String("slot", slot), zap.Error(cause))
	if err := s.state.Delete(ctx, key(p, slot)); err != nil {
		s.logger.Warn("clear corrupted entry", zap.String("platform", string(p)), zap.Error(err))
	}
	s.WriteDiagnostic(ctx, p, SlotDecryptError, map[string]any{
		"timestamp":     s.now().UTC().Format(time.RFC3339),
		"slot":          slot,
		"message":       cause.Error(),
		"stored_length": storedLen,
	})
}
