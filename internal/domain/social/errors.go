package social

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform signals a platform outside the closed set.
	ErrUnsupportedPlatform = errors.New("social: unsupported platform")
	// ErrNotConfigured indicates no credentials are stored for the platform.
	ErrNotConfigured = errors.New("social: credentials not configured")
	// ErrNotAuthenticated indicates no usable access token is available.
	ErrNotAuthenticated = errors.New("social: not authenticated")
	// ErrTokenInvalid indicates a stored token that could not be read back.
	ErrTokenInvalid = errors.New("social: stored token invalid")
)

// ValidationError reports a user-correctable credential field problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("social: invalid %s: %s", e.Field, e.Reason)
}

// ProviderError reports a non-2xx or malformed response from an OAuth
// endpoint during exchange or refresh.
type ProviderError struct {
	Platform Platform
	Op       string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("social: %s %s failed: status=%d", e.Platform, e.Op, e.Status)
	}
	return fmt.Sprintf("social: %s %s failed: status=%d: %s", e.Platform, e.Op, e.Status, e.Message)
}
