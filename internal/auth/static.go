package auth

import (
	"context"
	"crypto/subtle"
)

// StaticAuthorizer accepts exactly one configured key. Comparison is
// constant-time so the key cannot be probed byte by byte.
type StaticAuthorizer struct {
	key string
}

// NewStaticAuthorizer creates an authorizer for the given key.
func NewStaticAuthorizer(key string) *StaticAuthorizer {
	return &StaticAuthorizer{key: key}
}

// Authorize validates the presented key against the configured one.
func (a *StaticAuthorizer) Authorize(_ context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.key)) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}

// OpenAuthorizer admits every request. Used when no API key is configured,
// the default for a service bound to localhost.
type OpenAuthorizer struct{}

// NewOpenAuthorizer creates the pass-through authorizer.
func NewOpenAuthorizer() *OpenAuthorizer { return &OpenAuthorizer{} }

// Authorize always succeeds.
func (a *OpenAuthorizer) Authorize(context.Context, string) error { return nil }

// FromKey picks the authorizer matching the configuration: a static
// authorizer when a key is set, open access otherwise.
func FromKey(key string) Authorizer {
	if key == "" {
		return NewOpenAuthorizer()
	}
	return NewStaticAuthorizer(key)
}
