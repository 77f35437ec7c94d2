// Package auth guards the HTTP surface with an optional API key. A
// personal diary service is often exposed beyond localhost (phone on the
// same LAN, reverse proxy), so the key keeps the write path private
// without dragging in a full identity system.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrMissingAPIKey is returned when no Authorization header was sent.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidAPIKey is returned when the presented key does not match.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Authorizer decides whether a presented API key may use the service.
type Authorizer interface {
	Authorize(ctx context.Context, apiKey string) error
}
