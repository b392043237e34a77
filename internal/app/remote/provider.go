// Package remote provides online catalog track search through a chain of
// providers.
package remote

import (
	"context"
	"time"
)

// Track represents a track found in an online catalog.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	URL      string
	Artwork  string
	Duration time.Duration
	// Source is the display name of the provider that returned the track.
	Source string
}

// Provider is the interface for remote catalog providers.
type Provider interface {
	// Search retrieves up to limit tracks matching query.
	Search(ctx context.Context, query string, limit int) ([]Track, error)

	// Name returns the provider name (used in config).
	Name() string
}
