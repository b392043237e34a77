package remote

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain queries multiple providers and merges their results.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{providers: providers}
}

// Search queries every provider and merges the results, tagged with the
// provider display name and deduplicated by title and artist. A failing
// provider is skipped; when every provider fails the chain returns an empty
// result, not an error, so the caller's surface stays up.
func (c *Chain) Search(ctx context.Context, query string, limit int) []Track {
	var merged []Track
	seen := make(map[string]bool)

	for i, pm := range c.providers {
		zlog.Debug().Msgf("remote search: trying provider index=%d total=%d name=%s",
			i+1, len(c.providers), pm.DisplayName)

		tracks, err := pm.Provider.Search(ctx, query, limit)
		if err != nil {
			zlog.Warn().Msgf("remote provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			continue
		}

		for _, t := range tracks {
			key := strings.ToLower(t.Title) + "\x00" + strings.ToLower(t.Artist)
			if seen[key] {
				continue
			}
			seen[key] = true
			t.Source = pm.DisplayName
			merged = append(merged, t)
		}
	}

	if len(merged) == 0 {
		zlog.Debug().Msgf("remote search returned nothing: query=%s", query)
	}
	return merged
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "provider_chain"
}
