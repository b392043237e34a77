package remote

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/cadenza-player/cadenza/internal/infra/config"
)

// NewChainFromConfig creates a provider chain from configuration. An empty
// provider list yields an empty chain; remote search then just returns
// nothing.
func NewChainFromConfig(ctx context.Context, cfgs []config.ProviderConfig) (*Chain, error) {
	var providers []ProviderWithMetadata

	for i, pcfg := range cfgs {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating remote provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "lastfm":
			provider, err = NewLastFmProvider(pcfg.Settings)

		case "spotify":
			provider, err = NewSpotifyProvider(ctx, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered remote provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewChain(providers), nil
}
