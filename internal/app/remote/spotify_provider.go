package remote

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/cadenza-player/cadenza/internal/infra/spotify"
)

// SpotifyClient defines the interface for Spotify operations.
type SpotifyClient interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
}

type SpotifyProviderConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`
	Limit        int    `yaml:"limit" mapstructure:"limit" default:"20" validate:"gte=1,lte=50"`
}

// SpotifyProvider searches the Spotify catalog.
type SpotifyProvider struct {
	client SpotifyClient
	config *SpotifyProviderConfig
}

// NewSpotifyProvider creates a Spotify provider from its settings map.
func NewSpotifyProvider(ctx context.Context, settings map[string]any) (*SpotifyProvider, error) {
	cfg, err := decodeSpotifyConfig(settings)
	if err != nil {
		return nil, err
	}

	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create spotify client")
	}
	return &SpotifyProvider{client: client, config: cfg}, nil
}

// NewSpotifyProviderWithClient creates a provider around an existing client.
func NewSpotifyProviderWithClient(client SpotifyClient, settings map[string]any) (*SpotifyProvider, error) {
	cfg, err := decodeSpotifyConfig(settings)
	if err != nil {
		return nil, err
	}
	return &SpotifyProvider{client: client, config: cfg}, nil
}

func decodeSpotifyConfig(settings map[string]any) (*SpotifyProviderConfig, error) {
	var cfg SpotifyProviderConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode spotify provider settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "set spotify provider defaults")
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "validate spotify provider settings")
	}
	return &cfg, nil
}

// Search implements Provider.
func (p *SpotifyProvider) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 || limit > p.config.Limit {
		limit = p.config.Limit
	}

	found, err := p.client.SearchTracks(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Track, 0, len(found))
	for _, t := range found {
		out = append(out, Track{
			ID:       t.ID,
			Title:    t.Name,
			Artist:   t.Artist,
			Album:    t.Album,
			URL:      t.URL,
			Artwork:  t.ImageURL,
			Duration: t.Duration,
		})
	}
	return out, nil
}

// Name implements Provider.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}
