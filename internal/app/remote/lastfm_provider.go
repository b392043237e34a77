package remote

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/cadenza-player/cadenza/internal/infra/lastfm"
)

// LastFmClient defines the interface for Last.fm operations.
type LastFmClient interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]lastfm.Track, error)
}

type LastFmProviderConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	Limit  int    `yaml:"limit" mapstructure:"limit" default:"20" validate:"gte=1,lte=100"`
}

// LastFmProvider searches the Last.fm catalog.
type LastFmProvider struct {
	client LastFmClient
	config *LastFmProviderConfig
}

// NewLastFmProvider creates a Last.fm provider from its settings map.
func NewLastFmProvider(settings map[string]any) (*LastFmProvider, error) {
	cfg, err := decodeLastFmConfig(settings)
	if err != nil {
		return nil, err
	}

	client, err := lastfm.New(lastfm.Config{APIKey: cfg.APIKey})
	if err != nil {
		return nil, errors.Wrap(err, "create last.fm client")
	}
	return &LastFmProvider{client: client, config: cfg}, nil
}

// NewLastFmProviderWithClient creates a provider around an existing client.
func NewLastFmProviderWithClient(client LastFmClient, settings map[string]any) (*LastFmProvider, error) {
	cfg, err := decodeLastFmConfig(settings)
	if err != nil {
		return nil, err
	}
	return &LastFmProvider{client: client, config: cfg}, nil
}

func decodeLastFmConfig(settings map[string]any) (*LastFmProviderConfig, error) {
	var cfg LastFmProviderConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode last.fm provider settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "set last.fm provider defaults")
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "validate last.fm provider settings")
	}
	return &cfg, nil
}

// Search implements Provider.
func (p *LastFmProvider) Search(ctx context.Context, query string, limit int) ([]Track, error) {
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
			Title:   t.Name,
			Artist:  t.Artist,
			URL:     t.URL,
			Artwork: t.ImageURL,
		})
	}
	return out, nil
}

// Name implements Provider.
func (p *LastFmProvider) Name() string {
	return "lastfm"
}
