// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Cache for search results
	searchCache map[string][]Track
	cacheMu     sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

// Track represents a track returned by Last.fm search.
type Track struct {
	Name     string
	Artist   string
	URL      string
	ImageURL string
}

// searchResponse represents the response from track.search.
// The artist is a plain string here, unlike most other Last.fm methods.
type searchResponse struct {
	Results struct {
		TrackMatches struct {
			Track []struct {
				Name   string `json:"name"`
				Artist string `json:"artist"`
				URL    string `json:"url"`
				Image  []struct {
					Text string `json:"#text"`
					Size string `json:"size"`
				} `json:"image"`
			} `json:"track"`
		} `json:"trackmatches"`
	} `json:"results"`
}

// apiError represents an error response from Last.fm API.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://ws.audioscrobbler.com/2.0/"
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		searchCache: make(map[string][]Track),
	}, nil
}

// SearchTracks searches the Last.fm catalog by track name.
// Reference: https://www.last.fm/api/show/track.search
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is required")
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	// Check cache first
	cacheKey := fmt.Sprintf("search:%s:%d", strings.ToLower(query), limit)
	c.cacheMu.RLock()
	if cached, ok := c.searchCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached search results for: %s", query)
		return cached, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "track.search")
	params.Set("api_key", c.apiKey)
	params.Set("track", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("format", "json")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return nil, errors.Errorf("last.fm API error %d: %s", apiErr.Error, apiErr.Message)
	}

	// Parse successful response
	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	tracks := make([]Track, 0, len(response.Results.TrackMatches.Track))
	for _, t := range response.Results.TrackMatches.Track {
		track := Track{
			Name:   t.Name,
			Artist: t.Artist,
			URL:    t.URL,
		}
		// Prefer the largest image offered.
		for _, img := range t.Image {
			if img.Text != "" {
				track.ImageURL = img.Text
			}
		}
		tracks = append(tracks, track)
	}

	// Cache the result
	c.cacheMu.Lock()
	c.searchCache[cacheKey] = tracks
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached search results for: %s (count: %d)", query, len(tracks))

	return tracks, nil
}
