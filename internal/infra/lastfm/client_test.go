package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
	"results": {
		"trackmatches": {
			"track": [
				{
					"name": "Karma Police",
					"artist": "Radiohead",
					"url": "https://www.last.fm/music/Radiohead/_/Karma+Police",
					"image": [
						{"#text": "small.png", "size": "small"},
						{"#text": "large.png", "size": "large"}
					]
				},
				{
					"name": "Karma",
					"artist": "Taylor Swift",
					"url": "https://www.last.fm/music/Taylor+Swift/_/Karma",
					"image": []
				}
			]
		}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestClient_SearchTracks(t *testing.T) {
	var gotQuery atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Write([]byte(searchBody))
	})

	tracks, err := c.SearchTracks(context.Background(), "karma", 10)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "Karma Police", tracks[0].Name)
	assert.Equal(t, "Radiohead", tracks[0].Artist)
	assert.Equal(t, "large.png", tracks[0].ImageURL, "largest image wins")
	assert.Equal(t, "Taylor Swift", tracks[1].Artist)
	assert.Empty(t, tracks[1].ImageURL)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "track.search", q.Get("method"))
	assert.Equal(t, "karma", q.Get("track"))
	assert.Equal(t, "json", q.Get("format"))
}

func TestClient_SearchTracksBlankQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for a blank query")
	})

	_, err := c.SearchTracks(context.Background(), "   ", 10)
	assert.Error(t, err)
}

func TestClient_SearchTracksAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": 10, "message": "Invalid API key"}`))
	})

	_, err := c.SearchTracks(context.Background(), "karma", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestClient_SearchTracksCaches(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(searchBody))
	})

	ctx := context.Background()
	_, err := c.SearchTracks(ctx, "karma", 10)
	require.NoError(t, err)
	_, err = c.SearchTracks(ctx, "KARMA", 10)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "second lookup served from cache")
}
