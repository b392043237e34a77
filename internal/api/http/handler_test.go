package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-player/cadenza/internal/app/library"
	"github.com/cadenza-player/cadenza/internal/app/player"
	"github.com/cadenza-player/cadenza/internal/app/remote"
	"github.com/cadenza-player/cadenza/internal/app/sentiment"
	"github.com/cadenza-player/cadenza/internal/domain/playlist"
	"github.com/cadenza-player/cadenza/internal/domain/song"
)

type fakeLibrary struct {
	songs     []song.Song
	playlists map[int64]playlist.Playlist
	scanning  bool
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		songs: []song.Song{
			{ID: 1, Title: "Morning Bell", Artist: "Radiohead", Category: song.CategoryDownloaded, Favorite: true},
			{ID: 2, Title: "Voice note", Category: song.CategoryWhatsAppAudio},
		},
		playlists: map[int64]playlist.Playlist{
			7: {ID: 7, Name: "Road trip", Songs: []song.Song{{ID: 1, Title: "Morning Bell"}}},
		},
	}
}

func (f *fakeLibrary) Songs() []song.Song { return f.songs }

func (f *fakeLibrary) SongsByCategory(cat song.Category) []song.Song {
	var out []song.Song
	for _, s := range f.songs {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeLibrary) Favorites() []song.Song {
	var out []song.Song
	for _, s := range f.songs {
		if s.Favorite {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeLibrary) Search(query string) []song.Song {
	var out []song.Song
	for _, s := range f.songs {
		if s.Matches(query) {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeLibrary) SongByID(id int64) (song.Song, bool) {
	for _, s := range f.songs {
		if s.ID == id {
			return s, true
		}
	}
	return song.Song{}, false
}

func (f *fakeLibrary) ToggleFavorite(_ context.Context, id int64) (song.Song, error) {
	for i := range f.songs {
		if f.songs[i].ID == id {
			f.songs[i].Favorite = !f.songs[i].Favorite
			return f.songs[i], nil
		}
	}
	return song.Song{}, errors.Newf("song %d not in library", id)
}

func (f *fakeLibrary) SetSentiment(_ context.Context, id int64, note string) (song.Song, error) {
	for i := range f.songs {
		if f.songs[i].ID == id {
			f.songs[i].Sentiment = string(sentiment.Analyze(note))
			return f.songs[i], nil
		}
	}
	return song.Song{}, errors.Newf("song %d not in library", id)
}

func (f *fakeLibrary) StartScan() (string, error) {
	if f.scanning {
		return "", library.ErrScanInProgress
	}
	return "run-1", nil
}

func (f *fakeLibrary) Scanning() bool { return f.scanning }

func (f *fakeLibrary) Playlists(context.Context) ([]playlist.Playlist, error) {
	var out []playlist.Playlist
	for _, p := range f.playlists {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeLibrary) PlaylistByID(_ context.Context, id int64) (playlist.Playlist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return playlist.Playlist{}, errors.Newf("playlist %d not found", id)
	}
	return p, nil
}

func (f *fakeLibrary) CreatePlaylist(_ context.Context, name, coverRef string) (playlist.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return playlist.Playlist{}, errors.New("playlist name is empty")
	}
	p := playlist.Playlist{ID: int64(len(f.playlists) + 100), Name: name, CoverRef: coverRef}
	f.playlists[p.ID] = p
	return p, nil
}

func (f *fakeLibrary) DeletePlaylist(_ context.Context, id int64) error {
	if _, ok := f.playlists[id]; !ok {
		return errors.Newf("playlist %d not found", id)
	}
	delete(f.playlists, id)
	return nil
}

func (f *fakeLibrary) AddToPlaylist(_ context.Context, playlistID, songID int64) error {
	if _, ok := f.SongByID(songID); !ok {
		return errors.Newf("song %d not in library", songID)
	}
	return nil
}

func (f *fakeLibrary) RemoveFromPlaylist(context.Context, int64, int64) error { return nil }

type fakePlayer struct {
	snapshot player.Snapshot
	queue    []song.Song
	calls    []string
}

func (f *fakePlayer) PlaySong(target song.Song, list []song.Song) {
	f.calls = append(f.calls, "play")
	cur := target
	f.snapshot.Current = &cur
	f.queue = list
}

func (f *fakePlayer) TogglePlayPause()          { f.calls = append(f.calls, "toggle") }
func (f *fakePlayer) SeekTo(time.Duration)      { f.calls = append(f.calls, "seek") }
func (f *fakePlayer) SkipToNext()               { f.calls = append(f.calls, "next") }
func (f *fakePlayer) SkipToPrevious()           { f.calls = append(f.calls, "previous") }
func (f *fakePlayer) ToggleShuffle()            { f.calls = append(f.calls, "shuffle") }
func (f *fakePlayer) ToggleRepeatMode()         { f.calls = append(f.calls, "repeat") }
func (f *fakePlayer) Snapshot() player.Snapshot { return f.snapshot }
func (f *fakePlayer) Queue() []song.Song        { return f.queue }

func (f *fakePlayer) Subscribe() (string, <-chan player.Snapshot) {
	ch := make(chan player.Snapshot, 1)
	ch <- f.snapshot
	close(ch)
	return "sub-1", ch
}

func (f *fakePlayer) Unsubscribe(id string) { f.calls = append(f.calls, "unsubscribe:"+id) }

type fakeRemote struct {
	tracks []remote.Track
}

func (f *fakeRemote) Search(context.Context, string, int) []remote.Track { return f.tracks }

func newTestServer(t *testing.T) (*httptest.Server, *fakeLibrary, *fakePlayer) {
	t.Helper()
	lib := newFakeLibrary()
	pl := &fakePlayer{}
	srv := httptest.NewServer(New(lib, pl, &fakeRemote{tracks: []remote.Track{
		{Title: "Karma Police", Artist: "Radiohead", Source: "Last.fm"},
	}}).Router())
	t.Cleanup(srv.Close)
	return srv, lib, pl
}

func getJSON(t *testing.T, url string, dst any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp
}

func postJSON(t *testing.T, url string, body any, dst any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp
}

func TestAPI_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var got map[string]string
	resp := getJSON(t, srv.URL+"/healthz", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", got["status"])
}

func TestAPI_ListSongs(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var got []songDTO
	resp := getJSON(t, srv.URL+"/api/songs", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, got, 2)

	got = nil
	resp = getJSON(t, srv.URL+"/api/songs?category=WHATSAPP_AUDIO", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got, 1)
	assert.Equal(t, "Voice note", got[0].Title)

	resp = getJSON(t, srv.URL+"/api/songs?category=NOPE", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_FavoritesAndSearch(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var favs []songDTO
	getJSON(t, srv.URL+"/api/favorites", &favs)
	require.Len(t, favs, 1)
	assert.Equal(t, int64(1), favs[0].ID)

	var hits []songDTO
	getJSON(t, srv.URL+"/api/search?q=radiohead", &hits)
	require.Len(t, hits, 1)

	hits = nil
	getJSON(t, srv.URL+"/api/search?q=", &hits)
	assert.Empty(t, hits)
}

func TestAPI_ToggleFavorite(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var got songDTO
	resp := postJSON(t, srv.URL+"/api/songs/2/favorite", nil, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, got.Favorite)

	resp = postJSON(t, srv.URL+"/api/songs/99/favorite", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/songs/abc/favorite", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Scan(t *testing.T) {
	srv, lib, _ := newTestServer(t)

	var got map[string]string
	resp := postJSON(t, srv.URL+"/api/scan", nil, &got)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "run-1", got["run_id"])

	lib.scanning = true
	resp = postJSON(t, srv.URL+"/api/scan", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Play(t *testing.T) {
	srv, _, pl := newTestServer(t)

	var snap snapshotDTO
	resp := postJSON(t, srv.URL+"/api/player/play", playRequest{SongID: 1}, &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, snap.Current)
	assert.Equal(t, int64(1), snap.Current.ID)
	assert.Len(t, pl.queue, 2, "default source is the whole library")

	// Song 2 is not a favorite, so playing it from favorites is rejected.
	resp = postJSON(t, srv.URL+"/api/player/play", playRequest{SongID: 2, Source: "favorites"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/player/play", playRequest{SongID: 1, Source: "playlist", PlaylistID: 7}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, pl.queue, 1)

	resp = postJSON(t, srv.URL+"/api/player/play", playRequest{SongID: 1, Source: "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_PlayerTransport(t *testing.T) {
	srv, _, pl := newTestServer(t)

	postJSON(t, srv.URL+"/api/player/toggle", nil, nil)
	postJSON(t, srv.URL+"/api/player/next", nil, nil)
	postJSON(t, srv.URL+"/api/player/previous", nil, nil)
	postJSON(t, srv.URL+"/api/player/shuffle", nil, nil)
	postJSON(t, srv.URL+"/api/player/repeat", nil, nil)
	postJSON(t, srv.URL+"/api/player/seek", map[string]int64{"position_ms": 3000}, nil)

	assert.Equal(t, []string{"toggle", "next", "previous", "shuffle", "repeat", "seek"}, pl.calls)

	resp := postJSON(t, srv.URL+"/api/player/seek", map[string]int64{"position_ms": -1}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_PlayerEvents(t *testing.T) {
	srv, _, pl := newTestServer(t)
	pl.snapshot.State = player.StateReadyPlaying

	resp, err := http.Get(srv.URL + "/api/player/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	// Initial snapshot plus the one buffered event before the fake closes.
	events := strings.Count(buf.String(), "data: ")
	assert.Equal(t, 2, events)
	assert.Contains(t, buf.String(), `"state":"playing"`)
	assert.Contains(t, pl.calls, "unsubscribe:sub-1")
}

func TestAPI_Playlists(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var created playlistDTO
	resp := postJSON(t, srv.URL+"/api/playlists", map[string]string{"name": "Gym"}, &created)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Gym", created.Name)

	resp = postJSON(t, srv.URL+"/api/playlists", map[string]string{"name": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got playlistDTO
	resp = getJSON(t, srv.URL+"/api/playlists/7", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got.Songs, 1)

	resp = postJSON(t, srv.URL+"/api/playlists/7/songs", map[string]int64{"song_id": 99}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/playlists/7", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/playlists/7", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RemoteSearch(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var got []remoteTrackDTO
	resp := getJSON(t, srv.URL+"/api/remote/search?q=karma", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got, 1)
	assert.Equal(t, "Last.fm", got[0].Source)

	got = nil
	getJSON(t, srv.URL+"/api/remote/search?q=", &got)
	assert.Empty(t, got)
}

func TestAPI_Sentiment(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var got struct {
		Label string `json:"label"`
		Score int    `json:"score"`
	}
	resp := postJSON(t, srv.URL+"/api/sentiment", map[string]string{"text": "love this song"}, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "positive", got.Label)
	assert.Positive(t, got.Score)
}

func TestAPI_SetSongSentiment(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var got songDTO
	resp := postJSON(t, srv.URL+"/api/songs/1/sentiment", map[string]string{"text": "awful recording"}, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "negative", got.Sentiment)

	resp = postJSON(t, srv.URL+"/api/songs/99/sentiment", map[string]string{"text": "great"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
