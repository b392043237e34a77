// Package http exposes the player daemon over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/cadenza-player/cadenza/internal/app/player"
	"github.com/cadenza-player/cadenza/internal/app/remote"
	"github.com/cadenza-player/cadenza/internal/domain/playlist"
	"github.com/cadenza-player/cadenza/internal/domain/song"
)

// Library is the library surface the handlers need.
type Library interface {
	Songs() []song.Song
	SongsByCategory(song.Category) []song.Song
	Favorites() []song.Song
	Search(query string) []song.Song
	SongByID(id int64) (song.Song, bool)
	ToggleFavorite(ctx context.Context, id int64) (song.Song, error)
	SetSentiment(ctx context.Context, id int64, note string) (song.Song, error)
	StartScan() (string, error)
	Scanning() bool

	Playlists(ctx context.Context) ([]playlist.Playlist, error)
	PlaylistByID(ctx context.Context, id int64) (playlist.Playlist, error)
	CreatePlaylist(ctx context.Context, name, coverRef string) (playlist.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) error
	AddToPlaylist(ctx context.Context, playlistID, songID int64) error
	RemoveFromPlaylist(ctx context.Context, playlistID, songID int64) error
}

// Player is the playback surface the handlers need.
type Player interface {
	PlaySong(target song.Song, list []song.Song)
	TogglePlayPause()
	SeekTo(pos time.Duration)
	SkipToNext()
	SkipToPrevious()
	ToggleShuffle()
	ToggleRepeatMode()
	Snapshot() player.Snapshot
	Queue() []song.Song
	Subscribe() (string, <-chan player.Snapshot)
	Unsubscribe(id string)
}

// RemoteSearcher is the remote catalog surface the handlers need.
type RemoteSearcher interface {
	Search(ctx context.Context, query string, limit int) []remote.Track
}

// Handler holds the API dependencies.
type Handler struct {
	library Library
	player  Player
	remote  RemoteSearcher
}

// New creates a handler. remote may be nil when no providers are configured.
func New(library Library, player Player, remote RemoteSearcher) *Handler {
	return &Handler{library: library, player: player, remote: remote}
}

// Router builds the chi router with all API routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/songs", h.ListSongs)
		r.Get("/favorites", h.ListFavorites)
		r.Get("/search", h.SearchSongs)
		r.Post("/songs/{id}/favorite", h.ToggleFavorite)
		r.Post("/songs/{id}/sentiment", h.SetSongSentiment)
		r.Post("/scan", h.StartScan)

		r.Get("/player", h.PlayerState)
		r.Get("/player/queue", h.PlayerQueue)
		r.Get("/player/events", h.PlayerEvents)
		r.Post("/player/play", h.Play)
		r.Post("/player/toggle", h.TogglePlayPause)
		r.Post("/player/seek", h.Seek)
		r.Post("/player/next", h.Next)
		r.Post("/player/previous", h.Previous)
		r.Post("/player/shuffle", h.ToggleShuffle)
		r.Post("/player/repeat", h.ToggleRepeat)

		r.Get("/playlists", h.ListPlaylists)
		r.Post("/playlists", h.CreatePlaylist)
		r.Get("/playlists/{id}", h.GetPlaylist)
		r.Delete("/playlists/{id}", h.DeletePlaylist)
		r.Post("/playlists/{id}/songs", h.AddPlaylistSong)
		r.Delete("/playlists/{id}/songs/{songID}", h.RemovePlaylistSong)

		r.Get("/remote/search", h.RemoteSearch)
		r.Post("/sentiment", h.AnalyzeSentiment)
	})

	return r
}

// Health reports daemon liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zlog.Warn().Err(err).Msg("api: response encoding failed")
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

// requestLogger logs one line per request through the global zerolog logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zlog.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
