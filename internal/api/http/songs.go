package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cadenza-player/cadenza/internal/app/library"
	"github.com/cadenza-player/cadenza/internal/app/sentiment"
	"github.com/cadenza-player/cadenza/internal/domain/song"

	"github.com/cockroachdb/errors"
)

// ListSongs returns the library, optionally filtered by category.
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("category"); raw != "" {
		cat, ok := song.ParseCategory(raw)
		if !ok {
			h.respondError(w, http.StatusBadRequest, "unknown category: "+raw)
			return
		}
		h.respondJSON(w, http.StatusOK, toSongDTOs(h.library.SongsByCategory(cat)))
		return
	}
	h.respondJSON(w, http.StatusOK, toSongDTOs(h.library.Songs()))
}

// ListFavorites returns the liked songs.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, toSongDTOs(h.library.Favorites()))
}

// SearchSongs returns library songs matching ?q=.
func (h *Handler) SearchSongs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	h.respondJSON(w, http.StatusOK, toSongDTOs(h.library.Search(query)))
}

// ToggleFavorite flips the favorite flag of one song.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	updated, err := h.library.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, toSongDTO(updated))
}

// SetSongSentiment classifies a free-text note and stores the label on a song.
func (h *Handler) SetSongSentiment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.library.SetSentiment(r.Context(), id, req.Text)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, toSongDTO(updated))
}

// StartScan kicks off a background library scan.
func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	runID, err := h.library.StartScan()
	if err != nil {
		if errors.Is(err, library.ErrScanInProgress) {
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// RemoteSearch queries the configured online catalogs.
func (h *Handler) RemoteSearch(w http.ResponseWriter, r *http.Request) {
	if h.remote == nil {
		h.respondJSON(w, http.StatusOK, []remoteTrackDTO{})
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondJSON(w, http.StatusOK, []remoteTrackDTO{})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	tracks := h.remote.Search(r.Context(), query, limit)
	h.respondJSON(w, http.StatusOK, toRemoteTrackDTOs(tracks))
}

// AnalyzeSentiment classifies a free-text note.
func (h *Handler) AnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"label": sentiment.Analyze(req.Text),
		"score": sentiment.Score(req.Text),
	})
}
