package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ListPlaylists returns all playlists without songs resolved.
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.library.Playlists(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]playlistDTO, len(playlists))
	for i, p := range playlists {
		out[i] = toPlaylistDTO(p)
	}
	h.respondJSON(w, http.StatusOK, out)
}

// CreatePlaylist creates an empty playlist.
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		CoverRef string `json:"cover_ref"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.library.CreatePlaylist(r.Context(), req.Name, req.CoverRef)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusCreated, toPlaylistDTO(p))
}

// GetPlaylist returns one playlist with its songs.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	p, err := h.library.PlaylistByID(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, toPlaylistDTO(p))
}

// DeletePlaylist removes a playlist.
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	if err := h.library.DeletePlaylist(r.Context(), id); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddPlaylistSong adds a song to a playlist.
func (h *Handler) AddPlaylistSong(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	var req struct {
		SongID int64 `json:"song_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.library.AddToPlaylist(r.Context(), id, req.SongID); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// RemovePlaylistSong removes a song from a playlist.
func (h *Handler) RemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	songID, err := strconv.ParseInt(chi.URLParam(r, "songID"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	if err := h.library.RemoveFromPlaylist(r.Context(), id, songID); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func playlistID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
