package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/cadenza-player/cadenza/internal/app/player"
	"github.com/cadenza-player/cadenza/internal/domain/song"
)

// playRequest selects a track and the list it plays in. The source names one
// of the library's lists; the track must be a member of that list or the
// request is rejected.
type playRequest struct {
	SongID     int64  `json:"song_id"`
	Source     string `json:"source"`      // all | favorites | category | search | playlist
	Category   string `json:"category"`    // with source=category
	Query      string `json:"query"`       // with source=search
	PlaylistID int64  `json:"playlist_id"` // with source=playlist
}

// PlayerState returns the current playback snapshot.
func (h *Handler) PlayerState(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

// PlayerQueue returns the loaded queue.
func (h *Handler) PlayerQueue(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, toSongDTOs(h.player.Queue()))
}

// PlayerEvents streams playback snapshots as server-sent events. The current
// snapshot is sent immediately, then every published change until the client
// disconnects.
func (h *Handler) PlayerEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id, ch := h.player.Subscribe()
	defer h.player.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(snap player.Snapshot) bool {
		data, err := json.Marshal(toSnapshotDTO(snap))
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeEvent(h.player.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-ch:
			if !open {
				return
			}
			if !writeEvent(snap) {
				return
			}
		}
	}
}

// Play starts playback of a song in the context of a source list.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.resolveSource(r, req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, found := findInList(list, req.SongID)
	if !found {
		h.respondError(w, http.StatusNotFound, "song not in the selected list")
		return
	}

	h.player.PlaySong(target, list)
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

// TogglePlayPause flips between play and pause.
func (h *Handler) TogglePlayPause(w http.ResponseWriter, r *http.Request) {
	h.player.TogglePlayPause()
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

// Seek moves the playback position.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PositionMs int64 `json:"position_ms"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PositionMs < 0 {
		h.respondError(w, http.StatusBadRequest, "position_ms must not be negative")
		return
	}

	h.player.SeekTo(time.Duration(req.PositionMs) * time.Millisecond)
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

// Next skips to the next queue item.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.player.SkipToNext()
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

// Previous restarts the track or moves to the previous queue item.
func (h *Handler) Previous(w http.ResponseWriter, r *http.Request) {
	h.player.SkipToPrevious()
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

// ToggleShuffle flips shuffle mode.
func (h *Handler) ToggleShuffle(w http.ResponseWriter, r *http.Request) {
	h.player.ToggleShuffle()
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

// ToggleRepeat cycles the repeat mode.
func (h *Handler) ToggleRepeat(w http.ResponseWriter, r *http.Request) {
	h.player.ToggleRepeatMode()
	h.respondJSON(w, http.StatusOK, toSnapshotDTO(h.player.Snapshot()))
}

func (h *Handler) resolveSource(r *http.Request, req playRequest) ([]song.Song, error) {
	switch req.Source {
	case "", "all":
		return h.library.Songs(), nil
	case "favorites":
		return h.library.Favorites(), nil
	case "category":
		cat, ok := song.ParseCategory(req.Category)
		if !ok {
			return nil, errors.New("unknown category: " + req.Category)
		}
		return h.library.SongsByCategory(cat), nil
	case "search":
		return h.library.Search(req.Query), nil
	case "playlist":
		p, err := h.library.PlaylistByID(r.Context(), req.PlaylistID)
		if err != nil {
			return nil, err
		}
		return p.Songs, nil
	default:
		return nil, errors.New("unknown source: " + req.Source)
	}
}

func findInList(list []song.Song, id int64) (song.Song, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return song.Song{}, false
}
