package http

import (
	"github.com/cadenza-player/cadenza/internal/app/player"
	"github.com/cadenza-player/cadenza/internal/app/remote"
	"github.com/cadenza-player/cadenza/internal/domain/playlist"
	"github.com/cadenza-player/cadenza/internal/domain/song"
)

type songDTO struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Sentiment  string `json:"sentiment,omitempty"`
	ArtworkRef string `json:"artwork_ref,omitempty"`
	Path       string `json:"path"`
	Favorite   bool   `json:"favorite"`
	PlayCount  int    `json:"play_count"`
	AddedAt    int64  `json:"added_at"`
	Category   string `json:"category"`
}

func toSongDTO(s song.Song) songDTO {
	return songDTO{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		Album:      s.Album,
		DurationMs: s.Duration.Milliseconds(),
		Sentiment:  s.Sentiment,
		ArtworkRef: s.ArtworkRef,
		Path:       s.Path,
		Favorite:   s.Favorite,
		PlayCount:  s.PlayCount,
		AddedAt:    s.AddedAt.UnixMilli(),
		Category:   string(s.Category),
	}
}

func toSongDTOs(songs []song.Song) []songDTO {
	out := make([]songDTO, len(songs))
	for i, s := range songs {
		out[i] = toSongDTO(s)
	}
	return out
}

type playlistDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CoverRef  string    `json:"cover_ref,omitempty"`
	CreatedAt int64     `json:"created_at"`
	Songs     []songDTO `json:"songs,omitempty"`
}

func toPlaylistDTO(p playlist.Playlist) playlistDTO {
	dto := playlistDTO{
		ID:        p.ID,
		Name:      p.Name,
		CoverRef:  p.CoverRef,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
	if len(p.Songs) > 0 {
		dto.Songs = toSongDTOs(p.Songs)
	}
	return dto
}

type snapshotDTO struct {
	Current    *songDTO `json:"current,omitempty"`
	State      string   `json:"state"`
	Playing    bool     `json:"playing"`
	Buffering  bool     `json:"buffering"`
	Shuffle    bool     `json:"shuffle"`
	Repeat     string   `json:"repeat"`
	Progress   float64  `json:"progress"`
	DurationMs int64    `json:"duration_ms"`
}

func toSnapshotDTO(s player.Snapshot) snapshotDTO {
	dto := snapshotDTO{
		State:      s.State.String(),
		Playing:    s.Playing,
		Buffering:  s.Buffering,
		Shuffle:    s.Shuffle,
		Repeat:     s.Repeat.String(),
		Progress:   s.Progress,
		DurationMs: s.Duration.Milliseconds(),
	}
	if s.Current != nil {
		cur := toSongDTO(*s.Current)
		dto.Current = &cur
	}
	return dto
}

type remoteTrackDTO struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	URL        string `json:"url,omitempty"`
	Artwork    string `json:"artwork,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Source     string `json:"source"`
}

func toRemoteTrackDTOs(tracks []remote.Track) []remoteTrackDTO {
	out := make([]remoteTrackDTO, len(tracks))
	for i, t := range tracks {
		out[i] = remoteTrackDTO{
			ID:         t.ID,
			Title:      t.Title,
			Artist:     t.Artist,
			Album:      t.Album,
			URL:        t.URL,
			Artwork:    t.Artwork,
			DurationMs: t.Duration.Milliseconds(),
			Source:     t.Source,
		}
	}
	return out
}
