// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/cadenza-player/cadenza/internal/domain/song"
)

// Playlist represents a user-created playlist. Songs are attached through a
// (playlist, song) membership pair; adding an existing pair is a no-op.
type Playlist struct {
	ID        int64
	Name      string
	CoverRef  string
	CreatedAt time.Time

	// Songs is populated when the playlist is loaded with its members.
	Songs []song.Song
}

// SongIDs returns the ids of all loaded member songs.
func (p *Playlist) SongIDs() []int64 {
	ids := make([]int64, len(p.Songs))
	for i, s := range p.Songs {
		ids[i] = s.ID
	}
	return ids
}

// Contains reports whether the loaded members include the given song id.
func (p *Playlist) Contains(songID int64) bool {
	for _, s := range p.Songs {
		if s.ID == songID {
			return true
		}
	}
	return false
}

// TotalDuration returns the combined duration of all loaded member songs.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Songs {
		total += s.Duration
	}
	return total
}
