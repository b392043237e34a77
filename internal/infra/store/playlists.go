package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/cadenza-player/cadenza/internal/domain/playlist"
)

type playlistRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	CoverRef  string `db:"cover_ref"`
	CreatedAt int64  `db:"created_at"`
}

func (r playlistRow) toPlaylist() playlist.Playlist {
	return playlist.Playlist{
		ID:        r.ID,
		Name:      r.Name,
		CoverRef:  r.CoverRef,
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
}

// Playlists returns every playlist ordered by name, songs not resolved.
func (db *DB) Playlists(ctx context.Context) ([]playlist.Playlist, error) {
	var rows []playlistRow
	err := db.SelectContext(ctx, &rows,
		`SELECT id, name, cover_ref, created_at FROM playlists ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "query playlists")
	}

	out := make([]playlist.Playlist, len(rows))
	for i, r := range rows {
		out[i] = r.toPlaylist()
	}
	return out, nil
}

// PlaylistByID returns one playlist with its songs resolved in the order
// they were added.
func (db *DB) PlaylistByID(ctx context.Context, id int64) (playlist.Playlist, error) {
	var row playlistRow
	err := db.GetContext(ctx, &row,
		`SELECT id, name, cover_ref, created_at FROM playlists WHERE id = ?`, id)
	if err != nil {
		return playlist.Playlist{}, errors.Wrapf(err, "playlist %d", id)
	}
	p := row.toPlaylist()

	var songRows []songRow
	err = db.SelectContext(ctx, &songRows,
		`SELECT s.id, s.title, s.artist, s.album, s.duration_ms, s.sentiment, s.artwork_ref, s.path, s.favorite, s.play_count, s.added_at, s.category
		 FROM songs s
		 JOIN playlist_songs ps ON ps.song_id = s.id
		 WHERE ps.playlist_id = ?
		 ORDER BY ps.rowid ASC`, id)
	if err != nil {
		return playlist.Playlist{}, errors.Wrapf(err, "playlist %d songs", id)
	}
	for _, r := range songRows {
		p.Songs = append(p.Songs, r.toSong())
	}
	return p, nil
}

// CreatePlaylist creates an empty playlist and returns it.
func (db *DB) CreatePlaylist(ctx context.Context, name, coverRef string) (playlist.Playlist, error) {
	now := time.Now().UnixMilli()
	res, err := db.ExecContext(ctx,
		`INSERT INTO playlists (name, cover_ref, created_at) VALUES (?, ?, ?)`,
		name, coverRef, now)
	if err != nil {
		return playlist.Playlist{}, errors.Wrap(err, "create playlist")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return playlist.Playlist{}, errors.Wrap(err, "playlist id")
	}
	return playlist.Playlist{ID: id, Name: name, CoverRef: coverRef, CreatedAt: time.UnixMilli(now)}, nil
}

// DeletePlaylist removes a playlist; memberships go with it via cascade.
func (db *DB) DeletePlaylist(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete playlist %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Newf("playlist %d not found", id)
	}
	return nil
}

// AddPlaylistSong adds a song to a playlist. Adding the same song twice is
// a no-op.
func (db *DB) AddPlaylistSong(ctx context.Context, playlistID, songID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id) VALUES (?, ?)`,
		playlistID, songID)
	return errors.Wrapf(err, "add song %d to playlist %d", songID, playlistID)
}

// RemovePlaylistSong removes a song from a playlist.
func (db *DB) RemovePlaylistSong(ctx context.Context, playlistID, songID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`,
		playlistID, songID)
	return errors.Wrapf(err, "remove song %d from playlist %d", songID, playlistID)
}
