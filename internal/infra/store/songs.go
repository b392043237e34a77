package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/cadenza-player/cadenza/internal/domain/song"
)

// songRow is the table representation of a song. Durations and timestamps
// are stored as integer milliseconds.
type songRow struct {
	ID         int64  `db:"id"`
	Title      string `db:"title"`
	Artist     string `db:"artist"`
	Album      string `db:"album"`
	DurationMs int64  `db:"duration_ms"`
	Sentiment  string `db:"sentiment"`
	ArtworkRef string `db:"artwork_ref"`
	Path       string `db:"path"`
	Favorite   bool   `db:"favorite"`
	PlayCount  int    `db:"play_count"`
	AddedAt    int64  `db:"added_at"`
	Category   string `db:"category"`
}

func toSongRow(s song.Song) songRow {
	return songRow{
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

func (r songRow) toSong() song.Song {
	return song.Song{
		ID:         r.ID,
		Title:      r.Title,
		Artist:     r.Artist,
		Album:      r.Album,
		Duration:   time.Duration(r.DurationMs) * time.Millisecond,
		Sentiment:  r.Sentiment,
		ArtworkRef: r.ArtworkRef,
		Path:       r.Path,
		Favorite:   r.Favorite,
		PlayCount:  r.PlayCount,
		AddedAt:    time.UnixMilli(r.AddedAt),
		Category:   song.Category(r.Category),
	}
}

const songColumns = `id, title, artist, album, duration_ms, sentiment, artwork_ref, path, favorite, play_count, added_at, category`

// Songs returns every song, newest first.
func (db *DB) Songs(ctx context.Context) ([]song.Song, error) {
	return db.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs ORDER BY added_at DESC, id ASC`)
}

// SongsByCategory returns the songs in one category, newest first.
func (db *DB) SongsByCategory(ctx context.Context, cat song.Category) ([]song.Song, error) {
	return db.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE category = ? ORDER BY added_at DESC, id ASC`,
		string(cat))
}

// Favorites returns the liked songs, newest first.
func (db *DB) Favorites(ctx context.Context) ([]song.Song, error) {
	return db.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE favorite = 1 ORDER BY added_at DESC, id ASC`)
}

// SearchSongs returns the songs matching query on title, artist or album,
// case-insensitively. A blank query matches nothing.
func (db *DB) SearchSongs(ctx context.Context, query string) ([]song.Song, error) {
	if query == "" {
		return nil, nil
	}
	pattern := "%" + query + "%"
	return db.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs
		 WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?
		 ORDER BY added_at DESC, id ASC`,
		pattern, pattern, pattern)
}

// UpsertSongs inserts or updates songs in one transaction. Metadata columns
// are refreshed from the incoming record; favorite, play_count and sentiment
// survive re-scans untouched.
func (db *DB) UpsertSongs(ctx context.Context, songs []song.Song) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin upsert tx")
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO songs (id, title, artist, album, duration_ms, sentiment, artwork_ref, path, favorite, play_count, added_at, category)
		VALUES (:id, :title, :artist, :album, :duration_ms, :sentiment, :artwork_ref, :path, :favorite, :play_count, :added_at, :category)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			duration_ms = excluded.duration_ms,
			artwork_ref = excluded.artwork_ref,
			path = excluded.path,
			added_at = excluded.added_at,
			category = excluded.category`

	for _, s := range songs {
		if _, err := tx.NamedExecContext(ctx, q, toSongRow(s)); err != nil {
			return errors.Wrapf(err, "upsert song %d", s.ID)
		}
	}
	return tx.Commit()
}

// SetFavorite sets the favorite flag of a song.
func (db *DB) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	res, err := db.ExecContext(ctx, `UPDATE songs SET favorite = ? WHERE id = ?`, favorite, id)
	if err != nil {
		return errors.Wrapf(err, "set favorite on song %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Newf("song %d not found", id)
	}
	return nil
}

// IncrementPlayCount adds one to the play count of a song.
func (db *DB) IncrementPlayCount(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE songs SET play_count = play_count + 1 WHERE id = ?`, id)
	return errors.Wrapf(err, "increment play count on song %d", id)
}

// SetSentiment stores the sentiment label of a song.
func (db *DB) SetSentiment(ctx context.Context, id int64, label string) error {
	_, err := db.ExecContext(ctx, `UPDATE songs SET sentiment = ? WHERE id = ?`, label, id)
	return errors.Wrapf(err, "set sentiment on song %d", id)
}

func (db *DB) querySongs(ctx context.Context, query string, args ...any) ([]song.Song, error) {
	var rows []songRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "query songs")
	}
	out := make([]song.Song, len(rows))
	for i, r := range rows {
		out[i] = r.toSong()
	}
	return out, nil
}
