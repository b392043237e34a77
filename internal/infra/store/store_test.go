package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-player/cadenza/internal/domain/song"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSongs() []song.Song {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []song.Song{
		{
			ID: 1, Title: "Morning Bell", Artist: "Radiohead", Album: "Kid A",
			Duration: 4 * time.Minute, Path: "/music/Download/morning_bell.mp3",
			AddedAt: base, Category: song.CategoryDownloaded,
		},
		{
			ID: 2, Title: "Voice note", Path: "/music/WhatsApp Audio/note.opus",
			AddedAt: base.Add(time.Hour), Category: song.CategoryWhatsAppAudio,
		},
		{
			ID: 3, Title: "Memo", Path: "/music/Recording/memo.m4a",
			AddedAt: base.Add(2 * time.Hour), Category: song.CategoryRecorded,
		},
	}
}

func TestDB_UpsertAndQuerySongs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertSongs(ctx, seedSongs()))

	songs, err := db.Songs(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 3)

	// Newest first.
	assert.Equal(t, int64(3), songs[0].ID)
	assert.Equal(t, int64(1), songs[2].ID)

	// Round trip of the millisecond columns.
	assert.Equal(t, 4*time.Minute, songs[2].Duration)
	assert.Equal(t, seedSongs()[0].AddedAt.UnixMilli(), songs[2].AddedAt.UnixMilli())

	byCat, err := db.SongsByCategory(ctx, song.CategoryDownloaded)
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "Morning Bell", byCat[0].Title)
}

func TestDB_UpsertPreservesFavoriteAndPlayCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertSongs(ctx, seedSongs()))
	require.NoError(t, db.SetFavorite(ctx, 1, true))
	require.NoError(t, db.IncrementPlayCount(ctx, 1))
	require.NoError(t, db.IncrementPlayCount(ctx, 1))

	// A re-scan delivers fresh metadata for the same id.
	rescanned := seedSongs()
	rescanned[0].Title = "Morning Bell (remaster)"
	require.NoError(t, db.UpsertSongs(ctx, rescanned))

	songs, err := db.Songs(ctx)
	require.NoError(t, err)
	var got song.Song
	for _, s := range songs {
		if s.ID == 1 {
			got = s
		}
	}
	assert.Equal(t, "Morning Bell (remaster)", got.Title)
	assert.True(t, got.Favorite, "favorite flag survives a re-scan")
	assert.Equal(t, 2, got.PlayCount, "play count survives a re-scan")
}

func TestDB_SetFavoriteUnknownSong(t *testing.T) {
	db := openTestDB(t)
	err := db.SetFavorite(context.Background(), 42, true)
	assert.Error(t, err)
}

func TestDB_Favorites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertSongs(ctx, seedSongs()))
	require.NoError(t, db.SetFavorite(ctx, 2, true))

	favs, err := db.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, int64(2), favs[0].ID)

	require.NoError(t, db.SetFavorite(ctx, 2, false))
	favs, err = db.Favorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestDB_SearchSongs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertSongs(ctx, seedSongs()))

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{name: "blank matches nothing", query: "", wantIDs: nil},
		{name: "title", query: "memo", wantIDs: []int64{3}},
		{name: "artist case-insensitive", query: "RADIOHEAD", wantIDs: []int64{1}},
		{name: "album", query: "kid a", wantIDs: []int64{1}},
		{name: "no hit", query: "zzz", wantIDs: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.SearchSongs(ctx, tt.query)
			require.NoError(t, err)
			ids := make([]int64, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.ElementsMatch(t, tt.wantIDs, ids)
			}
		})
	}
}

func TestDB_Sentiment(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertSongs(ctx, seedSongs()))

	require.NoError(t, db.SetSentiment(ctx, 1, "positive"))

	// Sentiment survives a re-scan like the other user-owned columns.
	require.NoError(t, db.UpsertSongs(ctx, seedSongs()))
	songs, err := db.Songs(ctx)
	require.NoError(t, err)
	for _, s := range songs {
		if s.ID == 1 {
			assert.Equal(t, "positive", s.Sentiment)
		}
	}
}

func TestDB_Playlists(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertSongs(ctx, seedSongs()))

	beach, err := db.CreatePlaylist(ctx, "beach", "")
	require.NoError(t, err)
	road, err := db.CreatePlaylist(ctx, "Road trip", "cover.png")
	require.NoError(t, err)

	// Name order, case-insensitive.
	all, err := db.Playlists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "beach", all[0].Name)
	assert.Equal(t, "Road trip", all[1].Name)

	require.NoError(t, db.AddPlaylistSong(ctx, road.ID, 3))
	require.NoError(t, db.AddPlaylistSong(ctx, road.ID, 1))
	// Duplicate add is a no-op.
	require.NoError(t, db.AddPlaylistSong(ctx, road.ID, 3))

	got, err := db.PlaylistByID(ctx, road.ID)
	require.NoError(t, err)
	require.Len(t, got.Songs, 2)
	assert.Equal(t, int64(3), got.Songs[0].ID, "insertion order preserved")
	assert.Equal(t, int64(1), got.Songs[1].ID)

	require.NoError(t, db.RemovePlaylistSong(ctx, road.ID, 3))
	got, err = db.PlaylistByID(ctx, road.ID)
	require.NoError(t, err)
	require.Len(t, got.Songs, 1)

	require.NoError(t, db.DeletePlaylist(ctx, road.ID))
	_, err = db.PlaylistByID(ctx, road.ID)
	assert.Error(t, err)
	assert.Error(t, db.DeletePlaylist(ctx, road.ID))

	// The other playlist is untouched.
	got, err = db.PlaylistByID(ctx, beach.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Songs)
}
