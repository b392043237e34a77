// Package library maintains the in-memory view of the song library and the
// playlists behind it. It owns categorized song lists, the favorites list,
// search, scan orchestration and play counting; persistence is delegated to
// the store and file discovery to the scanner.
package library

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	zlog "github.com/rs/zerolog/log"

	"github.com/cadenza-player/cadenza/internal/app/sentiment"
	"github.com/cadenza-player/cadenza/internal/domain/playlist"
	"github.com/cadenza-player/cadenza/internal/domain/song"
)

// Store is the persistence surface the manager needs.
type Store interface {
	Songs(ctx context.Context) ([]song.Song, error)
	UpsertSongs(ctx context.Context, songs []song.Song) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	IncrementPlayCount(ctx context.Context, id int64) error
	SetSentiment(ctx context.Context, id int64, label string) error

	Playlists(ctx context.Context) ([]playlist.Playlist, error)
	PlaylistByID(ctx context.Context, id int64) (playlist.Playlist, error)
	CreatePlaylist(ctx context.Context, name, coverRef string) (playlist.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) error
	AddPlaylistSong(ctx context.Context, playlistID, songID int64) error
	RemovePlaylistSong(ctx context.Context, playlistID, songID int64) error
}

// Scanner discovers audio files and returns them as uncategorized songs.
type Scanner interface {
	Scan(ctx context.Context) ([]song.Song, error)
}

// PlayerUpdater receives song record updates so playback state stays in sync
// with the library, e.g. when a favorite flag flips mid-playback.
type PlayerUpdater interface {
	ApplySongUpdate(song.Song)
}

// ScanResult summarizes a finished library scan.
type ScanResult struct {
	RunID   string
	Scanned int
}

// ErrScanInProgress is returned when a scan is requested while one is running.
var ErrScanInProgress = errors.New("scan already in progress")

// Manager holds the cached library lists. All cached slices are rebuilt
// wholesale from the store on refresh; mutating operations patch the caches
// optimistically and persist afterwards.
type Manager struct {
	mu sync.RWMutex

	store   Store
	scanner Scanner
	player  PlayerUpdater

	songs      []song.Song
	byCategory map[song.Category][]song.Song
	liked      []song.Song

	scanning bool
}

// NewManager creates a manager. player may be nil when no playback controller
// is attached, e.g. in a scan-only invocation.
func NewManager(store Store, scanner Scanner, player PlayerUpdater) *Manager {
	return &Manager{
		store:      store,
		scanner:    scanner,
		player:     player,
		byCategory: make(map[song.Category][]song.Song),
	}
}

// Refresh rebuilds every cached list from the store.
func (m *Manager) Refresh(ctx context.Context) error {
	songs, err := m.store.Songs(ctx)
	if err != nil {
		return errors.Wrap(err, "load songs")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuildLocked(songs)
	return nil
}

// Scan runs a full library scan: discover files, categorize them, persist and
// refresh the caches. Only one scan runs at a time.
func (m *Manager) Scan(ctx context.Context) (ScanResult, error) {
	return m.scanWithRunID(ctx, uuid.New().String())
}

// StartScan launches Scan on a background goroutine and returns the run id
// immediately. The in-progress guard is checked up front so callers get
// ErrScanInProgress synchronously.
func (m *Manager) StartScan() (string, error) {
	m.mu.RLock()
	busy := m.scanning
	m.mu.RUnlock()
	if busy {
		return "", ErrScanInProgress
	}

	runID := uuid.New().String()
	go func() {
		if _, err := m.scanWithRunID(context.Background(), runID); err != nil && !errors.Is(err, ErrScanInProgress) {
			zlog.Error().Err(err).Str("run_id", runID).Msg("background scan failed")
		}
	}()
	return runID, nil
}

func (m *Manager) scanWithRunID(ctx context.Context, runID string) (ScanResult, error) {
	m.mu.Lock()
	if m.scanning {
		m.mu.Unlock()
		return ScanResult{}, ErrScanInProgress
	}
	m.scanning = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.scanning = false
		m.mu.Unlock()
	}()

	res := ScanResult{RunID: runID}
	zlog.Info().Str("run_id", runID).Msg("library scan started")

	found, err := m.scanner.Scan(ctx)
	if err != nil {
		return res, errors.Wrap(err, "scan sources")
	}
	for i := range found {
		found[i].Category = song.Classify(found[i].Path)
	}
	res.Scanned = len(found)

	if err := m.store.UpsertSongs(ctx, found); err != nil {
		return res, errors.Wrap(err, "persist scanned songs")
	}
	if err := m.Refresh(ctx); err != nil {
		return res, err
	}

	zlog.Info().Str("run_id", runID).Int("scanned", res.Scanned).Msg("library scan finished")
	return res, nil
}

// Scanning reports whether a scan is currently running.
func (m *Manager) Scanning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scanning
}

// Songs returns all songs, newest first.
func (m *Manager) Songs() []song.Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySongs(m.songs)
}

// SongsByCategory returns the songs in one category, newest first.
func (m *Manager) SongsByCategory(cat song.Category) []song.Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySongs(m.byCategory[cat])
}

// Favorites returns the liked songs, newest first.
func (m *Manager) Favorites() []song.Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySongs(m.liked)
}

// SongByID looks a song up in the cached library.
func (m *Manager) SongByID(id int64) (song.Song, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.songs {
		if s.ID == id {
			return s, true
		}
	}
	return song.Song{}, false
}

// Search returns the library songs matching query on title, artist or album,
// best match first. A blank query matches nothing.
func (m *Manager) Search(query string) []song.Song {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type ranked struct {
		s    song.Song
		rank int
	}
	var hits []ranked
	for _, s := range m.songs {
		if !s.Matches(query) {
			continue
		}
		hits = append(hits, ranked{s: s, rank: bestRank(query, s)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	out := make([]song.Song, len(hits))
	for i, h := range hits {
		out[i] = h.s
	}
	return out
}

// bestRank scores a match across the searchable fields; lower is better.
// Fields that do not fuzzy-match contribute nothing, which can only happen
// when the substring hit came from another field.
func bestRank(query string, s song.Song) int {
	best := int(^uint(0) >> 1)
	for _, field := range []string{s.Title, s.Artist, s.Album} {
		if r := fuzzy.RankMatchNormalizedFold(query, field); r >= 0 && r < best {
			best = r
		}
	}
	return best
}

// ToggleFavorite flips the favorite flag of a song. The cached lists and the
// attached player are patched immediately; the store write follows, and a
// failed write is logged but does not roll the flip back.
func (m *Manager) ToggleFavorite(ctx context.Context, id int64) (song.Song, error) {
	m.mu.Lock()

	idx := -1
	for i, s := range m.songs {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return song.Song{}, errors.Newf("song %d not in library", id)
	}

	updated := m.songs[idx]
	updated.Favorite = !updated.Favorite
	m.patchLocked(updated)
	m.mu.Unlock()

	if m.player != nil {
		m.player.ApplySongUpdate(updated)
	}
	if err := m.store.SetFavorite(ctx, id, updated.Favorite); err != nil {
		zlog.Warn().Err(err).Int64("song_id", id).Msg("favorite flag not persisted")
	}
	return updated, nil
}

// SetSentiment classifies note and stores the resulting label on the song.
// Unlike the favorite toggle the store write happens first; a sentiment note
// that cannot be persisted is not worth patching into the caches.
func (m *Manager) SetSentiment(ctx context.Context, id int64, note string) (song.Song, error) {
	s, ok := m.SongByID(id)
	if !ok {
		return song.Song{}, errors.Newf("song %d not in library", id)
	}

	label := string(sentiment.Analyze(note))
	if err := m.store.SetSentiment(ctx, id, label); err != nil {
		return song.Song{}, errors.Wrap(err, "persist sentiment")
	}

	s.Sentiment = label
	m.mu.Lock()
	m.patchLocked(s)
	m.mu.Unlock()

	if m.player != nil {
		m.player.ApplySongUpdate(s)
	}
	return s, nil
}

// OnTrackStarted bumps the play count of a song that just started playing.
// Wired as the playback controller's track-started hook.
func (m *Manager) OnTrackStarted(s song.Song) {
	ctx := context.Background()
	if err := m.store.IncrementPlayCount(ctx, s.ID); err != nil {
		zlog.Warn().Err(err).Int64("song_id", s.ID).Msg("play count not persisted")
	}

	m.mu.Lock()
	updated := s
	for _, cached := range m.songs {
		if cached.ID == s.ID {
			updated = cached
			break
		}
	}
	updated.PlayCount++
	m.patchLocked(updated)
	m.mu.Unlock()

	if m.player != nil {
		m.player.ApplySongUpdate(updated)
	}
}

// Playlists returns all playlists without their songs resolved.
func (m *Manager) Playlists(ctx context.Context) ([]playlist.Playlist, error) {
	return m.store.Playlists(ctx)
}

// PlaylistByID returns one playlist with its songs resolved.
func (m *Manager) PlaylistByID(ctx context.Context, id int64) (playlist.Playlist, error) {
	return m.store.PlaylistByID(ctx, id)
}

// CreatePlaylist creates an empty playlist.
func (m *Manager) CreatePlaylist(ctx context.Context, name, coverRef string) (playlist.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return playlist.Playlist{}, errors.New("playlist name is empty")
	}
	return m.store.CreatePlaylist(ctx, name, coverRef)
}

// DeletePlaylist removes a playlist and its memberships.
func (m *Manager) DeletePlaylist(ctx context.Context, id int64) error {
	return m.store.DeletePlaylist(ctx, id)
}

// AddToPlaylist adds a song to a playlist. Adding a song twice is a no-op.
func (m *Manager) AddToPlaylist(ctx context.Context, playlistID, songID int64) error {
	if _, ok := m.SongByID(songID); !ok {
		return errors.Newf("song %d not in library", songID)
	}
	return m.store.AddPlaylistSong(ctx, playlistID, songID)
}

// RemoveFromPlaylist removes a song from a playlist.
func (m *Manager) RemoveFromPlaylist(ctx context.Context, playlistID, songID int64) error {
	return m.store.RemovePlaylistSong(ctx, playlistID, songID)
}

// rebuildLocked replaces every cached list from a fresh store read.
func (m *Manager) rebuildLocked(songs []song.Song) {
	m.songs = songs
	m.byCategory = make(map[song.Category][]song.Song)
	m.liked = m.liked[:0]

	for _, s := range songs {
		m.byCategory[s.Category] = append(m.byCategory[s.Category], s)
		if s.Favorite {
			m.liked = append(m.liked, s)
		}
	}
}

// patchLocked replaces one song record in every cached list by id, and moves
// it in or out of the liked list as its favorite flag dictates.
func (m *Manager) patchLocked(updated song.Song) {
	for i := range m.songs {
		if m.songs[i].ID == updated.ID {
			m.songs[i] = updated
		}
	}
	for cat := range m.byCategory {
		for i := range m.byCategory[cat] {
			if m.byCategory[cat][i].ID == updated.ID {
				m.byCategory[cat][i] = updated
			}
		}
	}

	likedIdx := -1
	for i := range m.liked {
		if m.liked[i].ID == updated.ID {
			likedIdx = i
			break
		}
	}
	switch {
	case updated.Favorite && likedIdx == -1:
		m.liked = append(m.liked, updated)
	case updated.Favorite:
		m.liked[likedIdx] = updated
	case likedIdx != -1:
		m.liked = append(m.liked[:likedIdx], m.liked[likedIdx+1:]...)
	}
}

func copySongs(in []song.Song) []song.Song {
	out := make([]song.Song, len(in))
	copy(out, in)
	return out
}
