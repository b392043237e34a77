// Package scanner discovers audio files on disk and turns them into raw song
// records. Categorization is not its job; callers classify the returned
// records.
package scanner

import (
	"context"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/cadenza-player/cadenza/internal/domain/song"
	"github.com/cadenza-player/cadenza/internal/infra/config"
)

var defaultExtensions = []string{
	".mp3", ".m4a", ".aac", ".ogg", ".opus", ".flac", ".wav", ".wma",
}

// Scanner walks a set of filesystem roots.
type Scanner struct {
	roots      []string
	extensions map[string]bool
}

type filesystemSettings struct {
	Roots      []string `mapstructure:"roots"`
	Extensions []string `mapstructure:"extensions"`
}

// New creates a scanner over the given roots with the default extension set.
func New(roots ...string) *Scanner {
	s := &Scanner{extensions: make(map[string]bool)}
	s.roots = roots
	for _, ext := range defaultExtensions {
		s.extensions[ext] = true
	}
	return s
}

// FromConfig builds one scanner from the configured sources. Every source of
// type "filesystem" contributes its roots; other types are rejected.
func FromConfig(sources []config.SourceConfig) (*Scanner, error) {
	s := &Scanner{extensions: make(map[string]bool)}

	for _, src := range sources {
		if src.Type != "filesystem" {
			return nil, errors.Newf("unknown source type: %s", src.Type)
		}
		var settings filesystemSettings
		if err := mapstructure.Decode(src.Settings, &settings); err != nil {
			return nil, errors.Wrap(err, "decode filesystem source settings")
		}
		if len(settings.Roots) == 0 {
			return nil, errors.New("filesystem source has no roots")
		}
		s.roots = append(s.roots, settings.Roots...)
		for _, ext := range settings.Extensions {
			s.extensions[strings.ToLower(ext)] = true
		}
	}

	if len(s.extensions) == 0 {
		for _, ext := range defaultExtensions {
			s.extensions[ext] = true
		}
	}
	return s, nil
}

// Scan walks every root and returns a record per supported audio file. An
// unreadable directory is logged and skipped, not fatal; a missing root is
// skipped the same way so a detached drive does not kill the scan.
func (s *Scanner) Scan(ctx context.Context) ([]song.Song, error) {
	var found []song.Song

	for _, root := range s.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				zlog.Warn().Err(err).Str("path", path).Msg("scan: skipping unreadable entry")
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != root {
					return fs.SkipDir
				}
				return nil
			}
			if !s.extensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				zlog.Warn().Err(err).Str("path", path).Msg("scan: skipping unstattable file")
				return nil
			}
			found = append(found, s.readSong(path, info))
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			zlog.Warn().Err(err).Str("root", root).Msg("scan: root skipped")
		}
	}

	return found, nil
}

// readSong builds a song record from tags, falling back to the filename when
// the file carries none.
func (s *Scanner) readSong(path string, info os.FileInfo) song.Song {
	rec := song.Song{
		ID:      pathID(path),
		Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:    path,
		AddedAt: info.ModTime(),
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		zlog.Debug().Err(err).Str("path", path).Msg("scan: no readable tags")
		return rec
	}
	defer tag.Close()

	if t := strings.TrimSpace(tag.Title()); t != "" {
		rec.Title = t
	}
	rec.Artist = strings.TrimSpace(tag.Artist())
	rec.Album = strings.TrimSpace(tag.Album())

	// TLEN carries the track length in milliseconds.
	if tlen := strings.TrimSpace(tag.GetTextFrame("TLEN").Text); tlen != "" {
		if ms, err := strconv.ParseInt(tlen, 10, 64); err == nil && ms > 0 {
			rec.Duration = time.Duration(ms) * time.Millisecond
		}
	}
	return rec
}

// pathID derives a stable numeric id from the file path. FNV-64a, masked to
// the positive int64 range so it survives JSON and SQLite round trips.
func pathID(path string) int64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return int64(h.Sum64() & (1<<63 - 1))
}
