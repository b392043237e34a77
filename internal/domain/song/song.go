// Package song provides the Song domain entity and path-based categorization.
package song

import (
	"strings"
	"time"
)

// Category classifies where a song on the device came from, derived from its
// file path at scan time. It is recomputed on every scan and never mutated
// otherwise.
type Category string

const (
	CategoryWhatsAppAudio Category = "WHATSAPP_AUDIO"
	CategoryDownloaded    Category = "DOWNLOADED"
	CategoryRecorded      Category = "RECORDED"
	CategoryOther         Category = "OTHER"
)

// Categories returns all known categories in display order.
func Categories() []Category {
	return []Category{CategoryWhatsAppAudio, CategoryDownloaded, CategoryRecorded, CategoryOther}
}

// ParseCategory parses a category name. The second return value is false for
// unknown names.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToUpper(s)) {
	case CategoryWhatsAppAudio:
		return CategoryWhatsAppAudio, true
	case CategoryDownloaded:
		return CategoryDownloaded, true
	case CategoryRecorded:
		return CategoryRecorded, true
	case CategoryOther:
		return CategoryOther, true
	default:
		return "", false
	}
}

// Song represents a single audio file found on the device.
// Identity is the stable numeric id assigned by the media index; every other
// field is updated through explicit operations (favorite toggle, play-count
// increment) or replaced wholesale by a fresh scan.
type Song struct {
	ID         int64
	Title      string
	Artist     string
	Album      string
	Duration   time.Duration
	Sentiment  string
	ArtworkRef string
	Path       string
	Favorite   bool
	PlayCount  int
	AddedAt    time.Time
	Category   Category
}

// Classify maps a file path to exactly one category using ordered
// case-insensitive substring rules; the first matching rule wins. The
// function is total: any string, including the empty one, yields a category.
func Classify(path string) Category {
	p := strings.ToLower(path)

	switch {
	// WhatsApp voice notes live under WhatsApp/Media/WhatsApp Audio.
	case strings.Contains(p, "whatsapp/media/whatsapp audio"),
		strings.Contains(p, "whatsapp audio"):
		return CategoryWhatsAppAudio

	// Anything under the downloads directory.
	case strings.Contains(p, "/download/"),
		strings.Contains(p, "download"):
		return CategoryDownloaded

	// Voice memos and screen/sound recordings.
	case strings.Contains(p, "/recording"),
		strings.Contains(p, "/record"),
		strings.Contains(p, "/voice recorder"),
		strings.Contains(p, "/sounds"):
		return CategoryRecorded

	// Camera directory only counts when the file is an .m4a voice capture.
	case strings.Contains(p, "/dcim/") && strings.HasSuffix(p, ".m4a"):
		return CategoryRecorded

	default:
		return CategoryOther
	}
}

// Matches reports whether the query appears in the song's title, artist or
// album, case-insensitively. An empty query matches nothing.
func (s *Song) Matches(query string) bool {
	if query == "" {
		return false
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(s.Title), q) ||
		strings.Contains(strings.ToLower(s.Artist), q) ||
		strings.Contains(strings.ToLower(s.Album), q)
}

// DisplayName returns "Artist - Title", falling back to the title alone.
func (s *Song) DisplayName() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}
