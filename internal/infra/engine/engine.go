// Package engine defines the player engine contract and a wall-clock
// reference implementation. The engine owns the loaded media items, the
// playback position and the shuffle ordering; everything above it only issues
// commands and consumes the event stream.
package engine

import "time"

// PlaybackState represents the engine-level playback state.
type PlaybackState int

const (
	StateIdle      PlaybackState = iota // No items prepared
	StateBuffering                      // Preparing the current item
	StateReady                          // Item ready, may be playing or paused
	StateEnded                          // Reached the end of the queue
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// RepeatMode controls what happens when the current item or queue ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Item is a single entry in the engine's media queue.
type Item struct {
	ID       int64         // Stable media id, matches the song id
	URI      string        // File path or stream location
	Title    string
	Artist   string
	Album    string
	Artwork  string
	Duration time.Duration
}

// EventType tags an engine event.
type EventType int

const (
	EventStateChanged     EventType = iota // Playback state changed
	EventItemTransitioned                  // Current item changed
	EventIsPlayingChanged                  // Play/pause flipped
	EventShuffleChanged                    // Shuffle flag flipped
	EventRepeatChanged                     // Repeat mode changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventItemTransitioned:
		return "item_transitioned"
	case EventIsPlayingChanged:
		return "is_playing_changed"
	case EventShuffleChanged:
		return "shuffle_changed"
	case EventRepeatChanged:
		return "repeat_changed"
	default:
		return "unknown"
	}
}

// Event is the tagged union delivered on the engine's event channel. Only the
// fields relevant to the Type carry meaning.
type Event struct {
	Type    EventType
	State   PlaybackState // EventStateChanged
	ItemID  int64         // EventItemTransitioned; 0 when no item
	Playing bool          // EventIsPlayingChanged
	Shuffle bool          // EventShuffleChanged
	Repeat  RepeatMode    // EventRepeatChanged
}

// Engine is the player engine consumed by the playback controller. All
// methods are safe for concurrent use. Implementations deliver state changes
// on the Events channel; commands may complete asynchronously.
type Engine interface {
	// Queue management
	Stop()
	ClearItems()
	SetItems(items []Item)
	SeekToItem(index int, pos time.Duration)
	Prepare()

	// Transport
	SetPlayWhenReady(play bool)
	Play()
	Pause()
	SeekTo(pos time.Duration)
	NextItem()
	PreviousItem()

	// Introspection
	HasNext() bool
	HasPrevious() bool
	Position() time.Duration
	TrackDuration() time.Duration
	IsPlaying() bool
	State() PlaybackState
	CurrentItem() (Item, bool)

	// Modes
	SetShuffle(enabled bool)
	Shuffle() bool
	SetRepeatMode(mode RepeatMode)
	Repeat() RepeatMode

	// Events returns the engine event stream. The channel is closed by Close.
	Events() <-chan Event

	Close()
}
