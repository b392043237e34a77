// Package player provides the playback queue controller. It mediates between
// the song library and the player engine: it builds the engine's media queue,
// forwards transport commands, consumes the engine event stream through a
// single dispatcher, and republishes a simplified snapshot of the playback
// state for consumers.
package player

// State represents the controller-level playback state.
type State int

const (
	StateIdle         State = iota // No track loaded
	StatePreparing                 // Queue rebuilt, waiting for the engine
	StateReadyPaused               // Track loaded, paused
	StateReadyPlaying              // Track loaded, playing
	StateEnded                     // Queue played to the end
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateReadyPaused:
		return "paused"
	case StateReadyPlaying:
		return "playing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
