package engine

import (
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// tickInterval is how often the clock engine checks for item end.
const tickInterval = 50 * time.Millisecond

// ClockEngine advances playback position in real time against the wall clock
// without touching an audio device. It implements the full Engine contract,
// including repeat and shuffle handling at item boundaries, which makes it
// usable both as the daemon's default engine and as a deterministic stand-in
// in tests.
type ClockEngine struct {
	mu sync.Mutex

	items []Item
	order []int // playback order, permutation of item indices
	cur   int   // index into items, -1 when none

	state         PlaybackState
	playWhenReady bool
	playing       bool
	shuffle       bool
	repeat        RepeatMode

	// Position is tracked as a base offset plus wall time elapsed since the
	// anchor while playing. Wall time is used instead of the monotonic clock
	// so that suspends do not freeze playback progress.
	base   time.Duration
	anchor time.Time

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	rng       *rand.Rand
}

// NewClockEngine creates a clock engine and starts its ticker goroutine.
func NewClockEngine() *ClockEngine {
	e := &ClockEngine{
		cur:    -1,
		state:  StateIdle,
		events: make(chan Event, 32),
		done:   make(chan struct{}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	go e.run()
	return e
}

// Events returns the engine event channel.
func (e *ClockEngine) Events() <-chan Event {
	return e.events
}

// Stop halts playback and returns to the idle state. Loaded items are kept.
func (e *ClockEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasPlaying := e.playing
	e.playing = false
	e.playWhenReady = false
	e.base = 0
	if e.state != StateIdle {
		e.state = StateIdle
		e.emitLocked(Event{Type: EventStateChanged, State: e.state})
	}
	if wasPlaying {
		e.emitLocked(Event{Type: EventIsPlayingChanged, Playing: false})
	}
}

// ClearItems discards the media queue.
func (e *ClockEngine) ClearItems() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = nil
	e.order = nil
	e.cur = -1
	e.base = 0
}

// SetItems replaces the media queue. The first item becomes current but
// playback does not start until Prepare.
func (e *ClockEngine) SetItems(items []Item) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = make([]Item, len(items))
	copy(e.items, items)
	e.rebuildOrderLocked(0)
	if len(e.items) > 0 {
		e.cur = 0
	} else {
		e.cur = -1
	}
	e.base = 0
}

// SeekToItem makes the item at index current and positions within it.
func (e *ClockEngine) SeekToItem(index int, pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.items) {
		return
	}
	e.cur = index
	e.base = e.clampLocked(pos)
	e.anchor = wallNow()
	if e.state == StateEnded {
		e.state = StateReady
		e.emitLocked(Event{Type: EventStateChanged, State: e.state})
	}
	e.emitLocked(Event{Type: EventItemTransitioned, ItemID: e.items[index].ID})
}

// Prepare transitions the engine out of idle. When playWhenReady is set,
// playback starts as soon as the current item is ready.
func (e *ClockEngine) Prepare() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.items) == 0 || e.cur < 0 {
		return
	}

	e.state = StateBuffering
	e.emitLocked(Event{Type: EventStateChanged, State: e.state})

	// No real decoder to wait on; the item is ready immediately.
	e.state = StateReady
	e.emitLocked(Event{Type: EventStateChanged, State: e.state})
	e.emitLocked(Event{Type: EventItemTransitioned, ItemID: e.items[e.cur].ID})

	if e.playWhenReady {
		e.startPlayingLocked()
	}
}

// SetPlayWhenReady sets the autoplay flag, starting or pausing playback when
// the engine is already in the ready state.
func (e *ClockEngine) SetPlayWhenReady(play bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.playWhenReady = play
	if play && e.state == StateReady && !e.playing {
		e.startPlayingLocked()
	} else if !play && e.playing {
		e.pauseLocked()
	}
}

// Play resumes or starts playback of the current item.
func (e *ClockEngine) Play() {
	e.SetPlayWhenReady(true)
}

// Pause pauses playback, keeping the position.
func (e *ClockEngine) Pause() {
	e.SetPlayWhenReady(false)
}

// SeekTo moves the position within the current item. Seeking out of the
// ended state brings the engine back to ready.
func (e *ClockEngine) SeekTo(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur < 0 {
		return
	}
	e.base = e.clampLocked(pos)
	e.anchor = wallNow()
	if e.state == StateEnded {
		e.state = StateReady
		e.emitLocked(Event{Type: EventStateChanged, State: e.state})
		if e.playWhenReady {
			e.startPlayingLocked()
		}
	}
}

// NextItem advances to the next item in play order, if any.
func (e *ClockEngine) NextItem() {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, ok := e.neighborLocked(+1)
	if !ok {
		return
	}
	e.transitionToLocked(next)
}

// PreviousItem moves to the previous item in play order, if any.
func (e *ClockEngine) PreviousItem() {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.neighborLocked(-1)
	if !ok {
		return
	}
	e.transitionToLocked(prev)
}

// HasNext reports whether a next item exists in play order. Repeat mode is
// not considered; wrapping is the caller's decision.
func (e *ClockEngine) HasNext() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.neighborLocked(+1)
	return ok
}

// HasPrevious reports whether a previous item exists in play order.
func (e *ClockEngine) HasPrevious() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.neighborLocked(-1)
	return ok
}

// Position returns the playback position within the current item.
func (e *ClockEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// TrackDuration returns the duration of the current item, or zero.
func (e *ClockEngine) TrackDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur < 0 {
		return 0
	}
	return e.items[e.cur].Duration
}

// IsPlaying reports whether playback is advancing.
func (e *ClockEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// State returns the engine playback state.
func (e *ClockEngine) State() PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentItem returns the current item, if one is loaded.
func (e *ClockEngine) CurrentItem() (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur < 0 {
		return Item{}, false
	}
	return e.items[e.cur], true
}

// SetShuffle enables or disables shuffled play order. When enabling, the
// current item stays first and the remainder is permuted.
func (e *ClockEngine) SetShuffle(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shuffle == enabled {
		return
	}
	e.shuffle = enabled
	e.rebuildOrderLocked(e.cur)
	e.emitLocked(Event{Type: EventShuffleChanged, Shuffle: enabled})
}

// Shuffle reports whether shuffled play order is enabled.
func (e *ClockEngine) Shuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffle
}

// SetRepeatMode sets the repeat mode.
func (e *ClockEngine) SetRepeatMode(mode RepeatMode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.repeat == mode {
		return
	}
	e.repeat = mode
	e.emitLocked(Event{Type: EventRepeatChanged, Repeat: mode})
}

// Repeat returns the repeat mode.
func (e *ClockEngine) Repeat() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

// Close stops the ticker goroutine and closes the event channel.
func (e *ClockEngine) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.mu.Lock()
		e.playing = false
		e.playWhenReady = false
		e.mu.Unlock()
		close(e.events)
	})
}

// run is the ticker loop watching for item end while playing.
func (e *ClockEngine) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.playing && e.cur >= 0 && e.positionLocked() >= e.items[e.cur].Duration {
				e.onItemEndLocked()
			}
			e.mu.Unlock()
		}
	}
}

func (e *ClockEngine) onItemEndLocked() {
	switch {
	case e.repeat == RepeatOne:
		// Restart the same item.
		e.base = 0
		e.anchor = wallNow()
		e.emitLocked(Event{Type: EventItemTransitioned, ItemID: e.items[e.cur].ID})

	default:
		next, ok := e.neighborLocked(+1)
		if !ok && e.repeat == RepeatAll && len(e.order) > 0 {
			next, ok = e.order[0], true
		}
		if ok {
			e.transitionToLocked(next)
			return
		}

		// End of queue.
		e.playing = false
		e.playWhenReady = false
		e.base = e.items[e.cur].Duration
		e.state = StateEnded
		zlog.Debug().Msgf("engine: queue ended at item id=%d", e.items[e.cur].ID)
		e.emitLocked(Event{Type: EventStateChanged, State: e.state})
		e.emitLocked(Event{Type: EventIsPlayingChanged, Playing: false})
	}
}

func (e *ClockEngine) transitionToLocked(index int) {
	e.cur = index
	e.base = 0
	e.anchor = wallNow()
	if e.state == StateEnded {
		e.state = StateReady
		e.emitLocked(Event{Type: EventStateChanged, State: e.state})
	}
	e.emitLocked(Event{Type: EventItemTransitioned, ItemID: e.items[index].ID})
}

func (e *ClockEngine) startPlayingLocked() {
	e.playing = true
	e.anchor = wallNow()
	e.emitLocked(Event{Type: EventIsPlayingChanged, Playing: true})
}

func (e *ClockEngine) pauseLocked() {
	e.base = e.positionLocked()
	e.playing = false
	e.emitLocked(Event{Type: EventIsPlayingChanged, Playing: false})
}

func (e *ClockEngine) positionLocked() time.Duration {
	if e.cur < 0 {
		return 0
	}
	pos := e.base
	if e.playing {
		pos += wallNow().Sub(e.anchor)
	}
	return e.clampLocked(pos)
}

func (e *ClockEngine) clampLocked(pos time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if e.cur >= 0 && pos > e.items[e.cur].Duration {
		return e.items[e.cur].Duration
	}
	return pos
}

// neighborLocked returns the item index one step away in play order.
func (e *ClockEngine) neighborLocked(step int) (int, bool) {
	if e.cur < 0 || len(e.order) == 0 {
		return 0, false
	}
	at := -1
	for i, idx := range e.order {
		if idx == e.cur {
			at = i
			break
		}
	}
	if at < 0 {
		return 0, false
	}
	at += step
	if at < 0 || at >= len(e.order) {
		return 0, false
	}
	return e.order[at], true
}

// rebuildOrderLocked recomputes the play order. With shuffle on, keepFirst
// stays at the front and the remainder is permuted.
func (e *ClockEngine) rebuildOrderLocked(keepFirst int) {
	e.order = make([]int, len(e.items))
	for i := range e.order {
		e.order[i] = i
	}
	if !e.shuffle || len(e.order) < 2 {
		return
	}

	e.rng.Shuffle(len(e.order), func(i, j int) {
		e.order[i], e.order[j] = e.order[j], e.order[i]
	})
	if keepFirst >= 0 && keepFirst < len(e.items) {
		for i, idx := range e.order {
			if idx == keepFirst {
				e.order[0], e.order[i] = e.order[i], e.order[0]
				break
			}
		}
	}
}

// emitLocked sends an event without blocking. Must be called with the lock
// held. Events are dropped if the channel is full or the engine is closed.
func (e *ClockEngine) emitLocked(ev Event) {
	select {
	case <-e.done:
	default:
		select {
		case e.events <- ev:
		default:
			zlog.Warn().Msgf("engine: event channel full, dropping %s", ev.Type)
		}
	}
}

// wallNow returns the current time with the monotonic reading stripped so
// that position arithmetic follows the wall clock.
func wallNow() time.Time {
	t := time.Now()
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
