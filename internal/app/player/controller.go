package player

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/cadenza-player/cadenza/internal/domain/song"
	"github.com/cadenza-player/cadenza/internal/infra/engine"
)

// Config holds controller configuration.
type Config struct {
	ProgressInterval time.Duration // Poll interval for progress recomputation
	RestartThreshold time.Duration // SkipToPrevious restarts instead of moving back above this position
}

// TrackStartedFunc is invoked when a new track starts playing, outside the
// controller lock.
type TrackStartedFunc func(song.Song)

// Controller is the playback queue controller. A single controller owns one
// engine for the lifetime of a player session; its state is mutated only by
// explicit calls and by the engine event dispatcher, both serialized on the
// internal mutex.
//
// Concurrent PlaySong calls are not guarded against each other beyond that
// serialization: a second call simply issues a second stop/clear/rebuild and
// wins. That last-call-wins behavior is deliberate.
type Controller struct {
	mu sync.RWMutex

	engine engine.Engine
	config Config

	queue         []song.Song
	current       *song.Song
	state         State
	playing       bool
	buffering     bool
	shuffle       bool
	repeat        engine.RepeatMode
	progress      float64
	duration      time.Duration
	lastStartedID int64

	onStarted TrackStartedFunc

	broadcast *broadcaster

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a controller bound to the given engine and starts the
// event dispatcher and the progress polling loop.
func NewController(eng engine.Engine, cfg Config) *Controller {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 500 * time.Millisecond
	}
	if cfg.RestartThreshold <= 0 {
		cfg.RestartThreshold = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine:    eng,
		config:    cfg,
		state:     StateIdle,
		broadcast: newBroadcaster(),
		ctx:       ctx,
		cancel:    cancel,
	}

	c.wg.Add(2)
	go c.dispatchLoop()
	go c.pollLoop()
	return c
}

// SetTrackStartedFunc registers the hook invoked when a track starts.
func (c *Controller) SetTrackStartedFunc(fn TrackStartedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStarted = fn
}

// PlaySong plays the given track in the context of list. The track must
// appear in list by id; if it does not, the call is a no-op. The current
// track is set before the engine finishes preparing so consumers never see a
// blank slot while buffering. Duplicates in list are kept; the first
// occurrence determines the queue position.
func (c *Controller) PlaySong(target song.Song, list []song.Song) {
	idx := -1
	for i, s := range list {
		if s.ID == target.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		zlog.Debug().Msgf("player: song id=%d not in source list, ignoring", target.ID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur := target
	c.current = &cur
	c.state = StatePreparing
	c.buffering = true
	c.lastStartedID = 0
	c.queue = make([]song.Song, len(list))
	copy(c.queue, list)

	// Strictly ordered rebuild: stop, clear, repopulate, seek, prepare,
	// autoplay.
	c.engine.Stop()
	c.engine.ClearItems()
	c.engine.SetItems(queueItems(list))
	c.engine.SeekToItem(idx, 0)
	c.engine.Prepare()
	c.engine.SetPlayWhenReady(true)

	c.recomputeLocked()
	c.publishLocked()
}

// TogglePlayPause pauses when playing, otherwise plays; a queue that has
// ended is rewound to the start first. Safe to call with nothing loaded.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.IsPlaying() {
		c.engine.Pause()
		return
	}
	if c.engine.State() == engine.StateEnded {
		c.engine.SeekTo(0)
	}
	c.engine.Play()
}

// SeekTo forwards the seek to the engine and recomputes progress immediately
// so the published state does not lag behind until the next poll tick.
func (c *Controller) SeekTo(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.SeekTo(pos)
	c.recomputeLocked()
	c.publishLocked()
}

// SkipToNext advances to the next queue item; at the end of the queue it
// wraps to the first item only when repeat mode is ALL.
func (c *Controller) SkipToNext() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.HasNext() {
		c.engine.NextItem()
	} else if c.engine.Repeat() == engine.RepeatAll {
		c.engine.SeekToItem(0, 0)
	}
}

// SkipToPrevious restarts the current track when more than the restart
// threshold has played, otherwise moves to the previous item if one exists.
func (c *Controller) SkipToPrevious() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.Position() > c.config.RestartThreshold {
		c.engine.SeekTo(0)
		c.recomputeLocked()
		c.publishLocked()
	} else if c.engine.HasPrevious() {
		c.engine.PreviousItem()
	}
}

// ToggleShuffle flips the shuffle flag. The engine owns the reordering.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SetShuffle(!c.engine.Shuffle())
}

// ToggleRepeatMode cycles OFF, ALL, ONE, OFF.
func (c *Controller) ToggleRepeatMode() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.engine.Repeat() {
	case engine.RepeatOff:
		c.engine.SetRepeatMode(engine.RepeatAll)
	case engine.RepeatAll:
		c.engine.SetRepeatMode(engine.RepeatOne)
	default:
		c.engine.SetRepeatMode(engine.RepeatOff)
	}
}

// ApplySongUpdate mirrors an updated song record into the controller's
// current-track slot and queue, matched by id. Used for optimistic updates
// such as the favorite toggle so playback state reflects the change without
// waiting for a store round trip.
func (c *Controller) ApplySongUpdate(updated song.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	if c.current != nil && c.current.ID == updated.ID {
		cur := updated
		c.current = &cur
		changed = true
	}
	for i := range c.queue {
		if c.queue[i].ID == updated.ID {
			c.queue[i] = updated
			changed = true
		}
	}
	if changed {
		c.publishLocked()
	}
}

// Snapshot returns the current playback state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Queue returns a copy of the loaded queue.
func (c *Controller) Queue() []song.Song {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]song.Song, len(c.queue))
	copy(out, c.queue)
	return out
}

// Subscribe registers a snapshot subscriber.
func (c *Controller) Subscribe() (string, <-chan Snapshot) {
	return c.broadcast.subscribe()
}

// Unsubscribe removes a snapshot subscriber.
func (c *Controller) Unsubscribe(id string) {
	c.broadcast.unsubscribe(id)
}

// Close tears down the polling loop and the active media queue together and
// releases the engine.
func (c *Controller) Close() {
	c.cancel()

	c.mu.Lock()
	c.engine.Stop()
	c.engine.ClearItems()
	c.mu.Unlock()

	c.engine.Close()
	c.wg.Wait()
	c.broadcast.close()
}

// dispatchLoop is the single consumer of the engine event stream. All engine
// callback handling funnels through here instead of being scattered across
// listener registrations.
func (c *Controller) dispatchLoop() {
	defer c.wg.Done()

	for ev := range c.engine.Events() {
		c.handleEngineEvent(ev)
	}
}

func (c *Controller) handleEngineEvent(ev engine.Event) {
	var started *song.Song
	var startedFn TrackStartedFunc

	c.mu.Lock()
	switch ev.Type {
	case engine.EventStateChanged:
		switch ev.State {
		case engine.StateBuffering:
			c.buffering = true
			c.state = StatePreparing
		case engine.StateReady:
			c.buffering = false
			if c.current == nil {
				c.adoptCurrentFromEngineLocked()
			}
			c.playing = c.engine.IsPlaying()
			c.setReadyStateLocked()
		case engine.StateEnded:
			c.playing = false
			c.state = StateEnded
		case engine.StateIdle:
			c.playing = false
			if c.current == nil {
				c.state = StateIdle
			}
		}

	case engine.EventItemTransitioned:
		if s, ok := c.findInQueueLocked(ev.ItemID); ok {
			cur := s
			c.current = &cur
			if ev.ItemID != c.lastStartedID {
				c.lastStartedID = ev.ItemID
				if c.onStarted != nil {
					started = &cur
					startedFn = c.onStarted
				}
			}
		}

	case engine.EventIsPlayingChanged:
		c.playing = ev.Playing && c.engine.State() == engine.StateReady
		if c.state == StateReadyPlaying || c.state == StateReadyPaused || c.state == StatePreparing {
			c.setReadyStateLocked()
		}

	case engine.EventShuffleChanged:
		c.shuffle = ev.Shuffle

	case engine.EventRepeatChanged:
		c.repeat = ev.Repeat
	}

	c.recomputeLocked()
	c.publishLocked()
	c.mu.Unlock()

	// The hook runs outside the lock: it typically reaches back into the
	// library manager, which may call ApplySongUpdate.
	if started != nil && startedFn != nil {
		startedFn(*started)
	}
}

// pollLoop recomputes progress at a fixed interval for as long as the
// controller is alive. This is the only time-driven state update.
func (c *Controller) pollLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			before := c.progress
			beforeDur := c.duration
			c.recomputeLocked()
			if c.progress != before || c.duration != beforeDur {
				c.publishLocked()
			}
			c.mu.Unlock()
		}
	}
}

// setReadyStateLocked resolves the ready state from the playing flag. Only
// meaningful when a track is loaded and the engine is not buffering.
func (c *Controller) setReadyStateLocked() {
	if c.buffering {
		c.state = StatePreparing
		return
	}
	if c.playing {
		c.state = StateReadyPlaying
	} else {
		c.state = StateReadyPaused
	}
}

// adoptCurrentFromEngineLocked fills the current slot from the engine's
// current item when the controller has none, e.g. after restoring state.
func (c *Controller) adoptCurrentFromEngineLocked() {
	item, ok := c.engine.CurrentItem()
	if !ok {
		return
	}
	if s, found := c.findInQueueLocked(item.ID); found {
		cur := s
		c.current = &cur
	}
}

func (c *Controller) findInQueueLocked(id int64) (song.Song, bool) {
	for _, s := range c.queue {
		if s.ID == id {
			return s, true
		}
	}
	return song.Song{}, false
}

// recomputeLocked derives progress and duration from the engine. The
// fraction is only updated while a duration is known, matching the rule that
// progress is derived state, never independently set.
func (c *Controller) recomputeLocked() {
	dur := c.engine.TrackDuration()
	if dur > 0 {
		c.duration = dur
		c.progress = float64(c.engine.Position()) / float64(dur)
		if c.progress > 1 {
			c.progress = 1
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     c.state,
		Playing:   c.playing,
		Buffering: c.buffering,
		Shuffle:   c.shuffle,
		Repeat:    c.repeat,
		Progress:  c.progress,
		Duration:  c.duration,
	}
	if c.current != nil {
		cur := *c.current
		snap.Current = &cur
	}
	return snap
}

func (c *Controller) publishLocked() {
	c.broadcast.publish(c.snapshotLocked())
}

func queueItems(list []song.Song) []engine.Item {
	items := make([]engine.Item, len(list))
	for i, s := range list {
		items[i] = engine.Item{
			ID:       s.ID,
			URI:      s.Path,
			Title:    s.Title,
			Artist:   s.Artist,
			Album:    s.Album,
			Artwork:  s.ArtworkRef,
			Duration: s.Duration,
		}
	}
	return items
}
