package player

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cadenza-player/cadenza/internal/domain/song"
	"github.com/cadenza-player/cadenza/internal/infra/engine"
)

// Snapshot is the read-only view of the playback state published to
// subscribers. Progress is the position within the current track as a
// fraction in [0,1], recomputed on every poll tick, engine event and seek.
type Snapshot struct {
	Current   *song.Song
	State     State
	Playing   bool
	Buffering bool
	Shuffle   bool
	Repeat    engine.RepeatMode
	Progress  float64
	Duration  time.Duration
}

// broadcaster fans snapshots out to subscribers. Sends never block: a
// subscriber that falls behind loses intermediate snapshots, not the stream.
type broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]chan Snapshot
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[string]chan Snapshot)}
}

// subscribe registers a new subscriber and returns its id and channel.
func (b *broadcaster) subscribe() (string, <-chan Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Snapshot, 8)
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

// unsubscribe removes a subscriber and closes its channel.
func (b *broadcaster) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// publish delivers a snapshot to every subscriber without blocking.
func (b *broadcaster) publish(snap Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- snap:
		default:
			// Slow subscriber, drop this snapshot.
		}
	}
}

// count returns the number of active subscribers.
func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// close closes all subscriber channels.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
