package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []Item {
	return []Item{
		{ID: 1, Title: "one", Duration: 10 * time.Second},
		{ID: 2, Title: "two", Duration: 10 * time.Second},
		{ID: 3, Title: "three", Duration: 10 * time.Second},
	}
}

// drain consumes buffered events so later assertions start clean.
func drain(e *ClockEngine) {
	for {
		select {
		case <-e.Events():
		default:
			return
		}
	}
}

func TestClockEngine_PrepareAndPlay(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems(testItems())
	assert.Equal(t, StateIdle, e.State())

	e.SeekToItem(1, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()

	assert.Equal(t, StateReady, e.State())
	assert.True(t, e.IsPlaying())

	cur, ok := e.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, int64(2), cur.ID)
}

func TestClockEngine_PrepareEmptyQueueIsNoop(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.Prepare()
	e.Play()

	assert.Equal(t, StateIdle, e.State())
	assert.False(t, e.IsPlaying())
}

func TestClockEngine_PauseKeepsPosition(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems(testItems())
	e.SeekToItem(0, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()

	e.SeekTo(4 * time.Second)
	e.Pause()

	pos := e.Position()
	assert.False(t, e.IsPlaying())
	assert.GreaterOrEqual(t, pos, 4*time.Second)
	assert.Less(t, pos, 5*time.Second)

	// Position must not advance while paused.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, pos, e.Position())
}

func TestClockEngine_SeekClampsToItemBounds(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems(testItems())
	e.SeekToItem(0, 0)
	e.Prepare()

	e.SeekTo(-3 * time.Second)
	assert.Equal(t, time.Duration(0), e.Position())

	e.SeekTo(time.Hour)
	assert.Equal(t, 10*time.Second, e.Position())
}

func TestClockEngine_NextPrevious(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems(testItems())
	e.SeekToItem(0, 0)
	e.Prepare()

	assert.True(t, e.HasNext())
	assert.False(t, e.HasPrevious())

	e.NextItem()
	cur, _ := e.CurrentItem()
	assert.Equal(t, int64(2), cur.ID)
	assert.True(t, e.HasPrevious())

	e.NextItem()
	assert.False(t, e.HasNext())

	e.PreviousItem()
	cur, _ = e.CurrentItem()
	assert.Equal(t, int64(2), cur.ID)
}

func TestClockEngine_ItemEndAdvances(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems([]Item{
		{ID: 1, Duration: 150 * time.Millisecond},
		{ID: 2, Duration: 10 * time.Second},
	})
	e.SeekToItem(0, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()

	require.Eventually(t, func() bool {
		cur, ok := e.CurrentItem()
		return ok && cur.ID == 2
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, e.IsPlaying())
}

func TestClockEngine_QueueEndWithoutRepeat(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems([]Item{{ID: 1, Duration: 150 * time.Millisecond}})
	e.SeekToItem(0, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()

	require.Eventually(t, func() bool {
		return e.State() == StateEnded
	}, 2*time.Second, 20*time.Millisecond)
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 150*time.Millisecond, e.Position())
}

func TestClockEngine_RepeatAllWrapsAtQueueEnd(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems([]Item{
		{ID: 1, Duration: 10 * time.Second},
		{ID: 2, Duration: 150 * time.Millisecond},
	})
	e.SetRepeatMode(RepeatAll)
	e.SeekToItem(1, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()

	require.Eventually(t, func() bool {
		cur, ok := e.CurrentItem()
		return ok && cur.ID == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, e.IsPlaying())
}

func TestClockEngine_RepeatOneRestartsItem(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems([]Item{
		{ID: 1, Duration: 150 * time.Millisecond},
		{ID: 2, Duration: 10 * time.Second},
	})
	e.SetRepeatMode(RepeatOne)
	e.SeekToItem(0, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()

	// The same item must still be current well past its duration.
	time.Sleep(400 * time.Millisecond)
	cur, ok := e.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, int64(1), cur.ID)
	assert.True(t, e.IsPlaying())
}

func TestClockEngine_SeekOutOfEndedStateResumes(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems([]Item{{ID: 1, Duration: 150 * time.Millisecond}})
	e.SeekToItem(0, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()

	require.Eventually(t, func() bool {
		return e.State() == StateEnded
	}, 2*time.Second, 20*time.Millisecond)

	e.SeekTo(0)
	e.Play()
	assert.Equal(t, StateReady, e.State())
	assert.True(t, e.IsPlaying())
}

func TestClockEngine_ShuffleKeepsCurrentFirstAndAllItems(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	items := make([]Item, 8)
	for i := range items {
		items[i] = Item{ID: int64(i + 1), Duration: time.Minute}
	}
	e.SetItems(items)
	e.SeekToItem(3, 0)
	e.Prepare()
	drain(e)

	e.SetShuffle(true)
	assert.True(t, e.Shuffle())

	// Current item is unchanged and no previous item exists in shuffled order.
	cur, _ := e.CurrentItem()
	assert.Equal(t, int64(4), cur.ID)
	assert.False(t, e.HasPrevious())

	// Walking forward visits every remaining item exactly once.
	seen := map[int64]bool{cur.ID: true}
	for e.HasNext() {
		e.NextItem()
		c, _ := e.CurrentItem()
		assert.False(t, seen[c.ID], "item %d visited twice", c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, seen, len(items))
}

func TestClockEngine_EventStream(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems(testItems())
	e.SeekToItem(0, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()
	e.SetRepeatMode(RepeatAll)

	var types []EventType
	deadline := time.After(time.Second)
	for len(types) < 5 {
		select {
		case ev := <-e.Events():
			types = append(types, ev.Type)
		case <-deadline:
			t.Fatalf("timed out, got %v", types)
		}
	}

	assert.Contains(t, types, EventStateChanged)
	assert.Contains(t, types, EventItemTransitioned)
	assert.Contains(t, types, EventIsPlayingChanged)
	assert.Contains(t, types, EventRepeatChanged)
}

func TestClockEngine_StopReturnsToIdle(t *testing.T) {
	e := NewClockEngine()
	defer e.Close()

	e.SetItems(testItems())
	e.SeekToItem(0, 0)
	e.SetPlayWhenReady(true)
	e.Prepare()
	require.True(t, e.IsPlaying())

	e.Stop()
	assert.Equal(t, StateIdle, e.State())
	assert.False(t, e.IsPlaying())

	// Items survive Stop; ClearItems discards them.
	_, ok := e.CurrentItem()
	assert.True(t, ok)
	e.ClearItems()
	_, ok = e.CurrentItem()
	assert.False(t, ok)
}
