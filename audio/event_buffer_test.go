package audio

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBufferOffset(t *testing.T) {
	buf := newEventBuffer(8)
	buf.push(event{offset: 2})
	buf.push(event{offset: 3, gate: gateOff})

	var events []event
	collect := func(ev event) { events = append(events, ev) }

	buf.iter(2, collect)
	assert.Empty(t, events)

	buf.iter(4, collect)
	require.Len(t, events, 2)
	assert.Equal(t, gateOff, events[1].gate)
}

func TestEventBuffer(t *testing.T) {
	buf := newEventBuffer(8)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	var events []event
	collect := func(ev event) { events = append(events, ev) }
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				buf.iter(-1, collect)
				return
			default:
				buf.iter(-1, collect)
			}
		}
	}()

	const numEvents = 100_000
	for n := 0; n < numEvents; n++ {
		for !buf.push(event{offset: n}) {
			runtime.Gosched()
		}
	}
	cancel()
	<-done

	require.Len(t, events, numEvents)
	for n, ev := range events {
		if ev.offset != n {
			t.Fatalf("discontinuous event offset at %d: %d", n, ev.offset)
		}
	}
}

func TestEventBufferFull(t *testing.T) {
	buf := newEventBuffer(4)
	for n := 0; n < 4; n++ {
		require.True(t, buf.push(event{offset: n}), "push %d", n)
	}
	assert.False(t, buf.push(event{offset: 4}), "full buffer")

	buf.iter(1, func(event) {})
	assert.True(t, buf.push(event{offset: 4}), "space after consuming an event")
}

func TestEventBufferSize(t *testing.T) {
	assert.Panics(t, func() { newEventBuffer(6) })
}
