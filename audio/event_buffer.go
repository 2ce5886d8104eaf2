package audio

import (
	"sync"
	"sync/atomic"
)

type gate int

const (
	gateOn gate = iota
	gateOff
)

func (g gate) String() string {
	if g == gateOn {
		return "on"
	}
	return "off"
}

// event is a gate request for a voice. offset is the sample position
// within the next buffer, duration (in samples) releases the gate
// automatically when positive. reply, when set, receives the result of
// the trigger. claimed is set by whichever side gets to the event first:
// the processing goroutine applying it or a requester withdrawing it.
type event struct {
	gate     gate
	offset   int
	pitch    int
	duration int
	reply    chan<- bool
	claimed  *atomic.Bool
}

// eventBuffer is a lock-free queue on the consumer side. Producers are
// serialized with a mutex and never wait for space, so neither side can
// block the other.
type eventBuffer struct {
	mu          sync.Mutex
	events      []event
	read, write atomic.Uint32
}

func newEventBuffer(size int) *eventBuffer {
	if size <= 0 || size&(size-1) != 0 {
		panic("event buffer size must be a power of 2")
	}
	return &eventBuffer{events: make([]event, size)}
}

// push queues ev, or reports false when the buffer is full. It never
// waits for the consumer.
func (b *eventBuffer) push(ev event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	write := b.write.Load()
	if write-b.read.Load() == uint32(len(b.events)) {
		return false
	}
	b.events[write%uint32(len(b.events))] = ev
	b.write.Store(write + 1)
	return true
}

// iter consumes events with an offset before untilOffset, or all events
// when untilOffset is -1.
func (b *eventBuffer) iter(untilOffset int, f func(event)) {
	read := b.read.Load()
	write := b.write.Load()
	for read != write {
		ev := b.events[read%uint32(len(b.events))]
		if ev.offset >= untilOffset && untilOffset != -1 {
			break
		}
		f(ev)
		read++
	}
	b.read.Store(read)
}
