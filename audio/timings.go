package audio

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mrdg/adsr/envelope"
)

type timingMap map[string]*envelope.SharedTiming

// Timings is a registry of named timing sets shared between voices.
// Updating an entry affects every voice referencing it from its next
// phase onwards. Lookups don't lock, so voices can resolve names on the
// audio goroutine.
type Timings struct {
	mu sync.Mutex // serializes Set
	m  atomic.Value
}

func NewTimings() *Timings {
	t := &Timings{}
	t.m.Store(timingMap{})
	return t
}

func (t *Timings) Get(name string) (*envelope.SharedTiming, bool) {
	s, ok := t.m.Load().(timingMap)[name]
	return s, ok
}

// Set stores timing under name. A new name copies the registry, an
// existing one is updated in place.
func (t *Timings) Set(name string, timing envelope.Timing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.m.Load().(timingMap)
	if s, ok := m[name]; ok {
		s.Store(timing)
		return
	}
	next := make(timingMap, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	next[name] = envelope.NewSharedTiming(timing)
	t.m.Store(next)
}

func (t *Timings) Names() []string {
	m := t.m.Load().(timingMap)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
