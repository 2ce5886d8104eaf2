package audio

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SimDriver renders buffers on a wall clock ticker and discards them. It
// keeps envelopes moving on machines without an audio device.
type SimDriver struct {
	sink     *Sink
	interval time.Duration
	buf      [][]float32

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewSimDriver(sink *Sink, sampleRate float64, bufferSize int) *SimDriver {
	return &SimDriver{
		sink:     sink,
		interval: time.Duration(float64(bufferSize) / sampleRate * float64(time.Second)),
		buf:      [][]float32{make([]float32, bufferSize), make([]float32, bufferSize)},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *SimDriver) Start() error {
	go d.run()
	return nil
}

func (d *SimDriver) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	var late int
	last := time.Now()
	for {
		select {
		case <-d.stop:
			return
		case now := <-ticker.C:
			d.sink.Process(d.buf)
			if now.Sub(last) > 2*d.interval {
				late++
				if late%100 == 1 {
					log.Warn().Dur("interval", d.interval).Int("late", late).Msg("sim driver running late")
				}
			}
			last = now
		}
	}
}

// Close stops the ticker and waits for the last buffer to finish.
func (d *SimDriver) Close() error {
	d.once.Do(func() {
		close(d.stop)
	})
	select {
	case <-d.done:
	case <-time.After(time.Second):
	}
	return nil
}
