package audio

import (
	"errors"
	"fmt"
	"sync/atomic"
)

const (
	blockSize         = 16 // this gives about 0.35ms accuracy for sequenced events
	DefaultSampleRate = 44100
	DefaultBufferSize = 512
)

var ErrUnknownVoice = errors.New("unknown voice")

// Instrument renders a fixed set of named voices. Each voice is monophonic;
// playing two parts at once takes two voices.
type Instrument struct {
	*Props
	voices []*Voice
	byName map[string]*Voice
	buf    []float64
	level  *atomic.Value
}

func NewInstrument(props *Props, voices ...*Voice) *Instrument {
	instrument := &Instrument{
		Props:  props,
		byName: make(map[string]*Voice, len(voices)),
		buf:    make([]float64, DefaultBufferSize),
		level:  props.MustRegister(PropLevel, setLevel, -6.0),
	}
	for _, v := range voices {
		instrument.voices = append(instrument.voices, v)
		instrument.byName[v.Name()] = v
	}
	return instrument
}

func (i *Instrument) Voice(name string) (*Voice, error) {
	v, ok := i.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVoice, name)
	}
	return v, nil
}

func (i *Instrument) Voices() []*Voice {
	return i.voices
}

// Process renders all voices into the non-interleaved output buffers in
// blocks of blockSize samples. Gate events are applied at block
// boundaries.
func (i *Instrument) Process(samples [][]float32) {
	frames := len(samples[0])
	if len(i.buf) < frames {
		i.buf = make([]float64, frames)
	}
	for n := 0; n < frames; n += blockSize {
		end := n + blockSize
		if end > frames {
			end = frames
		}
		for _, voice := range i.voices {
			voice.events.iter(end, voice.handle)
			voice.Process(i.buf[n:end])
		}
	}
	// offsets rounded up to the buffer length
	for _, voice := range i.voices {
		voice.events.iter(-1, voice.handle)
	}
	gain := dbToGain(i.level.Load().(float64))
	for n := range i.buf[:frames] {
		sample := float32(gain * i.buf[n])
		for c := range samples {
			samples[c][n] += sample
		}
		i.buf[n] = 0
	}
}
