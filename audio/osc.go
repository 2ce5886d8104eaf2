package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	twoPi           = 2 * math.Pi
	numCoefficients = 5
)

// source produces the raw signal of a voice before the envelope is
// applied.
type source interface {
	setPitch(pitch int)
	process(buf []float64)
}

type osc struct {
	sampleRate float64
	wave       *atomic.Value
	phase      float64
	phaseDelta float64
	freq       float64
}

func (o *osc) setPitch(pitch int) {
	o.freq = midiToFreq(pitch)
	o.phaseDelta = o.freq * twoPi / o.sampleRate
}

func (o *osc) process(buf []float64) {
	fn := waveform(o.wave.Load().(string))
	for n := range buf {
		buf[n] += fn(o.phase)
		o.phase += o.phaseDelta
		if o.phase >= twoPi {
			o.phase -= twoPi
		}
	}
}

func waveform(s string) func(float64) float64 {
	switch s {
	case "sine":
		return math.Sin
	case "saw":
		return func(phase float64) float64 {
			return (2.0 * phase / twoPi) - 1.
		}
	case "square":
		return func(phase float64) float64 {
			if phase <= math.Pi {
				return 1.0
			}
			return -1.0
		}
	case "triangle":
		return func(phase float64) float64 {
			return 1 - 4*math.Abs(phase/twoPi-0.5)
		}
	default:
		return func(_ float64) float64 { return 0 }
	}
}

func setWaveform(v interface{}, dest *atomic.Value) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("value is not a string: %v", v)
	}
	switch s {
	case "sine", "saw", "square", "triangle", "off":
		dest.Store(s)
		return nil
	default:
		return fmt.Errorf("not a valid waveform type: %v", s)
	}
}

type filter struct {
	sampleRate   float64
	coefficients [numCoefficients]float64

	// state
	y1, y2 float64 // y[n-1] y[n-2]
}

// Lowpass filter based on https://www.w3.org/2011/audio/audio-eq-cookbook.html
func (f *filter) process(buf []float64) {
	c0 := f.coefficients[0]
	c1 := f.coefficients[1]
	c2 := f.coefficients[2]
	c3 := f.coefficients[3]
	c4 := f.coefficients[4]

	for n := range buf {
		in := buf[n]
		out := c0*in + f.y1
		buf[n] = out
		f.y1 = c1*in - c3*out + f.y2
		f.y2 = c2*in - c4*out
	}
}

func (f *filter) calculateCoefficients(freq float64) {
	freq = math.Min(freq, 0.45*f.sampleRate)
	omega := 2 * math.Pi * freq / f.sampleRate
	cos := math.Cos(omega)
	sin := math.Sin(omega)

	const q = 1
	alpha := sin / (2. * q)

	b0 := (1 - cos) / 2
	b1 := 1 - cos
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cos
	a2 := 1 - alpha

	f.coefficients[0] = b0 / a0
	f.coefficients[1] = b1 / a0
	f.coefficients[2] = b2 / a0
	f.coefficients[3] = a1 / a0
	f.coefficients[4] = a2 / a0
}

func (f *filter) reset() {
	f.y1, f.y2 = 0, 0
}

func midiToFreq(note int) float64 {
	return math.Pow(2, float64((note-69))/12.0) * 440
}
