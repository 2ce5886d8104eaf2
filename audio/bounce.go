package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// Stream adapts a Sink to a beep.Streamer. Each refill calls Process with
// bufferSize frames, so the sink is clocked by whoever reads the stream.
func Stream(sink *Sink, bufferSize int) beep.Streamer {
	buf := [][]float32{make([]float32, bufferSize), make([]float32, bufferSize)}
	pos := bufferSize
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for n < len(samples) {
			if pos == bufferSize {
				sink.Process(buf)
				pos = 0
			}
			samples[n][0] = float64(buf[0][pos])
			samples[n][1] = float64(buf[1][pos])
			pos++
			n++
		}
		return n, true
	})
}

// Bounce renders d of the sink's output into w as 16 bit stereo WAV.
func Bounce(w io.WriteSeeker, sink *Sink, sampleRate, bufferSize int, d time.Duration) error {
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   2,
	}
	if err := wav.Encode(w, beep.Take(format.SampleRate.N(d), Stream(sink, bufferSize)), format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}
