package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"

	"github.com/youpy/go-wav"
)

// rootPitch is the pitch at which a sound plays back at its recorded rate.
const rootPitch = 60

type Sound struct {
	buf  []float64
	file string
}

func (s *Sound) File() string { return s.file }
func (s *Sound) Len() int     { return len(s.buf) }

// LoadSound reads the first channel of a WAV file.
func LoadSound(file string) (*Sound, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snd := Sound{file: file}
	r := wav.NewReader(f)
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		for _, sample := range samples {
			snd.buf = append(snd.buf, r.FloatValue(sample, 0))
		}
	}
	if len(snd.buf) == 0 {
		return nil, fmt.Errorf("%s: no samples", file)
	}
	return &snd, nil
}

// samplePlayer loops a Sound, transposed relative to rootPitch.
type samplePlayer struct {
	sound *atomic.Value
	pos   float64
	rate  float64
}

func (p *samplePlayer) setPitch(pitch int) {
	p.pos = 0
	p.rate = math.Pow(2, float64(pitch-rootPitch)/12.0)
}

func (p *samplePlayer) process(buf []float64) {
	snd, _ := p.sound.Load().(*Sound)
	if snd == nil || len(snd.buf) == 0 {
		return
	}
	n := float64(len(snd.buf))
	for i := range buf {
		buf[i] += snd.buf[int(p.pos)]
		p.pos += p.rate
		for p.pos >= n {
			p.pos -= n
		}
	}
}

func setSound(v interface{}, dest *atomic.Value) error {
	if s, ok := v.(*Sound); ok {
		dest.Store(s)
		return nil
	}
	return fmt.Errorf("property value is not a sound: %v", v)
}
