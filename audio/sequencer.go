package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Pulses per quarter note
const PPQN = 960.

const (
	PropBPM   = "bpm"
	PropClips = "clips"
)

// Clip is a looped sequence of timed gates for one voice.
type Clip struct {
	Length int
	voice  Playable
	notes  []note
}

// NewClip returns an empty clip of length beats.
func NewClip(length float64, p Playable) *Clip {
	return &Clip{
		Length: int(length * PPQN),
		voice:  p,
	}
}

// NewStepClip builds a clip from a step pattern where every non-zero step
// opens the gate for gate (0-1] of a step. stepsPerBeat is 4 for 16ths.
func NewStepClip(steps []int, stepsPerBeat int, pitch int, gate float64, p Playable) *Clip {
	stepLen := 1 / float64(stepsPerBeat)
	clip := NewClip(float64(len(steps))*stepLen, p)
	for i, s := range steps {
		if s != 0 {
			clip.AddNote(float64(i)*stepLen, pitch, stepLen*gate)
		}
	}
	return clip
}

type Playable interface {
	PlayNote(offset, pitch, duration int)
}

func (c *Clip) AddNote(position float64, pitch int, length float64) {
	if pitch < 1 || pitch > 127 {
		return
	}
	c.notes = append(c.notes, note{
		pos:    int(position * PPQN),
		pitch:  pitch,
		length: length,
	})
}

func (c *Clip) NumNotes() int { return len(c.notes) }

type note struct {
	pos    int     // position of the note measured in PPQN from the start of a clip
	pitch  int     // pitch as a midi note number
	length float64 // note length in beats
}

// Sequencer schedules the notes of its clips as gate events. Tick runs on
// the audio goroutine before the voices are processed.
type Sequencer struct {
	*Props
	bpm         *atomic.Value
	clips       *atomic.Value
	sampleRate  float64
	totalPulses uint64
}

func NewSequencer(props *Props, sampleRate float64) *Sequencer {
	clips := make(map[string]*Clip)
	seq := &Sequencer{
		Props:      props,
		sampleRate: sampleRate,
		clips:      props.MustRegister(PropClips, setClips, clips),
		bpm:        props.MustRegister(PropBPM, setFloat64(1, 500), 120.0),
	}
	return seq
}

// Clips returns the current clips. The map must not be modified; store a
// copy with Set(PropClips, ...) instead.
func (s *Sequencer) Clips() map[string]*Clip {
	return s.clips.Load().(map[string]*Clip)
}

func (s *Sequencer) Tick(numSamples int) {
	bpm := s.bpm.Load().(float64)
	clips := s.clips.Load().(map[string]*Clip)

	// The number of pulses to schedule for each buffer will be fractional,
	// because the PPQN is not a multiple of the buffer size. Truncating it
	// causes the next pulse to be a few samples early, but it's not noticeable.
	numPulses := int(math.Floor(PPQN * (bpm / 60.) / (s.sampleRate / float64(numSamples))))
	samplesPerPulse := s.sampleRate / ((bpm * PPQN) / 60.)

	for _, clip := range clips {
		if clip.Length <= 0 {
			continue
		}
		pos := int(s.totalPulses % uint64(clip.Length)) // current position within the clip
		nextPos := pos + numPulses                      // next position within the clip

		for _, note := range clip.notes {
			duration := int(note.length * s.sampleRate / (bpm / 60.))

			if nextPos > clip.Length {
				// We've reached the end of the clip so also check start of clip for notes to schedule.
				if note.pos >= pos || note.pos < nextPos-clip.Length {
					offset := int(math.Round(float64(clip.Length-pos+note.pos) * samplesPerPulse))
					if note.pos >= pos {
						offset = int(math.Round(float64(note.pos-pos) * samplesPerPulse))
					}
					clip.voice.PlayNote(offset, note.pitch, duration)
				}
			} else {
				if note.pos >= pos && note.pos < nextPos {
					offset := int(math.Round(float64(note.pos-pos) * samplesPerPulse))
					clip.voice.PlayNote(offset, note.pitch, duration)
				}
			}
		}
	}
	s.totalPulses += uint64(numPulses)
}

func setClips(v interface{}, dest *atomic.Value) error {
	if c, ok := v.(map[string]*Clip); ok {
		dest.Store(c)
		return nil
	}
	return fmt.Errorf("value is not a map of clips: %v", v)
}
