package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVoice struct {
	events []event
}

func (v *testVoice) PlayNote(offset, pitch, duration int) {
	v.events = append(v.events, event{
		offset:   offset,
		pitch:    pitch,
		duration: duration,
	})
}

func (v *testVoice) flush() {
	v.events = nil
}

func TestSequencer(t *testing.T) {
	const sampleRate = 44100
	const bufferSize = sampleRate // one second per tick
	voice := &testVoice{}

	seq := NewSequencer(NewProps(), sampleRate)
	require.NoError(t, seq.Set(PropBPM, 120.0))

	clip := NewClip(4, voice)
	clip.AddNote(0, 69, 1)    // first beat
	clip.AddNote(1.25, 73, 1) // 2nd 16th note on second beat
	require.NoError(t, seq.Set(PropClips, map[string]*Clip{"beat": clip}))

	want := []event{
		{offset: 0, pitch: 69, duration: 22050},
		{offset: 27563, pitch: 73, duration: 22050},
	}
	seq.Tick(bufferSize)
	assert.Equal(t, want, voice.events)

	voice.flush()
	seq.Tick(bufferSize)
	assert.Empty(t, voice.events)

	voice.flush()
	seq.Tick(bufferSize)
	assert.Equal(t, want, voice.events, "the clip loops after 4 beats")
}

func TestSequencerWrapAround(t *testing.T) {
	const sampleRate = 44100
	voice := &testVoice{}
	seq := NewSequencer(NewProps(), sampleRate)

	// 3 beats at 120bpm is 1.5s, ticking by 1s crosses the loop point on
	// the second tick.
	clip := NewClip(3, voice)
	clip.AddNote(2.5, 60, 0.5)
	clip.AddNote(0, 62, 0.5)
	require.NoError(t, seq.Set(PropClips, map[string]*Clip{"wrap": clip}))

	seq.Tick(sampleRate)
	assert.Equal(t, []event{{offset: 0, pitch: 62, duration: 11025}}, voice.events)

	voice.flush()
	seq.Tick(sampleRate)
	// pos is beat 2, the note at beat 2.5 is half a beat in, the note at
	// beat 0 is one beat in after the loop point.
	assert.Equal(t, []event{
		{offset: 11025, pitch: 60, duration: 11025},
		{offset: 22050, pitch: 62, duration: 11025},
	}, voice.events)
}

func TestStepClip(t *testing.T) {
	voice := &testVoice{}
	clip := NewStepClip([]int{1, 0, 1, 0, 0, 0, 0, 1}, 4, 60, 0.5, voice)

	assert.Equal(t, int(2*PPQN), clip.Length)
	assert.Equal(t, []note{
		{pos: 0, pitch: 60, length: 0.125},
		{pos: 480, pitch: 60, length: 0.125},
		{pos: 1680, pitch: 60, length: 0.125},
	}, clip.notes)
}
