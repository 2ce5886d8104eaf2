package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrdg/adsr/envelope"
)

// a low sample rate keeps the sample counts readable: 1 sample is 1ms
const testSampleRate = 1000

func newTestVoice(t *testing.T) *Voice {
	t.Helper()
	return NewVoice("v1", envelope.DefaultConfig(), NewTimings(), testSampleRate)
}

func TestVoiceCycle(t *testing.T) {
	v := newTestVoice(t)

	var phases []envelope.Phase
	v.OnPhaseChange(func(p envelope.Phase, _ *envelope.Envelope) {
		phases = append(phases, p)
	})

	v.handle(event{gate: gateOn})
	assert.Equal(t, envelope.Attack, v.Phase())

	v.Process(make([]float64, 50))
	assert.InDelta(t, 0.5, v.Value(), 1e-9)

	v.Process(make([]float64, 50))
	assert.Equal(t, envelope.Decay, v.Phase())

	v.Process(make([]float64, 500))
	assert.Equal(t, envelope.Sustain, v.Phase())
	assert.InDelta(t, 1.0, v.Value(), 1e-9)

	v.handle(event{gate: gateOff})
	assert.Equal(t, envelope.Release, v.Phase())

	v.Process(make([]float64, 500))
	assert.InDelta(t, 0.5, v.Value(), 1e-9)

	v.Process(make([]float64, 500))
	assert.Equal(t, envelope.Inactive, v.Phase())
	assert.InDelta(t, 0.0, v.Value(), 1e-9)

	assert.Equal(t, []envelope.Phase{
		envelope.Attack,
		envelope.Decay,
		envelope.Sustain,
		envelope.Release,
		envelope.Inactive,
	}, phases)
}

func TestVoiceRejectsRetrigger(t *testing.T) {
	v := newTestVoice(t)
	require.NoError(t, v.Set(PropEnvRetrigger, false))

	reply := make(chan bool, 2)
	v.handle(event{gate: gateOn, reply: reply})
	v.handle(event{gate: gateOn, reply: reply})
	assert.True(t, <-reply)
	assert.False(t, <-reply)

	v.handle(event{gate: gateOff, reply: reply})
	v.handle(event{gate: gateOff, reply: reply})
	assert.True(t, <-reply)
	assert.False(t, <-reply)
}

func TestVoicePropertiesApplyOnNextAttack(t *testing.T) {
	v := newTestVoice(t)
	v.handle(event{gate: gateOn})

	require.NoError(t, v.Set(PropEnvAttack, 2.0))
	assert.InDelta(t, 0.1, v.timer.Duration(), 1e-9)

	v.handle(event{gate: gateOff})
	v.Process(make([]float64, 2000))
	require.Equal(t, envelope.Inactive, v.Phase())

	v.handle(event{gate: gateOn})
	assert.InDelta(t, 2.0, v.timer.Duration(), 1e-9)
}

func TestVoiceSharedTiming(t *testing.T) {
	timings := NewTimings()
	timings.Set("slow", envelope.Timing{Attack: 3, Decay: 1, Release: 4})

	v := NewVoice("v1", envelope.DefaultConfig(), timings, testSampleRate)
	require.NoError(t, v.Set(PropEnvTiming, "slow"))
	require.NoError(t, v.Set(PropEnvLocal, false))

	v.handle(event{gate: gateOn})
	assert.InDelta(t, 3.0, v.timer.Duration(), 1e-9)

	// an update is seen by the next phase
	timings.Set("slow", envelope.Timing{Attack: 3, Decay: 1, Release: 2})
	v.handle(event{gate: gateOff})
	assert.InDelta(t, 0.0, v.Value(), 1e-9)
	assert.InDelta(t, envelope.Epsilon, v.timer.Duration(), 1e-9)

	v.Process(make([]float64, 10))
	v.handle(event{gate: gateOn})
	v.Process(make([]float64, 1500))
	v.handle(event{gate: gateOff})
	assert.InDelta(t, 2*v.Value(), v.timer.Duration(), 1e-9)

	// unknown names fall back to local timing
	require.NoError(t, v.Set(PropEnvTiming, "missing"))
	v.Process(make([]float64, 5000))
	v.handle(event{gate: gateOn})
	assert.InDelta(t, 0.1, v.timer.Duration(), 1e-9)
}

func TestVoiceRequestNotRunning(t *testing.T) {
	v := newTestVoice(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := v.Trigger(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestVoiceRequestQueueFull(t *testing.T) {
	v := newTestVoice(t)
	for n := 0; n < len(v.events.events); n++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_, err := v.Trigger(ctx)
		cancel()
		require.ErrorIs(t, err, ErrNotRunning)
	}

	result := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := v.Release(ctx)
		result <- err
	}()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrNotRunning)
	case <-time.After(2 * time.Second):
		t.Fatal("request on a full queue ignored its deadline")
	}
}

func TestVoiceTimedOutRequestIsWithdrawn(t *testing.T) {
	v := newTestVoice(t)
	instrument := NewInstrument(NewProps(), v)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := v.Trigger(ctx)
	require.ErrorIs(t, err, ErrNotRunning)

	var phases []envelope.Phase
	v.OnPhaseChange(func(p envelope.Phase, _ *envelope.Envelope) {
		phases = append(phases, p)
	})
	buf := [][]float32{make([]float32, 64), make([]float32, 64)}
	instrument.Process(buf)

	assert.Equal(t, envelope.Inactive, v.Phase())
	assert.Empty(t, phases)
	assert.Equal(t, v.events.write.Load(), v.events.read.Load(), "withdrawn events are still consumed")
	for n := range buf[0] {
		assert.Zero(t, buf[0][n])
	}
}

func TestVoiceRequest(t *testing.T) {
	v := newTestVoice(t)
	instrument := NewInstrument(NewProps(), v)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := [][]float32{make([]float32, 16), make([]float32, 16)}
		for {
			select {
			case <-stop:
				return
			default:
				instrument.Process(buf)
				time.Sleep(time.Millisecond)
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := v.Toggle(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Toggle(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstrumentPlayNote(t *testing.T) {
	v := newTestVoice(t)
	instrument := NewInstrument(NewProps(), v)

	v.PlayNote(0, 0, 100)
	buf := [][]float32{make([]float32, 100), make([]float32, 100)}
	instrument.Process(buf)

	assert.Equal(t, envelope.Release, v.Phase())

	var nonZero bool
	for n := range buf[0] {
		assert.Equal(t, buf[0][n], buf[1][n])
		if buf[0][n] != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero, "expected sound in the output")
}

func TestInstrumentVoice(t *testing.T) {
	v := newTestVoice(t)
	instrument := NewInstrument(NewProps(), v)

	got, err := instrument.Voice("v1")
	require.NoError(t, err)
	assert.Same(t, v, got)

	_, err = instrument.Voice("v2")
	assert.ErrorIs(t, err, ErrUnknownVoice)
}
