package audio

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/mrdg/adsr/envelope"
)

const (
	PropEnvAttack    = "env.attack"
	PropEnvDecay     = "env.decay"
	PropEnvRelease   = "env.release"
	PropEnvInitial   = "env.initial"
	PropEnvPeak      = "env.peak"
	PropEnvSustain   = "env.sustain"
	PropEnvTiming    = "env.timing"
	PropEnvLocal     = "env.local"
	PropEnvBypass    = "env.bypass_decay"
	PropEnvWait      = "env.wait_release"
	PropEnvRetrigger = "env.retrigger"
	PropLevel        = "level"
	PropPitch        = "pitch"
	PropWave         = "osc.wave"
	PropCutoff       = "cutoff"
	PropSound        = "sound"
)

// ErrNotRunning is returned when a gate request is not answered in time
// or can't be queued, which means nothing is driving the voice's clock.
// The request is withdrawn and never applied.
var ErrNotRunning = errors.New("voice is not being processed")

// Voice is one envelope and timer pair applied to a sound source. The
// envelope and timer are only touched from the goroutine calling Process;
// other goroutines talk to the voice through gate events.
type Voice struct {
	*Props
	name       string
	sampleRate float64
	timings    *Timings

	env    *envelope.Envelope
	timer  *envelope.TickTimer
	events *eventBuffer

	osc     *osc
	sampler *samplePlayer
	filter  *filter
	buf     []float64

	envAttack    *atomic.Value
	envDecay     *atomic.Value
	envRelease   *atomic.Value
	envInitial   *atomic.Value
	envPeak      *atomic.Value
	envSustain   *atomic.Value
	envTiming    *atomic.Value
	envLocal     *atomic.Value
	envBypass    *atomic.Value
	envWait      *atomic.Value
	envRetrigger *atomic.Value
	level        *atomic.Value
	pitch        *atomic.Value
	cutoff       *atomic.Value
	sound        *atomic.Value

	// samples left until an automatic release, 0 when the gate is held
	remaining int

	phase atomic.Int32
	value atomic.Uint64
}

// NewVoice creates a voice whose envelope starts from cfg. timings is
// used to resolve the shared timing named by the env.timing property.
func NewVoice(name string, cfg envelope.Config, timings *Timings, sampleRate float64) *Voice {
	props := NewProps()
	v := &Voice{
		Props:      props,
		name:       name,
		sampleRate: sampleRate,
		timings:    timings,
		timer:      envelope.NewTickTimer(),
		events:     newEventBuffer(64),
		filter:     &filter{sampleRate: sampleRate},
		buf:        make([]float64, blockSize),

		envAttack:    props.MustRegister(PropEnvAttack, setEnvTime, cfg.Local.Attack),
		envDecay:     props.MustRegister(PropEnvDecay, setEnvTime, cfg.Local.Decay),
		envRelease:   props.MustRegister(PropEnvRelease, setEnvTime, cfg.Local.Release),
		envInitial:   props.MustRegister(PropEnvInitial, setEnvLevel, cfg.InitialLevel),
		envPeak:      props.MustRegister(PropEnvPeak, setEnvLevel, cfg.PeakLevel),
		envSustain:   props.MustRegister(PropEnvSustain, setEnvLevel, cfg.SustainLevel),
		envTiming:    props.MustRegister(PropEnvTiming, setString, ""),
		envLocal:     props.MustRegister(PropEnvLocal, setBool, cfg.UseLocalTiming),
		envBypass:    props.MustRegister(PropEnvBypass, setBool, cfg.BypassDecay),
		envWait:      props.MustRegister(PropEnvWait, setBool, cfg.WaitForRelease),
		envRetrigger: props.MustRegister(PropEnvRetrigger, setBool, cfg.AllowRetrigger),
		level:        props.MustRegister(PropLevel, setLevel, 0.0),
		pitch:        props.MustRegister(PropPitch, setPitch, 69),
		cutoff:       props.MustRegister(PropCutoff, setFloat64(20, 20_000), 20_000.0),
		sound:        props.MustRegister(PropSound, setSound, (*Sound)(nil)),
	}
	v.osc = &osc{
		sampleRate: sampleRate,
		wave:       props.MustRegister(PropWave, setWaveform, "saw"),
	}
	v.sampler = &samplePlayer{sound: v.sound}

	v.env = envelope.New(name, v.config())
	v.timer.OnProgress(v.env.CalculateValue)
	v.env.OnValueChange(func(value float64, _ envelope.Phase) {
		v.value.Store(math.Float64bits(value))
	})
	v.env.OnPhaseChange(func(p envelope.Phase, _ *envelope.Envelope) {
		v.phase.Store(int32(p))
	})
	v.value.Store(math.Float64bits(v.env.Value()))
	return v
}

func (v *Voice) Name() string { return v.name }

// Phase and Value may be called from any goroutine.
func (v *Voice) Phase() envelope.Phase { return envelope.Phase(v.phase.Load()) }
func (v *Voice) Value() float64        { return math.Float64frombits(v.value.Load()) }

// OnPhaseChange and OnValueChange register envelope listeners. They run on
// the processing goroutine and must not block. Register them before the
// voice is processed.
func (v *Voice) OnPhaseChange(fn func(envelope.Phase, *envelope.Envelope)) func() {
	return v.env.OnPhaseChange(fn)
}

func (v *Voice) OnValueChange(fn func(float64, envelope.Phase)) func() {
	return v.env.OnValueChange(fn)
}

// config builds an envelope configuration from the current properties.
func (v *Voice) config() envelope.Config {
	cfg := envelope.Config{
		InitialLevel: v.envInitial.Load().(float64),
		PeakLevel:    v.envPeak.Load().(float64),
		SustainLevel: v.envSustain.Load().(float64),
		Local: envelope.Timing{
			Attack:  v.envAttack.Load().(float64),
			Decay:   v.envDecay.Load().(float64),
			Release: v.envRelease.Load().(float64),
		},
		UseLocalTiming: v.envLocal.Load().(bool),
		BypassDecay:    v.envBypass.Load().(bool),
		WaitForRelease: v.envWait.Load().(bool),
		AllowRetrigger: v.envRetrigger.Load().(bool),
	}
	if name := v.envTiming.Load().(string); name != "" && v.timings != nil {
		if shared, ok := v.timings.Get(name); ok {
			cfg.Shared = shared
		}
	}
	return cfg
}

// Trigger requests an attack and waits for the processing goroutine to
// report whether it was accepted.
func (v *Voice) Trigger(ctx context.Context) (bool, error) {
	return v.request(ctx, event{gate: gateOn})
}

// Release requests the release phase.
func (v *Voice) Release(ctx context.Context) (bool, error) {
	return v.request(ctx, event{gate: gateOff})
}

// Toggle maps on to Trigger and off to Release.
func (v *Voice) Toggle(ctx context.Context, on bool) (bool, error) {
	if on {
		return v.Trigger(ctx)
	}
	return v.Release(ctx)
}

func (v *Voice) request(ctx context.Context, ev event) (bool, error) {
	reply := make(chan bool, 1)
	claimed := new(atomic.Bool)
	ev.reply = reply
	ev.claimed = claimed
	if !v.events.push(ev) {
		return false, ErrNotRunning
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
	}
	if !claimed.CompareAndSwap(false, true) {
		// applied before it could be withdrawn
		return <-reply, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return false, ErrNotRunning
	}
	return false, ctx.Err()
}

// PlayNote schedules a gate at offset samples into the next buffer that
// is released after duration samples. The note is dropped when the
// voice's queue is full.
func (v *Voice) PlayNote(offset, pitch, duration int) {
	v.events.push(event{
		gate:     gateOn,
		offset:   offset,
		pitch:    pitch,
		duration: duration,
	})
}

func (v *Voice) handle(ev event) {
	if ev.claimed != nil && !ev.claimed.CompareAndSwap(false, true) {
		return
	}
	var ok bool
	switch ev.gate {
	case gateOn:
		v.env.Configure(v.config())
		wasActive := v.env.Phase() != envelope.Inactive
		if ok = v.env.TriggerAttack(v.timer); ok {
			pitch := ev.pitch
			if pitch == 0 {
				pitch = v.pitch.Load().(int)
			}
			if !wasActive {
				v.filter.reset()
			}
			v.source().setPitch(pitch)
			v.remaining = ev.duration
		}
	case gateOff:
		if ok = v.env.TriggerRelease(v.timer); ok {
			v.remaining = 0
		}
	}
	if !ok {
		log.Debug().Str("voice", v.name).Stringer("gate", ev.gate).
			Stringer("phase", v.env.Phase()).Msg("gate rejected")
	}
	if ev.reply != nil {
		ev.reply <- ok
	}
}

func (v *Voice) source() source {
	if snd, _ := v.sound.Load().(*Sound); snd != nil {
		return v.sampler
	}
	return v.osc
}

// Process advances the envelope by the duration of buf and adds the
// enveloped signal to it.
func (v *Voice) Process(buf []float64) {
	v.timer.Advance(float64(len(buf)) / v.sampleRate)
	if v.remaining > 0 {
		v.remaining -= len(buf)
		if v.remaining <= 0 {
			v.remaining = 0
			v.env.TriggerRelease(v.timer)
		}
	}

	gain := v.env.Value() * dbToGain(v.level.Load().(float64))
	if gain == 0 {
		return
	}
	if len(v.buf) < len(buf) {
		v.buf = make([]float64, len(buf))
	}
	tmp := v.buf[:len(buf)]
	v.source().process(tmp)
	v.filter.calculateCoefficients(v.cutoff.Load().(float64))
	v.filter.process(tmp)
	for n := range tmp {
		buf[n] += gain * tmp[n]
		tmp[n] = 0
	}
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20.0)
}
