package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrdg/adsr/audio"
	"github.com/mrdg/adsr/config"
	"github.com/mrdg/adsr/envelope"
	"github.com/mrdg/adsr/monitor"
)

const (
	seqDevice    = "seq"
	mainDevice   = "main"
	gateTimeout  = 500 * time.Millisecond
	loopGate     = 0.5 // fraction of a step a looped note is held
	stepsPerBeat = 4
)

// session owns the audio graph built from a config. Everything reachable
// from sink is processed on the driver's goroutine; the REPL talks to it
// through voice requests and properties.
type session struct {
	cfg        *config.Config
	configPath string

	timings    *audio.Timings
	voices     []*audio.Voice
	instrument *audio.Instrument
	sequencer  *audio.Sequencer
	sink       *audio.Sink
	hub        *monitor.Hub

	devices map[string]audio.Device
}

func newSession(cfg *config.Config, configPath string) (*session, error) {
	s := &session{
		cfg:        cfg,
		configPath: configPath,
		timings:    audio.NewTimings(),
		sink:       audio.NewSink(),
		hub:        monitor.NewHub(),
		devices:    make(map[string]audio.Device),
	}
	for name, t := range cfg.Timings {
		s.timings.Set(name, t)
	}
	for _, vc := range cfg.Voices {
		v, err := s.newVoice(vc)
		if err != nil {
			return nil, fmt.Errorf("voice %s: %w", vc.Name, err)
		}
		s.hub.Watch(v)
		s.voices = append(s.voices, v)
		s.devices[v.Name()] = v
	}

	s.instrument = audio.NewInstrument(audio.NewProps(), s.voices...)
	s.sequencer = audio.NewSequencer(audio.NewProps(), cfg.SampleRate)
	if cfg.BPM > 0 {
		if err := s.sequencer.Set(audio.PropBPM, cfg.BPM); err != nil {
			return nil, err
		}
	}
	s.devices[mainDevice] = s.instrument
	s.devices[seqDevice] = s.sequencer

	s.sink.AddTicker(s.sequencer)
	s.sink.AddSources(s.instrument)
	return s, nil
}

func (s *session) newVoice(vc config.Voice) (*audio.Voice, error) {
	v := audio.NewVoice(vc.Name, vc.EnvelopeConfig(), s.timings, s.cfg.SampleRate)
	if vc.Preset != "" {
		if err := audio.LoadPreset(vc.Preset, v); err != nil {
			return nil, err
		}
	}
	props := map[string]interface{}{
		audio.PropLevel:     vc.Level,
		audio.PropEnvTiming: vc.Envelope.Timing,
	}
	if vc.Wave != "" {
		props[audio.PropWave] = vc.Wave
	}
	if vc.Pitch != 0 {
		props[audio.PropPitch] = vc.Pitch
	}
	for k, val := range props {
		if err := v.Set(k, val); err != nil {
			return nil, err
		}
	}
	if vc.Sample != "" {
		snd, err := audio.LoadSound(vc.Sample)
		if err != nil {
			return nil, err
		}
		if err := v.Set(audio.PropSound, snd); err != nil {
			return nil, err
		}
		log.Debug().Str("voice", vc.Name).Str("file", vc.Sample).Int("samples", snd.Len()).Msg("loaded sound")
	}
	return v, nil
}

func (s *session) voice(name string) (*audio.Voice, error) {
	return s.instrument.Voice(name)
}

func (s *session) device(name string) (audio.Device, error) {
	d, ok := s.devices[name]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", name)
	}
	return d, nil
}

func (s *session) deviceNames() []string {
	names := make([]string, 0, len(s.devices))
	for name := range s.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshot returns the session's current state as a config, suitable for
// saving and loading back.
func (s *session) snapshot() *config.Config {
	c := *s.cfg
	c.BPM = getFloat(s.sequencer, audio.PropBPM)
	c.Timings = make(map[string]envelope.Timing, len(s.timings.Names()))
	for _, name := range s.timings.Names() {
		if t, ok := s.timings.Get(name); ok {
			c.Timings[name] = t.Load()
		}
	}
	c.Voices = nil
	for _, v := range s.voices {
		vc := config.Voice{
			Name:  v.Name(),
			Wave:  getString(v, audio.PropWave),
			Pitch: getInt(v, audio.PropPitch),
			Level: getFloat(v, audio.PropLevel),
			Envelope: config.Envelope{
				Initial:        getFloat(v, audio.PropEnvInitial),
				Peak:           getFloat(v, audio.PropEnvPeak),
				Sustain:        getFloat(v, audio.PropEnvSustain),
				Attack:         getFloat(v, audio.PropEnvAttack),
				Decay:          getFloat(v, audio.PropEnvDecay),
				Release:        getFloat(v, audio.PropEnvRelease),
				Timing:         getString(v, audio.PropEnvTiming),
				UseLocalTiming: getBool(v, audio.PropEnvLocal),
				BypassDecay:    getBool(v, audio.PropEnvBypass),
				WaitForRelease: getBool(v, audio.PropEnvWait),
				AllowRetrigger: getBool(v, audio.PropEnvRetrigger),
			},
		}
		if snd, _ := get(v, audio.PropSound).(*audio.Sound); snd != nil {
			vc.Sample = snd.File()
		}
		c.Voices = append(c.Voices, vc)
	}
	return &c
}

func get(d audio.Device, key string) interface{} {
	v, err := d.Get(key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("read property")
	}
	return v
}

func getFloat(d audio.Device, key string) float64 {
	f, _ := get(d, key).(float64)
	return f
}

func getInt(d audio.Device, key string) int {
	i, _ := get(d, key).(int)
	return i
}

func getBool(d audio.Device, key string) bool {
	b, _ := get(d, key).(bool)
	return b
}

func getString(d audio.Device, key string) string {
	s, _ := get(d, key).(string)
	return s
}
