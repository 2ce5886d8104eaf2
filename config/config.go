// Package config reads and writes the YAML description of a session: the
// audio driver, shared timings and the voices with their envelopes.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mrdg/adsr/envelope"
)

var ErrUnknownTiming = errors.New("unknown timing")

// reserved names address the sequencer and the instrument from the prompt.
var reserved = map[string]bool{"seq": true, "main": true}

type Envelope struct {
	Initial        float64 `yaml:"initial"`
	Peak           float64 `yaml:"peak"`
	Sustain        float64 `yaml:"sustain"`
	Attack         float64 `yaml:"attack"`
	Decay          float64 `yaml:"decay"`
	Release        float64 `yaml:"release"`
	Timing         string  `yaml:"timing,omitempty"` // name of an entry in Config.Timings
	UseLocalTiming bool    `yaml:"use_local_timing"`
	BypassDecay    bool    `yaml:"bypass_decay"`
	WaitForRelease bool    `yaml:"wait_for_release"`
	AllowRetrigger bool    `yaml:"allow_retrigger"`
}

type Voice struct {
	Name     string   `yaml:"name"`
	Wave     string   `yaml:"wave,omitempty"`
	Pitch    int      `yaml:"pitch,omitempty"`
	Level    float64  `yaml:"level"`
	Sample   string   `yaml:"sample,omitempty"`
	Preset   string   `yaml:"preset,omitempty"`
	Envelope Envelope `yaml:"envelope"`
}

type Config struct {
	Driver     string  `yaml:"driver"` // "portaudio" | "sim"
	SampleRate float64 `yaml:"sample_rate"`
	BufferSize int     `yaml:"buffer_size"`
	Listen     string  `yaml:"listen,omitempty"`
	LogLevel   string  `yaml:"log_level"`
	BPM        float64 `yaml:"bpm"`

	Timings map[string]envelope.Timing `yaml:"timings,omitempty"`
	Voices  []Voice                    `yaml:"voices"`
}

// EnvelopeConfig converts the envelope block of a voice. The shared
// timing is left unset, the caller resolves v.Envelope.Timing.
func (v Voice) EnvelopeConfig() envelope.Config {
	e := v.Envelope
	return envelope.Config{
		InitialLevel:   e.Initial,
		PeakLevel:      e.Peak,
		SustainLevel:   e.Sustain,
		Local:          envelope.Timing{Attack: e.Attack, Decay: e.Decay, Release: e.Release},
		UseLocalTiming: e.UseLocalTiming || e.Timing == "",
		BypassDecay:    e.BypassDecay,
		WaitForRelease: e.WaitForRelease,
		AllowRetrigger: e.AllowRetrigger,
	}
}

// Default is a two voice session on the simulated driver.
func Default() *Config {
	d := envelope.DefaultConfig()
	env := Envelope{
		Initial:        d.InitialLevel,
		Peak:           d.PeakLevel,
		Sustain:        d.SustainLevel,
		Attack:         d.Local.Attack,
		Decay:          d.Local.Decay,
		Release:        d.Local.Release,
		UseLocalTiming: d.UseLocalTiming,
		BypassDecay:    d.BypassDecay,
		WaitForRelease: d.WaitForRelease,
		AllowRetrigger: d.AllowRetrigger,
	}
	return &Config{
		Driver:     "sim",
		SampleRate: 44100,
		BufferSize: 512,
		LogLevel:   "info",
		BPM:        120,
		Timings: map[string]envelope.Timing{
			"slow": {Attack: 2, Decay: 1, Release: 3},
		},
		Voices: []Voice{
			{Name: "v1", Wave: "saw", Pitch: 57, Envelope: env},
			{Name: "v2", Wave: "square", Pitch: 64, Level: -3, Envelope: env},
		},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	c.Voices = nil
	c.Timings = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// MaxTime is the longest attack, decay or release in seconds a voice
// accepts.
const MaxTime = 60

// Validate checks the values the engine can not recover from. Zero
// envelope times are allowed, they are floored when used.
func (c *Config) Validate() error {
	switch c.Driver {
	case "portaudio", "sim":
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive: %v", c.SampleRate)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive: %v", c.BufferSize)
	}
	if len(c.Voices) == 0 {
		return errors.New("no voices")
	}
	seen := make(map[string]bool, len(c.Voices))
	for _, v := range c.Voices {
		if v.Name == "" {
			return errors.New("voice without a name")
		}
		if reserved[v.Name] {
			return fmt.Errorf("voice name %q is reserved", v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate voice %q", v.Name)
		}
		seen[v.Name] = true
		if t := v.Envelope.Timing; t != "" {
			if _, ok := c.Timings[t]; !ok {
				return fmt.Errorf("voice %s: %w %q", v.Name, ErrUnknownTiming, t)
			}
		}
		for name, level := range map[string]float64{
			"initial": v.Envelope.Initial,
			"peak":    v.Envelope.Peak,
			"sustain": v.Envelope.Sustain,
		} {
			if level < 0 || level > 1 {
				return fmt.Errorf("voice %s: %s level out of range 0-1: %v", v.Name, name, level)
			}
		}
		for name, time := range map[string]float64{
			"attack":  v.Envelope.Attack,
			"decay":   v.Envelope.Decay,
			"release": v.Envelope.Release,
		} {
			if time < 0 || time > MaxTime {
				return fmt.Errorf("voice %s: %s time out of range 0-%d: %v", v.Name, name, MaxTime, time)
			}
		}
	}
	return nil
}
