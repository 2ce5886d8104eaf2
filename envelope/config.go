package envelope

import (
	"math"
	"sync/atomic"
)

// Epsilon is the duration in seconds substituted for a phase whose
// configured time is zero.
const Epsilon = 0.001

// Timing holds the attack, decay and release times in seconds.
type Timing struct {
	Attack  float64 `yaml:"attack" json:"attack"`
	Decay   float64 `yaml:"decay" json:"decay"`
	Release float64 `yaml:"release" json:"release"`
}

// SharedTiming is a Timing that can be referenced by many envelopes and
// updated from another goroutine. Envelopes read it when a phase starts.
type SharedTiming struct {
	v atomic.Pointer[Timing]
}

func NewSharedTiming(t Timing) *SharedTiming {
	s := &SharedTiming{}
	s.Store(t)
	return s
}

func (s *SharedTiming) Load() Timing {
	if t := s.v.Load(); t != nil {
		return *t
	}
	return Timing{}
}

func (s *SharedTiming) Store(t Timing) {
	s.v.Store(&t)
}

// Config is the set of parameters an envelope runs with.
type Config struct {
	InitialLevel float64
	PeakLevel    float64
	SustainLevel float64

	// Local is used when UseLocalTiming is set or Shared is nil.
	Local          Timing
	Shared         *SharedTiming
	UseLocalTiming bool

	BypassDecay    bool
	WaitForRelease bool
	AllowRetrigger bool
}

// DefaultConfig matches a plain organ-like gate: full peak and sustain,
// short attack, held until released.
func DefaultConfig() Config {
	return Config{
		InitialLevel:   0,
		PeakLevel:      1,
		SustainLevel:   1,
		Local:          Timing{Attack: 0.1, Decay: 0.5, Release: 1},
		UseLocalTiming: true,
		WaitForRelease: true,
		AllowRetrigger: true,
	}
}

// timing returns the effective durations of c.
func (c Config) timing() Timing {
	var shared *Timing
	if c.Shared != nil {
		t := c.Shared.Load()
		shared = &t
	}
	return ResolveTiming(c.UseLocalTiming, c.Local, shared)
}

// ResolveTiming picks local or shared timing and floors every duration
// with FloorDuration. Local wins when useLocal is set or shared is nil.
func ResolveTiming(useLocal bool, local Timing, shared *Timing) Timing {
	t := local
	if !useLocal && shared != nil {
		t = *shared
	}
	return Timing{
		Attack:  FloorDuration(t.Attack),
		Decay:   FloorDuration(t.Decay),
		Release: FloorDuration(t.Release),
	}
}

// FloorDuration makes d usable as a timer run length: negative values are
// mirrored, and zero or non-finite values become Epsilon.
func FloorDuration(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return Epsilon
	}
	d = math.Abs(d)
	if d < 1e-6 {
		return Epsilon
	}
	return d
}
