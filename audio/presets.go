package audio

import (
	"fmt"
	"sort"
)

// Device is anything with settable properties, a Voice or the Instrument.
type Device interface {
	Set(key string, val interface{}) error
	Get(key string) (interface{}, error)
}

type preset map[string]interface{}

var presets = map[string]preset{
	"pluck": {
		PropEnvInitial:   0.,
		PropEnvPeak:      1.,
		PropEnvSustain:   0.,
		PropEnvAttack:    0.005,
		PropEnvDecay:     0.3,
		PropEnvRelease:   0.1,
		PropEnvBypass:    false,
		PropEnvWait:      false,
		PropEnvRetrigger: true,
		PropWave:         "saw",
		PropCutoff:       2500.,
	},
	"pad": {
		PropEnvInitial:   0.,
		PropEnvPeak:      0.8,
		PropEnvSustain:   0.6,
		PropEnvAttack:    1.5,
		PropEnvDecay:     1.,
		PropEnvRelease:   2.5,
		PropEnvBypass:    false,
		PropEnvWait:      true,
		PropEnvRetrigger: true,
		PropWave:         "triangle",
		PropCutoff:       1200.,
	},
	"organ": {
		PropEnvInitial:   0.,
		PropEnvPeak:      1.,
		PropEnvSustain:   1.,
		PropEnvAttack:    0.01,
		PropEnvDecay:     0.01,
		PropEnvRelease:   0.05,
		PropEnvBypass:    true,
		PropEnvWait:      true,
		PropEnvRetrigger: false,
		PropWave:         "square",
		PropCutoff:       4000.,
	},
	"swell": {
		PropEnvInitial:   0.2,
		PropEnvPeak:      1.,
		PropEnvSustain:   0.9,
		PropEnvAttack:    4.,
		PropEnvDecay:     0.5,
		PropEnvRelease:   4.,
		PropEnvBypass:    false,
		PropEnvWait:      true,
		PropEnvRetrigger: true,
		PropWave:         "sine",
		PropCutoff:       20_000.,
	},
	"gate": {
		PropEnvInitial:   0.,
		PropEnvPeak:      1.,
		PropEnvSustain:   1.,
		PropEnvAttack:    0.,
		PropEnvDecay:     0.,
		PropEnvRelease:   0.,
		PropEnvBypass:    true,
		PropEnvWait:      true,
		PropEnvRetrigger: true,
		PropWave:         "square",
		PropCutoff:       20_000.,
	},
}

// Presets returns the names of the built-in presets.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPreset applies a preset to d. The envelope picks it up on its next
// attack.
func LoadPreset(name string, d Device) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset: %v", name)
	}
	for k, v := range p {
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
