package envelope

import "fmt"

// Phase is the current stage of an envelope.
type Phase int32

const (
	Inactive Phase = iota
	Attack
	Decay
	Sustain
	Release
)

var phaseNames = [...]string{
	Inactive: "inactive",
	Attack:   "attack",
	Decay:    "decay",
	Sustain:  "sustain",
	Release:  "release",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int32(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for n, name := range phaseNames {
		if name == string(text) {
			*p = Phase(n)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}
