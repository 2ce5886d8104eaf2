package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrdg/adsr/audio"
	"github.com/mrdg/adsr/config"
	"github.com/mrdg/adsr/dub"
	"github.com/mrdg/adsr/envelope"
)

type command struct {
	name  string
	usage string
	help  string
	run   func(context.Context, *session, []dub.Node) (string, error)
	arity int // -n means len(args) must be >= n
}

var commands []command

func init() {
	commands = []command{
		{"attack", "<voice>", "start the attack phase", attackCommand, 1},
		{"release", "<voice>", "start the release phase", releaseCommand, 1},
		{"toggle", "<voice> <on>", "attack when on is true, release otherwise", toggleCommand, 2},
		{"set", "<device> <property> <value>", "set a property", setCommand, 3},
		{"get", "<device> [property...]", "print properties, all of them when none are named", getCommand, -1},
		{"preset", "<voice> <name>", "load a preset: " + strings.Join(audio.Presets(), ", "), presetCommand, 2},
		{"timing", "<name> <attack> <decay> <release>", "create or update a shared timing, a voice follows it after set <voice> env.timing <name> and set <voice> env.local false", timingCommand, 4},
		{"loop", "<clip> <voice> <beats> <pitch> '<pattern>", "loop a step pattern, e.g. loop a v1 4 57 '*/2", loopCommand, 5},
		{"unloop", "<clip>", "stop a loop", unloopCommand, 1},
		{"status", "", "show voices, loops and timings", statusCommand, 0},
		{"load-sound", "<voice> <file>", "play a WAV file instead of the oscillator", loadSoundCommand, 2},
		{"save", "<file>", "write the session to a file", saveCommand, 1},
		{"help", "", "show this help", helpCommand, 0},
	}
}

func (s *session) eval(ctx context.Context, input string) (string, error) {
	command, err := dub.Parse(input)
	if err != nil {
		return "", err
	}
	name := string(command.Name)
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity
			if len(command.Args) < arity {
				return "", fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
					cmd.name, arity, len(command.Args))
			}
		} else if len(command.Args) != cmd.arity {
			return "", fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(command.Args))
		}
		result, err := cmd.run(ctx, s, command.Args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, nil
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

func gate(ctx context.Context, s *session, args []dub.Node, on bool) (string, error) {
	var name string
	if err := readArgs(args[:1], &name); err != nil {
		return "", err
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, gateTimeout)
	defer cancel()
	ok, err := v.Toggle(ctx, on)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("%s: ignored in %s", name, v.Phase()), nil
	}
	return "", nil
}

func attackCommand(ctx context.Context, s *session, args []dub.Node) (string, error) {
	return gate(ctx, s, args, true)
}

func releaseCommand(ctx context.Context, s *session, args []dub.Node) (string, error) {
	return gate(ctx, s, args, false)
}

func toggleCommand(ctx context.Context, s *session, args []dub.Node) (string, error) {
	var on bool
	if err := readArgs(args[1:], &on); err != nil {
		return "", err
	}
	return gate(ctx, s, args, on)
}

func setCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var device, prop string
	if err := readArgs(args[:2], &device, &prop); err != nil {
		return "", err
	}
	d, err := s.device(device)
	if err != nil {
		return "", err
	}
	switch v := args[2].(type) {
	case dub.Int:
		return "", d.Set(prop, int(v))
	case dub.Float:
		return "", d.Set(prop, float64(v))
	case dub.Bool:
		return "", d.Set(prop, bool(v))
	case dub.String:
		return "", d.Set(prop, string(v))
	case dub.Identifier:
		return "", d.Set(prop, string(v))
	default:
		return "", fmt.Errorf("unsupported property type: %v", v)
	}
}

func getCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var device string
	if err := readArgs(args[:1], &device); err != nil {
		return "", err
	}
	d, err := s.device(device)
	if err != nil {
		return "", err
	}
	var keys []string
	if len(args) > 1 {
		keys = make([]string, len(args)-1)
		for i := range keys {
			if err := readArgs(args[i+1:i+2], &keys[i]); err != nil {
				return "", err
			}
		}
	}
	if len(keys) == 0 {
		lister, ok := d.(interface{ Keys() []string })
		if !ok {
			return "", fmt.Errorf("can't list properties of %s", device)
		}
		keys = lister.Keys()
	}
	var b strings.Builder
	for i, key := range keys {
		v, err := d.Get(key)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s = %s", key, formatValue(v))
	}
	return b.String(), nil
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case *audio.Sound:
		if v == nil {
			return "none"
		}
		return v.File()
	case map[string]*audio.Clip:
		return fmt.Sprintf("%d clips", len(v))
	case string:
		if v == "" {
			return `""`
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func presetCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var name, preset string
	if err := readArgs(args, &name, &preset); err != nil {
		return "", err
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	return "", audio.LoadPreset(preset, v)
}

func timingCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var name string
	var t envelope.Timing
	if err := readArgs(args, &name, &t.Attack, &t.Decay, &t.Release); err != nil {
		return "", err
	}
	for _, d := range []float64{t.Attack, t.Decay, t.Release} {
		if d < 0 || d > 60 {
			return "", fmt.Errorf("time out of range 0-60s: %v", d)
		}
	}
	s.timings.Set(name, t)
	return "", nil
}

func loopCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var clipName, voiceName string
	var beats, pitch int
	var pattern dub.MatchExpr
	if err := readArgs(args, &clipName, &voiceName, &beats, &pitch, &pattern); err != nil {
		return "", err
	}
	v, err := s.voice(voiceName)
	if err != nil {
		return "", err
	}
	steps, err := dub.EvalMatchExpr(pattern, beats, 4, 4*stepsPerBeat)
	if err != nil {
		return "", err
	}
	clip := audio.NewStepClip(steps, stepsPerBeat, pitch, loopGate, v)
	if clip.NumNotes() == 0 {
		return "", errors.New("pattern has no steps")
	}
	return "", s.updateClips(func(clips map[string]*audio.Clip) {
		clips[clipName] = clip
	})
}

func unloopCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var clipName string
	if err := readArgs(args, &clipName); err != nil {
		return "", err
	}
	if _, ok := s.sequencer.Clips()[clipName]; !ok {
		return "", fmt.Errorf("unknown clip: %s", clipName)
	}
	return "", s.updateClips(func(clips map[string]*audio.Clip) {
		delete(clips, clipName)
	})
}

// updateClips stores a modified copy of the sequencer's clips, the map in
// use is never modified in place.
func (s *session) updateClips(f func(map[string]*audio.Clip)) error {
	old := s.sequencer.Clips()
	clips := make(map[string]*audio.Clip, len(old))
	for k, v := range old {
		clips[k] = v
	}
	f(clips)
	return s.sequencer.Set(audio.PropClips, clips)
}

func statusCommand(_ context.Context, s *session, _ []dub.Node) (string, error) {
	var b strings.Builder
	renderStatus(s, &b)
	return strings.TrimRight(b.String(), "\n"), nil
}

func loadSoundCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var name, file string
	if err := readArgs(args, &name, &file); err != nil {
		return "", err
	}
	v, err := s.voice(name)
	if err != nil {
		return "", err
	}
	sound, err := audio.LoadSound(file)
	if err != nil {
		return "", err
	}
	return "", v.Set(audio.PropSound, sound)
}

func saveCommand(_ context.Context, s *session, args []dub.Node) (string, error) {
	var file string
	if err := readArgs(args, &file); err != nil {
		return "", err
	}
	if err := config.Save(file, s.snapshot()); err != nil {
		return "", err
	}
	return "saved " + file, nil
}

func helpCommand(_ context.Context, _ *session, _ []dub.Node) (string, error) {
	var b strings.Builder
	for i, cmd := range commands {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%-12s %-40s %s", cmd.name, cmd.usage, cmd.help)
	}
	return b.String(), nil
}

func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) != len(slots) {
		return errors.New("not enough arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			switch n := arg.(type) {
			case dub.Float:
				*p = float64(n)
			case dub.Int:
				*p = float64(n)
			default:
				return fmt.Errorf("argument error: expected a number")
			}
		case *int:
			n, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument error: expected an integer")
			}
			*p = int(n)
		case *bool:
			switch b := arg.(type) {
			case dub.Bool:
				*p = bool(b)
			case dub.Identifier:
				switch b {
				case "on", "yes":
					*p = true
				case "off", "no":
					*p = false
				default:
					return fmt.Errorf("argument error: expected a boolean")
				}
			case dub.Int:
				*p = b != 0
			default:
				return fmt.Errorf("argument error: expected a boolean")
			}
		case *dub.MatchExpr:
			m, ok := arg.(dub.MatchExpr)
			if !ok {
				return fmt.Errorf("argument error: expected a pattern")
			}
			*p = m
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
