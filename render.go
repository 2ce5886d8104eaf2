package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrdg/adsr/audio"
	"github.com/mrdg/adsr/envelope"
)

const meterWidth = 20

func renderStatus(s *session, w io.Writer) {
	var maxNameLen int
	for _, v := range s.voices {
		if len(v.Name()) > maxNameLen {
			maxNameLen = len(v.Name())
		}
	}

	for _, v := range s.voices {
		name := colorize(pad(v.Name(), maxNameLen), colorGreen)
		phase := colorize(pad(v.Phase().String(), 8), phaseColor(v.Phase()))
		timing := "local"
		if t := getString(v, audio.PropEnvTiming); t != "" && !getBool(v, audio.PropEnvLocal) {
			timing = t
		}
		source := getString(v, audio.PropWave)
		if snd, _ := get(v, audio.PropSound).(*audio.Sound); snd != nil {
			source = displayName(snd.File())
		}
		fmt.Fprintf(w, "%s %s %s %.3f  A %.2fs D %.2fs R %.2fs  S %.2f  %s %s\n",
			name, phase, meter(v.Value()), v.Value(),
			getFloat(v, audio.PropEnvAttack),
			getFloat(v, audio.PropEnvDecay),
			getFloat(v, audio.PropEnvRelease),
			getFloat(v, audio.PropEnvSustain),
			colorize(timing, colorMagenta),
			colorize(source, colorBlue),
		)
	}

	clips := s.sequencer.Clips()
	if len(clips) > 0 {
		names := make([]string, 0, len(clips))
		for name := range clips {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "\nloops at %v bpm\n", getFloat(s.sequencer, audio.PropBPM))
		for _, name := range names {
			clip := clips[name]
			fmt.Fprintf(w, "  %s %v beats, %d notes\n",
				colorize(name, colorYellow), float64(clip.Length)/audio.PPQN, clip.NumNotes())
		}
	}

	if names := s.timings.Names(); len(names) > 0 {
		fmt.Fprintf(w, "\ntimings\n")
		for _, name := range names {
			t, _ := s.timings.Get(name)
			timing := t.Load()
			fmt.Fprintf(w, "  %s A %.2fs D %.2fs R %.2fs\n",
				colorize(name, colorMagenta), timing.Attack, timing.Decay, timing.Release)
		}
	}
}

func meter(value float64) string {
	n := int(value*meterWidth + 0.5)
	if n < 0 {
		n = 0
	}
	if n > meterWidth {
		n = meterWidth
	}
	return "[" + strings.Repeat("█", n) + strings.Repeat(" ", meterWidth-n) + "]"
}

func phaseColor(p envelope.Phase) int {
	switch p {
	case envelope.Attack:
		return colorRed
	case envelope.Decay:
		return colorYellow
	case envelope.Sustain:
		return colorGreen
	case envelope.Release:
		return colorBlue
	default:
		return colorBlack
	}
}

func pad(s string, n int) string {
	if len(s) < n {
		return s + strings.Repeat(" ", n-len(s))
	}
	return s
}

func displayName(filename string) string {
	filename = filepath.Base(filename)
	return filename[:len(filename)-len(filepath.Ext(filename))]
}

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
)

func colorize(text string, color int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, text)
}
