package dub

import (
	"errors"
	"fmt"
)

type matchItem struct {
	level   int
	matcher matcher
}

type matcher interface {
	match(i int) bool
}

type rangeMatch struct {
	start, end int
}

func (r rangeMatch) match(i int) bool {
	return (i >= r.start || r.start == -1) && (i <= r.end || r.end == -1)
}

var matchAll = rangeMatch{-1, -1}

type listMatch []int

func (l listMatch) match(i int) bool {
	for _, k := range l {
		if k == i {
			return true
		}
	}
	return false
}

// division is one level of a match expression laid out on the step grid.
type division struct {
	width   int // steps per note
	perBeat int
	matcher matcher
}

// number is the 1-based number of the note containing step. Notes finer
// than a beat are numbered within their beat, beats within the bar.
func (d division) number(step int) int {
	n := step / d.width
	if d.perBeat > 1 {
		n %= d.perBeat
	}
	return n + 1
}

// EvalMatchExpr expands expr into a step sequence for a bar of
// numerator/denominator with stepSize steps per whole note. A step is 1
// when it starts a note of the finest level and every level matches the
// note containing it.
func EvalMatchExpr(expr MatchExpr, numerator, denominator, stepSize int) ([]int, error) {
	if numerator <= 0 || denominator <= 0 || stepSize < denominator {
		return nil, fmt.Errorf("invalid meter %d/%d with step size %d", numerator, denominator, stepSize)
	}
	if len(expr.matchers) == 0 {
		return nil, errors.New("empty match expression")
	}
	divs := make([]division, len(expr.matchers))
	for i, item := range expr.matchers {
		notes := denominator << item.level
		if notes > stepSize {
			return nil, fmt.Errorf("can't match on %d notes with step size %d", notes, stepSize)
		}
		divs[i] = division{
			width:   stepSize / notes,
			perBeat: notes / denominator,
			matcher: item.matcher,
		}
	}

	seq := make([]int, (stepSize/denominator)*numerator)
	finest := divs[len(divs)-1]
steps:
	for step := 0; step < len(seq); step += finest.width {
		for _, d := range divs {
			if !d.matcher.match(d.number(step)) {
				continue steps
			}
		}
		seq[step] = 1
	}
	return seq, nil
}
