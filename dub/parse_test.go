package dub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(items ...matchItem) MatchExpr {
	return MatchExpr{matchers: items}
}

func TestParse(t *testing.T) {
	for input, want := range map[string]Command{
		"A '1": {
			Name: "A",
			Args: []Node{match(matchItem{level: 0, matcher: listMatch{1}})},
		},
		"A '*/*": {
			Name: "A",
			Args: []Node{match(
				matchItem{level: 0, matcher: matchAll},
				matchItem{level: 1, matcher: matchAll},
			)},
		},
		"A '*//3,4": {
			Name: "A",
			Args: []Node{match(
				matchItem{level: 0, matcher: matchAll},
				matchItem{level: 2, matcher: listMatch{3, 4}},
			)},
		},
		"A '1,2//3:4": {
			Name: "A",
			Args: []Node{match(
				matchItem{level: 0, matcher: listMatch{1, 2}},
				matchItem{level: 2, matcher: rangeMatch{start: 3, end: 4}},
			)},
		},
		"loop bass v1 4 45 '1,3": {
			Name: "loop",
			Args: []Node{
				Identifier("bass"), Identifier("v1"), Int(4), Int(45),
				match(matchItem{level: 0, matcher: listMatch{1, 3}}),
			},
		},
		"set v1 env.retrigger false": {
			Name: "set",
			Args: []Node{Identifier("v1"), Identifier("env.retrigger"), Bool(false)},
		},
		"set v1 env.sustain -.25": {
			Name: "set",
			Args: []Node{Identifier("v1"), Identifier("env.sustain"), Float(-0.25)},
		},
		`load "a/file.wav"`: {Name: "load", Args: []Node{String("a/file.wav")}},
		`load ""`:           {Name: "load", Args: []Node{String("")}},
	} {
		t.Run(input, func(t *testing.T) {
			got, err := Parse(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"1 2", "a '", "a '1/", "a '1:b", "a ': 1", "a , b"} {
		_, err := Parse(input)
		assert.Error(t, err, input)
	}
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmpty)
}
