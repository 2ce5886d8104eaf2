package dub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tok(typ tokenType, text string) token {
	return token{typ: typ, text: text}
}

func TestLexer(t *testing.T) {
	eof := token{typ: typeEOF}
	for input, want := range map[string][]token{
		"A '* 2": {
			tok(typeIdentifier, "A"), tok(typeQuote, "'"), tok(typeAsterisk, "*"), tok(typeInt, "2"), eof,
		},
		"A 1 2": {
			tok(typeIdentifier, "A"), tok(typeInt, "1"), tok(typeInt, "2"), eof,
		},
		"'1:2 /    / 3,4": {
			tok(typeQuote, "'"), tok(typeInt, "1"), tok(typeColon, ":"), tok(typeInt, "2"),
			tok(typeSlash, "/"), tok(typeSlash, "/"),
			tok(typeInt, "3"), tok(typeComma, ","), tok(typeInt, "4"), eof,
		},
		"1.0": {tok(typeFloat, "1.0"), eof},
		"-1.": {tok(typeFloat, "-1."), eof},
		"-.1": {tok(typeFloat, "-.1"), eof},
		"set v1 env.attack 0.5": {
			tok(typeIdentifier, "set"), tok(typeIdentifier, "v1"),
			tok(typeIdentifier, "env.attack"), tok(typeFloat, "0.5"), eof,
		},
		"load-sound\tv2 true": {
			tok(typeIdentifier, "load-sound"), tok(typeIdentifier, "v2"), tok(typeIdentifier, "true"), eof,
		},
		`command "this is a string" 1`: {
			tok(typeIdentifier, "command"), tok(typeString, `"this is a string"`), tok(typeInt, "1"), eof,
		},
	} {
		t.Run(input, func(t *testing.T) {
			got, err := lex(input)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].typ, got[i].typ, "token %d", i)
				assert.Equal(t, want[i].text, got[i].text, "token %d", i)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{"a -", "a .-", `a "open`, "a 1b", "a b;"} {
		_, err := lex(input)
		assert.Error(t, err, input)
	}
}
