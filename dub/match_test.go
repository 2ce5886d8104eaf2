package dub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalPattern(t *testing.T, pattern string, numerator, denominator, stepSize int) ([]int, error) {
	t.Helper()
	cmd, err := Parse("a '" + pattern)
	require.NoError(t, err)
	expr, ok := cmd.Args[0].(MatchExpr)
	require.True(t, ok)
	return EvalMatchExpr(expr, numerator, denominator, stepSize)
}

func TestEvalMatchExpr(t *testing.T) {
	tests := []struct {
		pattern    string
		num, denom int
		stepSize   int
		want       []int
	}{
		{"2,4/*", 4, 4, 16, []int{0, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0, 0, 1, 0, 1, 0}},
		{"1:4", 4, 4, 16, []int{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}},
		{"1:2//1:4", 4, 4, 16, []int{1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"*//3,4", 4, 4, 16, []int{0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1}},
		{"*/2", 4, 4, 16, []int{0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0}},
		{"5", 5, 4, 16, []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0}},
		{"*", 7, 8, 16, []int{1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0}},
		{"*", 4, 4, 32, []int{
			1, 0, 0, 0, 0, 0, 0, 0,
			1, 0, 0, 0, 0, 0, 0, 0,
			1, 0, 0, 0, 0, 0, 0, 0,
			1, 0, 0, 0, 0, 0, 0, 0,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := evalPattern(t, tt.pattern, tt.num, tt.denom, tt.stepSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalMatchExprErrors(t *testing.T) {
	_, err := evalPattern(t, "*///*", 4, 4, 16)
	assert.Error(t, err, "division finer than the step size")

	_, err = evalPattern(t, "*", 4, 0, 16)
	assert.Error(t, err, "zero denominator")

	_, err = EvalMatchExpr(MatchExpr{}, 4, 4, 16)
	assert.Error(t, err, "no matchers")
}
