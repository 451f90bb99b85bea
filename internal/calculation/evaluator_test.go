package calculation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		operation string
		operands  []float64
		want      float64
	}{
		{operation: "addition", operands: []float64{1, 2, 3.5}, want: 6.5},
		{operation: "addition", operands: []float64{-1, 1}, want: 0},
		{operation: "subtraction", operands: []float64{10, 3, 2}, want: 5},
		{operation: "multiplication", operands: []float64{2, 3, 4}, want: 24},
		{operation: "multiplication", operands: []float64{2, 0, 4}, want: 0},
		{operation: "division", operands: []float64{100, 2, 5}, want: 10},
		{operation: "division", operands: []float64{7, 2}, want: 3.5},
		{operation: "division", operands: []float64{0, 5}, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.operation, func(t *testing.T) {
			req, err := Validate(tc.operation, tc.operands)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, Evaluate(req), 1e-9)
		})
	}
}

func TestEvaluateSubtractionIsLeftFold(t *testing.T) {
	req, err := Validate("subtraction", []float64{1, 2, 3})
	require.NoError(t, err)
	// (1-2)-3, not 1-(2-3)
	assert.Equal(t, -4.0, Evaluate(req))
}

func TestEvaluateIsDeterministic(t *testing.T) {
	req, err := Validate("division", []float64{1, 3, 7})
	require.NoError(t, err)
	first := Evaluate(req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(req))
	}
}
