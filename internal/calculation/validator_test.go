package calculation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		operands  any
		wantOp    OperationType
		want      []float64
		wantErr   error
	}{
		{name: "floats", operation: "addition", operands: []float64{1.5, 2.5}, wantOp: Addition, want: []float64{1.5, 2.5}},
		{name: "ints", operation: "multiplication", operands: []int{2, 3, 4}, wantOp: Multiplication, want: []float64{2, 3, 4}},
		{name: "decoded json", operation: "SUBTRACTION", operands: []any{10.0, json.Number("4"), 1}, wantOp: Subtraction, want: []float64{10, 4, 1}},
		{name: "raw json", operation: "division", operands: json.RawMessage(`[100, 2, 5]`), wantOp: Division, want: []float64{100, 2, 5}},
		{name: "zero dividend", operation: "division", operands: []float64{0, 5}, wantOp: Division, want: []float64{0, 5}},

		{name: "nil operands", operation: "addition", operands: nil, wantErr: ErrMalformedInput},
		{name: "scalar", operation: "addition", operands: 5.0, wantErr: ErrMalformedInput},
		{name: "string", operation: "addition", operands: "1,2", wantErr: ErrMalformedInput},
		{name: "non numeric element", operation: "addition", operands: []any{1.0, "x"}, wantErr: ErrMalformedInput},
		{name: "bool element", operation: "addition", operands: []any{1.0, true}, wantErr: ErrMalformedInput},
		{name: "nan", operation: "addition", operands: []float64{1, math.NaN()}, wantErr: ErrMalformedInput},
		{name: "inf", operation: "addition", operands: []float64{math.Inf(1), 1}, wantErr: ErrMalformedInput},
		{name: "raw json object", operation: "addition", operands: json.RawMessage(`{"a":1}`), wantErr: ErrMalformedInput},
		{name: "raw json garbage", operation: "addition", operands: json.RawMessage(`[1,`), wantErr: ErrMalformedInput},

		{name: "empty", operation: "addition", operands: []float64{}, wantErr: ErrInsufficientOperands},
		{name: "single", operation: "addition", operands: []float64{1}, wantErr: ErrInsufficientOperands},

		{name: "unknown op", operation: "power", operands: []float64{2, 3}, wantErr: ErrUnknownOperation},

		{name: "divide by zero", operation: "division", operands: []float64{10, 0}, wantErr: ErrDivisionByZero},
		{name: "divide by zero later", operation: "division", operands: []float64{10, 2, 0}, wantErr: ErrDivisionByZero},
		{name: "divide by negative zero", operation: "division", operands: []float64{10, math.Copysign(0, -1)}, wantErr: ErrDivisionByZero},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := Validate(tc.operation, tc.operands)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOp, req.Operation())
			assert.Equal(t, tc.want, req.Operands())
		})
	}
}

func TestValidateFailsFastInOrder(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		operands  any
		wantErr   error
	}{
		{name: "malformed beats unknown op", operation: "power", operands: "nope", wantErr: ErrMalformedInput},
		{name: "insufficient beats unknown op", operation: "power", operands: []float64{1}, wantErr: ErrInsufficientOperands},
		{name: "insufficient beats division by zero", operation: "division", operands: []float64{0}, wantErr: ErrInsufficientOperands},
		{name: "unknown op checked before constraints", operation: "modulo", operands: []float64{1, 0}, wantErr: ErrUnknownOperation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.operation, tc.operands)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRequestOperandsIsACopy(t *testing.T) {
	input := []float64{1, 2}
	req, err := Validate("addition", input)
	require.NoError(t, err)

	input[0] = 99
	got := req.Operands()
	got[1] = 42

	assert.Equal(t, []float64{1, 2}, req.Operands())
}

func TestCallerErrorClassification(t *testing.T) {
	_, err := Validate("division", []float64{1, 0})
	assert.True(t, IsCallerError(err))
	assert.True(t, IsValidationError(err))

	assert.True(t, IsCallerError(ErrNotFound))
	assert.False(t, IsValidationError(ErrNotFound))

	assert.False(t, IsCallerError(assert.AnError))
}

func TestErrorKind(t *testing.T) {
	_, err := Validate("addition", []float64{1})
	assert.Equal(t, "validation", errorKind(err))
	assert.Equal(t, "not_found", errorKind(ErrNotFound))
	assert.Equal(t, "internal", errorKind(assert.AnError))
}
