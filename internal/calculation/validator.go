package calculation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// MinOperands is the smallest operand list any operation accepts.
const MinOperands = 2

// Request is a validated calculation. The zero value is not valid; build one
// with Validate.
type Request struct {
	operation OperationType
	operands  []float64
}

// Operation returns the resolved operation.
func (r Request) Operation() OperationType { return r.operation }

// Operands returns a copy of the operand list.
func (r Request) Operands() []float64 {
	out := make([]float64, len(r.operands))
	copy(out, r.operands)
	return out
}

// Validate turns a raw operation name and operand list into a Request.
//
// Checks run in a fixed order and stop at the first failure: operand shape
// (ErrMalformedInput), operand count (ErrInsufficientOperands), operation
// name (ErrUnknownOperation), then the operation's constraints
// (ErrDivisionByZero for Division).
//
// rawOperands may be a []float64, a []int, a []any of numbers (as produced by
// encoding/json, json.Number included) or a json.RawMessage holding an array.
func Validate(rawOperation string, rawOperands any) (Request, error) {
	operands, err := normalizeOperands(rawOperands)
	if err != nil {
		return Request{}, err
	}

	if len(operands) < MinOperands {
		return Request{}, fmt.Errorf("%w: got %d", ErrInsufficientOperands, len(operands))
	}

	op, err := Resolve(rawOperation)
	if err != nil {
		return Request{}, err
	}

	for _, c := range Constraints(op) {
		for i, v := range operands {
			if err := c.Check(i, v); err != nil {
				return Request{}, err
			}
		}
	}

	return Request{operation: op, operands: operands}, nil
}

func normalizeOperands(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%w: inputs must be a list of numbers", ErrMalformedInput)
	case []float64:
		out := make([]float64, len(v))
		for i, x := range v {
			if err := checkFinite(i, x); err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []any:
		out := make([]float64, len(v))
		for i, x := range v {
			f, err := toFloat(i, x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case json.RawMessage:
		return decodeOperands(v)
	case []byte:
		return decodeOperands(v)
	default:
		return nil, fmt.Errorf("%w: inputs must be a list of numbers, got %T", ErrMalformedInput, raw)
	}
}

func decodeOperands(data []byte) ([]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if _, ok := decoded.([]any); !ok {
		return nil, fmt.Errorf("%w: inputs must be a list of numbers", ErrMalformedInput)
	}
	return normalizeOperands(decoded)
}

func toFloat(index int, x any) (float64, error) {
	var f float64
	switch n := x.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: operand %d: %v", ErrMalformedInput, index, err)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: operand %d is %T, not a number", ErrMalformedInput, index, x)
	}
	if err := checkFinite(index, f); err != nil {
		return 0, err
	}
	return f, nil
}

func checkFinite(index int, x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("%w: operand %d is not finite", ErrMalformedInput, index)
	}
	return nil
}
