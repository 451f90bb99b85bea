package calculation

import (
	"fmt"
	"strings"
)

// OperationType is the closed set of supported calculations.
type OperationType int

const (
	Addition OperationType = iota
	Subtraction
	Multiplication
	Division

	operationCount
)

// Constraint is a per-position predicate over an operand list.
type Constraint struct {
	Name  string
	Check func(index int, value float64) error
}

type operationDef struct {
	name        string
	apply       func(acc, x float64) float64
	constraints []Constraint
}

var nonZeroDivisor = Constraint{
	Name: "non-zero divisor",
	Check: func(index int, value float64) error {
		if index >= 1 && value == 0 {
			return fmt.Errorf("%w: operand %d is zero", ErrDivisionByZero, index)
		}
		return nil
	},
}

// operations is indexed by OperationType. Every variant below operationCount
// must have an entry; TestEveryOperationHasCompleteEntry enforces it.
var operations = [operationCount]operationDef{
	Addition: {
		name:  "addition",
		apply: func(acc, x float64) float64 { return acc + x },
	},
	Subtraction: {
		name:  "subtraction",
		apply: func(acc, x float64) float64 { return acc - x },
	},
	Multiplication: {
		name:  "multiplication",
		apply: func(acc, x float64) float64 { return acc * x },
	},
	Division: {
		name:        "division",
		apply:       func(acc, x float64) float64 { return acc / x },
		constraints: []Constraint{nonZeroDivisor},
	},
}

var byName = func() map[string]OperationType {
	m := make(map[string]OperationType, operationCount)
	for op := OperationType(0); op < operationCount; op++ {
		m[operations[op].name] = op
	}
	return m
}()

var supportedNames = func() string {
	names := make([]string, 0, operationCount)
	for _, op := range Operations() {
		names = append(names, op.String())
	}
	return strings.Join(names, ", ")
}()

// Operations lists every supported operation in declaration order.
func Operations() []OperationType {
	ops := make([]OperationType, 0, operationCount)
	for op := OperationType(0); op < operationCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Resolve looks an operation up by name, ignoring case.
func Resolve(name string) (OperationType, error) {
	op, ok := byName[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q, expected one of %s", ErrUnknownOperation, name, supportedNames)
	}
	return op, nil
}

// Constraints returns the domain constraints of op. Only Division has one.
func Constraints(op OperationType) []Constraint {
	if !op.Valid() {
		return nil
	}
	return operations[op].constraints
}

// Valid reports whether op is a member of the enumeration.
func (op OperationType) Valid() bool {
	return op >= 0 && op < operationCount
}

func (op OperationType) String() string {
	if !op.Valid() {
		return fmt.Sprintf("OperationType(%d)", int(op))
	}
	return operations[op].name
}

// MarshalText encodes the operation as its wire name.
func (op OperationType) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText accepts any casing of a wire name.
func (op *OperationType) UnmarshalText(text []byte) error {
	resolved, err := Resolve(string(text))
	if err != nil {
		return err
	}
	*op = resolved
	return nil
}

func (op OperationType) apply(acc, x float64) float64 {
	return operations[op].apply(acc, x)
}
