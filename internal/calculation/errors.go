package calculation

import "errors"

// Caller errors. Each one is returned (possibly wrapped with detail via %w)
// straight to the boundary layer; none of them is ever retried.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrInsufficientOperands = errors.New("at least two numbers are required for calculation")
	ErrUnknownOperation     = errors.New("unknown operation")
	ErrDivisionByZero       = errors.New("cannot divide by zero")
	ErrNotFound             = errors.New("calculation not found")
)

var callerErrors = []error{
	ErrMalformedInput,
	ErrInsufficientOperands,
	ErrUnknownOperation,
	ErrDivisionByZero,
	ErrNotFound,
}

// IsCallerError reports whether err is one of the caller error kinds.
// Anything else (storage outages, encoding failures) is a system fault.
func IsCallerError(err error) bool {
	for _, target := range callerErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err was raised by the Validator.
func IsValidationError(err error) bool {
	return IsCallerError(err) && !errors.Is(err, ErrNotFound)
}
