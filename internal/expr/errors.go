package expr

import "errors"

var (
	ErrEmpty                = errors.New("expression is empty")
	ErrUnsupportedToken     = errors.New("unsupported token")
	ErrMismatchedParens     = errors.New("mismatched parentheses")
	ErrInsufficientOperands = errors.New("insufficient operands")
	ErrUnknownVariable      = errors.New("unknown variable")
	ErrMalformed            = errors.New("malformed expression")
	ErrNonFinite            = errors.New("non-finite result")
)
