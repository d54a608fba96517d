package expr

import (
	"fmt"
	"math"
	"strings"
)

// Lookup resolves variable ids to values.
type Lookup interface {
	Value(id string) (float64, bool)
}

// Values is a plain map Lookup.
type Values map[string]float64

func (v Values) Value(id string) (float64, bool) {
	f, ok := v[id]
	return f, ok
}

// Context carries the running totals of a pricing pass.
type Context struct {
	Subtotal     float64
	RunningTotal float64
}

func (c Context) reserved(name string) float64 {
	if name == ReservedRunningTotal {
		return c.RunningTotal
	}
	return c.Subtotal
}

// Result is a successful evaluation.
type Result struct {
	Value         float64
	UsedVariables []string
}

// Evaluate runs the expression against vars and the calculation context.
// Unknown variables are an error; callers that want a default must resolve
// one into vars beforehand.
func (e Expression) Evaluate(vars Lookup, calc Context) (Result, error) {
	if e.IsEmpty() {
		return Result{}, ErrEmpty
	}
	if e.postfixErr != nil {
		return Result{}, e.postfixErr
	}

	stack := make([]float64, 0, len(e.postfix))
	var used []string
	seen := make(map[string]struct{})

	for _, tok := range e.postfix {
		switch tok.Kind {
		case KindLiteral:
			stack = append(stack, tok.Num)

		case KindOperator:
			if len(stack) < 2 {
				return Result{}, fmt.Errorf("%w: operator %q needs 2, have %d", ErrInsufficientOperands, tok.Text, len(stack))
			}
			a, b := stack[len(stack)-2], stack[len(stack)-1]
			stack = append(stack[:len(stack)-2], tok.Op.apply(a, b))

		case KindFunction:
			n := tok.Fn.Arity()
			if len(stack) < n {
				return Result{}, fmt.Errorf("%w: %s needs %d, have %d", ErrInsufficientOperands, tok.Text, n, len(stack))
			}
			v := tok.Fn.apply(stack[len(stack)-n:])
			stack = append(stack[:len(stack)-n], v)

		case KindIdent:
			if tok.IsReserved() {
				stack = append(stack, calc.reserved(tok.Text))
				continue
			}
			var (
				v  float64
				ok bool
			)
			if vars != nil {
				v, ok = vars.Value(tok.Text)
			}
			if !ok {
				return Result{}, fmt.Errorf("%w: %s", ErrUnknownVariable, tok.Text)
			}
			if _, dup := seen[tok.Text]; !dup {
				seen[tok.Text] = struct{}{}
				used = append(used, tok.Text)
			}
			stack = append(stack, v)

		default:
			return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedToken, tok.Kind)
		}
	}

	if len(stack) != 1 {
		return Result{}, fmt.Errorf("%w: %d values left on stack", ErrMalformed, len(stack))
	}
	value := stack[0]
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{}, fmt.Errorf("%w: %v", ErrNonFinite, value)
	}
	return Result{Value: value, UsedVariables: used}, nil
}

// Render prints the tokens in source order with every resolvable identifier
// annotated with its value, e.g. "participants(2) * basePrice(100)".
func (e Expression) Render(vars Lookup, calc Context) string {
	parts := make([]string, 0, len(e.tokens))
	for _, tok := range e.tokens {
		if tok.Kind != KindIdent {
			parts = append(parts, tok.Text)
			continue
		}
		if tok.IsReserved() {
			parts = append(parts, tok.Text+"("+formatNumber(calc.reserved(tok.Text))+")")
			continue
		}
		if vars != nil {
			if v, ok := vars.Value(tok.Text); ok {
				parts = append(parts, tok.Text+"("+formatNumber(v)+")")
				continue
			}
		}
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " ")
}
